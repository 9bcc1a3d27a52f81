package clients

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/journal-emotion/audio"
	"github.com/maastricht-university/journal-emotion/emotion"
	"github.com/maastricht-university/journal-emotion/inference"
)

// CanonicalInput is the Wav2Vec2-style input name most exports use.
const CanonicalInput = "input_values"

const logitsOutput = "logits"

type Normalizer interface {
	Normalize(ctx context.Context, path string) (*audio.Waveform, error)
}

// --- Speech emotion (multi-class, softmax) ---
type SpeechPrediction struct {
	Scores   emotion.Scores `json:"scores"`
	TopLabel string         `json:"top_label"`
}

type Speech struct {
	model  inference.Model
	labels []string
	audio  Normalizer
	log    logrus.FieldLogger
}

func NewSpeech(a *inference.SpeechAssets, n Normalizer, log logrus.FieldLogger) *Speech {
	return &Speech{model: a.Model, labels: a.Labels, audio: n, log: log}
}

func (s *Speech) Predict(ctx context.Context, path string) (*SpeechPrediction, error) {
	w, err := s.audio.Normalize(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, rank := s.input()
	feed := inference.Feed{Name: name, Shape: w.Shape(rank), Float: w.Samples}
	logits, err := s.model.Run([]inference.Feed{feed}, logitsOutput, len(s.labels))
	if err != nil && name != CanonicalInput {
		s.log.WithFields(logrus.Fields{"input": name}).WithError(err).Warn("speech run failed, retrying with " + CanonicalInput)
		feed.Name = CanonicalInput
		logits, err = s.model.Run([]inference.Feed{feed}, logitsOutput, len(s.labels))
	}
	if err != nil {
		return nil, fmt.Errorf("speech inference: %w", err)
	}
	if len(logits) != len(s.labels) {
		return nil, fmt.Errorf("speech inference: %d logits for %d labels", len(logits), len(s.labels))
	}

	probs := inference.Softmax(logits)
	scores := make(emotion.Scores, len(s.labels))
	for i, lab := range s.labels {
		scores[lab] = probs[i]
	}
	return &SpeechPrediction{Scores: scores, TopLabel: s.labels[inference.Argmax(probs)]}, nil
}

// input resolves the tensor name and rank from the model's first declared
// input. Only a rank-2 input gets the channel axis squeezed out.
func (s *Speech) input() (string, int) {
	ins := s.model.Inputs()
	if len(ins) == 0 || ins[0].Name == "" {
		return CanonicalInput, 3
	}
	if len(ins[0].Dims) == 2 {
		return ins[0].Name, 2
	}
	return ins[0].Name, 3
}
