package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/journal-emotion/clients"
	"github.com/maastricht-university/journal-emotion/emotion"
)

var errNoSpeechModel = errors.New("speech model not loaded")

type TextClassifier interface {
	Predict(ctx context.Context, text string) (*clients.TextPrediction, error)
}

type SpeechClassifier interface {
	Predict(ctx context.Context, path string) (*clients.SpeechPrediction, error)
}

// Pipeline runs one entry through the available classifiers. It keeps no
// state between calls; either classifier may be nil.
type Pipeline struct {
	text   TextClassifier
	speech SpeechClassifier
	rec    *Recorder
	log    logrus.FieldLogger
}

type Option func(*Pipeline)

// WithRecorder persists every Analyze result.
func WithRecorder(r *Recorder) Option { return func(p *Pipeline) { p.rec = r } }

func WithLogger(l logrus.FieldLogger) Option { return func(p *Pipeline) { p.log = l } }

func NewPipeline(text TextClassifier, speech SpeechClassifier, opts ...Option) *Pipeline {
	p := &Pipeline{text: text, speech: speech, log: logrus.StandardLogger()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AnalyzeText runs the text model. Errors are returned: text has no fallback.
func (p *Pipeline) AnalyzeText(ctx context.Context, text string) (*TextResult, error) {
	if p.text == nil {
		return nil, errors.New("text model not loaded")
	}
	raw, err := p.text.Predict(ctx, text)
	if err != nil {
		return nil, err
	}
	v := emotion.ToCanonical(raw.Scores)
	return &TextResult{Emotion: v, Sentiment: emotion.Sentiment(v), Raw: raw}, nil
}

// AnalyzeSpeech never fails: a decode or inference error is replaced by the
// size heuristic and the reason is kept in the raw payload.
func (p *Pipeline) AnalyzeSpeech(ctx context.Context, path string) *SpeechResult {
	err := errNoSpeechModel
	if p.speech != nil {
		var raw *clients.SpeechPrediction
		raw, err = p.speech.Predict(ctx, path)
		if err == nil {
			v := emotion.ToCanonical(raw.Scores)
			return &SpeechResult{
				Emotion:   v,
				Sentiment: emotion.Sentiment(v),
				Raw:       SpeechScores{Scores: raw.Scores, TopLabel: raw.TopLabel},
			}
		}
	}
	p.log.WithField("path", path).WithError(err).Error("speech model failed, using heuristic fallback")
	return fallback(path, err)
}

// Analyze runs every modality present in req and fuses them. Empty text, a
// disabled text model and absent or unreadable audio never produce an error;
// a text model failure does.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	a := &Analysis{ID: uuid.NewString(), Hint: FusionHint}
	if p.text != nil && strings.TrimSpace(req.Text) != "" {
		t, err := p.AnalyzeText(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		a.Text = t
	}
	if req.AudioPath != "" {
		a.Speech = p.AnalyzeSpeech(ctx, req.AudioPath)
	}
	a.Combined = Combine(a.Text, a.Speech)

	if p.rec != nil {
		if _, err := p.rec.Record(a); err != nil {
			p.log.WithField("analysis", a.ID).WithError(err).Warn("could not persist analysis")
		}
	}
	return a, nil
}

// Combine picks the primary modality: speech when present, otherwise text.
// Results are never averaged.
func Combine(text *TextResult, speech *SpeechResult) *Combined {
	switch {
	case speech != nil:
		em := speech.Emotion.Map()
		if speech.Raw != nil {
			if s := speech.Raw.RawScores(); len(s) > 0 {
				em = copyScores(s)
			}
		}
		return &Combined{Emotion: em, Sentiment: speech.Sentiment}
	case text != nil:
		return &Combined{Emotion: text.Emotion.Map(), Sentiment: text.Sentiment}
	}
	return nil
}
