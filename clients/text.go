package clients

import (
	"context"
	"fmt"

	"github.com/maastricht-university/journal-emotion/emotion"
	"github.com/maastricht-university/journal-emotion/inference"
)

const defaultCutoff = 0.5

type Encoder interface {
	Encode(text string) (ids, mask []int64, err error)
}

// --- Text emotion (multi-label, sigmoid) ---
type TextPrediction struct {
	Scores       emotion.Scores `json:"scores"`
	ActiveLabels []string       `json:"active_labels"`
}

type Text struct {
	model      inference.Model
	labels     []string
	thresholds []float64
	enc        Encoder
}

func NewText(a *inference.TextAssets, enc Encoder) *Text {
	if enc == nil {
		enc = a.Tokenizer
	}
	return &Text{model: a.Model, labels: a.Labels, thresholds: a.Thresholds, enc: enc}
}

func (t *Text) Predict(ctx context.Context, text string) (*TextPrediction, error) {
	ids, mask, err := t.enc.Encode(text)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shape := []int64{1, int64(len(ids))}
	logits, err := t.model.Run([]inference.Feed{
		{Name: "input_ids", Shape: shape, Int: ids},
		{Name: "attention_mask", Shape: shape, Int: mask},
	}, logitsOutput, len(t.labels))
	if err != nil {
		return nil, fmt.Errorf("text inference: %w", err)
	}
	if len(logits) != len(t.labels) {
		return nil, fmt.Errorf("text inference: %d logits for %d labels", len(logits), len(t.labels))
	}

	probs := inference.Sigmoid(logits)
	// thresholds of the wrong length are ignored
	cut := t.thresholds
	if len(cut) != len(probs) {
		cut = nil
	}
	out := &TextPrediction{Scores: make(emotion.Scores, len(t.labels)), ActiveLabels: []string{}}
	for i, lab := range t.labels {
		out.Scores[lab] = probs[i]
		th := defaultCutoff
		if cut != nil {
			th = cut[i]
		}
		if probs[i] >= th {
			out.ActiveLabels = append(out.ActiveLabels, lab)
		}
	}
	return out, nil
}
