package orchestrator

import (
	"encoding/json"

	"github.com/maastricht-university/journal-emotion/clients"
	"github.com/maastricht-university/journal-emotion/emotion"
)

// FusionHint is attached to every combined analysis.
const FusionHint = "Fusion strategy can be refined (weighted average / rules / late fusion)."

type Request struct {
	Text      string
	AudioPath string
}

type TextResult struct {
	Emotion   emotion.Vector          `json:"emotion"`
	Sentiment float64                 `json:"sentiment"`
	Raw       *clients.TextPrediction `json:"raw"`
}

type SpeechResult struct {
	Emotion   emotion.Vector `json:"emotion"`
	Sentiment float64        `json:"sentiment"`
	Raw       SpeechRaw      `json:"raw"`
}

// SpeechRaw is either SpeechScores (model ran) or SpeechFallback (heuristic).
type SpeechRaw interface {
	RawScores() emotion.Scores
	isSpeechRaw()
}

type SpeechScores struct {
	Scores   emotion.Scores `json:"scores"`
	TopLabel string         `json:"top_label"`
}

func (s SpeechScores) RawScores() emotion.Scores { return s.Scores }
func (SpeechScores) isSpeechRaw()                {}

type SpeechFallback struct {
	Scores emotion.Scores
	Reason string
}

func (s SpeechFallback) RawScores() emotion.Scores { return s.Scores }
func (SpeechFallback) isSpeechRaw()                {}

func (s SpeechFallback) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Scores   emotion.Scores `json:"scores"`
		Fallback bool           `json:"fallback"`
		Reason   string         `json:"reason"`
	}{s.Scores, true, s.Reason})
}

// Combined mirrors the primary modality. Emotion is the canonical vector for
// text-only input but the full speech score map when audio is present.
type Combined struct {
	Emotion   map[string]float64 `json:"emotion"`
	Sentiment float64            `json:"sentiment"`
}

type Analysis struct {
	ID       string        `json:"id"`
	Text     *TextResult   `json:"text,omitempty"`
	Speech   *SpeechResult `json:"speech,omitempty"`
	Combined *Combined     `json:"combined,omitempty"`
	Hint     string        `json:"combined_hint"`
}
