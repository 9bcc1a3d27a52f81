package emotion

import (
	"math"
	"strings"
)

// Keys is the canonical label order shared by every consumer.
var Keys = []string{"joy", "sadness", "anger", "fear", "surprise", "neutral"}

// Scores is a model-native label -> probability map.
type Scores map[string]float64

// Vector is the canonical 6-dimension emotion summary. Dimensions are
// independent and do not have to sum to 1.
type Vector struct {
	Joy      float64 `json:"joy"`
	Sadness  float64 `json:"sadness"`
	Anger    float64 `json:"anger"`
	Fear     float64 `json:"fear"`
	Surprise float64 `json:"surprise"`
	Neutral  float64 `json:"neutral"`
}

// Map returns the vector keyed by canonical name.
func (v Vector) Map() map[string]float64 {
	return map[string]float64{
		"joy":      v.Joy,
		"sadness":  v.Sadness,
		"anger":    v.Anger,
		"fear":     v.Fear,
		"surprise": v.Surprise,
		"neutral":  v.Neutral,
	}
}

// ToCanonical maps raw classifier scores onto the canonical vector.
// Keys are matched case-insensitively after trimming; unknown labels are
// dropped and missing ones stay at zero.
func ToCanonical(s Scores) Vector {
	norm := make(map[string]float64, len(s))
	for k, p := range s {
		norm[strings.ToLower(strings.TrimSpace(k))] = unit(p)
	}
	return Vector{
		Joy:      norm["joy"],
		Sadness:  norm["sadness"],
		Anger:    norm["anger"],
		Fear:     norm["fear"],
		Surprise: norm["surprise"],
		Neutral:  norm["neutral"],
	}
}

// Sentiment derives a polarity index in [-1, 1]. Joy and surprise count as
// positive, sadness, anger and fear as negative; neutral is ignored.
func Sentiment(v Vector) float64 {
	pos := v.Joy + v.Surprise
	neg := v.Sadness + v.Anger + v.Fear
	denom := pos + neg
	if denom <= 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, (pos-neg)/denom))
}

// Fallback is the degraded-mode estimate used when speech inference can't
// run. It depends only on the byte size of the audio asset.
func Fallback(size int64) Vector {
	if size < 1 {
		size = 1
	}
	n := math.Max(1, math.Log10(float64(size)))
	return Vector{
		Joy:      math.Min(1, n/6),
		Sadness:  math.Max(0, 1-n/8),
		Anger:    0.2,
		Fear:     0.2,
		Surprise: 0.3,
		Neutral:  0.5,
	}
}

// unit clamps p into [0, 1]; NaN becomes 0.
func unit(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
