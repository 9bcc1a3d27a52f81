package orchestrator

import (
	"os"

	"github.com/maastricht-university/journal-emotion/emotion"
)

func fallback(path string, cause error) *SpeechResult {
	v := emotion.Fallback(fileSize(path))
	return &SpeechResult{
		Emotion:   v,
		Sentiment: emotion.Sentiment(v),
		Raw:       SpeechFallback{Scores: v.Map(), Reason: cause.Error()},
	}
}

// fileSize is the asset's byte length, 1 when it can't be read.
func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil || fi.Size() < 1 {
		return 1
	}
	return fi.Size()
}

func copyScores(s emotion.Scores) map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
