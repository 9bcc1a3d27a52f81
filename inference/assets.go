package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model directory layout under models.dir.
const (
	TextDir        = "text_emotions_model"
	TextGraph      = "text_emotion.onnx"
	TextThresholds = "chosen_thresholds.json"
	TokenizerFile  = "tokenizer.json"

	SpeechDir   = "speech_emotions_model"
	SpeechGraph = "onnx/speech_emotion_model.onnx"

	LabelsFile = "labels.json"
)

// LoadLabels reads a label list stored either as a bare JSON array or as
// {"labels": [...]}.
func LoadLabels(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		return nonEmpty(path, list)
	}
	var wrapped struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, fmt.Errorf("labels %s: %w", path, err)
	}
	return nonEmpty(path, wrapped.Labels)
}

func nonEmpty(path string, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels %s: empty label list", path)
	}
	return labels, nil
}

// LoadThresholds reads {"thresholds": [...]}. A missing or malformed file
// yields nil and the caller falls back to the 0.5 cutoff.
func LoadThresholds(path string) ([]float64, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc struct {
		Thresholds []float64 `json:"thresholds"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, nil
	}
	return doc.Thresholds, nil
}

func TextPath(modelsDir, name string) string   { return filepath.Join(modelsDir, TextDir, name) }
func SpeechPath(modelsDir, name string) string { return filepath.Join(modelsDir, SpeechDir, name) }
