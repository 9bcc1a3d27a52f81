package inference

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Dir          string
	Runtime      string
	Text         bool
	Speech       bool
	TextMaxLen   int
	IntraThreads int
}

type TextAssets struct {
	Model      Model
	Labels     []string
	Thresholds []float64
	Tokenizer  *Tokenizer
}

type SpeechAssets struct {
	Model  Model
	Labels []string
}

// Service owns the loaded, read-only model handles for the process.
// Either side is nil when that modality is disabled.
type Service struct {
	Text   *TextAssets
	Speech *SpeechAssets

	models []*ORTModel
}

// Load opens every enabled model once. A failure for an enabled modality is
// fatal: the process should not start half-configured.
func Load(o Options, log logrus.FieldLogger) (*Service, error) {
	svc := &Service{}
	if !o.Text && !o.Speech {
		return svc, nil
	}
	if err := InitRuntime(o.Runtime); err != nil {
		return nil, err
	}

	if o.Text {
		t, err := svc.loadText(o)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("text model: %w", err)
		}
		svc.Text = t
		log.WithFields(logrus.Fields{
			"labels":     len(t.Labels),
			"thresholds": len(t.Thresholds) == len(t.Labels),
		}).Info("text model loaded")
	}
	if o.Speech {
		s, err := svc.loadSpeech(o)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("speech model: %w", err)
		}
		svc.Speech = s
		log.WithField("labels", len(s.Labels)).Info("speech model loaded")
	}
	return svc, nil
}

func (s *Service) loadText(o Options) (*TextAssets, error) {
	dir := TextPath(o.Dir, "")
	labels, err := LoadLabels(TextPath(o.Dir, LabelsFile))
	if err != nil {
		return nil, err
	}
	thr, err := LoadThresholds(TextPath(o.Dir, TextThresholds))
	if err != nil {
		return nil, err
	}
	tok, err := LoadTokenizer(dir, o.TextMaxLen)
	if err != nil {
		return nil, err
	}
	m, err := OpenORT(TextPath(o.Dir, TextGraph), o.IntraThreads)
	if err != nil {
		return nil, err
	}
	s.models = append(s.models, m)
	return &TextAssets{Model: m, Labels: labels, Thresholds: thr, Tokenizer: tok}, nil
}

func (s *Service) loadSpeech(o Options) (*SpeechAssets, error) {
	labels, err := LoadLabels(SpeechPath(o.Dir, LabelsFile))
	if err != nil {
		return nil, err
	}
	m, err := OpenORT(SpeechPath(o.Dir, SpeechGraph), o.IntraThreads)
	if err != nil {
		return nil, err
	}
	s.models = append(s.models, m)
	return &SpeechAssets{Model: m, Labels: labels}, nil
}

// Close releases sessions and the runtime.
func (s *Service) Close() error {
	var errs []error
	for _, m := range s.models {
		errs = append(errs, m.Close())
	}
	s.models = nil
	errs = append(errs, ShutdownRuntime())
	return errors.Join(errs...)
}
