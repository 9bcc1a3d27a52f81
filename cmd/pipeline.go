package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/journal-emotion/audio"
	"github.com/maastricht-university/journal-emotion/clients"
	"github.com/maastricht-university/journal-emotion/config"
	"github.com/maastricht-university/journal-emotion/inference"
	"github.com/maastricht-university/journal-emotion/orchestrator"
)

// buildPipeline loads the enabled models and wires them into a pipeline.
// The returned closer releases the ONNX sessions and runtime.
func buildPipeline(c *config.Root, log logrus.FieldLogger) (*orchestrator.Pipeline, func(), error) {
	svc, err := inference.Load(inference.Options{
		Dir:          c.Models.Dir,
		Runtime:      c.Models.Runtime,
		Text:         c.Models.Text,
		Speech:       c.Models.Speech,
		TextMaxLen:   c.Models.TextMaxLen,
		IntraThreads: c.Models.IntraThread,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("load models: %w", err)
	}

	var (
		text   orchestrator.TextClassifier
		speech orchestrator.SpeechClassifier
	)
	if svc.Text != nil {
		text = clients.NewText(svc.Text, nil)
	}
	if svc.Speech != nil {
		norm := audio.NewNormalizer(c.Audio.SampleRate, c.Audio.MaxSeconds, c.Audio.FFmpeg, log)
		speech = clients.NewSpeech(svc.Speech, norm, log)
	}

	opts := []orchestrator.Option{orchestrator.WithLogger(log)}
	if c.Paths.Outputs != "" {
		opts = append(opts, orchestrator.WithRecorder(&orchestrator.Recorder{Root: c.Paths.Outputs}))
	}
	closer := func() {
		if err := svc.Close(); err != nil {
			log.WithError(err).Warn("close models")
		}
	}
	return orchestrator.NewPipeline(text, speech, opts...), closer, nil
}
