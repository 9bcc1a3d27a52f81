package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/journal-emotion/clients"
	"github.com/maastricht-university/journal-emotion/orchestrator"
)

var (
	analyzeText   string
	analyzeAudio  string
	analyzeServer string
	analyzeUser   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a piece of text and/or an audio file",
	Long: `Run the emotion pipeline once and print the analysis as JSON.

Models are loaded in-process unless --server is given, in which case the
input is uploaded to a running journal-emotion server.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeText, "text", "t", "", "Entry text")
	analyzeCmd.Flags().StringVarP(&analyzeAudio, "audio", "a", "", "Path to an audio file (wav/mp3/flac/aiff, others need ffmpeg)")
	analyzeCmd.Flags().StringVar(&analyzeServer, "server", "", "Base URL of a running server, e.g. http://localhost:8080")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "Value sent as X-User when --server is set")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(analyzeText) == "" && analyzeAudio == "" {
		return errors.New("nothing to analyze: pass --text and/or --audio")
	}

	var out []byte
	if analyzeServer != "" {
		raw, err := clients.NewHTTP(analyzeServer, analyzeUser).AnalyzeCombined(cmd.Context(), analyzeText, analyzeAudio)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return err
		}
		out = buf.Bytes()
	} else {
		pipe, closeModels, err := buildPipeline(conf, log)
		if err != nil {
			return err
		}
		defer closeModels()

		a, err := pipe.Analyze(cmd.Context(), orchestrator.Request{Text: analyzeText, AudioPath: analyzeAudio})
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		if out, err = json.MarshalIndent(a, "", "  "); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
