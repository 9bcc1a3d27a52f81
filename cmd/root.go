package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/journal-emotion/config"
)

var (
	cfgPath string

	conf *config.Root
	log  *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "journal-emotion",
	Short: "Emotion analysis for journal entries",
	Long: `journal-emotion scores the text and voice memo of a journal entry with
local ONNX models and serves the results over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		conf = c
		log = c.Logger()
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config.yaml (default: config/<CONFIG_ENV>/config.yaml)")
}
