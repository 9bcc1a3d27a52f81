package cmd

import (
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/journal-emotion/config"
	"github.com/maastricht-university/journal-emotion/journal"
	"github.com/maastricht-university/journal-emotion/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Load the enabled models once and serve the analyze and journal entry
endpoints until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"name":    conf.Pipeline.Name,
		"version": conf.Pipeline.Version,
	}).Info("starting")

	pipe, closeModels, err := buildPipeline(conf, log)
	if err != nil {
		return err
	}
	defer closeModels()

	store, err := journal.OpenStore(conf.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries := journal.NewService(store, pipe, conf.Paths.Media, log)
	srv := server.New(server.Options{
		Addr:         conf.Server.Addr,
		MediaDir:     conf.Paths.Media,
		MaxUpload:    int64(conf.Server.MaxUploadMB) << 20,
		ReadTimeout:  config.DurSeconds(conf.Server.ReadTimeout),
		WriteTimeout: config.DurSeconds(conf.Server.WriteTimeout),
		TmpSweep:     conf.Server.TmpSweep,
		TmpMaxAge:    config.DurSeconds(conf.Server.TmpMaxAge),
	}, pipe, entries, log)
	return srv.Run(ctx)
}
