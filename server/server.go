package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/journal-emotion/journal"
	"github.com/maastricht-university/journal-emotion/orchestrator"
)

type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (*orchestrator.TextResult, error)
	AnalyzeSpeech(ctx context.Context, path string) *orchestrator.SpeechResult
	Analyze(ctx context.Context, req orchestrator.Request) (*orchestrator.Analysis, error)
}

type Options struct {
	Addr         string
	MediaDir     string
	MaxUpload    int64 // bytes
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TmpSweep     string // cron spec, empty disables
	TmpMaxAge    time.Duration
}

type Server struct {
	opts    Options
	pipe    Analyzer
	entries *journal.Service
	router  *mux.Router
	cron    *cron.Cron
	tmpDir  string
	log     logrus.FieldLogger
}

func New(opts Options, pipe Analyzer, entries *journal.Service, log logrus.FieldLogger) *Server {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 25 << 20
	}
	s := &Server{
		opts:    opts,
		pipe:    pipe,
		entries: entries,
		router:  mux.NewRouter(),
		cron:    cron.New(),
		tmpDir:  filepath.Join(opts.MediaDir, "tmp"),
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.opts.TmpSweep != "" {
		if _, err := s.cron.AddFunc(s.opts.TmpSweep, s.sweepTmp); err != nil {
			return err
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.opts.Addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// sweepTmp removes uploads left behind in the temp dir by a crashed request.
func (s *Server) sweepTmp() {
	ents, err := os.ReadDir(s.tmpDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("tmp sweep")
		}
		return
	}
	cutoff := time.Now().Add(-s.opts.TmpMaxAge)
	removed := 0
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.tmpDir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("swept stale uploads")
	}
}
