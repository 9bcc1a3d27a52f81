package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(ownerMiddleware)

	v1.HandleFunc("/analyze/text", s.handleAnalyzeText).Methods(http.MethodPost)
	v1.HandleFunc("/analyze/speech", s.handleAnalyzeSpeech).Methods(http.MethodPost)
	v1.HandleFunc("/analyze/combined", s.handleAnalyzeCombined).Methods(http.MethodPost)

	v1.HandleFunc("/entries", s.handleListEntries).Methods(http.MethodGet)
	v1.HandleFunc("/entries", s.handleCreateEntry).Methods(http.MethodPost)
	v1.HandleFunc("/entries/{id}", s.handleGetEntry).Methods(http.MethodGet)
	v1.HandleFunc("/entries/{id}", s.handleUpdateEntry).Methods(http.MethodPut, http.MethodPatch)
	v1.HandleFunc("/entries/{id}", s.handleDeleteEntry).Methods(http.MethodDelete)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.WithFields(logrus.Fields{
					"panic": v,
					"path":  r.URL.Path,
					"stack": string(debug.Stack()),
				}).Error("panic recovered")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type ownerKey struct{}

const anonymous = "anonymous"

// ownerMiddleware reads the caller identity set by the authenticating proxy.
func ownerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get("X-User")
		if owner == "" {
			owner = anonymous
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func owner(r *http.Request) string {
	if o, ok := r.Context().Value(ownerKey{}).(string); ok {
		return o
	}
	return anonymous
}
