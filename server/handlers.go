package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/maastricht-university/journal-emotion/emotion"
	"github.com/maastricht-university/journal-emotion/journal"
	"github.com/maastricht-university/journal-emotion/orchestrator"
)

// emotionResponse is the shape the journal frontend reads.
type emotionResponse struct {
	Emotion   emotion.Vector `json:"emotion"`
	Sentiment float64        `json:"sentiment"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, s.opts.MaxUpload)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	res, err := s.pipe.AnalyzeText(r.Context(), req.Text)
	if err != nil {
		s.log.WithError(err).Error("text analysis failed")
		writeError(w, http.StatusInternalServerError, "text analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, emotionResponse{Emotion: res.Emotion, Sentiment: res.Sentiment})
}

func (s *Server) handleAnalyzeSpeech(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, hdr, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer f.Close()

	var res *orchestrator.SpeechResult
	if err := s.withTempUpload(f, hdr, func(path string) {
		res = s.pipe.AnalyzeSpeech(r.Context(), path)
	}); err != nil {
		s.log.WithError(err).Error("store upload")
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	writeJSON(w, http.StatusOK, emotionResponse{Emotion: res.Emotion, Sentiment: res.Sentiment})
}

func (s *Server) handleAnalyzeCombined(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := orchestrator.Request{Text: r.FormValue("text")}

	var (
		a   *orchestrator.Analysis
		err error
	)
	f, hdr, ferr := r.FormFile("audio")
	switch {
	case ferr == nil:
		defer f.Close()
		if uerr := s.withTempUpload(f, hdr, func(path string) {
			req.AudioPath = path
			a, err = s.pipe.Analyze(r.Context(), req)
		}); uerr != nil {
			s.log.WithError(uerr).Error("store upload")
			writeError(w, http.StatusInternalServerError, "could not store upload")
			return
		}
	case errors.Is(ferr, http.ErrMissingFile):
		a, err = s.pipe.Analyze(r.Context(), req)
	default:
		writeError(w, http.StatusBadRequest, "invalid audio upload")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("combined analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	list, err := s.entries.List(r.Context(), owner(r))
	if err != nil {
		s.log.WithError(err).Error("list entries")
		writeError(w, http.StatusInternalServerError, "could not list entries")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	in, err := s.readEntry(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer in.close()

	e, err := s.entries.Create(r.Context(), owner(r), deref(in.patch.Title), deref(in.patch.Text), in.upload)
	if err != nil {
		s.log.WithError(err).Error("create entry")
		writeError(w, http.StatusInternalServerError, "could not save entry")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.Get(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.entryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	in, err := s.readEntry(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer in.close()

	e, err := s.entries.Update(r.Context(), owner(r), mux.Vars(r)["id"], in.patch, in.upload)
	if err != nil {
		s.entryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.entries.Delete(r.Context(), owner(r), mux.Vars(r)["id"]); err != nil {
		s.entryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) entryError(w http.ResponseWriter, err error) {
	if errors.Is(err, journal.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.log.WithError(err).Error("entry request")
	writeError(w, http.StatusInternalServerError, "entry request failed")
}

type entryInput struct {
	patch  journal.Patch
	upload *journal.Upload
	file   multipart.File
}

func (in *entryInput) close() {
	if in.file != nil {
		in.file.Close()
	}
}

// readEntry accepts either a JSON body or a multipart form with an optional
// audio file.
func (s *Server) readEntry(w http.ResponseWriter, r *http.Request) (*entryInput, error) {
	in := &entryInput{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Title *string `json:"title"`
			Text  *string `json:"text"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, s.opts.MaxUpload)).Decode(&body); err != nil {
			return nil, errors.New("invalid JSON body")
		}
		in.patch = journal.Patch{Title: body.Title, Text: body.Text}
		return in, nil
	}

	if err := s.parseForm(w, r); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		key string
		dst **string
	}{{"title", &in.patch.Title}, {"text", &in.patch.Text}} {
		if _, ok := r.Form[f.key]; ok {
			v := r.FormValue(f.key)
			*f.dst = &v
		}
	}
	file, hdr, err := r.FormFile("audio")
	switch {
	case err == nil:
		in.file = file
		in.upload = &journal.Upload{Name: hdr.Filename, Body: file}
	case !errors.Is(err, http.ErrMissingFile):
		return nil, errors.New("invalid audio upload")
	}
	return in, nil
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	err := r.ParseMultipartForm(s.opts.MaxUpload)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return errors.New("invalid form body")
	}
	return nil
}

// withTempUpload copies the upload to a uniquely named temp file, runs fn on
// it and removes the file on every exit path.
func (s *Server) withTempUpload(f multipart.File, hdr *multipart.FileHeader, fn func(path string)) error {
	if err := os.MkdirAll(s.tmpDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.tmpDir, uuid.NewString()+strings.ToLower(filepath.Ext(hdr.Filename)))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.WithField("path", path).WithError(err).Warn("could not remove temp upload")
		}
	}()
	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fn(path)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
