package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/journal-emotion/orchestrator"
)

type Analyzer interface {
	Analyze(ctx context.Context, req orchestrator.Request) (*orchestrator.Analysis, error)
}

// Upload is an audio attachment as received from the client.
type Upload struct {
	Name string
	Body io.Reader
}

// Patch holds the fields an update may change; nil means unchanged.
type Patch struct {
	Title *string
	Text  *string
}

// Service saves entries and attaches model output to them. Model failures
// are logged and never fail the save.
type Service struct {
	store    *Store
	pipe     Analyzer
	audioDir string
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(store *Store, pipe Analyzer, mediaDir string, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		pipe:     pipe,
		audioDir: filepath.Join(mediaDir, "journal_audio"),
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, owner, title, text string, audio *Upload) (*Entry, error) {
	now := s.now().UTC()
	e := &Entry{
		ID:        uuid.NewString(),
		Owner:     owner,
		Title:     title,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if audio != nil {
		p, err := s.saveAudio(e.ID, audio)
		if err != nil {
			return nil, err
		}
		e.AudioPath = p
	}
	if err := s.store.Create(ctx, e); err != nil {
		s.removeAudio(e.AudioPath)
		return nil, err
	}
	s.runModels(ctx, e)
	return e, nil
}

func (s *Service) Update(ctx context.Context, owner, id string, patch Patch, audio *Upload) (*Entry, error) {
	e, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Text != nil {
		e.Text = *patch.Text
	}
	old, fresh := "", ""
	if audio != nil {
		p, err := s.saveAudio(e.ID+"-"+uuid.NewString()[:8], audio)
		if err != nil {
			return nil, err
		}
		old, fresh, e.AudioPath = e.AudioPath, p, p
	}
	e.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, e); err != nil {
		s.removeAudio(fresh)
		return nil, err
	}
	s.removeAudio(old)
	s.runModels(ctx, e)
	return e, nil
}

func (s *Service) Get(ctx context.Context, owner, id string) (*Entry, error) {
	return s.store.Get(ctx, owner, id)
}

func (s *Service) List(ctx context.Context, owner string) ([]*Entry, error) {
	return s.store.List(ctx, owner)
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	e, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.removeAudio(e.AudioPath)
	return nil
}

// runModels fills the emotion columns. Text output goes to text_emotions,
// speech output to speech_emotions, and combined_emotions follows the
// pipeline's precedence rule. A failed run clears all three.
func (s *Service) runModels(ctx context.Context, e *Entry) {
	log := s.log.WithField("entry", e.ID)
	var txt, speech, combined json.RawMessage
	a, err := s.pipe.Analyze(ctx, orchestrator.Request{Text: e.Text, AudioPath: e.AudioPath})
	if err != nil {
		log.WithError(err).Error("failed to run emotion models")
		if err := s.store.SaveEmotions(ctx, e.ID, nil, nil, nil); err != nil {
			log.WithError(err).Error("failed to clear emotions")
			return
		}
		e.TextEmotions, e.SpeechEmotions, e.CombinedEmotions = nil, nil, nil
		return
	}

	if a.Text != nil {
		txt = encodeJSON(log, a.Text.Raw)
	}
	if a.Speech != nil {
		speech = encodeJSON(log, a.Speech.Raw)
	}
	if a.Combined != nil {
		combined = encodeJSON(log, a.Combined)
	}
	if err := s.store.SaveEmotions(ctx, e.ID, txt, speech, combined); err != nil {
		log.WithError(err).Error("failed to save emotions")
		return
	}
	e.TextEmotions, e.SpeechEmotions, e.CombinedEmotions = txt, speech, combined
}

func (s *Service) saveAudio(name string, u *Upload) (string, error) {
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.audioDir, name+strings.ToLower(filepath.Ext(u.Name)))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, u.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("store audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store audio: %w", err)
	}
	return path, nil
}

func (s *Service) removeAudio(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.WithField("path", path).WithError(err).Warn("could not remove audio")
	}
}

func encodeJSON(log logrus.FieldLogger, v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("encode model output")
		return nil
	}
	return b
}
