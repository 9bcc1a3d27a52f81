package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/maastricht-university/journal-emotion/audio"
	"github.com/maastricht-university/journal-emotion/inference"
)

type mockModel struct {
	inputs  []inference.TensorInfo
	RunFunc func(feeds []inference.Feed, output string, n int) ([]float32, error)
	calls   [][]inference.Feed
}

func (m *mockModel) Inputs() []inference.TensorInfo { return m.inputs }

func (m *mockModel) Run(feeds []inference.Feed, output string, n int) ([]float32, error) {
	m.calls = append(m.calls, feeds)
	return m.RunFunc(feeds, output, n)
}

type mockNormalizer struct {
	err error
}

func (m mockNormalizer) Normalize(context.Context, string) (*audio.Waveform, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &audio.Waveform{Samples: make([]float32, 96000), SampleRate: 16000}, nil
}

type mockEncoder struct{}

func (mockEncoder) Encode(string) ([]int64, []int64, error) {
	ids, mask := inference.Window([]int{101, 2000, 102}, 128, 0, true)
	return ids, mask, nil
}

var speechLabels = []string{"angry", "calm", "happy", "sad"}

func newSpeech(m *mockModel, n Normalizer) *Speech {
	log, _ := test.NewNullLogger()
	return NewSpeech(&inference.SpeechAssets{Model: m, Labels: speechLabels}, n, log)
}

func TestSpeech_SoftmaxAndTopLabel(t *testing.T) {
	m := &mockModel{
		inputs: []inference.TensorInfo{{Name: "input_values", Dims: []int64{-1, 1, -1}}},
		RunFunc: func(feeds []inference.Feed, output string, n int) ([]float32, error) {
			return []float32{0.1, 0.3, 2.5, -1}, nil
		},
	}
	p, err := newSpeech(m, mockNormalizer{}).Predict(context.Background(), "x.wav")
	require.NoError(t, err)

	assert.Equal(t, "happy", p.TopLabel)
	vals := make([]float64, 0, len(p.Scores))
	for _, v := range p.Scores {
		vals = append(vals, v)
	}
	assert.InDelta(t, 1.0, floats.Sum(vals), 1e-9)

	require.Len(t, m.calls, 1)
	assert.Equal(t, []int64{1, 1, 96000}, m.calls[0][0].Shape)
}

func TestSpeech_SqueezesRankTwoAndRetriesCanonicalName(t *testing.T) {
	m := &mockModel{
		inputs: []inference.TensorInfo{{Name: "audio", Dims: []int64{-1, -1}}},
		RunFunc: func(feeds []inference.Feed, output string, n int) ([]float32, error) {
			if feeds[0].Name != CanonicalInput {
				return nil, errors.New("invalid input name audio")
			}
			return []float32{3, 0, 0, 0}, nil
		},
	}
	p, err := newSpeech(m, mockNormalizer{}).Predict(context.Background(), "x.wav")
	require.NoError(t, err)
	assert.Equal(t, "angry", p.TopLabel)

	require.Len(t, m.calls, 2)
	assert.Equal(t, "audio", m.calls[0][0].Name)
	assert.Equal(t, CanonicalInput, m.calls[1][0].Name)
	assert.Equal(t, []int64{1, 96000}, m.calls[1][0].Shape)
}

func TestSpeech_NoRetryForCanonicalName(t *testing.T) {
	m := &mockModel{
		RunFunc: func([]inference.Feed, string, int) ([]float32, error) {
			return nil, errors.New("session fault")
		},
	}
	_, err := newSpeech(m, mockNormalizer{}).Predict(context.Background(), "x.wav")
	assert.ErrorContains(t, err, "session fault")
	assert.Len(t, m.calls, 1)
}

func TestSpeech_DecodeErrorPropagates(t *testing.T) {
	boom := errors.New("cannot decode")
	m := &mockModel{}
	_, err := newSpeech(m, mockNormalizer{err: boom}).Predict(context.Background(), "x.webm")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, m.calls)
}

var textLabels = []string{"anger", "fear", "joy", "sadness", "surprise", "neutral"}

func textModel(logits []float32) *mockModel {
	return &mockModel{
		RunFunc: func(feeds []inference.Feed, output string, n int) ([]float32, error) {
			return logits, nil
		},
	}
}

func TestText_DefaultCutoffMatchesHalfThresholds(t *testing.T) {
	logits := []float32{-3, -1, 2.2, -2.9, 0, 0.4}
	plain := NewText(&inference.TextAssets{Model: textModel(logits), Labels: textLabels}, mockEncoder{})
	half := NewText(&inference.TextAssets{
		Model:      textModel(logits),
		Labels:     textLabels,
		Thresholds: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
	}, mockEncoder{})

	a, err := plain.Predict(context.Background(), "I am so happy today")
	require.NoError(t, err)
	b, err := half.Predict(context.Background(), "I am so happy today")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"joy", "surprise", "neutral"}, a.ActiveLabels)
}

func TestText_Thresholds(t *testing.T) {
	logits := []float32{-3, -1, 2.2, -2.9, 0, 0.4}
	tx := NewText(&inference.TextAssets{
		Model:      textModel(logits),
		Labels:     textLabels,
		Thresholds: []float64{0.01, 0.9, 0.95, 0.9, 0.9, 0.9},
	}, mockEncoder{})
	p, err := tx.Predict(context.Background(), "meh")
	require.NoError(t, err)
	assert.Equal(t, []string{"anger"}, p.ActiveLabels)

	// wrong length: back to 0.5
	tx = NewText(&inference.TextAssets{Model: textModel(logits), Labels: textLabels, Thresholds: []float64{0.01}}, mockEncoder{})
	p, err = tx.Predict(context.Background(), "meh")
	require.NoError(t, err)
	assert.Equal(t, []string{"joy", "surprise", "neutral"}, p.ActiveLabels)
}

func TestText_FeedsFixedLengthTensors(t *testing.T) {
	m := textModel(make([]float32, len(textLabels)))
	_, err := NewText(&inference.TextAssets{Model: m, Labels: textLabels}, mockEncoder{}).Predict(context.Background(), "x")
	require.NoError(t, err)

	require.Len(t, m.calls, 1)
	feeds := m.calls[0]
	require.Len(t, feeds, 2)
	assert.Equal(t, "input_ids", feeds[0].Name)
	assert.Equal(t, "attention_mask", feeds[1].Name)
	assert.Equal(t, []int64{1, 128}, feeds[0].Shape)
	assert.Len(t, feeds[0].Int, 128)
}

func TestText_Idempotent(t *testing.T) {
	tx := NewText(&inference.TextAssets{Model: textModel([]float32{0.3, -0.2, 1.7, -1, 0.1, 0}), Labels: textLabels}, mockEncoder{})
	a, err := tx.Predict(context.Background(), "same")
	require.NoError(t, err)
	b, err := tx.Predict(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHTTP_AnalyzeCombined(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "memo.webm")
	require.NoError(t, os.WriteFile(audioPath, []byte("opus-bytes"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analyze/combined", r.URL.Path)
		assert.Equal(t, "alice", r.Header.Get("X-User"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "hello", r.FormValue("text"))
		f, hdr, err := r.FormFile("audio")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "memo.webm", hdr.Filename)
		assert.Equal(t, "opus-bytes", string(body))
		_, _ = w.Write([]byte(`{"combined_hint":"ok"}`))
	}))
	defer srv.Close()

	out, err := NewHTTP(srv.URL, "alice").AnalyzeCombined(context.Background(), "hello", audioPath)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "ok", got["combined_hint"])
}

func TestHTTP_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, "").AnalyzeText(context.Background(), "")
	assert.ErrorContains(t, err, "400")
}
