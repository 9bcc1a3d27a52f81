package inference

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestSoftmax(t *testing.T) {
	p := Softmax([]float32{1, 2, 3, 0.5})
	assert.InDelta(t, 1.0, floats.Sum(p), 1e-9)
	assert.Equal(t, 2, Argmax(p))

	// large logits must not overflow
	big := Softmax([]float32{1000, 1001, 999})
	assert.InDelta(t, 1.0, floats.Sum(big), 1e-9)
	for _, v := range big {
		assert.False(t, math.IsNaN(v))
	}
	assert.Equal(t, 1, Argmax(big))

	assert.Empty(t, Softmax(nil))
	assert.Equal(t, -1, Argmax(nil))
}

func TestSigmoid(t *testing.T) {
	p := Sigmoid([]float32{0, 100, -100})
	assert.InDelta(t, 0.5, p[0], 1e-12)
	assert.InDelta(t, 1.0, p[1], 1e-12)
	assert.InDelta(t, 0.0, p[2], 1e-12)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels(writeFile(t, "labels.json", `["joy","sadness"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"joy", "sadness"}, labels)

	labels, err = LoadLabels(writeFile(t, "labels.json", `{"labels":["angry","calm","happy"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"angry", "calm", "happy"}, labels)

	_, err = LoadLabels(writeFile(t, "labels.json", `[]`))
	assert.Error(t, err)

	_, err = LoadLabels(writeFile(t, "labels.json", `{`))
	assert.Error(t, err)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadThresholds(t *testing.T) {
	thr, err := LoadThresholds(writeFile(t, "t.json", `{"thresholds":[0.3,0.7]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.7}, thr)

	thr, err = LoadThresholds(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Nil(t, thr)

	thr, err = LoadThresholds(writeFile(t, "t.json", `{"thresholds":"high"}`))
	require.NoError(t, err)
	assert.Nil(t, thr)

	thr, err = LoadThresholds(writeFile(t, "t.json", `{"other":[1]}`))
	require.NoError(t, err)
	assert.Nil(t, thr)
}

func TestWindow(t *testing.T) {
	ids, mask := Window([]int{101, 7, 8, 102}, 6, 0, true)
	assert.Equal(t, []int64{101, 7, 8, 102, 0, 0}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0}, mask)

	ids, mask = Window([]int{101, 1, 2, 3, 4, 5, 102}, 4, 0, true)
	assert.Equal(t, []int64{101, 1, 2, 102}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1}, mask)

	ids, _ = Window([]int{1, 2, 3, 4, 5}, 3, 0, false)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, mask = Window(nil, 3, 1, true)
	assert.Equal(t, []int64{1, 1, 1}, ids)
	assert.Equal(t, []int64{0, 0, 0}, mask)
}

func TestLoad_NothingEnabled(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc, err := Load(Options{}, log)
	require.NoError(t, err)
	assert.Nil(t, svc.Text)
	assert.Nil(t, svc.Speech)
	assert.NoError(t, svc.Close())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("m", "speech_emotions_model", "onnx", "speech_emotion_model.onnx"), SpeechPath("m", SpeechGraph))
	assert.Equal(t, filepath.Join("m", "text_emotions_model", "labels.json"), TextPath("m", LabelsFile))
}
