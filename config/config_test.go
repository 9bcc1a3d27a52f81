package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 6.0, cfg.Audio.MaxSeconds)
	assert.Equal(t, 128, cfg.Models.TextMaxLen)
	assert.Equal(t, "ffmpeg", cfg.Audio.FFmpeg)
	assert.True(t, cfg.Models.Text)
	assert.True(t, cfg.Models.Speech)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
pipeline:
  log_level: debug
models:
  dir: /srv/models
  speech: false
server:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("JOURNAL_STORE_PATH", "/var/lib/journal.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Pipeline.LogLvl)
	assert.Equal(t, "/srv/models", cfg.Models.Dir)
	assert.False(t, cfg.Models.Speech)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Audio.FFmpeg)
	assert.Equal(t, "/var/lib/journal.db", cfg.Store.Path)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  sample_rate: 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "audio.sample_rate")
}

func TestYAML_RoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	b, err := cfg.YAML()
	require.NoError(t, err)

	var back Root
	require.NoError(t, yaml.Unmarshal(b, &back))
	assert.Equal(t, cfg.Audio, back.Audio)
	assert.Equal(t, cfg.Server.Addr, back.Server.Addr)
}
