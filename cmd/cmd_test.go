package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/journal-emotion/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		analyzeText, analyzeAudio, analyzeServer, analyzeUser = "", "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "journal-emotion version dev")
}

func TestConfigPrintsYAML(t *testing.T) {
	t.Setenv("JOURNAL_SERVER_ADDR", ":9999")
	_, err := run(t, "config", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "absent.yaml")

	out, err := run(t, "config", "--config", "")
	require.NoError(t, err)
	var c config.Root
	require.NoError(t, yaml.Unmarshal([]byte(out), &c))
	assert.Equal(t, ":9999", c.Server.Addr)
}

func TestAnalyzeRequiresInput(t *testing.T) {
	_, err := run(t, "analyze", "--config", "")
	assert.ErrorContains(t, err, "nothing to analyze")
}

func TestAnalyzeRemote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analyze/combined", r.URL.Path)
		assert.Equal(t, "alice", r.Header.Get("X-User"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "sunny", r.FormValue("text"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"a1","combined_hint":"x"}`))
	}))
	defer ts.Close()

	out, err := run(t, "analyze", "--config", "", "--text", "sunny", "--server", ts.URL, "--user", "alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","combined_hint":"x"}`, out)
}
