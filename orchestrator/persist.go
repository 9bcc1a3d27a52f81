package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Recorder writes each analysis to <root>/<timestamp>_<id>/analysis.json.
type Recorder struct {
	Root string
}

type recordBundle struct {
	GeneratedAt time.Time `json:"generated_at"`
	*Analysis
}

func (r *Recorder) Record(a *Analysis) (string, error) {
	ts := time.Now().UTC().Format("20060102-150405")
	dir := filepath.Join(r.Root, ts+"_"+a.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "analysis.json")
	if err := writeJSON(path, recordBundle{GeneratedAt: time.Now().UTC(), Analysis: a}); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
