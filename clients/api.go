package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// --- Combined (/api/v1/analyze/combined) ---

// AnalyzeCombined uploads optional text and an optional audio file and
// returns the server's JSON response untouched.
func (h *HTTP) AnalyzeCombined(ctx context.Context, text, audioPath string) (json.RawMessage, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if text != "" {
		if err := w.WriteField("text", text); err != nil {
			return nil, err
		}
	}
	if audioPath != "" {
		fw, err := w.CreateFormFile("audio", filepath.Base(audioPath))
		if err != nil {
			return nil, err
		}
		fd, err := os.Open(audioPath)
		if err != nil {
			return nil, err
		}
		defer fd.Close()
		if _, err = io.Copy(fw, fd); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/api/v1/analyze/combined", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.do(req, "analyze")
}

// --- Text (/api/v1/analyze/text) ---
type textReq struct {
	Text string `json:"text"`
}

func (h *HTTP) AnalyzeText(ctx context.Context, text string) (json.RawMessage, error) {
	payload, _ := json.Marshal(textReq{Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/api/v1/analyze/text", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, "analyze text")
}

func (h *HTTP) do(req *http.Request, what string) (json.RawMessage, error) {
	if h.user != "" {
		req.Header.Set("X-User", h.user)
	}
	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read: %w", what, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: %s", what, resp.Status, string(body))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s decode: invalid json", what)
	}
	return json.RawMessage(body), nil
}
