package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Stage is one decoder attempt in the fallback chain.
type Stage interface {
	Name() string
	Decode(ctx context.Context, path string) (*Clip, error)
}

// Attempt records a failed stage.
type Attempt struct {
	Stage string
	Err   error
}

// DecodeError is returned once every stage has failed. It unwraps to each
// stage error, so errors.Is sees all of them.
type DecodeError struct {
	Path     string
	Attempts []Attempt
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Stage+": "+a.Err.Error())
	}
	return fmt.Sprintf("decode %s: %s", e.Path, strings.Join(parts, "; "))
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Last is the error of the final stage tried.
func (e *DecodeError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

var byExt = map[string]decodeFunc{
	".wav":  decodeWAV,
	".wave": decodeWAV,
	".aif":  decodeAIFF,
	".aiff": decodeAIFF,
	".flac": decodeFLAC,
	".mp3":  decodeMP3,
}

// Direct picks a native decoder from the file extension.
type Direct struct{}

func (Direct) Name() string { return "direct" }

func (Direct) Decode(_ context.Context, path string) (*Clip, error) {
	dec, ok := byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("extension %q: %w", filepath.Ext(path), ErrUnsupported)
	}
	return decodeFile(path, dec)
}

// FFmpeg shells out to ffmpeg, forcing mono at the target rate. It covers
// containers the native decoders reject (browser-recorded webm/opus, m4a).
type FFmpeg struct {
	Bin        string
	SampleRate int
}

func (f FFmpeg) Name() string { return "ffmpeg" }

func (f FFmpeg) Decode(ctx context.Context, path string) (*Clip, error) {
	bin := f.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	// raw s16le rather than wav: a piped wav header carries no usable sizes
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(f.SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg: empty output")
	}
	clip := fromS16LE(stdout.Bytes(), 1)
	clip.SampleRate = f.SampleRate
	return clip, nil
}

// Sniff identifies the container from its leading bytes, ignoring the file
// name, and decodes with the matching native decoder.
type Sniff struct{}

func (Sniff) Name() string { return "sniff" }

func (Sniff) Decode(_ context.Context, path string) (*Clip, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("sniff: %w", err)
	}
	var dec decodeFunc
	switch {
	case m.Is("audio/wav"):
		dec = decodeWAV
	case m.Is("audio/aiff"):
		dec = decodeAIFF
	case m.Is("audio/flac"):
		dec = decodeFLAC
	case m.Is("audio/mpeg"):
		dec = decodeMP3
	default:
		return nil, fmt.Errorf("content type %s: %w", m.String(), ErrUnsupported)
	}
	return decodeFile(path, dec)
}

func decodeFile(path string, dec decodeFunc) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	clip, err := dec(f)
	if err != nil {
		return nil, err
	}
	if clip.Frames() == 0 {
		return nil, fmt.Errorf("no samples in %s", filepath.Base(path))
	}
	return clip, nil
}
