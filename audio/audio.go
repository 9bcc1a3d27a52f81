package audio

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
)

const (
	SampleRate = 16000
	MaxSeconds = 6.0
)

// Waveform is a fixed-length mono signal ready for the speech model.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Shape returns the tensor shape for a model input of the given rank:
// (batch, channel, time) for 3, (batch, time) for 2.
func (w *Waveform) Shape(rank int) []int64 {
	if rank == 2 {
		return []int64{1, int64(len(w.Samples))}
	}
	return []int64{1, 1, int64(len(w.Samples))}
}

type Normalizer struct {
	SampleRate int
	MaxSeconds float64
	Stages     []Stage
	Log        logrus.FieldLogger
}

// NewNormalizer builds the default chain: native decoders, then ffmpeg, then
// content sniffing.
func NewNormalizer(sampleRate int, maxSeconds float64, ffmpegBin string, log logrus.FieldLogger) *Normalizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Normalizer{
		SampleRate: sampleRate,
		MaxSeconds: maxSeconds,
		Stages: []Stage{
			Direct{},
			FFmpeg{Bin: ffmpegBin, SampleRate: sampleRate},
			Sniff{},
		},
		Log: log,
	}
}

// Length is the exact output sample count.
func (n *Normalizer) Length() int {
	return int(float64(n.SampleRate) * n.MaxSeconds)
}

// Normalize decodes path and returns exactly Length() mono samples at
// SampleRate. Longer audio keeps its first Length() samples; shorter audio is
// zero-padded on the right.
func (n *Normalizer) Normalize(ctx context.Context, path string) (*Waveform, error) {
	clip, err := n.decode(ctx, path)
	if err != nil {
		return nil, err
	}
	mono := Mono(clip)
	if clip.SampleRate != n.SampleRate {
		mono = Resample(mono, clip.SampleRate, n.SampleRate)
	}
	return &Waveform{Samples: Fit(mono, n.Length()), SampleRate: n.SampleRate}, nil
}

func (n *Normalizer) decode(ctx context.Context, path string) (*Clip, error) {
	derr := &DecodeError{Path: path}
	for _, s := range n.Stages {
		clip, err := s.Decode(ctx, path)
		if err == nil {
			if len(derr.Attempts) > 0 {
				n.Log.WithFields(logrus.Fields{"path": path, "stage": s.Name()}).Debug("decoded after fallback")
			}
			return clip, nil
		}
		n.Log.WithFields(logrus.Fields{"path": path, "stage": s.Name()}).WithError(err).Warn("audio stage failed")
		derr.Attempts = append(derr.Attempts, Attempt{Stage: s.Name(), Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return nil, derr
}

// Mono averages interleaved channels.
func Mono(c *Clip) []float32 {
	if c.Channels <= 1 {
		return c.Samples
	}
	frames := c.Frames()
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < c.Channels; ch++ {
			sum += c.Samples[i*c.Channels+ch]
		}
		out[i] = sum / float32(c.Channels)
	}
	return out
}

// Resample converts between rates by linear interpolation.
func Resample(x []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(x) == 0 {
		return x
	}
	n := int(math.Round(float64(len(x)) * float64(to) / float64(from)))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	last := len(x) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = x[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = x[j] + (x[j+1]-x[j])*frac
	}
	return out
}

// Fit truncates x to n samples or right-pads it with zeros.
func Fit(x []float32, n int) []float32 {
	out := make([]float32, n)
	copy(out, x)
	return out
}
