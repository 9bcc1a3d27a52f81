package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

var ErrUnsupported = errors.New("unsupported audio container")

// Clip is decoded PCM, interleaved by channel and scaled to [-1, 1].
type Clip struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames is the number of samples per channel.
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

type decodeFunc func(r io.ReadSeeker) (*Clip, error)

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("wav: %w", ErrUnsupported)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav pcm: %w", err)
	}
	return fromIntBuffer(buf, int(d.BitDepth))
}

func decodeAIFF(r io.ReadSeeker) (*Clip, error) {
	d := aiff.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("aiff: %w", ErrUnsupported)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("aiff pcm: %w", err)
	}
	return fromIntBuffer(buf, int(d.BitDepth))
}

func decodeFLAC(r io.ReadSeeker) (*Clip, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}
	defer stream.Close()

	ch := int(stream.Info.NChannels)
	scale := fullScale(int(stream.Info.BitsPerSample))
	clip := &Clip{Channels: ch, SampleRate: int(stream.Info.SampleRate)}
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac frame: %w", err)
		}
		n := len(f.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for c := 0; c < ch; c++ {
				clip.Samples = append(clip.Samples, float32(f.Subframes[c].Samples[i])/scale)
			}
		}
	}
	return clip, nil
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(r io.ReadSeeker) (*Clip, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("mp3 read: %w", err)
	}
	clip := fromS16LE(raw, 2)
	clip.SampleRate = d.SampleRate()
	return clip, nil
}

func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) (*Clip, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("pcm buffer: %w", ErrUnsupported)
	}
	if buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("pcm format %d ch @ %d Hz: %w", buf.Format.NumChannels, buf.Format.SampleRate, ErrUnsupported)
	}
	out := make([]float32, len(buf.Data))
	if bitDepth == 8 {
		// 8-bit PCM is unsigned
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
	} else {
		scale := fullScale(bitDepth)
		for i, v := range buf.Data {
			out[i] = float32(v) / scale
		}
	}
	return &Clip{Samples: out, Channels: buf.Format.NumChannels, SampleRate: buf.Format.SampleRate}, nil
}

// fromS16LE converts interleaved signed 16-bit little-endian PCM.
func fromS16LE(raw []byte, channels int) *Clip {
	out := make([]float32, len(raw)/2)
	for i := range out {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		out[i] = float32(v) / 32768
	}
	return &Clip{Samples: out, Channels: channels}
}

func fullScale(bitDepth int) float32 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float32(int64(1) << (bitDepth - 1))
}
