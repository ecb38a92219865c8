package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for files that are not PCM WAV.
var ErrInvalidWAV = errors.New("invalid WAV file")

// Clip is a decoded audio file held in memory as planar samples.
type Clip struct {
	SampleRate int
	BitDepth   int
	Data       [][]float32
}

// Frames returns the length of the clip in frames.
func (c *Clip) Frames() int {
	if len(c.Data) == 0 {
		return 0
	}
	return len(c.Data[0])
}

// Channels returns the channel count.
func (c *Clip) Channels() int { return len(c.Data) }

// Extend appends frames of silence to every channel.
func (c *Clip) Extend(frames int) {
	if frames <= 0 {
		return
	}
	for ch := range c.Data {
		c.Data[ch] = append(c.Data[ch], make([]float32, frames)...)
	}
}

// Slice returns a Buffer viewing frames [start, end) of the clip.
func (c *Clip) Slice(start, end int, into *Buffer) *Buffer {
	if into == nil {
		into = &Buffer{}
	}
	if cap(into.data) < len(c.Data) {
		into.data = make([][]float32, len(c.Data))
	}
	into.data = into.data[:len(c.Data)]
	for ch := range c.Data {
		into.data[ch] = c.Data[ch][start:end]
	}
	into.samples = end - start
	return into
}

// ReadWAV decodes a PCM WAV file into float samples in [-1, 1].
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 || buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("%w: %s has no usable format", ErrInvalidWAV, path)
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	factor := math.Pow(2, float64(bitDepth-1))
	clip := &Clip{
		SampleRate: buf.Format.SampleRate,
		BitDepth:   bitDepth,
		Data:       make([][]float32, channels),
	}
	for c := range clip.Data {
		clip.Data[c] = make([]float32, frames)
	}
	for i := 0; i < frames*channels; i++ {
		clip.Data[i%channels][i/channels] = float32(float64(buf.Data[i]) / factor)
	}
	return clip, nil
}

// WriteWAV encodes planar float samples as PCM WAV. Samples are clamped to
// [-1, 1] before quantisation.
func WriteWAV(path string, sampleRate, bitDepth int, data [][]float32) (err error) {
	if len(data) == 0 {
		return fmt.Errorf("%w: no channels to write", ErrInvalidWAV)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	channels := len(data)
	frames := len(data[0])
	for _, ch := range data[1:] {
		frames = min(frames, len(ch))
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	scale := math.Pow(2, float64(bitDepth-1)) - 1
	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, frames*channels),
		SourceBitDepth: bitDepth,
	}
	for s := 0; s < frames; s++ {
		for c := 0; c < channels; c++ {
			v := float64(data[c][s])
			if math.IsNaN(v) {
				v = 0
			}
			v = math.Max(-1, math.Min(1, v))
			intBuf.Data[s*channels+c] = int(math.Round(v * scale))
		}
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise %s: %w", path, err)
	}
	return nil
}
