// Package audio holds the host side of the sample buffer contract: a planar
// multi-channel block and WAV file conversion.
package audio

// Block is one host buffer. Channel returns the live samples of a channel;
// writes through the returned slice modify the block.
type Block interface {
	Channels() int
	Samples() int
	Channel(c int) []float32
}

// Buffer is a planar Block: one slice per channel, all the same length.
type Buffer struct {
	data    [][]float32
	samples int
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(channels, samples int) *Buffer {
	b := &Buffer{data: make([][]float32, channels), samples: samples}
	for c := range b.data {
		b.data[c] = make([]float32, samples)
	}
	return b
}

// Wrap uses host-owned planar slices without copying. The block length is
// the length of the shortest channel.
func Wrap(data [][]float32) *Buffer {
	b := &Buffer{}
	b.Reset(data)
	return b
}

// Reset points the buffer at new host-owned slices.
func (b *Buffer) Reset(data [][]float32) {
	b.data = data
	b.samples = 0
	for c, ch := range data {
		if c == 0 || len(ch) < b.samples {
			b.samples = len(ch)
		}
	}
}

func (b *Buffer) Channels() int { return len(b.data) }

func (b *Buffer) Samples() int { return b.samples }

func (b *Buffer) Channel(c int) []float32 { return b.data[c][:b.samples] }

// Copy copies samples from src into dst, channel by channel, for as many
// channels and samples as both have.
func Copy(dst, src Block) {
	channels := min(dst.Channels(), src.Channels())
	for c := 0; c < channels; c++ {
		copy(dst.Channel(c), src.Channel(c))
	}
}
