package audio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUsesShortestChannel(t *testing.T) {
	t.Parallel()
	left := []float32{1, 2, 3, 4}
	right := []float32{5, 6}
	b := Wrap([][]float32{left, right})
	require.Equal(t, 2, b.Channels())
	require.Equal(t, 2, b.Samples())

	b.Channel(0)[0] = 9
	assert.Equal(t, float32(9), left[0], "wrapped buffers write through")
}

func TestCopy(t *testing.T) {
	t.Parallel()
	src := NewBuffer(3, 2)
	copy(src.Channel(2), []float32{7, 8})
	dst := NewBuffer(2, 4)
	Copy(dst, src)
	assert.Equal(t, []float32{0, 0, 0, 0}, dst.Channel(1))

	dst3 := NewBuffer(3, 2)
	Copy(dst3, src)
	assert.Equal(t, []float32{7, 8}, dst3.Channel(2))
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tone.wav")
	data := [][]float32{
		{0, 0.5, -0.5, 1, -1, 2},
		{0.25, -0.25, 0, 0, 0, 0},
	}
	require.NoError(t, WriteWAV(path, 48000, 16, data))

	clip, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 48000, clip.SampleRate)
	assert.Equal(t, 16, clip.BitDepth)
	require.Equal(t, 2, clip.Channels())
	require.Equal(t, 6, clip.Frames())

	for c := range data {
		for s := range data[c] {
			want := max(-1, min(1, data[c][s]))
			assert.InDelta(t, want, clip.Data[c][s], 1.0/16384, "channel %d sample %d", c, s)
		}
	}

	slice := clip.Slice(2, 4, nil)
	assert.Equal(t, 2, slice.Samples())
	assert.InDelta(t, -0.5, slice.Channel(0)[0], 1.0/16384)
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	t.Parallel()
	_, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)

	require.Error(t, WriteWAV(filepath.Join(t.TempDir(), "x.wav"), 44100, 16, nil))
}

func TestClipExtendAndSlice(t *testing.T) {
	c := &Clip{SampleRate: 8000, BitDepth: 16, Data: [][]float32{{1, 2}, {3, 4}}}
	c.Extend(2)
	c.Extend(-1)
	assert.Equal(t, 4, c.Frames())
	assert.Equal(t, []float32{3, 4, 0, 0}, c.Data[1])

	var buf Buffer
	b := c.Slice(1, 3, &buf)
	require.Same(t, &buf, b)
	assert.Equal(t, 2, b.Samples())
	b.Channel(0)[0] = 9
	assert.Equal(t, float32(9), c.Data[0][1], "slices view the clip")
}
