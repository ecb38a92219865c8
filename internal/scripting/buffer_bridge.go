package scripting

import (
	"fmt"
	"math"
	"reflect"

	"github.com/dop251/goja"

	"github.com/joeycumines/script-garden/internal/audio"
)

// maxBridgeErrors caps how many write errors one run records in detail.
const maxBridgeErrors = 8

var (
	floatType = reflect.TypeOf(float64(0))
	intType   = reflect.TypeOf(int64(0))
)

// bufferBridge exposes the current block to scripts as BUFFER_RAW, an array
// of channel regions indexed from 1, each holding the block's samples also
// indexed from 1. Regions are created as the channel count grows and kept
// afterwards; their storage grows with the block size and is reused.
type bufferBridge struct {
	vm       *goja.Runtime
	root     *goja.Object
	regions  []*region
	objects  []*goja.Object
	channels int
	frames   int
	errs     []error
	errCount int
}

func newBufferBridge(vm *goja.Runtime) *bufferBridge {
	b := &bufferBridge{vm: vm}
	b.root = vm.NewDynamicArray(channelList{b})
	return b
}

// load sizes the regions for block and copies its samples in.
func (b *bufferBridge) load(block audio.Block) {
	channels, frames := block.Channels(), block.Samples()
	for len(b.regions) < channels {
		r := &region{bridge: b, channel: len(b.regions) + 1}
		b.regions = append(b.regions, r)
		b.objects = append(b.objects, b.vm.NewDynamicArray(r))
	}
	b.channels, b.frames = channels, frames
	b.errs, b.errCount = b.errs[:0], 0

	for c := 0; c < channels; c++ {
		r := b.regions[c]
		if cap(r.data) < frames {
			r.data = make([]float64, frames)
		}
		r.data = r.data[:frames]
		src := block.Channel(c)
		for i := range r.data {
			r.data[i] = float64(src[i])
		}
	}
}

// store copies the regions back into block. With clip set every sample is
// clamped to [-1, 1] and NaN becomes silence.
func (b *bufferBridge) store(block audio.Block, clip bool) {
	for c := 0; c < b.channels; c++ {
		dst := block.Channel(c)
		for i, v := range b.regions[c].data {
			if clip {
				v = clipSample(v)
			}
			dst[i] = float32(v)
		}
	}
}

// takeError returns the write errors recorded since load, if any.
func (b *bufferBridge) takeError() error {
	if b.errCount == 0 {
		return nil
	}
	err := fmt.Errorf("%w: %d invalid buffer writes, first: %w", ErrMarshal, b.errCount, b.errs[0])
	b.errs, b.errCount = b.errs[:0], 0
	return err
}

func (b *bufferBridge) record(err error) {
	b.errCount++
	if len(b.errs) < maxBridgeErrors {
		b.errs = append(b.errs, err)
	}
}

func clipSample(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// isNumber reports whether v holds a JS number.
func isNumber(v goja.Value) bool {
	if v == nil {
		return false
	}
	t := v.ExportType()
	return t == floatType || t == intType
}

// channelList is BUFFER_RAW itself. It is read-only.
type channelList struct {
	b *bufferBridge
}

func (l channelList) Len() int {
	return l.b.channels + 1
}

func (l channelList) Get(idx int) goja.Value {
	if idx < 1 || idx > l.b.channels {
		return goja.Undefined()
	}
	return l.b.objects[idx-1]
}

func (l channelList) Set(idx int, _ goja.Value) bool {
	l.b.record(fmt.Errorf("BUFFER_RAW[%d] cannot be replaced", idx))
	return false
}

func (l channelList) SetLen(int) bool {
	return false
}

// region is one channel of BUFFER_RAW.
type region struct {
	bridge  *bufferBridge
	channel int
	data    []float64
}

func (r *region) Len() int {
	return len(r.data) + 1
}

func (r *region) Get(idx int) goja.Value {
	if idx < 1 || idx > len(r.data) {
		return goja.Undefined()
	}
	return r.bridge.vm.ToValue(r.data[idx-1])
}

func (r *region) Set(idx int, val goja.Value) bool {
	if idx < 1 || idx > len(r.data) {
		r.bridge.record(fmt.Errorf("BUFFER_RAW[%d][%d] is outside 1..%d", r.channel, idx, len(r.data)))
		return false
	}
	if !isNumber(val) {
		r.bridge.record(fmt.Errorf("BUFFER_RAW[%d][%d] assigned a non-number: %v", r.channel, idx, val))
		return false
	}
	r.data[idx-1] = val.ToFloat()
	return true
}

func (r *region) SetLen(int) bool {
	return false
}
