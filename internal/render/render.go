// Package render runs a module over an audio clip offline, block by block,
// through the same processor and snapshot exchange used for live playback.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/module"
	"github.com/joeycumines/script-garden/internal/runtime"
	"github.com/joeycumines/script-garden/internal/state"
)

// ErrOffline is returned when the module stops processing mid-render.
var ErrOffline = errors.New("module went offline")

// Options tune a render.
type Options struct {
	BlockSize  int
	Clip       bool
	InputNoise bool
	Automation []*Automation
	Logger     *slog.Logger
}

// Stats summarises a finished render.
type Stats struct {
	Blocks     int
	Frames     int
	ModuleName string
	ModuleHash string
	RunMillis  float64
}

// Render processes clip in place with content. Automation is evaluated
// before every block after the first; the processor applies parameter edits
// after running a block, so a value lands one block after it is evaluated.
func Render(ctx context.Context, content module.Content, clip *audio.Clip, opts Options) (Stats, error) {
	if opts.BlockSize <= 0 {
		return Stats{}, fmt.Errorf("block size must be positive, got %d", opts.BlockSize)
	}
	if clip.SampleRate <= 0 {
		return Stats{}, fmt.Errorf("clip has no sample rate")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sampleRate := float64(clip.SampleRate)
	shared := state.NewShared(state.NewInterfaceData(content), state.NewRuntimeData())
	shared.UpdateInterface(func(d *state.InterfaceData) {
		d.SetClip(opts.Clip)
		d.SetInputNoise(opts.InputNoise)
		d.SetTargetState(state.Refresh)
	})
	proc := runtime.NewProcessor(shared, runtime.New(sampleRate, runtime.WithLogger(logger)))

	var stats Stats
	var buf audio.Buffer
	frames := clip.Frames()
	for start := 0; start < frames; start += opts.BlockSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if stats.Blocks > 0 && len(opts.Automation) > 0 {
			if err := automate(shared, opts.Automation, Env{
				T:          float64(start) / sampleRate,
				Block:      stats.Blocks,
				SampleRate: sampleRate,
			}); err != nil {
				return stats, err
			}
		}

		end := min(start+opts.BlockSize, frames)
		if s := proc.Process(clip.Slice(start, end, &buf)); !runtime.ShouldRun(s) {
			return stats, fmt.Errorf("%w at %.3fs", ErrOffline, float64(start)/sampleRate)
		}
		stats.Blocks++
		stats.Frames = end
	}

	snap := shared.Runtime()
	stats.ModuleName = snap.ModuleName
	stats.ModuleHash = snap.ModuleHash
	stats.RunMillis = snap.RunMillis
	return stats, nil
}

// automate evaluates every automation against the latest runtime parameter
// table and queues the results as interface edits.
func automate(shared *state.Shared, automation []*Automation, base Env) error {
	shared.SyncInterface()
	var err error
	shared.UpdateInterface(func(d *state.InterfaceData) {
		for _, a := range automation {
			p, ok := d.Parameters[a.Parameter]
			if !ok {
				err = fmt.Errorf("automation %s: module declares no such parameter (have %v)", a.Parameter, d.Parameters.Names())
				return
			}
			env := newEnv()
			env.T, env.Block, env.SampleRate, env.Value = base.T, base.Block, base.SampleRate, p.Value
			v, evalErr := a.Eval(env)
			if evalErr != nil {
				err = evalErr
				return
			}
			d.SetParameter(a.Parameter, v)
		}
	})
	return err
}
