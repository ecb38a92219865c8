// Package runtime drives a scripted module from the processing goroutine:
// it owns at most one module, guards its phase calls, meters processing
// time and applies the lifecycle state machine once per block.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/module"
	"github.com/joeycumines/script-garden/internal/scripting"
	"github.com/joeycumines/script-garden/internal/state"
)

// ErrNotInitialized is returned by phase calls on a module whose init has
// not succeeded.
var ErrNotInitialized = errors.New("module not initialized")

const noModuleMessage = "No module loaded."

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets where runtime and script log lines go.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithMeterWindow sets the processing-time meter's time constant.
func WithMeterWindow(window time.Duration) Option {
	return func(r *Runtime) {
		r.meter = NewMeter(window)
	}
}

// WithMaxLogLines bounds script log lines kept per phase call.
func WithMaxLogLines(n int) Option {
	return func(r *Runtime) {
		r.maxLogLines = n
	}
}

// Runtime holds zero or one module and the host-side settings it runs with.
// The sample rate only changes through Reinitialize.
type Runtime struct {
	module      *scripting.Module
	initialized bool
	meta        scripting.Metadata

	sampleRate float64
	bufferSize int
	channels   int
	clip       bool
	inputNoise bool

	meter       *Meter
	logger      *slog.Logger
	maxLogLines int
}

// New returns an empty runtime. Clipping starts enabled.
func New(sampleRate float64, opts ...Option) *Runtime {
	r := &Runtime{
		sampleRate: sampleRate,
		clip:       true,
		meter:      NewMeter(DefaultMeterWindow),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the module with a fresh one for content. The new module is
// not initialized.
func (r *Runtime) Load(content module.Content) error {
	r.Unload()
	m, err := scripting.New(content, r.sampleRate, scripting.WithMaxLogLines(r.maxLogLines))
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	r.module = m
	r.logger.Debug("module loaded", "hash", m.Hash(), "instance", m.ID())
	return nil
}

// Unload drops the module, if any.
func (r *Runtime) Unload() {
	if r.module == nil {
		return
	}
	r.module.Close()
	r.module = nil
	r.initialized = false
	r.meta = scripting.Metadata{}
}

// Loaded reports whether a module is held.
func (r *Runtime) Loaded() bool { return r.module != nil }

// Initialized reports whether the held module's init succeeded.
func (r *Runtime) Initialized() bool { return r.module != nil && r.initialized }

// Metadata returns what the module's init reported.
func (r *Runtime) Metadata() scripting.Metadata { return r.meta }

// Hash returns the identity of the held module, or "" without one.
func (r *Runtime) Hash() string {
	if r.module == nil {
		return ""
	}
	return r.module.Hash()
}

// InstanceID returns the interpreter instance identifier, or "".
func (r *Runtime) InstanceID() string {
	if r.module == nil {
		return ""
	}
	return r.module.ID()
}

// Init runs the module's init phase. Without a module it logs and succeeds.
func (r *Runtime) Init() error {
	if r.module == nil {
		r.logger.Info(noModuleMessage)
		return nil
	}
	r.initialized = false
	meta, err := r.module.Init()
	r.forward(r.module.DrainLogs())
	if err != nil {
		return err
	}
	r.meta = meta
	r.initialized = true
	r.logger.Info("module initialized", "name", meta.Name, "author", meta.Author, "hash", r.module.Hash())
	return nil
}

// Reinitialize adopts a new sample rate. A held module is recreated from
// the same content so scripts see the new rate, then initialized again.
func (r *Runtime) Reinitialize(sampleRate float64) error {
	r.sampleRate = sampleRate
	r.meter.Set(0)
	if r.module == nil {
		return nil
	}
	if err := r.Load(r.module.Content()); err != nil {
		return err
	}
	return r.Init()
}

// Reset runs the module's reset phase.
func (r *Runtime) Reset() error {
	return r.phase(module.PhaseReset, (*scripting.Module).Reset)
}

// Trigger runs the module's trigger phase.
func (r *Runtime) Trigger() error {
	return r.phase(module.PhaseTrigger, (*scripting.Module).Trigger)
}

func (r *Runtime) phase(phase module.Phase, fn func(*scripting.Module) error) error {
	if r.module == nil {
		r.logger.Info(noModuleMessage, "phase", phase)
		return nil
	}
	if !r.initialized {
		return fmt.Errorf("%s: %w", phase, ErrNotInitialized)
	}
	err := fn(r.module)
	r.forward(r.module.DrainLogs())
	return err
}

// Run processes block in place with the current clip and noise flags and
// meters how long it took. Without a module the block passes through.
func (r *Runtime) Run(block audio.Block) error {
	r.channels, r.bufferSize = block.Channels(), block.Samples()
	if r.module == nil {
		return nil
	}
	if !r.initialized {
		return fmt.Errorf("%s: %w", module.PhaseRun, ErrNotInitialized)
	}
	start := time.Now()
	logs, err := r.module.Run(block, r.inputNoise, r.clip)
	r.meter.Update(float64(time.Since(start))/float64(time.Millisecond), r.blockDuration())
	r.forward(logs)
	return err
}

// Parameters reads the parameters declared by the module.
func (r *Runtime) Parameters() (state.Parameters, error) {
	if !r.Initialized() {
		return state.Parameters{}, nil
	}
	return r.module.Parameters()
}

// ApplyParameterUpdates sends edited parameters to the module and clears
// their Changed flags.
func (r *Runtime) ApplyParameterUpdates(params state.Parameters) (int, error) {
	if !r.Initialized() {
		return 0, nil
	}
	return r.module.ApplyParameterUpdates(params)
}

func (r *Runtime) SetClip(clip bool)             { r.clip = clip }
func (r *Runtime) Clip() bool                    { return r.clip }
func (r *Runtime) SetInputNoise(inputNoise bool) { r.inputNoise = inputNoise }
func (r *Runtime) InputNoise() bool              { return r.inputNoise }
func (r *Runtime) SampleRate() float64           { return r.sampleRate }
func (r *Runtime) BufferSize() int               { return r.bufferSize }
func (r *Runtime) Channels() int                 { return r.channels }

// RunMillis is the smoothed time spent in the run phase per block.
func (r *Runtime) RunMillis() float64 { return r.meter.Value() }

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *slog.Logger { return r.logger }

func (r *Runtime) blockDuration() time.Duration {
	if r.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(r.bufferSize) / r.sampleRate * float64(time.Second))
}

func (r *Runtime) forward(lines []scripting.LogLine) {
	if len(lines) == 0 {
		return
	}
	ctx := context.Background()
	for _, l := range lines {
		r.logger.Log(ctx, l.Level, l.Message, "source", "script")
	}
}
