// Package scripting hosts module scripts in an embedded JavaScript
// interpreter. A Module owns one interpreter, bridges sample blocks and
// parameter tables across it, and executes the four composed phases.
//
// A Module is confined to one goroutine.
package scripting

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/google/uuid"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/module"
)

var (
	// ErrScript wraps compile and runtime failures inside a phase.
	ErrScript = errors.New("script error")
	// ErrMarshal wraps values of the wrong shape crossing the interpreter
	// boundary.
	ErrMarshal = errors.New("marshalling error")
	// ErrClosed is returned by phase calls after Close.
	ErrClosed = errors.New("module closed")
)

const noiseSeedMix = 0x9e3779b97f4a7c15

// UnknownMetadata stands in for metadata a script did not set.
const UnknownMetadata = "???"

// Script globals shared with the packaged library.
const (
	globalBuffer     = "BUFFER_RAW"
	globalSampleRate = "SAMPLE_RATE"
	globalChannels   = "CHANNELS"
	globalBufferSize = "BUFFER_SIZE"
	globalInputNoise = "INPUT_NOISE"
	globalHash       = "MODULE_HASH"
	globalName       = "MODULE_NAME"
	globalAuthors    = "MODULE_AUTHORS"
	globalAbout      = "MODULE_ABOUT"
	globalParameters = "PARAMETERS"
	globalUpdates    = "PARAMETER_VALUE_UPDATES"
)

// Metadata describes a module as reported by its init script.
type Metadata struct {
	Name        string
	Author      string
	Description string
}

type options struct {
	maxLogLines int
}

// Option configures New.
type Option func(*options)

// WithMaxLogLines bounds the log lines kept between drains.
func WithMaxLogLines(n int) Option {
	return func(o *options) {
		o.maxLogLines = n
	}
}

// Module is one loaded set of module scripts running in its own
// interpreter.
type Module struct {
	vm         *goja.Runtime
	content    module.Content
	hash       string
	id         uuid.UUID
	sampleRate float64

	buffer   *bufferBridge
	logs     *logPrinter
	programs [len(module.Phases)]*goja.Program
	pcg      *rand.PCG
	rng      *rand.Rand

	channels   int
	frames     int
	inputNoise bool
	closed     bool
}

// New prepares an interpreter for content. No script runs until Init.
func New(content module.Content, sampleRate float64, opts ...Option) (*Module, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	vm := goja.New()
	sum := content.Hash()
	m := &Module{
		vm:         vm,
		content:    content,
		hash:       strconv.FormatUint(sum, 16),
		id:         uuid.New(),
		sampleRate: sampleRate,
		buffer:     newBufferBridge(vm),
		logs:       newLogPrinter(o.maxLogLines),
		pcg:        rand.NewPCG(sum, sum^noiseSeedMix),
	}
	m.rng = rand.New(m.pcg)

	registry := require.NewRegistry(require.WithLoader(func(path string) ([]byte, error) {
		return nil, require.ModuleFileDoesNotExistError
	}))
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(m.logs))
	registry.RegisterNativeModule(DSPModuleName, m.requireDSP)
	registry.Enable(vm)
	console.Enable(vm)

	for name, value := range map[string]any{
		globalBuffer:     m.buffer.root,
		globalSampleRate: sampleRate,
		globalHash:       m.hash,
		globalChannels:   0,
		globalBufferSize: 0,
		globalInputNoise: false,
	} {
		if err := vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	return m, nil
}

// Content returns the scripts this module was created from.
func (m *Module) Content() module.Content { return m.content }

// Hash returns the module identity, the hex content hash.
func (m *Module) Hash() string { return m.hash }

// ID returns the identifier of this interpreter instance.
func (m *Module) ID() string { return m.id.String() }

// SampleRate returns the rate the module was created for.
func (m *Module) SampleRate() float64 { return m.sampleRate }

// Init executes the init phase and reads the module metadata. Each missing
// metadata global reads as UnknownMetadata. After a failure the module is
// only fit to be discarded.
func (m *Module) Init() (Metadata, error) {
	if err := m.exec(module.PhaseInit); err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Name:        m.metadata(globalName),
		Author:      m.metadata(globalAuthors),
		Description: m.metadata(globalAbout),
	}, nil
}

// Reset executes the reset phase.
func (m *Module) Reset() error {
	return m.exec(module.PhaseReset)
}

// Trigger executes the trigger phase.
func (m *Module) Trigger() error {
	return m.exec(module.PhaseTrigger)
}

// Run processes one block in place. The block is only written back when the
// script and every buffer write succeeded. Log lines emitted during the call
// are returned even when it fails.
func (m *Module) Run(block audio.Block, inputNoise, clip bool) ([]LogLine, error) {
	if err := m.setBlockGlobals(block.Channels(), block.Samples(), inputNoise); err != nil {
		return m.DrainLogs(), err
	}
	m.buffer.load(block)
	err := m.exec(module.PhaseRun)
	if bridgeErr := m.buffer.takeError(); err == nil {
		err = bridgeErr
	}
	if err != nil {
		return m.DrainLogs(), err
	}
	m.buffer.store(block, clip)
	return m.DrainLogs(), nil
}

// DrainLogs returns and clears the buffered script output.
func (m *Module) DrainLogs() []LogLine {
	return m.logs.drain()
}

// Close releases the interpreter. Later phase calls fail with ErrClosed.
func (m *Module) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.vm.Interrupt(ErrClosed)
	m.programs = [len(module.Phases)]*goja.Program{}
}

func (m *Module) exec(phase module.Phase) (err error) {
	if m.closed {
		return ErrClosed
	}
	prg, err := m.program(phase)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrScript, phase, r)
		}
	}()
	if _, err := m.vm.RunProgram(prg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrScript, phase, err)
	}
	return nil
}

// program compiles the composed phase on first use. Content never changes
// for the life of a module, so compiled programs are kept.
func (m *Module) program(phase module.Phase) (*goja.Program, error) {
	if prg := m.programs[phase]; prg != nil {
		return prg, nil
	}
	prg, err := goja.Compile(phase.String()+".js", module.Compose(phase, m.content), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScript, phase, err)
	}
	m.programs[phase] = prg
	return prg, nil
}

func (m *Module) setBlockGlobals(channels, frames int, inputNoise bool) error {
	if channels != m.channels {
		if err := m.vm.Set(globalChannels, channels); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMarshal, globalChannels, err)
		}
		m.channels = channels
	}
	if frames != m.frames {
		if err := m.vm.Set(globalBufferSize, frames); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMarshal, globalBufferSize, err)
		}
		m.frames = frames
	}
	if inputNoise != m.inputNoise {
		if err := m.vm.Set(globalInputNoise, inputNoise); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMarshal, globalInputNoise, err)
		}
		m.inputNoise = inputNoise
	}
	return nil
}

func (m *Module) metadata(name string) string {
	v := m.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return UnknownMetadata
	}
	return v.String()
}
