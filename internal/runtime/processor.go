package runtime

import (
	"errors"
	"math"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/state"
)

var errNoSource = errors.New("no workspace selected")

// Processor is the processing side of the snapshot exchange. It keeps a
// private working copy of the runtime snapshot, drives the Runtime through
// one lifecycle step per block and publishes the copy when it changed.
//
// All methods must be called from the processing goroutine.
type Processor struct {
	shared *state.Shared
	rt     *Runtime
	work   state.RuntimeData

	lastParamError string
}

// NewProcessor binds rt to the shared snapshots.
func NewProcessor(shared *state.Shared, rt *Runtime) *Processor {
	p := &Processor{
		shared: shared,
		rt:     rt,
		work:   shared.Runtime(),
	}
	p.work.Clip = rt.Clip()
	p.work.InputNoise = rt.InputNoise()
	p.updateStatus()
	p.shared.PublishRuntime(&p.work)
	return p
}

// Runtime returns the driven runtime.
func (p *Processor) Runtime() *Runtime { return p.rt }

// Initialize is the host's initialize hook: it adopts a new sample rate.
func (p *Processor) Initialize(sampleRate float64) {
	err := p.rt.Reinitialize(sampleRate)
	if err != nil {
		p.rt.logger.Error("module reinitialize failed", "error", err)
	}
	p.work.SetState(After(p.work.State, err))
	p.updateModuleInfo()
	p.updateStatus()
	p.shared.PublishRuntime(&p.work)
}

// Reset is the host's reset hook: it runs the module's reset phase when
// online.
func (p *Processor) Reset() {
	if !ShouldRun(p.work.State) {
		return
	}
	err := p.rt.Reset()
	if err != nil {
		p.rt.logger.Error("module reset failed", "error", err)
	}
	p.work.SetState(After(p.work.State, err))
	p.shared.PublishRuntime(&p.work)
}

// Process handles one block: absorb interface edits, honour the requested
// state, run the module on block, sync parameters and publish. It returns
// the state the block ended in.
func (p *Processor) Process(block audio.Block) state.RuntimeState {
	p.shared.PullInterface(&p.work)
	p.rt.SetClip(p.work.Clip)
	p.rt.SetInputNoise(p.work.InputNoise)

	next, action := Begin(p.work.State)
	var err error
	switch action {
	case ActionLoad:
		if err = p.load(); err != nil {
			p.work.ClearParameters()
		}
		p.updateModuleInfo()
	case ActionUnload:
		p.rt.Unload()
		p.work.ClearParameters()
		p.updateModuleInfo()
		p.rt.logger.Info("module cleared")
	}
	p.work.SetState(After(next, err))

	if p.work.TriggerPending {
		p.work.TriggerPending = false
		p.work.MarkChanged()
		if ShouldRun(p.work.State) {
			if err := p.rt.Trigger(); err != nil {
				p.rt.logger.Error("module trigger failed", "error", err)
				p.work.SetState(state.Offline)
			}
		}
	}

	if ShouldRun(p.work.State) {
		if err := p.rt.Run(block); err != nil {
			p.rt.logger.Error("module run failed", "error", err)
			p.work.SetState(state.Offline)
		}
	}

	p.syncParameters()
	p.updateStatus()
	p.shared.PublishRuntime(&p.work)
	return p.work.State
}

// load replaces the module with the selected content. Reset runs even when
// init failed; the first failure is the one reported.
func (p *Processor) load() error {
	content, ok := p.work.Source.Content()
	if !ok {
		p.rt.logger.Error("module load failed", "error", errNoSource)
		return errNoSource
	}
	if err := p.rt.Load(content); err != nil {
		p.rt.logger.Error("module load failed", "error", err)
		return err
	}
	initErr := p.rt.Init()
	resetErr := p.rt.Reset()
	switch {
	case initErr != nil:
		p.rt.logger.Error("module init failed", "error", initErr)
		return initErr
	case resetErr != nil:
		p.rt.logger.Error("module reset failed", "error", resetErr)
		return resetErr
	}
	return nil
}

func (p *Processor) syncParameters() {
	if !p.rt.Initialized() {
		return
	}
	declared, err := p.rt.Parameters()
	if err != nil {
		// reported once per distinct failure, not per block
		if msg := err.Error(); msg != p.lastParamError {
			p.lastParamError = msg
			p.rt.logger.Warn("module parameters invalid", "error", err)
		}
	} else {
		p.lastParamError = ""
	}
	p.work.RebuildParameters(declared)

	if !ShouldRun(p.work.State) || !p.work.Parameters.Pending() {
		return
	}
	n, err := p.rt.ApplyParameterUpdates(p.work.Parameters)
	if n > 0 {
		p.work.ParametersModified()
	}
	if err != nil {
		p.rt.logger.Error("module parameter update failed", "error", err)
		p.work.SetState(state.Offline)
	}
}

func (p *Processor) updateModuleInfo() {
	meta := p.rt.Metadata()
	id, hash := p.rt.InstanceID(), p.rt.Hash()
	w := &p.work
	if w.ModuleID == id && w.ModuleHash == hash && w.ModuleName == meta.Name &&
		w.ModuleAuthor == meta.Author && w.ModuleDescription == meta.Description {
		return
	}
	w.ModuleID, w.ModuleHash = id, hash
	w.ModuleName, w.ModuleAuthor, w.ModuleDescription = meta.Name, meta.Author, meta.Description
	w.MarkChanged()
}

func (p *Processor) updateStatus() {
	w := &p.work
	runMillis := math.Round(p.rt.RunMillis()*100) / 100
	if w.SampleRate == p.rt.SampleRate() && w.BufferSize == p.rt.BufferSize() &&
		w.Channels == p.rt.Channels() && w.RunMillis == runMillis {
		return
	}
	w.SampleRate = p.rt.SampleRate()
	w.BufferSize = p.rt.BufferSize()
	w.Channels = p.rt.Channels()
	w.RunMillis = runMillis
	w.MarkChanged()
}
