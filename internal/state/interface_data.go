package state

import (
	"github.com/joeycumines/script-garden/internal/module"
	"github.com/joeycumines/script-garden/internal/storage"
)

// InterfaceData is the snapshot owned by the interactive goroutine. Every
// setter advances Change so the processor picks the edit up on its next
// block.
type InterfaceData struct {
	Source      Source
	TargetState RuntimeState
	Clip        bool
	InputNoise  bool
	Parameters  Parameters

	// Change advances on every mutation.
	Change uint64

	targetChange      uint64
	triggerRequests   uint64
	lastRuntimeChange uint64
}

// NewInterfaceData returns the initial interface snapshot: the given draft
// selected, offline, clipping on.
func NewInterfaceData(draft module.Content) InterfaceData {
	return InterfaceData{
		Source:      Source{Mode: SourceDraft, Draft: draft},
		TargetState: Offline,
		Clip:        true,
		Parameters:  Parameters{},
	}
}

// MarkChanged advances the change counter.
func (d *InterfaceData) MarkChanged() {
	d.Change++
}

// SetTargetState asks the runtime to reach s.
func (d *InterfaceData) SetTargetState(s RuntimeState) {
	d.TargetState = s
	d.MarkChanged()
	d.targetChange = d.Change
}

// SetClip toggles output clipping.
func (d *InterfaceData) SetClip(clip bool) {
	d.Clip = clip
	d.MarkChanged()
}

// SetInputNoise toggles the noise request flag seen by scripts.
func (d *InterfaceData) SetInputNoise(noise bool) {
	d.InputNoise = noise
	d.MarkChanged()
}

// SelectDraft makes content the selected source.
func (d *InterfaceData) SelectDraft(content module.Content) {
	d.Source = Source{Mode: SourceDraft, Draft: content, Workspace: d.Source.Workspace}
	d.MarkChanged()
}

// SelectWorkspace makes w the selected source.
func (d *InterfaceData) SelectWorkspace(w storage.Workspace) {
	d.Source = Source{Mode: SourceWorkspace, Draft: d.Source.Draft, Workspace: w}
	d.MarkChanged()
}

// SetParameter records a pending edit. Unknown names are ignored. It reports
// whether the value moved.
func (d *InterfaceData) SetParameter(name string, value float64) bool {
	p, ok := d.Parameters[name]
	if !ok || !p.Set(value) {
		return false
	}
	d.Parameters[name] = p
	d.MarkChanged()
	return true
}

// NudgeParameter moves a parameter by whole steps.
func (d *InterfaceData) NudgeParameter(name string, steps float64) bool {
	p, ok := d.Parameters[name]
	if !ok || !p.Nudge(steps) {
		return false
	}
	d.Parameters[name] = p
	d.MarkChanged()
	return true
}

// RequestTrigger asks the runtime to execute the trigger script once.
func (d *InterfaceData) RequestTrigger() {
	d.triggerRequests++
	d.MarkChanged()
}

// SyncFromRuntime adopts the runtime's state and parameter table if the
// runtime counter moved. Until the runtime has absorbed the interface change
// that carried them, pending parameter edits and a pending target survive
// the copy. It reports whether anything was copied.
func (d *InterfaceData) SyncFromRuntime(r *RuntimeData) bool {
	if r.Change == d.lastRuntimeChange {
		return false
	}

	seen := r.lastInterfaceChange
	if seen >= d.targetChange {
		d.TargetState = r.State
	}

	params := r.Parameters.Clone()
	if seen < d.Change {
		for name, p := range d.Parameters {
			if _, declared := params[name]; declared && p.Changed {
				params[name] = p
			}
		}
	}
	d.Parameters = params

	d.lastRuntimeChange = r.Change
	return true
}

// Clone returns a copy sharing nothing with d.
func (d *InterfaceData) Clone() InterfaceData {
	out := *d
	out.Parameters = d.Parameters.Clone()
	return out
}
