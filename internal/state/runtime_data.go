package state

// RuntimeData is the snapshot owned by the processing goroutine. The
// processor keeps a private working copy, mutates it freely and publishes it
// through Shared.
type RuntimeData struct {
	State RuntimeState

	SampleRate float64
	BufferSize int
	Channels   int
	RunMillis  float64
	InputNoise bool
	Clip       bool

	ModuleID          string
	ModuleHash        string
	ModuleName        string
	ModuleAuthor      string
	ModuleDescription string

	Parameters Parameters

	// Source is the content source as last seen from the interface.
	Source Source
	// TriggerPending is set when the interface requested a trigger that has
	// not been executed yet.
	TriggerPending bool

	// Change advances on every mutation.
	Change uint64

	lastInterfaceChange uint64
	lastTriggerRequest  uint64
	parametersRevision  uint64
}

// NewRuntimeData returns the initial snapshot: offline with clipping on.
func NewRuntimeData() RuntimeData {
	return RuntimeData{
		State:      Offline,
		Clip:       true,
		Parameters: Parameters{},
	}
}

// MarkChanged advances the change counter.
func (r *RuntimeData) MarkChanged() {
	r.Change++
}

// SetState records a new lifecycle state.
func (r *RuntimeData) SetState(s RuntimeState) {
	if r.State == s {
		return
	}
	r.State = s
	r.MarkChanged()
}

// LastInterfaceChange is the interface change counter this snapshot last
// absorbed.
func (r *RuntimeData) LastInterfaceChange() uint64 {
	return r.lastInterfaceChange
}

// SyncFromInterface absorbs the interface snapshot if its counter moved since
// the last call. The target state is only taken when the interface set it
// after the last absorbed change, so an old target cannot undo a transition
// the runtime made on its own. Pending parameter edits are merged in. It
// reports whether anything was copied.
func (r *RuntimeData) SyncFromInterface(ui *InterfaceData) bool {
	if ui.Change == r.lastInterfaceChange {
		return false
	}

	if ui.targetChange > r.lastInterfaceChange {
		r.State = ui.TargetState
	}
	r.Clip = ui.Clip
	r.InputNoise = ui.InputNoise
	r.Source = ui.Source

	if r.Parameters == nil {
		r.Parameters = Parameters{}
	}
	merged := false
	for name, p := range ui.Parameters {
		if !p.Changed {
			continue
		}
		if cur, ok := r.Parameters[name]; ok && cur == p {
			continue
		}
		r.Parameters[name] = p
		merged = true
	}
	if merged {
		r.parametersRevision++
	}

	if ui.triggerRequests != r.lastTriggerRequest {
		r.lastTriggerRequest = ui.triggerRequests
		r.TriggerPending = true
	}

	r.lastInterfaceChange = ui.Change
	r.MarkChanged()
	return true
}

// RebuildParameters replaces the table with the parameters the script
// declares. An entry with a pending edit keeps the edited value over the
// declared one. It reports whether the table changed.
func (r *RuntimeData) RebuildParameters(declared Parameters) bool {
	next := make(Parameters, len(declared))
	for name, p := range declared {
		p.Name = name
		p.Changed = false
		if pending, ok := r.Parameters[name]; ok && pending.Changed {
			p.Value = p.Constrain(pending.Value)
			p.Changed = true
		}
		next[name] = p
	}
	if next.Equal(r.Parameters) {
		return false
	}
	r.Parameters = next
	r.parametersRevision++
	r.MarkChanged()
	return true
}

// ClearParameters empties the table.
func (r *RuntimeData) ClearParameters() {
	if len(r.Parameters) == 0 {
		return
	}
	r.Parameters = Parameters{}
	r.parametersRevision++
	r.MarkChanged()
}

// ParametersModified must be called after the table was edited in place,
// such as when pending flags were cleared after sending them to the script.
func (r *RuntimeData) ParametersModified() {
	r.parametersRevision++
	r.MarkChanged()
}

// Clone returns a copy sharing nothing with r.
func (r *RuntimeData) Clone() RuntimeData {
	out := *r
	out.Parameters = r.Parameters.Clone()
	return out
}

// publishInto copies r into dst, cloning the parameter table only when it
// changed since dst was last written.
func (r *RuntimeData) publishInto(dst *RuntimeData) {
	params := dst.Parameters
	revision := dst.parametersRevision
	*dst = *r
	if params == nil || revision != r.parametersRevision || len(params) != len(r.Parameters) {
		dst.Parameters = r.Parameters.Clone()
	} else {
		dst.Parameters = params
	}
}
