package runtime

import (
	"github.com/joeycumines/script-garden/internal/state"
)

// Action is the work a block must do to honour a requested state.
type Action int

const (
	ActionNone Action = iota
	// ActionLoad replaces the module with the selected content and runs
	// init and reset.
	ActionLoad
	// ActionUnload drops the module.
	ActionUnload
)

func (a Action) String() string {
	switch a {
	case ActionLoad:
		return "load"
	case ActionUnload:
		return "unload"
	}
	return "none"
}

// Begin maps the state found at the start of a block to the state the block
// aims for and the action that gets it there. Refresh and Clear are requests
// and never survive a block.
func Begin(current state.RuntimeState) (state.RuntimeState, Action) {
	switch current {
	case state.Refresh:
		return state.Online, ActionLoad
	case state.Clear:
		return state.Offline, ActionUnload
	case state.Online:
		return state.Online, ActionNone
	}
	return state.Offline, ActionNone
}

// After settles a phase outcome: any failure forces Offline.
func After(s state.RuntimeState, err error) state.RuntimeState {
	if err != nil {
		return state.Offline
	}
	return s
}

// ShouldRun reports whether blocks are handed to the module in state s.
func ShouldRun(s state.RuntimeState) bool {
	return s == state.Online
}
