package module

import (
	"strings"
)

// Phase names one of the four executable entry points of a module.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseReset
	PhaseTrigger
	PhaseRun
)

// Phases lists every phase in execution order.
var Phases = [...]Phase{PhaseInit, PhaseReset, PhaseTrigger, PhaseRun}

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseReset:
		return "reset"
	case PhaseTrigger:
		return "trigger"
	case PhaseRun:
		return "run"
	}
	return "unknown"
}

// Compose builds the program text executed for a phase. Init receives the
// internal library followed by its header, the user text and its footer;
// the other phases receive only header, user text and footer. Compose is a
// pure function of its arguments.
func Compose(phase Phase, c Content) string {
	var user string
	switch phase {
	case PhaseInit:
		user = c.Init
	case PhaseReset:
		user = c.Reset
	case PhaseTrigger:
		user = c.Trigger
	case PhaseRun:
		user = c.Run
	default:
		return ""
	}

	var b strings.Builder
	if phase == PhaseInit {
		b.WriteString(InternalIncludes())
		b.WriteByte('\n')
	}
	b.WriteString(header(phase))
	b.WriteString("\n\n")
	b.WriteString(user)
	b.WriteString("\n\n")
	b.WriteString(footer(phase))
	return b.String()
}

// InternalIncludes returns the library sources, in load order, each wrapped
// in banner comments naming the file.
func InternalIncludes() string {
	return internalIncludes
}

func wrapInclude(name, source string) string {
	var b strings.Builder
	b.WriteString("\n// ==== //\n// INCLUDE ")
	b.WriteString(name)
	b.WriteString("\n// ↓↓↓↓ //\n")
	b.WriteString(source)
	b.WriteString("\n// ↑↑↑↑ //\n// INCLUDE ")
	b.WriteString(name)
	b.WriteString("\n// ==== //\n")
	return b.String()
}
