package state

import (
	"maps"
	"math"
	"slices"
)

// Parameter is one user-tunable numeric value declared by a script.
// Changed marks a host-side edit the script has not received yet.
type Parameter struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	StepSize float64 `json:"stepSize"`
	Changed  bool    `json:"changed,omitempty"`
}

// Constrain clamps v into [Min, Max] and snaps it to StepSize when one is
// set. NaN maps to Min.
func (p Parameter) Constrain(v float64) float64 {
	if math.IsNaN(v) {
		return p.Min
	}
	if p.StepSize > 0 {
		v = p.Min + math.Round((v-p.Min)/p.StepSize)*p.StepSize
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// Set stores a constrained value and marks the parameter as edited when the
// value moves. It reports whether anything changed.
func (p *Parameter) Set(v float64) bool {
	v = p.Constrain(v)
	if v == p.Value {
		return false
	}
	p.Value = v
	p.Changed = true
	return true
}

// Nudge moves the value by steps increments of StepSize, or by a hundredth
// of the range when no step is declared.
func (p *Parameter) Nudge(steps float64) bool {
	step := p.StepSize
	if step <= 0 {
		step = (p.Max - p.Min) / 100
	}
	return p.Set(p.Value + steps*step)
}

// Normalized returns the value's position in [0, 1] across the range.
func (p Parameter) Normalized() float64 {
	if p.Max <= p.Min {
		return 0
	}
	return (p.Value - p.Min) / (p.Max - p.Min)
}

// Parameters is the name-keyed parameter table. Iterate with Names for a
// stable order.
type Parameters map[string]Parameter

// Names returns the parameter names in sorted order.
func (ps Parameters) Names() []string {
	return slices.Sorted(maps.Keys(ps))
}

// Clone returns an independent copy. A nil table clones to an empty one.
func (ps Parameters) Clone() Parameters {
	out := make(Parameters, len(ps))
	maps.Copy(out, ps)
	return out
}

// Equal reports whether both tables hold the same entries, Changed flags
// included.
func (ps Parameters) Equal(other Parameters) bool {
	return maps.Equal(ps, other)
}

// Pending reports whether any entry carries an unsent edit.
func (ps Parameters) Pending() bool {
	for _, p := range ps {
		if p.Changed {
			return true
		}
	}
	return false
}
