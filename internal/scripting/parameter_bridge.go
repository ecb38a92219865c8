package scripting

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/joeycumines/script-garden/internal/state"
)

// Parameters reads the PARAMETERS table declared by the script. A missing
// table reads as empty. Malformed entries are left out and reported together
// as one ErrMarshal error next to the entries that did parse.
func (m *Module) Parameters() (state.Parameters, error) {
	out := state.Parameters{}
	if m.closed {
		return out, ErrClosed
	}
	v := m.vm.Get(globalParameters)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return out, nil
	}
	table, ok := v.(*goja.Object)
	if !ok {
		return out, fmt.Errorf("%w: %s is not an object", ErrMarshal, globalParameters)
	}

	var errs []error
	for _, name := range table.Keys() {
		p, err := readParameter(name, table.Get(name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = p
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("%w: %w", ErrMarshal, errors.Join(errs...))
	}
	return out, nil
}

func readParameter(name string, v goja.Value) (state.Parameter, error) {
	entry, ok := v.(*goja.Object)
	if !ok {
		return state.Parameter{}, fmt.Errorf("parameter %q is not an object", name)
	}
	p := state.Parameter{Name: name}
	for _, field := range []struct {
		key      string
		dst      *float64
		optional bool
	}{
		{"value", &p.Value, false},
		{"min", &p.Min, false},
		{"max", &p.Max, false},
		{"stepSize", &p.StepSize, true},
	} {
		fv := entry.Get(field.key)
		if fv == nil || goja.IsUndefined(fv) {
			if field.optional {
				continue
			}
			return state.Parameter{}, fmt.Errorf("parameter %q has no %s", name, field.key)
		}
		if !isNumber(fv) {
			return state.Parameter{}, fmt.Errorf("parameter %q: %s is not a number: %v", name, field.key, fv)
		}
		*field.dst = fv.ToFloat()
	}
	if p.Min > p.Max {
		return state.Parameter{}, fmt.Errorf("parameter %q: min %g exceeds max %g", name, p.Min, p.Max)
	}
	return p, nil
}

// ApplyParameterUpdates queues every edited parameter into
// PARAMETER_VALUE_UPDATES, which the run phase consumes before its first
// frame. Sent entries have their Changed flag cleared in params. It returns
// how many were sent.
func (m *Module) ApplyParameterUpdates(params state.Parameters) (int, error) {
	if !params.Pending() {
		return 0, nil
	}
	if m.closed {
		return 0, ErrClosed
	}
	updates, ok := m.vm.Get(globalUpdates).(*goja.Object)
	if !ok {
		updates = m.vm.NewObject()
		if err := m.vm.Set(globalUpdates, updates); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrMarshal, globalUpdates, err)
		}
	}

	sent := 0
	for name, p := range params {
		if !p.Changed {
			continue
		}
		if err := updates.Set(name, p.Value); err != nil {
			return sent, fmt.Errorf("%w: parameter %q: %w", ErrMarshal, name, err)
		}
		p.Changed = false
		params[name] = p
		sent++
	}
	return sent, nil
}
