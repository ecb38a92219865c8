package scripting

import (
	"math"

	"github.com/dop251/goja"
)

// DSPModuleName is the require() name of the native helper module.
const DSPModuleName = "garden:dsp"

// requireDSP loads garden:dsp: host helpers that are faster or more
// deterministic in Go than in script.
func (m *Module) requireDSP(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)

	// noise returns white noise in [-1, 1), seeded from the module hash so a
	// render is reproducible.
	_ = exports.Set("noise", func() float64 {
		return m.rng.Float64()*2 - 1
	})
	_ = exports.Set("random", func() float64 {
		return m.rng.Float64()
	})
	_ = exports.Set("seed", func(call goja.FunctionCall) goja.Value {
		seed := uint64(call.Argument(0).ToInteger())
		m.pcg.Seed(seed, seed^noiseSeedMix)
		return goja.Undefined()
	})
	_ = exports.Set("softClip", func(x float64) float64 {
		return math.Tanh(x)
	})
	_ = exports.Set("hash", m.Hash())
	_ = exports.Set("instance", m.ID())
}
