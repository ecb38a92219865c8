package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is what an automation expression sees. Evaluation happens once per
// block, before the block is processed.
type Env struct {
	// T is the time of the block's first frame in seconds.
	T float64 `expr:"t"`
	// Block is the zero-based block index.
	Block int `expr:"block"`
	// SampleRate is the render sample rate.
	SampleRate float64 `expr:"sr"`
	// Value is the parameter's current value.
	Value float64 `expr:"value"`
	Pi    float64 `expr:"pi"`

	Sin   func(float64) float64           `expr:"sin"`
	Cos   func(float64) float64           `expr:"cos"`
	Exp   func(float64) float64           `expr:"exp"`
	Clamp func(x, lo, hi float64) float64 `expr:"clamp"`
}

func newEnv() Env {
	return Env{
		Pi:  math.Pi,
		Sin: math.Sin,
		Cos: math.Cos,
		Exp: math.Exp,
		Clamp: func(x, lo, hi float64) float64 {
			return math.Max(lo, math.Min(hi, x))
		},
	}
}

// Automation drives one parameter from a compiled expression.
type Automation struct {
	Parameter  string
	Expression string
	program    *vm.Program
}

// Compile prepares an automation. The expression must evaluate to a
// number.
func Compile(parameter, expression string) (*Automation, error) {
	if parameter == "" {
		return nil, fmt.Errorf("automation needs a parameter name")
	}
	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("automation %s: %w", parameter, err)
	}
	return &Automation{Parameter: parameter, Expression: expression, program: program}, nil
}

// ParseAutomation compiles a "name=expression" flag value.
func ParseAutomation(s string) (*Automation, error) {
	name, expression, ok := strings.Cut(s, "=")
	if !ok {
		return nil, fmt.Errorf("automation %q: expected name=expression", s)
	}
	return Compile(strings.TrimSpace(name), strings.TrimSpace(expression))
}

// Eval runs the expression against env.
func (a *Automation) Eval(env Env) (float64, error) {
	out, err := expr.Run(a.program, env)
	if err != nil {
		return 0, fmt.Errorf("automation %s: %w", a.Parameter, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("automation %s: expression returned %T", a.Parameter, out)
	}
	return v, nil
}
