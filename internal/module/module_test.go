package module

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeIsDeterministic(t *testing.T) {
	t.Parallel()
	c := Default()
	for _, phase := range Phases {
		first := Compose(phase, c)
		second := Compose(phase, c)
		require.Equal(t, first, second, "phase %s", phase)
		require.NotEmpty(t, first)
	}
}

func TestComposeInitCarriesIncludesInOrder(t *testing.T) {
	t.Parallel()
	c := Content{Init: "USER_INIT_MARKER = 1;"}
	out := Compose(PhaseInit, c)

	require.True(t, strings.HasPrefix(out, InternalIncludes()))
	last := -1
	for _, name := range includeOrder {
		idx := strings.Index(out, "// INCLUDE "+name+"\n// ↓↓↓↓ //")
		require.GreaterOrEqual(t, idx, 0, "missing include %s", name)
		require.Greater(t, idx, last, "include %s out of order", name)
		last = idx
	}

	headerAt := strings.Index(out, header(PhaseInit))
	userAt := strings.Index(out, "USER_INIT_MARKER")
	footerAt := strings.LastIndex(out, footer(PhaseInit))
	require.Greater(t, headerAt, last)
	require.Greater(t, userAt, headerAt)
	require.Greater(t, footerAt, userAt)
}

func TestComposeOtherPhasesSkipIncludes(t *testing.T) {
	t.Parallel()
	c := Content{Reset: "R();", Trigger: "T();", Run: "X();"}
	for _, phase := range []Phase{PhaseReset, PhaseTrigger, PhaseRun} {
		out := Compose(phase, c)
		assert.NotContains(t, out, "// INCLUDE ", "phase %s", phase)
		assert.True(t, strings.HasPrefix(out, header(phase)), "phase %s", phase)
		assert.True(t, strings.HasSuffix(out, footer(phase)), "phase %s", phase)
	}
	assert.Contains(t, Compose(PhaseReset, c), "R();")
	assert.Contains(t, Compose(PhaseTrigger, c), "T();")
	assert.Contains(t, Compose(PhaseRun, c), "X();")
}

func TestComposeRunWrapsUserTextInFrameLoop(t *testing.T) {
	t.Parallel()
	out := Compose(PhaseRun, Content{Run: "BUFFER_RAW[1][i] = 0;"})
	loop := strings.Index(out, "for (let i = 1; i <= BUFFER_SIZE; i++) {")
	user := strings.Index(out, "BUFFER_RAW[1][i] = 0;")
	require.GreaterOrEqual(t, loop, 0)
	require.Greater(t, user, loop)
}

func TestComposeUnknownPhase(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Compose(Phase(42), Default()))
	assert.Equal(t, "unknown", Phase(42).String())
}

func TestHashIgnoresInterface(t *testing.T) {
	t.Parallel()
	a := Default()
	b := a
	b.Interface = "// something else entirely"
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.ID(), b.ID())

	b.Run += " "
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHashSeparatesFields(t *testing.T) {
	t.Parallel()
	a := Content{Init: "ab", Reset: "c"}
	b := Content{Init: "a", Reset: "bc"}
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestIDIsLowercaseHex(t *testing.T) {
	t.Parallel()
	id := Default().ID()
	require.NotEmpty(t, id)
	for _, r := range id {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'), "unexpected rune %q in %s", r, id)
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()
	for _, e := range Examples() {
		code := e.Content.Encode()
		assert.NotContains(t, code, "\n")
		got, err := Decode(code)
		require.NoError(t, err, e.Name)
		assert.Equal(t, e.Content, got, e.Name)
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	t.Parallel()
	code := Default().Encode()
	parts := strings.Split(code, `\`)
	other := Content{Init: "x"}
	parts[0] = other.ID()

	_, err := Decode(strings.Join(parts, `\`))
	require.ErrorIs(t, err, ErrHashMismatch)

	_, err = Decode("abc")
	require.ErrorIs(t, err, ErrMalformedCode)

	parts = strings.Split(code, `\`)
	parts[2] = "***"
	_, err = Decode(strings.Join(parts, `\`))
	require.ErrorIs(t, err, ErrMalformedCode)
}

func TestFieldAccessors(t *testing.T) {
	t.Parallel()
	var c Content
	for i, file := range Files {
		require.True(t, c.SetField(file, file+string(rune('0'+i))))
	}
	assert.False(t, c.SetField("nope.js", "x"))
	for i, file := range Files {
		text, ok := c.Field(file)
		require.True(t, ok)
		assert.Equal(t, file+string(rune('0'+i)), text)
	}
	_, ok := c.Field("nope.js")
	assert.False(t, ok)
}

func TestPackagedExamples(t *testing.T) {
	t.Parallel()
	names := []string{}
	for _, e := range Examples() {
		names = append(names, e.Name)
		assert.NotEmpty(t, e.Content.Init, e.Name)
		assert.NotEmpty(t, e.Content.Run, e.Name)
		assert.NotEqual(t, Default().ID(), e.Content.ID(), e.Name)
	}
	assert.Equal(t, []string{"Noise", "Bitcrusher", "DJ Filter", "Waveshaper"}, names)

	noise, ok := ExampleByName("noise")
	require.True(t, ok)
	// examples without their own reset take the default one
	assert.Equal(t, Default().Reset, noise.Reset)

	crusher, ok := ExampleByName("Bitcrusher")
	require.True(t, ok)
	assert.NotEqual(t, Default().Reset, crusher.Reset)

	def, ok := ExampleByName("DEFAULT")
	require.True(t, ok)
	assert.Equal(t, Default(), def)

	_, ok = ExampleByName("missing")
	assert.False(t, ok)
}

func TestExamplesReturnsCopy(t *testing.T) {
	t.Parallel()
	list := Examples()
	list[0].Name = "changed"
	assert.Equal(t, "Noise", Examples()[0].Name)
}
