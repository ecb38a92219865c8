package scripting

import (
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/module"
	"github.com/joeycumines/script-garden/internal/state"
)

func newModule(t *testing.T, c module.Content, opts ...Option) *Module {
	t.Helper()
	m, err := New(c, 48000, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	_, err = m.Init()
	require.NoError(t, err)
	return m
}

func mono(samples ...float32) *audio.Buffer {
	return audio.Wrap([][]float32{samples})
}

func TestRunZeroesFirstChannel(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Content{Run: "BUFFER_RAW[1][i]=0"})
	block := mono(0.5, -0.5, 1.0, -1.0)

	logs, err := m.Run(block, false, false)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, []float32{0, 0, 0, 0}, block.Channel(0))
}

func TestRunRoundTripsUntouchedSamples(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Content{})
	in := [][]float32{{0.1, -0.2, 0.3}, {1.5, -7, 0}}
	block := audio.NewBuffer(2, 3)
	copy(block.Channel(0), in[0])
	copy(block.Channel(1), in[1])

	_, err := m.Run(block, false, false)
	require.NoError(t, err)
	assert.Equal(t, in[0], block.Channel(0))
	assert.Equal(t, in[1], block.Channel(1), "no clipping requested")
}

func TestRunClipKeepsSamplesInRange(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Content{Run: `
for (let c = 1; c <= CHANNELS; c++) {
    if (i == 1) { BUFFER_RAW[c][i] = NaN; }
    else if (i % 2 == 0) { BUFFER_RAW[c][i] = BUFFER_RAW[c][i] * 1000; }
    else { BUFFER_RAW[c][i] = -Infinity; }
}`})
	block := audio.NewBuffer(2, 64)
	for c := 0; c < 2; c++ {
		for i := range block.Channel(c) {
			block.Channel(c)[i] = float32(math.Sin(float64(i)))
		}
	}

	for n := 0; n < 3; n++ {
		_, err := m.Run(block, false, true)
		require.NoError(t, err)
		for c := 0; c < 2; c++ {
			for i, v := range block.Channel(c) {
				require.False(t, math.IsNaN(float64(v)), "channel %d frame %d", c, i)
				require.LessOrEqual(t, v, float32(1))
				require.GreaterOrEqual(t, v, float32(-1))
			}
		}
	}
	assert.Equal(t, float32(0), block.Channel(0)[0])
	assert.Equal(t, float32(-1), block.Channel(1)[2])
}

func TestRunExposesBlockGlobals(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Content{Run: `
if (i == BUFFER_SIZE) {
    log(CHANNELS + " " + BUFFER_SIZE + " " + INPUT_NOISE + " " + BUFFER_RAW.length + " " + BUFFER_RAW[1].length + " " + (BUFFER_RAW[1][0] === undefined));
}`})

	logs, err := m.Run(audio.NewBuffer(2, 8), true, true)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, LogLine{Level: slog.LevelInfo, Message: "2 8 true 3 9 true"}, logs[0])

	// fewer channels later keeps the surplus region but hides it
	logs, err = m.Run(audio.NewBuffer(1, 4), false, true)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "1 4 false 2 5 true", logs[0].Message)
}

func TestRunRejectsBadWrites(t *testing.T) {
	t.Parallel()
	for name, run := range map[string]string{
		"non-number":   `BUFFER_RAW[1][i] = "loud"`,
		"out of range": `BUFFER_RAW[1][BUFFER_SIZE + 1] = 0`,
		"replace":      `BUFFER_RAW[1] = []`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := newModule(t, module.Content{Run: run})
			block := mono(0.25, 0.5)
			_, err := m.Run(block, false, true)
			require.ErrorIs(t, err, ErrMarshal)
			assert.Equal(t, []float32{0.25, 0.5}, block.Channel(0), "failed run leaves the block alone")
		})
	}
}

func TestRunScriptErrorKeepsLogs(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Content{Run: `log("before " + i); throw new Error("boom");`})
	block := mono(0.5, 0.5)

	logs, err := m.Run(block, false, false)
	require.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "boom")
	require.Len(t, logs, 1)
	assert.Equal(t, "before 1", logs[0].Message)
	assert.Equal(t, []float32{0.5, 0.5}, block.Channel(0))

	assert.Empty(t, m.DrainLogs(), "logs are drained once")
}

func TestInitMetadata(t *testing.T) {
	t.Parallel()
	m, err := New(module.Content{}, 44100)
	require.NoError(t, err)
	defer m.Close()
	meta, err := m.Init()
	require.NoError(t, err)
	assert.Equal(t, Metadata{Name: UnknownMetadata, Author: UnknownMetadata, Description: UnknownMetadata}, meta)

	m2 := newModule(t, module.Content{Init: `MODULE_NAME = "Thing"; MODULE_ABOUT = "does " + SAMPLE_RATE;`})
	meta, err = m2.Init()
	require.NoError(t, err)
	assert.Equal(t, "Thing", meta.Name)
	assert.Equal(t, UnknownMetadata, meta.Author)
	assert.Equal(t, "does 48000", meta.Description)
}

func TestInitErrors(t *testing.T) {
	t.Parallel()
	for name, init := range map[string]string{
		"syntax":  "function (",
		"runtime": "undefinedFunction();",
		"require": `require("./local.js");`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m, err := New(module.Content{Init: init}, 48000)
			require.NoError(t, err)
			defer m.Close()
			_, err = m.Init()
			require.ErrorIs(t, err, ErrScript)
		})
	}
}

func TestResetAndTriggerShareState(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Content{
		Init:    "var hits = 0;",
		Reset:   "hits = 0;",
		Trigger: "hits++; log('hits ' + hits);",
	})
	require.NoError(t, m.Trigger())
	require.NoError(t, m.Trigger())
	require.NoError(t, m.Reset())
	require.NoError(t, m.Trigger())

	var msgs []string
	for _, l := range m.DrainLogs() {
		msgs = append(msgs, l.Message)
	}
	assert.Equal(t, []string{"hits 1", "hits 2", "hits 1"}, msgs)

	_, err := m.Init()
	require.NoError(t, err, "init may run again")
}

func TestParametersAndUpdates(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Default())

	params, err := m.Parameters()
	require.NoError(t, err)
	require.Equal(t, state.Parameters{
		"gain": {Name: "gain", Value: 1, Min: 0, Max: 2, StepSize: 0.01},
	}, params)

	n, err := m.ApplyParameterUpdates(params)
	require.NoError(t, err)
	assert.Zero(t, n)

	p := params["gain"]
	require.True(t, p.Set(0.5))
	params["gain"] = p
	n, err = m.ApplyParameterUpdates(params)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, params["gain"].Changed)

	block := mono(1, -1)
	_, err = m.Run(block, false, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.5, -0.5}, block.Channel(0), 1e-6)

	params, err = m.Parameters()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, params["gain"].Value, 1e-12)
}

func TestParametersMissingAndMalformed(t *testing.T) {
	t.Parallel()
	m, err := New(module.Content{}, 48000)
	require.NoError(t, err)
	defer m.Close()
	params, err := m.Parameters()
	require.NoError(t, err, "before init there is no table")
	assert.Empty(t, params)

	m = newModule(t, module.Content{Init: `
parameter("ok", 0.5, 0, 1);
PARAMETERS.text = {value: "x", min: 0, max: 1};
PARAMETERS.partial = {value: 1};
PARAMETERS.flat = 3;
PARAMETERS.inverted = {value: 0, min: 1, max: 0};`})
	params, err = m.Parameters()
	require.ErrorIs(t, err, ErrMarshal)
	for _, name := range []string{"text", "partial", "flat", "inverted"} {
		assert.Contains(t, err.Error(), name)
	}
	assert.Equal(t, []string{"ok"}, params.Names())
	assert.Zero(t, params["ok"].StepSize)
}

func TestLogCap(t *testing.T) {
	t.Parallel()
	m := newModule(t, module.Content{Run: `log("frame " + i); if (i == 2) warn("w"); if (i == 3) error("e");`}, WithMaxLogLines(2))

	logs, err := m.Run(audio.NewBuffer(1, 4), false, true)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "frame 1", logs[0].Message)
	assert.Equal(t, "frame 2", logs[1].Message)
	assert.Equal(t, slog.LevelWarn, logs[2].Level)
	assert.Equal(t, "4 log lines dropped", logs[2].Message)
}

func TestNoiseIsSeededFromContent(t *testing.T) {
	t.Parallel()
	c, ok := module.ExampleByName("Noise")
	require.True(t, ok)

	render := func() []float32 {
		m := newModule(t, c)
		block := audio.NewBuffer(1, 32)
		_, err := m.Run(block, true, true)
		require.NoError(t, err)
		return block.Channel(0)
	}
	a, b := render(), render()
	assert.Equal(t, a, b)
	assert.NotEqual(t, make([]float32, 32), a)
}

func TestModuleIdentity(t *testing.T) {
	t.Parallel()
	c := module.Default()
	m1 := newModule(t, c)
	m2 := newModule(t, c)
	assert.Equal(t, c.ID(), m1.Hash())
	assert.Equal(t, m1.Hash(), m2.Hash())
	assert.NotEqual(t, m1.ID(), m2.ID())
	assert.Equal(t, c, m1.Content())
	assert.Equal(t, 48000.0, m1.SampleRate())

	m3 := newModule(t, module.Content{Trigger: "log(MODULE_HASH == dsp.hash);"})
	require.NoError(t, m3.Trigger())
	logs := m3.DrainLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "true", logs[0].Message)
}

func TestClosedModule(t *testing.T) {
	t.Parallel()
	m, err := New(module.Default(), 48000)
	require.NoError(t, err)
	m.Close()
	m.Close()
	_, err = m.Init()
	require.ErrorIs(t, err, ErrClosed)
	_, err = m.Run(mono(1), false, true)
	require.ErrorIs(t, err, ErrClosed)
}
