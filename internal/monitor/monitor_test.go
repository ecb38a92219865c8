package monitor

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/console"
	"github.com/joeycumines/script-garden/internal/module"
	"github.com/joeycumines/script-garden/internal/runtime"
	"github.com/joeycumines/script-garden/internal/state"
	"github.com/joeycumines/script-garden/internal/storage"
)

type harness struct {
	shared  *state.Shared
	console *console.Console
	proc    *runtime.Processor
	block   *audio.Buffer
	model   *Model
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	con := console.New(100, nil)
	t.Cleanup(con.Close)
	shared := state.NewShared(state.NewInterfaceData(module.Default()), state.NewRuntimeData())
	h := &harness{
		shared:  shared,
		console: con,
		proc:    runtime.NewProcessor(shared, runtime.New(48000, runtime.WithLogger(con.Logger()))),
		block:   audio.NewBuffer(2, 16),
	}
	h.model = New(shared, con, opts)
	return h
}

func (h *harness) key(t *testing.T, k tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := h.model.Update(k)
	return cmd
}

func (h *harness) process() state.RuntimeState {
	return h.proc.Process(h.block)
}

// tick waits for queued log lines, then delivers a tick.
func (h *harness) tick() {
	h.console.Flush()
	h.model.Update(tickMsg(time.Now()))
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRefreshLoadsModule(t *testing.T) {
	h := newHarness(t, Options{})
	assert.Contains(t, h.model.View(), "no module")

	h.key(t, runes("r"))
	assert.Equal(t, state.Refresh, h.shared.Interface().TargetState)

	require.Equal(t, state.Online, h.process())
	h.tick()

	assert.Equal(t, state.Online, h.model.rt.State)
	assert.Equal(t, state.Online, h.model.ui.TargetState)
	require.Contains(t, h.model.ui.Parameters, "gain")

	view := h.model.View()
	assert.Contains(t, view, "Gain")
	assert.Contains(t, view, "gain")
	assert.Contains(t, view, "Online")
	assert.Contains(t, view, "module initialized")
}

func TestToggles(t *testing.T) {
	h := newHarness(t, Options{})
	require.True(t, h.shared.Interface().Clip)

	h.key(t, runes("k"))
	h.key(t, runes("n"))
	ui := h.shared.Interface()
	assert.False(t, ui.Clip)
	assert.True(t, ui.InputNoise)

	h.process()
	rt := h.shared.Runtime()
	assert.False(t, rt.Clip)
	assert.True(t, rt.InputNoise)
	assert.False(t, h.proc.Runtime().Clip())
}

func TestOnlineToggle(t *testing.T) {
	h := newHarness(t, Options{})
	h.key(t, runes("r"))
	h.process()
	h.tick()

	h.key(t, runes("o"))
	assert.Equal(t, state.Offline, h.shared.Interface().TargetState)
	assert.Equal(t, state.Offline, h.process())
	h.tick()

	h.key(t, runes("o"))
	assert.Equal(t, state.Online, h.shared.Interface().TargetState)
	assert.Equal(t, state.Online, h.process())
}

func TestClearUnloads(t *testing.T) {
	h := newHarness(t, Options{})
	h.key(t, runes("r"))
	h.process()
	h.tick()
	require.NotEmpty(t, h.model.ui.Parameters)

	h.key(t, runes("c"))
	assert.Equal(t, state.Offline, h.process())
	h.tick()
	assert.Empty(t, h.model.ui.Parameters)
	assert.False(t, h.proc.Runtime().Loaded())
	assert.Contains(t, h.model.View(), "no parameters")
}

func TestNudgeSelectedParameter(t *testing.T) {
	h := newHarness(t, Options{})
	h.key(t, runes("r"))
	h.process()
	h.tick()

	h.key(t, tea.KeyMsg{Type: tea.KeyDown})
	assert.Zero(t, h.model.selected, "selection stays within the table")

	h.key(t, tea.KeyMsg{Type: tea.KeyLeft})
	p := h.shared.Interface().Parameters["gain"]
	assert.InDelta(t, 0.99, p.Value, 1e-9)
	assert.True(t, p.Changed)
	assert.Contains(t, h.model.View(), "*")

	h.process()
	h.tick()
	p = h.model.ui.Parameters["gain"]
	assert.InDelta(t, 0.99, p.Value, 1e-9)
	assert.False(t, p.Changed)

	h.key(t, tea.KeyMsg{Type: tea.KeyShiftRight})
	assert.InDelta(t, 1.09, h.shared.Interface().Parameters["gain"].Value, 1e-9)
}

func TestTrigger(t *testing.T) {
	h := newHarness(t, Options{})
	h.key(t, runes("r"))
	h.process()

	h.key(t, runes("t"))
	h.process()
	assert.False(t, h.shared.Runtime().TriggerPending)
	assert.Equal(t, state.Online, h.shared.Runtime().State)
}

func TestRefreshRereadsWorkspace(t *testing.T) {
	backend, err := storage.NewInMemoryBackend()
	require.NoError(t, err)
	w, err := backend.Create("/monitor/a", module.Default())
	require.NoError(t, err)

	h := newHarness(t, Options{Backend: backend})
	h.shared.UpdateInterface(func(d *state.InterfaceData) { d.SelectWorkspace(w) })
	h.tick()

	edited := w
	edited.Content.Init = `MODULE_NAME = "Edited"; parameter("mix", 0.5, 0, 1);`
	edited.Content.Run = `BUFFER_RAW[1][i] = BUFFER_RAW[1][i] * param("mix");`
	require.NoError(t, backend.Save(&edited))

	h.key(t, runes("r"))
	ui := h.shared.Interface()
	assert.Equal(t, edited.Content, ui.Source.Workspace.Content)
	assert.Equal(t, state.Refresh, ui.TargetState)

	require.Equal(t, state.Online, h.process())
	h.tick()
	assert.Equal(t, "Edited", h.model.rt.ModuleName)
	assert.Contains(t, h.model.ui.Parameters, "mix")
	assert.Contains(t, h.model.View(), "workspace /monitor/a")
}

func TestRefreshKeepsWorkspaceOnReadFailure(t *testing.T) {
	backend, err := storage.NewInMemoryBackend()
	require.NoError(t, err)

	h := newHarness(t, Options{Backend: backend})
	missing := storage.Workspace{Path: "/monitor/gone", Content: module.Default()}
	h.shared.UpdateInterface(func(d *state.InterfaceData) { d.SelectWorkspace(missing) })
	h.tick()

	h.key(t, runes("r"))
	assert.Equal(t, missing, h.shared.Interface().Source.Workspace)
	assert.Equal(t, state.Refresh, h.shared.Interface().TargetState)
	h.console.Flush()
	assert.NotEmpty(t, h.console.Search("workspace refresh failed"))
}

func TestClearLog(t *testing.T) {
	h := newHarness(t, Options{})
	h.key(t, runes("r"))
	require.Equal(t, state.Online, h.process())
	h.tick()
	require.Contains(t, h.model.View(), "module initialized")

	h.key(t, runes("l"))
	assert.Zero(t, h.console.Len())
	view := h.model.View()
	assert.NotContains(t, view, "module initialized")
	assert.Contains(t, view, "no log output")
	assert.Equal(t, state.Online, h.shared.Interface().TargetState, "the module is untouched")
}

func TestFilterLog(t *testing.T) {
	h := newHarness(t, Options{})
	h.model.logger().Info("alpha ready")
	h.model.logger().Info("beta ready")
	h.tick()
	assert.Contains(t, h.model.View(), "log  2 lines")

	h.key(t, runes("/"))
	for _, r := range "alpx" {
		h.key(t, runes(string(r)))
	}
	assert.Contains(t, h.model.View(), "no matching log lines")
	h.key(t, tea.KeyMsg{Type: tea.KeyBackspace})
	require.Nil(t, h.key(t, runes("q")), "keys edit the filter while it is open")
	h.key(t, tea.KeyMsg{Type: tea.KeyBackspace})
	h.key(t, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "alp", h.model.filter)

	view := h.model.View()
	assert.Contains(t, view, "/alp  1 matching")
	assert.Contains(t, view, "alpha ready")
	assert.NotContains(t, view, "beta ready")

	h.key(t, runes("/"))
	h.key(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, h.model.filtering)
	view = h.model.View()
	assert.Contains(t, view, "alpha ready")
	assert.Contains(t, view, "beta ready")
}

func TestQuitAndTick(t *testing.T) {
	h := newHarness(t, Options{Tick: time.Millisecond})
	require.NotNil(t, h.model.Init())

	cmd := h.key(t, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = h.model.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd, "tick reschedules itself")

	h.model.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.Equal(t, 40, h.model.width)
}
