// Package monitor is the interactive side of a live session: a terminal UI
// that folds the runtime snapshot into its own on a timer and turns key
// presses into interface edits.
package monitor

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joeycumines/script-garden/internal/console"
	"github.com/joeycumines/script-garden/internal/state"
	"github.com/joeycumines/script-garden/internal/storage"
)

// DefaultTick is how often the monitor syncs with the runtime.
const DefaultTick = 50 * time.Millisecond

// Options configure a Model.
type Options struct {
	// Backend re-reads the selected workspace on refresh. Without one the
	// workspace snapshot already held is reloaded as is.
	Backend storage.Backend
	// Tick overrides DefaultTick.
	Tick time.Duration
	// Title is shown in the header.
	Title string
}

type tickMsg time.Time

// Model is the bubbletea model of the monitor.
type Model struct {
	shared  *state.Shared
	console *console.Console
	opts    Options

	ui       state.InterfaceData
	rt       state.RuntimeData
	selected int
	width    int
	height   int

	// filter narrows the log pane; keys edit it while filtering is set
	filter    string
	filtering bool
}

// New creates a monitor over shared. Log lines are read from con.
func New(shared *state.Shared, con *console.Console, opts Options) *Model {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	m := &Model{shared: shared, console: con, opts: opts}
	m.sync()
	return m
}

// Run starts a full-screen program and blocks until the user quits.
func Run(m *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.sync()
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.filtering {
		return m.editFilter(msg)
	}
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "r":
		m.refresh()
	case "c":
		m.edit(func(d *state.InterfaceData) { d.SetTargetState(state.Clear) })
	case "o":
		online := m.rt.State == state.Online
		m.edit(func(d *state.InterfaceData) {
			if online {
				d.SetTargetState(state.Offline)
			} else {
				d.SetTargetState(state.Online)
			}
		})
	case "k":
		m.edit(func(d *state.InterfaceData) { d.SetClip(!d.Clip) })
	case "n":
		m.edit(func(d *state.InterfaceData) { d.SetInputNoise(!d.InputNoise) })
	case "t":
		m.edit(func(d *state.InterfaceData) { d.RequestTrigger() })
	case "l":
		m.console.Clear()
	case "/":
		m.filtering = true
	case "up":
		m.selected--
	case "down":
		m.selected++
	case "left":
		m.nudge(-1)
	case "right":
		m.nudge(1)
	case "shift+left":
		m.nudge(-10)
	case "shift+right":
		m.nudge(10)
	}
	m.clampSelection()
	return nil
}

func (m *Model) editFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEnter:
		m.filtering = false
	case tea.KeyEsc:
		m.filtering, m.filter = false, ""
	case tea.KeyBackspace:
		if r := []rune(m.filter); len(r) > 0 {
			m.filter = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.filter += string(msg.Runes)
	}
	return nil
}

// refresh re-reads the selected workspace, then asks the runtime to reload.
// A workspace that fails to read keeps its previous content.
func (m *Model) refresh() {
	src := m.ui.Source
	if src.Mode == state.SourceWorkspace && src.Workspace.Path != "" && m.opts.Backend != nil {
		w := src.Workspace
		if err := m.opts.Backend.Refresh(&w); err != nil {
			m.logger().Error("workspace refresh failed", "path", w.Path, "error", err)
		} else {
			m.edit(func(d *state.InterfaceData) { d.SelectWorkspace(w) })
		}
	}
	m.edit(func(d *state.InterfaceData) { d.SetTargetState(state.Refresh) })
}

func (m *Model) nudge(steps float64) {
	name, ok := m.selectedName()
	if !ok {
		return
	}
	m.edit(func(d *state.InterfaceData) { d.NudgeParameter(name, steps) })
}

func (m *Model) edit(fn func(*state.InterfaceData)) {
	m.shared.UpdateInterface(fn)
	m.ui = m.shared.Interface()
}

func (m *Model) sync() {
	m.shared.SyncInterface()
	m.ui = m.shared.Interface()
	m.rt = m.shared.Runtime()
	m.clampSelection()
}

func (m *Model) clampSelection() {
	n := len(m.ui.Parameters)
	m.selected = max(0, min(m.selected, n-1))
}

func (m *Model) selectedName() (string, bool) {
	names := m.ui.Parameters.Names()
	if m.selected < 0 || m.selected >= len(names) {
		return "", false
	}
	return names[m.selected], true
}

func (m *Model) logger() *slog.Logger {
	return m.console.Logger().With("source", "monitor")
}
