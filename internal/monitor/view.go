package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joeycumines/script-garden/internal/state"
)

const (
	barWidth    = 24
	defaultLogs = 8
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#05ffa1"))
	panelStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5a4a8a")).Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3d8"))
	selectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff71ce")).Bold(true)
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
)

// View implements tea.Model.
func (m *Model) View() string {
	sections := []string{
		m.headerView(),
		m.parametersView(),
		m.logView(),
		mutedStyle.Render("r refresh  c clear  o online/offline  k clip  n noise  t trigger  l clear log  / filter log  ↑↓ select  ←→ adjust  q quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) headerView() string {
	rt := m.rt
	stateStyle := offlineStyle
	if rt.State == state.Online {
		stateStyle = onlineStyle
	}

	name := rt.ModuleName
	if name == "" {
		name = "no module"
	}
	title := m.opts.Title
	if title == "" {
		title = "script-garden"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(title), stateStyle.Render(rt.State.String()))
	fmt.Fprintf(&b, "%s", name)
	if rt.ModuleAuthor != "" {
		fmt.Fprintf(&b, " by %s", rt.ModuleAuthor)
	}
	if rt.ModuleHash != "" {
		fmt.Fprintf(&b, "  %s", mutedStyle.Render(rt.ModuleHash))
	}
	if rt.ModuleDescription != "" {
		fmt.Fprintf(&b, "\n%s", mutedStyle.Render(rt.ModuleDescription))
	}
	fmt.Fprintf(&b, "\nsource %s", m.sourceLabel())
	fmt.Fprintf(&b, "\n%.0f Hz  %d ch  %d frames  %.2f ms  clip %s  noise %s",
		rt.SampleRate, rt.Channels, rt.BufferSize, rt.RunMillis, onOff(m.ui.Clip), onOff(m.ui.InputNoise))
	return panelStyle.Render(b.String())
}

func (m *Model) sourceLabel() string {
	src := m.ui.Source
	if src.Mode == state.SourceWorkspace {
		if src.Workspace.Path == "" {
			return "workspace (none selected)"
		}
		return "workspace " + src.Workspace.Path
	}
	return "draft " + src.Draft.ID()
}

func (m *Model) parametersView() string {
	names := m.ui.Parameters.Names()
	if len(names) == 0 {
		return panelStyle.Render(mutedStyle.Render("no parameters"))
	}
	lines := make([]string, len(names))
	for i, name := range names {
		p := m.ui.Parameters[name]
		filled := int(p.Normalized()*barWidth + 0.5)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		line := fmt.Sprintf("%-12s %s %8.3f", name, bar, p.Value)
		if p.Changed {
			line += " *"
		}
		if i == m.selected {
			line = selectStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines[i] = line
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) logView() string {
	n := defaultLogs
	if m.height > 0 {
		// header, parameters, footer and borders take the rest
		n = max(3, m.height-len(m.ui.Parameters)-15)
	}

	title := fmt.Sprintf("log  %d lines", m.console.Len())
	entries := m.console.Recent(n)
	empty := "no log output"
	if m.filtering || m.filter != "" {
		title += "  /" + m.filter
		if m.filtering {
			title += "_"
		}
	}
	if m.filter != "" {
		matches := m.console.Search(m.filter)
		title += fmt.Sprintf("  %d matching", len(matches))
		entries = matches[max(0, len(matches)-n):]
		empty = "no matching log lines"
	}

	lines := []string{mutedStyle.Render(title)}
	if len(entries) == 0 {
		lines = append(lines, mutedStyle.Render(empty))
	}
	for _, e := range entries {
		line := e.String()
		if r := []rune(line); m.width > 8 && len(r) > m.width-4 {
			line = string(r[:m.width-5]) + "…"
		}
		lines = append(lines, line)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
