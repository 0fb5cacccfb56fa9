// Package tui implements the interactive pipeline inspector.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// InspectData is the pipeline shape shown by the inspector.
type InspectData struct {
	Pipeline string
	Nodes    []string
}

// RunInspect starts the interactive inspector over the given pipeline
// graph and blocks until the user quits.
func RunInspect(data InspectData) error {
	_, err := tea.NewProgram(newInspectModel(data)).Run()
	return err
}

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.Up, k.Down, k.Quit} }

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var inspectKeys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous node"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next node"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type inspectModel struct {
	data     InspectData
	selected int
	help     help.Model
}

func newInspectModel(data InspectData) inspectModel {
	return inspectModel{data: data, help: help.New()}
}

func (m inspectModel) Init() tea.Cmd { return nil }

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, inspectKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, inspectKeys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, inspectKeys.Down):
			if m.selected < len(m.data.Nodes)-1 {
				m.selected++
			}
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m inspectModel) View() string {
	var b strings.Builder

	title := "pipeline"
	if m.data.Pipeline != "" {
		title = m.data.Pipeline
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s — %d processors", title, len(m.data.Nodes))))
	b.WriteString("\n")

	// Entry point last in the introspected graph; render source → sink.
	for i := len(m.data.Nodes) - 1; i >= 0; i-- {
		style := nodeStyle
		if i == m.selected {
			style = selectedNodeStyle
		}
		b.WriteString(style.Render(m.data.Nodes[i]))
		b.WriteString("\n")
		if i > 0 {
			b.WriteString(edgeStyle.Render("  │"))
			b.WriteString("\n")
		}
	}

	b.WriteString(helpStyle.Render(m.help.View(inspectKeys)))
	b.WriteString("\n")
	return b.String()
}
