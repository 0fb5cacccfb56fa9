package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testData() InspectData {
	return InspectData{
		Pipeline: "flim",
		Nodes:    []string{"null_sink", "scan_histograms", "buffer"},
	}
}

func TestInspectViewRendersAllNodes(t *testing.T) {
	m := newInspectModel(testData())
	out := m.View()
	for _, node := range testData().Nodes {
		if !strings.Contains(out, node) {
			t.Fatalf("view missing node %q:\n%s", node, out)
		}
	}
	if !strings.Contains(out, "flim") {
		t.Fatalf("view missing pipeline name:\n%s", out)
	}
}

func TestInspectNavigationClampsToRange(t *testing.T) {
	m := newInspectModel(testData())

	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	next, _ := m.Update(up)
	m = next.(inspectModel)
	if m.selected != 0 {
		t.Fatalf("up at top moved selection to %d", m.selected)
	}
	for range 10 {
		next, _ = m.Update(down)
		m = next.(inspectModel)
	}
	if m.selected != len(testData().Nodes)-1 {
		t.Fatalf("down past bottom moved selection to %d", m.selected)
	}
}

func TestInspectQuitKey(t *testing.T) {
	m := newInspectModel(testData())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q did not produce a command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("q produced %T, want tea.QuitMsg", msg)
	}
}
