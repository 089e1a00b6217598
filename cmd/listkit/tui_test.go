package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/listkit/pkg/reuse"
)

func newTestModel(t *testing.T) *tuiModel {
	t.Helper()
	m, err := newTUIModel(context.Background(), loadScenario(t, inboxScenario), quietLogger())
	if err != nil {
		t.Fatalf("newTUIModel: %v", err)
	}
	return m
}

func TestTUIModel_View(t *testing.T) {
	m := newTestModel(t)
	if m.rows != 5 || m.cols != 45 {
		t.Errorf("grid = %dx%d, want 5 rows of 45 columns", m.rows, m.cols)
	}
	view := m.View()
	for _, want := range []string{"Inbox", "Message 0", "Message 3", "snapshot 1/2", "structural"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Message 4") {
		t.Error("View() should not show rows below the viewport")
	}
}

func TestTUIModel_Keys(t *testing.T) {
	m := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.s.surface.ContentOffset().Y; got != 13 {
		t.Errorf("offset after down = %v, want 13", got)
	}
	if strings.Contains(m.View(), "Inbox") {
		t.Error("header should scroll out of view")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.s.surface.ContentOffset().Y; got != 0 {
		t.Errorf("offset after up = %v, want 0", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.current != 1 || m.last.Kind != reuse.UpdateContentOnly {
		t.Errorf("after n: current = %d, last = %v", m.current, m.last.Kind)
	}
	if !strings.Contains(m.View(), "Mail 0") {
		t.Error("View() should show the next snapshot's text")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.current != 0 {
		t.Errorf("n should wrap around to the first snapshot, current = %d", m.current)
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should quit")
	}
}
