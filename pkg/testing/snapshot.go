package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures what the surface shows: the scroll position, the
// content height and every displayed slot with its content.
type Snapshot struct {
	Offset        float64    `json:"offset"`
	ContentHeight float64    `json:"contentHeight"`
	Slots         []SlotNode `json:"slots"`
}

// SlotNode is one displayed slot.
type SlotNode struct {
	Slot    string     `json:"slot"`
	Path    string     `json:"path"`
	Size    [2]float64 `json:"size"`
	Content int        `json:"content,omitempty"`
	Value   string     `json:"value,omitempty"`
}

// CaptureSnapshot captures the current display state.
func (t *ListTester) CaptureSnapshot() *Snapshot {
	snap := &Snapshot{
		Offset:        round2(t.Offset()),
		ContentHeight: round2(t.container.ContentSize().Height),
	}
	for _, target := range t.surface.Displayed() {
		node := SlotNode{Slot: target.String()}
		if cell, ok := t.coordinator.Cell(target.Kind, target.Position); ok {
			node.Path = cell.Path().String()
			if rc, ok := cell.Content().(*RecordingContent); ok {
				node.Content = rc.ID
				node.Value = fmt.Sprint(rc.Value)
			}
		}
		size := t.coordinator.EstimatedSize(target.Kind, target.Position)
		node.Size = [2]float64{round2(size.Width), round2(size.Height)}
		snap.Slots = append(snap.Slots, node)
	}
	return snap
}

// Targets returns the displayed slots in the order they were captured.
func (s *Snapshot) Targets() []string {
	out := make([]string, len(s.Slots))
	for i, slot := range s.Slots {
		out[i] = slot.Slot
	}
	return out
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When
// LISTKIT_UPDATE_SNAPSHOTS=1 is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv("LISTKIT_UPDATE_SNAPSHOTS") == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: LISTKIT_UPDATE_SNAPSHOTS=1 go test -run %s", path, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: LISTKIT_UPDATE_SNAPSHOTS=1 go test -run %s", path, diff, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between this snapshot and other. Returns the
// empty string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return unifiedDiff(string(b), string(a))
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unifiedDiff produces a simple line-oriented diff.
func unifiedDiff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")

	maxLen := max(len(expectedLines), len(actualLines))
	for i := 0; i < maxLen; i++ {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e != a {
			if i < len(expectedLines) {
				fmt.Fprintf(&buf, "-%s\n", e)
			}
			if i < len(actualLines) {
				fmt.Fprintf(&buf, "+%s\n", a)
			}
		}
	}
	return buf.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
