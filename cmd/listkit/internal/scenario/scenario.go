// Package scenario loads listkit simulation scenarios from YAML.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/prefs"
	"github.com/go-drift/listkit/pkg/rendering"
)

// Default viewport in pixels.
const (
	DefaultViewportWidth  = 320
	DefaultViewportHeight = 240
)

// ErrInvalid is returned for scenarios that cannot be run.
var ErrInvalid = errors.New("invalid scenario")

// Scenario is a list configuration and a sequence of steps to apply to it.
type Scenario struct {
	Name        string            `yaml:"name,omitempty"`
	Preferences prefs.Preferences `yaml:"preferences"`
	Viewport    Viewport          `yaml:"viewport"`
	Steps       []Step            `yaml:"steps"`
}

// Viewport is the size of the simulated surface.
type Viewport struct {
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
}

// Size returns the viewport as a rendering.Size.
func (v Viewport) Size() rendering.Size {
	return rendering.Size{Width: v.Width, Height: v.Height}
}

// Step is one action. Exactly one of its fields is set.
type Step struct {
	Snapshot *SnapshotDef `yaml:"snapshot,omitempty"`
	Scroll   float64      `yaml:"scroll,omitempty"`
	Reload   bool         `yaml:"reload,omitempty"`
}

// Kind names the action of the step.
func (s Step) Kind() string {
	switch {
	case s.Snapshot != nil:
		return "snapshot"
	case s.Reload:
		return "reload"
	default:
		return "scroll"
	}
}

// SnapshotDef describes a snapshot. Items at the top level build a flat
// snapshot; otherwise Sections are used.
type SnapshotDef struct {
	Items    []ItemDef    `yaml:"items,omitempty"`
	Sections []SectionDef `yaml:"sections,omitempty"`
}

// SectionDef describes one section. Header and footer are text; empty
// means the section has none.
type SectionDef struct {
	ID       string       `yaml:"id"`
	Header   string       `yaml:"header,omitempty"`
	Footer   string       `yaml:"footer,omitempty"`
	Items    []ItemDef    `yaml:"items,omitempty"`
	Generate *GenerateDef `yaml:"generate,omitempty"`
}

// ItemDef is one item. Its value is the text; an empty text uses the ID.
type ItemDef struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text,omitempty"`
}

// GenerateDef appends Count items with IDs Prefix0, Prefix1 and so on.
type GenerateDef struct {
	Prefix string `yaml:"prefix"`
	Count  int    `yaml:"count"`
	Text   string `yaml:"text,omitempty"`
}

// Snapshot builds the collection snapshot.
func (s *SnapshotDef) Snapshot() collection.Snapshot {
	if len(s.Sections) == 0 {
		return collection.Flat(items(s.Items)...)
	}
	out := collection.Snapshot{Sections: make([]collection.Section, 0, len(s.Sections))}
	for _, def := range s.Sections {
		section := collection.Section{ID: def.ID, Items: items(def.Items)}
		if def.Generate != nil {
			section.Items = append(section.Items, def.Generate.items()...)
		}
		if def.Header != "" {
			section.Header = def.Header
		}
		if def.Footer != "" {
			section.Footer = def.Footer
		}
		out.Sections = append(out.Sections, section)
	}
	return out
}

func items(defs []ItemDef) []collection.Item {
	out := make([]collection.Item, 0, len(defs))
	for _, def := range defs {
		text := def.Text
		if text == "" {
			text = def.ID
		}
		out = append(out, collection.Item{ID: def.ID, Value: text})
	}
	return out
}

func (g *GenerateDef) items() []collection.Item {
	out := make([]collection.Item, 0, g.Count)
	for i := range g.Count {
		id := g.Prefix + strconv.Itoa(i)
		text := id
		if g.Text != "" {
			text = g.Text + " " + strconv.Itoa(i)
		}
		out = append(out, collection.Item{ID: id, Value: text})
	}
	return out
}

// Snapshots returns the snapshots of every snapshot step in order.
func (sc *Scenario) Snapshots() []collection.Snapshot {
	var out []collection.Snapshot
	for _, step := range sc.Steps {
		if step.Snapshot != nil {
			out = append(out, step.Snapshot.Snapshot())
		}
	}
	return out
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario, applies defaults and validates it.
func Parse(data []byte) (*Scenario, error) {
	sc := Scenario{Preferences: prefs.Default()}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.Viewport.Width <= 0 {
		sc.Viewport.Width = DefaultViewportWidth
	}
	if sc.Viewport.Height <= 0 {
		sc.Viewport.Height = DefaultViewportHeight
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if err := sc.Preferences.Validate(); err != nil {
		return err
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalid)
	}
	if sc.Steps[0].Snapshot == nil {
		return fmt.Errorf("%w: the first step must be a snapshot", ErrInvalid)
	}
	for i, step := range sc.Steps {
		set := 0
		if step.Snapshot != nil {
			set++
		}
		if step.Scroll != 0 {
			set++
		}
		if step.Reload {
			set++
		}
		if set != 1 {
			return fmt.Errorf("%w: step %d must set exactly one of snapshot, scroll or reload", ErrInvalid, i+1)
		}
		if step.Snapshot != nil {
			if err := step.Snapshot.validate(); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func (s *SnapshotDef) validate() error {
	if len(s.Items) > 0 && len(s.Sections) > 0 {
		return fmt.Errorf("%w: snapshot sets both items and sections", ErrInvalid)
	}
	for _, item := range s.Items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("%w: item without id", ErrInvalid)
		}
	}
	for _, section := range s.Sections {
		if strings.TrimSpace(section.ID) == "" {
			return fmt.Errorf("%w: section without id", ErrInvalid)
		}
		for _, item := range section.Items {
			if strings.TrimSpace(item.ID) == "" {
				return fmt.Errorf("%w: item without id in section %q", ErrInvalid, section.ID)
			}
		}
		if g := section.Generate; g != nil && (g.Prefix == "" || g.Count < 0) {
			return fmt.Errorf("%w: generate in section %q needs a prefix and a non-negative count", ErrInvalid, section.ID)
		}
	}
	return nil
}
