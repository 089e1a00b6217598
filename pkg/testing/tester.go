package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/container"
	"github.com/go-drift/listkit/pkg/prefs"
	"github.com/go-drift/listkit/pkg/rendering"
	"github.com/go-drift/listkit/pkg/reuse"
)

const (
	// DefaultTestWidth is the default viewport width.
	DefaultTestWidth = 320
	// DefaultTestHeight is the default viewport height.
	DefaultTestHeight = 100
)

// ListTester wires a coordinator, a container and a headless surface
// around a recording content factory.
type ListTester struct {
	factory     *Factory
	coordinator *reuse.Coordinator
	container   *container.Container
	surface     *container.Headless
}

// NewListTester creates a tester with the default viewport. Item, header
// and footer content all come from the tester's factory.
func NewListTester(p prefs.Preferences, opts ...reuse.Option) (*ListTester, error) {
	factory := &Factory{}
	coordinator, err := reuse.New(p, reuse.Builders{
		Item:   factory.Build,
		Header: factory.Build,
		Footer: factory.Build,
	}, opts...)
	if err != nil {
		return nil, err
	}
	surface := container.NewHeadless(rendering.Size{Width: DefaultTestWidth, Height: DefaultTestHeight})
	c := container.New(surface, coordinator)
	surface.Attach(c)
	return &ListTester{
		factory:     factory,
		coordinator: coordinator,
		container:   c,
		surface:     surface,
	}, nil
}

// NewListTesterWithT creates a tester and fails the test on error.
func NewListTesterWithT(t testing.TB, p prefs.Preferences, opts ...reuse.Option) *ListTester {
	t.Helper()
	tester, err := NewListTester(p, opts...)
	if err != nil {
		t.Fatalf("NewListTester: %v", err)
	}
	return tester
}

// Factory returns the content factory.
func (t *ListTester) Factory() *Factory { return t.factory }

// Coordinator returns the coordinator.
func (t *ListTester) Coordinator() *reuse.Coordinator { return t.coordinator }

// Container returns the container.
func (t *ListTester) Container() *container.Container { return t.container }

// Surface returns the headless surface.
func (t *ListTester) Surface() *container.Headless { return t.surface }

// Pump applies a snapshot and ends the frame.
func (t *ListTester) Pump(next collection.Snapshot) reuse.Outcome {
	out, _ := t.container.Update(context.Background(), next)
	t.container.Tick()
	return out
}

// ScrollBy scrolls the surface and ends the frame.
func (t *ListTester) ScrollBy(dy float64) {
	t.surface.ScrollBy(dy)
}

// Offset returns the surface's vertical content offset.
func (t *ListTester) Offset() float64 {
	return t.surface.ContentOffset().Y
}

// ContentAt returns the recording content displayed for an item.
func (t *ListTester) ContentAt(section, item int) (*RecordingContent, bool) {
	cell, ok := t.coordinator.Cell(reuse.KindItem, collection.Position{Section: section, Item: item})
	if !ok {
		return nil, false
	}
	c, ok := cell.Content().(*RecordingContent)
	return c, ok
}

// DisplayedIDs returns the item identifiers on screen, top to bottom.
// Headers and footers are listed as "header:<section>" and
// "footer:<section>".
func (t *ListTester) DisplayedIDs() []string {
	snapshot := t.coordinator.Snapshot()
	var ids []string
	for _, target := range t.surface.Displayed() {
		section, ok := snapshot.SectionAt(target.Position.Section)
		if !ok {
			continue
		}
		switch target.Kind {
		case reuse.KindHeader:
			ids = append(ids, fmt.Sprintf("header:%v", section.ID))
		case reuse.KindFooter:
			ids = append(ids, fmt.Sprintf("footer:%v", section.ID))
		default:
			if item, ok := snapshot.ItemAt(target.Position); ok {
				ids = append(ids, fmt.Sprint(item.ID))
			}
		}
	}
	return ids
}
