// Package container binds a reuse coordinator to a scrollable render
// surface.
//
// The surface drives the container the way a native list drives its data
// source: it asks for counts, sizes and content, and reports cells entering
// and leaving the viewport. The container answers from the coordinator and,
// when a new snapshot arrives, decides between a full reload and a targeted
// refresh of the visible cells.
package container

import (
	"context"
	"log/slog"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/rendering"
	"github.com/go-drift/listkit/pkg/reuse"
)

// Surface is the native scrollable view the container feeds.
type Surface interface {
	// ReloadData discards every displayed cell and asks for them again.
	ReloadData()
	// ReloadItems asks for the given slots again.
	ReloadItems(targets []reuse.Target)
	// InvalidateLayout re-queries the sizes of the given slots in one pass.
	InvalidateLayout(targets []reuse.Target)
	ViewportSize() rendering.Size
	ContentOffset() rendering.Offset
	SetContentOffset(offset rendering.Offset)
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Container is the data source of one surface.
type Container struct {
	surface     Surface
	coordinator *reuse.Coordinator
	logger      *slog.Logger

	// updating guards against updates requested while one is applied, for
	// example from a surface callback during ReloadData.
	updating  bool
	displayed map[reuse.Target]struct{}
}

// New creates a container for surface backed by coordinator.
func New(surface Surface, coordinator *reuse.Coordinator, opts ...Option) *Container {
	c := &Container{
		surface:     surface,
		coordinator: coordinator,
		logger:      slog.Default(),
		displayed:   make(map[reuse.Target]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coordinator returns the backing coordinator.
func (c *Container) Coordinator() *reuse.Coordinator { return c.coordinator }

// SectionCount returns the number of sections in the current snapshot.
func (c *Container) SectionCount() int {
	return c.coordinator.Index().SectionCount()
}

// ItemCount returns the number of items in a section.
func (c *Container) ItemCount(section int) int {
	return c.coordinator.Index().ItemCount(section)
}

// Content returns the content for the item at pos.
func (c *Container) Content(pos collection.Position) rendering.Content {
	return c.ContentFor(reuse.Target{Kind: reuse.KindItem, Position: pos})
}

// Header returns the header content of a section, or nil if it has none.
func (c *Container) Header(section int) rendering.Content {
	return c.ContentFor(reuse.Target{Kind: reuse.KindHeader, Position: collection.Position{Section: section}})
}

// Footer returns the footer content of a section, or nil if it has none.
func (c *Container) Footer(section int) rendering.Content {
	return c.ContentFor(reuse.Target{Kind: reuse.KindFooter, Position: collection.Position{Section: section}})
}

// ContentFor returns the content for any slot.
func (c *Container) ContentFor(target reuse.Target) rendering.Content {
	if target.Kind != reuse.KindItem && !c.hasSupplementary(target) {
		return nil
	}
	return c.coordinator.Dequeue(target.Kind, target.Position).Content()
}

func (c *Container) hasSupplementary(target reuse.Target) bool {
	section, ok := c.coordinator.Snapshot().SectionAt(target.Position.Section)
	if !ok {
		return false
	}
	if target.Kind == reuse.KindHeader {
		return section.Header != nil
	}
	return section.Footer != nil
}

// Size returns the size of the item at pos.
func (c *Container) Size(pos collection.Position) rendering.Size {
	return c.SizeFor(reuse.Target{Kind: reuse.KindItem, Position: pos})
}

// HeaderSize returns the size of a section's header.
func (c *Container) HeaderSize(section int) rendering.Size {
	return c.SizeFor(reuse.Target{Kind: reuse.KindHeader, Position: collection.Position{Section: section}})
}

// FooterSize returns the size of a section's footer.
func (c *Container) FooterSize(section int) rendering.Size {
	return c.SizeFor(reuse.Target{Kind: reuse.KindFooter, Position: collection.Position{Section: section}})
}

// SizeFor returns the size of any slot, proposing the viewport size.
func (c *Container) SizeFor(target reuse.Target) rendering.Size {
	return c.coordinator.Size(target.Kind, target.Position, c.surface.ViewportSize())
}

// ContentSize returns the scrollable content size from estimated slot
// sizes.
func (c *Container) ContentSize() rendering.Size {
	return rendering.Size{
		Width:  c.surface.ViewportSize().Width,
		Height: c.computeLayout().height,
	}
}

// Frame returns where a slot sits in content coordinates, using the same
// estimates as VisibleRange. Slots with zero height have no frame.
func (c *Container) Frame(target reuse.Target) (rendering.Rect, bool) {
	f, ok := c.computeLayout().frameOf(target)
	if !ok {
		return rendering.Rect{}, false
	}
	return rendering.RectFromLTWH(0, f.origin, c.surface.ViewportSize().Width, f.extent), true
}

// CellWillDisplay records that the surface put a slot on screen.
func (c *Container) CellWillDisplay(target reuse.Target) {
	c.displayed[target] = struct{}{}
}

// CellDidEndDisplaying records that a slot left the screen. Its cell is
// recycled.
func (c *Container) CellDidEndDisplaying(target reuse.Target) {
	delete(c.displayed, target)
	c.coordinator.EndDisplay(target.Kind, target.Position)
}

// Displayed returns the number of slots the surface reports on screen.
func (c *Container) Displayed() int {
	return len(c.displayed)
}

// ScrollOffsetChanged is called by the surface after it scrolled. Each
// scroll step is a cycle boundary.
func (c *Container) ScrollOffsetChanged(offset rendering.Offset) {
	c.logger.Debug("listkit: scrolled", "y", offset.Y)
	c.Tick()
}

// VisibleRange returns the slots that intersect the viewport at the
// surface's current offset.
func (c *Container) VisibleRange() []reuse.Target {
	return c.computeLayout().visible(c.surface.ContentOffset().Y, c.surface.ViewportSize().Height)
}

// Update applies a new snapshot. Structural changes reload the surface and
// keep the top visible item in place; content-only changes reload just the
// refreshed slots. Batched size invalidations are forwarded at the end.
// The second result is false when the call was ignored because another
// update was in flight.
func (c *Container) Update(ctx context.Context, next collection.Snapshot) (reuse.Outcome, bool) {
	if c.updating {
		c.logger.Debug("listkit: nested update ignored")
		return reuse.Outcome{}, false
	}
	c.updating = true
	defer func() { c.updating = false }()

	a := c.captureAnchor()
	out := c.coordinator.Update(ctx, next)
	switch out.Kind {
	case reuse.UpdateStructural:
		c.surface.ReloadData()
		c.restoreAnchor(a)
	case reuse.UpdateContentOnly:
		if len(out.Refreshed) > 0 {
			c.surface.ReloadItems(out.Refreshed)
		}
	}
	c.endCycle()
	return out, true
}

// Reload recycles every cell and reloads the surface without changing the
// snapshot. It is ignored while an update is in flight.
func (c *Container) Reload() bool {
	if c.updating {
		c.logger.Debug("listkit: nested reload ignored")
		return false
	}
	c.updating = true
	defer func() { c.updating = false }()

	a := c.captureAnchor()
	c.coordinator.RecycleAll()
	c.surface.ReloadData()
	c.restoreAnchor(a)
	c.endCycle()
	return true
}

// Tick closes the current cycle: deferred bookkeeping runs and pending
// size invalidations reach the surface. Hosts call it once per frame.
func (c *Container) Tick() {
	if c.updating {
		return
	}
	c.endCycle()
}

func (c *Container) endCycle() {
	if targets := c.coordinator.EndCycle(); len(targets) > 0 {
		c.surface.InvalidateLayout(targets)
	}
}
