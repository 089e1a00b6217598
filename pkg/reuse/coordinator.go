// Package reuse recycles a bounded pool of cells over an arbitrarily long
// collection.
//
// A Coordinator answers the render surface's questions (what content goes
// in this slot, how big is it) and keeps cell lifecycles, the two-tier
// cache and update cycles consistent. Every cell moves through
//
//	free -> preparedForUse -> inUse -> pendingReuse -> free
//
// and carries a generation stamp that increases on every reuse, so
// callbacks captured for an earlier binding are recognized and dropped.
//
// A Coordinator is not safe for concurrent use. All calls must come from
// the goroutine that drives the surface.
package reuse

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/listkit/pkg/cache"
	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/errors"
	"github.com/go-drift/listkit/pkg/prefs"
	"github.com/go-drift/listkit/pkg/rendering"
)

const tracerName = "github.com/go-drift/listkit/pkg/reuse"

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an observer for update and cell events.
func WithObserver(obs Observer) Option {
	return func(c *Coordinator) {
		c.observer = obs
	}
}

// WithCacheObserver registers an observer on the coordinator's cache.
func WithCacheObserver(obs cache.Observer) Option {
	return func(c *Coordinator) {
		c.cacheObserver = obs
	}
}

// WithTracer sets the tracer used for update spans. The default resolves
// a tracer from the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Coordinator owns the cell pool, the cache and the update cycle.
type Coordinator struct {
	prefs    prefs.Preferences
	builders Builders
	cache    *cache.Cache
	index    *collection.Index
	phase    Phase

	live    map[Target]*Cell
	pending []*Cell
	free    []*Cell
	nextID  int
	stamp   uint64

	invalidation *InvalidationContext
	tasks        TaskQueue

	observer      Observer
	cacheObserver cache.Observer
	logger        *slog.Logger
	tracer        trace.Tracer
}

// New creates a coordinator. Zero-valued limits in p take their defaults.
func New(p prefs.Preferences, builders Builders, opts ...Option) (*Coordinator, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		prefs:        p,
		builders:     builders,
		index:        collection.NewIndex(collection.Snapshot{}),
		live:         make(map[Target]*Cell),
		invalidation: NewInvalidationContext(),
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	cacheOpts := []cache.Option{cache.WithLogger(c.logger)}
	if c.cacheObserver != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver(c.cacheObserver))
	}
	c.cache = cache.New(p.ExpensiveCacheCapacity, cacheOpts...)
	return c, nil
}

// Preferences returns the effective preferences.
func (c *Coordinator) Preferences() prefs.Preferences { return c.prefs }

// Cache returns the coordinator's item cache.
func (c *Coordinator) Cache() *cache.Cache { return c.cache }

// Snapshot returns the snapshot accepted by the last Update.
func (c *Coordinator) Snapshot() collection.Snapshot { return c.index.Snapshot() }

// Index returns the position index of the current snapshot.
func (c *Coordinator) Index() *collection.Index { return c.index }

// Phase returns the current update phase.
func (c *Coordinator) Phase() Phase { return c.phase }

// Cell returns the live cell bound to a slot.
func (c *Coordinator) Cell(kind Kind, pos collection.Position) (*Cell, bool) {
	cell, ok := c.live[targetFor(kind, pos)]
	return cell, ok
}

// Counts returns the number of live, pending and free cells.
func (c *Coordinator) Counts() (live, pending, free int) {
	return len(c.live), len(c.pending), len(c.free)
}

// PendingTasks returns the number of deferred tasks awaiting EndCycle.
func (c *Coordinator) PendingTasks() int { return c.tasks.Len() }

// Update accepts the newest snapshot and classifies it against the
// previous one. Structural changes invalidate the affected cache entries
// and recycle every live cell; the caller must then reload the surface.
// Content-only changes, including pure reorders, rebind the visible cells
// in place. Call EndCycle once the surface has been told.
func (c *Coordinator) Update(ctx context.Context, next collection.Snapshot) Outcome {
	start := time.Now()
	_, span := c.tracer.Start(ctx, "listkit.reuse.Update", trace.WithAttributes(
		attribute.Int("listkit.sections", next.SectionCount()),
		attribute.Int("listkit.items", next.TotalItems()),
	))
	defer span.End()

	if c.phase != PhaseIdle {
		c.logger.Warn("listkit: update started before the previous cycle ended", "phase", c.phase)
		c.closeCycle()
	}

	var out Outcome
	c.enter(&out, PhaseComparing)
	previous := c.index.Snapshot()
	changed := collection.ChangedPaths(previous, next)
	structural := c.cache.Update(next)
	c.index = collection.NewIndex(next)
	out.Changes = c.cache.Changes()

	switch {
	case structural:
		out.Kind = UpdateStructural
		c.enter(&out, PhaseStructural)
		c.enter(&out, PhaseInvalidating)
		c.invalidateSizes(changed)
		c.enter(&out, PhaseReloading)
		c.RecycleAll()
	case len(changed) > 0 || !collection.IsIdentical(previous, next):
		out.Kind = UpdateContentOnly
		c.enter(&out, PhaseContentOnly)
		c.invalidateSizes(changed)
		c.enter(&out, PhaseRefreshing)
		out.Refreshed = c.refreshVisible()
	default:
		out.Kind = UpdateNoChange
		c.enter(&out, PhaseNoChange)
		c.enter(&out, PhaseIdle)
	}

	out.Duration = time.Since(start)
	span.SetAttributes(
		attribute.String("listkit.update", out.Kind.String()),
		attribute.Int("listkit.inserted", len(out.Changes.InsertedPaths())),
		attribute.Int("listkit.removed", len(out.Changes.RemovedPaths())),
		attribute.Int("listkit.refreshed", len(out.Refreshed)),
	)
	c.logger.Debug("listkit: update",
		"kind", out.Kind,
		"changed", len(changed),
		"sections_inserted", len(out.Changes.SectionsInserted),
		"sections_removed", len(out.Changes.SectionsRemoved),
		"duration", out.Duration,
	)
	if c.observer != nil {
		c.observer.UpdateCompleted(out.Kind, out.Duration)
	}
	return out
}

func (c *Coordinator) enter(out *Outcome, phase Phase) {
	c.phase = phase
	out.Phases = append(out.Phases, phase)
}

func (c *Coordinator) invalidateSizes(paths []collection.ItemPath) {
	for _, path := range paths {
		c.cache.InvalidateSize(path)
	}
}

// EndCycle closes the current update cycle: deferred releases run, the
// accumulated invalidation context is flushed and the coordinator returns
// to Idle. The returned slots need a layout pass.
func (c *Coordinator) EndCycle() []Target {
	ran := c.closeCycle()
	targets := c.invalidation.Flush()
	if len(targets) > 0 {
		c.logger.Debug("listkit: invalidation flushed", "slots", len(targets), "tasks", ran)
	}
	if c.observer != nil {
		c.observer.InvalidationFlushed(len(targets))
	}
	c.notifyCells()
	return targets
}

// closeCycle runs the deferred releases and returns to Idle. The
// invalidation context is left for the next flush.
func (c *Coordinator) closeCycle() int {
	ran := c.tasks.Drain()
	c.phase = PhaseIdle
	return ran
}

// Dequeue returns the cell that displays the slot at pos. A live cell
// already bound to the same item is returned as is. Otherwise a pending
// cell that still holds the item is rescued, or a free cell is prepared
// and given the item's parked content, building it only when none exists.
func (c *Coordinator) Dequeue(kind Kind, pos collection.Position) *Cell {
	target := targetFor(kind, pos)
	path, value, ok := strategyFor(kind).resolve(c.index, target.Position)
	if !ok {
		errors.Invariant("reuse.Dequeue", target,
			fmt.Errorf("%w: %s", errors.ErrUnresolvedPosition, target))
		return placeholderCell(target)
	}

	if cell, ok := c.live[target]; ok {
		if cell.path == path {
			if !collection.ValuesEqual(cell.value, value) {
				c.update(cell, value)
				cell.value = value
			}
			return cell
		}
		delete(c.live, target)
		c.endUse(cell)
	}

	cell := c.rescue(path)
	if cell == nil {
		cell = c.obtain()
	}
	c.prepare(cell, kind, path, target)
	c.bind(cell, value)
	cell.transition(StateInUse)
	c.live[target] = cell
	c.notifyCells()
	return cell
}

// EndDisplay records that the surface stopped showing the slot at pos. The
// cell becomes pendingReuse and its content is released at the next
// EndCycle unless the cell is rescued first.
func (c *Coordinator) EndDisplay(kind Kind, pos collection.Position) {
	target := targetFor(kind, pos)
	cell, ok := c.live[target]
	if !ok {
		return
	}
	delete(c.live, target)
	c.endUse(cell)
	c.notifyCells()
}

// RecycleAll moves every live cell to pendingReuse.
func (c *Coordinator) RecycleAll() {
	for _, target := range c.liveTargets() {
		cell := c.live[target]
		delete(c.live, target)
		c.endUse(cell)
	}
	c.notifyCells()
}

// RefreshVisible rebinds every live cell to the value now at its slot and
// returns the slots that changed.
func (c *Coordinator) RefreshVisible() []Target {
	return c.refreshVisible()
}

type detachedContent struct {
	content rendering.Content
	value   any
}

// refreshVisible keeps every live cell in its slot. Cells whose slot now
// shows another item swap content through a local table first, so moved
// items keep their content without a cache round trip.
func (c *Coordinator) refreshVisible() []Target {
	var refreshed []Target
	var moved []*Cell
	values := make(map[*Cell]any)
	detached := make(map[collection.ItemPath]detachedContent)

	for _, target := range c.liveTargets() {
		cell := c.live[target]
		path, value, ok := strategyFor(target.Kind).resolve(c.index, target.Position)
		if !ok {
			delete(c.live, target)
			c.endUse(cell)
			continue
		}
		if path == cell.path {
			if !collection.ValuesEqual(cell.value, value) {
				c.update(cell, value)
				cell.value = value
				refreshed = append(refreshed, target)
			}
			continue
		}
		if cell.content != nil {
			detached[cell.path] = detachedContent{content: cell.content, value: cell.value}
		}
		cell.content = nil
		cell.value = nil
		cell.path = path
		cell.generation = c.nextStamp()
		values[cell] = value
		moved = append(moved, cell)
		refreshed = append(refreshed, target)
	}

	for _, cell := range moved {
		if d, ok := detached[cell.path]; ok {
			delete(detached, cell.path)
			cell.content = d.content
			cell.value = d.value
		}
		c.bind(cell, values[cell])
	}
	for path, d := range detached {
		c.park(path, d.content, d.value)
	}
	return refreshed
}

func (c *Coordinator) liveTargets() []Target {
	targets := make([]Target, 0, len(c.live))
	for target := range c.live {
		targets = append(targets, target)
	}
	slices.SortFunc(targets, func(a, b Target) int {
		if n := cmp.Compare(a.Position.Section, b.Position.Section); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Kind, b.Kind); n != 0 {
			return n
		}
		return cmp.Compare(a.Position.Item, b.Position.Item)
	})
	return targets
}

// rescue takes a pending cell that still holds path out of the pending
// list. Its content is kept.
func (c *Coordinator) rescue(path collection.ItemPath) *Cell {
	for i, cell := range c.pending {
		if cell.path != path {
			continue
		}
		c.pending = slices.Delete(c.pending, i, i+1)
		cell.transition(StateFree)
		return cell
	}
	return nil
}

func (c *Coordinator) obtain() *Cell {
	if n := len(c.free); n > 0 {
		cell := c.free[n-1]
		c.free = c.free[:n-1]
		return cell
	}
	c.nextID++
	return &Cell{id: c.nextID, state: StateFree}
}

func (c *Coordinator) prepare(cell *Cell, kind Kind, path collection.ItemPath, target Target) {
	if cell.content != nil && cell.path != path {
		c.park(cell.path, cell.content, cell.value)
		cell.content = nil
		cell.value = nil
	}
	cell.transition(StatePrepared)
	cell.kind = kind
	cell.path = path
	cell.target = target
	cell.generation = c.nextStamp()
}

// bind gives a cell content for its path. Content the cell already holds
// is kept; otherwise parked content is reattached before anything is
// built.
func (c *Coordinator) bind(cell *Cell, value any) {
	reattached := true
	switch {
	case cell.content != nil:
		if !collection.ValuesEqual(cell.value, value) {
			c.update(cell, value)
		}
	default:
		if content, ok := c.cache.TakeContent(cell.path); ok {
			cell.content = content
			c.update(cell, value)
		} else {
			cell.content = c.build(cell.kind, value)
			reattached = false
		}
	}
	cell.value = value
	cell.report = c.reporter(cell)
	if r, ok := cell.content.(rendering.SizeReportable); ok {
		r.SetSizeReporter(cell.report)
	}
	if c.observer != nil {
		c.observer.ContentBound(cell.kind, reattached)
	}
}

func (c *Coordinator) update(cell *Cell, value any) {
	updateContent(cell.content, value)
}

func updateContent(content rendering.Content, value any) {
	defer errors.Recover("reuse.update")
	content.Update(value)
}

// build runs the content-producing function for kind. A missing builder,
// a nil result or a panic all yield empty content.
func (c *Coordinator) build(kind Kind, value any) (content rendering.Content) {
	fn := strategyFor(kind).builder(c.builders)
	if fn == nil {
		return rendering.EmptyContent{}
	}
	defer errors.RecoverWithCallback("reuse.build", func(any) {
		content = rendering.EmptyContent{}
	})
	content = fn(value)
	if content == nil {
		content = rendering.EmptyContent{}
	}
	return content
}

// reporter returns the size callback for the cell's current binding. Calls
// made after the cell was reused are dropped.
func (c *Coordinator) reporter(cell *Cell) func(rendering.Size) {
	generation := cell.generation
	return func(size rendering.Size) {
		if cell.generation != generation || cell.state != StateInUse {
			c.logger.Debug("listkit: dropped stale size report",
				"cell", cell.id, "generation", generation, "current", cell.generation)
			return
		}
		c.record(cell.target, cell.path, size)
	}
}

func (c *Coordinator) endUse(cell *Cell) {
	if !cell.transition(StatePendingReuse) {
		return
	}
	c.pending = append(c.pending, cell)
	generation := cell.generation
	c.tasks.Schedule(func() {
		if cell.generation != generation || cell.state != StatePendingReuse {
			return
		}
		c.release(cell)
	})
}

// release returns a pending cell to the pool and hands its content to the
// hosting policy.
func (c *Coordinator) release(cell *Cell) {
	if i := slices.Index(c.pending, cell); i >= 0 {
		c.pending = slices.Delete(c.pending, i, i+1)
	}
	if !cell.transition(StateFree) {
		return
	}
	if cell.content != nil {
		c.park(cell.path, cell.content, cell.value)
		cell.content = nil
	}
	cell.value = nil
	if len(c.free) < c.prefs.MaxPooledCells {
		c.free = append(c.free, cell)
	}
}

// park applies the hosting policy to content that left its cell. Detached
// hosting keeps content for items still in the collection, along with the
// value it shows; everything else is disposed.
func (c *Coordinator) park(path collection.ItemPath, content rendering.Content, value any) {
	if _, empty := content.(rendering.EmptyContent); empty {
		return
	}
	if c.prefs.Hosting == prefs.HostingDetachedOnReuse && c.index.Contains(path) {
		c.cache.StoreContent(path, content, value)
		return
	}
	rendering.Dispose(content)
}

func (c *Coordinator) nextStamp() uint64 {
	c.stamp++
	return c.stamp
}

func (c *Coordinator) notifyCells() {
	if c.observer != nil {
		c.observer.CellsChanged(len(c.live), len(c.pending), len(c.free))
	}
}
