// Package cache implements the two-tier, identity-keyed item cache.
//
// The cheap tier stores per-item measurements and display attributes. It is
// unbounded and only shrinks on explicit invalidation, which happens for
// every path that leaves the collection. The expensive tier stores detached
// rendered content. It is bounded by an entry count and evicts strictly in
// least-recently-used order.
//
// Both tiers are keyed by collection.ItemPath, never by position, so an
// entry survives reordering. The cache is not safe for concurrent use; it is
// owned by a single reuse coordinator on the UI thread.
package cache

import (
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/rendering"
)

// DefaultCapacity is the expensive tier bound used when none is configured.
const DefaultCapacity = 64

// Tier identifies a cache tier.
type Tier int

const (
	TierCheap Tier = iota
	TierExpensive
)

func (t Tier) String() string {
	if t == TierExpensive {
		return "expensive"
	}
	return "cheap"
}

// CheapEntry holds lightweight per-item metadata.
type CheapEntry struct {
	// Size is the last measured size. Only meaningful when Measured is set.
	Size     rendering.Size
	Measured bool
	// Attributes holds small display values keyed by name.
	Attributes map[string]any
}

// SetSize records a measurement and reports whether it differs from the
// previous one.
func (e *CheapEntry) SetSize(size rendering.Size) bool {
	changed := !e.Measured || !e.Size.Equal(size)
	e.Size = size
	e.Measured = true
	return changed
}

// SetAttribute stores a display attribute.
func (e *CheapEntry) SetAttribute(key string, value any) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = value
}

// ExpensiveEntry holds detached, reusable rendered content.
type ExpensiveEntry struct {
	Content rendering.Content
	// Value is the payload Content was last updated with.
	Value any
}

// Observer receives cache activity. Implementations must be cheap; they run
// inline on the render path.
type Observer interface {
	CacheHit(tier Tier)
	CacheMiss(tier Tier)
	CacheEvicted(tier Tier)
}

// Stats is a point-in-time view of cache occupancy and activity.
type Stats struct {
	CheapEntries     int
	ExpensiveEntries int
	Capacity         int
	Hits             [2]uint64
	Misses           [2]uint64
	Evictions        uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver attaches an activity observer.
func WithObserver(obs Observer) Option {
	return func(c *Cache) {
		c.observer = obs
	}
}

// WithLogger sets the logger used for eviction and invalidation records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache is the two-tier item cache.
type Cache struct {
	cheap     map[collection.ItemPath]*CheapEntry
	bySection map[any]map[collection.ItemPath]struct{}
	expensive *simplelru.LRU[collection.ItemPath, *ExpensiveEntry]
	capacity  int

	// resolved is the latest snapshot accepted by Update.
	resolved collection.Snapshot
	changes  collection.Changes

	observer Observer
	logger   *slog.Logger
	stats    Stats
}

// New creates a cache whose expensive tier holds at most capacity entries.
// A capacity <= 0 selects DefaultCapacity.
func New(capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		cheap:     make(map[collection.ItemPath]*CheapEntry),
		bySection: make(map[any]map[collection.ItemPath]struct{}),
		capacity:  capacity,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// simplelru only rejects non-positive sizes, which were ruled out above.
	c.expensive, _ = simplelru.NewLRU[collection.ItemPath, *ExpensiveEntry](capacity, c.onRemove)
	return c
}

// onRemove runs for every entry leaving the expensive tier, whether through
// eviction or invalidation. Content still parked in the entry is no longer
// reachable and is disposed.
func (c *Cache) onRemove(path collection.ItemPath, entry *ExpensiveEntry) {
	if entry == nil || entry.Content == nil {
		return
	}
	content := entry.Content
	entry.Content = nil
	rendering.Dispose(content)
}

// Capacity returns the expensive tier bound.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Cheap returns the cheap entry for path, creating an empty one on a miss.
func (c *Cache) Cheap(path collection.ItemPath) *CheapEntry {
	if entry, ok := c.cheap[path]; ok {
		c.hit(TierCheap)
		return entry
	}
	c.miss(TierCheap)
	entry := &CheapEntry{}
	c.cheap[path] = entry
	paths := c.bySection[path.Section]
	if paths == nil {
		paths = make(map[collection.ItemPath]struct{})
		c.bySection[path.Section] = paths
	}
	paths[path] = struct{}{}
	return entry
}

// PeekCheap returns the cheap entry for path without creating one.
func (c *Cache) PeekCheap(path collection.ItemPath) (*CheapEntry, bool) {
	entry, ok := c.cheap[path]
	return entry, ok
}

// Expensive returns the expensive entry for path, creating an empty one on
// a miss. Creation evicts the least recently used entry when the tier is
// full. Both paths mark the entry as most recently used.
func (c *Cache) Expensive(path collection.ItemPath) *ExpensiveEntry {
	if entry, ok := c.expensive.Get(path); ok {
		c.hit(TierExpensive)
		return entry
	}
	c.miss(TierExpensive)
	entry := &ExpensiveEntry{}
	c.addExpensive(path, entry)
	return entry
}

// PeekExpensive returns the expensive entry for path without creating one
// or changing its recency.
func (c *Cache) PeekExpensive(path collection.ItemPath) (*ExpensiveEntry, bool) {
	return c.expensive.Peek(path)
}

// StoreContent parks detached content for path in the expensive tier,
// together with the value it was last updated with. Content already parked
// under the same path is disposed first.
func (c *Cache) StoreContent(path collection.ItemPath, content rendering.Content, value any) {
	entry := c.Expensive(path)
	if entry.Content != nil && entry.Content != content {
		rendering.Dispose(entry.Content)
	}
	entry.Content = content
	entry.Value = value
}

// TakeContent removes and returns the content parked for path. The caller
// owns the returned content; it is not disposed.
func (c *Cache) TakeContent(path collection.ItemPath) (rendering.Content, bool) {
	entry, ok := c.expensive.Get(path)
	if !ok || entry.Content == nil {
		c.miss(TierExpensive)
		return nil, false
	}
	c.hit(TierExpensive)
	content := entry.Content
	entry.Content, entry.Value = nil, nil
	c.expensive.Remove(path)
	return content, true
}

func (c *Cache) addExpensive(path collection.ItemPath, entry *ExpensiveEntry) {
	var victim collection.ItemPath
	if c.expensive.Len() >= c.capacity {
		victim, _, _ = c.expensive.GetOldest()
	}
	if evicted := c.expensive.Add(path, entry); evicted {
		c.stats.Evictions++
		if c.observer != nil {
			c.observer.CacheEvicted(TierExpensive)
		}
		c.logger.Debug("listkit: evicted cached content", "path", victim)
	}
}

// InvalidatePath removes the entries for exactly path from both tiers.
func (c *Cache) InvalidatePath(path collection.ItemPath) {
	c.removeCheap(path)
	c.expensive.Remove(path)
}

// InvalidateSize marks the cheap-tier measurement for path as stale while
// keeping its attributes.
func (c *Cache) InvalidateSize(path collection.ItemPath) {
	if entry, ok := c.cheap[path]; ok {
		entry.Measured = false
		entry.Size = rendering.Size{}
	}
}

// InvalidateSection removes every entry, in both tiers, addressed under the
// section identifier. Entries of other sections are untouched.
func (c *Cache) InvalidateSection(section any) {
	for path := range c.bySection[section] {
		delete(c.cheap, path)
	}
	delete(c.bySection, section)

	for _, path := range c.expensive.Keys() {
		if path.Section == section {
			c.expensive.Remove(path)
		}
	}
}

// InvalidateAll clears both tiers.
func (c *Cache) InvalidateAll() {
	clear(c.cheap)
	clear(c.bySection)
	c.expensive.Purge()
}

func (c *Cache) removeCheap(path collection.ItemPath) {
	if _, ok := c.cheap[path]; !ok {
		return
	}
	delete(c.cheap, path)
	if paths := c.bySection[path.Section]; paths != nil {
		delete(paths, path)
		if len(paths) == 0 {
			delete(c.bySection, path.Section)
		}
	}
}

// Update accepts the newest snapshot, diffs it against the previously
// resolved one and invalidates every removed section and item. It returns
// whether the surface needs a full reload, which is the case exactly when
// the structural diff is non-empty.
func (c *Cache) Update(next collection.Snapshot) bool {
	previous := c.resolved
	c.resolved = next

	if collection.IsIdentical(previous, next) {
		c.changes = collection.Changes{}
		return false
	}
	changes := collection.Diff(previous, next)
	c.changes = changes
	if changes.IsEmpty() {
		return false
	}

	for _, section := range changes.SectionsRemoved {
		c.InvalidateSection(section)
	}
	for _, path := range changes.RemovedPaths() {
		c.InvalidatePath(path)
	}
	c.logger.Debug("listkit: cache invalidated",
		"sections_removed", len(changes.SectionsRemoved),
		"items_removed", len(changes.RemovedPaths()),
		"cheap", len(c.cheap),
		"expensive", c.expensive.Len(),
	)
	return true
}

// Changes returns the structural diff computed by the last Update.
func (c *Cache) Changes() collection.Changes {
	return c.changes
}

// Resolved returns the snapshot accepted by the last Update.
func (c *Cache) Resolved() collection.Snapshot {
	return c.resolved
}

// Len returns the number of entries in a tier.
func (c *Cache) Len(tier Tier) int {
	if tier == TierExpensive {
		return c.expensive.Len()
	}
	return len(c.cheap)
}

// Stats returns current occupancy and counters.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.CheapEntries = len(c.cheap)
	s.ExpensiveEntries = c.expensive.Len()
	s.Capacity = c.capacity
	return s
}

func (c *Cache) hit(tier Tier) {
	c.stats.Hits[tier]++
	if c.observer != nil {
		c.observer.CacheHit(tier)
	}
}

func (c *Cache) miss(tier Tier) {
	c.stats.Misses[tier]++
	if c.observer != nil {
		c.observer.CacheMiss(tier)
	}
}
