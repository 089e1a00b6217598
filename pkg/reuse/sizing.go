package reuse

import (
	"fmt"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/errors"
	"github.com/go-drift/listkit/pkg/rendering"
)

// Size resolves the size of the slot at pos. Resolution stops at the first
// source that answers:
//
//  1. fixed sizing
//  2. custom sizing
//  3. a size cached in the cheap tier
//  4. measuring the item's content, whose result is cached
//
// Headers and footers skip the first two. A measurement with zero area
// yields the 1x1 placeholder, which is not cached. A position that does
// not resolve is an invariant violation and also yields the placeholder.
func (c *Coordinator) Size(kind Kind, pos collection.Position, proposal rendering.Size) rendering.Size {
	target := targetFor(kind, pos)
	s := strategyFor(kind)
	path, value, ok := s.resolve(c.index, target.Position)
	if !ok {
		errors.Invariant("reuse.Size", target,
			fmt.Errorf("%w: %s", errors.ErrUnresolvedPosition, target))
		return rendering.Placeholder
	}
	if size, ok := s.preset(c.prefs, target.Position, value); ok {
		return size
	}
	entry := c.cache.Cheap(path)
	if entry.Measured {
		return entry.Size
	}
	size := c.measure(target, path, value, proposal)
	if size.IsEmpty() {
		return rendering.Placeholder
	}
	entry.SetSize(size)
	return size
}

// EstimatedSize returns a size for the slot without measuring: a preset or
// cached size when known, the configured estimate otherwise.
func (c *Coordinator) EstimatedSize(kind Kind, pos collection.Position) rendering.Size {
	target := targetFor(kind, pos)
	s := strategyFor(kind)
	path, value, ok := s.resolve(c.index, target.Position)
	if !ok {
		return rendering.Placeholder
	}
	if size, ok := s.preset(c.prefs, target.Position, value); ok {
		return size
	}
	if entry, ok := c.cache.PeekCheap(path); ok && entry.Measured {
		return entry.Size
	}
	return c.prefs.EstimatedItemSize
}

// RecordSize stores a size reported by the surface for the slot at pos. A
// size that differs from the cached one adds the slot to the invalidation
// context.
func (c *Coordinator) RecordSize(kind Kind, pos collection.Position, size rendering.Size) {
	target := targetFor(kind, pos)
	path, _, ok := strategyFor(kind).resolve(c.index, target.Position)
	if !ok {
		errors.Invariant("reuse.RecordSize", target,
			fmt.Errorf("%w: %s", errors.ErrUnresolvedPosition, target))
		return
	}
	c.record(target, path, size)
}

// record caches a reported size. A report with zero area is not a usable
// size: it drops any cached measurement so the slot is measured again.
func (c *Coordinator) record(target Target, path collection.ItemPath, size rendering.Size) {
	if size.IsEmpty() {
		if entry, ok := c.cache.PeekCheap(path); ok && entry.Measured {
			c.cache.InvalidateSize(path)
			c.invalidation.Insert(target)
		}
		return
	}
	if c.cache.Cheap(path).SetSize(size) {
		c.invalidation.Insert(target)
	}
}

// measure sizes the item's content. It prefers content that already exists:
// the live cell's, then content parked in the expensive tier, which is
// brought up to date with value first. Otherwise the content is built for
// the measurement and handed to the hosting policy afterwards, so detached
// hosting can reattach it when the item is shown.
func (c *Coordinator) measure(target Target, path collection.ItemPath, value any, proposal rendering.Size) rendering.Size {
	var content rendering.Content
	transient := false
	if cell, ok := c.live[target]; ok && cell.path == path {
		content = cell.content
	} else if entry, ok := c.cache.PeekExpensive(path); ok && entry.Content != nil {
		if !collection.ValuesEqual(entry.Value, value) {
			updateContent(entry.Content, value)
			entry.Value = value
		}
		content = entry.Content
	} else {
		content = c.build(target.Kind, value)
		transient = true
	}
	if transient {
		defer c.park(path, content, value)
	}

	m, ok := content.(rendering.Measurer)
	if !ok {
		return rendering.Size{}
	}
	return measureContent(m, proposal)
}

func measureContent(m rendering.Measurer, proposal rendering.Size) (size rendering.Size) {
	defer errors.RecoverWithCallback("reuse.measure", func(any) {
		size = rendering.Size{}
	})
	return m.Measure(proposal)
}
