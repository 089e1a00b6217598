package container

import (
	"sort"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/reuse"
)

// frame is one slot's vertical extent in content coordinates.
type frame struct {
	target reuse.Target
	path   collection.ItemPath
	origin float64
	extent float64
}

func (f frame) end() float64 { return f.origin + f.extent }

// layout stacks every slot of the snapshot top to bottom: each section's
// header, its items, then its footer. Extents come from estimated sizes so
// computing a layout never builds content.
type layout struct {
	frames []frame
	height float64
}

func (c *Container) computeLayout() layout {
	var l layout
	add := func(target reuse.Target, path collection.ItemPath) {
		size := c.coordinator.EstimatedSize(target.Kind, target.Position)
		if size.Height <= 0 {
			return
		}
		l.frames = append(l.frames, frame{target: target, path: path, origin: l.height, extent: size.Height})
		l.height += size.Height
	}

	for s, section := range c.coordinator.Snapshot().Sections {
		if section.Header != nil {
			add(reuse.Target{Kind: reuse.KindHeader, Position: collection.Position{Section: s}},
				collection.HeaderPath(section.ID))
		}
		for i, item := range section.Items {
			add(reuse.Target{Kind: reuse.KindItem, Position: collection.Position{Section: s, Item: i}},
				collection.ItemPath{Section: section.ID, Item: item.ID})
		}
		if section.Footer != nil {
			add(reuse.Target{Kind: reuse.KindFooter, Position: collection.Position{Section: s}},
				collection.FooterPath(section.ID))
		}
	}
	return l
}

// firstVisible returns the first frame that extends past offset.
func (l layout) firstVisible(offset float64) (frame, bool) {
	i := sort.Search(len(l.frames), func(i int) bool {
		return l.frames[i].end() > offset
	})
	if i == len(l.frames) {
		return frame{}, false
	}
	return l.frames[i], true
}

func (l layout) originOf(path collection.ItemPath) (float64, bool) {
	for _, f := range l.frames {
		if f.path == path {
			return f.origin, true
		}
	}
	return 0, false
}

func (l layout) frameOf(target reuse.Target) (frame, bool) {
	for _, f := range l.frames {
		if f.target == target {
			return f, true
		}
	}
	return frame{}, false
}

// visible returns the slots intersecting [offset, offset+extent).
func (l layout) visible(offset, extent float64) []reuse.Target {
	if extent <= 0 {
		return nil
	}
	start := sort.Search(len(l.frames), func(i int) bool {
		return l.frames[i].end() > offset
	})
	var out []reuse.Target
	for _, f := range l.frames[start:] {
		if f.origin >= offset+extent {
			break
		}
		out = append(out, f.target)
	}
	return out
}

// anchor remembers which item sat at the top of the viewport before a
// reload and where it was.
type anchor struct {
	path          collection.ItemPath
	origin        float64
	contentHeight float64
	valid         bool
}

func (c *Container) captureAnchor() anchor {
	l := c.computeLayout()
	a := anchor{contentHeight: l.height}
	if f, ok := l.firstVisible(c.surface.ContentOffset().Y); ok {
		a.path, a.origin, a.valid = f.path, f.origin, true
	}
	return a
}

// restoreAnchor keeps the anchored item at the same place on screen. When
// the anchor is gone the offset follows the content only if it shrank.
// The result is clamped to the scrollable range.
func (c *Container) restoreAnchor(a anchor) {
	l := c.computeLayout()
	current := c.surface.ContentOffset()
	y := current.Y
	if origin, ok := l.originOf(a.path); a.valid && ok {
		y += origin - a.origin
	} else if l.height < a.contentHeight {
		y += l.height - a.contentHeight
	}
	y = clampOffset(y, l.height, c.surface.ViewportSize().Height)
	if y != current.Y {
		c.logger.Debug("listkit: scroll anchored", "from", current.Y, "to", y, "anchor", a.path)
		current.Y = y
		c.surface.SetContentOffset(current)
	}
}

func clampOffset(y, contentHeight, viewportHeight float64) float64 {
	maxY := contentHeight - viewportHeight
	if y > maxY {
		y = maxY
	}
	if y < 0 {
		y = 0
	}
	return y
}
