package reuse

import (
	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/prefs"
	"github.com/go-drift/listkit/pkg/rendering"
)

// ContentFunc produces content for a payload value. It is called once per
// logical item and may be called again after the item's content was
// disposed or evicted.
type ContentFunc func(value any) rendering.Content

// Builders holds the content-producing functions for each cell kind. A nil
// Header or Footer builder renders those cells empty.
type Builders struct {
	Item   ContentFunc
	Header ContentFunc
	Footer ContentFunc
}

// strategy captures everything that differs between item, header and
// footer cells. The coordinator's state machine is shared by all three.
type strategy interface {
	// resolve maps a position to the cell's path and current value.
	resolve(index *collection.Index, pos collection.Position) (collection.ItemPath, any, bool)
	// preset returns a size that bypasses measurement.
	preset(p prefs.Preferences, pos collection.Position, value any) (rendering.Size, bool)
	builder(b Builders) ContentFunc
}

func strategyFor(kind Kind) strategy {
	switch kind {
	case KindHeader:
		return headerStrategy{}
	case KindFooter:
		return footerStrategy{}
	default:
		return itemStrategy{}
	}
}

type itemStrategy struct{}

func (itemStrategy) resolve(index *collection.Index, pos collection.Position) (collection.ItemPath, any, bool) {
	item, ok := index.ItemAt(pos)
	if !ok {
		return collection.ItemPath{}, nil, false
	}
	path, _ := index.PathAt(pos)
	return path, item.Value, true
}

func (itemStrategy) preset(p prefs.Preferences, pos collection.Position, _ any) (rendering.Size, bool) {
	switch p.Sizing.Kind {
	case prefs.SizingFixed:
		return p.Sizing.Fixed, true
	case prefs.SizingCustom:
		if p.Sizing.Custom == nil {
			break
		}
		if size := p.Sizing.Custom(pos); !size.IsEmpty() {
			return size, true
		}
		return rendering.Placeholder, true
	}
	return rendering.Size{}, false
}

func (itemStrategy) builder(b Builders) ContentFunc { return b.Item }

type headerStrategy struct{}

func (headerStrategy) resolve(index *collection.Index, pos collection.Position) (collection.ItemPath, any, bool) {
	section, ok := index.Snapshot().SectionAt(pos.Section)
	if !ok {
		return collection.ItemPath{}, nil, false
	}
	return collection.HeaderPath(section.ID), section.Header, true
}

// Absent supplementary values take no space.
func (headerStrategy) preset(_ prefs.Preferences, _ collection.Position, value any) (rendering.Size, bool) {
	return rendering.Size{}, value == nil
}

func (headerStrategy) builder(b Builders) ContentFunc { return b.Header }

type footerStrategy struct{}

func (footerStrategy) resolve(index *collection.Index, pos collection.Position) (collection.ItemPath, any, bool) {
	section, ok := index.Snapshot().SectionAt(pos.Section)
	if !ok {
		return collection.ItemPath{}, nil, false
	}
	return collection.FooterPath(section.ID), section.Footer, true
}

func (footerStrategy) preset(_ prefs.Preferences, _ collection.Position, value any) (rendering.Size, bool) {
	return rendering.Size{}, value == nil
}

func (footerStrategy) builder(b Builders) ContentFunc { return b.Footer }
