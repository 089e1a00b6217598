package collection

import (
	"github.com/go-drift/listkit/pkg/errors"
)

// Index maps item paths to positions for one snapshot.
//
// An Index is rebuilt on every update and discarded with its snapshot.
type Index struct {
	snapshot  Snapshot
	positions map[ItemPath]Position
	sections  map[any]int
}

// NewIndex builds the path and section lookup tables for a snapshot.
// When an identifier repeats, the first occurrence wins and the duplicate
// is reported.
func NewIndex(s Snapshot) *Index {
	idx := &Index{
		snapshot:  s,
		positions: make(map[ItemPath]Position, s.TotalItems()),
		sections:  make(map[any]int, len(s.Sections)),
	}
	for si, section := range s.Sections {
		if _, dup := idx.sections[section.ID]; dup {
			reportDuplicate(ItemPath{Section: section.ID})
			continue
		}
		idx.sections[section.ID] = si
		for ii, item := range section.Items {
			path := ItemPath{Section: section.ID, Item: item.ID}
			if _, dup := idx.positions[path]; dup {
				reportDuplicate(path)
				continue
			}
			idx.positions[path] = Position{Section: si, Item: ii}
		}
	}
	return idx
}

func reportDuplicate(path ItemPath) {
	errors.Report(&errors.ListError{
		Op:   "collection.NewIndex",
		Kind: errors.KindInvariant,
		Path: path,
		Err:  errors.ErrDuplicateID,
	})
}

// Snapshot returns the indexed snapshot.
func (x *Index) Snapshot() Snapshot {
	return x.snapshot
}

// PositionOf returns the current position of a path.
func (x *Index) PositionOf(path ItemPath) (Position, bool) {
	pos, ok := x.positions[path]
	return pos, ok
}

// SectionIndex returns the index of a section identifier.
func (x *Index) SectionIndex(id any) (int, bool) {
	i, ok := x.sections[id]
	return i, ok
}

// Contains reports whether the path is present in the snapshot. Header and
// footer paths are present whenever their section is.
func (x *Index) Contains(path ItemPath) bool {
	if path.IsSupplementary() {
		_, ok := x.sections[path.Section]
		return ok
	}
	_, ok := x.positions[path]
	return ok
}

// PathAt resolves the item path at a position.
func (x *Index) PathAt(pos Position) (ItemPath, bool) {
	return x.snapshot.PathAt(pos)
}

// ItemAt returns the item at a position.
func (x *Index) ItemAt(pos Position) (Item, bool) {
	return x.snapshot.ItemAt(pos)
}

// SectionCount returns the number of sections.
func (x *Index) SectionCount() int {
	return x.snapshot.SectionCount()
}

// ItemCount returns the number of items in a section.
func (x *Index) ItemCount(section int) int {
	return x.snapshot.ItemCount(section)
}
