package collection

import "reflect"

// Changes is the structural difference between two snapshots: which
// section and item identifiers appeared or disappeared. Pure reordering
// produces no changes.
type Changes struct {
	SectionsInserted []any
	SectionsRemoved  []any
	// ItemsInserted and ItemsRemoved are keyed by section identifier.
	ItemsInserted map[any][]any
	ItemsRemoved  map[any][]any

	// order lists sections with item-level changes in discovery order.
	order []any
}

// IsEmpty reports whether no identifiers were inserted or removed.
func (c Changes) IsEmpty() bool {
	return len(c.SectionsInserted) == 0 &&
		len(c.SectionsRemoved) == 0 &&
		len(c.ItemsInserted) == 0 &&
		len(c.ItemsRemoved) == 0
}

// InsertedPaths returns the paths of all inserted items, including items of
// inserted sections.
func (c Changes) InsertedPaths() []ItemPath {
	return c.paths(c.ItemsInserted)
}

// RemovedPaths returns the paths of items removed from surviving sections.
// Items of removed sections are covered by SectionsRemoved.
func (c Changes) RemovedPaths() []ItemPath {
	return c.paths(c.ItemsRemoved)
}

func (c Changes) paths(bySection map[any][]any) []ItemPath {
	var paths []ItemPath
	for _, section := range c.order {
		for _, id := range bySection[section] {
			paths = append(paths, ItemPath{Section: section, Item: id})
		}
	}
	return paths
}

func (c *Changes) note(section any) {
	for _, s := range c.order {
		if s == section {
			return
		}
	}
	c.order = append(c.order, section)
}

func (c *Changes) insertItem(section, id any) {
	if c.ItemsInserted == nil {
		c.ItemsInserted = make(map[any][]any)
	}
	c.ItemsInserted[section] = append(c.ItemsInserted[section], id)
	c.note(section)
}

func (c *Changes) removeItem(section, id any) {
	if c.ItemsRemoved == nil {
		c.ItemsRemoved = make(map[any][]any)
	}
	c.ItemsRemoved[section] = append(c.ItemsRemoved[section], id)
	c.note(section)
}

// Diff computes the structural difference from old to next.
//
// Section identifiers are compared first. For every section present in next,
// item identifiers are compared against the same section in old (an
// inserted section reports all of its items as inserted). Items of removed
// sections are only reported at section level.
func Diff(old, next Snapshot) Changes {
	var changes Changes

	oldSections := make(map[any]*Section, len(old.Sections))
	for i := range old.Sections {
		if _, dup := oldSections[old.Sections[i].ID]; !dup {
			oldSections[old.Sections[i].ID] = &old.Sections[i]
		}
	}
	newSections := make(map[any]struct{}, len(next.Sections))
	for _, section := range next.Sections {
		newSections[section.ID] = struct{}{}
	}

	for _, section := range old.Sections {
		if _, ok := newSections[section.ID]; !ok && !containsID(changes.SectionsRemoved, section.ID) {
			changes.SectionsRemoved = append(changes.SectionsRemoved, section.ID)
		}
	}

	seen := make(map[any]struct{}, len(next.Sections))
	for _, section := range next.Sections {
		if _, dup := seen[section.ID]; dup {
			continue
		}
		seen[section.ID] = struct{}{}

		previous, existed := oldSections[section.ID]
		if !existed {
			changes.SectionsInserted = append(changes.SectionsInserted, section.ID)
			for _, item := range uniqueIDs(section.Items) {
				changes.insertItem(section.ID, item)
			}
			continue
		}
		diffItems(&changes, section.ID, previous.Items, section.Items)
	}
	return changes
}

func diffItems(changes *Changes, section any, old, next []Item) {
	oldIDs := idSet(old)
	newIDs := idSet(next)
	for _, id := range uniqueIDs(old) {
		if _, ok := newIDs[id]; !ok {
			changes.removeItem(section, id)
		}
	}
	for _, id := range uniqueIDs(next) {
		if _, ok := oldIDs[id]; !ok {
			changes.insertItem(section, id)
		}
	}
}

func idSet(items []Item) map[any]struct{} {
	set := make(map[any]struct{}, len(items))
	for _, item := range items {
		set[item.ID] = struct{}{}
	}
	return set
}

func uniqueIDs(items []Item) []any {
	seen := make(map[any]struct{}, len(items))
	ids := make([]any, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}
	return ids
}

func containsID(ids []any, id any) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// IsIdentical reports whether two snapshots have the same shape and the
// same identifiers in the same order. It is the per-render-pass fast path:
// when it holds, no structural work is needed. Flat snapshots share
// ImplicitSection, so their section identifiers always match.
func IsIdentical(a, b Snapshot) bool {
	if len(a.Sections) != len(b.Sections) {
		return false
	}
	if a.TotalItems() != b.TotalItems() {
		return false
	}
	for i := range a.Sections {
		sa, sb := a.Sections[i], b.Sections[i]
		if sa.ID != sb.ID || len(sa.Items) != len(sb.Items) {
			return false
		}
		for j := range sa.Items {
			if sa.Items[j].ID != sb.Items[j].ID {
				return false
			}
		}
	}
	return true
}

// Equatable lets item values define their own content equality. Values
// that do not implement it are compared with reflect.DeepEqual.
type Equatable interface {
	Equal(other any) bool
}

// ValuesEqual compares two item, header or footer values.
func ValuesEqual(a, b any) bool {
	if eq, ok := a.(Equatable); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// ContentEqual reports whether two identical-shaped snapshots also carry
// equal item, header and footer values.
func ContentEqual(a, b Snapshot) bool {
	if !IsIdentical(a, b) {
		return false
	}
	for i := range a.Sections {
		sa, sb := a.Sections[i], b.Sections[i]
		if !ValuesEqual(sa.Header, sb.Header) || !ValuesEqual(sa.Footer, sb.Footer) {
			return false
		}
		for j := range sa.Items {
			if !ValuesEqual(sa.Items[j].Value, sb.Items[j].Value) {
				return false
			}
		}
	}
	return true
}

// ChangedPaths returns the paths present in both snapshots whose values
// differ, including header and footer paths, in next's order.
func ChangedPaths(old, next Snapshot) []ItemPath {
	values := make(map[ItemPath]any, old.TotalItems())
	headers := make(map[any]Section, len(old.Sections))
	// The first occurrence of a repeated identifier wins, as in NewIndex.
	for _, section := range old.Sections {
		if _, dup := headers[section.ID]; !dup {
			headers[section.ID] = section
		}
		for _, item := range section.Items {
			path := ItemPath{Section: section.ID, Item: item.ID}
			if _, dup := values[path]; !dup {
				values[path] = item.Value
			}
		}
	}

	var changed []ItemPath
	seenSections := make(map[any]struct{}, len(next.Sections))
	seen := make(map[ItemPath]struct{}, next.TotalItems())
	for _, section := range next.Sections {
		if _, dup := seenSections[section.ID]; dup {
			continue
		}
		seenSections[section.ID] = struct{}{}
		previous, ok := headers[section.ID]
		if !ok {
			continue
		}
		if !ValuesEqual(previous.Header, section.Header) {
			changed = append(changed, HeaderPath(section.ID))
		}
		for _, item := range section.Items {
			path := ItemPath{Section: section.ID, Item: item.ID}
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			value, ok := values[path]
			if ok && !ValuesEqual(value, item.Value) {
				changed = append(changed, path)
			}
		}
		if !ValuesEqual(previous.Footer, section.Footer) {
			changed = append(changed, FooterPath(section.ID))
		}
	}
	return changed
}
