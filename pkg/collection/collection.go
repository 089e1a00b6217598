// Package collection models the sectioned, identity-tracked input of a list
// and computes structural differences between two snapshots of it.
//
// Every section and item carries an identifier. Identifiers must be
// comparable values; they are used as map keys. An ItemPath (section ID,
// item ID) is the stable address of a logical item and is what every cache
// in listkit is keyed by. A Position (section index, item index) is only
// valid for the snapshot it was computed from.
package collection

import "fmt"

// ItemPath addresses a logical item independent of where it is displayed.
type ItemPath struct {
	Section any
	Item    any
}

func (p ItemPath) String() string {
	return fmt.Sprintf("%v/%v", p.Section, p.Item)
}

// Position is a visual (section index, item index) pair. It is recomputed
// on every update and must never be stored as a cache key.
type Position struct {
	Section int
	Item    int
}

func (p Position) String() string {
	return fmt.Sprintf("[%d:%d]", p.Section, p.Item)
}

// Item is one identified element of a section. Value is the opaque state
// handed to the item's content-producing function.
type Item struct {
	ID    any
	Value any
}

// Section is an identified, ordered group of items with optional header
// and footer values.
type Section struct {
	ID     any
	Items  []Item
	Header any
	Footer any
}

// Snapshot is one render pass's view of the whole collection.
type Snapshot struct {
	Sections []Section
}

type implicitSection struct{}

// ImplicitSection is the section identifier used by Flat snapshots.
var ImplicitSection any = implicitSection{}

// Flat builds a snapshot with a single implicit section.
func Flat(items ...Item) Snapshot {
	return Snapshot{Sections: []Section{{ID: ImplicitSection, Items: items}}}
}

// Items builds items whose values are the identifiers themselves.
func Items(ids ...any) []Item {
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{ID: id, Value: id}
	}
	return items
}

// IsFlat reports whether the snapshot has no real sections.
func (s Snapshot) IsFlat() bool {
	return len(s.Sections) == 1 && s.Sections[0].ID == ImplicitSection
}

// SectionCount returns the number of sections.
func (s Snapshot) SectionCount() int {
	return len(s.Sections)
}

// ItemCount returns the number of items in the section at index, or 0 when
// the index is out of range.
func (s Snapshot) ItemCount(section int) int {
	if section < 0 || section >= len(s.Sections) {
		return 0
	}
	return len(s.Sections[section].Items)
}

// TotalItems returns the number of items across all sections.
func (s Snapshot) TotalItems() int {
	total := 0
	for _, section := range s.Sections {
		total += len(section.Items)
	}
	return total
}

// ItemAt returns the item at a position.
func (s Snapshot) ItemAt(pos Position) (Item, bool) {
	if pos.Section < 0 || pos.Section >= len(s.Sections) {
		return Item{}, false
	}
	items := s.Sections[pos.Section].Items
	if pos.Item < 0 || pos.Item >= len(items) {
		return Item{}, false
	}
	return items[pos.Item], true
}

// SectionAt returns the section at index.
func (s Snapshot) SectionAt(index int) (Section, bool) {
	if index < 0 || index >= len(s.Sections) {
		return Section{}, false
	}
	return s.Sections[index], true
}

// PathAt resolves the item path at a position.
func (s Snapshot) PathAt(pos Position) (ItemPath, bool) {
	item, ok := s.ItemAt(pos)
	if !ok {
		return ItemPath{}, false
	}
	return ItemPath{Section: s.Sections[pos.Section].ID, Item: item.ID}, true
}

type supplementaryID int

const (
	headerID supplementaryID = iota + 1
	footerID
)

func (id supplementaryID) String() string {
	if id == headerID {
		return "<header>"
	}
	return "<footer>"
}

// HeaderPath returns the path under which a section header is cached.
func HeaderPath(section any) ItemPath {
	return ItemPath{Section: section, Item: headerID}
}

// FooterPath returns the path under which a section footer is cached.
func FooterPath(section any) ItemPath {
	return ItemPath{Section: section, Item: footerID}
}

// IsSupplementary reports whether the path addresses a header or footer.
func (p ItemPath) IsSupplementary() bool {
	_, ok := p.Item.(supplementaryID)
	return ok
}
