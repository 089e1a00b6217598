package testing

import (
	"strconv"

	"github.com/go-drift/listkit/pkg/collection"
)

// Rows builds a flat snapshot whose items all have the given height.
func Rows(height int, ids ...string) collection.Snapshot {
	return collection.Flat(RowItems(height, ids...)...)
}

// RowItems builds items whose value is their height.
func RowItems(height int, ids ...string) []collection.Item {
	items := make([]collection.Item, len(ids))
	for i, id := range ids {
		items[i] = collection.Item{ID: id, Value: height}
	}
	return items
}

// RowIDs returns n identifiers with the given prefix: prefix0, prefix1, ...
func RowIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = prefix + strconv.Itoa(i)
	}
	return ids
}

// Sections builds a snapshot from sections.
func Sections(sections ...collection.Section) collection.Snapshot {
	return collection.Snapshot{Sections: sections}
}

// Section builds a section of rows with the given height.
func Section(id any, height int, ids ...string) collection.Section {
	return collection.Section{ID: id, Items: RowItems(height, ids...)}
}

// WithValue returns a copy of s in which every item with the given
// identifier carries value.
func WithValue(s collection.Snapshot, id any, value any) collection.Snapshot {
	out := collection.Snapshot{Sections: make([]collection.Section, len(s.Sections))}
	for i, section := range s.Sections {
		section.Items = append([]collection.Item(nil), section.Items...)
		for j := range section.Items {
			if section.Items[j].ID == id {
				section.Items[j].Value = value
			}
		}
		out.Sections[i] = section
	}
	return out
}
