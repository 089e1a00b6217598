package reuse

import (
	"fmt"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/errors"
	"github.com/go-drift/listkit/pkg/rendering"
)

// Kind distinguishes item cells from section supplementary cells.
type Kind int

const (
	KindItem Kind = iota
	KindHeader
	KindFooter
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindFooter:
		return "footer"
	default:
		return "item"
	}
}

// CellState is a cell's position in its reuse lifecycle.
type CellState int

const (
	// StateFree cells sit in the pool with no content.
	StateFree CellState = iota
	// StatePrepared cells have resolved an item path but are not bound yet.
	StatePrepared
	// StateInUse cells are bound to content and shown by the surface.
	StateInUse
	// StatePendingReuse cells left the viewport; their content is released
	// on the next cycle boundary.
	StatePendingReuse
)

func (s CellState) String() string {
	switch s {
	case StatePrepared:
		return "preparedForUse"
	case StateInUse:
		return "inUse"
	case StatePendingReuse:
		return "pendingReuse"
	default:
		return "free"
	}
}

// next is the only legal successor of each state.
var next = [...]CellState{
	StateFree:         StatePrepared,
	StatePrepared:     StateInUse,
	StateInUse:        StatePendingReuse,
	StatePendingReuse: StateFree,
}

// Target addresses one cell slot on the surface.
type Target struct {
	Kind     Kind
	Position collection.Position
}

func (t Target) String() string {
	return fmt.Sprintf("%s%s", t.Kind, t.Position)
}

// targetFor normalizes supplementary positions to item index 0.
func targetFor(kind Kind, pos collection.Position) Target {
	if kind != KindItem {
		pos.Item = 0
	}
	return Target{Kind: kind, Position: pos}
}

// Cell is one visual cell of the recycled pool.
type Cell struct {
	id         int
	kind       Kind
	state      CellState
	path       collection.ItemPath
	target     Target
	value      any
	content    rendering.Content
	generation uint64
	report     func(rendering.Size)
}

// ID returns the cell's pool identifier.
func (c *Cell) ID() int { return c.id }

// Kind returns the kind of slot the cell was last prepared for.
func (c *Cell) Kind() Kind { return c.kind }

// State returns the cell's lifecycle state.
func (c *Cell) State() CellState { return c.state }

// Path returns the item path the cell is bound to.
func (c *Cell) Path() collection.ItemPath { return c.path }

// Position returns the position the cell was last bound at.
func (c *Cell) Position() collection.Position { return c.target.Position }

// Value returns the payload value the content was last updated with.
func (c *Cell) Value() any { return c.value }

// Content returns the hosted content, or nil for a free cell.
func (c *Cell) Content() rendering.Content { return c.content }

// Generation returns the reuse stamp. It increases every time the cell is
// prepared for a new use.
func (c *Cell) Generation() uint64 { return c.generation }

// SizeReporter returns the callback content uses to report a new size for
// the current binding. Reports made through a callback obtained before the
// cell was reused are ignored.
func (c *Cell) SizeReporter() func(rendering.Size) {
	if c.report == nil {
		return func(rendering.Size) {}
	}
	return c.report
}

func (c *Cell) String() string {
	return fmt.Sprintf("cell#%d(%s %s %v gen=%d)", c.id, c.state, c.target, c.path, c.generation)
}

// transition moves the cell to the next lifecycle state. Any other move is
// an invariant violation and leaves the cell unchanged.
func (c *Cell) transition(to CellState) bool {
	if next[c.state] != to {
		errors.Invariant("reuse.transition", c.path,
			fmt.Errorf("%w: %s -> %s", errors.ErrIllegalTransition, c.state, to))
		return false
	}
	c.state = to
	return true
}

// placeholderCell is handed out for positions that do not resolve. It is
// never pooled.
func placeholderCell(target Target) *Cell {
	return &Cell{
		id:      -1,
		kind:    target.Kind,
		state:   StateInUse,
		target:  target,
		content: rendering.EmptyContent{},
	}
}
