package reuse

// InvalidationContext accumulates the cell slots whose measured size
// changed during one update cycle. The coordinator flushes it once at the
// cycle boundary so the surface performs a single layout pass for all of
// them.
type InvalidationContext struct {
	order []Target
	seen  map[Target]struct{}
}

// NewInvalidationContext returns an empty context.
func NewInvalidationContext() *InvalidationContext {
	return &InvalidationContext{seen: make(map[Target]struct{})}
}

// Insert records a slot. Repeated inserts are ignored.
func (x *InvalidationContext) Insert(t Target) {
	if _, ok := x.seen[t]; ok {
		return
	}
	x.seen[t] = struct{}{}
	x.order = append(x.order, t)
}

// Contains reports whether the slot was recorded this cycle.
func (x *InvalidationContext) Contains(t Target) bool {
	_, ok := x.seen[t]
	return ok
}

// Len returns the number of recorded slots.
func (x *InvalidationContext) Len() int {
	return len(x.order)
}

// Flush returns the recorded slots in insertion order and clears the
// context.
func (x *InvalidationContext) Flush() []Target {
	if len(x.order) == 0 {
		return nil
	}
	out := x.order
	x.order = nil
	clear(x.seen)
	return out
}
