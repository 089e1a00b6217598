package reuse

import (
	"time"

	"github.com/go-drift/listkit/pkg/collection"
)

// Phase is the coordinator's position in an update cycle.
//
//	Idle -> Comparing -> NoChange -> Idle
//	Idle -> Comparing -> ContentOnly -> Refreshing -> Idle
//	Idle -> Comparing -> Structural -> Invalidating -> Reloading -> Idle
//
// The cycle returns to Idle when EndCycle runs.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseComparing
	PhaseNoChange
	PhaseContentOnly
	PhaseRefreshing
	PhaseStructural
	PhaseInvalidating
	PhaseReloading
)

var phaseNames = [...]string{
	PhaseIdle:         "idle",
	PhaseComparing:    "comparing",
	PhaseNoChange:     "noChange",
	PhaseContentOnly:  "contentOnly",
	PhaseRefreshing:   "refreshing",
	PhaseStructural:   "structural",
	PhaseInvalidating: "invalidating",
	PhaseReloading:    "reloading",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// UpdateKind classifies what an update requires of the surface.
type UpdateKind int

const (
	// UpdateNoChange needs nothing.
	UpdateNoChange UpdateKind = iota
	// UpdateContentOnly keeps the structure; visible cells are refreshed in
	// place.
	UpdateContentOnly
	// UpdateStructural needs a full reload.
	UpdateStructural
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateContentOnly:
		return "contentOnly"
	case UpdateStructural:
		return "structural"
	default:
		return "noChange"
	}
}

// Outcome reports what an Update did and what the surface has to do next.
type Outcome struct {
	Kind UpdateKind
	// Changes is the structural diff against the previous snapshot.
	Changes collection.Changes
	// Refreshed lists the visible slots whose cells were rebound in place.
	// Only set for content-only updates.
	Refreshed []Target
	// Phases is the sequence of phases the update passed through.
	Phases   []Phase
	Duration time.Duration
}

// Observer receives coordinator events. Implementations must be cheap; they
// run on the UI thread.
type Observer interface {
	UpdateCompleted(kind UpdateKind, duration time.Duration)
	// ContentBound reports how a cell got its content: reattached from the
	// cache or a rescued cell, or freshly built.
	ContentBound(kind Kind, reattached bool)
	CellsChanged(live, pending, free int)
	InvalidationFlushed(n int)
}
