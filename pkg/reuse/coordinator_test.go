package reuse

import (
	"context"
	"testing"

	"github.com/go-drift/listkit/pkg/cache"
	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/errors"
	"github.com/go-drift/listkit/pkg/prefs"
	"github.com/go-drift/listkit/pkg/rendering"
)

// fakeContent measures to its value when the value is an int height.
type fakeContent struct {
	id       int
	value    any
	updates  int
	measures int
	disposed bool
	report   func(rendering.Size)
}

func (f *fakeContent) Update(value any) {
	f.value = value
	f.updates++
}

func (f *fakeContent) Dispose() { f.disposed = true }

func (f *fakeContent) Measure(rendering.Size) rendering.Size {
	f.measures++
	if h, ok := f.value.(int); ok {
		return rendering.Size{Width: 100, Height: float64(h)}
	}
	return rendering.Size{}
}

func (f *fakeContent) SetSizeReporter(report func(rendering.Size)) { f.report = report }

type factory struct {
	built []*fakeContent
}

func (f *factory) build(value any) rendering.Content {
	c := &fakeContent{id: len(f.built) + 1, value: value}
	f.built = append(f.built, c)
	return c
}

func (f *factory) measures() int {
	n := 0
	for _, c := range f.built {
		n += c.measures
	}
	return n
}

type captureHandler struct {
	errs   []*errors.ListError
	panics []*errors.PanicError
}

func (h *captureHandler) HandleError(err *errors.ListError)   { h.errs = append(h.errs, err) }
func (h *captureHandler) HandlePanic(err *errors.PanicError) { h.panics = append(h.panics, err) }

func capture(t *testing.T) *captureHandler {
	t.Helper()
	h := &captureHandler{}
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return h
}

func newTestCoordinator(t *testing.T, p prefs.Preferences) (*Coordinator, *factory) {
	t.Helper()
	f := &factory{}
	c, err := New(p, Builders{Item: f.build, Header: f.build, Footer: f.build})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c, f
}

func detached() prefs.Preferences {
	p := prefs.Default()
	p.Hosting = prefs.HostingDetachedOnReuse
	return p
}

func list(ids ...string) collection.Snapshot {
	items := make([]collection.Item, len(ids))
	for i, id := range ids {
		items[i] = collection.Item{ID: id, Value: 20}
	}
	return collection.Flat(items...)
}

func withValue(s collection.Snapshot, id string, value any) collection.Snapshot {
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

func pos(item int) collection.Position {
	return collection.Position{Section: 0, Item: item}
}

func path(id string) collection.ItemPath {
	return collection.ItemPath{Section: collection.ImplicitSection, Item: id}
}

func load(t *testing.T, c *Coordinator, s collection.Snapshot) {
	t.Helper()
	c.Update(context.Background(), s)
	c.EndCycle()
}

func TestDequeue_ReturnsLiveCellForSameItem(t *testing.T) {
	c, f := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b"))

	cell := c.Dequeue(KindItem, pos(0))
	if cell.State() != StateInUse {
		t.Errorf("state = %v, want inUse", cell.State())
	}
	if cell.Path() != path("a") {
		t.Errorf("path = %v, want a", cell.Path())
	}
	if again := c.Dequeue(KindItem, pos(0)); again != cell {
		t.Error("dequeuing a live slot again should return the same cell")
	}
	if len(f.built) != 1 {
		t.Errorf("built %d contents, want 1", len(f.built))
	}
}

func TestDetachedOnReuse_ReattachesContentOnScrollBack(t *testing.T) {
	c, f := newTestCoordinator(t, detached())
	load(t, c, list("a", "b", "c", "d", "e", "f"))

	first := c.Dequeue(KindItem, pos(0))
	content := first.Content()
	c.EndDisplay(KindItem, pos(0))
	if first.State() != StatePendingReuse {
		t.Fatalf("state after EndDisplay = %v, want pendingReuse", first.State())
	}
	c.EndCycle()
	if first.State() != StateFree {
		t.Fatalf("state after EndCycle = %v, want free", first.State())
	}
	if _, ok := c.Cache().PeekExpensive(path("a")); !ok {
		t.Fatal("detached content should be parked in the expensive tier")
	}

	other := c.Dequeue(KindItem, pos(5))
	if other != first {
		t.Error("free cell should be reused")
	}
	c.EndDisplay(KindItem, pos(5))
	c.EndCycle()

	back := c.Dequeue(KindItem, pos(0))
	if back.Content() != content {
		t.Error("scrolling back should reattach the parked content")
	}
	if len(f.built) != 2 {
		t.Errorf("built %d contents, want 2", len(f.built))
	}
	if content.(*fakeContent).disposed {
		t.Error("reattached content must not be disposed")
	}
}

func TestAutoLayout_DisposesReleasedContent(t *testing.T) {
	c, f := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b"))

	c.Dequeue(KindItem, pos(0))
	c.EndDisplay(KindItem, pos(0))
	c.EndCycle()

	if !f.built[0].disposed {
		t.Error("autoLayout hosting should dispose released content")
	}
	if c.Cache().Len(cache.TierExpensive) != 0 {
		t.Error("autoLayout hosting should not park content")
	}
	c.Dequeue(KindItem, pos(0))
	if len(f.built) != 2 {
		t.Errorf("built %d contents, want 2", len(f.built))
	}
}

func TestDequeue_RescuesPendingCell(t *testing.T) {
	c, f := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b"))

	cell := c.Dequeue(KindItem, pos(0))
	gen := cell.Generation()
	content := cell.Content()
	c.EndDisplay(KindItem, pos(0))

	rescued := c.Dequeue(KindItem, pos(0))
	if rescued != cell || rescued.Content() != content {
		t.Fatal("pending cell holding the item should be rescued with its content")
	}
	if rescued.Generation() <= gen {
		t.Errorf("generation = %d, want > %d", rescued.Generation(), gen)
	}

	c.EndCycle()
	if cell.State() != StateInUse || cell.Content() == nil {
		t.Error("stale release task must not free a rescued cell")
	}
	if f.built[0].disposed || len(f.built) != 1 {
		t.Error("rescued content must be kept")
	}
}

func TestSizeReporter_DropsStaleGeneration(t *testing.T) {
	c, _ := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b"))

	cell := c.Dequeue(KindItem, pos(0))
	stale := cell.Content().(*fakeContent).report
	c.EndDisplay(KindItem, pos(0))
	stale(rendering.Size{Width: 100, Height: 99})
	c.EndCycle()

	if reused := c.Dequeue(KindItem, pos(1)); reused != cell {
		t.Fatal("expected the freed cell to be reused")
	}
	stale(rendering.Size{Width: 100, Height: 99})
	if got := c.EndCycle(); len(got) != 0 {
		t.Errorf("stale reports should be dropped, got invalidations %v", got)
	}

	fresh := cell.Content().(*fakeContent).report
	fresh(rendering.Size{Width: 100, Height: 99})
	got := c.EndCycle()
	want := Target{Kind: KindItem, Position: pos(1)}
	if len(got) != 1 || got[0] != want {
		t.Errorf("invalidations = %v, want [%v]", got, want)
	}
}

func TestSize_ResolutionOrder(t *testing.T) {
	custom := func(p collection.Position) rendering.Size {
		return rendering.Size{Width: 10, Height: float64(p.Item*10 + 5)}
	}
	tests := []struct {
		name       string
		prefs      prefs.Preferences
		item       int
		want       rendering.Size
		wantBuilds int
	}{
		{"fixed", prefs.Preferences{Sizing: prefs.FixedSizing(50, 30)}, 1, rendering.Size{Width: 50, Height: 30}, 0},
		{"custom", prefs.Preferences{Sizing: prefs.CustomSizing(custom)}, 2, rendering.Size{Width: 10, Height: 25}, 0},
		{"auto measures", prefs.Default(), 0, rendering.Size{Width: 100, Height: 20}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := newTestCoordinator(t, tt.prefs)
			load(t, c, list("a", "b", "c"))

			for range 2 {
				if got := c.Size(KindItem, pos(tt.item), rendering.Size{Width: 100}); got != tt.want {
					t.Errorf("Size() = %v, want %v", got, tt.want)
				}
			}
			if len(f.built) != tt.wantBuilds {
				t.Errorf("built %d contents, want %d", len(f.built), tt.wantBuilds)
			}
			if f.measures() > 1 {
				t.Errorf("measured %d times, want at most 1", f.measures())
			}
		})
	}
}

func TestSize_ZeroMeasurementYieldsPlaceholder(t *testing.T) {
	c, _ := newTestCoordinator(t, prefs.Default())
	load(t, c, withValue(list("a"), "a", "not a height"))

	if got := c.Size(KindItem, pos(0), rendering.Size{Width: 100}); got != rendering.Placeholder {
		t.Errorf("Size() = %v, want placeholder", got)
	}
	if entry, ok := c.Cache().PeekCheap(path("a")); ok && entry.Measured {
		t.Error("placeholder must not be cached as a measurement")
	}
}

func TestSize_SupplementaryIgnoreItemSizing(t *testing.T) {
	c, _ := newTestCoordinator(t, prefs.Preferences{Sizing: prefs.FixedSizing(50, 30)})
	load(t, c, collection.Snapshot{Sections: []collection.Section{{
		ID:     "s",
		Items:  collection.Items("a"),
		Header: 12,
	}}})

	if got := c.Size(KindHeader, pos(0), rendering.Size{Width: 100}); got != (rendering.Size{Width: 100, Height: 12}) {
		t.Errorf("header Size() = %v, want measured 100x12", got)
	}
	if got := c.Size(KindFooter, pos(0), rendering.Size{Width: 100}); !got.IsEmpty() || got == rendering.Placeholder {
		t.Errorf("absent footer Size() = %v, want zero", got)
	}
}

func TestSize_UnresolvedPositionReported(t *testing.T) {
	h := capture(t)
	c, _ := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a"))

	if got := c.Size(KindItem, pos(7), rendering.Size{Width: 100}); got != rendering.Placeholder {
		t.Errorf("Size() = %v, want placeholder", got)
	}
	if len(h.errs) != 1 || !errors.Is(h.errs[0], errors.ErrUnresolvedPosition) {
		t.Errorf("reported %v, want one ErrUnresolvedPosition", h.errs)
	}
	if cell := c.Dequeue(KindItem, pos(7)); cell.Content() == nil {
		t.Error("unresolved Dequeue should return placeholder content")
	}
}

func TestRecordSize_BatchesInvalidation(t *testing.T) {
	c, _ := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b", "c"))
	c.Size(KindItem, pos(0), rendering.Size{Width: 100})
	c.Size(KindItem, pos(1), rendering.Size{Width: 100})

	c.RecordSize(KindItem, pos(0), rendering.Size{Width: 100, Height: 20})
	c.RecordSize(KindItem, pos(1), rendering.Size{Width: 100, Height: 40})
	c.RecordSize(KindItem, pos(2), rendering.Size{Width: 100, Height: 10})
	c.RecordSize(KindItem, pos(1), rendering.Size{Width: 100, Height: 50})

	got := c.EndCycle()
	want := []Target{{KindItem, pos(1)}, {KindItem, pos(2)}}
	if len(got) != len(want) {
		t.Fatalf("invalidations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("invalidations[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if again := c.EndCycle(); len(again) != 0 {
		t.Errorf("second flush = %v, want empty", again)
	}
}

func TestUpdate_Outcomes(t *testing.T) {
	base := list("a", "b", "c")
	tests := []struct {
		name   string
		next   collection.Snapshot
		kind   UpdateKind
		phases []Phase
	}{
		{"identical", list("a", "b", "c"), UpdateNoChange,
			[]Phase{PhaseComparing, PhaseNoChange, PhaseIdle}},
		{"value changed", withValue(base, "b", 40), UpdateContentOnly,
			[]Phase{PhaseComparing, PhaseContentOnly, PhaseRefreshing}},
		{"reorder", list("c", "a", "b"), UpdateContentOnly,
			[]Phase{PhaseComparing, PhaseContentOnly, PhaseRefreshing}},
		{"insert", list("a", "b", "c", "d"), UpdateStructural,
			[]Phase{PhaseComparing, PhaseStructural, PhaseInvalidating, PhaseReloading}},
		{"remove", list("a", "c"), UpdateStructural,
			[]Phase{PhaseComparing, PhaseStructural, PhaseInvalidating, PhaseReloading}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator(t, prefs.Default())
			load(t, c, base)

			out := c.Update(context.Background(), tt.next)
			if out.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.kind)
			}
			if len(out.Phases) != len(tt.phases) {
				t.Fatalf("Phases = %v, want %v", out.Phases, tt.phases)
			}
			for i := range tt.phases {
				if out.Phases[i] != tt.phases[i] {
					t.Errorf("Phases[%d] = %v, want %v", i, out.Phases[i], tt.phases[i])
				}
			}
			c.EndCycle()
			if c.Phase() != PhaseIdle {
				t.Errorf("Phase after EndCycle = %v, want idle", c.Phase())
			}
		})
	}
}

func TestUpdate_ContentOnlyRefreshesInPlace(t *testing.T) {
	c, f := newTestCoordinator(t, prefs.Default())
	base := list("a", "b")
	load(t, c, base)
	cell := c.Dequeue(KindItem, pos(0))
	c.Size(KindItem, pos(0), rendering.Size{Width: 100})

	out := c.Update(context.Background(), withValue(base, "a", 40))
	c.EndCycle()

	if len(out.Refreshed) != 1 || out.Refreshed[0] != (Target{KindItem, pos(0)}) {
		t.Errorf("Refreshed = %v, want [item[0:0]]", out.Refreshed)
	}
	content := cell.Content().(*fakeContent)
	if content.value != 40 || content.updates != 1 {
		t.Errorf("content value=%v updates=%d, want 40/1", content.value, content.updates)
	}
	if len(f.built) != 1 {
		t.Errorf("built %d contents, want 1", len(f.built))
	}
	if got := c.Size(KindItem, pos(0), rendering.Size{Width: 100}); got.Height != 40 {
		t.Errorf("Size() after change = %v, want height 40", got)
	}
}

func TestUpdate_ContentOnlyRemeasuresParkedContent(t *testing.T) {
	c, f := newTestCoordinator(t, detached())
	base := list("a", "b")
	load(t, c, base)
	c.Dequeue(KindItem, pos(0))
	if got := c.Size(KindItem, pos(0), rendering.Size{Width: 100}); got.Height != 20 {
		t.Fatalf("Size() = %v, want height 20", got)
	}
	c.EndDisplay(KindItem, pos(0))
	c.EndCycle()

	out := c.Update(context.Background(), withValue(base, "a", 80))
	c.EndCycle()
	if out.Kind != UpdateContentOnly {
		t.Fatalf("Kind = %v, want contentOnly", out.Kind)
	}

	if got := c.Size(KindItem, pos(0), rendering.Size{Width: 100}); got.Height != 80 {
		t.Errorf("Size() of parked item after change = %v, want height 80", got)
	}
	if len(f.built) != 1 {
		t.Errorf("built %d contents, want the parked one reused", len(f.built))
	}
	entry, ok := c.Cache().PeekExpensive(path("a"))
	if !ok || entry.Value != 80 {
		t.Fatalf("parked entry = %+v, %v; want value 80", entry, ok)
	}

	cell := c.Dequeue(KindItem, pos(0))
	if content := cell.Content().(*fakeContent); content.value != 80 {
		t.Errorf("reattached content value = %v, want 80", content.value)
	}
}

func TestRecordSize_ZeroReportIsNotCached(t *testing.T) {
	c, _ := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b"))

	cell := c.Dequeue(KindItem, pos(0))
	c.Size(KindItem, pos(0), rendering.Size{Width: 100})
	c.EndCycle()

	cell.Content().(*fakeContent).report(rendering.Size{})
	got := c.EndCycle()
	if len(got) != 1 || got[0] != (Target{KindItem, pos(0)}) {
		t.Errorf("invalidations = %v, want [item[0:0]]", got)
	}
	if size := c.Size(KindItem, pos(0), rendering.Size{Width: 100}); size.Height != 20 {
		t.Errorf("Size() after zero report = %v, want the measured height 20", size)
	}

	c.RecordSize(KindItem, pos(1), rendering.Size{Width: 100})
	if entry, ok := c.Cache().PeekCheap(path("b")); ok && entry.Measured {
		t.Error("a zero-area size must not be cached")
	}
	if got := c.EndCycle(); len(got) != 0 {
		t.Errorf("zero report for an unmeasured slot invalidated %v", got)
	}
	if size := c.Size(KindItem, pos(1), rendering.Size{Width: 100}); size.Height != 20 {
		t.Errorf("Size() = %v, want height 20", size)
	}
}

func TestUpdate_KeepsInvalidationsOfUnfinishedCycle(t *testing.T) {
	c, _ := newTestCoordinator(t, prefs.Default())
	base := list("a", "b")
	load(t, c, base)
	c.Size(KindItem, pos(0), rendering.Size{Width: 100})

	c.Update(context.Background(), withValue(base, "b", 25))
	c.RecordSize(KindItem, pos(0), rendering.Size{Width: 100, Height: 30})
	c.Update(context.Background(), withValue(base, "b", 30))

	got := c.EndCycle()
	if len(got) != 1 || got[0] != (Target{KindItem, pos(0)}) {
		t.Errorf("invalidations = %v, want [item[0:0]]", got)
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", c.Phase())
	}
}

func TestUpdate_ReorderSwapsContentBetweenCells(t *testing.T) {
	c, f := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b", "c"))
	first := c.Dequeue(KindItem, pos(0))
	second := c.Dequeue(KindItem, pos(1))
	ca, cb := first.Content(), second.Content()

	out := c.Update(context.Background(), list("b", "a", "c"))
	c.EndCycle()

	if len(out.Refreshed) != 2 {
		t.Errorf("Refreshed = %v, want two slots", out.Refreshed)
	}
	if first.Content() != cb || second.Content() != ca {
		t.Error("moved items should keep their content")
	}
	if first.Path() != path("b") || second.Path() != path("a") {
		t.Errorf("paths = %v, %v, want b, a", first.Path(), second.Path())
	}
	if len(f.built) != 2 {
		t.Errorf("built %d contents, want 2", len(f.built))
	}
}

func TestUpdate_StructuralRecyclesAndRescues(t *testing.T) {
	c, f := newTestCoordinator(t, prefs.Default())
	load(t, c, list("a", "b"))
	first := c.Dequeue(KindItem, pos(0))
	c.Dequeue(KindItem, pos(1))

	c.Update(context.Background(), list("a", "b", "c"))
	if live, pending, _ := c.Counts(); live != 0 || pending != 2 {
		t.Fatalf("counts live=%d pending=%d, want 0/2", live, pending)
	}
	if again := c.Dequeue(KindItem, pos(0)); again != first {
		t.Error("reloaded slot should rescue its pending cell")
	}
	c.EndCycle()

	if f.built[0].disposed {
		t.Error("rescued content must not be disposed")
	}
	if !f.built[1].disposed {
		t.Error("content of the cell that was not rescued should be disposed")
	}
}

func TestUpdate_RemovedItemIsNotParked(t *testing.T) {
	c, f := newTestCoordinator(t, detached())
	load(t, c, list("a", "b"))
	c.Dequeue(KindItem, pos(1))

	c.Update(context.Background(), list("a"))
	c.EndCycle()

	if !f.built[0].disposed {
		t.Error("content of a removed item should be disposed")
	}
	if _, ok := c.Cache().PeekExpensive(path("b")); ok {
		t.Error("removed item must not be parked")
	}
}

func TestBuild_PanicYieldsEmptyContent(t *testing.T) {
	h := capture(t)
	c, err := New(prefs.Default(), Builders{Item: func(any) rendering.Content { panic("boom") }})
	if err != nil {
		t.Fatal(err)
	}
	load(t, c, list("a"))

	cell := c.Dequeue(KindItem, pos(0))
	if _, ok := cell.Content().(rendering.EmptyContent); !ok {
		t.Errorf("content = %T, want EmptyContent", cell.Content())
	}
	if len(h.panics) != 1 {
		t.Errorf("reported %d panics, want 1", len(h.panics))
	}
}

func TestRelease_RespectsPoolLimit(t *testing.T) {
	p := prefs.Default()
	p.MaxPooledCells = 1
	c, _ := newTestCoordinator(t, p)
	load(t, c, list("a", "b", "c"))
	for i := range 3 {
		c.Dequeue(KindItem, pos(i))
	}

	c.RecycleAll()
	c.EndCycle()

	if live, pending, free := c.Counts(); live != 0 || pending != 0 || free != 1 {
		t.Errorf("counts = %d/%d/%d, want 0/0/1", live, pending, free)
	}
}

func TestNew_RejectsInvalidPreferences(t *testing.T) {
	_, err := New(prefs.Preferences{Sizing: prefs.CustomSizing(nil)}, Builders{})
	if !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}
