package cache

import (
	"testing"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/rendering"
)

type testContent struct {
	name     string
	disposed int
}

func (c *testContent) Update(any) {}
func (c *testContent) Dispose()   { c.disposed++ }

func path(section, item any) collection.ItemPath {
	return collection.ItemPath{Section: section, Item: item}
}

func snapshot(sections ...collection.Section) collection.Snapshot {
	return collection.Snapshot{Sections: sections}
}

func section(id any, items ...any) collection.Section {
	return collection.Section{ID: id, Items: collection.Items(items...)}
}

func TestCheap_GetOrCreate(t *testing.T) {
	c := New(4)
	entry := c.Cheap(path("A", 1))
	if entry == nil {
		t.Fatal("Cheap() returned nil")
	}
	if entry.Measured {
		t.Error("new entry should not be measured")
	}
	entry.SetSize(rendering.Size{Width: 10, Height: 20})
	if again := c.Cheap(path("A", 1)); again != entry {
		t.Error("Cheap() should return the existing entry")
	}
	if c.Len(TierCheap) != 1 {
		t.Errorf("Len(cheap) = %d, want 1", c.Len(TierCheap))
	}
	stats := c.Stats()
	if stats.Hits[TierCheap] != 1 || stats.Misses[TierCheap] != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestCheapEntry_SetSizeReportsChange(t *testing.T) {
	var e CheapEntry
	if !e.SetSize(rendering.Size{Width: 1, Height: 2}) {
		t.Error("first SetSize should report a change")
	}
	if e.SetSize(rendering.Size{Width: 1, Height: 2}) {
		t.Error("same size should not report a change")
	}
	if !e.SetSize(rendering.Size{Width: 1, Height: 3}) {
		t.Error("different size should report a change")
	}
}

func TestExpensive_NeverExceedsCapacityAndEvictsLRU(t *testing.T) {
	c := New(3)
	contents := map[int]*testContent{}
	for i := 1; i <= 3; i++ {
		contents[i] = &testContent{}
		c.StoreContent(path("A", i), contents[i], nil)
	}
	// Touch 1 so that 2 becomes least recently used.
	c.Expensive(path("A", 1))

	contents[4] = &testContent{}
	c.StoreContent(path("A", 4), contents[4], nil)

	if got := c.Len(TierExpensive); got != 3 {
		t.Fatalf("Len(expensive) = %d, want 3", got)
	}
	if _, ok := c.PeekExpensive(path("A", 2)); ok {
		t.Error("entry 2 should have been evicted")
	}
	if contents[2].disposed != 1 {
		t.Errorf("evicted content disposed %d times, want 1", contents[2].disposed)
	}
	for _, i := range []int{1, 3, 4} {
		if _, ok := c.PeekExpensive(path("A", i)); !ok {
			t.Errorf("entry %d should be retained", i)
		}
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestTakeContent_RemovesWithoutDisposing(t *testing.T) {
	c := New(2)
	content := &testContent{}
	c.StoreContent(path("A", 1), content, nil)

	got, ok := c.TakeContent(path("A", 1))
	if !ok || got != content {
		t.Fatalf("TakeContent() = %v, %v; want stored content", got, ok)
	}
	if content.disposed != 0 {
		t.Error("taken content must not be disposed")
	}
	if c.Len(TierExpensive) != 0 {
		t.Error("TakeContent should remove the entry")
	}
	if _, ok := c.TakeContent(path("A", 1)); ok {
		t.Error("second TakeContent should miss")
	}
}

func TestStoreContent_ReplacesAndDisposesPrevious(t *testing.T) {
	c := New(2)
	first, second := &testContent{}, &testContent{}
	c.StoreContent(path("A", 1), first, "old")
	c.StoreContent(path("A", 1), second, "new")
	if first.disposed != 1 {
		t.Error("replaced content should be disposed")
	}
	if entry, ok := c.PeekExpensive(path("A", 1)); !ok || entry.Content != second || entry.Value != "new" {
		t.Errorf("PeekExpensive() = %+v, %v; want second content with value \"new\"", entry, ok)
	}
	if c.Len(TierExpensive) != 1 {
		t.Errorf("Len(expensive) = %d, want 1", c.Len(TierExpensive))
	}
}

func TestInvalidatePath(t *testing.T) {
	c := New(4)
	content := &testContent{}
	c.Cheap(path("A", 1))
	c.Cheap(path("A", 2))
	c.StoreContent(path("A", 1), content, nil)

	c.InvalidatePath(path("A", 1))

	if _, ok := c.PeekCheap(path("A", 1)); ok {
		t.Error("cheap entry for A/1 should be removed")
	}
	if _, ok := c.PeekExpensive(path("A", 1)); ok {
		t.Error("expensive entry for A/1 should be removed")
	}
	if content.disposed != 1 {
		t.Error("invalidated content should be disposed")
	}
	if _, ok := c.PeekCheap(path("A", 2)); !ok {
		t.Error("A/2 should be untouched")
	}
}

func TestInvalidateSection_LeavesOtherSections(t *testing.T) {
	c := New(8)
	for _, s := range []string{"A", "B"} {
		for i := 1; i <= 2; i++ {
			c.Cheap(path(s, i))
			c.StoreContent(path(s, i), &testContent{}, nil)
		}
	}
	c.Cheap(collection.HeaderPath("A"))

	c.InvalidateSection("A")

	for i := 1; i <= 2; i++ {
		if _, ok := c.PeekCheap(path("A", i)); ok {
			t.Errorf("cheap A/%d should be removed", i)
		}
		if _, ok := c.PeekExpensive(path("A", i)); ok {
			t.Errorf("expensive A/%d should be removed", i)
		}
		if _, ok := c.PeekCheap(path("B", i)); !ok {
			t.Errorf("cheap B/%d should be retained", i)
		}
		if _, ok := c.PeekExpensive(path("B", i)); !ok {
			t.Errorf("expensive B/%d should be retained", i)
		}
	}
	if _, ok := c.PeekCheap(collection.HeaderPath("A")); ok {
		t.Error("header entry of A should be removed with its section")
	}
}

func TestInvalidateAll(t *testing.T) {
	c := New(4)
	content := &testContent{}
	c.Cheap(path("A", 1))
	c.StoreContent(path("A", 1), content, nil)
	c.InvalidateAll()
	if c.Len(TierCheap) != 0 || c.Len(TierExpensive) != 0 {
		t.Error("InvalidateAll should clear both tiers")
	}
	if content.disposed != 1 {
		t.Error("purged content should be disposed")
	}
}

func TestInvalidateSize_KeepsAttributes(t *testing.T) {
	c := New(4)
	entry := c.Cheap(path("A", 1))
	entry.SetSize(rendering.Size{Width: 5, Height: 5})
	entry.SetAttribute("selected", true)

	c.InvalidateSize(path("A", 1))

	if entry.Measured {
		t.Error("size should be stale after InvalidateSize")
	}
	if entry.Attributes["selected"] != true {
		t.Error("attributes should survive InvalidateSize")
	}
}

func TestUpdate_ReorderRetainsEntries(t *testing.T) {
	c := New(8)
	if !c.Update(snapshot(section("A", 1, 2, 3))) {
		t.Error("first non-empty update should require a reload")
	}
	for i := 1; i <= 3; i++ {
		c.Cheap(path("A", i))
	}

	if c.Update(snapshot(section("A", 1, 3, 2))) {
		t.Error("pure reorder should not require a reload")
	}
	for i := 1; i <= 3; i++ {
		if _, ok := c.PeekCheap(path("A", i)); !ok {
			t.Errorf("entry A/%d should be retained across reorder", i)
		}
	}
}

func TestUpdate_RemovedItemInvalidated(t *testing.T) {
	c := New(8)
	c.Update(snapshot(section("A", 1, 2)))
	c.Cheap(path("A", 1))
	c.Cheap(path("A", 2))
	c.StoreContent(path("A", 1), &testContent{}, nil)

	if !c.Update(snapshot(section("A", 2))) {
		t.Error("removal should require a reload")
	}
	if _, ok := c.PeekCheap(path("A", 1)); ok {
		t.Error("A/1 should be invalidated")
	}
	if _, ok := c.PeekExpensive(path("A", 1)); ok {
		t.Error("A/1 content should be invalidated")
	}
	if _, ok := c.PeekCheap(path("A", 2)); !ok {
		t.Error("A/2 should be retained")
	}
	if got := c.Changes().RemovedPaths(); len(got) != 1 || got[0] != path("A", 1) {
		t.Errorf("Changes().RemovedPaths() = %v, want [A/1]", got)
	}
}

func TestUpdate_RemovedSectionInvalidated(t *testing.T) {
	c := New(8)
	c.Update(snapshot(section("A", 1), section("B", 2)))
	c.Cheap(path("A", 1))
	c.Cheap(path("B", 2))

	if !c.Update(snapshot(section("B", 2))) {
		t.Error("section removal should require a reload")
	}
	if _, ok := c.PeekCheap(path("A", 1)); ok {
		t.Error("entries of removed section A should be invalidated")
	}
	if _, ok := c.PeekCheap(path("B", 2)); !ok {
		t.Error("entries of B should be retained")
	}
}

func TestUpdate_IdenticalSkipsDiff(t *testing.T) {
	c := New(8)
	s := snapshot(section("A", 1))
	c.Update(s)
	if c.Update(s) {
		t.Error("identical snapshot should not require a reload")
	}
	if !c.Changes().IsEmpty() {
		t.Error("identical snapshot should record empty changes")
	}
}

type countingObserver struct {
	hits, misses, evictions int
}

func (o *countingObserver) CacheHit(Tier)     { o.hits++ }
func (o *countingObserver) CacheMiss(Tier)    { o.misses++ }
func (o *countingObserver) CacheEvicted(Tier) { o.evictions++ }

func TestObserver(t *testing.T) {
	obs := &countingObserver{}
	c := New(1, WithObserver(obs))
	c.StoreContent(path("A", 1), &testContent{}, nil)
	c.StoreContent(path("A", 2), &testContent{}, nil)
	c.Cheap(path("A", 1))
	c.Cheap(path("A", 1))

	if obs.evictions != 1 {
		t.Errorf("evictions = %d, want 1", obs.evictions)
	}
	if obs.hits != 1 || obs.misses != 3 {
		t.Errorf("hits=%d misses=%d, want 1 and 3", obs.hits, obs.misses)
	}
}

func TestNew_DefaultCapacity(t *testing.T) {
	if got := New(0).Capacity(); got != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", got, DefaultCapacity)
	}
}
