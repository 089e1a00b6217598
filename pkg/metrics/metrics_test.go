package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/go-drift/listkit/pkg/cache"
	"github.com/go-drift/listkit/pkg/prefs"
	"github.com/go-drift/listkit/pkg/reuse"
	listtest "github.com/go-drift/listkit/pkg/testing"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestCollector_RecordsObserverCalls(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()))

	c.CacheHit(cache.TierCheap)
	c.CacheHit(cache.TierCheap)
	c.CacheMiss(cache.TierExpensive)
	c.CacheEvicted(cache.TierExpensive)
	c.UpdateCompleted(reuse.UpdateStructural, 2*time.Millisecond)
	c.ContentBound(reuse.KindItem, true)
	c.ContentBound(reuse.KindItem, false)
	c.ContentBound(reuse.KindItem, false)
	c.CellsChanged(5, 2, 1)
	c.InvalidationFlushed(0)
	c.InvalidationFlushed(3)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"cache_hits_total{cheap}", metricCounterValue(t, c.cacheHits.WithLabelValues("cheap")), 2},
		{"cache_misses_total{expensive}", metricCounterValue(t, c.cacheMisses.WithLabelValues("expensive")), 1},
		{"cache_evictions_total{expensive}", metricCounterValue(t, c.cacheEvictions.WithLabelValues("expensive")), 1},
		{"updates_total{structural}", metricCounterValue(t, c.updates.WithLabelValues("structural")), 1},
		{"content_bound_total{item,reattached}", metricCounterValue(t, c.contentBound.WithLabelValues("item", "reattached")), 1},
		{"content_bound_total{item,built}", metricCounterValue(t, c.contentBound.WithLabelValues("item", "built")), 2},
		{"cells{inUse}", metricGaugeValue(t, c.cells.WithLabelValues("inUse")), 5},
		{"cells{pendingReuse}", metricGaugeValue(t, c.cells.WithLabelValues("pendingReuse")), 2},
		{"cells{free}", metricGaugeValue(t, c.cells.WithLabelValues("free")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if got := metricHistogramCount(t, c.updateDuration); got != 1 {
		t.Errorf("update_duration_seconds count = %d, want 1", got)
	}
	if got := metricHistogramCount(t, c.batchSize); got != 1 {
		t.Errorf("invalidation_batch_size count = %d, want 1 (empty flushes skipped)", got)
	}
}

func TestCollector_ObservesScrollBack(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	p := prefs.Default()
	p.Hosting = prefs.HostingDetachedOnReuse
	tester := listtest.NewListTesterWithT(t, p, reuse.WithObserver(c), reuse.WithCacheObserver(c))

	tester.Pump(listtest.Rows(20, listtest.RowIDs("row", 50)...))
	tester.ScrollBy(100)
	tester.ScrollBy(-100)

	if got := metricCounterValue(t, c.updates.WithLabelValues("structural")); got != 1 {
		t.Errorf("updates_total{structural} = %v, want 1", got)
	}
	if got := metricCounterValue(t, c.contentBound.WithLabelValues("item", "reattached")); got < 5 {
		t.Errorf("content_bound_total{item,reattached} = %v, want at least 5", got)
	}
	if got := metricCounterValue(t, c.cacheHits.WithLabelValues("expensive")); got == 0 {
		t.Error("expected expensive tier hits when scrolling back")
	}
	if got := metricGaugeValue(t, c.cells.WithLabelValues("inUse")); got != 5 {
		t.Errorf("cells{inUse} = %v, want 5", got)
	}
}

func TestNew_RegistersWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithSubsystem("feed"), WithConstLabels(prometheus.Labels{"list": "home"}))
	c.CacheHit(cache.TierCheap)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() == "listkit_feed_cache_hits_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected listkit_feed_cache_hits_total to be registered")
	}
}
