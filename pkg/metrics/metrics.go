// Package metrics exports list engine activity to Prometheus.
//
// A Collector observes both the item cache and the reuse coordinator:
//
//	collector := metrics.New(metrics.WithRegistry(reg))
//	coordinator, err := reuse.New(p, builders,
//	    reuse.WithObserver(collector),
//	    reuse.WithCacheObserver(collector),
//	)
//
// Metrics collected:
//   - listkit_cache_hits_total: cache hits by tier
//   - listkit_cache_misses_total: cache misses by tier
//   - listkit_cache_evictions_total: LRU evictions by tier
//   - listkit_updates_total: snapshot updates by outcome
//   - listkit_update_duration_seconds: time spent classifying and applying updates
//   - listkit_content_bound_total: content bindings by cell kind and source
//   - listkit_cells: cells by lifecycle state
//   - listkit_invalidation_batch_size: slots per flushed invalidation batch
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-drift/listkit/pkg/cache"
	"github.com/go-drift/listkit/pkg/reuse"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "listkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the update duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "listkit",
		// Updates are expected to take well under a frame.
		Buckets:  []float64{0.0001, 0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.1},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Collector implements cache.Observer and reuse.Observer.
type Collector struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	updates        *prometheus.CounterVec
	updateDuration prometheus.Histogram
	contentBound   *prometheus.CounterVec
	cells          *prometheus.GaugeVec
	batchSize      prometheus.Histogram
}

var (
	_ cache.Observer = (*Collector)(nil)
	_ reuse.Observer = (*Collector)(nil)
)

// New creates a Collector and registers its metrics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_hits_total",
			Help:        "Total number of item cache hits",
			ConstLabels: config.ConstLabels,
		}, []string{"tier"}),

		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_misses_total",
			Help:        "Total number of item cache misses",
			ConstLabels: config.ConstLabels,
		}, []string{"tier"}),

		cacheEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_evictions_total",
			Help:        "Total number of entries evicted from the item cache",
			ConstLabels: config.ConstLabels,
		}, []string{"tier"}),

		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of snapshot updates by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "Snapshot update duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		contentBound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "content_bound_total",
			Help:        "Total number of content bindings by cell kind and source",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "source"}),

		cells: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cells",
			Help:        "Number of cells by lifecycle state",
			ConstLabels: config.ConstLabels,
		}, []string{"state"}),

		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invalidation_batch_size",
			Help:        "Number of slots per flushed invalidation batch",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 4, 8, 16, 32, 64},
		}),
	}
}

// CacheHit implements cache.Observer.
func (c *Collector) CacheHit(tier cache.Tier) {
	c.cacheHits.WithLabelValues(tier.String()).Inc()
}

// CacheMiss implements cache.Observer.
func (c *Collector) CacheMiss(tier cache.Tier) {
	c.cacheMisses.WithLabelValues(tier.String()).Inc()
}

// CacheEvicted implements cache.Observer.
func (c *Collector) CacheEvicted(tier cache.Tier) {
	c.cacheEvictions.WithLabelValues(tier.String()).Inc()
}

// UpdateCompleted implements reuse.Observer.
func (c *Collector) UpdateCompleted(kind reuse.UpdateKind, duration time.Duration) {
	c.updates.WithLabelValues(kind.String()).Inc()
	c.updateDuration.Observe(duration.Seconds())
}

// ContentBound implements reuse.Observer.
func (c *Collector) ContentBound(kind reuse.Kind, reattached bool) {
	source := "built"
	if reattached {
		source = "reattached"
	}
	c.contentBound.WithLabelValues(kind.String(), source).Inc()
}

// CellsChanged implements reuse.Observer.
func (c *Collector) CellsChanged(live, pending, free int) {
	c.cells.WithLabelValues(reuse.StateInUse.String()).Set(float64(live))
	c.cells.WithLabelValues(reuse.StatePendingReuse.String()).Set(float64(pending))
	c.cells.WithLabelValues(reuse.StateFree.String()).Set(float64(free))
}

// InvalidationFlushed implements reuse.Observer. Empty flushes are not
// recorded.
func (c *Collector) InvalidationFlushed(n int) {
	if n > 0 {
		c.batchSize.Observe(float64(n))
	}
}
