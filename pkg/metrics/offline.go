package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics records inventory cache behavior per collection.
type CacheMetrics struct {
	hits           *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	refreshFailure *prometheus.CounterVec
}

// NewCacheMetrics registers the cache metrics on the provided registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_cache_hits",
		Help: "Reads served from the local cache.",
	}, []string{"collection"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_cache_refreshes",
		Help: "Successful remote refreshes of a cached collection.",
	}, []string{"collection"})
	refreshFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_cache_refresh_failures",
		Help: "Remote refresh attempts that fell back to cached data.",
	}, []string{"collection"})
	reg.MustRegister(hits, refreshes, refreshFailure)
	return &CacheMetrics{
		hits:           hits,
		refreshes:      refreshes,
		refreshFailure: refreshFailure,
	}
}

// IncHit increments the cache hit counter for the named collection.
func (c *CacheMetrics) IncHit(collection string) {
	if c == nil || c.hits == nil {
		return
	}
	c.hits.WithLabelValues(normalizeLabel(collection)).Inc()
}

// IncRefresh increments the refresh counter for the named collection.
func (c *CacheMetrics) IncRefresh(collection string) {
	if c == nil || c.refreshes == nil {
		return
	}
	c.refreshes.WithLabelValues(normalizeLabel(collection)).Inc()
}

// IncRefreshFailure increments the refresh failure counter.
func (c *CacheMetrics) IncRefreshFailure(collection string) {
	if c == nil || c.refreshFailure == nil {
		return
	}
	c.refreshFailure.WithLabelValues(normalizeLabel(collection)).Inc()
}

// SyncMetrics records invoice synchronization outcomes.
type SyncMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoice_sync_duration_seconds",
		Help:    "Duration of invoice sync passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_sync_success",
		Help: "Invoices acknowledged by the remote backend.",
	}, []string{"trigger"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_sync_failure",
		Help: "Invoice submissions that stayed pending.",
	}, []string{"trigger"})
	reg.MustRegister(duration, success, failure)
	return &SyncMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration of a sync pass.
func (s *SyncMetrics) ObserveDuration(trigger string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter.
func (s *SyncMetrics) IncSuccess(trigger string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncFailure increments the failure counter.
func (s *SyncMetrics) IncFailure(trigger string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(trigger)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
