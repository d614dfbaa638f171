package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kbase/idmapping/pkg/lookup/cache"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics, labeled
// by cache name so the user and valid caches report separately.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

var (
	cacheOnce      sync.Once
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
)

// NewCacheMetrics creates a Prometheus-backed cache.Metrics for the named
// cache (e.g. "user", "valid").
//
// Returns nil if metrics are not enabled (InitRegistry not called); the
// caches treat nil as a no-op.
func NewCacheMetrics(name string) cache.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	cacheOnce.Do(func() {
		cacheHits = promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmapping_cache_hits_total",
				Help: "Total number of lookup cache hits by cache",
			},
			[]string{"cache"},
		)
		cacheMisses = promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmapping_cache_misses_total",
				Help: "Total number of lookup cache misses by cache",
			},
			[]string{"cache"},
		)
		cacheEvictions = promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmapping_cache_evictions_total",
				Help: "Total number of lookup cache evictions by cache",
			},
			[]string{"cache"},
		)
	})

	return &cacheMetrics{
		hits:      cacheHits.WithLabelValues(name),
		misses:    cacheMisses.WithLabelValues(name),
		evictions: cacheEvictions.WithLabelValues(name),
	}
}

func (m *cacheMetrics) Hit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *cacheMetrics) Miss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *cacheMetrics) Eviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}
