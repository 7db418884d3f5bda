package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Access outcome counters, labelled by the policy implementation so hit rates of
// different policies can be compared on one dashboard. Policies used as internal
// building blocks (e.g. the history LRU inside LRU-K) don't report, to keep the
// counters aligned with what the caller observes.
var (
	cacheHitsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "The total number of cache hits.",
	}, []string{"policy"})
	cacheMissesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "The total number of cache misses.",
	}, []string{"policy"})
	cacheEvictionsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_evictions_total",
		Help: "The total number of entries evicted by a replacement decision.",
	}, []string{"policy"})
)

// policyMetrics bundles the counter increments so each policy carries one field
// instead of three label lookups per operation.
type policyMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

// newPolicyMetrics resolves the counters for the given policy label. An empty name
// returns nil, which disables reporting (see the silent inner caches above).
func newPolicyMetrics(policy string) *policyMetrics {
	if policy == "" {
		return nil
	}
	return &policyMetrics{
		hits:      cacheHitsMetric.WithLabelValues(policy),
		misses:    cacheMissesMetric.WithLabelValues(policy),
		evictions: cacheEvictionsMetric.WithLabelValues(policy),
	}
}

func (m *policyMetrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *policyMetrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *policyMetrics) eviction() {
	if m != nil {
		m.evictions.Inc()
	}
}
