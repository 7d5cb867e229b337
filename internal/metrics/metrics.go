package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/willf/bloom"
)

var (
	EnrichRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "c1fapp_enrich_requests_total",
			Help: "Enrichment calls by transport",
		},
		[]string{"transport"},
	)

	ObservablesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "c1fapp_observables_total",
			Help: "Observables handled by the orchestrator, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	EntitiesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "c1fapp_entities_emitted_total",
			Help: "CTIM entities emitted, by entity type",
		},
		[]string{"type"},
	)

	FeedLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "c1fapp_feed_lookups_total",
			Help: "Feed lookups by outcome",
		},
		[]string{"feed", "outcome"},
	)

	FeedLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "c1fapp_feed_lookup_seconds",
			Help:    "Feed lookup latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	DistinctObservables = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "c1fapp_distinct_observables_total",
			Help: "Approximate number of distinct observable values seen since start",
		},
	)
)

// ~1% false positives at 100k values.
var (
	seenMu sync.Mutex
	seen   = bloom.NewWithEstimates(100000, 0.01)
)

// ObserveValue counts value towards DistinctObservables the first time the
// filter sees it. Returns true if the value was counted.
func ObserveValue(kind, value string) bool {
	key := []byte(kind + ":" + value)
	seenMu.Lock()
	defer seenMu.Unlock()
	if seen.TestAndAdd(key) {
		return false
	}
	DistinctObservables.Inc()
	return true
}
