package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records load and write-through activity for the cart and
// favorites cores. Labels: collection is "cart" or "favorites", op is the
// core operation name.
type SyncMetrics struct {
	loadDuration *prometheus.HistogramVec
	writes       *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	loadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_load_duration_seconds",
		Help:    "Duration of collection loads from the remote store.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_write_through_total",
		Help: "Write-through mutations acknowledged by the remote store.",
	}, []string{"collection", "op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_failure_total",
		Help: "Core operations that failed against the remote store.",
	}, []string{"collection", "op"})
	reg.MustRegister(loadDuration, writes, failures)
	return &SyncMetrics{
		loadDuration: loadDuration,
		writes:       writes,
		failures:     failures,
	}
}

// ObserveLoad records the duration of a collection load.
func (m *SyncMetrics) ObserveLoad(collection string, duration time.Duration) {
	if m == nil || m.loadDuration == nil {
		return
	}
	m.loadDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// IncWrite counts a successful write-through.
func (m *SyncMetrics) IncWrite(collection, op string) {
	if m == nil || m.writes == nil {
		return
	}
	m.writes.WithLabelValues(collection, op).Inc()
}

// IncFailure counts a failed core operation.
func (m *SyncMetrics) IncFailure(collection, op string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(collection, op).Inc()
}
