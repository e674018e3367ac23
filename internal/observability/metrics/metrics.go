package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters for the cross-subsystem sync flows.
type SyncMetrics struct {
	conversionsTotal *prometheus.CounterVec
	reconcileTotal   *prometheus.CounterVec
	bookingConflicts prometheus.Counter
	syncLatency      *prometheus.HistogramVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		conversionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversion",
			Name:      "total",
			Help:      "Total lead/client conversion attempts",
		}, []string{"kind", "status"}),
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reconcile",
			Name:      "total",
			Help:      "Total treatment plan payment sync outcomes",
		}, []string{"action"}),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_conflicts_total",
			Help:      "Total bookings rejected because the slot was taken",
		}),
		syncLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "reconcile",
			Name:      "latency_seconds",
			Help:      "Latency of a single treatment plan sync",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.conversionsTotal, m.reconcileTotal, m.bookingConflicts, m.syncLatency)
	return m
}

func (m *SyncMetrics) ObserveConversion(kind, status string) {
	if m == nil {
		return
	}
	m.conversionsTotal.WithLabelValues(kind, status).Inc()
}

func (m *SyncMetrics) ObserveReconcile(action string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(action).Inc()
}

func (m *SyncMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.bookingConflicts.Inc()
}

func (m *SyncMetrics) ObserveSyncLatency(action string, seconds float64) {
	if m == nil {
		return
	}
	m.syncLatency.WithLabelValues(action).Observe(seconds)
}
