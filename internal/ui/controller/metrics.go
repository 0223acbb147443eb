package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeNetwork  = "network"
	outcomeError    = "error"
	outcomeStale    = "stale"
)

type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	records    prometheus.Gauge
	inFlight   prometheus.Gauge
}

// newMetrics registers the controller collectors on reg. A nil reg
// keeps them unregistered, which tests rely on.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "students_console",
			Name:      "operations_total",
			Help:      "Controller operations by name and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "students_console",
			Name:      "operation_duration_seconds",
			Help:      "Time spent waiting for the students API per operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "students_console",
			Name:      "cached_records",
			Help:      "Number of student records held by the local cache.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "students_console",
			Name:      "operations_in_flight",
			Help:      "Operations waiting for the students API.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.records, m.inFlight)
	}
	return m
}

func (m *metrics) observe(op, outcome string, started time.Time) {
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
