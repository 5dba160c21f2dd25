package recordstore

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the store's Prometheus collectors. They are registered on
// the Registerer passed to WithMetrics; without one they are still updated
// but never exported. Stores sharing a Registerer share its collectors.
type metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	queueDepth  prometheus.Gauge
	corruptions prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travelog_store_operations_total",
			Help: "Record store operations by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "travelog_store_operation_duration_seconds",
			Help:    "Record store operation latency, including queue wait for mutations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "travelog_store_queue_depth",
			Help: "Mutations waiting for the writer.",
		}),
		corruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelog_store_corrupt_reads_total",
			Help: "Reads that found a blob that does not decode to a valid collection.",
		}),
	}
	if reg != nil {
		m.operations = register(reg, m.operations)
		m.duration = register(reg, m.duration)
		m.queueDepth = register(reg, m.queueDepth)
		m.corruptions = register(reg, m.corruptions)
	}
	return m
}

// register adds c to reg, or returns the equivalent collector another store
// already registered there. Any other registration error panics, as with
// MustRegister.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func (m *metrics) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
