package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "batchq"

// metrics holds the pipeline's prometheus instruments.
type metrics struct {
	linesRead      prometheus.Counter
	linesShipped   prometheus.Counter
	batchesShipped *prometheus.CounterVec
	batchesDropped prometheus.Counter
	shipErrors     prometheus.Counter
	readErrors     prometheus.Counter
	shipDuration   prometheus.Histogram
}

// newMetrics builds the instrument set and registers it on reg along
// with a live gauge over the buffer. A nil reg leaves the instruments
// unregistered, which is what tests want.
func newMetrics(reg prometheus.Registerer, buffered func() float64) *metrics {
	m := &metrics{
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_read_total",
			Help:      "Lines read from the source.",
		}),
		linesShipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_shipped_total",
			Help:      "Lines delivered to the sink.",
		}),
		batchesShipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batches_shipped_total",
			Help:      "Batches delivered to the sink, by release trigger.",
		}, []string{"trigger"}),
		batchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batches_dropped_total",
			Help:      "Batches dropped after exhausting delivery attempts.",
		}),
		shipErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ship_errors_total",
			Help:      "Failed delivery attempts.",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "read_errors_total",
			Help:      "Source read failures.",
		}),
		shipDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ship_duration_seconds",
			Help:      "Time spent delivering a batch.",
		}),
	}

	if reg != nil {
		m.linesRead = register(reg, m.linesRead)
		m.linesShipped = register(reg, m.linesShipped)
		m.batchesShipped = register(reg, m.batchesShipped)
		m.batchesDropped = register(reg, m.batchesDropped)
		m.shipErrors = register(reg, m.shipErrors)
		m.readErrors = register(reg, m.readErrors)
		m.shipDuration = register(reg, m.shipDuration)
		register(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "buffered_lines",
			Help:      "Lines currently accumulated toward the next batch.",
		}, buffered))
	}
	return m
}

// register adds c to reg. When an identical collector is already there,
// from a pipeline built earlier against the same registry, that one is
// adopted so counters stay cumulative across restarts.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}
