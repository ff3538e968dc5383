package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "notifications"

// Metrics holds Prometheus collectors for the dispatch pipeline.
// A nil *Metrics records nothing.
type Metrics struct {
	Published     *prometheus.CounterVec
	RowsWritten   *prometheus.CounterVec
	Dropped       *prometheus.CounterVec
	ChunkDuration *prometheus.HistogramVec
	ChunkSize     *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "published_total",
				Help:      "Publish calls by channel, mode and outcome",
			},
			[]string{"channel", "mode", "outcome"},
		),
		RowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "deliveries_total",
				Help:      "Deliveries made by channel",
			},
			[]string{"channel"},
		),
		Dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dropped_total",
				Help:      "Messages dropped before delivery",
			},
			[]string{"channel", "reason"},
		),
		ChunkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "bulk_chunk_duration_seconds",
				Help:      "Duration of a single bulk insert",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"channel"},
		),
		ChunkSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "bulk_chunk_size",
				Help:      "Rows per bulk insert",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"channel"},
		),
	}
}

func (m *Metrics) published(channel, mode string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Published.WithLabelValues(channel, mode, outcome).Inc()
}

func (m *Metrics) rowsWritten(channel string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsWritten.WithLabelValues(channel).Add(float64(n))
}

func (m *Metrics) dropped(channel, reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(channel, reason).Inc()
}

func (m *Metrics) observeChunk(channel string, size int, d time.Duration) {
	if m == nil {
		return
	}
	m.ChunkSize.WithLabelValues(channel).Observe(float64(size))
	m.ChunkDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// RecordDropped counts a message dropped before delivery, e.g. reason "expired".
func (m *Metrics) RecordDropped(channel, reason string) {
	m.dropped(channel, reason)
}

// RecordDeliveries counts deliveries made by channels outside this package.
func (m *Metrics) RecordDeliveries(channel string, n int) {
	m.rowsWritten(channel, n)
}
