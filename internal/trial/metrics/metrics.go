// Package metrics exposes Prometheus instrumentation for the load engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsTotal       *prometheus.CounterVec
	RecordLoadDuration prometheus.Histogram
	LastRunSize        prometheus.Gauge
}

// Outcome label values for RecordsTotal.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeUpdated   = "updated"
	OutcomeErrored   = "errored"
)

func New() *Metrics {
	return &Metrics{
		RecordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trialsearch_etl_records_total",
			Help: "Records handled by the load engine, by outcome",
		}, []string{"outcome"}),
		RecordLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trialsearch_etl_record_load_seconds",
			Help:    "Latency of one record's validate-map-persist cycle",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		LastRunSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trialsearch_etl_last_run_documents",
			Help: "Number of input documents in the most recent run",
		}),
	}
}

func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRecordDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RecordLoadDuration.Observe(d.Seconds())
}

func (m *Metrics) SetLastRunSize(n int) {
	if m == nil {
		return
	}
	m.LastRunSize.Set(float64(n))
}
