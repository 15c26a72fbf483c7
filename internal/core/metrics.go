package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	runsTotal    *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	refsCreated  *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	rowDuration  *prometheus.HistogramVec
	bytesRead    *prometheus.CounterVec
	activeImport prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniimport",
			Name:      "runs_total",
			Help:      "Total number of import runs by outcome.",
		}, []string{"profile", "dry_run", "result"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniimport",
			Name:      "rows_total",
			Help:      "Total number of processed rows by final state.",
		}, []string{"profile", "state"}),
		refsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniimport",
			Name:      "references_created_total",
			Help:      "Referenced entities created on the fly by committed rows.",
		}, []string{"profile", "kind"}),
		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uniimport",
			Name:      "run_duration_seconds",
			Help:      "Duration of whole import runs.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"profile"}),
		rowDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uniimport",
			Name:      "row_duration_seconds",
			Help:      "Duration of single row processing.",
			Buckets: []float64{
				0.0005, 0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5, 1,
			},
		}, []string{"profile", "state"}),
		bytesRead: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniimport",
			Name:      "input_bytes_total",
			Help:      "Bytes of CSV input read.",
		}, []string{"profile"}),
		activeImport: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "uniimport",
			Name:      "active_imports",
			Help:      "Imports currently holding a limiter slot.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
