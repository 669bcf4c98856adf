// Package metrics provides detection query engine metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics contains Prometheus metrics for detection queries
type EngineMetrics struct {
	registry *prometheus.Registry

	queriesTotal     *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	queryResultSize  prometheus.Histogram
	queryInputSize   prometheus.Histogram
	facetClassesSize prometheus.Gauge

	collectors []prometheus.Collector
}

// NewEngineMetrics creates and registers new engine metrics
func NewEngineMetrics(registry *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	m.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_queries_total",
			Help: "Total number of detection queries by date filter mode",
		},
		[]string{"date_mode"}, // date_mode: all, today, custom, week, month
	)

	m.queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_query_duration_seconds",
			Help:    "Time taken to derive facets, filter and sort a detection set",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
		},
		[]string{"date_mode"},
	)

	m.queryResultSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_query_result_size",
			Help:    "Number of detections returned by a query",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount15),
		},
	)

	m.queryInputSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_query_input_size",
			Help:    "Number of detections a query was evaluated against",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount15),
		},
	)

	m.facetClassesSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_facet_classes",
			Help: "Number of distinct animal classes seen by the last query",
		},
	)

	m.collectors = []prometheus.Collector{
		m.queriesTotal,
		m.queryDuration,
		m.queryResultSize,
		m.queryInputSize,
		m.facetClassesSize,
	}
}

// Describe implements prometheus.Collector
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordQuery records a completed query
func (m *EngineMetrics) RecordQuery(dateMode string, seconds float64, inputSize, resultSize, classes int) {
	m.queriesTotal.WithLabelValues(dateMode).Inc()
	m.queryDuration.WithLabelValues(dateMode).Observe(seconds)
	m.queryInputSize.Observe(float64(inputSize))
	m.queryResultSize.Observe(float64(resultSize))
	m.facetClassesSize.Set(float64(classes))
}
