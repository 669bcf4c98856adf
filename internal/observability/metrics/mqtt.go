package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest result label values.
const (
	IngestAccepted = "accepted"
	IngestRejected = "rejected"
	IngestFailed   = "failed"
)

// MQTTMetrics contains Prometheus metrics for the MQTT detection feed.
type MQTTMetrics struct {
	ConnectionStatus   prometheus.Gauge
	LastConnectTime    prometheus.Gauge
	MessagesReceived   *prometheus.CounterVec
	DetectionsIngested prometheus.Counter
	MessagesPublished  prometheus.Counter
	Errors             prometheus.Counter
	ReconnectAttempts  prometheus.Counter
	MessageSize        prometheus.Histogram
	PublishLatency     prometheus.Histogram

	collectors []prometheus.Collector
}

// NewMQTTMetrics creates and registers MQTT metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MQTTMetrics) initMetrics() {
	m.ConnectionStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mqtt_connection_status",
		Help: "Current MQTT connection status (1 for connected, 0 for disconnected)",
	})

	m.LastConnectTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mqtt_last_connect_time_seconds",
		Help: "Timestamp of the last successful MQTT connection",
	})

	m.MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_messages_received_total",
			Help: "Total number of detection messages received by ingest result",
		},
		[]string{"result"}, // result: accepted, rejected, failed
	)

	m.DetectionsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_detections_ingested_total",
		Help: "Total number of detections stored from MQTT messages",
	})

	m.MessagesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_messages_published_total",
		Help: "Total number of MQTT messages successfully published",
	})

	m.Errors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_errors_total",
		Help: "Total number of MQTT errors encountered",
	})

	m.ReconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_reconnect_attempts_total",
		Help: "Total number of MQTT reconnection attempts",
	})

	m.MessageSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mqtt_message_size_bytes",
		Help:    "Size of MQTT messages in bytes",
		Buckets: prometheus.ExponentialBuckets(BucketStart100B, BucketFactor10, BucketCount6),
	})

	m.PublishLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mqtt_publish_latency_seconds",
		Help:    "Latency of MQTT publish operations in seconds",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})

	m.collectors = []prometheus.Collector{
		m.ConnectionStatus,
		m.LastConnectTime,
		m.MessagesReceived,
		m.DetectionsIngested,
		m.MessagesPublished,
		m.Errors,
		m.ReconnectAttempts,
		m.MessageSize,
		m.PublishLatency,
	}
}

// Describe implements prometheus.Collector
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// UpdateConnectionStatus updates the connection gauge and, when connected, the last connect time.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if connected {
		m.ConnectionStatus.Set(1)
		m.LastConnectTime.SetToCurrentTime()
		return
	}
	m.ConnectionStatus.Set(0)
}

// RecordMessage records a received message, its size and how many detections it stored.
func (m *MQTTMetrics) RecordMessage(result string, sizeBytes, stored int) {
	m.MessagesReceived.WithLabelValues(result).Inc()
	m.MessageSize.Observe(float64(sizeBytes))
	if stored > 0 {
		m.DetectionsIngested.Add(float64(stored))
	}
}

// RecordPublish records a successful publish and its latency.
func (m *MQTTMetrics) RecordPublish(sizeBytes int, latency time.Duration) {
	m.MessagesPublished.Inc()
	m.MessageSize.Observe(float64(sizeBytes))
	m.PublishLatency.Observe(latency.Seconds())
}

// IncrementErrors increments the count of MQTT errors.
func (m *MQTTMetrics) IncrementErrors() {
	m.Errors.Inc()
}

// IncrementReconnectAttempts increments the count of MQTT reconnection attempts.
func (m *MQTTMetrics) IncrementReconnectAttempts() {
	m.ReconnectAttempts.Inc()
}
