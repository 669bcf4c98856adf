package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.Datastore)
	require.NotNil(t, m.HTTP)
	require.NotNil(t, m.Engine)
	require.NotNil(t, m.MQTT)

	m.Datastore.RecordOperation(metrics.OpSnapshot, metrics.StatusSuccess)
	m.Datastore.RecordOperation(metrics.OpSnapshot, metrics.StatusSuccess)
	m.Datastore.RecordError(metrics.OpGet, "not-found")
	m.HTTP.RecordCacheLookup("detections", true)
	m.HTTP.RecordCacheLookup("detections", false)
	m.Engine.RecordQuery("today", 0.002, 6, 2, 4)
	m.MQTT.RecordMessage(metrics.IngestAccepted, 180, 3)
	m.MQTT.RecordMessage(metrics.IngestRejected, 12, 0)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	ops := findFamily(t, families, "datastore_db_operations_total")
	require.Len(t, ops.GetMetric(), 1)
	assert.InDelta(t, 2, ops.GetMetric()[0].GetCounter().GetValue(), 0)
	assert.Equal(t, metrics.OpSnapshot, labelValue(ops.GetMetric()[0], "operation"))

	errs := findFamily(t, families, "datastore_db_operation_errors_total")
	assert.Equal(t, "not-found", labelValue(errs.GetMetric()[0], "error_type"))

	cache := findFamily(t, families, "http_response_cache_operations_total")
	assert.Len(t, cache.GetMetric(), 2)

	queries := findFamily(t, families, "engine_queries_total")
	assert.Equal(t, "today", labelValue(queries.GetMetric()[0], "date_mode"))

	classes := findFamily(t, families, "engine_facet_classes")
	assert.InDelta(t, 4, classes.GetMetric()[0].GetGauge().GetValue(), 0)

	received := findFamily(t, families, "mqtt_messages_received_total")
	assert.Len(t, received.GetMetric(), 2)
	ingested := findFamily(t, families, "mqtt_detections_ingested_total")
	assert.InDelta(t, 3, ingested.GetMetric()[0].GetCounter().GetValue(), 0)

	findFamily(t, families, "go_goroutines")
}

func TestMetricsHandler_ServesExposition(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.HTTP.RecordHTTPRequest(http.MethodGet, "/api/v2/detections", http.StatusOK, 0.01)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/api/v2/detections",status_code="200"} 1`)
}

func TestDatastoreMetrics_ConcurrentRecording(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	const workers, perWorker = 8, 250
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				m.Datastore.RecordOperation(metrics.OpSaveFeedback, metrics.StatusSuccess)
				m.Datastore.RecordDuration(metrics.OpSaveFeedback, 0.001)
			}
		}()
	}
	wg.Wait()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	ops := findFamily(t, families, "datastore_db_operations_total")
	assert.InDelta(t, workers*perWorker, ops.GetMetric()[0].GetCounter().GetValue(), 0)

	dur := findFamily(t, families, "datastore_db_operation_duration_seconds")
	assert.Equal(t, uint64(workers*perWorker), dur.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestTestRecorder(t *testing.T) {
	t.Parallel()

	r := metrics.NewTestRecorder()
	r.RecordOperation(metrics.OpGet, metrics.StatusError)
	r.RecordError(metrics.OpGet, "not-found")
	r.RecordDuration(metrics.OpGet, 0.5)

	assert.Equal(t, 1, r.OperationCount(metrics.OpGet, metrics.StatusError))
	assert.Equal(t, 0, r.OperationCount(metrics.OpGet, metrics.StatusSuccess))
	assert.Equal(t, 1, r.ErrorCount(metrics.OpGet, "not-found"))
	assert.Equal(t, 1, r.DurationCount(metrics.OpGet))
}
