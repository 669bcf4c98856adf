package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/observability"
)

// setupSQLiteEnvironment wires the controller to a seeded in-memory SQLite store.
func setupSQLiteEnvironment(t *testing.T) (*echo.Echo, datastore.Interface, *observability.Metrics) {
	t.Helper()

	settings := testSettings()
	settings.Output = conf.OutputSettings{SQLite: conf.SQLiteSettings{Enabled: true, Path: ":memory:"}}

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	store, err := datastore.New(settings)
	require.NoError(t, err)
	store.SetMetrics(m.Datastore)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, datastore.SeedDemoData(context.Background(), store))

	e := echo.New()
	controller, err := New(e, store, settings, WithMetrics(m), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	return e, store, m
}

func TestSQLiteIntegration_QueryFeedbackRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping SQLite integration test in short mode")
	}
	t.Parallel()
	e, store, m := setupSQLiteEnvironment(t)

	rec := doRequest(e, http.MethodGet, "/api/v2/detections?camera=Front+Gate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[DetectionListResponse](t, rec)
	assert.Equal(t, []string{"DET003", "DET005"}, eventIDs(resp.Detections))

	// New rows bump the store revision so the cached result is not reused
	require.NoError(t, store.SaveDetections(context.Background(), []detection.DetectionEvent{
		{ID: "DET007", AnimalClass: "Fox", Confidence: 0.95, Timestamp: "2024-05-08T16:00:00", CameraName: "Front Gate"},
	}))
	rec = doRequest(e, http.MethodGet, "/api/v2/detections?camera=Front+Gate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeJSON[DetectionListResponse](t, rec)
	assert.Equal(t, []string{"DET007", "DET003", "DET005"}, eventIDs(resp.Detections))
	assert.Equal(t, 7, resp.Total)

	rec = doRequest(e, http.MethodPost, "/api/v2/detections/DET007/feedback",
		`{"kind":"wrong_class","suggestedClass":"Coyote","comment":"too big for a fox"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(e, http.MethodPost, "/api/v2/detections/DET999/feedback", `{"kind":"correct"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v2/detections/DET007/feedback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]datastore.Feedback](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Coyote", list[0].SuggestedClass)
	assert.NotEmpty(t, list[0].ID)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["datastore_db_operations_total"])
	assert.True(t, names["engine_queries_total"])
	assert.True(t, names["http_feedback_submissions_total"])
}

// openSQLiteFile opens a migrated store on path, closed at test end.
func openSQLiteFile(t *testing.T, path string) datastore.Interface {
	t.Helper()

	settings := testSettings()
	settings.Output = conf.OutputSettings{SQLite: conf.SQLiteSettings{Enabled: true, Path: path}}
	store, err := datastore.New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteIntegration_WritesFromAnotherHandleInvalidateCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping SQLite integration test in short mode")
	}
	t.Parallel()
	ctx := context.Background()
	path := t.TempDir() + "/shared.db"

	served := openSQLiteFile(t, path)
	ingester := openSQLiteFile(t, path)

	e := echo.New()
	controller, err := New(e, served, testSettings(), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	require.NoError(t, ingester.SaveDetections(ctx, []detection.DetectionEvent{
		{ID: "D1", AnimalClass: "Deer", Confidence: 0.9, Timestamp: "2024-05-08T09:00:00", CameraName: "Yard"},
	}))
	rec := doRequest(e, http.MethodGet, "/api/v2/detections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeJSON[DetectionListResponse](t, rec).Count)

	// Written by the other handle, as an ingest process would
	require.NoError(t, ingester.SaveDetections(ctx, []detection.DetectionEvent{
		{ID: "F1", AnimalClass: "Fox", Confidence: 0.9, Timestamp: "2024-05-08T10:00:00", CameraName: "Yard"},
	}))
	rec = doRequest(e, http.MethodGet, "/api/v2/detections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[DetectionListResponse](t, rec)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"F1", "D1"}, eventIDs(resp.Detections))
}
