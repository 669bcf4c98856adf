// test_utils_test.go: shared test utilities for API v2 tests.

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wildcam-go/wildcam/internal/alerts"
	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

// MockDataStore implements datastore.Interface for testing
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Snapshot(ctx context.Context) ([]detection.DetectionEvent, error) {
	args := m.Called(ctx)
	events, _ := args.Get(0).([]detection.DetectionEvent)
	return events, args.Error(1)
}

func (m *MockDataStore) Get(ctx context.Context, id string) (detection.DetectionEvent, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(detection.DetectionEvent), args.Error(1)
}

func (m *MockDataStore) SaveDetections(ctx context.Context, events []detection.DetectionEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockDataStore) SaveFeedback(ctx context.Context, submission *detection.FeedbackSubmission) (*datastore.Feedback, error) {
	args := m.Called(ctx, submission)
	fb, _ := args.Get(0).(*datastore.Feedback)
	return fb, args.Error(1)
}

func (m *MockDataStore) ListFeedback(ctx context.Context, detectionID string) ([]datastore.Feedback, error) {
	args := m.Called(ctx, detectionID)
	list, _ := args.Get(0).([]datastore.Feedback)
	return list, args.Error(1)
}

func (m *MockDataStore) SaveAlertLogs(ctx context.Context, logs []alerts.Log) error {
	args := m.Called(ctx, logs)
	return args.Error(0)
}

func (m *MockDataStore) ListAlertLogs(ctx context.Context) ([]alerts.Log, error) {
	args := m.Called(ctx)
	logs, _ := args.Get(0).([]alerts.Log)
	return logs, args.Error(1)
}

func (m *MockDataStore) Revision(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	rev, _ := args.Get(0).(uint64)
	return rev, args.Error(1)
}

func (m *MockDataStore) SetMetrics(recorder metrics.Recorder) {
	m.Called(recorder)
}

var _ datastore.Interface = (*MockDataStore)(nil)

// testNow is 2024-05-08 12:00 UTC, the day of the two most recent demo detections.
var testNow = time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

func testSettings() *conf.Settings {
	return &conf.Settings{
		WebServer: conf.WebServerSettings{Debug: true},
		Engine:    conf.EngineSettings{Timezone: "UTC", DefaultThreshold: 70},
		Cache:     conf.CacheSettings{TTL: time.Minute, Cleanup: time.Minute},
	}
}

// setupTestEnvironment creates an echo instance, a mock store and a controller pinned to testNow.
func setupTestEnvironment(t *testing.T, opts ...Option) (*echo.Echo, *MockDataStore, *Controller) {
	t.Helper()

	e := echo.New()
	mockDS := new(MockDataStore)

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	controller, err := New(e, mockDS, testSettings(), opts...)
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	return e, mockDS, controller
}

// doRequest serves a request through the full echo router.
func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func eventIDs(events []detection.DetectionEvent) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].ID
	}
	return out
}
