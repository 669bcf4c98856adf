package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcam-go/wildcam/internal/buildinfo"
	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/observability"
)

func testSettings() *conf.Settings {
	return &conf.Settings{
		WebServer: conf.WebServerSettings{
			Host:            "127.0.0.1",
			Port:            "0",
			ShutdownTimeout: 2 * time.Second,
			AllowedOrigins:  []string{"https://dashboard.example"},
			BodyLimit:       "1K",
		},
		Engine: conf.EngineSettings{Timezone: "UTC", DefaultThreshold: 70},
		Cache:  conf.CacheSettings{TTL: time.Minute, Cleanup: time.Minute},
		Output: conf.OutputSettings{SQLite: conf.SQLiteSettings{Enabled: true, Path: ":memory:"}},
	}
}

// newTestServer builds a server over a seeded in-memory store.
func newTestServer(t *testing.T) (*Server, *observability.Metrics) {
	t.Helper()

	settings := testSettings()
	m, err := observability.NewMetrics()
	require.NoError(t, err)

	store, err := datastore.New(settings)
	require.NoError(t, err)
	store.SetMetrics(m.Datastore)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, datastore.SeedDemoData(context.Background(), store))

	s, err := New(settings,
		WithDataStore(store),
		WithMetrics(m),
		WithBuildInfo(buildinfo.New("test", "today")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s, m
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := ConfigFromSettings(&conf.Settings{})
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultBodyLimit, cfg.BodyLimit)
	require.NoError(t, cfg.Validate())

	cfg = ConfigFromSettings(testSettings())
	assert.Equal(t, "127.0.0.1:0", cfg.Address())
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Contains(t, cfg.String(), "body_limit=1K")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Port = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	cfg = DefaultConfig()
	cfg.WriteTimeout = 0
	require.Error(t, cfg.Validate())
}

func TestNew_RequiresDataStore(t *testing.T) {
	t.Parallel()

	_, err := New(testSettings())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestServer_RoutesAndMetrics(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	require.NotNil(t, s.APIController())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v2/detections?animal=Deer", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "DET004")
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v2/detections/DET999", http.NoBody))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v2/detections",status_code="200"} 1`)
	assert.Contains(t, body, `path="/api/v2/detections/:id",status_code="404"`)
	assert.Contains(t, body, "engine_queries_total")
	assert.Contains(t, body, "datastore_db_operations_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v2/detections", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://dashboard.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := serve(s, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dashboard.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodOptions, "/api/v2/detections", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://elsewhere.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec = serve(s, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestServer_BodyLimit(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	body := `{"kind":"other","comment":"` + strings.Repeat("x", 2048) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v2/detections/DET001/feedback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(s, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_GracefulShutdown(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.StartWithGracefulShutdown(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	// Repeated shutdown is a no-op
	require.NoError(t, s.Shutdown())
}
