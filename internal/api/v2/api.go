// internal/api/v2/api.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/wildcam-go/wildcam/internal/buildinfo"
	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/observability"
)

// Default cache timings used when settings leave them unset.
const (
	defaultCacheTTL     = 5 * time.Minute
	defaultCacheCleanup = 10 * time.Minute
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	BuildInfo buildinfo.BuildInfo

	logger         logger.Logger
	detectionCache *cache.Cache // Query results keyed by store revision and criteria
	metrics        *observability.Metrics
	location       *time.Location   // Location for zone-less timestamps and "today"
	now            func() time.Time // Clock for "today" queries
	startTime      time.Time
	notifier       FeedbackNotifier // Optional, told about stored feedback
}

// FeedbackNotifier is told about each stored feedback submission.
type FeedbackNotifier interface {
	NotifyFeedback(ctx context.Context, fb *datastore.Feedback) error
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics sets the shared metrics instance.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithBuildInfo sets the build metadata reported by the health endpoint.
func WithBuildInfo(bi buildinfo.BuildInfo) Option {
	return func(c *Controller) {
		c.BuildInfo = bi
	}
}

// WithFeedbackNotifier forwards stored feedback to n.
func WithFeedbackNotifier(n FeedbackNotifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithClock overrides the clock used to evaluate "today".
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates the API controller and registers its routes under /api/v2.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if ds == nil {
		return nil, errors.Newf("detection store is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	loc, err := settings.Engine.Location()
	if err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("timezone", settings.Engine.Timezone).
			Build()
	}

	ttl, cleanup := settings.Cache.TTL, settings.Cache.Cleanup
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if cleanup <= 0 {
		cleanup = defaultCacheCleanup
	}

	c := &Controller{
		Echo:           e,
		Group:          e.Group("/api/v2"),
		DS:             ds,
		Settings:       settings,
		logger:         GetLogger(),
		detectionCache: cache.New(ttl, cleanup),
		location:       loc,
		now:            time.Now,
		startTime:      time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	e.JSONSerializer = JSONSerializer{}
	c.initRoutes()

	c.logger.Debug("API controller initialized",
		logger.String("timezone", loc.String()),
		logger.Duration("cache_ttl", ttl))
	return c, nil
}

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.initDetectionRoutes()
	c.initFeedbackRoutes()
	c.initAlertRoutes()
}

// Shutdown releases controller resources.
func (c *Controller) Shutdown() {
	if c.detectionCache != nil {
		c.detectionCache.Flush()
	}
	c.logger.Debug("API controller shutting down")
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// HandleError logs err and writes an ErrorResponse with the given status code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)
	req := ctx.Request()

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", req.URL.Path),
		logger.String("method", req.Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	log := c.logger.WithContext(req.Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Warn("API request rejected", fields...)
	}

	if c.metrics != nil {
		c.metrics.HTTP.RecordHTTPRequestError(req.Method, ctx.Path(), errorTypeFor(err, code))
	}

	return ctx.JSON(code, errorResp)
}

// handleStoreError maps a datastore error to a response status.
func (c *Controller) handleStoreError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.IsNotFound(err):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case errors.IsCategory(err, errors.CategoryValidation):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

// errorTypeFor labels an error for metrics by category, falling back to the status class.
func errorTypeFor(err error, code int) string {
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return enhanced.GetCategory()
	}
	if code < http.StatusInternalServerError {
		return string(errors.CategoryValidation)
	}
	return string(errors.CategoryGeneric)
}
