// internal/api/v2/detections.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/validation"
)

// detectionCacheName labels the query result cache in metrics.
const detectionCacheName = "detections"

// initDetectionRoutes registers all detection-related API endpoints
func (c *Controller) initDetectionRoutes() {
	c.Group.GET("/detections", c.GetDetections)
	c.Group.GET("/detections/facets", c.GetDetectionFacets)
	c.Group.GET("/detections/:id", c.GetDetection)
}

// DetectionQueryParams holds the raw query parameters of GET /detections.
type DetectionQueryParams struct {
	Confidence string `query:"confidence"`
	Query      string `query:"q" validate:"max=256"`
	Animal     string `query:"animal" validate:"max=128"`
	Camera     string `query:"camera" validate:"max=128"`
	DateMode   string `query:"dateMode" validate:"datemode"`
	Start      string `query:"start"` // Parsed only when DateMode is custom
	End        string `query:"end"`
}

// DetectionListResponse is the body of GET /detections.
type DetectionListResponse struct {
	Detections    []detection.DetectionEvent `json:"detections"`
	AnimalClasses []string                   `json:"animalClasses"`
	CameraNames   []string                   `json:"cameraNames"`
	Total         int                        `json:"total"` // Size of the unfiltered snapshot
	Count         int                        `json:"count"`
	Criteria      detection.FilterCriteria   `json:"criteria"`
}

// queryParamsFrom reads the detection query parameters from the request.
func queryParamsFrom(ctx echo.Context) DetectionQueryParams {
	return DetectionQueryParams{
		Confidence: ctx.QueryParam("confidence"),
		Query:      ctx.QueryParam("q"),
		Animal:     ctx.QueryParam("animal"),
		Camera:     ctx.QueryParam("camera"),
		DateMode:   ctx.QueryParam("dateMode"),
		Start:      ctx.QueryParam("start"),
		End:        ctx.QueryParam("end"),
	}
}

// criteriaFromParams converts query parameters into filter criteria.
// Missing parameters take their reset defaults; the threshold is clamped to [0,100].
// start and end are only read in custom date mode.
func (c *Controller) criteriaFromParams(p DetectionQueryParams) (detection.FilterCriteria, error) {
	criteria := detection.DefaultCriteria()
	criteria.ConfidenceThresholdPercent = detection.ClampThreshold(c.Settings.Engine.DefaultThreshold)

	if verr := validation.ValidateStruct(&p); verr != nil {
		return criteria, verr
	}

	if p.Confidence != "" {
		percent, err := strconv.Atoi(strings.TrimSpace(p.Confidence))
		if err != nil {
			return criteria, errors.Newf("confidence must be an integer percentage: %q", p.Confidence).
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
		criteria.ConfidenceThresholdPercent = detection.ClampThreshold(percent)
	}

	criteria.SearchQuery = p.Query
	if p.Animal != "" {
		criteria.AnimalFilter = p.Animal
	}
	if p.Camera != "" {
		criteria.CameraFilter = p.Camera
	}

	mode, err := detection.ParseDateFilterMode(p.DateMode)
	if err != nil {
		return criteria, err
	}
	criteria.DateFilterMode = mode

	// Bounds are only meaningful for the custom range; elsewhere they are ignored unparsed
	if mode == detection.DateFilterCustom {
		if criteria.StartDate, err = c.parseBound("start", p.Start); err != nil {
			return criteria, err
		}
		if criteria.EndDate, err = c.parseBound("end", p.End); err != nil {
			return criteria, err
		}
	}

	return criteria, nil
}

// parseBound parses an optional custom range bound. An empty value means unbounded.
func (c *Controller) parseBound(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, ok := detection.ParseTimestamp(value, c.location)
	if !ok {
		return nil, errors.Newf("%s must be an ISO-8601 timestamp: %q", name, value).
			Component("api").
			Category(errors.CategoryValidation).
			Context("parameter", name).
			Build()
	}
	return &t, nil
}

// engineOptions returns the engine options bound to the controller clock and location.
func (c *Controller) engineOptions() []detection.Option {
	return []detection.Option{
		detection.WithLocation(c.location),
		detection.WithClock(c.now),
	}
}

// cacheKey identifies a query result. The store revision is read from the
// database, so writes by other processes sharing it invalidate the entry.
// "today" results also depend on the current date.
func (c *Controller) cacheKey(ctx context.Context, criteria detection.FilterCriteria) (string, error) {
	rev, err := c.DS.Revision(ctx)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("rev=%d|%s", rev, criteria.Key())
	if criteria.DateFilterMode == detection.DateFilterToday {
		key += "|d=" + c.now().In(c.location).Format(time.DateOnly)
	}
	return key, nil
}

// GetDetections handles GET /api/v2/detections
func (c *Controller) GetDetections(ctx echo.Context) error {
	criteria, err := c.criteriaFromParams(queryParamsFrom(ctx))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid detection query parameters", http.StatusBadRequest)
	}

	result, err := c.queryDetections(ctx, criteria)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to query detections")
	}

	return ctx.JSON(http.StatusOK, DetectionListResponse{
		Detections:    result.Detections,
		AnimalClasses: result.AnimalClasses,
		CameraNames:   result.CameraNames,
		Total:         result.Total,
		Count:         result.Count(),
		Criteria:      criteria,
	})
}

// queryDetections runs the engine over the current snapshot, memoizing the result.
func (c *Controller) queryDetections(ctx echo.Context, criteria detection.FilterCriteria) (*detection.FilterResult, error) {
	// Read before the snapshot so a concurrent write can only make the entry stale early
	key, err := c.cacheKey(ctx.Request().Context(), criteria)
	if err != nil {
		return nil, err
	}
	if cached, found := c.detectionCache.Get(key); found {
		c.recordCacheLookup(true)
		return cached.(*detection.FilterResult), nil
	}
	c.recordCacheLookup(false)

	events, err := c.DS.Snapshot(ctx.Request().Context())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := detection.Query(events, criteria, c.engineOptions()...)
	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.Engine.RecordQuery(criteria.DateFilterMode.String(), elapsed.Seconds(),
			len(events), result.Count(), len(result.AnimalClasses))
	}
	c.logger.Debug("detection query evaluated",
		logger.String("criteria", criteria.Key()),
		logger.Int("total", result.Total),
		logger.Int("count", result.Count()),
		logger.Duration("elapsed", elapsed))

	c.detectionCache.SetDefault(key, &result)
	return &result, nil
}

func (c *Controller) recordCacheLookup(hit bool) {
	if c.metrics != nil {
		c.metrics.HTTP.RecordCacheLookup(detectionCacheName, hit)
	}
}

// GetDetectionFacets handles GET /api/v2/detections/facets
func (c *Controller) GetDetectionFacets(ctx echo.Context) error {
	events, err := c.DS.Snapshot(ctx.Request().Context())
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load detections")
	}
	return ctx.JSON(http.StatusOK, detection.DeriveFacets(events))
}

// GetDetection handles GET /api/v2/detections/:id
func (c *Controller) GetDetection(ctx echo.Context) error {
	id := ctx.Param("id")
	event, err := c.DS.Get(ctx.Request().Context(), id)
	if err != nil {
		return c.handleStoreError(ctx, err, "Detection not found")
	}
	return ctx.JSON(http.StatusOK, event)
}
