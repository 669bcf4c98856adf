// internal/api/v2/alerts.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wildcam-go/wildcam/internal/alerts"
	"github.com/wildcam-go/wildcam/internal/detection"
)

// initAlertRoutes registers the alert history and dashboard endpoints
func (c *Controller) initAlertRoutes() {
	c.Group.GET("/alerts", c.GetAlerts)
	c.Group.GET("/stats", c.GetStats)
}

// AlertListResponse is the body of GET /alerts.
type AlertListResponse struct {
	Alerts   []alerts.Log    `json:"alerts"`
	Total    int             `json:"total"` // Size of the unfiltered log
	Count    int             `json:"count"`
	Stats    alerts.Stats    `json:"stats"` // Counts over the unfiltered log
	Criteria alerts.Criteria `json:"criteria"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	detection.Summary
	MonthlyAlerts int          `json:"monthlyAlerts"` // Alerts sent in the current calendar month
	Alerts        alerts.Stats `json:"alerts"`
}

// GetAlerts handles GET /api/v2/alerts
func (c *Controller) GetAlerts(ctx echo.Context) error {
	channel, err := alerts.ParseChannel(ctx.QueryParam("type"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid alert type", http.StatusBadRequest)
	}
	criteria := alerts.Criteria{SearchQuery: ctx.QueryParam("q"), Channel: channel}

	logs, err := c.DS.ListAlertLogs(ctx.Request().Context())
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load alert history")
	}

	matched := alerts.Query(logs, criteria, c.location)
	return ctx.JSON(http.StatusOK, AlertListResponse{
		Alerts:   matched,
		Total:    len(logs),
		Count:    len(matched),
		Stats:    alerts.Summarize(logs),
		Criteria: criteria,
	})
}

// GetStats handles GET /api/v2/stats
func (c *Controller) GetStats(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	events, err := c.DS.Snapshot(reqCtx)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load detections")
	}
	logs, err := c.DS.ListAlertLogs(reqCtx)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load alert history")
	}

	return ctx.JSON(http.StatusOK, StatsResponse{
		Summary:       detection.Summarize(events, c.engineOptions()...),
		MonthlyAlerts: alerts.CountInMonth(logs, c.now(), c.location),
		Alerts:        alerts.Summarize(logs),
	})
}
