// internal/api/v2/health.go
package api

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/wildcam-go/wildcam/internal/logger"
)

const bytesPerMB = 1024 * 1024

// HealthCheck handles GET /api/v2/health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if c.BuildInfo != nil {
		response["version"] = c.BuildInfo.GetVersion()
		response["build_date"] = c.BuildInfo.GetBuildDate()
		response["instance_id"] = c.BuildInfo.GetInstanceID()
	}

	if c.Settings.WebServer.Debug {
		response["environment"] = "development"
	} else {
		response["environment"] = "production"
	}

	// Database connectivity
	events, err := c.DS.Snapshot(reqCtx)
	if err != nil {
		response["status"] = "degraded"
		response["database_status"] = "disconnected"
		response["database_error"] = err.Error()
	} else {
		response["database_status"] = "connected"
		response["detections"] = len(events)
		if rev, err := c.DS.Revision(reqCtx); err == nil {
			response["revision"] = rev
		}
	}

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.Round(time.Second).String()
	response["uptime_seconds"] = uptime.Seconds()

	system := map[string]any{}
	if vm, err := mem.VirtualMemoryWithContext(reqCtx); err == nil {
		system["memory"] = map[string]any{
			"used_percent": vm.UsedPercent,
			"total_mb":     float64(vm.Total) / bytesPerMB,
			"used_mb":      float64(vm.Used) / bytesPerMB,
		}
	} else {
		c.logger.Debug("host memory unavailable", logger.Error(err))
	}

	if proc, err := process.NewProcessWithContext(reqCtx, int32(os.Getpid())); err == nil {
		procInfo := map[string]any{}
		if mi, err := proc.MemoryInfoWithContext(reqCtx); err == nil {
			procInfo["rss_mb"] = float64(mi.RSS) / bytesPerMB
		}
		if n, err := proc.NumThreadsWithContext(reqCtx); err == nil {
			procInfo["threads"] = n
		}
		system["process"] = procInfo
	}
	response["system"] = system

	code := http.StatusOK
	if response["status"] != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, response)
}
