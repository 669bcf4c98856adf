package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

// unmatchedPath labels requests that did not match a route, keeping label cardinality bounded.
const unmatchedPath = "unmatched"

// NewHTTPMetrics records request count, latency and response size per route template.
func NewHTTPMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				// The error handler has not written the response yet
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = unmatchedPath
			}
			method := c.Request().Method

			m.RecordHTTPRequest(method, path, status, time.Since(start).Seconds())
			m.RecordHTTPResponseSize(method, path, c.Response().Size)
			return err
		}
	}
}
