// Package middleware provides HTTP middleware components for the WildCam server.
package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wildcam-go/wildcam/internal/logger"
)

// NewRequestLogger creates a request logging middleware on top of echo's RequestLoggerWithConfig.
// Requests are logged at info level when verbose is set and at debug level otherwise;
// server errors are always logged at warn level.
func NewRequestLogger(log logger.Logger, verbose bool) echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(log, verbose, nil)
}

// NewRequestLoggerWithSkipper creates a request logging middleware with a custom skipper.
func NewRequestLoggerWithSkipper(log logger.Logger, verbose bool, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:     skipper,
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if log == nil {
				return nil
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}

			l := log.WithContext(c.Request().Context())
			switch {
			case v.Status >= 500:
				l.Warn("request", fields...)
			case verbose:
				l.Info("request", fields...)
			default:
				l.Debug("request", fields...)
			}
			return nil
		},
	})
}
