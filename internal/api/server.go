package api

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/wildcam-go/wildcam/internal/api/middleware"
	v2 "github.com/wildcam-go/wildcam/internal/api/v2"
	"github.com/wildcam-go/wildcam/internal/buildinfo"
	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/observability"
)

// Server is the main HTTP server for WildCam.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	// Core components
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   logger.Logger

	// Dependencies
	dataStore datastore.Interface
	metrics   *observability.Metrics
	buildInfo buildinfo.BuildInfo
	notifier  v2.FeedbackNotifier

	// API controller
	apiController *v2.Controller

	// Lifecycle management
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdownErr  error
	serveErr     chan error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithDataStore sets the datastore for the server.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBuildInfo sets the build metadata reported by the health endpoint.
func WithBuildInfo(bi buildinfo.BuildInfo) ServerOption {
	return func(s *Server) {
		s.buildInfo = bi
	}
}

// WithFeedbackNotifier forwards stored feedback to n.
func WithFeedbackNotifier(n v2.FeedbackNotifier) ServerOption {
	return func(s *Server) {
		s.notifier = n
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config:   config,
		settings: settings,
		serveErr: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = GetLogger()
	}
	if s.dataStore == nil {
		return nil, errors.Newf("detection store is required").
			Component("server").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.logger.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("debug", config.Debug),
		logger.Bool("metrics", s.metrics != nil))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.logger.Module("http"), s.config.Debug, func(c echo.Context) bool {
		return c.Path() == "/metrics"
	}))

	if s.metrics != nil {
		s.echo.Use(mw.NewHTTPMetrics(s.metrics.HTTP))
	}

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	controllerOpts := []v2.Option{v2.WithMetrics(s.metrics)}
	if s.buildInfo != nil {
		controllerOpts = append(controllerOpts, v2.WithBuildInfo(s.buildInfo))
	}
	if s.notifier != nil {
		controllerOpts = append(controllerOpts, v2.WithFeedbackNotifier(s.notifier))
	}

	apiController, err := v2.New(s.echo, s.dataStore, s.settings, controllerOpts...)
	if err != nil {
		return errors.New(err).
			Component("server").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_api_v2").
			Build()
	}
	s.apiController = apiController

	s.logger.Debug("Routes initialized",
		logger.String("api_version", "v2"),
		logger.Int("routes", len(s.echo.Routes())))
	return nil
}

// Start begins serving HTTP requests in a background goroutine.
// This implements the httpserver.Server interface and returns immediately.
// Use Shutdown() to stop the server.
func (s *Server) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.startBlocking(); err != nil {
			s.logger.Error("Server error", logger.Error(err))
			s.serveErr <- err
		}
	}()

	s.logger.Info("HTTP server starting", logger.String("address", s.config.Address()))
}

// startBlocking begins serving HTTP requests and blocks until the server is shut down.
func (s *Server) startBlocking() error {
	err := s.echo.Start(s.config.Address())
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component("server").
			Category(errors.CategoryNetwork).
			Context("address", s.config.Address()).
			Build()
	}
	return nil
}

// StartWithGracefulShutdown starts the server and blocks until ctx is cancelled,
// SIGINT/SIGTERM is received or the listener fails, then shuts down.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.Start()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received, initiating graceful shutdown")
	case err := <-s.serveErr:
		_ = s.Shutdown()
		return err
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server. It is safe to call more than once.
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if s.apiController != nil {
			s.apiController.Shutdown()
		}

		start := time.Now()
		if err := s.echo.Shutdown(ctx); err != nil {
			s.logger.Error("Error during server shutdown", logger.Error(err))
			s.shutdownErr = errors.New(err).
				Component("server").
				Category(errors.CategoryNetwork).
				Timing("shutdown", time.Since(start)).
				Build()
		}

		s.wg.Wait()
		s.logger.Info("Server shutdown complete", logger.Duration("elapsed", time.Since(start)))
	})
	return s.shutdownErr
}

// APIController returns the v2 API controller.
// This implements the httpserver.Server interface.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Config returns the resolved server configuration.
func (s *Server) Config() *Config {
	return s.config
}
