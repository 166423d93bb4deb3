package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricingcli/internal/config"
	"pricingcli/internal/errors"
	"pricingcli/internal/infrastructure"
	customMiddleware "pricingcli/internal/middleware"
	"pricingcli/internal/services"
	handlers "pricingcli/internal/transport/http"
	ws "pricingcli/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	WebSocketHub  *ws.Hub
	Calculation   *services.CalculationService
	ErrorHandler  *errors.ErrorHandler
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
}

// NewApplication loads configuration from the environment and config file
// and wires the application around it
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires an application from an already loaded configuration.
// A nil logger falls back to the global one.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	if !config.FileExists(paths.POFile) {
		logger.Warn("Budget workbook not found",
			slog.String("path", paths.POFile),
			slog.String("action", "discovery will search the data directory on each run"))
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	app.initializeServices()

	if err := app.setupRouter(); err != nil {
		return nil, err
	}
	app.createServer()

	return app, nil
}

// initializeServices creates the hub and the calculation service
func (a *Application) initializeServices() {
	a.WebSocketHub = ws.NewHub(a.Logger)

	a.Calculation = services.NewCalculationService(services.CalculationOptions{
		Paths:     a.Paths,
		MaxPasses: a.Config.Engine.MaxPasses,
		Timeout:   a.Config.Server.CalculationTimeout,
		Hub:       a.WebSocketHub,
		Metrics:   a.Metrics,
		Tracer:    a.OTelProviders.Tracer,
		Logger:    a.Logger,
	})
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// RequestID does not wrap the ResponseWriter, so the upgrade still
	// sees a hijackable connection
	r.Use(customMiddleware.RequestID)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Get(config.WebSocketEndpoint, ws.Handler(a.WebSocketHub, a.Config.WebSocket, a.Logger))

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	r.Group(func(r chi.Router) {
		// RequestID → OTel → Logger → Recoverer
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))

		a.setupAPIRoutes(r)
	})

	metricsHandler := a.OTelProviders.PrometheusHTTP
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle(config.MetricsEndpoint, metricsHandler)

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	var postMiddleware []func(http.Handler) http.Handler
	if a.Config.RateLimit.Enabled {
		limiter := customMiddleware.NewRateLimiter(a.Config.RateLimit.RPS, a.Config.RateLimit.Burst,
			infrastructure.WithComponent(a.Logger, "rate_limiter"))
		postMiddleware = append(postMiddleware, limiter.Handler)
	}

	pricing := handlers.NewPricingHandler(a.Calculation, a.Logger, a.ErrorHandler)
	health := handlers.NewHealthHandler(config.AppVersion, a.Calculation, a.WebSocketHub, a.Logger)

	api := pricing.Routes(postMiddleware...)
	api.Get("/health", health.HealthCheck)

	r.Mount("/api", api)
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the hub and the HTTP server. A listen failure cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()

	// Serve the last exported tables until the first recalculation
	if _, err := a.Calculation.Reload(ctx); err != nil {
		a.Logger.InfoContext(ctx, "No previous results loaded", slog.String("reason", err.Error()))
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.Calculation.IsRunning() {
		a.Logger.WarnContext(ctx, "Shutting down while a calculation is running")
	}
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Context cancelled")
	}

	return a.Stop(context.Background())
}
