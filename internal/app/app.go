package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"servicepulse/internal/config"
	apierrors "servicepulse/internal/errors"
	"servicepulse/internal/infrastructure"
	customMiddleware "servicepulse/internal/middleware"
	"servicepulse/internal/services"
	"servicepulse/internal/session"
	handlers "servicepulse/internal/transport/http"
	"servicepulse/pkg/contracts"
)

// Application wires configuration, services and the HTTP server together
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Store            *session.Store
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	ReportArchive    *services.ReportArchive
	OTelProviders    *infrastructure.OTelProviders
	Logger           *slog.Logger
	errorHandler     *apierrors.ErrorHandler
}

// Option customizes the application before the router is built
type Option func(*Application)

// WithLogger replaces the process logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) {
		a.Logger = logger
	}
}

// NewApplication creates the application from cfg. A nil cfg is loaded from
// the environment and the optional config file.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	a := &Application{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.Logger = logger
	}

	a.Logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port))

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = providers

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()
	return a, nil
}

// initializeServices builds the session store and the services over it
func (a *Application) initializeServices() error {
	sources := services.NewConfiguredSources(a.Config.Source, a.Logger)
	a.Store = session.NewStore(session.State{Source: sources.DefaultSource()})

	metrics, err := infrastructure.NewPipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	dashboard, err := services.NewDashboardService(a.Config, a.Logger,
		services.WithStore(a.Store),
		services.WithSourceFactory(sources),
		services.WithMetrics(metrics),
		services.WithTracer(a.OTelProviders.Tracer),
	)
	if err != nil {
		return err
	}
	a.DashboardService = dashboard
	a.HealthService = services.NewHealthService(a.Store, a.Config.Export.OutputDir, a.Logger)
	a.ReportArchive = services.NewReportArchive(dashboard, a.Config.Export.OutputDir, a.Logger)
	a.errorHandler = apierrors.NewErrorHandler(a.Logger, a.isDevelopmentMode())
	return nil
}

// setupRouter configures the middleware chain and every route.
// Order: RequestID, RealIP, OTel, error logging and recovery, headers, rate limit.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return err
	}
	page, err := handlers.NewPageHandler(a.DashboardService, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to parse dashboard page: %w", err)
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// scrape endpoint stays outside the instrumented group
	r.Mount("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP).Routes())

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(apierrors.NewErrorMiddleware(a.errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.StripSlashes)
		r.Use(customMiddleware.NewRateLimiterFromConfig(a.Config.Security.RateLimit, a.errorHandler, a.Logger).Handler)

		a.setupAPIRoutes(r)
		r.Mount("/", page.Routes())
	})

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.Logger, a.errorHandler)
		r.Mount("/dashboard", dashboardHandler.Routes())

		reportsHandler := handlers.NewReportsHandler(a.ReportArchive, a.Logger, a.errorHandler)
		r.Mount("/reports", reportsHandler.Routes())
	})
}

// isDevelopmentMode includes stack traces in 5xx problems outside production
func (a *Application) isDevelopmentMode() bool {
	return a.Config.Telemetry.Environment == "development"
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Serve runs the server on ln until ctx is cancelled, then shuts down gracefully
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "Application started",
			slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run listens on the configured port until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}
