// Package app wires configuration, database, queue, repositories,
// services and HTTP handlers into a runnable API server.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/relaypost/relaypost/config"
	"github.com/relaypost/relaypost/internal/database"
	"github.com/relaypost/relaypost/internal/domain"
	httphandler "github.com/relaypost/relaypost/internal/http"
	"github.com/relaypost/relaypost/internal/http/middleware"
	"github.com/relaypost/relaypost/internal/queue"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/internal/service"
	"github.com/relaypost/relaypost/pkg/htmltrack"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/tracing"
)

// App encapsulates the API server dependencies and configuration
type App struct {
	config *config.Config
	logger logger.Logger
	db     *sql.DB
	queue  domain.JobQueue

	// Repositories
	authRepo        domain.AuthRepository
	billingRepo     domain.BillingRepository
	templateRepo    domain.TemplateRepository
	eventRepo       domain.EventRepository
	trackingRepo    domain.TrackingRepository
	suppressionRepo domain.SuppressionRepository

	// Services
	authService        domain.AuthService
	templateService    domain.TemplateService
	suppressionService domain.SuppressionService
	eventService       domain.EventService
	trackingService    domain.TrackingService
	sendService        domain.SendService

	router *chi.Mux
	server *http.Server

	shutdownTimeout time.Duration
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithMockDB configures the app to use an already-open database handle
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithMockQueue configures the app to use the given job queue
func WithMockQueue(q domain.JobQueue) AppOption {
	return func(a *App) {
		a.queue = q
	}
}

// WithLogger sets a custom logger
func WithLogger(l logger.Logger) AppOption {
	return func(a *App) {
		a.logger = l
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts ...AppOption) *App {
	app := &App{
		config:          cfg,
		logger:          logger.NewLogger(cfg.LogLevel),
		shutdownTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// Initialize runs all initialization steps in order.
func (a *App) Initialize() error {
	a.InitTracing()

	if err := a.InitDB(); err != nil {
		return err
	}
	if err := a.InitQueue(); err != nil {
		return err
	}
	if err := a.InitRepositories(); err != nil {
		return err
	}
	if err := a.InitServices(); err != nil {
		return err
	}
	return a.InitHandlers()
}

// InitTracing applies the OpenCensus sampling configuration.
func (a *App) InitTracing() {
	tracing.Init(tracing.Config{
		Enabled:             a.config.Tracing.Enabled,
		ServiceName:         a.config.Tracing.ServiceName,
		SamplingProbability: a.config.Tracing.SamplingProbability,
	})

	if a.config.Tracing.Enabled {
		a.logger.WithField("service_name", a.config.Tracing.ServiceName).
			WithField("sampling_rate", a.config.Tracing.SamplingProbability).
			Info("Tracing initialized successfully")
	}
}

// InitDB initializes the database connection and schema
func (a *App) InitDB() error {
	if a.db == nil {
		db, err := database.Connect(&a.config.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
	}

	if err := database.InitializeDatabase(a.db); err != nil {
		a.db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	a.logger.Info("Database initialized")
	return nil
}

// InitQueue initializes the job queue producer
func (a *App) InitQueue() error {
	if a.queue != nil {
		return nil
	}

	producer, err := queue.NewProducer(queue.Config{
		RedisURL:    a.config.Redis.URL,
		MaxAttempts: a.config.Worker.MaxAttempts,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize queue producer: %w", err)
	}

	a.queue = producer
	return nil
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.authRepo = repository.NewAuthRepository(a.db)
	a.billingRepo = repository.NewBillingRepository(a.db)
	a.templateRepo = repository.NewTemplateRepository(a.db)
	a.eventRepo = repository.NewEventRepository(a.db)
	a.trackingRepo = repository.NewTrackingRepository(a.db)
	a.suppressionRepo = repository.NewSuppressionRepository(a.db)

	return nil
}

// InitServices initializes all application services
func (a *App) InitServices() error {
	a.authService = service.NewAuthService(a.authRepo, a.logger)
	a.templateService = service.NewTemplateService(a.templateRepo, a.logger)
	a.suppressionService = service.NewSuppressionService(a.suppressionRepo, a.logger)
	a.eventService = service.NewEventService(a.eventRepo, a.suppressionService, a.logger)
	a.trackingService = service.NewTrackingService(a.trackingRepo, a.eventRepo, a.logger)

	rewriter := htmltrack.NewRewriter(
		a.config.Tracking.BaseURL,
		a.config.Tracking.OpenEnabled,
		a.config.Tracking.ClickEnabled,
	)

	a.sendService = service.NewSendService(
		a.templateService,
		a.suppressionService,
		a.eventRepo,
		a.trackingRepo,
		a.billingRepo,
		a.queue,
		rewriter,
		a.logger,
	)

	return nil
}

// InitHandlers initializes the router and mounts all routes
func (a *App) InitHandlers() error {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", httphandler.HandleHealth)

	// Public tracking endpoints. No auth; ids are capability tokens.
	httphandler.NewTrackingHandler(a.trackingService, a.logger).RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(a.authService))
		httphandler.NewSendHandler(a.sendService, a.logger).RegisterRoutes(r)
		httphandler.NewEventHandler(a.eventService, a.logger).RegisterRoutes(r)
		httphandler.NewSuppressionHandler(a.suppressionService, a.logger).RegisterRoutes(r)
	})

	a.router = r
	return nil
}

// Router returns the configured HTTP handler, for tests.
func (a *App) Router() http.Handler {
	return a.router
}

// Start starts the HTTP server and blocks until it stops.
func (a *App) Start() error {
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)

	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.WithField("address", addr).
		WithField("version", a.config.Version).
		Info("Server starting")

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(ctx, a.shutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.logger.WithField("error", err.Error()).Error("Failed to close queue producer")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithField("error", err.Error()).Error("Failed to close database")
		}
	}

	a.logger.Info("Shutdown complete")
	return nil
}
