// Package main is the entrypoint for the Shelfwise API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelfwise/shelfwise/internal/audit"
	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/handler"
	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/middleware"
	"github.com/shelfwise/shelfwise/internal/repository"
	"github.com/shelfwise/shelfwise/internal/server"
	"github.com/shelfwise/shelfwise/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize metrics
	recorder, metricsEndpoint := initMetrics(cfg)

	// Initialize audit pipeline
	publisher := audit.NewPublisher(cacheClient.Client(), logger, recorder)
	eventRepo := repository.NewCirculationEventRepository(repo)

	// Initialize services
	allocator := service.NewAllocator(repo, publisher, recorder)
	loanService := service.NewLoanService(repo, allocator, publisher, recorder)
	reservationService := service.NewReservationService(repo, loanService, publisher, recorder)
	availabilityService := service.NewAvailabilityService(repo)
	bookService := service.NewBookService(repo, cacheClient, recorder)
	copyService := service.NewCopyService(repo)
	userService := service.NewUserService(repo)

	// Initialize handlers
	h := routeHandlers{
		health:       handler.NewHealthHandler(repo, cacheClient),
		books:        handler.NewBookHandler(bookService, availabilityService, logger),
		copies:       handler.NewCopyHandler(copyService, logger),
		users:        handler.NewUserHandler(userService, loanService, reservationService, logger),
		loans:        handler.NewLoanHandler(loanService, logger),
		reservations: handler.NewReservationHandler(reservationService, logger),
		stats:        handler.NewStatsHandler(eventRepo, logger),
		apiKeys:      handler.NewAPIKeyHandler(logger, repo),
		metrics:      metricsEndpoint,
	}

	// Setup router
	r := setupRouter(h, repo, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the audit worker. Events published during shutdown drain
	// because the worker is stopped after the HTTP server.
	if cfg.AuditWorkerEnabled {
		worker := audit.NewWorker(cacheClient.Client(), eventRepo, logger, audit.NewConsumerID(), recorder)
		worker.SetBatchSize(cfg.AuditWorkerBatchSize)

		go func() {
			if err := worker.Run(context.Background()); err != nil && err != context.Canceled {
				logger.Error("audit worker error", "error", err)
			}
		}()

		srv.OnShutdown("audit worker", worker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"audit_worker", cfg.AuditWorkerEnabled,
		"metrics_exporter", cfg.MetricsExporter,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// routeHandlers bundles the HTTP handlers for router setup.
type routeHandlers struct {
	health       *handler.HealthHandler
	books        *handler.BookHandler
	copies       *handler.CopyHandler
	users        *handler.UserHandler
	loans        *handler.LoanHandler
	reservations *handler.ReservationHandler
	stats        *handler.StatsHandler
	apiKeys      *handler.APIKeyHandler
	metrics      http.HandlerFunc
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initMetrics builds the metrics recorder and the /metrics endpoint for
// the configured exporter.
func initMetrics(cfg *config.Config) (metrics.Recorder, http.HandlerFunc) {
	switch cfg.MetricsExporter {
	case "prometheus":
		reg := prometheus.NewRegistry()
		recorder := metrics.NewPrometheus(reg)
		return recorder, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP
	case "inmemory":
		recorder := metrics.NewInMemory()
		return recorder, handler.NewMetricsHandler(recorder).Metrics
	default:
		return metrics.NewNoop(), handler.NewMetricsHandler(nil).Metrics
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h routeHandlers,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:  cfg.IsDevelopment(),
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)

	// Metrics endpoint
	r.Get("/metrics", h.metrics)

	// Root info endpoint
	r.Get("/", handler.Root)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: repo,
		Cache:      cacheClient,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Cache:         cacheClient,
		APIEnabled:    cfg.RateLimitAPIEnabled,
		PublicEnabled: cfg.RateLimitPublicEnabled,
		PublicRPS:     cfg.RateLimitPublicRPS,
		PublicBurst:   cfg.RateLimitPublicBurst,
	}

	validID := middleware.ValidateIDParam("id")

	r.Route("/api/v1", func(r chi.Router) {
		// Public availability lookup with IP-based rate limiting
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg))
			r.With(validID).Get("/books/{id}/availability", h.books.Availability)
		})

		// Authenticated API routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			// Catalog
			r.With(middleware.RequireRead()).Get("/books", h.books.List)
			r.With(middleware.RequireWrite()).Post("/books", h.books.Create)
			r.With(middleware.RequireRead(), validID).Get("/books/{id}", h.books.Get)
			r.With(middleware.RequireWrite(), validID).Patch("/books/{id}", h.books.Update)
			r.With(middleware.RequireAdmin(), validID).Delete("/books/{id}", h.books.Delete)
			r.With(middleware.RequireRead(), validID).Get("/books/{id}/copies", h.copies.ListByBook)
			r.With(middleware.RequireRead(), validID).Get("/books/{id}/stats", h.stats.GetBookStats)
			r.With(middleware.RequireWrite(), validID).Post("/books/{id}/keywords", h.books.AddKeyword)
			r.With(middleware.RequireRead(), validID).Get("/books/{id}/keywords", h.books.ListKeywords)
			r.With(middleware.RequireWrite(), validID).Patch("/keywords/{id}", h.books.UpdateKeyword)
			r.With(middleware.RequireWrite(), validID).Delete("/keywords/{id}", h.books.RemoveKeyword)

			// Copies
			r.With(middleware.RequireWrite()).Post("/copies", h.copies.Create)
			r.With(middleware.RequireRead(), validID).Get("/copies/{id}", h.copies.Get)
			r.With(middleware.RequireWrite(), validID).Patch("/copies/{id}", h.copies.Reassign)
			r.With(middleware.RequireAdmin(), validID).Delete("/copies/{id}", h.copies.Delete)

			// Users
			r.With(middleware.RequireRead()).Get("/users", h.users.List)
			r.With(middleware.RequireWrite()).Post("/users", h.users.Create)
			r.With(middleware.RequireRead(), validID).Get("/users/{id}", h.users.Get)
			r.With(middleware.RequireWrite(), validID).Patch("/users/{id}", h.users.Update)
			r.With(middleware.RequireAdmin(), validID).Delete("/users/{id}", h.users.Delete)
			r.With(middleware.RequireRead(), validID).Get("/users/{id}/loans", h.users.Loans)
			r.With(middleware.RequireRead(), validID).Get("/users/{id}/reservations", h.users.Reservations)

			// Loans
			r.With(middleware.RequireRead()).Get("/loans", h.loans.List)
			r.With(middleware.RequireWrite()).Post("/loans", h.loans.Create)
			r.With(middleware.RequireRead(), validID).Get("/loans/{id}", h.loans.Get)
			r.With(middleware.RequireWrite(), validID).Patch("/loans/{id}", h.loans.Update)
			r.With(middleware.RequireWrite(), validID).Post("/loans/{id}/return", h.loans.Return)
			r.With(middleware.RequireAdmin(), validID).Delete("/loans/{id}", h.loans.Delete)

			// Reservations
			r.With(middleware.RequireRead()).Get("/reservations", h.reservations.List)
			r.With(middleware.RequireWrite()).Post("/reservations", h.reservations.Create)
			r.With(middleware.RequireRead(), validID).Get("/reservations/{id}", h.reservations.Get)
			r.With(middleware.RequireWrite(), validID).Patch("/reservations/{id}", h.reservations.Update)
			r.With(middleware.RequireWrite(), validID).Post("/reservations/{id}/convert", h.reservations.Convert)
			r.With(middleware.RequireWrite(), validID).Delete("/reservations/{id}", h.reservations.Delete)

			// API key management (requires admin scope for mutations)
			r.With(middleware.RequireRead()).Get("/api-keys", h.apiKeys.ListAPIKeys)
			r.With(middleware.RequireAdmin()).Post("/api-keys", h.apiKeys.CreateAPIKey)
			r.With(middleware.RequireAdmin()).Delete("/api-keys/{key_id}", h.apiKeys.RevokeAPIKey)
			r.With(middleware.RequireAdmin()).Post("/api-keys/{key_id}/rotate", h.apiKeys.RotateAPIKey)
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
