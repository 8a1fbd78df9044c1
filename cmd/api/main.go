// Package main is the entrypoint for the Parley API server.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/parley/parley/internal/auth"
	"github.com/parley/parley/internal/cache"
	"github.com/parley/parley/internal/config"
	"github.com/parley/parley/internal/handler"
	"github.com/parley/parley/internal/metrics"
	"github.com/parley/parley/internal/middleware"
	"github.com/parley/parley/internal/provider"
	"github.com/parley/parley/internal/repository"
	"github.com/parley/parley/internal/server"
	"github.com/parley/parley/internal/service"
	"github.com/parley/parley/internal/usage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Primary database pool
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

	// Separate connection for the usage batch writer
	usageDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open usage database connection",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer usageDB.Close()

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

	metricsRecorder := metrics.NewInMemory()

	completer := provider.NewClient(provider.Config{
		APIKey:      cfg.CompletionAPIKey,
		BaseURL:     cfg.CompletionBaseURL,
		Model:       cfg.CompletionModel,
		MaxTokens:   cfg.CompletionMaxTokens,
		Temperature: float32(cfg.CompletionTemperature),
		Timeout:     cfg.CompletionTimeout,
	})

	verifier := auth.NewHTTPVerifier(cfg.IdentityVerifyURL, cfg.IdentityTimeout)

	usagePublisher := usage.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	usageRepo := usage.NewSQLRepository(usageDB)

	chatService := service.NewChatService(repo, completer, usagePublisher, metricsRecorder, logger)
	accountService := service.NewAccountService(repo, metricsRecorder)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	accountHandler := handler.NewAccountHandler(accountService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	completionHandler := handler.NewCompletionHandler(chatService, logger)
	usageHandler := handler.NewUsageHandler(usageRepo, logger)

	r := setupRouter(routerDeps{
		root:        h,
		health:      healthHandler,
		metrics:     metricsHandler,
		accounts:    accountHandler,
		chats:       chatHandler,
		completions: completionHandler,
		usage:       usageHandler,
		verifier:    verifier,
		cache:       cacheClient,
		recorder:    metricsRecorder,
		cfg:         cfg,
		logger:      logger,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Usage pipeline worker drains the Redis stream into Postgres
	if cfg.UsageWorkerEnabled {
		worker := usage.NewWorker(
			cacheClient.Client(),
			usageRepo,
			logger,
			usage.NewConsumerID(),
			metricsRecorder,
		)

		workerCtx, workerCancel := context.WithCancel(ctx)
		go func() {
			if err := worker.Run(workerCtx); err != nil {
				logger.Error("usage worker stopped", "error", err)
			}
		}()

		srv.OnShutdown("usage_worker", func(ctx context.Context) error {
			workerCancel()
			return worker.Shutdown(ctx)
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"model", cfg.CompletionModel,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
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

type routerDeps struct {
	root        *handler.Handler
	health      *handler.HealthHandler
	metrics     *handler.MetricsHandler
	accounts    *handler.AccountHandler
	chats       *handler.ChatHandler
	completions *handler.CompletionHandler
	usage       *handler.UsageHandler
	verifier    auth.Verifier
	cache       *cache.Cache
	recorder    metrics.Recorder
	cfg         *config.Config
	logger      *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = deps.cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health and metrics endpoints (no auth required)
	r.Get("/health", deps.health.Health)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Get("/metrics", deps.metrics.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:   deps.logger,
		Verifier: deps.verifier,
		Cache:    deps.cache,
		Metrics:  deps.recorder,
	}

	// Authenticated API routes
	r.Route("/api", func(r chi.Router) {
		// The streaming endpoint also serves anonymous callers
		r.With(middleware.OptionalAuth(authCfg)).Post("/chat/stream", deps.completions.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))

			r.Post("/auth/sync", deps.accounts.Sync)
			r.Get("/user/{uid}", deps.accounts.Get)

			r.Post("/chat", deps.completions.Complete)
			r.Get("/usage", deps.usage.Totals)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", deps.chats.List)
				r.Post("/", deps.chats.Create)
				r.Get("/{id}", deps.chats.Get)
				r.Patch("/{id}", deps.chats.Rename)
				r.Delete("/{id}", deps.chats.Delete)
				r.Get("/{id}/messages", deps.chats.ListMessages)
				r.Post("/{id}/messages", deps.chats.SendMessage)
			})
		})
	})

	r.NotFound(deps.root.NotFound)
	r.MethodNotAllowed(deps.root.MethodNotAllowed)

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
