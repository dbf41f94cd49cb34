// Package main is the entrypoint for the Enigmatch API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/enigmatch/enigmatch/internal/auth"
	"github.com/enigmatch/enigmatch/internal/cache"
	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/config"
	"github.com/enigmatch/enigmatch/internal/events"
	"github.com/enigmatch/enigmatch/internal/handler"
	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/metrics"
	"github.com/enigmatch/enigmatch/internal/middleware"
	"github.com/enigmatch/enigmatch/internal/repository"
	"github.com/enigmatch/enigmatch/internal/reputation"
	"github.com/enigmatch/enigmatch/internal/server"
	"github.com/enigmatch/enigmatch/internal/service"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recorder := metrics.NewInMemory()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var (
		cacheClient *cache.Cache
		publisher   service.MatchEventPublisher = events.Noop{}
		health      handler.HealthChecker
		streamPub   *events.Publisher
	)
	if cfg.RedisEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			store.Close()
			logger.Error("failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return fmt.Errorf("connect redis: %s", sanitizeError(err, cfg.RedisURL))
		}
		logger.Info("connected to Redis")
		streamPub = events.NewPublisher(cacheClient.Client(), logger, recorder)
		publisher = streamPub
		health = cacheClient
	} else {
		logger.Info("redis not configured, rate limiting and match events disabled")
	}

	clk := clock.System{}
	rules := newRules(cfg)
	l := ledger.New(store, clk, cfg.DailyCreditAllowance, cfg.CreditResetInterval)

	swipes := service.NewSwipeService(service.SwipeDeps{
		Store:      store,
		Ledger:     l,
		Reputation: reputation.New(rules),
		Publisher:  publisher,
		Metrics:    recorder,
		Logger:     logger,
		Clock:      clk,
		Timeout:    cfg.StorageTimeout,
	})
	users := service.NewUserService(store, l, rules, auth.NewHasher(auth.DefaultParams), clk, logger, cfg.StorageTimeout)
	feed := service.NewFeedService(store, cfg.StorageTimeout)
	matches := service.NewMatchService(store, cfg.StorageTimeout)
	messages := service.NewMessageService(store, nil, clk, logger, cfg.StorageTimeout)

	rateLimit := middleware.RateLimitConfig{
		Logger:    logger,
		Metrics:   recorder,
		Enabled:   cfg.RateLimitSwipeEnabled && cacheClient != nil,
		PerMinute: cfg.RateLimitSwipePerMinute,
		Burst:     cfg.RateLimitSwipeBurst,
	}
	if cacheClient != nil {
		rateLimit.Limiter = cacheClient
	}

	router := server.NewRouter(server.Handlers{
		Root:     handler.New(version),
		Health:   handler.NewHealthHandler(store, health),
		Metrics:  handler.NewMetricsHandler(recorder),
		Users:    handler.NewUserHandler(users, feed, logger),
		Swipes:   handler.NewSwipeHandler(swipes, logger),
		Matches:  handler.NewMatchHandler(matches, messages, logger),
		Messages: handler.NewMessageHandler(messages, logger),
	}, server.RouterConfig{
		Logger:             logger,
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          rateLimit,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Shutdown runs in reverse: publisher drains, then Redis, then storage.
	srv.OnShutdown("storage", func(context.Context) error {
		store.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}
	if streamPub != nil {
		srv.OnShutdown("match_events", streamPub.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"storage", cfg.StorageBackend,
		"credit_allowance", cfg.DailyCreditAllowance,
		"version", version,
	)

	return srv.Run(ctx)
}

// openStorage selects the storage backend.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.StorageBackend == config.BackendMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return storage.NewMemory(), nil
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, fmt.Errorf("connect database: %s", sanitizeError(err, cfg.DatabaseURL))
	}
	logger.Info("connected to database")
	return repo, nil
}

func newRules(cfg *config.Config) reputation.Rules {
	return reputation.Rules{
		Initial:      cfg.ScoreInitial,
		LikeDelta:    cfg.ScoreLikeIncrement,
		DislikeDelta: cfg.ScoreDislikeDecrement,
		Floor:        cfg.ScoreFloor,
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
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
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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
