package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/linklytics/linklytics/internal/analytics"
	"github.com/linklytics/linklytics/internal/cache"
	"github.com/linklytics/linklytics/internal/click"
	"github.com/linklytics/linklytics/internal/config"
	"github.com/linklytics/linklytics/internal/server"
	"github.com/linklytics/linklytics/internal/shortlink"
)

// App holds the application dependencies and configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DBPool   *pgxpool.Pool
	Redis    *redis.Client
	Recorder *click.Recorder
	Server   *server.Server
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
	)

	// Connect to database
	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Connect to redis
	rdb, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	cacheClient := cache.NewRedis(rdb)

	// Setup application dependencies
	linkStore := shortlink.NewPGStore(dbPool)
	clickStore := click.NewPGStore(dbPool)

	invalidator := cache.NewInvalidator(cacheClient, logger)
	allocator := shortlink.NewAllocator(linkStore, invalidator, nil)
	resolver := shortlink.NewResolver(linkStore, cacheClient, logger)

	var geo click.Locator
	if cfg.Geo.Enabled {
		geo = click.NewHTTPLocator(cfg.Geo.BaseURL, cfg.Geo.Timeout)
	}
	recorder := click.NewRecorder(clickStore, logger, &click.RecorderConfig{Geo: geo})

	aggregator := analytics.NewAggregator(analytics.AggregatorConfig{
		Links:   linkStore,
		Clicks:  clickStore,
		Cache:   cacheClient,
		Logger:  logger,
		BaseURL: cfg.Server.BaseURL,
	})

	linkHandler := shortlink.NewHandler(shortlink.HandlerConfig{
		Allocator: allocator,
		Resolver:  resolver,
		Clicks:    recorder,
		Logger:    logger,
		BaseURL:   cfg.Server.BaseURL,
	})
	analyticsHandler := analytics.NewHandler(aggregator, logger)

	// Create server
	srv := server.New(cfg, logger, linkHandler, analyticsHandler)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"geo_enabled", cfg.Geo.Enabled,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		DBPool:   dbPool,
		Redis:    rdb,
		Recorder: recorder,
		Server:   srv,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application. In-flight click records
// are drained before the stores they write to are closed.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.Recorder != nil {
		a.Recorder.Drain()
		a.Logger.Info("click recorder drained")
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err.Error())
		} else {
			a.Logger.Info("redis connection closed")
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Set pool configuration
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}

// connectRedis establishes a connection to the redis cache.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	logger.Info("connecting to redis", "addr", cfg.Redis.Addr)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis connection established")

	return rdb, nil
}
