package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/adapter/cache"
	"github.com/arturoeanton/aio-tracker/internal/adapter/memory"
	"github.com/arturoeanton/aio-tracker/internal/adapter/store"
	"github.com/arturoeanton/aio-tracker/internal/handler"
	"github.com/arturoeanton/aio-tracker/internal/port"
	"github.com/arturoeanton/aio-tracker/pkg/config"
)

// repository is every persistence port plus a health probe.
type repository interface {
	port.UserRepository
	port.ProjectRepository
	port.SessionRepository
	port.AuditRepository
	Ping(ctx context.Context) error
}

// cacheBackend serves both analytics caching and scheduler locks.
type cacheBackend interface {
	port.AnalyticsCache
	port.Locker
}

// setupLogger installs the process-wide slog handler.
func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// openRepository connects to Postgres, or falls back to the in-memory store
// when no database is configured. cleanup releases the connection.
func openRepository(cfg *config.Config) (repo repository, cleanup func(), err error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is empty, using the in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	pg, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database %s: %w", cfg.DSN(), err)
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}, nil
}

// openCache connects to Redis, or returns a no-op cache when REDIS_URL is
// empty. pinger is nil for the no-op cache.
func openCache(ctx context.Context, cfg *config.Config) (c cacheBackend, pinger handler.Pinger, cleanup func(), err error) {
	if cfg.RedisURL == "" {
		return cache.Noop{}, nil, func() {}, nil
	}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	rc := cache.NewRedisCache(rdb, cfg.CacheTTL())
	return rc, rc, func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("failed to close redis", "error", err)
		}
	}, nil
}
