package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/aio-tracker/internal/adapter/serp"
	"github.com/arturoeanton/aio-tracker/internal/adapter/store"
	"github.com/arturoeanton/aio-tracker/internal/handler"
	"github.com/arturoeanton/aio-tracker/internal/mcp"
	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/service"
	"github.com/arturoeanton/aio-tracker/pkg/config"
)

func serveCmd(cfgPath *string) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduler, inbox watcher and MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			setupLogger(cfg)

			if migrateFirst && cfg.DatabaseURL != "" {
				if err := store.Migrate(cfg.DatabaseURL, "up", 0); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before starting")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting AIO Tracker",
		"version", version,
		"port", cfg.Port,
		"database", cfg.DSN(),
		"redis", cfg.RedisURL != "",
		"serp_configured", cfg.SERPConfigured(),
		"mcp_enabled", cfg.MCPEnabled,
	)

	// ── Storage ──────────────────────────────────────────────────────────
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	analyticsCache, cachePinger, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// ── Services ─────────────────────────────────────────────────────────
	jwtCfg := middleware.JWTConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: cfg.JWTTTL(),
	}
	provider := serp.NewDataForSEOProvider(serp.DataForSEOConfig{
		Login:    cfg.DataForSEOLogin,
		Password: cfg.DataForSEOPassword,
		BaseURL:  cfg.DataForSEOBaseURL,
		RPM:      cfg.FetchRPM,
	})

	authService := service.NewAuthService(repo, jwtCfg)
	projectService := service.NewProjectService(repo, analyticsCache, service.ProjectDefaults{
		LocationCode: cfg.SERPLocationCode,
		LanguageCode: cfg.SERPLanguageCode,
	})
	sessionService := service.NewSessionService(repo, analyticsCache)
	analyticsService := service.NewAnalyticsService(repo, analyticsCache, cfg.FetchConcurrency)
	fetchService := service.NewFetchService(provider, sessionService, cfg.FetchConcurrency)

	// ── Background workers ───────────────────────────────────────────────
	if cfg.SchedulerEnabled {
		scheduler := service.NewScheduler(repo, repo, fetchService, analyticsCache, cfg.SchedulerInterval())
		scheduler.Start(ctx)
	}

	if cfg.InboxDir != "" {
		watcher := service.NewInboxWatcher(cfg.InboxDir, projectService, sessionService)
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start inbox watcher: %w", err)
		}
	}

	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(projectService, sessionService, analyticsService, repo)
		go func() {
			if err := mcpServer.RunHTTP(ctx, ":"+cfg.MCPPort); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    handler.MaxUploadBytes + 1<<20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}))
	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.AuditMiddleware(repo))

	// ── Public Routes ────────────────────────────────────────────────────
	public := app.Group("/api/v1")

	authHandler := handler.NewAuthHandler(authService, repo)
	authHandler.Register(public)

	checks := map[string]handler.Pinger{"database": repo}
	if cachePinger != nil {
		checks["redis"] = cachePinger
	}
	handler.NewSystemHandler(cfg.AppName, version, checks).Register(app, public)

	// ── Protected Routes ─────────────────────────────────────────────────
	api := app.Group("/api/v1", middleware.JWTMiddleware(jwtCfg))

	jobTracker := handler.NewJobTracker()

	authHandler.RegisterProtected(api)
	handler.NewProjectHandler(projectService).Register(api)
	handler.NewSessionHandler(projectService, sessionService, fetchService, jobTracker, repo).Register(api)
	handler.NewAnalyticsHandler(projectService, analyticsService).Register(api)
	handler.NewJobsHandler(jobTracker).Register(api)
	handler.NewAuditHandler(repo).Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("Fiber listening", "port", cfg.Port)
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
