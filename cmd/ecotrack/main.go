package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ecotrack/internal/activitylog"
	"ecotrack/internal/auth"
	"ecotrack/internal/cache"
	"ecotrack/internal/catalog"
	"ecotrack/internal/cli"
	"ecotrack/internal/core"
	apphttp "ecotrack/internal/http"
	"ecotrack/internal/log"
	"ecotrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	activities := services.NewActivityService(
		activitylog.NewRegistry(be.Backend),
		activitylog.NewGoalStore(be.Backend, cfg.DefaultWeeklyGoal),
		be.Publisher, logger)
	challenges := services.NewChallengeService(be.Backend, be.Backend, be.Publisher, cfg.LeaderboardCacheTTL, logger)
	inquiries := services.NewInquiryService(be.Backend, logger)

	seed, err := loadCatalog(cfg.ChallengeCatalogPath)
	if err != nil {
		logger.Error("Failed to load challenge catalog", log.FieldError, err, "path", cfg.ChallengeCatalogPath)
		os.Exit(1)
	}
	if err := challenges.Seed(ctx, seed); err != nil {
		logger.Error("Failed to seed challenges", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Challenge catalog loaded", "challenges", len(seed))

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	if lb := challenges.LeaderboardCache(); lb != nil {
		caches.Register(lb)
		caches.StartCleanup(time.Minute)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Activities:         activities,
		Challenges:         challenges,
		Inquiries:          inquiries,
		Auth:               auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		Ready:              be.Ping,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		caches.Stop()
		return srv.Shutdown(ctx)
	})

	logger.Info("Starting ecotrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth", cfg.JWTSecret != "",
		"events", be.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

func loadCatalog(path string) ([]core.Challenge, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}
