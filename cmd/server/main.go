package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/config"
	"github.com/cursedai/cursed-go/internal/db"
	"github.com/cursedai/cursed-go/internal/handler"
	"github.com/cursedai/cursed-go/internal/middleware"
	"github.com/cursedai/cursed-go/internal/repository"
	"github.com/cursedai/cursed-go/internal/router"
	"github.com/cursedai/cursed-go/internal/service"
	"github.com/cursedai/cursed-go/internal/storage"
	"github.com/cursedai/cursed-go/pkg/hash"
)

const (
	version         = "1.0.0"
	maxUploadBody   = 256 << 20
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	middleware.InitLogger(cfg.LogLevel, "cursed-api")
	log := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns, Retries: cfg.DBConnectRetries}, middleware.Component("db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, middleware.Component("migrate")); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	cache := service.NewCacheService(cfg.RedisURL, middleware.Component("cache"))
	defer cache.Close()

	blobs, err := storage.NewDisk(cfg.MediaRoot, cfg.MediaBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open media root")
	}

	metrics := handler.NewMetrics(pool)

	// Repositories
	mediaRepo := repository.NewMediaRepo(pool)

	// Services
	settingsSvc := service.NewSettingsService(repository.NewSettingsRepo(pool), cache, middleware.Component("settings"))
	scroll := service.NewScrollTracker(cache, cfg.ScrollSessionTTL)
	feedSvc := service.NewFeedService(mediaRepo, scroll, settingsSvc, cfg.FeedPageSize, middleware.Component("feed"))
	ratingSvc := service.NewRatingService(mediaRepo, settingsSvc, metrics, middleware.Component("rating"))
	sessionSvc := service.NewSessionService(
		repository.NewSessionRepo(pool),
		scroll,
		mediaRepo,
		repository.NewEventRepo(pool),
		repository.NewFeedbackRepo(pool),
		hash.IPHasher(cfg.IPHashSalt),
		middleware.Component("session"),
	)
	moderationSvc := service.NewModerationService(repository.NewReportRepo(pool), mediaRepo, settingsSvc, metrics, middleware.Component("moderation"))
	mediaSvc := service.NewMediaService(mediaRepo, blobs, settingsSvc, middleware.Component("media"))
	wipeSvc := service.NewWipeService(repository.NewWipeRepo(pool), blobs, middleware.Component("wipe"))
	exportSvc := service.NewExportService(mediaRepo, storage.NewFetcher(blobs), cfg.ExportConcurrency, cfg.ExportAssetTimeout, middleware.Component("export"))
	adminSvc := service.NewAdminService(repository.NewAdminRepo(pool), cfg.AdminEmails, middleware.Component("admin"))

	if cfg.ReconcileInterval > 0 {
		worker := service.NewReconcileWorker(mediaRepo, metrics, cfg.ReconcileInterval, middleware.Component("reconcile"))
		go worker.Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      "cursed API",
		ServerHeader: "cursed",
		BodyLimit:    maxUploadBody,
	})

	router.Setup(app, &router.Handlers{
		Health:   handler.NewHealthHandler(pool, cache.Client(), blobs, version),
		Session:  handler.NewSessionHandler(sessionSvc),
		Feed:     handler.NewFeedHandler(feedSvc),
		Rating:   handler.NewRatingHandler(ratingSvc),
		Report:   handler.NewReportHandler(moderationSvc),
		Media:    handler.NewMediaHandler(mediaSvc, moderationSvc),
		Settings: handler.NewSettingsHandler(settingsSvc),
		Admin:    handler.NewAdminHandler(adminSvc, wipeSvc),
		Export:   handler.NewExportHandler(exportSvc, cfg.ExportTimeout, metrics),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		Auth:        middleware.NewAuth(cfg.JWTSecret, adminSvc),
		MediaRoot:   blobs.Root(),
		Metrics:     metrics,
		Limiters:    middleware.NewLimiters(cache.Client()),
	})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Environment).
		Bool("redis", cache.Enabled()).
		Msg("cursed API starting")
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
