package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/api/controllers"
	"github.com/ecobridge/ecobridge-server/api/routes"
	"github.com/ecobridge/ecobridge-server/internal/admin"
	"github.com/ecobridge/ecobridge-server/internal/auth"
	"github.com/ecobridge/ecobridge-server/internal/ledger"
	"github.com/ecobridge/ecobridge-server/internal/media"
	"github.com/ecobridge/ecobridge-server/internal/needs"
	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/internal/profile"
	"github.com/ecobridge/ecobridge-server/internal/uploads"
	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/instance"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/maps"
	"github.com/ecobridge/ecobridge-server/pkg/metrics"
	"github.com/ecobridge/ecobridge-server/pkg/migrate"
	"github.com/ecobridge/ecobridge-server/pkg/outbox"
	"github.com/ecobridge/ecobridge-server/pkg/redis"
	"github.com/ecobridge/ecobridge-server/pkg/render"
	"github.com/ecobridge/ecobridge-server/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	if cfg.App.IsProd() && !cfg.Session.Secure {
		logg.Warn(context.Background(), "session cookie is not marked secure in production")
	}

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	geocoder, err := maps.NewClient(
		cfg.GoogleMaps.APIKey,
		maps.WithBaseURL(cfg.GoogleMaps.BaseURL),
		maps.WithRegion(cfg.GoogleMaps.Region),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create maps client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	outboxMetrics := metrics.NewOutboxMetrics(registry)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	uploadRepo := uploads.NewRepository(conn)
	needRepo := needs.NewRepository(conn)

	mediaService, err := media.NewService(gcsClient, cfg.Media.MaxUploadBytes(), cfg.Media.DefaultAvatarURL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(
		ledger.NewRepository(conn),
		ledger.CounterAdjusterFunc(func(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ecotokens, warnings int) error {
			return userRepo.WithTx(tx).AdjustCounters(ctx, userID, ecotokens, warnings)
		}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	notifier, err := notifications.NewNotifier(
		outbox.NewService(outbox.NewRepository(conn), logg),
		notifications.AdminsFromUsers(userRepo),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		DB:               dbClient,
		Users:            userRepo,
		Notifier:         notifier,
		PasswordConfig:   cfg.Password,
		DefaultAvatarURL: cfg.Media.DefaultAvatarURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	needService, err := needs.NewService(needs.ServiceParams{
		DB:         dbClient,
		Repository: needRepo,
		Geocoder:   geocoder,
		Notifier:   notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create needs service", err)
		os.Exit(1)
	}

	uploadService, err := uploads.NewService(uploads.ServiceParams{
		DB:         dbClient,
		Repository: uploadRepo,
		Geocoder:   geocoder,
		Media:      mediaService,
		Ledger:     ledgerService,
		Notifier:   notifier,
		Needs:      needService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create uploads service", err)
		os.Exit(1)
	}

	profileService, err := profile.NewService(profile.ServiceParams{
		DB:       dbClient,
		Users:    userRepo,
		Needs:    needService,
		Ledger:   ledgerService,
		Media:    mediaService,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		DB:       dbClient,
		Users:    userRepo,
		Uploads:  uploadRepo,
		Needs:    needRepo,
		Media:    mediaService,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	renderer, err := render.New()
	if err != nil {
		logg.Error(context.Background(), "failed to parse templates", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		Viewer:      renderer,
		Sessions:    sessionManager,
		Principals:  userRepo,
		RateLimiter: redisClient,
		Pingers: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
			"gcs":   gcsClient,
		},
		Gatherer:    registry,
		HTTPMetrics: httpMetrics,

		Auth:          authService,
		Uploads:       uploadService,
		Needs:         needService,
		Profile:       profileService,
		Notifications: notificationService,
		Admin:         adminService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"instance":    instance.GetID(),
		"serviceKind": cfg.Service.Kind,
	})

	if cfg.Outbox.RunInAPI {
		drainer, err := notifications.NewDrainer(dbClient, cfg.Outbox, logg, outboxMetrics)
		if err != nil {
			logg.Error(ctx, "failed to create outbox drainer", err)
			os.Exit(1)
		}
		go func() {
			if err := drainer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "outbox drainer stopped unexpectedly", err)
			}
		}()
		logg.Info(ctx, "outbox drainer running in-process")
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}
