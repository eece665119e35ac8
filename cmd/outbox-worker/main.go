package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/instance"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/metrics"
	"github.com/ecobridge/ecobridge-server/pkg/migrate"
	"github.com/ecobridge/ecobridge-server/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-worker"})

	dlqLimit := flag.Int("dlq", 0, "print the N most recent dead-lettered events and exit")
	once := flag.Bool("once", false, "drain a single batch and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-worker"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-worker",
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

	if *dlqLimit > 0 {
		if err := printDLQ(context.Background(), outbox.NewDLQRepository(dbClient.DB()), *dlqLimit); err != nil {
			logg.Error(context.Background(), "failed to list dead-lettered events", err)
			os.Exit(1)
		}
		return
	}

	drainer, err := notifications.NewDrainer(dbClient, cfg.Outbox, logg, metrics.NewOutboxMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox drainer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": cfg.Service.Kind,
	})
	if cfg.Outbox.RunInAPI && !*once {
		logg.Warn(ctx, "outbox drainer is also enabled in the api process")
	}
	if *once {
		delivered, err := drainer.DrainOnce(ctx)
		if err != nil {
			logg.Error(ctx, "outbox batch failed", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "delivered", delivered), "outbox batch drained")
		return
	}

	logg.Info(ctx, "starting outbox worker")

	if err := drainer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox worker shutting down gracefully")
}

func printDLQ(ctx context.Context, repo *outbox.DLQRepository, limit int) error {
	rows, err := repo.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		message := ""
		if row.ErrorMessage != nil {
			message = *row.ErrorMessage
		}
		fmt.Printf("%s\t%s\t%s\t%s/%s\tattempts=%d\t%s\n",
			row.FailedAt.Format(time.RFC3339),
			row.EventID,
			row.ErrorReason,
			row.AggregateType,
			row.AggregateID,
			row.AttemptCount,
			message,
		)
	}
	if len(rows) == 0 {
		fmt.Println("dead-letter queue is empty")
	}
	return nil
}
