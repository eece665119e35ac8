package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultKeepAttempts    = 5
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         db.TxRunner
	Repository outboxPurger
	Retention  time.Duration
	// KeepAttempts preserves delivered rows that needed at least this many
	// attempts; zero uses the default.
	KeepAttempts int
	Now          func() time.Time
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttempts int) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

// NewOutboxRetentionJob removes delivered notification intents older than the
// retention window. Pending rows and DLQ entries are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	keep := params.KeepAttempts
	if keep <= 0 {
		keep = defaultKeepAttempts
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		keep:      keep,
		now:       now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        db.TxRunner
	repo      outboxPurger
	retention time.Duration
	keep      int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.keep)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("purge outbox: %w", err)
	}
	fields := map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}
	pending, err := j.repo.CountPending(ctx)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "outbox backlog count failed")
	} else {
		fields["pending"] = pending
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention complete")
	return nil
}
