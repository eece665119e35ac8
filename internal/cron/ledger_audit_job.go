package cron

import (
	"context"
	"fmt"

	"github.com/ecobridge/ecobridge-server/internal/ledger"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
)

const defaultAuditLimit = 200

type driftLister interface {
	ListDrift(ctx context.Context, limit int) ([]ledger.Drift, error)
}

type LedgerAuditJobParams struct {
	Logger     *logger.Logger
	Repository driftLister
	Limit      int
}

// NewLedgerAuditJob reports users whose ecotoken or warning counters no
// longer match their ledger history. It never corrects the counters.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	return &ledgerAuditJob{logg: params.Logger, repo: params.Repository, limit: limit}, nil
}

type ledgerAuditJob struct {
	logg  *logger.Logger
	repo  driftLister
	limit int
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	drift, err := j.repo.ListDrift(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("list ledger drift: %w", err)
	}
	for _, row := range drift {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"user_id":          row.UserID.String(),
			"ecotokens":        row.Ecotokens,
			"ledger_ecotokens": row.LedgerEcotokens,
			"warnings":         row.Warnings,
			"ledger_warnings":  row.LedgerWarnings,
		}), "user counters drifted from ledger")
	}
	j.logg.Info(j.logg.WithField(ctx, "drifted_users", len(drift)), "ledger audit complete")
	return nil
}
