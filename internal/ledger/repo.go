package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/repo"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
)

// Repository manages persistence for ledger events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error)
	ListDrift(ctx context.Context, limit int) ([]Drift, error)
}

// Drift is a user whose stored counters disagree with the sum of their
// ledger events.
type Drift struct {
	UserID          uuid.UUID `gorm:"column:user_id"`
	Ecotokens       int       `gorm:"column:ecotokens"`
	Warnings        int       `gorm:"column:warnings"`
	LedgerEcotokens int       `gorm:"column:ledger_ecotokens"`
	LedgerWarnings  int       `gorm:"column:ledger_warnings"`
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.DB(ctx).Create(event).Error
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	if err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

const driftQuery = `
SELECT u.id AS user_id,
       u.ecotokens,
       u.warnings,
       COALESCE(SUM(l.ecotokens_delta), 0) AS ledger_ecotokens,
       COALESCE(SUM(l.warnings_delta), 0) AS ledger_warnings
FROM users u
LEFT JOIN ledger_events l ON l.user_id = u.id
GROUP BY u.id, u.ecotokens, u.warnings
HAVING u.ecotokens <> COALESCE(SUM(l.ecotokens_delta), 0)
    OR u.warnings <> COALESCE(SUM(l.warnings_delta), 0)
ORDER BY u.id
LIMIT ?`

func (r *repository) ListDrift(ctx context.Context, limit int) ([]Drift, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []Drift
	if err := r.DB(ctx).Raw(driftQuery, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
