package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
)

const (
	UploadCreatedReward  = 5
	UploadAcceptedReward = 10
	UploadDeletedPenalty = 5
	UploadDeletedWarning = 1

	// CertificateThreshold is the balance at which a user may claim a certificate.
	CertificateThreshold = 1000
)

// Deltas returns the counter changes a ledger event applies to its user.
func Deltas(eventType enums.LedgerEventType) (ecotokens, warnings int) {
	switch eventType {
	case enums.LedgerEventUploadCreated:
		return UploadCreatedReward, 0
	case enums.LedgerEventUploadAccepted:
		return UploadAcceptedReward, 0
	case enums.LedgerEventUploadDeleted:
		return -UploadDeletedPenalty, UploadDeletedWarning
	}
	return 0, 0
}

// Certified reports whether a balance qualifies for a certificate.
func Certified(ecotokens int) bool {
	return ecotokens >= CertificateThreshold
}

// Service applies counter transitions and records them.
type Service interface {
	Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.LedgerEvent, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error)
}

type counterAdjuster interface {
	AdjustCounters(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ecotokens, warnings int) error
}

// CounterAdjusterFunc adapts a function to the counter surface.
type CounterAdjusterFunc func(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ecotokens, warnings int) error

func (f CounterAdjusterFunc) AdjustCounters(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ecotokens, warnings int) error {
	return f(ctx, tx, userID, ecotokens, warnings)
}

type service struct {
	repo     Repository
	counters counterAdjuster
}

// ApplyInput describes one transition on one user.
type ApplyInput struct {
	UserID   uuid.UUID
	ActorID  uuid.UUID
	UploadID *uuid.UUID
	Type     enums.LedgerEventType
}

// NewService wires a ledger service with the provided repository and the
// user counter store.
func NewService(repo Repository, counters counterAdjuster) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if counters == nil {
		return nil, fmt.Errorf("counter adjuster required")
	}
	return &service{repo: repo, counters: counters}, nil
}

// Apply mutates the user's counters and appends the ledger event on tx. Both
// writes commit or roll back with the caller's business action.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.LedgerEvent, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}

	ecotokens, warnings := Deltas(input.Type)
	if err := s.counters.AdjustCounters(ctx, tx, input.UserID, ecotokens, warnings); err != nil {
		return nil, fmt.Errorf("adjust counters: %w", err)
	}

	event := &models.LedgerEvent{
		UserID:         input.UserID,
		ActorID:        input.ActorID,
		UploadID:       input.UploadID,
		Type:           input.Type,
		EcotokensDelta: ecotokens,
		WarningsDelta:  warnings,
	}
	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}
