package needs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/maps"
)

// MissingNeedMessage is shown when an edit targets an unknown need.
const MissingNeedMessage = "Need doesn't exist!"

// Service exposes need operations.
type Service interface {
	Create(ctx context.Context, actor *models.User, input CreateInput) (*models.Need, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Need, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateInput) (*models.Need, error)
	FirstForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Need, error)
	SameCategory(ctx context.Context, category string) ([]models.Need, error)
}

// CreateInput holds the submitted need fields.
type CreateInput struct {
	Category    string `validate:"required"`
	Description string `validate:"required"`
	Location    string `validate:"required"`
}

// UpdateInput carries the fields to merge. Nil fields are left untouched.
type UpdateInput struct {
	Category    *string
	Description *string
	Location    *string
}

type ServiceParams struct {
	DB         db.TxRunner
	Repository *Repository
	Geocoder   maps.Geocoder
	Notifier   notifications.Sender
}

type service struct {
	db       db.TxRunner
	repo     *Repository
	geocoder maps.Geocoder
	notifier notifications.Sender
}

// NewService builds the needs service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("needs repository required")
	}
	if params.Geocoder == nil {
		return nil, fmt.Errorf("geocoder required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repository,
		geocoder: params.Geocoder,
		notifier: params.Notifier,
	}, nil
}

func (s *service) Create(ctx context.Context, actor *models.User, input CreateInput) (*models.Need, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	category := strings.TrimSpace(input.Category)
	description := strings.TrimSpace(input.Description)
	location := strings.TrimSpace(input.Location)
	if category == "" || description == "" || location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category, description and location are required")
	}

	point, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	need := &models.Need{
		OwnerID:     actor.ID,
		Category:    category,
		Description: description,
		Location:    location,
		Geometry:    point,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, need); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create need")
		}
		message := fmt.Sprintf("%s has requested %s", actor.Username, category)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerNeedCreated, message, actor.ID, enums.AggregateNeed, need.ID))
	})
	if err != nil {
		return nil, err
	}
	return need, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Need, error) {
	need, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, MissingNeedMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load need")
	}
	return need, nil
}

// Update merges the provided fields into the need. Any authenticated user
// may update any need. A changed location is geocoded again.
func (s *service) Update(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateInput) (*models.Need, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if v := trimmed(input.Category); v != "" && v != current.Category {
		updates["category"] = v
	}
	if v := trimmed(input.Description); v != "" && v != current.Description {
		updates["description"] = v
	}
	if v := trimmed(input.Location); v != "" && v != current.Location {
		point, err := s.geocoder.Geocode(ctx, v)
		if err != nil {
			return nil, err
		}
		updates["location"] = v
		updates["geometry"] = point
	}

	var updated *models.Need
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.Update(ctx, id, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update need")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, MissingNeedMessage)
		}
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload need")
		}
		message := fmt.Sprintf("%s has updated a request for %s", actor.Username, updated.Category)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerNeedUpdated, message, actor.ID, enums.AggregateNeed, id))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FirstForOwner returns the owner's need, or nil when there is none.
func (s *service) FirstForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Need, error) {
	need, err := s.repo.FindFirstByOwner(ctx, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner need")
	}
	return need, nil
}

func (s *service) SameCategory(ctx context.Context, category string) ([]models.Need, error) {
	out, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list needs")
	}
	return out, nil
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
