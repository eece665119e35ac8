package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/media"
	"github.com/ecobridge/ecobridge-server/internal/needs"
	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/internal/uploads"
	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// Service exposes the moderation actions available on the admin dashboard.
type Service interface {
	Dashboard(ctx context.Context) ([]models.User, error)
	Ban(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error)
	Unban(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error)
	Terminate(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error)
}

type ServiceParams struct {
	DB       db.TxRunner
	Users    *users.Repository
	Uploads  *uploads.Repository
	Needs    *needs.Repository
	Media    media.Service
	Notifier notifications.Sender
	Logger   *logger.Logger
}

type service struct {
	db       db.TxRunner
	users    *users.Repository
	uploads  *uploads.Repository
	needs    *needs.Repository
	media    media.Service
	notifier notifications.Sender
	logg     *logger.Logger
}

// NewService builds the admin moderation service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("database client required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Uploads == nil:
		return nil, fmt.Errorf("uploads repository required")
	case params.Needs == nil:
		return nil, fmt.Errorf("needs repository required")
	case params.Media == nil:
		return nil, fmt.Errorf("media service required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		db:       params.DB,
		users:    params.Users,
		uploads:  params.Uploads,
		needs:    params.Needs,
		media:    params.Media,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) Dashboard(ctx context.Context) ([]models.User, error) {
	list, err := s.users.ListNonAdmins(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	return list, nil
}

func (s *service) Ban(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error) {
	return s.setBanned(ctx, actor, userID, true)
}

func (s *service) Unban(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error) {
	return s.setBanned(ctx, actor, userID, false)
}

func (s *service) setBanned(ctx context.Context, actor *models.User, userID uuid.UUID, banned bool) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	target, err := s.loadTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	trigger, verb := notifications.TriggerUserUnbanned, "unbanned"
	if banned {
		trigger, verb = notifications.TriggerUserBanned, "banned"
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.users.WithTx(tx).SetBanned(ctx, target.ID, banned)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update ban flag")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		message := fmt.Sprintf("%s %s %s", actor.Username, verb, target.Username)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(trigger, message, actor.ID, enums.AggregateUser, target.ID))
	})
	if err != nil {
		return nil, err
	}
	target.IsBanned = banned
	return target, nil
}

// Terminate removes the user together with their uploads and needs. Stored
// images are destroyed after the commit; failures there are logged only.
func (s *service) Terminate(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	target, err := s.loadTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	images, err := s.uploads.ImagesByOwner(ctx, target.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "collect upload images")
	}
	images = append(images, target.Image)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.uploads.WithTx(tx).DeleteByOwner(ctx, target.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete uploads")
		}
		if err := s.needs.WithTx(tx).DeleteByOwner(ctx, target.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete needs")
		}
		deleted, err := s.users.WithTx(tx).Delete(ctx, target.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		message := fmt.Sprintf("%s terminated %s", actor.Username, target.Username)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerUserTerminated, message, actor.ID, enums.AggregateUser, target.ID))
	})
	if err != nil {
		return nil, err
	}

	if err := s.discardAll(ctx, images); err != nil && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "user_id", target.ID.String())
		s.logg.Error(logCtx, "terminated user image cleanup incomplete", err)
	}
	return target, nil
}

func (s *service) discardAll(ctx context.Context, images []types.Image) error {
	var errs error
	for _, image := range images {
		errs = multierr.Append(errs, s.media.Discard(ctx, image))
	}
	return errs
}

func (s *service) loadTarget(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if target.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Admins cannot be moderated")
	}
	return target, nil
}

func requireAdmin(actor *models.User) error {
	if actor == nil || !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied: Admins only")
	}
	return nil
}
