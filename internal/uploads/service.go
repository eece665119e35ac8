package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/ledger"
	"github.com/ecobridge/ecobridge-server/internal/media"
	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/maps"
)

// Service exposes contribution operations.
type Service interface {
	Create(ctx context.Context, actor *models.User, input CreateInput) (*models.Upload, error)
	Show(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListForViewer(ctx context.Context, viewer *models.User) ([]models.Upload, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	Accept(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Upload, error)
}

// CreateInput holds the submitted upload form and its image.
type CreateInput struct {
	Category    string `validate:"required"`
	Description string `validate:"required"`
	Location    string `validate:"required"`
	FileName    string
	Image       io.Reader
}

// Detail is an upload together with the needs it could satisfy.
type Detail struct {
	Upload *models.Upload
	Needs  []models.Need
}

type needsLister interface {
	SameCategory(ctx context.Context, category string) ([]models.Need, error)
}

type ServiceParams struct {
	DB         db.TxRunner
	Repository *Repository
	Geocoder   maps.Geocoder
	Media      media.Service
	Ledger     ledger.Service
	Notifier   notifications.Sender
	Needs      needsLister
	Logger     *logger.Logger
}

type service struct {
	db       db.TxRunner
	repo     *Repository
	geocoder maps.Geocoder
	media    media.Service
	ledger   ledger.Service
	notifier notifications.Sender
	needs    needsLister
	logg     *logger.Logger
}

// NewService builds the uploads service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("database client required")
	case params.Repository == nil:
		return nil, fmt.Errorf("uploads repository required")
	case params.Geocoder == nil:
		return nil, fmt.Errorf("geocoder required")
	case params.Media == nil:
		return nil, fmt.Errorf("media service required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case params.Needs == nil:
		return nil, fmt.Errorf("needs lister required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repository,
		geocoder: params.Geocoder,
		media:    params.Media,
		ledger:   params.Ledger,
		notifier: params.Notifier,
		needs:    params.Needs,
		logg:     params.Logger,
	}, nil
}

// Create geocodes the location, stores the image, then persists the upload,
// rewards the owner and broadcasts to admins in one transaction. The stored
// image is destroyed again if the transaction fails.
func (s *service) Create(ctx context.Context, actor *models.User, input CreateInput) (*models.Upload, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	category := strings.TrimSpace(input.Category)
	description := strings.TrimSpace(input.Description)
	location := strings.TrimSpace(input.Location)
	if category == "" || description == "" || location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category, description and location are required")
	}
	if input.Image == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an image of the item is required")
	}

	point, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	image, err := s.media.Save(ctx, input.FileName, input.Image)
	if err != nil {
		return nil, err
	}

	upload := &models.Upload{
		OwnerID:     actor.ID,
		Category:    category,
		Description: description,
		Location:    location,
		Geometry:    point,
		Image:       image,
		Status:      enums.UploadStatusPending,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, upload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create upload")
		}
		if _, err := s.ledger.Apply(ctx, tx, ledger.ApplyInput{
			UserID:   actor.ID,
			ActorID:  actor.ID,
			UploadID: &upload.ID,
			Type:     enums.LedgerEventUploadCreated,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reward upload")
		}
		message := fmt.Sprintf("%s has posted an upload", actor.Username)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerUploadCreated, message, actor.ID, enums.AggregateUpload, upload.ID))
	})
	if err != nil {
		if discardErr := s.media.Discard(ctx, image); discardErr != nil {
			s.logg.Error(ctx, "orphaned upload image", discardErr)
		}
		return nil, err
	}
	return upload, nil
}

func (s *service) Show(ctx context.Context, id uuid.UUID) (*Detail, error) {
	upload, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	needs, err := s.needs.SameCategory(ctx, upload.Category)
	if err != nil {
		return nil, err
	}
	return &Detail{Upload: upload, Needs: needs}, nil
}

// ListForViewer returns the viewer's own uploads, or every upload for ngo
// and admin viewers.
func (s *service) ListForViewer(ctx context.Context, viewer *models.User) ([]models.Upload, error) {
	if viewer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	var owner *uuid.UUID
	if !viewer.Role.SeesAllUploads() {
		owner = &viewer.ID
	}
	out, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list uploads")
	}
	return out, nil
}

// Delete removes the upload, penalizes its owner and notifies both the
// owner and the admins. Image removal is best-effort and never blocks the
// deletion.
func (s *service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	upload, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"upload_id": upload.ID.String(),
		"owner_id":  upload.OwnerID.String(),
	})
	if err := s.media.Discard(ctx, upload.Image); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "continuing upload delete without image cleanup")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		deleted, err := s.repo.WithTx(tx).Delete(ctx, upload.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete upload")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		if _, err := s.ledger.Apply(ctx, tx, ledger.ApplyInput{
			UserID:   upload.OwnerID,
			ActorID:  actor.ID,
			UploadID: &upload.ID,
			Type:     enums.LedgerEventUploadDeleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "penalize owner")
		}

		warning := fmt.Sprintf("Warning: Admin deleted your upload :- %s - %s", upload.Category, upload.Description)
		if err := s.notifier.Notify(ctx, tx, notifications.ToUser(notifications.TriggerUploadPenalty, warning, actor.ID, upload.OwnerID, enums.AggregateUpload, upload.ID)); err != nil {
			return err
		}
		broadcast := fmt.Sprintf("%s deleted an upload of %s", actor.Username, ownerName(upload))
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerUploadDeleted, broadcast, actor.ID, enums.AggregateUpload, upload.ID))
	})
}

// Accept marks the upload accepted and rewards its owner. Accepting an
// already accepted upload rewards the owner again.
func (s *service) Accept(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Upload, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if !actor.Role.CanAccept() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only NGOs and admins can accept contributions")
	}
	upload, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.repo.WithTx(tx).SetStatus(ctx, upload.ID, enums.UploadStatusAccepted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "accept upload")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		if _, err := s.ledger.Apply(ctx, tx, ledger.ApplyInput{
			UserID:   upload.OwnerID,
			ActorID:  actor.ID,
			UploadID: &upload.ID,
			Type:     enums.LedgerEventUploadAccepted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reward owner")
		}
		message := fmt.Sprintf("%s accepted your contribution!", actor.Username)
		return s.notifier.Notify(ctx, tx, notifications.ToUser(notifications.TriggerUploadAccepted, message, actor.ID, upload.OwnerID, enums.AggregateUpload, upload.ID))
	})
	if err != nil {
		return nil, err
	}
	upload.Status = enums.UploadStatusAccepted
	return upload, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	upload, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load upload")
	}
	return upload, nil
}

func ownerName(upload *models.Upload) string {
	if upload.Owner != nil && upload.Owner.Username != "" {
		return upload.Owner.Username
	}
	return upload.OwnerID.String()
}
