package uploads

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/repo"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// Repository exposes upload persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs an uploads repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Rebind(tx)}
}

func (r *Repository) Create(ctx context.Context, upload *models.Upload) error {
	return r.DB(ctx).Create(upload).Error
}

// FindByID loads the upload with its owner.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := r.DB(ctx).Preload("Owner").First(&upload, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

// List returns uploads newest first. A nil owner lists everything.
func (r *Repository) List(ctx context.Context, ownerID *uuid.UUID) ([]models.Upload, error) {
	query := r.DB(ctx).Preload("Owner").Order("created_at DESC, id DESC")
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	var out []models.Upload
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Upload{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).Delete(&models.Upload{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ImagesByOwner returns the stored images of every upload the user owns.
func (r *Repository) ImagesByOwner(ctx context.Context, ownerID uuid.UUID) ([]types.Image, error) {
	var rows []models.Upload
	if err := r.DB(ctx).
		Select("id", "image_url", "image_filename").
		Where("owner_id = ?", ownerID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	images := make([]types.Image, 0, len(rows))
	for _, row := range rows {
		if !row.Image.IsZero() {
			images = append(images, row.Image)
		}
	}
	return images, nil
}

// DeleteByOwner removes every upload owned by the user.
func (r *Repository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	return r.DB(ctx).Where("owner_id = ?", ownerID).Delete(&models.Upload{}).Error
}
