package needs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/repo"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
)

// Repository exposes need persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a needs repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Rebind(tx)}
}

func (r *Repository) Create(ctx context.Context, need *models.Need) error {
	return r.DB(ctx).Create(need).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Need, error) {
	var need models.Need
	if err := r.DB(ctx).First(&need, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &need, nil
}

// FindFirstByOwner returns the earliest need registered by the owner.
func (r *Repository) FindFirstByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Need, error) {
	var need models.Need
	if err := r.DB(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		First(&need).Error; err != nil {
		return nil, err
	}
	return &need, nil
}

// ListByCategory returns needs in the category with owners preloaded.
func (r *Repository) ListByCategory(ctx context.Context, category string) ([]models.Need, error) {
	var out []models.Need
	if err := r.DB(ctx).
		Preload("Owner").
		Where("category = ?", category).
		Order("created_at DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the provided columns and reports whether the row exists.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		var count int64
		if err := r.DB(ctx).Model(&models.Need{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
	result := r.DB(ctx).Model(&models.Need{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteByOwner removes every need owned by the user.
func (r *Repository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	return r.DB(ctx).Where("owner_id = ?", ownerID).Delete(&models.Need{}).Error
}
