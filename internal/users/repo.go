package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/repo"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Rebind(tx)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByUsername retrieves the user matching the provided username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// ListAdminIDs returns every admin id, read fresh on each call.
func (r *Repository) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.DB(ctx).
		Model(&models.User{}).
		Where("role = ?", enums.UserRoleAdmin).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListNonAdmins returns the users shown on the admin dashboard.
func (r *Repository) ListNonAdmins(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := r.DB(ctx).
		Where("role <> ?", enums.UserRoleAdmin).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetBanned flips the ban flag. It reports whether a row matched.
func (r *Repository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (bool, error) {
	result := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("is_banned", banned)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AdjustCounters applies deltas with an in-place increment so concurrent
// actions on the same user never lose an update.
func (r *Repository) AdjustCounters(ctx context.Context, id uuid.UUID, ecotokens, warnings int) error {
	updates := map[string]any{}
	if ecotokens != 0 {
		updates["ecotokens"] = gorm.Expr("ecotokens + ?", ecotokens)
	}
	if warnings != 0 {
		updates["warnings"] = gorm.Expr("warnings + ?", warnings)
	}
	if len(updates) == 0 {
		return nil
	}
	result := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateImage replaces the stored profile image reference.
func (r *Repository) UpdateImage(ctx context.Context, id uuid.UUID, image types.Image) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"image_url":      image.URL,
			"image_filename": image.Filename,
		}).Error
}

// Delete removes the user row. Uploads and needs go with it through the
// owner foreign keys.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
