package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// Upload is a physical-item contribution posted by its owner.
type Upload struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;index"`
	Owner       *User              `gorm:"foreignKey:OwnerID"`
	Category    string             `gorm:"column:category;type:text;not null;index"`
	Description string             `gorm:"column:description;type:text;not null"`
	Location    string             `gorm:"column:location;type:text;not null"`
	Geometry    types.GeoPoint     `gorm:"column:geometry;type:jsonb;not null"`
	Image       types.Image        `gorm:"embedded;embeddedPrefix:image_"`
	Status      enums.UploadStatus `gorm:"column:status;type:text;not null;default:pending"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *Upload) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Status == "" {
		u.Status = enums.UploadStatusPending
	}
	return nil
}
