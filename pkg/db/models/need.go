package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// Need is an item request registered by a user or NGO.
type Need struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index"`
	Owner       *User          `gorm:"foreignKey:OwnerID"`
	Category    string         `gorm:"column:category;type:text;not null;index"`
	Description string         `gorm:"column:description;type:text;not null"`
	Location    string         `gorm:"column:location;type:text;not null"`
	Geometry    types.GeoPoint `gorm:"column:geometry;type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (n *Need) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
