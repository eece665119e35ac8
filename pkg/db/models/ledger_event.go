package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/pkg/enums"
)

// LedgerEvent is an append-only record of one counter mutation on a user.
type LedgerEvent struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	ActorID        uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	UploadID       *uuid.UUID            `gorm:"column:upload_id;type:uuid"`
	Type           enums.LedgerEventType `gorm:"column:type;type:text;not null"`
	EcotokensDelta int                   `gorm:"column:ecotokens_delta;not null"`
	WarningsDelta  int                   `gorm:"column:warnings_delta;not null"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
