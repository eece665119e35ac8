package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is one delivered message for one recipient. Rows are only
// created by the outbox drainer.
type Notification struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RecipientID uuid.UUID  `gorm:"column:recipient_id;type:uuid;not null;index"`
	SenderID    uuid.UUID  `gorm:"column:sender_id;type:uuid;not null"`
	Sender      *User      `gorm:"foreignKey:SenderID"`
	Message     string     `gorm:"column:message;type:text;not null"`
	EventID     *uuid.UUID `gorm:"column:event_id;type:uuid"`
	ReadAt      *time.Time `gorm:"column:read_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
