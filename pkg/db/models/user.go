package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// User is the identity root. Uploads, needs and notifications point at it;
// it holds no back-references.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Username     string         `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email        string         `gorm:"column:email;type:text;not null"`
	Phone        string         `gorm:"column:phone;type:text;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Ecotokens    int            `gorm:"column:ecotokens;not null;default:0"`
	Warnings     int            `gorm:"column:warnings;not null;default:0"`
	IsBanned     bool           `gorm:"column:is_banned;not null;default:false"`
	Image        types.Image    `gorm:"embedded;embeddedPrefix:image_"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == enums.UserRoleAdmin
}
