package users

import (
	"strings"

	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	Email        string
	Phone        string
	Role         enums.UserRole
	PasswordHash string
	AvatarURL    string
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Username:     strings.TrimSpace(c.Username),
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:        strings.TrimSpace(c.Phone),
		Role:         c.Role,
		PasswordHash: c.PasswordHash,
		Image:        types.Image{URL: c.AvatarURL},
	}
}
