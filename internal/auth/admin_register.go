package auth

import (
	"context"
	"strings"

	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/security"
	"gorm.io/gorm"
)

// AdminRegisterRequest contains the credentials for the operator-only admin registration flow.
type AdminRegisterRequest struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"required"`
	Password string `validate:"required"`
}

// AdminRegisterService handles creating admin users from the command line.
type AdminRegisterService interface {
	Register(ctx context.Context, req AdminRegisterRequest) (*models.User, error)
}

// AdminRegisterServiceParams names the dependencies for the admin register flow.
type AdminRegisterServiceParams struct {
	DB               db.TxRunner
	PasswordConfig   config.PasswordConfig
	DefaultAvatarURL string
}

type adminRegisterService struct {
	db            db.TxRunner
	passwordCfg   config.PasswordConfig
	defaultAvatar string
}

// NewAdminRegisterService builds an admin registration service.
func NewAdminRegisterService(params AdminRegisterServiceParams) (AdminRegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &adminRegisterService{
		db:            params.DB,
		passwordCfg:   params.PasswordConfig,
		defaultAvatar: params.DefaultAvatarURL,
	}, nil
}

func (s *adminRegisterService) Register(ctx context.Context, req AdminRegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := createUser(ctx, users.NewRepository(tx), users.CreateUserDTO{
			Username:     username,
			Email:        email,
			Phone:        req.Phone,
			Role:         enums.UserRoleAdmin,
			PasswordHash: passwordHash,
			AvatarURL:    s.defaultAvatar,
		})
		if err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
