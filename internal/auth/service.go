package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/security"
)

const (
	invalidCredentialsMessage = "Password or username is incorrect"
	duplicateUsernameMessage  = "A user with the given username is already registered"

	// BannedMessage is shown when a banned account tries to log in.
	BannedMessage = "Your account has been banned. Please contact admin."
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*models.User, error)
	Signup(ctx context.Context, req SignupRequest) (*models.User, error)
}

type passwordVerifier func(password, encoded string) (bool, error)

type service struct {
	db            db.TxRunner
	users         *users.Repository
	notifier      notifications.Sender
	passwordCfg   config.PasswordConfig
	defaultAvatar string
	verify        passwordVerifier
	now           func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB               db.TxRunner
	Users            *users.Repository
	Notifier         notifications.Sender
	PasswordConfig   config.PasswordConfig
	DefaultAvatarURL string
}

// NewService constructs the login/signup service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	return &service{
		db:            params.DB,
		users:         params.Users,
		notifier:      params.Notifier,
		passwordCfg:   params.PasswordConfig,
		defaultAvatar: params.DefaultAvatarURL,
		verify:        security.VerifyPassword,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Login screens the username for a ban before any credential check, then
// verifies the password and broadcasts the login to admins.
func (s *service) Login(ctx context.Context, req LoginRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.IsBanned {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, BannedMessage)
	}

	valid, err := s.verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	if err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) error {
	now := s.now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).UpdateLastLogin(ctx, user.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
		}
		message := fmt.Sprintf("%s has logged in", user.Username)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerUserLogin, message, user.ID, enums.AggregateUser, user.ID))
	})
	if err != nil {
		return err
	}
	user.LastLoginAt = &now
	return nil
}

// Signup creates a user or ngo account. Admin accounts are only created by
// the create-admin command.
func (s *service) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No username was given")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No password was given")
	}
	role, err := enums.ParseUserRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if err != nil || role == enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please choose a valid role")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := createUser(ctx, s.users.WithTx(tx), users.CreateUserDTO{
			Username:     username,
			Email:        req.Email,
			Phone:        req.Phone,
			Role:         role,
			PasswordHash: passwordHash,
			AvatarURL:    s.defaultAvatar,
		})
		if err != nil {
			return err
		}
		created = user
		message := fmt.Sprintf("%s has signed up as %s", user.Username, user.Role)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerUserSignup, message, user.ID, enums.AggregateUser, user.ID))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func createUser(ctx context.Context, repo *users.Repository, dto users.CreateUserDTO) (*models.User, error) {
	if _, err := repo.FindByUsername(ctx, strings.TrimSpace(dto.Username)); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicateUsernameMessage)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
	}

	user, err := repo.Create(ctx, dto)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, duplicateUsernameMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return user, nil
}
