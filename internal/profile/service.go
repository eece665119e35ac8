package profile

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/ledger"
	"github.com/ecobridge/ecobridge-server/internal/media"
	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
)

const (
	CertifiedMessage        = "Congralutions! You have been certified"
	NotEnoughTokensMessage  = "Not Enough Ecotokens"
	PhotoUpdatedMessage     = "Profile Picture Updated!"
	PhotoUpdateFailedNotice = "Something went wrong"
)

// recentActivityLimit caps the ledger entries shown on the profile page.
const recentActivityLimit = 10

// NeedFinder returns the first need owned by a user, or nil.
type NeedFinder interface {
	FirstForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Need, error)
}

// ActivityReader returns a user's ledger events, oldest first.
type ActivityReader interface {
	History(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error)
}

// View is the data behind the profile page. Activity holds the most recent
// ledger events, newest first.
type View struct {
	User     *models.User
	Need     *models.Need
	HasNeed  bool
	Activity []models.LedgerEvent
}

// Service exposes the profile page and its self-service actions.
type Service interface {
	Show(ctx context.Context, userID uuid.UUID) (*View, error)
	UpdatePhoto(ctx context.Context, actor *models.User, fileName string, r io.Reader) (*models.User, error)
	CheckCertificate(ctx context.Context, actor *models.User) (bool, error)
}

type ServiceParams struct {
	DB       db.TxRunner
	Users    *users.Repository
	Needs    NeedFinder
	Ledger   ActivityReader
	Media    media.Service
	Notifier notifications.Sender
	Logger   *logger.Logger
}

type service struct {
	db       db.TxRunner
	users    *users.Repository
	needs    NeedFinder
	ledger   ActivityReader
	media    media.Service
	notifier notifications.Sender
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("database client required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Needs == nil:
		return nil, fmt.Errorf("needs finder required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger reader required")
	case params.Media == nil:
		return nil, fmt.Errorf("media service required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		db:       params.DB,
		users:    params.Users,
		needs:    params.Needs,
		ledger:   params.Ledger,
		media:    params.Media,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) Show(ctx context.Context, userID uuid.UUID) (*View, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	need, err := s.needs.FirstForOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.ledger.History(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ledger history")
	}
	return &View{User: user, Need: need, HasNeed: need != nil, Activity: recentFirst(history, recentActivityLimit)}, nil
}

func recentFirst(events []models.LedgerEvent, limit int) []models.LedgerEvent {
	n := len(events)
	if n > limit {
		n = limit
	}
	out := make([]models.LedgerEvent, 0, n)
	for i := len(events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, events[i])
	}
	return out
}

// UpdatePhoto stores the new image, points the user at it and then destroys
// the previous one unless it is the default avatar.
func (s *service) UpdatePhoto(ctx context.Context, actor *models.User, fileName string, r io.Reader) (*models.User, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please Login to continue")
	}
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	image, err := s.media.Save(ctx, fileName, r)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateImage(ctx, user.ID, image); err != nil {
		_ = s.media.Discard(ctx, image)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile image")
	}

	previous := user.Image
	user.Image = image
	if err := s.media.Discard(ctx, previous); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", user.ID.String()), "previous profile image not destroyed")
	}
	return user, nil
}

// CheckCertificate reports whether the user has reached the certification
// threshold. Reaching it is announced to admins; nothing is persisted on the user.
func (s *service) CheckCertificate(ctx context.Context, actor *models.User) (bool, error) {
	if actor == nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please Login to continue")
	}
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return false, err
	}
	if !ledger.Certified(user.Ecotokens) {
		return false, nil
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		message := fmt.Sprintf("%s has been certified with %d ecotokens", user.Username, user.Ecotokens)
		return s.notifier.Notify(ctx, tx, notifications.ToAdmins(notifications.TriggerCertified, message, user.ID, enums.AggregateCertificate, user.ID))
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}
