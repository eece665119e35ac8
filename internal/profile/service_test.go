package profile

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/ledger"
	"github.com/ecobridge/ecobridge-server/internal/media"
	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/dbtest"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

const defaultAvatar = "https://example.com/default.jpg"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Store(ctx context.Context, data []byte, name, contentType string) (types.Image, error) {
	key := uuid.NewString() + "-" + name
	m.objects[key] = data
	return types.Image{URL: "https://storage.example.com/" + key, Filename: key}, nil
}

func (m *memoryStore) Destroy(ctx context.Context, filename string) error {
	delete(m.objects, filename)
	return nil
}

type recordingSender struct {
	intents []notifications.Intent
}

func (r *recordingSender) Notify(ctx context.Context, tx *gorm.DB, intent notifications.Intent) error {
	r.intents = append(r.intents, intent)
	return nil
}

type needFinder struct {
	need *models.Need
}

func (n needFinder) FirstForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Need, error) {
	return n.need, nil
}

type fixture struct {
	conn   *gorm.DB
	users  *users.Repository
	ledger ledger.Service
	store  *memoryStore
	sender *recordingSender
	svc    Service
}

func newFixture(t *testing.T, need *models.Need) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "profile-test", Output: io.Discard})
	f := &fixture{
		conn:   conn,
		users:  users.NewRepository(conn),
		store:  &memoryStore{objects: map[string][]byte{}},
		sender: &recordingSender{},
	}
	mediaSvc, err := media.NewService(f.store, 1<<20, defaultAvatar, logg)
	require.NoError(t, err)
	f.ledger, err = ledger.NewService(
		ledger.NewRepository(conn),
		ledger.CounterAdjusterFunc(func(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ecotokens, warnings int) error {
			return f.users.WithTx(tx).AdjustCounters(ctx, userID, ecotokens, warnings)
		}),
	)
	require.NoError(t, err)
	f.svc, err = NewService(ServiceParams{
		DB:       db.FromConn(conn),
		Users:    f.users,
		Needs:    needFinder{need: need},
		Ledger:   f.ledger,
		Media:    mediaSvc,
		Notifier: f.sender,
		Logger:   logg,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) userWithTokens(t *testing.T, ecotokens int) *models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), users.CreateUserDTO{Username: "asha", Role: enums.UserRoleUser, AvatarURL: defaultAvatar})
	require.NoError(t, err)
	require.NoError(t, f.users.AdjustCounters(context.Background(), u.ID, ecotokens, 0))
	return u
}

func TestShowIncludesFirstNeed(t *testing.T) {
	need := &models.Need{ID: uuid.New(), Category: "Books"}
	f := newFixture(t, need)
	user := f.userWithTokens(t, 0)

	view, err := f.svc.Show(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, view.User.ID)
	assert.True(t, view.HasNeed)
	assert.Equal(t, need.ID, view.Need.ID)

	empty := newFixture(t, nil)
	other := empty.userWithTokens(t, 0)
	view, err = empty.svc.Show(context.Background(), other.ID)
	require.NoError(t, err)
	assert.False(t, view.HasNeed)
	assert.Nil(t, view.Need)
}

func TestShowListsRecentActivityNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	user := f.userWithTokens(t, 0)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < recentActivityLimit+2; i++ {
		eventType := enums.LedgerEventUploadCreated
		if i == recentActivityLimit+1 {
			eventType = enums.LedgerEventUploadDeleted
		}
		ecotokens, warnings := ledger.Deltas(eventType)
		require.NoError(t, f.conn.Create(&models.LedgerEvent{
			UserID:         user.ID,
			ActorID:        user.ID,
			Type:           eventType,
			EcotokensDelta: ecotokens,
			WarningsDelta:  warnings,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	view, err := f.svc.Show(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, view.Activity, recentActivityLimit)
	assert.Equal(t, enums.LedgerEventUploadDeleted, view.Activity[0].Type)
	assert.Equal(t, -ledger.UploadDeletedPenalty, view.Activity[0].EcotokensDelta)
	assert.Equal(t, enums.LedgerEventUploadCreated, view.Activity[recentActivityLimit-1].Type)
}

func TestRecentFirstReversesAndCaps(t *testing.T) {
	events := []models.LedgerEvent{{EcotokensDelta: 1}, {EcotokensDelta: 2}, {EcotokensDelta: 3}}

	got := recentFirst(events, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].EcotokensDelta)
	assert.Equal(t, 2, got[1].EcotokensDelta)

	assert.Empty(t, recentFirst(nil, 5))
}

func TestCertificateBelowThreshold(t *testing.T) {
	f := newFixture(t, nil)
	user := f.userWithTokens(t, 995)

	ok, err := f.svc.CheckCertificate(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.sender.intents)

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 995, stored.Ecotokens)
}

func TestCertificateAtThresholdBroadcasts(t *testing.T) {
	f := newFixture(t, nil)
	user := f.userWithTokens(t, 1000)

	ok, err := f.svc.CheckCertificate(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, f.sender.intents, 1)
	intent := f.sender.intents[0]
	assert.Equal(t, notifications.TriggerCertified, intent.Trigger)
	assert.Equal(t, enums.AggregateCertificate, intent.AggregateType)
	assert.Equal(t, enums.NotificationAudienceAdmins, intent.Audience)

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, stored.Ecotokens)
	assert.Zero(t, stored.Warnings)
}

func TestUpdatePhotoKeepsPlaceholderAndReplacesStoredImage(t *testing.T) {
	f := newFixture(t, nil)
	user := f.userWithTokens(t, 0)

	updated, err := f.svc.UpdatePhoto(context.Background(), user, "me.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	first := updated.Image
	assert.Contains(t, f.store.objects, first.Filename)

	updated, err = f.svc.UpdatePhoto(context.Background(), user, "me2.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.NotContains(t, f.store.objects, first.Filename)
	assert.Contains(t, f.store.objects, updated.Image.Filename)
	assert.Len(t, f.store.objects, 1)

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Image, stored.Image)
}

func TestUpdatePhotoRejectsNonImage(t *testing.T) {
	f := newFixture(t, nil)
	user := f.userWithTokens(t, 0)

	_, err := f.svc.UpdatePhoto(context.Background(), user, "notes.txt", bytes.NewReader([]byte("plain text")))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, defaultAvatar, stored.Image.URL)
}
