package needs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/dbtest"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

type fakeGeocoder struct {
	calls []string
	fail  bool
}

func (f *fakeGeocoder) Geocode(ctx context.Context, location string) (types.GeoPoint, error) {
	f.calls = append(f.calls, location)
	if f.fail {
		return types.GeoPoint{}, pkgerrors.New(pkgerrors.CodeDependency, "location not found")
	}
	return types.NewGeoPoint(19.07, 72.87), nil
}

type recordingSender struct {
	intents []notifications.Intent
}

func (r *recordingSender) Notify(ctx context.Context, tx *gorm.DB, intent notifications.Intent) error {
	r.intents = append(r.intents, intent)
	return nil
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	repo     *Repository
	geocoder *fakeGeocoder
	sender   *recordingSender
	owner    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	owner, err := users.NewRepository(conn).Create(context.Background(), users.CreateUserDTO{Username: "helping-hands", Role: enums.UserRoleNGO})
	require.NoError(t, err)

	f := &fixture{conn: conn, repo: NewRepository(conn), geocoder: &fakeGeocoder{}, sender: &recordingSender{}, owner: owner}
	f.svc, err = NewService(ServiceParams{
		DB:         db.FromConn(conn),
		Repository: f.repo,
		Geocoder:   f.geocoder,
		Notifier:   f.sender,
	})
	require.NoError(t, err)
	return f
}

func TestCreateNeedGeocodesAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	need, err := f.svc.Create(context.Background(), f.owner, CreateInput{Category: "Books", Description: "School books", Location: "Mumbai"})
	require.NoError(t, err)

	assert.Equal(t, f.owner.ID, need.OwnerID)
	assert.Equal(t, "Point", need.Geometry.Type)
	assert.Equal(t, []string{"Mumbai"}, f.geocoder.calls)

	require.Len(t, f.sender.intents, 1)
	intent := f.sender.intents[0]
	assert.Equal(t, enums.NotificationAudienceAdmins, intent.Audience)
	assert.Equal(t, notifications.TriggerNeedCreated, intent.Trigger)
	assert.Equal(t, "helping-hands has requested Books", intent.Message)
	assert.Equal(t, need.ID, intent.AggregateID)

	first, err := f.svc.FirstForOwner(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, need.ID, first.ID)
}

func TestCreateNeedAbortsWhenLocationUnknown(t *testing.T) {
	f := newFixture(t)
	f.geocoder.fail = true

	_, err := f.svc.Create(context.Background(), f.owner, CreateInput{Category: "Books", Description: "x", Location: "Atlantis"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, f.conn.Model(&models.Need{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.sender.intents)
}

func TestCreateNeedValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.owner, CreateInput{Category: " ", Description: "x", Location: "y"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = f.svc.Create(context.Background(), nil, CreateInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateNeedMergesFieldsWithoutOwnershipCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	need, err := f.svc.Create(ctx, f.owner, CreateInput{Category: "Books", Description: "School books", Location: "Mumbai"})
	require.NoError(t, err)

	stranger, err := users.NewRepository(f.conn).Create(ctx, users.CreateUserDTO{Username: "stranger", Role: enums.UserRoleUser})
	require.NoError(t, err)

	description := "Story books"
	updated, err := f.svc.Update(ctx, stranger, need.ID, UpdateInput{Description: &description})
	require.NoError(t, err)
	assert.Equal(t, "Books", updated.Category)
	assert.Equal(t, "Story books", updated.Description)
	assert.Equal(t, "Mumbai", updated.Location)
	assert.Len(t, f.geocoder.calls, 1)

	location := "Pune"
	updated, err = f.svc.Update(ctx, f.owner, need.ID, UpdateInput{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Pune", updated.Location)
	assert.Len(t, f.geocoder.calls, 2)

	require.Len(t, f.sender.intents, 3)
	assert.Equal(t, notifications.TriggerNeedUpdated, f.sender.intents[1].Trigger)
	assert.Equal(t, stranger.ID, f.sender.intents[1].SenderID)
}

func TestGetAndUpdateMissingNeed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	assert.Equal(t, MissingNeedMessage, pkgerrors.As(err).Message())

	_, err = f.svc.Update(context.Background(), f.owner, uuid.New(), UpdateInput{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	none, err := f.svc.FirstForOwner(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSameCategoryPreloadsOwners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.owner, CreateInput{Category: "Clothes", Description: "Winter wear", Location: "Delhi"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.owner, CreateInput{Category: "Books", Description: "Novels", Location: "Delhi"})
	require.NoError(t, err)

	out, err := f.svc.SameCategory(ctx, "Clothes")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Owner)
	assert.Equal(t, "helping-hands", out[0].Owner.Username)
}
