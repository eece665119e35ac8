package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/db/dbtest"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, event *models.LedgerEvent) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, event *models.LedgerEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error) {
	return nil, nil
}

func (f *fakeRepository) ListDrift(ctx context.Context, limit int) ([]Drift, error) {
	return nil, nil
}

func usersCounters(repo *users.Repository) CounterAdjusterFunc {
	return func(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ecotokens, warnings int) error {
		return repo.WithTx(tx).AdjustCounters(ctx, userID, ecotokens, warnings)
	}
}

func TestDeltas(t *testing.T) {
	cases := []struct {
		eventType enums.LedgerEventType
		ecotokens int
		warnings  int
	}{
		{enums.LedgerEventUploadCreated, 5, 0},
		{enums.LedgerEventUploadAccepted, 10, 0},
		{enums.LedgerEventUploadDeleted, -5, 1},
		{enums.LedgerEventType("other"), 0, 0},
	}
	for _, tc := range cases {
		eco, warn := Deltas(tc.eventType)
		if eco != tc.ecotokens || warn != tc.warnings {
			t.Fatalf("%s: expected (%d,%d) got (%d,%d)", tc.eventType, tc.ecotokens, tc.warnings, eco, warn)
		}
	}
}

func TestCertified(t *testing.T) {
	if Certified(995) {
		t.Fatal("995 must not qualify")
	}
	if !Certified(1000) {
		t.Fatal("1000 must qualify")
	}
}

func TestService_ApplyUpdatesCountersAndAppendsEvent(t *testing.T) {
	conn := dbtest.Open(t)
	userRepo := users.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), usersCounters(userRepo))
	require.NoError(t, err)

	ctx := context.Background()
	owner, err := userRepo.Create(ctx, users.CreateUserDTO{Username: "owner", Role: enums.UserRoleUser})
	require.NoError(t, err)
	uploadID := uuid.New()

	err = conn.Transaction(func(tx *gorm.DB) error {
		for _, eventType := range []enums.LedgerEventType{
			enums.LedgerEventUploadCreated,
			enums.LedgerEventUploadAccepted,
			enums.LedgerEventUploadAccepted,
			enums.LedgerEventUploadDeleted,
		} {
			if _, err := svc.Apply(ctx, tx, ApplyInput{
				UserID:   owner.ID,
				ActorID:  owner.ID,
				UploadID: &uploadID,
				Type:     eventType,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	reloaded, err := userRepo.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 5+10+10-5, reloaded.Ecotokens)
	assert.Equal(t, 1, reloaded.Warnings)

	history, err := svc.History(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, -5, history[3].EcotokensDelta)
	assert.Equal(t, 1, history[3].WarningsDelta)
}

func TestService_ApplyRollsBackWithCaller(t *testing.T) {
	conn := dbtest.Open(t)
	userRepo := users.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), usersCounters(userRepo))
	require.NoError(t, err)

	ctx := context.Background()
	owner, err := userRepo.Create(ctx, users.CreateUserDTO{Username: "owner", Role: enums.UserRoleUser})
	require.NoError(t, err)

	boom := errors.New("later step failed")
	err = conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Apply(ctx, tx, ApplyInput{UserID: owner.ID, ActorID: owner.ID, Type: enums.LedgerEventUploadCreated}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := userRepo.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.Ecotokens)

	history, err := svc.History(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestService_ApplyValidation(t *testing.T) {
	calls := 0
	counters := CounterAdjusterFunc(func(context.Context, *gorm.DB, uuid.UUID, int, int) error {
		calls++
		return nil
	})
	svc, err := NewService(&fakeRepository{}, counters)
	require.NoError(t, err)

	ctx := context.Background()
	tx := &gorm.DB{}
	cases := []ApplyInput{
		{ActorID: uuid.New(), Type: enums.LedgerEventUploadCreated},
		{UserID: uuid.New(), Type: enums.LedgerEventUploadCreated},
		{UserID: uuid.New(), ActorID: uuid.New(), Type: "bogus"},
	}
	for _, input := range cases {
		_, err := svc.Apply(ctx, tx, input)
		assert.Error(t, err)
	}
	_, err = svc.Apply(ctx, nil, ApplyInput{UserID: uuid.New(), ActorID: uuid.New(), Type: enums.LedgerEventUploadCreated})
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestService_ApplySurfacesCounterFailure(t *testing.T) {
	counters := CounterAdjusterFunc(func(context.Context, *gorm.DB, uuid.UUID, int, int) error {
		return gorm.ErrRecordNotFound
	})
	created := false
	repo := &fakeRepository{createFn: func(context.Context, *models.LedgerEvent) error {
		created = true
		return nil
	}}
	svc, err := NewService(repo, counters)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), &gorm.DB{}, ApplyInput{UserID: uuid.New(), ActorID: uuid.New(), Type: enums.LedgerEventUploadDeleted})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.False(t, created)
}
