package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/db/dbtest"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
)

func TestListDriftFindsCountersChangedOutsideLedger(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	userRepo := users.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), usersCounters(userRepo))
	require.NoError(t, err)

	consistent, err := userRepo.Create(ctx, users.CreateUserDTO{Username: "asha", Role: enums.UserRoleUser})
	require.NoError(t, err)
	tampered, err := userRepo.Create(ctx, users.CreateUserDTO{Username: "ravi", Role: enums.UserRoleUser})
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, users.CreateUserDTO{Username: "idle", Role: enums.UserRoleNGO})
	require.NoError(t, err)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Apply(ctx, tx, ApplyInput{UserID: consistent.ID, ActorID: consistent.ID, Type: enums.LedgerEventUploadCreated}); err != nil {
			return err
		}
		_, err := svc.Apply(ctx, tx, ApplyInput{UserID: tampered.ID, ActorID: tampered.ID, Type: enums.LedgerEventUploadDeleted})
		return err
	}))
	require.NoError(t, userRepo.AdjustCounters(ctx, tampered.ID, 100, 0))

	drift, err := NewRepository(conn).ListDrift(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, tampered.ID, drift[0].UserID)
	assert.Equal(t, 95, drift[0].Ecotokens)
	assert.Equal(t, -5, drift[0].LedgerEcotokens)
	assert.Equal(t, 1, drift[0].Warnings)
	assert.Equal(t, 1, drift[0].LedgerWarnings)
}
