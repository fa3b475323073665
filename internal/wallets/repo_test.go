package wallets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/relaymart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
)

func TestDebitAndCredit(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := &models.User{Name: "Ravi", Email: "ravi@example.com", WalletBalancePaise: 5000}
	dbtest.MustCreate(t, conn, user)

	require.NoError(t, repo.Debit(ctx, user.ID, 3000))
	balance, err := repo.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2000, balance)

	err = repo.Debit(ctx, user.ID, 2001)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	balance, err = repo.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2000, balance, "failed debit leaves balance untouched")

	require.NoError(t, repo.Credit(ctx, user.ID, 500))
	balance, err = repo.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2500, balance)

	require.NoError(t, repo.Debit(ctx, user.ID, 0), "zero debit is a no-op")
}

func TestBalanceNeverNegativeUnderRepeatedDebits(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := &models.User{Name: "Meera", Email: "meera@example.com", WalletBalancePaise: 10000}
	dbtest.MustCreate(t, conn, user)

	succeeded := 0
	for i := 0; i < 7; i++ {
		if err := repo.Debit(ctx, user.ID, 1500); err == nil {
			succeeded++
		}
	}
	require.Equal(t, 6, succeeded)

	balance, err := repo.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1000, balance)
}

func TestUnknownUser(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.Balance(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = repo.Credit(context.Background(), uuid.New(), 100)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
