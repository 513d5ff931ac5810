package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx_RollbackKeepsConcurrentWrite(t *testing.T) {
	// Arrange
	store := New()
	store.PutAccount(ledger.Account{ID: "a1", CurrentBalance: money.FromMajor(10)})
	store.PutAccount(ledger.Account{ID: "a2", CurrentBalance: money.FromMajor(20)})
	repo := store.AccountRepo()
	outside := make(chan error, 1)

	// Act
	err := store.WithinTx(context.Background(), pgx.TxOptions{}, func(ctx context.Context) error {
		go func() {
			outside <- repo.UpdateBalance(context.Background(), "a2", money.FromMajor(99))
		}()
		// Give the outside writer time to reach the store while the transaction is open.
		time.Sleep(20 * time.Millisecond)
		if err := repo.UpdateBalance(ctx, "a1", money.FromMajor(0)); err != nil {
			return err
		}
		return errors.New("boom")
	})

	// Assert
	require.EqualError(t, err, "boom")
	require.NoError(t, <-outside)
	assert.Equal(t, money.FromMajor(10), store.Account("a1").CurrentBalance)
	assert.Equal(t, money.FromMajor(99), store.Account("a2").CurrentBalance)
}

func TestStore_WithinTx_NestedCallJoinsOuter(t *testing.T) {
	store := New()
	store.PutAccount(ledger.Account{ID: "a1", CurrentBalance: money.FromMajor(10)})
	repo := store.AccountRepo()

	err := store.WithinTx(context.Background(), pgx.TxOptions{}, func(ctx context.Context) error {
		if err := store.WithinTx(ctx, pgx.TxOptions{}, func(ctx context.Context) error {
			return repo.UpdateBalance(ctx, "a1", money.FromMajor(5))
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})

	require.Error(t, err)
	assert.Equal(t, money.FromMajor(10), store.Account("a1").CurrentBalance)
	assert.Equal(t, 1, store.TxCount)
}
