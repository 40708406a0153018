package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/financas/internal/config"
	"github.com/Veraticus/financas/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// createTestStorage returns the migrated prod store of a fresh in-memory
// database together with its manager.
func createTestStorage(t *testing.T) (*Store, *Manager) {
	t.Helper()

	db, err := OpenSQLite(MemoryDir)
	require.NoError(t, err)

	m := NewManagerWithDB(db, sqliteDialect{})
	t.Cleanup(func() { _ = m.Close() })

	store, err := m.Store(context.Background(), config.Prod)
	require.NoError(t, err)
	return store, m
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func createTestAccount(t *testing.T, s *Store, name, initial string) *model.Account {
	t.Helper()
	acc := &model.Account{
		Dimension: model.AccountDimension{Name: name, Type: "Conta Corrente"},
		Balance:   model.AccountBalance{Initial: dec(initial)},
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func createTestTransaction(t *testing.T, s *Store, accountID int64, kind model.Kind, amount string) *model.Transaction {
	t.Helper()
	txn := &model.Transaction{
		Description: "Teste " + amount,
		Amount:      dec(amount),
		Date:        day("2024-03-10"),
		Kind:        kind,
		AccountID:   &accountID,
	}
	require.NoError(t, s.CreateTransaction(context.Background(), txn))
	return txn
}

func requireBalance(t *testing.T, s *Store, accountID int64, want string) {
	t.Helper()
	acc, err := s.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, dec(want).Equal(acc.Balance.Current), "balance of account %d: want %s, got %s", accountID, want, acc.Balance.Current)
}

func ptr[T any](v T) *T {
	return &v
}
