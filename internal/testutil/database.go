// Package testutil provides test databases and fixtures for the ledger.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/financas/internal/config"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/storage"
	"github.com/Veraticus/financas/internal/testutil/categories"
	"github.com/shopspring/decimal"
)

// TestDB is an in-memory database with both environment schemas migrated.
type TestDB struct {
	Manager    *storage.Manager
	Prod       *storage.Store
	Dev        *storage.Store
	t          *testing.T
	Categories categories.Categories
}

// SetupTestDB creates a new in-memory test database and seeds the prod
// schema with the given categories. Cleanup is registered on t.
//
// Example:
//
//	db := testutil.SetupTestDB(t, categories.FixtureBasic)
func SetupTestDB(t *testing.T, fixtures ...categories.Fixture) *TestDB {
	t.Helper()

	builder := categories.NewBuilder(t)
	for _, f := range fixtures {
		builder = builder.WithFixture(f)
	}
	return SetupTestDBWithBuilder(t, builder)
}

// SetupTestDBWithBuilder creates a test database and builds the categories of
// builder in the prod schema.
func SetupTestDBWithBuilder(t *testing.T, builder categories.Builder) *TestDB {
	t.Helper()

	sqlDB, err := storage.OpenSQLite(storage.MemoryDir)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	dialect, err := storage.NewDialect(config.DriverSQLite)
	if err != nil {
		t.Fatalf("failed to create dialect: %v", err)
	}

	manager := storage.NewManagerWithDB(sqlDB, dialect)
	t.Cleanup(func() {
		if err := manager.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	ctx := context.Background()
	prod, err := manager.Store(ctx, config.Prod)
	if err != nil {
		t.Fatalf("failed to open prod schema: %v", err)
	}
	dev, err := manager.Store(ctx, config.Dev)
	if err != nil {
		t.Fatalf("failed to open dev schema: %v", err)
	}

	var cats categories.Categories
	if builder != nil {
		if cats, err = builder.Build(ctx, prod); err != nil {
			t.Fatalf("failed to build categories: %v", err)
		}
	}

	return &TestDB{
		Manager:    manager,
		Prod:       prod,
		Dev:        dev,
		Categories: cats,
		t:          t,
	}
}

// Category returns the id of a seeded category or fails the test.
func (db *TestDB) Category(name categories.CategoryName) int64 {
	db.t.Helper()
	return db.Categories.MustFind(db.t, name).ID
}

// MustCreateAccount creates an account with the given initial balance in store.
func (db *TestDB) MustCreateAccount(store *storage.Store, name, initial string) *model.Account {
	db.t.Helper()

	acc := &model.Account{
		Dimension: model.AccountDimension{Name: name, Type: "Conta Corrente", Institution: "Banco Teste"},
		Balance:   model.AccountBalance{Initial: decimal.RequireFromString(initial)},
	}
	if err := store.CreateAccount(context.Background(), acc); err != nil {
		db.t.Fatalf("failed to create account %q: %v", name, err)
	}
	return acc
}

// MustBalance returns the current balance of an account.
func (db *TestDB) MustBalance(store *storage.Store, accountID int64) decimal.Decimal {
	db.t.Helper()

	acc, err := store.GetAccount(context.Background(), accountID)
	if err != nil {
		db.t.Fatalf("failed to get account %d: %v", accountID, err)
	}
	return acc.Balance.Current
}
