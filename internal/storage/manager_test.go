package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SQLiteFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m, err := NewManager(config.Database{Driver: "sqlite", Path: dir})
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, m.Dialect().Name())

	prod, err := m.Store(ctx, config.Prod)
	require.NoError(t, err)
	again, err := m.Store(ctx, config.Prod)
	require.NoError(t, err)
	assert.Same(t, prod, again)
	assert.Equal(t, config.ProdSchema, prod.Schema())

	createTestAccount(t, prod, "Persistida", "12.34")

	for _, schema := range []string{config.ProdSchema, config.DevSchema} {
		_, err := os.Stat(filepath.Join(dir, schema+".db"))
		require.NoError(t, err, schema)
	}
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	reopened, err := NewManager(config.Database{Driver: "sqlite3", Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	prod, err = reopened.Store(ctx, config.Prod)
	require.NoError(t, err)
	accounts, err := prod.ListAccounts(ctx, true)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, dec("12.34").Equal(accounts[0].Balance.Current))

	dev, err := reopened.Store(ctx, config.Dev)
	require.NoError(t, err)
	accounts, err = dev.ListAccounts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestNewManager_Errors(t *testing.T) {
	_, err := NewManager(config.Database{Driver: "oracle"})
	require.Error(t, err)

	_, err = NewManager(config.Database{Driver: "sqlite3"})
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestManager_ClosedWithoutDatabase(t *testing.T) {
	m := &Manager{}
	_, err := m.Store(context.Background(), config.Prod)
	require.ErrorIs(t, err, common.ErrMissingConfig)
}
