package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/config"
	"github.com/Veraticus/financas/internal/service"

	// SQL Server driver.
	_ "github.com/microsoft/go-mssqldb"
)

// DefaultConnectRetry bounds the attempts to reach the database on first use.
var DefaultConnectRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2,
}

// Manager owns the connection pool of one database and hands out one
// migrated Store per environment. It is safe for concurrent use.
type Manager struct {
	open    func(ctx context.Context) (*sql.DB, error)
	db      *sql.DB
	dialect Dialect
	stores  map[config.Environment]*Store
	retry   service.RetryOptions
	mu      sync.Mutex
}

// NewManager returns a manager for the configured database. No connection
// is made until the first Store call.
func NewManager(cfg config.Database) (*Manager, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	dialect, err := NewDialect(driver)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		dialect: dialect,
		stores:  make(map[config.Environment]*Store),
		retry:   DefaultConnectRetry,
	}
	m.open = func(ctx context.Context) (*sql.DB, error) {
		if driver == config.DriverSQLite {
			return OpenSQLite(dsn)
		}
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(5 * time.Minute)
		return db, nil
	}

	slog.Debug("configured database", "driver", driver, "target", cfg.Redacted())
	return m, nil
}

// NewManagerWithDB wraps an already open database.
func NewManagerWithDB(db *sql.DB, dialect Dialect) *Manager {
	return &Manager{
		db:      db,
		dialect: dialect,
		stores:  make(map[config.Environment]*Store),
		retry:   DefaultConnectRetry,
	}
}

// Store returns the store of env, connecting, creating the schema and
// running migrations on first use.
func (m *Manager) Store(ctx context.Context, env config.Environment) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[env]; ok {
		return s, nil
	}

	db, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}

	s, err := NewStore(db, m.dialect, env.Schema())
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", env.Schema(), err)
	}

	m.stores[env] = s
	slog.Debug("opened environment", "env", env, "schema", env.Schema())
	return s, nil
}

// connect opens the pool and pings it with bounded retries. m.mu is held.
func (m *Manager) connect(ctx context.Context) (*sql.DB, error) {
	if m.db != nil {
		return m.db, nil
	}
	if m.open == nil {
		return nil, fmt.Errorf("%w: no database", common.ErrMissingConfig)
	}

	db, err := m.open(ctx)
	if err != nil {
		return nil, err
	}

	err = common.WithRetry(ctx, func() error {
		return db.PingContext(ctx)
	}, m.retry)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to database: %w", err), db.Close())
	}

	m.db = db
	return db, nil
}

// Dialect returns the SQL dialect of the managed database.
func (m *Manager) Dialect() Dialect {
	return m.dialect
}

// Close closes the pool. Stores handed out become unusable.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stores = make(map[config.Environment]*Store)
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
