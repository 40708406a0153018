// Package storage provides the data persistence layer for the ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/service"
	"github.com/shopspring/decimal"
)

var _ service.Storage = (*Store)(nil)

// Store is the ledger of one environment schema. Stores for different
// schemas may share the same *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tokens  *strings.Replacer
	schema  string
}

// NewStore returns a store over db for schema. It does not touch the
// database; call Migrate before use.
func NewStore(db *sql.DB, dialect Dialect, schema string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db", ErrNilParameter)
	}
	if err := validateIdentifier(schema); err != nil {
		return nil, err
	}
	return &Store{
		db:      db,
		dialect: dialect,
		schema:  schema,
		tokens:  dialect.Tokens(schema),
	}, nil
}

// Schema returns the schema this store reads and writes.
func (s *Store) Schema() string {
	return s.schema
}

// Dialect returns the SQL dialect of the underlying database.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs dialect-rewritten queries against a *sql.DB or *sql.Tx.
type conn struct {
	q queryable
	s *Store
}

func (s *Store) conn(q queryable) conn {
	return conn{q: q, s: s}
}

func (s *Store) prepare(query string) string {
	return s.dialect.Rebind(s.tokens.Replace(query))
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.s.prepare(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.s.prepare(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.s.prepare(query), args...)
}

// insert runs an INSERT ... VALUES statement and returns the new id.
func (c conn) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := c.q.QueryRowContext(ctx, c.s.prepare(c.s.dialect.Returning(query)), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// affected returns an error wrapping ErrNotFound when res touched no row.
func affected(res sql.Result, what string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, common.ErrNotFound)
	}
	return nil
}

// withReconnect runs op and, if it failed because the connection dropped,
// pings to re-establish the pool and runs op once more. Errors marked with
// common.Permanent are returned as they are.
func (s *Store) withReconnect(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !common.IsConnectionError(err) || ctx.Err() != nil {
		return err
	}
	var permanent *common.RetryableError
	if errors.As(err, &permanent) && !permanent.Retryable {
		return err
	}

	slog.Warn("Database connection lost, reconnecting",
		"schema", s.schema,
		"error", err)

	if pingErr := s.db.PingContext(ctx); pingErr != nil {
		return fmt.Errorf("failed to reconnect: %w", errors.Join(err, pingErr))
	}
	return op()
}

// read runs fn against the pool.
func (s *Store) read(ctx context.Context, fn func(c conn) error) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withReconnect(ctx, func() error {
		return fn(s.conn(s.db))
	})
}

// withTx runs fn inside a database transaction, committing when fn succeeds.
// fn must use only the conn it is given.
func (s *Store) withTx(ctx context.Context, fn func(c conn) error) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withReconnect(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(s.conn(tx)); err != nil {
			return err
		}

		// The outcome of a failed commit is unknown, so it is never retried.
		if err := tx.Commit(); err != nil {
			return common.Permanent(fmt.Errorf("failed to commit transaction: %w", err))
		}
		return nil
	})
}

// Nullable column helpers.

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
