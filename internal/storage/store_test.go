package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver hands out connections whose transactions only count calls and
// fail Commit with commitErr.
type fakeDriver struct {
	commitErr error
	begins    int
	commits   int
}

func (d *fakeDriver) Connect(context.Context) (driver.Conn, error) { return &fakeConn{d: d}, nil }
func (d *fakeDriver) Driver() driver.Driver                        { return d }
func (d *fakeDriver) Open(string) (driver.Conn, error)             { return &fakeConn{d: d}, nil }

type fakeConn struct{ d *fakeDriver }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	c.d.begins++
	return fakeTx{d: c.d}, nil
}

type fakeTx struct{ d *fakeDriver }

func (t fakeTx) Commit() error {
	t.d.commits++
	return t.d.commitErr
}

func (t fakeTx) Rollback() error { return nil }

func newFakeStore(t *testing.T, d *fakeDriver) *Store {
	t.Helper()
	db := sql.OpenDB(d)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewStore(db, sqliteDialect{}, "financas_pessoais")
	require.NoError(t, err)
	return store
}

// failing returns an op that fails with the given errors in turn and then
// succeeds, counting its calls.
func failing(calls *int, errs ...error) func(conn) error {
	return func(conn) error {
		*calls++
		if *calls <= len(errs) {
			return errs[*calls-1]
		}
		return nil
	}
}

func TestStoreRead_Reconnect(t *testing.T) {
	lost := fmt.Errorf("failed to query: %w", io.ErrUnexpectedEOF)
	syntax := errors.New("near \"SELEC\": syntax error")

	tests := []struct {
		name      string
		errs      []error
		wantErr   error
		wantCalls int
	}{
		{name: "success runs once", wantCalls: 1},
		{name: "connection error retried once", errs: []error{lost}, wantCalls: 2},
		{name: "bad connection retried once", errs: []error{driver.ErrBadConn}, wantCalls: 2},
		{name: "statement error not retried", errs: []error{syntax}, wantErr: syntax, wantCalls: 1},
		{name: "second connection error returned", errs: []error{lost, lost}, wantErr: io.ErrUnexpectedEOF, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(t, &fakeDriver{})
			var calls int
			err := store.read(context.Background(), failing(&calls, tt.errs...))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestStoreWithTx_Reconnect(t *testing.T) {
	t.Run("connection error inside the transaction is retried", func(t *testing.T) {
		d := &fakeDriver{}
		store := newFakeStore(t, d)

		var calls int
		require.NoError(t, store.withTx(context.Background(), failing(&calls, io.EOF)))
		assert.Equal(t, 2, calls)
		assert.Equal(t, 2, d.begins)
		assert.Equal(t, 1, d.commits)
	})

	t.Run("statement error is not retried", func(t *testing.T) {
		d := &fakeDriver{}
		store := newFakeStore(t, d)
		constraint := errors.New("FOREIGN KEY constraint failed")

		var calls int
		require.ErrorIs(t, store.withTx(context.Background(), failing(&calls, constraint)), constraint)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, d.commits)
	})

	t.Run("commit error is never retried", func(t *testing.T) {
		d := &fakeDriver{commitErr: io.ErrUnexpectedEOF}
		store := newFakeStore(t, d)

		var calls int
		err := store.withTx(context.Background(), failing(&calls))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, d.begins)
		assert.Equal(t, 1, d.commits)
	})
}
