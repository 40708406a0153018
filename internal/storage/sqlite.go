package storage

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/Veraticus/financas/internal/config"
	"github.com/mattn/go-sqlite3"
)

// MemoryDir makes OpenSQLite keep every schema in memory.
const MemoryDir = ":memory:"

var sqliteDriverSeq atomic.Int64

// OpenSQLite opens a SQLite connection with one attached database per schema,
// so schema-qualified queries work exactly as they do on SQL Server. Files
// are named <dir>/<schema>.db.
func OpenSQLite(dir string) (*sql.DB, error) {
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}

	schemas := []string{config.ProdSchema, config.DevSchema}
	paths := make(map[string]string, len(schemas))
	for _, schema := range schemas {
		if dir == MemoryDir {
			paths[schema] = MemoryDir
			continue
		}
		paths[schema] = filepath.Join(dir, schema+".db")
	}

	if dir != MemoryDir {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Each Open gets its own driver so the attach hook knows its paths.
	name := fmt.Sprintf("%s_financas_%d", config.DriverSQLite, sqliteDriverSeq.Add(1))
	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, schema := range schemas {
				if err := attach(conn, paths[schema], schema); err != nil {
					return err
				}
			}
			return nil
		},
	})

	db, err := sql.Open(name, "file::memory:?_txlock=immediate&_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Attached in-memory databases live and die with their connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

func attach(conn *sqlite3.SQLiteConn, path, schema string) error {
	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	if _, err := conn.Exec(fmt.Sprintf("ATTACH DATABASE %s AS %s", quoted, schema), []driver.Value{}); err != nil {
		return fmt.Errorf("failed to attach %s: %w", schema, err)
	}
	if path == MemoryDir {
		return nil
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA %s.journal_mode = WAL", schema), []driver.Value{}); err != nil {
		return fmt.Errorf("failed to enable WAL on %s: %w", schema, err)
	}
	return nil
}
