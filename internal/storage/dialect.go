package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/financas/internal/config"
)

// Dialect hides the SQL differences between SQL Server and SQLite. Queries
// are written once with ? placeholders and {{token}} markers; the dialect
// rewrites them for its engine.
type Dialect interface {
	Name() string
	// Rebind converts ? placeholders to the engine's parameter syntax.
	Rebind(query string) string
	// Returning makes an INSERT ... VALUES statement yield the new id.
	Returning(query string) string
	// Limit restricts an ordered SELECT to n rows.
	Limit(query string, n int) string
	// Tokens returns the replacer for {{token}} markers in schema.
	Tokens(schema string) *strings.Replacer
	// EnsureSchema creates the schema if it does not exist.
	EnsureSchema(ctx context.Context, db *sql.DB, schema string) error
	// VersionTable returns the statement creating the schema version table.
	VersionTable(schema string) string
	// IdentityInsert toggles explicit id inserts on table, or returns "" when
	// the engine always allows them.
	IdentityInsert(table string, on bool) string
}

// NewDialect returns the dialect for a database/sql driver name.
func NewDialect(driver string) (Dialect, error) {
	switch driver {
	case config.DriverSQLServer:
		return sqlServerDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

type sqlServerDialect struct{}

func (sqlServerDialect) Name() string { return config.DriverSQLServer }

func (sqlServerDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
		case c == '?' && !inString:
			n++
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func (sqlServerDialect) Returning(query string) string {
	return strings.Replace(query, ") VALUES", ") OUTPUT INSERTED.id VALUES", 1)
}

func (sqlServerDialect) Limit(query string, n int) string {
	return fmt.Sprintf("%s OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", query, n)
}

func (sqlServerDialect) Tokens(schema string) *strings.Replacer {
	return strings.NewReplacer(
		"{{tbl}}", schema+".",
		"{{ref}}", schema+".",
		"{{idx}}", "",
		"{{on}}", schema+".",
		"{{pk}}", "INT IDENTITY(1,1) PRIMARY KEY",
		"{{money}}", "DECIMAL(15, 2)",
		"{{bool}}", "BIT",
		"{{now}}", "GETDATE()",
		"{{text}}", "NVARCHAR(MAX)",
		"{{str}}", "NVARCHAR",
		"{{datetime}}", "DATETIME",
		"{{add}}", "ADD",
		"{{lock}}", "WITH (UPDLOCK, ROWLOCK)",
	)
}

func (sqlServerDialect) EnsureSchema(ctx context.Context, db *sql.DB, schema string) error {
	query := fmt.Sprintf(`IF NOT EXISTS (SELECT * FROM sys.schemas WHERE name = @p1)
		EXEC('CREATE SCHEMA %s')`, schema)
	if _, err := db.ExecContext(ctx, query, schema); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return nil
}

func (sqlServerDialect) VersionTable(schema string) string {
	return fmt.Sprintf(`IF OBJECT_ID('%[1]s.schema_versao', 'U') IS NULL
		CREATE TABLE %[1]s.schema_versao (versao INT NOT NULL)`, schema)
}

func (sqlServerDialect) IdentityInsert(table string, on bool) string {
	state := "OFF"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("SET IDENTITY_INSERT %s %s", table, state)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return config.DriverSQLite }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) Returning(query string) string { return query + " RETURNING id" }

func (sqliteDialect) Limit(query string, n int) string {
	return fmt.Sprintf("%s LIMIT %d", query, n)
}

func (sqliteDialect) Tokens(schema string) *strings.Replacer {
	return strings.NewReplacer(
		"{{tbl}}", schema+".",
		"{{ref}}", "",
		"{{idx}}", schema+".",
		"{{on}}", "",
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{money}}", "TEXT",
		"{{bool}}", "BOOLEAN",
		"{{now}}", "CURRENT_TIMESTAMP",
		"{{text}}", "TEXT",
		"{{str}}", "VARCHAR",
		"{{datetime}}", "DATETIME",
		"{{add}}", "ADD COLUMN",
		"{{lock}}", "",
	)
}

// EnsureSchema is a no-op: every schema is a database attached when the
// connection opens.
func (sqliteDialect) EnsureSchema(context.Context, *sql.DB, string) error { return nil }

func (sqliteDialect) VersionTable(schema string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.schema_versao (versao INTEGER NOT NULL)`, schema)
}

func (sqliteDialect) IdentityInsert(string, bool) string { return "" }
