package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/financas/internal/common"
)

// Driver names registered with database/sql.
const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite3"
)

// DefaultPort is the SQL Server port used when none is configured.
const DefaultPort = 1433

// Database describes how to reach the ledger database.
type Database struct {
	Driver           string `mapstructure:"driver"`
	Server           string `mapstructure:"server"`
	Name             string `mapstructure:"database"`
	User             string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	ConnectionString string `mapstructure:"connection_string"`
	Path             string `mapstructure:"path"`
	Port             int    `mapstructure:"port"`
}

// DriverName resolves the database/sql driver. ODBC driver names such as
// "ODBC Driver 17 for SQL Server" map to the native SQL Server driver.
func (d Database) DriverName() (string, error) {
	driver := strings.Trim(strings.TrimSpace(d.Driver), "{}")
	lower := strings.ToLower(driver)

	switch {
	case lower == "sqlite" || lower == "sqlite3":
		return DriverSQLite, nil
	case lower == "sqlserver" || lower == "mssql" || strings.Contains(lower, "sql server"):
		return DriverSQLServer, nil
	case lower != "":
		return "", fmt.Errorf("%w: unsupported driver %q", common.ErrInvalidConfig, d.Driver)
	case d.ConnectionString != "" || d.Server != "":
		return DriverSQLServer, nil
	default:
		return DriverSQLite, nil
	}
}

// DSN returns the data source name for the resolved driver. For SQLite it is
// the directory holding one database file per schema.
func (d Database) DSN() (string, error) {
	driver, err := d.DriverName()
	if err != nil {
		return "", err
	}

	if driver == DriverSQLite {
		if d.Path == "" {
			return "", fmt.Errorf("%w: DB_PATH", common.ErrMissingConfig)
		}
		return ExpandPath(d.Path), nil
	}

	if d.ConnectionString != "" {
		if strings.HasPrefix(strings.ToLower(d.ConnectionString), "sqlserver://") {
			return d.ConnectionString, nil
		}
		parsed, err := ParseODBC(d.ConnectionString)
		if err != nil {
			return "", err
		}
		return parsed.sqlServerURL()
	}

	return d.sqlServerURL()
}

// Redacted returns the DSN with the password masked, for display.
func (d Database) Redacted() string {
	dsn, err := d.DSN()
	if err != nil {
		return "(invalid: " + err.Error() + ")"
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

func (d Database) sqlServerURL() (string, error) {
	if d.Server == "" {
		return "", fmt.Errorf("%w: DB_SERVER", common.ErrMissingConfig)
	}
	if d.Name == "" {
		return "", fmt.Errorf("%w: DB_DATABASE", common.ErrMissingConfig)
	}
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}

	query := url.Values{}
	query.Set("database", d.Name)
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(d.Server, strconv.Itoa(port)),
		RawQuery: query.Encode(),
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String(), nil
}

// odbcParams maps ODBC option names to go-mssqldb URL parameters.
var odbcParams = map[string]string{
	"encrypt":                "encrypt",
	"trustservercertificate": "TrustServerCertificate",
	"connection timeout":     "connection timeout",
	"app":                    "app name",
}

// ODBC holds the fields of an ODBC-style connection string.
type ODBC struct {
	Database
	Params url.Values
}

// ParseODBC parses "DRIVER={...};SERVER=tcp:host,1433;DATABASE=db;UID=u;PWD=p".
func ParseODBC(conn string) (ODBC, error) {
	out := ODBC{Params: url.Values{}}
	parts, err := splitODBC(conn)
	if err != nil {
		return ODBC{}, err
	}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return ODBC{}, fmt.Errorf("%w: malformed connection string segment %q", common.ErrInvalidConfig, part)
		}
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
			value = strings.ReplaceAll(value[1:len(value)-1], "}}", "}")
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "driver":
			out.Driver = value
		case "server", "data source", "address", "addr":
			host, port := splitServer(value)
			out.Server = host
			if port != 0 {
				out.Port = port
			}
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return ODBC{}, fmt.Errorf("%w: port %q", common.ErrInvalidConfig, value)
			}
			out.Port = port
		case "database", "initial catalog":
			out.Name = value
		case "uid", "user id", "user":
			out.User = value
		case "pwd", "password":
			out.Password = value
		default:
			if param, ok := odbcParams[strings.ToLower(strings.TrimSpace(key))]; ok {
				out.Params.Set(param, odbcBool(value))
			}
		}
	}
	return out, nil
}

func (o ODBC) sqlServerURL() (string, error) {
	base, err := o.Database.sqlServerURL()
	if err != nil {
		return "", err
	}
	if len(o.Params) == 0 {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse built URL: %w", err)
	}
	query := u.Query()
	for k, vs := range o.Params {
		for _, v := range vs {
			query.Set(k, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// splitODBC splits on semicolons outside of {braced} values. A literal "}"
// inside braces is written as "}}".
func splitODBC(conn string) ([]string, error) {
	var (
		parts   []string
		current strings.Builder
		braced  bool
	)
	for i := 0; i < len(conn); i++ {
		c := conn[i]
		switch {
		case c == '{' && !braced:
			braced = true
		case c == '}' && braced:
			if i+1 < len(conn) && conn[i+1] == '}' {
				current.WriteByte(c)
				i++
			} else {
				braced = false
			}
		case c == ';' && !braced:
			parts = append(parts, current.String())
			current.Reset()
			continue
		}
		current.WriteByte(c)
	}
	if braced {
		return nil, fmt.Errorf("%w: unterminated brace in connection string", common.ErrInvalidConfig)
	}
	return append(parts, current.String()), nil
}

// splitServer handles the "tcp:host,port" form used by Azure SQL.
func splitServer(value string) (string, int) {
	value = strings.TrimPrefix(value, "tcp:")
	host, portStr, ok := strings.Cut(value, ",")
	if !ok {
		return value, 0
	}
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return host, 0
	}
	return host, port
}

func odbcBool(v string) string {
	switch strings.ToLower(v) {
	case "yes":
		return "true"
	case "no":
		return "false"
	}
	return v
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~" || strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
