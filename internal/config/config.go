package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Veraticus/financas/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Logging configures the slog handler.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Logging     Logging
	Environment Environment
	Database    Database
}

// envBindings maps viper keys to the environment variables that feed them.
var envBindings = map[string]string{
	"database.driver":            "DB_DRIVER",
	"database.server":            "DB_SERVER",
	"database.port":              "DB_PORT",
	"database.database":          "DB_DATABASE",
	"database.username":          "DB_USERNAME",
	"database.password":          "DB_PASSWORD",
	"database.connection_string": "SQL_CONNECTION_STRING",
	"database.path":              "DB_PATH",
	"environment":                "ENVIRONMENT",
	"logging.level":              "LOG_LEVEL",
	"logging.format":             "LOG_FORMAT",
}

// DefaultDataDir is where SQLite schema files live when DB_PATH is unset.
const DefaultDataDir = "$HOME/.local/share/financas"

// DefaultConfigDir returns the directory searched for config.yaml.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "financas"), nil
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.port", DefaultPort)
	v.SetDefault("database.path", DefaultDataDir)
	v.SetDefault("environment", string(Prod))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
}

// LoadDotEnv loads variables from path into the process environment,
// overriding values already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ReadConfigFile points v at cfgFile, or at config.yaml in the default
// locations when cfgFile is empty, and reads it if present.
func ReadConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := DefaultConfigDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load resolves the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	env, err := ParseEnvironment(v.GetString("environment"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: env,
		Logging: Logging{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: Database{
			Driver:           v.GetString("database.driver"),
			Server:           v.GetString("database.server"),
			Port:             v.GetInt("database.port"),
			Name:             v.GetString("database.database"),
			User:             v.GetString("database.username"),
			Password:         v.GetString("database.password"),
			ConnectionString: v.GetString("database.connection_string"),
			Path:             v.GetString("database.path"),
		},
	}

	if _, err := cfg.Database.DriverName(); err != nil {
		return nil, err
	}
	if cfg.Database.Port < 0 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d", common.ErrInvalidConfig, cfg.Database.Port)
	}
	return cfg, nil
}
