// Package config loads server and CLI settings from an optional YAML file,
// WAREHOUSE_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendHelper = "helper"
	BackendDuckDB = "duckdb"
)

type Config struct {
	Server struct {
		Port            int           `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		// Path is connected at startup when set.
		Path        string        `mapstructure:"path"`
		BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	} `mapstructure:"database"`

	Import struct {
		BatchSize       int           `mapstructure:"batch_size"`
		DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	} `mapstructure:"import"`

	Inference struct {
		Backend    string        `mapstructure:"backend"`
		HelperPath string        `mapstructure:"helper_path"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"inference"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"port":              "server.port",
	"db":                "database.path",
	"batch-size":        "import.batch_size",
	"inference-backend": "inference.backend",
	"helper-path":       "inference.helper_path",
	"log-level":         "logging.level",
	"log-format":        "logging.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", "")
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.download_timeout", 30*time.Second)
	v.SetDefault("inference.backend", BackendHelper)
	v.SetDefault("inference.helper_path", "bin/csv_type_infer")
	v.SetDefault("inference.timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.Int("port", 8001, "Server port")
	fs.String("db", "", "Database path or URL to connect at startup")
	fs.Int("batch-size", 500, "Rows per bulk insert")
	fs.String("inference-backend", BackendHelper, "Type inference backend (helper or duckdb)")
	fs.String("helper-path", "bin/csv_type_infer", "Path to the type inference helper")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "text", "Log format (text or json)")
}

// Load builds a Config. path may be empty; flags may be nil. Only flags the
// user actually set override file and environment values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WAREHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by hosting platforms.
	if err := v.BindEnv("server.port", "WAREHOUSE_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("database.path", "WAREHOUSE_DATABASE_PATH", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Import.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("import.batch_size must be positive, got %d", c.Import.BatchSize))
	}
	if c.Inference.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("inference.timeout must be positive, got %v", c.Inference.Timeout))
	}
	if c.Import.DownloadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("import.download_timeout must be positive, got %v", c.Import.DownloadTimeout))
	}
	switch c.Inference.Backend {
	case BackendHelper, BackendDuckDB:
	default:
		errs = append(errs, fmt.Errorf("inference.backend must be %q or %q, got %q", BackendHelper, BackendDuckDB, c.Inference.Backend))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
