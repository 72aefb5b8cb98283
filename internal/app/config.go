package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	HealthInterval time.Duration `default:"10s" usage:"Interval between health check runs" flag:"health-interval"`
	Database       DatabaseConfig
	Graceful       GracefulConfig
}

// DatabaseConfig selects and tunes the storage backend.
type DatabaseConfig struct {
	Driver   string `default:"postgres" usage:"Storage backend: postgres or sqlite"`
	URL      string `usage:"PostgreSQL connection URL or SQLite file path (STOREFRONT_DATABASE_URL or DATABASE_URL)"`
	MaxConns int    `default:"10" usage:"Max PostgreSQL pool connections"`
	MinConns int    `default:"0" usage:"Min idle PostgreSQL pool connections"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
		}
	case DriverSQLite:
		if c.Database.URL == "" {
			c.Database.URL = "storefront.db"
		}
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return errors.Errorf("database min conns %d exceed max conns %d", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.HealthInterval <= 0 {
		return errors.New("health interval must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Database.URL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Database.URL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
