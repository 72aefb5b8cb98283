package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoad() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "STOREFRONT",
		SkipFiles: true,
		SkipFlags: true,
	})
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("STOREFRONT_ADDR", "127.0.0.1:9000")
	t.Setenv("STOREFRONT_DATABASE_DRIVER", "sqlite")
	t.Setenv("STOREFRONT_DATABASE_URL", "/tmp/shop.db")
	t.Setenv("STOREFRONT_HEALTH_INTERVAL", "2s")

	cfg, err := testLoad()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/shop.db", cfg.Database.URL)
	assert.Equal(t, 2*time.Second, cfg.HealthInterval)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@db/shop")
	t.Setenv("PORT", "3000")

	cfg, err := testLoad()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://shop@db/shop", cfg.Database.URL)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("PostgresWithoutURL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := testLoad()
		require.ErrorContains(t, err, "database URL is required")
	})
	t.Run("UnknownDriver", func(t *testing.T) {
		t.Setenv("STOREFRONT_DATABASE_DRIVER", "mysql")
		_, err := testLoad()
		require.ErrorContains(t, err, `unknown database driver "mysql"`)
	})
	t.Run("SQLiteDefaultsPath", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("STOREFRONT_DATABASE_DRIVER", "sqlite")
		cfg, err := testLoad()
		require.NoError(t, err)
		assert.Equal(t, "storefront.db", cfg.Database.URL)
	})
}
