package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
gateway:
  port: 9000
backend:
  base_url: http://backend.local/api/v2
  timeout: 3s
views:
  debounce: 250ms
  timezone: UTC
mysql:
  host: db
  port: 3306
  username: dash
  password: secret
  database: shopdash
`

func TestLoadAppliesFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, "/login", cfg.Gateway.LoginPath)
	assert.Equal(t, "http://backend.local/api/v2", cfg.Backend.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Views.Debounce)
	assert.True(t, cfg.Views.StaleOnFail)
	assert.Equal(t, time.UTC, cfg.Views.Location())
	assert.Equal(t, 5*time.Second, cfg.Session.ToastTTL)
	assert.Equal(t, "dash:secret@tcp(db:3306)/shopdash?charset=utf8mb4&parseTime=True&loc=Local", cfg.MySQL.DSN())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SHOPDASH_BACKEND_BASE_URL", "http://env.local")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://env.local", cfg.Backend.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Views.Debounce)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	v := ViewsConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, v.Location())
}
