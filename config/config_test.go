package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "record", cfg.Store.Table)
	assert.Equal(t, AccessModeName, cfg.Store.AccessMode)
	assert.Equal(t, 7*24*time.Hour, cfg.Statistics.Window)
	assert.True(t, cfg.Statistics.IncludeMode)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowedOrigins)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  host: db.internal
  dbname: sensors
store:
  table: readings
  access_mode: position
statistics:
  window: 48h
  include_mode: false
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("DATABASE_HOST", "override.internal")
	t.Setenv("HTTP_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, "sensors", cfg.Database.DBName)
	assert.Equal(t, "readings", cfg.Store.Table)
	assert.Equal(t, AccessModePosition, cfg.Store.AccessMode)
	assert.Equal(t, 48*time.Hour, cfg.Statistics.Window)
	assert.False(t, cfg.Statistics.IncludeMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowedOrigins)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("STORE_TABLE", "record; DROP TABLE record")
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.table")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "zero window", mutate: func(c *Config) { c.Statistics.Window = 0 }},
		{name: "unknown access mode", mutate: func(c *Config) { c.Store.AccessMode = "column" }},
		{name: "quoted table", mutate: func(c *Config) { c.Store.Table = `"record"` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGetDBConnString(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=iot_data sslmode=disable connect_timeout=5",
		cfg.GetDBConnString())
}

func TestGetMQTTBrokerURL(t *testing.T) {
	tests := []struct {
		broker string
		want   string
	}{
		{"tcp://broker", "tcp://broker:1883"},
		{"ssl://broker:8883", "ssl://broker:8883"},
		{"http://broker", "tcp://broker:1883"},
		{"https://broker", "ssl://broker:1883"},
		{"broker", "tcp://broker:1883"},
	}

	for _, tt := range tests {
		cfg := GetDefaultConfig()
		cfg.MQTT.Broker = tt.broker
		assert.Equal(t, tt.want, cfg.GetMQTTBrokerURL(), tt.broker)
	}
}
