package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/splitledger/client/internal/errors"
)

func TestLoad_defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "https://aft-server.onrender.com", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Sync.SubmitTimeout)
	assert.Equal(t, "@every 1m", cfg.Sync.DrainSchedule)
	assert.Equal(t, 15*time.Second, cfg.Sync.ProbeInterval)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, "localhost:8090", cfg.Server.Addr)
	assert.True(t, cfg.Auth.EncryptToken)
	assert.Empty(t, cfg.Auth.MachineID)
}

func TestLoad_fileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledgerq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/ledgerq
api:
  base_url: http://localhost:5000
  timeout: 10s
sync:
  drain_schedule: "@every 30s"
log:
  level: debug
`), 0o600))

	t.Setenv("LEDGERQ_SYNC_SUBMIT_TIMEOUT", "5s")
	t.Setenv("LEDGERQ_SERVER_ADDR", "127.0.0.1:9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ledgerq", cfg.DataDir)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "@every 30s", cfg.Sync.DrainSchedule)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Sync.SubmitTimeout)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
}

func TestLoad_missingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		v := New()
		v.Set("data_dir", "/tmp/ledgerq")
		cfg, err := FromViper(v)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"sqlite without data dir", func(c *Config) { c.DataDir = " " }},
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }},
		{"ftp probe url", func(c *Config) { c.Connectivity.ProbeURL = "ftp://example.com" }},
		{"zero api timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"negative submit timeout", func(c *Config) { c.Sync.SubmitTimeout = -time.Second }},
		{"zero probe interval", func(c *Config) { c.Sync.ProbeInterval = 0 }},
		{"bad schedule", func(c *Config) { c.Sync.DrainSchedule = "whenever" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfig), "code = %s", errors.CodeOf(err))
		})
	}

	t.Run("memory driver needs no data dir", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Driver = DriverMemory
		cfg.DataDir = ""
		assert.NoError(t, cfg.Validate())
	})
}
