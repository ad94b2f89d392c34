// Package config loads client settings from defaults, an optional config
// file, and LEDGERQ_ environment variables.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/sync/scheduler"
)

// EnvPrefix prefixes environment overrides, e.g. LEDGERQ_API_BASE_URL.
const EnvPrefix = "LEDGERQ"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the resolved client configuration.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Store struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"store"`

	API struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`

	Auth struct {
		EncryptToken bool   `mapstructure:"encrypt_token"`
		MachineID    string `mapstructure:"machine_id"`
	} `mapstructure:"auth"`

	Connectivity struct {
		ProbeURL string        `mapstructure:"probe_url"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"connectivity"`

	Sync struct {
		SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
		DrainSchedule string        `mapstructure:"drain_schedule"`
		ProbeInterval time.Duration `mapstructure:"probe_interval"`
	} `mapstructure:"sync"`

	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`

	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ledgerq")
	}
	return ".ledgerq"
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("api.base_url", "https://aft-server.onrender.com")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("auth.encrypt_token", true)
	v.SetDefault("auth.machine_id", "")
	v.SetDefault("connectivity.probe_url", "https://aft-server.onrender.com/api/health")
	v.SetDefault("connectivity.timeout", 5*time.Second)
	v.SetDefault("sync.submit_timeout", 30*time.Second)
	v.SetDefault("sync.drain_schedule", scheduler.DefaultSchedule)
	v.SetDefault("sync.probe_interval", scheduler.DefaultProbeInterval)
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.file", "")
	v.SetDefault("server.addr", "localhost:8090")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. An explicit path must exist; otherwise
// ledgerq.yaml is looked up in the working directory and the default data
// directory, and its absence is not an error.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrConfig, "failed to read config file", err)
		}
	} else {
		v.SetConfigName("ledgerq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultDataDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(errors.ErrConfig, "failed to read config file", err)
			}
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, "failed to decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.DataDir) == "" {
			return errors.New(errors.ErrConfig, "data_dir is required for the sqlite store")
		}
	case DriverMemory:
	default:
		return errors.Newf(errors.ErrConfig, "unknown store.driver %q", c.Store.Driver)
	}

	if err := validateURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if err := validateURL("connectivity.probe_url", c.Connectivity.ProbeURL); err != nil {
		return err
	}

	for name, d := range map[string]time.Duration{
		"api.timeout":          c.API.Timeout,
		"connectivity.timeout": c.Connectivity.Timeout,
		"sync.submit_timeout":  c.Sync.SubmitTimeout,
		"sync.probe_interval":  c.Sync.ProbeInterval,
	} {
		if d <= 0 {
			return errors.Newf(errors.ErrConfig, "%s must be positive, got %s", name, d)
		}
	}

	if _, err := scheduler.ParseSchedule(c.Sync.DrainSchedule); err != nil {
		return err
	}
	return nil
}

func validateURL(key, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.Newf(errors.ErrConfig, "%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Newf(errors.ErrConfig, "%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}
