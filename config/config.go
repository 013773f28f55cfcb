package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`     // dev|stage|prod
	Service   string `yaml:"service"` // room-server
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"` // std|zap
	AddSource bool   `yaml:"addSource"`
	Debug     bool   `yaml:"debug"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
}

// Sync holds the reconciliation timings. Raw strings are parsed as
// time.Duration with safe defaults.
type Sync struct {
	CoalesceWindow   string `yaml:"coalesceWindow"`   // in-flight key release
	JoinSyncDelay    string `yaml:"joinSyncDelay"`    // api-join -> syncUser
	JoinRefreshDelay string `yaml:"joinRefreshDelay"` // api-join -> forceRefresh
	CheckInterval    string `yaml:"checkInterval"`    // consistency check period
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Auth     Auth     `yaml:"auth"`
	Sync     Sync     `yaml:"sync"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (or JWT_SECRET) is required")
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "room-server"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

func (s Sync) CoalesceWindowOr(def time.Duration) time.Duration {
	return parseDurationOr(def, s.CoalesceWindow)
}

func (s Sync) JoinSyncDelayOr(def time.Duration) time.Duration {
	return parseDurationOr(def, s.JoinSyncDelay)
}

func (s Sync) JoinRefreshDelayOr(def time.Duration) time.Duration {
	return parseDurationOr(def, s.JoinRefreshDelay)
}

func (s Sync) CheckIntervalOr(def time.Duration) time.Duration {
	return parseDurationOr(def, s.CheckInterval)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
