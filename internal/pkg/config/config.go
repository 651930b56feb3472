package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	SessionBackendBadger = "badger"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	// BcryptCost outside bcrypt's range falls back to the library default.
	BcryptCost int `env:"BCRYPT_COST, default=10"`

	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type SessionConfig struct {
	Timeout       time.Duration `env:"SESSION_TIMEOUT,        default=30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=60s"`
	Backend       string        `env:"SESSION_BACKEND,        default=badger"`
	Path          string        `env:"SESSION_PATH,           default=./data/session"`
	InMemory      bool          `env:"SESSION_IN_MEMORY,      default=false"`
	DeviceID      string        `env:"DEVICE_ID,              default=local"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=course_system"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the session manager cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.Timeout <= 0 {
		errs = append(errs, errors.New("SESSION_TIMEOUT must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	switch c.Session.Backend {
	case SessionBackendBadger:
		if !c.Session.InMemory && c.Session.Path == "" {
			errs = append(errs, errors.New("SESSION_PATH is required for the badger backend"))
		}
	case SessionBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND %q is not one of badger, redis", c.Session.Backend))
	}
	if c.Session.DeviceID == "" {
		errs = append(errs, errors.New("DEVICE_ID must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
