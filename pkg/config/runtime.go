package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Runtime holds process-level settings: where records live, how much to log
// and how to render the review.
type Runtime struct {
	Definition   string `yaml:"definition"`
	Store        string `yaml:"store"`
	RedisURL     string `yaml:"redisURL"`
	SQLitePath   string `yaml:"sqlitePath"`
	Session      string `yaml:"session"`
	LogLevel     string `yaml:"logLevel"`
	ReviewFormat string `yaml:"reviewFormat"`
	Theme        string `yaml:"theme"`
	MetricsAddr  string `yaml:"metricsAddr"`
}

// DefaultRuntime returns the built-in settings.
func DefaultRuntime() Runtime {
	return Runtime{
		Store:        StoreMemory,
		SQLitePath:   "formwizard.db",
		LogLevel:     "warn",
		ReviewFormat: "text",
	}
}

// LoadRuntime reads YAML settings from path over the defaults.
func LoadRuntime(path string) (Runtime, error) {
	rt := DefaultRuntime()
	data, err := os.ReadFile(path)
	if err != nil {
		return rt, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rt); err != nil {
		return rt, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	return rt, rt.Validate()
}

// ApplyEnv overrides settings from FORMWIZARD_* variables.
func (r *Runtime) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	set(&r.Store, "FORMWIZARD_STORE")
	set(&r.RedisURL, "FORMWIZARD_REDIS_URL")
	set(&r.SQLitePath, "FORMWIZARD_SQLITE_PATH")
	set(&r.Session, "FORMWIZARD_SESSION")
	set(&r.LogLevel, "FORMWIZARD_LOG_LEVEL")
}

// Validate checks enumerated settings.
func (r Runtime) Validate() error {
	switch r.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if strings.TrimSpace(r.RedisURL) == "" {
			return fmt.Errorf("%w: redis store needs a redis URL", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, r.Store)
	}
	if _, err := r.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (r Runtime) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(r.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("%w: log level %q", ErrInvalid, r.LogLevel)
	}
	return level, nil
}
