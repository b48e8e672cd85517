// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Addr  string
	Store string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
	SQLitePath    string

	JWTSecret string

	ThinkingDelay   time.Duration
	InterTurnDelay  time.Duration
	ToolDelay       time.Duration
	MaxChainedTurns int
	MaxSteps        int
	FallbackEnabled bool

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and then the process environment. Variables
// already set in the environment win over .env entries.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}
	def := game.DefaultCoordinatorConfig()
	c := Config{
		Addr:          e.str("MAYI_ADDR", ":8080"),
		Store:         e.str("MAYI_STORE", StoreMemory),
		RedisAddr:     e.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: e.str("REDIS_PASSWORD", ""),
		RedisDB:       e.int("REDIS_DB", 0),
		DatabaseURL:   e.str("DATABASE_URL", ""),
		SQLitePath:    e.str("SQLITE_PATH", "data/mayi.db"),
		JWTSecret:     e.str("JWT_SECRET", ""),

		ThinkingDelay:   e.millis("AI_THINKING_DELAY_MS", def.ThinkingDelay),
		InterTurnDelay:  e.millis("AI_INTER_TURN_DELAY_MS", def.InterTurnDelay),
		ToolDelay:       e.millis("AI_TOOL_DELAY_MS", def.ToolDelay),
		MaxChainedTurns: e.int("AI_MAX_CHAINED_TURNS", def.MaxChainedTurns),
		MaxSteps:        e.int("AI_MAX_STEPS", def.MaxSteps),
		FallbackEnabled: e.bool("AI_FALLBACK_ENABLED", def.FallbackEnabled),

		LogLevel:  e.str("LOG_LEVEL", "info"),
		LogFormat: e.str("LOG_FORMAT", "text"),
	}
	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	return c, c.Validate()
}

// Validate checks the combinations Load cannot default.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("MAYI_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown MAYI_STORE %q", c.Store)
	}
	if c.MaxChainedTurns < 1 || c.MaxSteps < 1 {
		return errors.New("AI_MAX_CHAINED_TURNS and AI_MAX_STEPS must be positive")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Coordinator returns the AI coordinator settings.
func (c Config) Coordinator() game.CoordinatorConfig {
	return game.CoordinatorConfig{
		ThinkingDelay:   c.ThinkingDelay,
		InterTurnDelay:  c.InterTurnDelay,
		ToolDelay:       c.ToolDelay,
		MaxChainedTurns: c.MaxChainedTurns,
		MaxSteps:        c.MaxSteps,
		FallbackEnabled: c.FallbackEnabled,
	}
}

type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key, def string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) millis(key string, def time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		e.errs = append(e.errs, fmt.Errorf("%s: want non-negative milliseconds, got %q", key, v))
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func (e *env) bool(key string, def bool) bool {
	v := e.get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
