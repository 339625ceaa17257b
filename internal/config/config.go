// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr   string `validate:"required"`
	SSHAddr    string
	SSHHostKey string `validate:"omitempty,file"`

	MaxConnections int `validate:"min=1"`
	MaxSessions    int `validate:"min=1"`
	MaxSpectators  int `validate:"min=0"`
	OutboxDepth    int `validate:"min=1"`

	RateLimit float64 `validate:"gt=0"`
	RateBurst int     `validate:"min=1"`

	PingInterval time.Duration `validate:"gt=0"`
	PingTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	AuthTimeout  time.Duration `validate:"gt=0"`
	IdleTimeout  time.Duration `validate:"min=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// RNGSeed fixes every game's shuffle; zero means random.
	RNGSeed uint64
}

// Load reads .env (if present) and then the process environment. Unset
// variables fall back to defaults.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, which has the shape of os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	c := Config{
		HTTPAddr:       e.str("HTTP_ADDR", ":8080"),
		SSHAddr:        e.str("SSH_ADDR", ":2222"),
		SSHHostKey:     e.str("SSH_HOST_KEY", ""),
		MaxConnections: e.num("MAX_CONNECTIONS", 256),
		MaxSessions:    e.num("MAX_SESSIONS", 64),
		MaxSpectators:  e.num("MAX_SPECTATORS", 8),
		OutboxDepth:    e.num("OUTBOX_DEPTH", 64),
		RateLimit:      e.fnum("RATE_LIMIT", 20),
		RateBurst:      e.num("RATE_BURST", 40),
		PingInterval:   e.dur("PING_INTERVAL", 30*time.Second),
		PingTimeout:    e.dur("PING_TIMEOUT", 10*time.Second),
		WriteTimeout:   e.dur("WRITE_TIMEOUT", 5*time.Second),
		AuthTimeout:    e.dur("AUTH_TIMEOUT", 30*time.Second),
		IdleTimeout:    e.dur("IDLE_TIMEOUT", 10*time.Minute),
		LogLevel:       e.str("LOG_LEVEL", "info"),
		LogFormat:      e.str("LOG_FORMAT", "json"),
		RNGSeed:        e.unum("RNG_SEED", 0),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	if err := validator.New().Struct(c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// env remembers the first parse failure so FromEnv can read every field
// in one expression.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e *env) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
}

func (e *env) num(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *env) unum(key string, def uint64) uint64 {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *env) fnum(key string, def float64) float64 {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e *env) dur(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}
