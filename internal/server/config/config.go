// Package config handles configuration for the table backend server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"log/slog"
	"time"
)

// Config holds runtime settings for the omnidesk server.
//
// Fields:
//   - Addr: bind address of the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - DataDir: snapshot directory of the in-memory store. Empty keeps rows in memory only.
//   - SecretKey: HMAC secret for verifying JWTs (HS256). Do not use test defaults in prod.
//   - RedisAddr: Redis address for publishing write events. Empty disables events.
//   - RedisChannel: pub/sub channel the events go to.
//   - ShutdownTimeout: how long in-flight requests get on shutdown.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	Addr            string
	DatabaseDSN     string
	DataDir         string
	SecretKey       string
	RedisAddr       string
	RedisChannel    string
	ShutdownTimeout time.Duration
	LogLevel        string
}

// LoadDefaults populates Config with development defaults.
// NOTE: The secret key is insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.SecretKey = "secretKey"
	c.RedisChannel = "omnidesk:invalidations"
	c.ShutdownTimeout = 10 * time.Second
	c.LogLevel = "info"
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags. args are
// the program arguments without the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
