// Package config handles configuration for the omnidesk CLI: defaults,
// then an optional JSON file, then environment. Command-line flags are
// applied last by the CLI itself.
package config

import (
	"log/slog"
	"os"
	"time"
)

// Config holds runtime settings for the omnidesk CLI.
//
// Fields:
//   - ServerURL: base URL of the table backend. Empty runs against an embedded store.
//   - Token: bearer token of the signed-in user.
//   - SecretKey: HMAC secret used by the token command.
//   - DataDir: snapshot directory of the embedded store.
//   - RedisAddr / RedisChannel: where write events of other processes arrive. Empty disables following.
//   - StaleTime: how long a cached read counts as fresh. Zero means until invalidated.
//   - RequestTimeout: bound on each backend request.
//   - LogLevel: debug, info, warn or error.
//   - MetricsFile: where the query cache counters are written on exit, in the
//     Prometheus text format. Empty disables it.
type Config struct {
	ServerURL      string
	Token          string
	SecretKey      string
	DataDir        string
	RedisAddr      string
	RedisChannel   string
	StaleTime      time.Duration
	RequestTimeout time.Duration
	LogLevel       string
	MetricsFile    string
}

// Environment variables consulted by Load.
const (
	ConfigEnv = "OMNIDESK_CONFIG"
	TokenEnv  = "OMNIDESK_TOKEN"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.SecretKey = "secretKey"
	c.RedisChannel = "omnidesk:invalidations"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

// Level maps LogLevel to a slog level, defaulting to warn.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return l
}

// Load constructs a Config, applies defaults, then overlays the JSON file
// at path (or the one named by OMNIDESK_CONFIG when path is empty) and
// finally OMNIDESK_TOKEN. Later sources take precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	if tok := os.Getenv(TokenEnv); tok != "" {
		cfg.Token = tok
	}
	return cfg, nil
}
