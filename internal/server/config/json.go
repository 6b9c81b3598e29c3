package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/omnidesk/internal/flagx"
	"github.com/dmitrijs2005/omnidesk/internal/timex"
)

// ConfigEnv names the environment variable consulted for the JSON config
// path when neither -c nor -config is given.
const ConfigEnv = "OMNIDESK_SERVER_CONFIG"

// JsonConfig is the file form of Config. Durations accept both "10s" and
// integer nanoseconds.
type JsonConfig struct {
	Addr            string         `json:"addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	DataDir         string         `json:"data_dir"`
	SecretKey       string         `json:"secret_key"`
	RedisAddr       string         `json:"redis_addr"`
	RedisChannel    string         `json:"redis_channel"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	LogLevel        string         `json:"log_level"`
}

// parseJson overlays the values present in the JSON config file onto
// config. Absent keys keep their current values. No file means no change.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args, ConfigEnv)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.Addr, c.Addr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.DataDir, c.DataDir)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisChannel, c.RedisChannel)
	setString(&config.LogLevel, c.LogLevel)
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
