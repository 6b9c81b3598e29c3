package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/omnidesk/internal/timex"
)

// JsonConfig is the file form of Config. Durations accept both "30s" and
// integer nanoseconds.
type JsonConfig struct {
	ServerURL      string          `json:"server_url"`
	Token          string          `json:"token"`
	SecretKey      string          `json:"secret_key"`
	DataDir        string          `json:"data_dir"`
	RedisAddr      string          `json:"redis_addr"`
	RedisChannel   string          `json:"redis_channel"`
	StaleTime      *timex.Duration `json:"stale_time"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	LogLevel       string          `json:"log_level"`
	MetricsFile    string          `json:"metrics_file"`
}

// parseJson overlays cfg with the values present in the file at path.
// An empty path loads nothing.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for dst, v := range map[*string]string{
		&cfg.ServerURL:    jc.ServerURL,
		&cfg.Token:        jc.Token,
		&cfg.SecretKey:    jc.SecretKey,
		&cfg.DataDir:      jc.DataDir,
		&cfg.RedisAddr:    jc.RedisAddr,
		&cfg.RedisChannel: jc.RedisChannel,
		&cfg.LogLevel:     jc.LogLevel,
		&cfg.MetricsFile:  jc.MetricsFile,
	} {
		if v != "" {
			*dst = v
		}
	}
	if jc.StaleTime != nil {
		cfg.StaleTime = jc.StaleTime.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
