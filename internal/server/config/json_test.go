package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"addr":             "www.example:9000",
		"database_dsn":     "postgres://db",
		"data_dir":         "/tmp/omnidesk",
		"secret_key":       "my_secret_key",
		"redis_addr":       "redis:6379",
		"redis_channel":    "events",
		"shutdown_timeout": "30s",
		"log_level":        "error",
	})
	pathEnv := writeTempJSON(t, dir, "env.json", map[string]any{"addr": "env:1"})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"-config", pathFlag}))

		assert.Equal(t, Config{
			Addr:            "www.example:9000",
			DatabaseDSN:     "postgres://db",
			DataDir:         "/tmp/omnidesk",
			SecretKey:       "my_secret_key",
			RedisAddr:       "redis:6379",
			RedisChannel:    "events",
			ShutdownTimeout: 30 * time.Second,
			LogLevel:        "error",
		}, *cfg)
	})

	t.Run("env var is the fallback", func(t *testing.T) {
		t.Setenv(ConfigEnv, pathEnv)

		cfg := &Config{SecretKey: "key"}
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "env:1", cfg.Addr)
		assert.Equal(t, "key", cfg.SecretKey, "absent keys keep their value")

		require.NoError(t, parseJson(cfg, []string{"-c", pathFlag}))
		assert.Equal(t, "www.example:9000", cfg.Addr, "flag wins over env")
	})

	t.Run("no config and no flags → no changes", func(t *testing.T) {
		t.Setenv(ConfigEnv, "")

		cfg := &Config{Addr: "defaults:1234", ShutdownTimeout: time.Second}
		require.NoError(t, parseJson(cfg, []string{"-a", "ignored"}))
		assert.Equal(t, Config{Addr: "defaults:1234", ShutdownTimeout: time.Second}, *cfg)
	})

	t.Run("invalid json", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))

		assert.Error(t, parseJson(&Config{}, []string{"-c", bad}))
	})
}
