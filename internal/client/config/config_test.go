package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Empty(t, c.ServerURL)
	assert.Empty(t, c.Token)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "omnidesk:invalidations", c.RedisChannel)
	assert.Zero(t, c.StaleTime)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, slog.LevelWarn, c.Level())
}

func TestLoad(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_url":      "http://localhost:8080",
		"token":           "file-token",
		"data_dir":        "/tmp/omnidesk",
		"redis_addr":      "localhost:6379",
		"stale_time":      "30s",
		"request_timeout": 0,
		"log_level":       "debug",
	})

	tests := []struct {
		name  string
		path  string
		env   map[string]string
		want  Config
		isErr bool
	}{
		{
			name: "defaults only",
			env:  map[string]string{ConfigEnv: "", TokenEnv: ""},
			want: Config{SecretKey: "secretKey", RedisChannel: "omnidesk:invalidations", RequestTimeout: 10 * time.Second, LogLevel: "warn"},
		},
		{
			name: "json file",
			path: path,
			env:  map[string]string{TokenEnv: ""},
			want: Config{
				ServerURL: "http://localhost:8080", Token: "file-token", SecretKey: "secretKey",
				DataDir: "/tmp/omnidesk", RedisAddr: "localhost:6379", RedisChannel: "omnidesk:invalidations",
				StaleTime: 30 * time.Second, LogLevel: "debug",
			},
		},
		{
			name: "env names the file and overrides the token",
			env:  map[string]string{ConfigEnv: path, TokenEnv: "env-token"},
			want: Config{
				ServerURL: "http://localhost:8080", Token: "env-token", SecretKey: "secretKey",
				DataDir: "/tmp/omnidesk", RedisAddr: "localhost:6379", RedisChannel: "omnidesk:invalidations",
				StaleTime: 30 * time.Second, LogLevel: "debug",
			},
		},
		{
			name:  "missing file",
			path:  filepath.Join(t.TempDir(), "nope.json"),
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := Load(tt.path)
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want, *got))
		})
	}
}

func TestParseJson_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stale_time": true}`), 0o600))

	assert.Error(t, parseJson(&Config{}, path))
}
