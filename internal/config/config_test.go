package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"DB_DSN": "postgres://localhost/slots"}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, "slots.events", cfg.RedisChannel)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, 256, cfg.NotifyQueue)
}

func TestFromEnv_Memory(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STORAGE":        "memory",
		"TIMEZONE":       "Europe/Moscow",
		"SWEEP_INTERVAL": "30s",
		"NOTIFY_WORKERS": "2",
	}))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2, cfg.NotifyWorkers)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"postgres without dsn": {},
		"unknown storage":      {"STORAGE": "sqlite"},
		"bad timezone":         {"STORAGE": "memory", "TIMEZONE": "Mars/Olympus"},
		"bad interval":         {"STORAGE": "memory", "SWEEP_INTERVAL": "often"},
		"negative interval":    {"STORAGE": "memory", "SWEEP_INTERVAL": "-1s"},
		"zero workers":         {"STORAGE": "memory", "NOTIFY_WORKERS": "0"},
		"bad queue":            {"STORAGE": "memory", "NOTIFY_QUEUE": "many"},
	}

	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(values))
			assert.Error(t, err)
		})
	}
}
