package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"HOST":                "127.0.0.1",
		"PORT":                "9000",
		"LOG_LEVEL":           "debug",
		"CLIENT_ORIGIN":       "http://a.test, http://b.test,",
		"STORAGE_TYPE":        "Redis",
		"REDIS_URL":           "redis://cache:6379",
		"NATS_URL":            "nats://bus:4222",
		"SESSION_DURATION":    "1h",
		"DEFAULT_COUNTDOWN":   "5s",
		"MAX_COUNTDOWN":       "30s",
		"BOT_TICK":            "500ms",
		"ROOM_IDLE_TTL":       "10m",
		"ROOM_SWEEP_INTERVAL": "30s",
		"SEED_FILE":           "data/passages.yaml",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, StorageRedis, cfg.StorageType)
	assert.Equal(t, "redis://cache:6379", cfg.RedisURL)
	assert.Equal(t, "nats://bus:4222", cfg.NATSURL)
	assert.Equal(t, time.Hour, cfg.SessionDuration)
	assert.Equal(t, 5*time.Second, cfg.DefaultCountdown)
	assert.Equal(t, 30*time.Second, cfg.MaxCountdown)
	assert.Equal(t, 500*time.Millisecond, cfg.BotTick)
	assert.Equal(t, 10*time.Minute, cfg.RoomIdleTTL)
	assert.Equal(t, 30*time.Second, cfg.RoomSweepInterval)
	assert.Equal(t, "data/passages.yaml", cfg.SeedFile)
}

func TestFromEnvInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"bad duration", map[string]string{"BOT_TICK": "soon"}, "BOT_TICK"},
		{"negative duration", map[string]string{"ROOM_IDLE_TTL": "-1m"}, "ROOM_IDLE_TTL"},
		{"bad port", map[string]string{"PORT": "eighty"}, "PORT"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"unknown storage", map[string]string{"STORAGE_TYPE": "tape"}, "STORAGE_TYPE"},
		{"redis without url", map[string]string{"STORAGE_TYPE": "redis"}, "REDIS_URL"},
		{"postgres without url", map[string]string{"STORAGE_TYPE": "postgres"}, "DATABASE_URL"},
		{"zero bot tick", map[string]string{"BOT_TICK": "0s"}, "BOT_TICK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envOf(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadReadsProcessEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "7070")
	t.Setenv("STORAGE_TYPE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
}
