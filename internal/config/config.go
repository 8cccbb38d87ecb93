package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config is the server configuration read from the environment
type Config struct {
	Host     string
	Port     int
	LogLevel slog.Level

	// AllowedOrigins is the parsed CLIENT_ORIGIN list; "*" allows any origin
	AllowedOrigins []string

	StorageType string
	RedisURL    string
	DatabaseURL string

	// NATSURL enables event publishing when set
	NATSURL string

	SessionDuration   time.Duration
	DefaultCountdown  time.Duration
	MaxCountdown      time.Duration
	BotTick           time.Duration
	RoomIdleTTL       time.Duration
	RoomSweepInterval time.Duration

	// SeedFile seeds an empty passage catalogue at startup when set
	SeedFile string
}

// Default returns the configuration used when no variables are set
func Default() Config {
	return Config{
		Port:              8080,
		LogLevel:          slog.LevelInfo,
		AllowedOrigins:    []string{"*"},
		StorageType:       StorageMemory,
		SessionDuration:   7 * 24 * time.Hour,
		DefaultCountdown:  3 * time.Second,
		MaxCountdown:      60 * time.Second,
		BotTick:           time.Second,
		RoomIdleTTL:       30 * time.Minute,
		RoomSweepInterval: time.Minute,
	}
}

// Load reads .env (if present) and then the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a variable lookup, applying defaults for unset values
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var errs []error

	cfg.Host = getenv("HOST")
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("PORT: invalid port %q", v))
		} else {
			cfg.Port = port
		}
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	if v := getenv("CLIENT_ORIGIN"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	if v := getenv("STORAGE_TYPE"); v != "" {
		cfg.StorageType = strings.ToLower(v)
	}
	cfg.RedisURL = getenv("REDIS_URL")
	cfg.DatabaseURL = getenv("DATABASE_URL")
	cfg.NATSURL = getenv("NATS_URL")
	cfg.SeedFile = getenv("SEED_FILE")

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"SESSION_DURATION", &cfg.SessionDuration},
		{"DEFAULT_COUNTDOWN", &cfg.DefaultCountdown},
		{"MAX_COUNTDOWN", &cfg.MaxCountdown},
		{"BOT_TICK", &cfg.BotTick},
		{"ROOM_IDLE_TTL", &cfg.RoomIdleTTL},
		{"ROOM_SWEEP_INTERVAL", &cfg.RoomSweepInterval},
	}
	for _, d := range durations {
		v := getenv(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", d.name, v))
			continue
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks cross-field requirements
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE: unknown backend %q", c.StorageType)
	}
	if c.BotTick <= 0 {
		return errors.New("BOT_TICK must be positive")
	}
	if c.RoomSweepInterval <= 0 {
		return errors.New("ROOM_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
