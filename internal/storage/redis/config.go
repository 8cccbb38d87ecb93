package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// AnonymousResultTTL expires race results that are not attached to a user.
	// Zero keeps them forever.
	AnonymousResultTTL time.Duration

	// MaxTxRetries bounds optimistic-lock retries when updating user stats
	MaxTxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                "redis://localhost:6379",
		PoolSize:           10,
		MinIdleConns:       2,
		AnonymousResultTTL: 24 * time.Hour,
		MaxTxRetries:       10,
	}
}
