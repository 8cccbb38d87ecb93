package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/typerace/internal/config"
	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/services/auth"
	"github.com/mcoot/typerace/internal/services/passage"
	"github.com/mcoot/typerace/internal/services/results"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/services/user"
	"github.com/mcoot/typerace/internal/storage"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/storage/postgres"
	redisstorage "github.com/mcoot/typerace/internal/storage/redis"
	"github.com/mcoot/typerace/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageMemory
	StorageTypeRedis    = config.StorageRedis
	StorageTypePostgres = config.StoragePostgres
)

// SessionCleanupInterval is how often expired sessions are purged
const SessionCleanupInterval = 10 * time.Minute

// App contains all wired application components
type App struct {
	// Storage
	Storage   storage.Storage
	Publisher events.Publisher

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	UserService    *user.Service
	PassageService *passage.Service
	ResultsService *results.Service
	Rooms          *room.Registry

	// WebSocket transport
	Hub       *ws.Hub
	WebSocket *ws.Handler

	stop context.CancelFunc
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds PostgreSQL settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// NATSConfig enables event publishing when set
	NATSConfig *events.NATSConfig
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// RoomConfig holds room timing and limits (optional)
	// If zero value, defaults to room.DefaultConfig()
	RoomConfig room.Config
	// AllowedOrigins restricts WebSocket handshakes; empty allows any origin
	AllowedOrigins []string
}

// FromEnvConfig translates server environment configuration into factory configuration
func FromEnvConfig(env config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:         logger,
		StorageType:    env.StorageType,
		AuthConfig:     auth.Config{SessionDuration: env.SessionDuration},
		AllowedOrigins: env.AllowedOrigins,
	}

	roomCfg := room.DefaultConfig()
	roomCfg.DefaultCountdown = env.DefaultCountdown
	roomCfg.MaxCountdown = env.MaxCountdown
	roomCfg.BotTick = env.BotTick
	roomCfg.IdleTTL = env.RoomIdleTTL
	roomCfg.SweepInterval = env.RoomSweepInterval
	cfg.RoomConfig = roomCfg

	switch env.StorageType {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = env.RedisURL
		cfg.RedisConfig = &redisCfg
	case StorageTypePostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = env.DatabaseURL
		cfg.PostgresConfig = &pgCfg
	}

	if env.NATSURL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = env.NATSURL
		cfg.NATSConfig = &natsCfg
	}

	return cfg
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSConfig != nil {
		natsPublisher, err := events.NewNATSPublisher(*cfg.NATSConfig, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publisher = natsPublisher
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}
	roomCfg := cfg.RoomConfig
	if roomCfg == (room.Config{}) {
		roomCfg = room.DefaultConfig()
	}

	return newWithDependencies(store, publisher, clock.New(), random.New(), authCfg, roomCfg, cfg.AllowedOrigins, logger), nil
}

func newStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		return postgres.New(ctx, *cfg.PostgresConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	publisher events.Publisher,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	roomCfg room.Config,
	allowedOrigins []string,
	logger *slog.Logger,
) *App {
	authService := auth.New(store, clk, authCfg, logger)
	userService := user.New(store, clk)
	passageService := passage.New(store, clk, rnd, logger)
	resultsService := results.New(store, publisher, clk, logger)

	hub := ws.NewHub(logger)
	rooms := room.NewRegistry(roomCfg, passageService, resultsService, publisher, hub, clk, rnd, logger)
	wsHandler := ws.NewHandler(hub, rooms, authService, ws.Config{AllowedOrigins: allowedOrigins}, logger)

	return &App{
		Storage:        store,
		Publisher:      publisher,
		Clock:          clk,
		Random:         rnd,
		AuthService:    authService,
		UserService:    userService,
		PassageService: passageService,
		ResultsService: resultsService,
		Rooms:          rooms,
		Hub:            hub,
		WebSocket:      wsHandler,
	}
}

// Start launches the background loops: the broadcast hub, the idle room sweeper and
// session cleanup. They stop when ctx is cancelled or Close is called.
func (a *App) Start(ctx context.Context) {
	ctx, a.stop = context.WithCancel(ctx)
	go a.Hub.Run(ctx)
	go a.Rooms.Run(ctx)
	go a.AuthService.RunCleanup(ctx, SessionCleanupInterval)
}

// Close stops every room and background loop, then releases external connections
func (a *App) Close() error {
	a.Rooms.Shutdown()
	if a.stop != nil {
		a.stop()
	}
	return errors.Join(a.Publisher.Close(), a.Storage.Close())
}
