package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/typerace/internal/api"
	"github.com/mcoot/typerace/internal/config"
	"github.com/mcoot/typerace/internal/factory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factory.FromEnvConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	if cfg.SeedFile != "" {
		n, err := app.PassageService.Seed(ctx, cfg.SeedFile)
		if err != nil {
			logger.Warn("could not seed passages", slog.String("error", err.Error()))
		} else {
			logger.Info("passages seeded", slog.Int("count", n), slog.String("file", cfg.SeedFile))
		}
	}

	app.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Clock:          app.Clock,
		AuthService:    app.AuthService,
		UserService:    app.UserService,
		PassageService: app.PassageService,
		ResultsService: app.ResultsService,
		Rooms:          app.Rooms,
		WebSocket:      app.WebSocket,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(api.CORS(cfg.AllowedOrigins)(router), serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.Bool("events", cfg.NATSURL != ""),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return server.Shutdown(context.Background())
	}
}
