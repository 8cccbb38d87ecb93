package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/handler"
	"github.com/mcoot/typerace/internal/api/middleware"
	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/services/auth"
	"github.com/mcoot/typerace/internal/services/passage"
	"github.com/mcoot/typerace/internal/services/results"
	"github.com/mcoot/typerace/internal/services/user"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	Clock          clock.Clock
	AuthService    *auth.Service
	UserService    *user.Service
	PassageService *passage.Service
	ResultsService *results.Service
	Rooms          handler.RoomReader
	// WebSocket is mounted at /ws when set
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(cfg.AuthService)
	userHandler := handler.NewUserHandler(cfg.UserService, cfg.ResultsService)
	passageHandler := handler.NewPassageHandler(cfg.PassageService)
	raceHandler := handler.NewRaceHandler(cfg.ResultsService)
	roomHandler := handler.NewRoomHandler(cfg.Rooms)
	healthHandler := handler.NewHealthHandler(cfg.Clock)

	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Auth routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	me := api.PathPrefix("/auth/me").Subrouter()
	me.Use(authMiddleware)
	me.HandleFunc("", authHandler.Me).Methods(http.MethodGet)

	// User routes
	api.HandleFunc("/users", userHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", userHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/races", userHandler.Races).Methods(http.MethodGet)

	// Passage routes
	api.HandleFunc("/passages", passageHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/passages", passageHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/passages/random", passageHandler.Random).Methods(http.MethodGet)

	// Race result routes
	api.HandleFunc("/races", raceHandler.Record).Methods(http.MethodPost)
	api.HandleFunc("/races/user/{id}", userHandler.Races).Methods(http.MethodGet)

	// Live rooms (read-only; mutation happens over the WebSocket)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)

	if cfg.WebSocket != nil {
		r.Handle("/ws", loggingMiddleware(cfg.WebSocket)).Methods(http.MethodGet)
	}

	return r
}
