package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/request"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/results"
	"github.com/mcoot/typerace/internal/services/user"
)

// UserHandler handles user endpoints
type UserHandler struct {
	userService    *user.Service
	resultsService *results.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *user.Service, resultsService *results.Service) *UserHandler {
	return &UserHandler{
		userService:    userService,
		resultsService: resultsService,
	}
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.userService.Create(r.Context(), req.Username, req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.UserFromModel(u))
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.UserID(mux.Vars(r)["id"])

	u, err := h.userService.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(u))
}

// Races handles GET /api/v1/users/{id}/races and GET /api/v1/races/user/{id}
func (h *UserHandler) Races(w http.ResponseWriter, r *http.Request) {
	id := model.UserID(mux.Vars(r)["id"])

	views, err := h.resultsService.ListByUser(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RaceResultsFromViews(views))
}
