package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
)

// RoomReader exposes read-only snapshots of live rooms
type RoomReader interface {
	Snapshot(roomID model.RoomID) (model.RoomSnapshot, error)
}

// RoomHandler handles live room inspection
type RoomHandler struct {
	rooms RoomReader
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomReader) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.rooms.Snapshot(model.RoomID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, snap)
}
