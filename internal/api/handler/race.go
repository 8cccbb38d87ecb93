package handler

import (
	"net/http"

	"github.com/mcoot/typerace/internal/api/request"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/results"
)

// RaceHandler records race results submitted outside a live room
type RaceHandler struct {
	resultsService *results.Service
}

// NewRaceHandler creates a new race handler
func NewRaceHandler(resultsService *results.Service) *RaceHandler {
	return &RaceHandler{
		resultsService: resultsService,
	}
}

// Record handles POST /api/v1/races
func (h *RaceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req request.RecordRaceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.resultsService.Record(r.Context(), results.Record{
		UserID:     model.UserID(req.UserID),
		PassageID:  model.PassageID(req.PassageID),
		WPM:        req.WPM,
		Accuracy:   req.Accuracy,
		CharsTyped: req.CharsTyped,
		DurationMs: req.DurationMs,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RaceResultFromModel(result))
}
