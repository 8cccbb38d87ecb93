package handler

import (
	"net/http"

	"github.com/mcoot/typerace/internal/api/request"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/services/passage"
)

// PassageHandler handles passage catalogue endpoints
type PassageHandler struct {
	passageService *passage.Service
}

// NewPassageHandler creates a new passage handler
func NewPassageHandler(passageService *passage.Service) *PassageHandler {
	return &PassageHandler{
		passageService: passageService,
	}
}

// Create handles POST /api/v1/passages
func (h *PassageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePassageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.passageService.Create(r.Context(), req.Text, req.Source, req.Universe)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PassageFromModel(p))
}

// List handles GET /api/v1/passages?page=&limit=
func (h *PassageHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := passage.NormalizePage(queryInt(r, "page", 1), queryInt(r, "limit", passage.DefaultPageSize))

	passages, err := h.passageService.List(r.Context(), page, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	data := make([]response.Passage, 0, len(passages))
	for _, p := range passages {
		data = append(data, response.PassageFromModel(p))
	}
	response.JSON(w, http.StatusOK, response.PassagePage{Page: page, Limit: limit, Data: data})
}

// Random handles GET /api/v1/passages/random?universe=
func (h *PassageHandler) Random(w http.ResponseWriter, r *http.Request) {
	p, err := h.passageService.Random(r.Context(), r.URL.Query().Get("universe"))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PassageFromModel(p))
}
