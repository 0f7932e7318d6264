package handler

import (
	"log/slog"
	"net/http"

	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/service"
)

// PersonaHandler handles HTTP requests for the user's persona.
type PersonaHandler struct {
	service *service.PersonaService
	logger  *slog.Logger
}

func NewPersonaHandler(svc *service.PersonaService, logger *slog.Logger) *PersonaHandler {
	return &PersonaHandler{service: svc, logger: logger}
}

// HandleUpsert handles POST /api/personas requests.
func (h *PersonaHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.PersonaRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	p, err := h.service.Upsert(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleCurrent handles GET /api/personas/current requests.
func (h *PersonaHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.service.Current(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
