package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"planboard/models"
	"planboard/services"
)

type PhaseHandler struct {
	manager *services.PhaseManager
	logger  *zap.SugaredLogger
}

func NewPhaseHandler(manager *services.PhaseManager, logger *zap.SugaredLogger) *PhaseHandler {
	return &PhaseHandler{manager: manager, logger: logger}
}

type phaseStatusRequest struct {
	Status  string `json:"status"`
	Version int    `json:"version"`
}

// ChangeStatus is the versioned mutation path for phases: the request must
// carry the version the client last read.
func (h *PhaseHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req phaseStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	phase, err := h.manager.ChangeStatus(r.Context(), id, models.PhaseStatus(req.Status), req.Version, *actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, phase)
}
