package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"planboard/services"
)

type AuditHandler struct {
	trail  *services.AuditTrail
	logger *zap.SugaredLogger
}

func NewAuditHandler(trail *services.AuditTrail, logger *zap.SugaredLogger) *AuditHandler {
	return &AuditHandler{trail: trail, logger: logger}
}

func (h *AuditHandler) ByEntity(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("type")
	if entityType == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	entityID, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	entries, err := h.trail.ListByEntity(r.Context(), entityType, uint(entityID), limitParam(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) ByActor(w http.ResponseWriter, r *http.Request) {
	actorID, ok := idParam(w, r)
	if !ok {
		return
	}

	entries, err := h.trail.ListByActor(r.Context(), actorID, limitParam(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.trail.Recent(r.Context(), limitParam(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
