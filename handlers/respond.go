package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"planboard/services"
)

// writeJSON writes a JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError maps the service error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is logged and surfaced as a generic failure.
func respondError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError
	var overallocErr *services.OverallocationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &overallocErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":               "overallocation",
			"warning":             overallocErr.Warning,
			"current_allocation":  overallocErr.CurrentAllocation,
			"proposed_allocation": overallocErr.ProposedAllocation,
		})
	case errors.Is(err, services.ErrVersionConflict):
		writeError(w, http.StatusConflict, services.ErrVersionConflict.Error())
	default:
		logger.Errorw("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
