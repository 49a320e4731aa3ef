package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"planboard/middleware"
	"planboard/models"
	"planboard/services"
)

type AssignmentHandler struct {
	manager *services.AssignmentManager
	ledger  *services.AllocationLedger
	logger  *zap.SugaredLogger
}

func NewAssignmentHandler(manager *services.AssignmentManager, ledger *services.AllocationLedger, logger *zap.SugaredLogger) *AssignmentHandler {
	return &AssignmentHandler{manager: manager, ledger: ledger, logger: logger}
}

type assignRequest struct {
	PhaseID           uint    `json:"phase_id"`
	TeamMemberID      uint    `json:"team_member_id"`
	Role              string  `json:"role"`
	WorkingPercentage int     `json:"working_percentage"`
	StartDate         string  `json:"start_date"`
	EndDate           *string `json:"end_date"`
}

type assignmentPatchRequest struct {
	Role              *string `json:"role"`
	WorkingPercentage *int    `json:"working_percentage"`
	StartDate         *string `json:"start_date"`
	EndDate           *string `json:"end_date"`
	ClearEndDate      bool    `json:"clear_end_date"`
	Version           int     `json:"version"`
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}

	assignment, err := h.manager.Assign(r.Context(), services.AssignInput{
		PhaseID:           req.PhaseID,
		TeamMemberID:      req.TeamMemberID,
		Role:              req.Role,
		WorkingPercentage: req.WorkingPercentage,
		StartDate:         start,
		EndDate:           end,
	}, *actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req assignmentPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := services.AssignmentPatch{
		Role:              req.Role,
		WorkingPercentage: req.WorkingPercentage,
		ClearEndDate:      req.ClearEndDate,
		Version:           req.Version,
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		patch.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		patch.EndDate = &end
	}

	assignment, err := h.manager.Update(r.Context(), id, patch, *actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var version *int
	if v := r.URL.Query().Get("version"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid version")
			return
		}
		version = &parsed
	}

	if err := h.manager.Remove(r.Context(), id, version, *actor); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		assignments []models.Assignment
		err         error
	)
	switch {
	case r.URL.Query().Get("team_member_id") != "":
		memberID, perr := strconv.ParseUint(r.URL.Query().Get("team_member_id"), 10, 32)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid team_member_id")
			return
		}
		assignments, err = h.manager.ListByMember(r.Context(), uint(memberID))
	case r.URL.Query().Get("phase_id") != "":
		phaseID, perr := strconv.ParseUint(r.URL.Query().Get("phase_id"), 10, 32)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid phase_id")
			return
		}
		assignments, err = h.manager.ListByPhase(r.Context(), uint(phaseID))
	case r.URL.Query().Get("project_id") != "":
		projectID, perr := strconv.ParseUint(r.URL.Query().Get("project_id"), 10, 32)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		assignments, err = h.manager.ListByProject(r.Context(), uint(projectID))
	default:
		writeError(w, http.StatusBadRequest, "one of team_member_id, phase_id or project_id is required")
		return
	}
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

// CheckAllocation exposes the ledger as a read-only what-if query.
func (h *AssignmentHandler) CheckAllocation(w http.ResponseWriter, r *http.Request) {
	memberID, ok := idParam(w, r)
	if !ok {
		return
	}

	proposed, err := strconv.Atoi(r.URL.Query().Get("proposed"))
	if err != nil || proposed < 0 {
		writeError(w, http.StatusBadRequest, "invalid proposed percentage")
		return
	}

	query := services.AllocationQuery{
		TeamMemberID:       memberID,
		ProposedPercentage: proposed,
		StartDate:          time.Now().UTC(),
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		start, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		query.StartDate = start
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		end, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		query.EndDate = &end
	}

	result, err := h.ledger.Check(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func actorFromRequest(r *http.Request) *services.Actor {
	member := middleware.GetActorFromContext(r.Context())
	if member == nil {
		return nil
	}
	return &services.Actor{ID: member.ID, Role: member.Role}
}

func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
