package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"planboard/models"
	"planboard/services"
)

type TimelineHandler struct {
	detector *services.TimelineConflictDetector
	logger   *zap.SugaredLogger
}

func NewTimelineHandler(detector *services.TimelineConflictDetector, logger *zap.SugaredLogger) *TimelineHandler {
	return &TimelineHandler{detector: detector, logger: logger}
}

func (h *TimelineHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	var filter models.TimelineFilter

	if v := r.URL.Query().Get("start_date"); v != "" {
		start, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		filter.StartDate = &start
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		end, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		filter.EndDate = &end
	}
	if v := r.URL.Query().Get("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		projectID := uint(id)
		filter.ProjectID = &projectID
	}
	if v := r.URL.Query().Get("team_member_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid team_member_id")
			return
		}
		memberID := uint(id)
		filter.TeamMemberID = &memberID
	}

	timeline, err := h.detector.GetTimeline(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

func (h *TimelineHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	events, err := h.detector.GetCalendarEvents(r.Context(), year, month)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
