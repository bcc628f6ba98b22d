package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// ScheduleStore manages the schedule definitions reminders are generated from.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, sched *db.ScheduleDefinition) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*db.ScheduleDefinition, error)
	ActiveDefinitionsFor(ctx context.Context, breed string) ([]*db.ScheduleDefinition, error)
}

// CreateScheduleRequest is the body for POST /v1/schedules.
type CreateScheduleRequest struct {
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	RecommendedAgeWeeks int    `json:"recommended_age_weeks"`
	IntervalWeeks       *int   `json:"interval_weeks,omitempty"`
	Scope               string `json:"scope,omitempty"`
	Priority            int    `json:"priority,omitempty"`
}

// CreateSchedule handles POST /v1/schedules.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required field", "name is required")
		return
	}
	if req.RecommendedAgeWeeks < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid field", "recommended_age_weeks must not be negative")
		return
	}
	if req.IntervalWeeks != nil && *req.IntervalWeeks <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid field", "interval_weeks must be positive when set")
		return
	}

	scope := req.Scope
	if scope == "" {
		scope = db.ScopeGeneral
	}

	sched := &db.ScheduleDefinition{
		ID:                  uuid.New(),
		Name:                req.Name,
		Description:         req.Description,
		RecommendedAgeWeeks: req.RecommendedAgeWeeks,
		IntervalWeeks:       req.IntervalWeeks,
		Scope:               scope,
		Active:              true,
		Priority:            req.Priority,
	}

	if err := h.schedules.CreateSchedule(r.Context(), sched); err != nil {
		h.logger.Error("failed to create schedule definition", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to create schedule definition", "")
		return
	}

	h.writeJSON(w, http.StatusCreated, sched)
}

// GetSchedule handles GET /v1/schedules/{id}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	sched, err := h.schedules.GetSchedule(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err, "get schedule definition")
		return
	}

	h.writeJSON(w, http.StatusOK, sched)
}

// ListSchedules handles GET /v1/schedules. The optional breed query
// parameter scopes the list; without it only the general definitions
// are returned.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	breed := r.URL.Query().Get("breed")

	defs, err := h.schedules.ActiveDefinitionsFor(r.Context(), breed)
	if err != nil {
		h.logger.Error("failed to list schedule definitions", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to list schedule definitions", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": defs,
		"count":     len(defs),
	})
}
