// Package api exposes the reminder engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
	"github.com/petminder/petminder/internal/engine"
	"github.com/petminder/petminder/internal/metrics"
	"github.com/petminder/petminder/internal/redis"
)

// CreateReminderRequest is the body for POST /v1/reminders.
type CreateReminderRequest struct {
	PetID       string            `json:"pet_id"`
	ScheduleID  string            `json:"schedule_id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	DueDate     time.Time         `json:"due_date"`
	Intervals   []int             `json:"intervals,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// UpdateReminderRequest is the body for PATCH /v1/reminders/{id}.
type UpdateReminderRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Handler holds dependencies for API handlers
type Handler struct {
	logger      *zap.Logger
	svc         *engine.Service
	schedules   ScheduleStore
	idempotency *redis.IdempotencyService // nil if Redis not configured
}

// NewHandler creates a new API handler. idempotency may be nil.
func NewHandler(logger *zap.Logger, svc *engine.Service, schedules ScheduleStore, idempotency *redis.IdempotencyService) *Handler {
	return &Handler{
		logger:      logger,
		svc:         svc,
		schedules:   schedules,
		idempotency: idempotency,
	}
}

// Routes mounts all reminder routes on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/reminders", h.CreateReminder)
	r.Get("/reminders", h.ListReminders)
	r.Get("/reminders/{id}", h.GetReminder)
	r.Patch("/reminders/{id}", h.UpdateReminder)
	r.Delete("/reminders/{id}", h.DeleteReminder)
	r.Post("/reminders/{id}/complete", h.CompleteReminder)
	r.Post("/reminders/{id}/cancel", h.CancelReminder)
	r.Post("/reminders/{id}/snooze", h.SnoozeReminder)
	r.Put("/reminders/{id}/intervals", h.SetIntervals)
	r.Post("/pets/{id}/reminders/generate", h.GenerateForPet)
	r.Post("/schedules", h.CreateSchedule)
	r.Get("/schedules", h.ListSchedules)
	r.Get("/schedules/{id}", h.GetSchedule)
	r.Post("/sweeps/escalation", h.RunEscalationSweep)
	r.Post("/sweeps/generation", h.RunGenerationSweep)
	r.Post("/sweeps/wake", h.RunWakeSweep)
	r.Get("/statistics", h.GetStatistics)
}

// CreateReminder handles POST /v1/reminders.
// Supports idempotency via the Idempotency-Key header, scoped per pet.
func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idempotencyKey := r.Header.Get("Idempotency-Key")

	var req CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	petID, err := uuid.Parse(req.PetID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid pet_id", "pet_id must be a valid UUID")
		return
	}

	var scheduleID *uuid.UUID
	if req.ScheduleID != "" {
		id, err := uuid.Parse(req.ScheduleID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid schedule_id", "schedule_id must be a valid UUID")
			return
		}
		scheduleID = &id
	}

	if idempotencyKey != "" && h.idempotency != nil {
		cached, err := h.idempotency.CheckOrReserve(ctx, req.PetID, idempotencyKey)
		if err != nil {
			if errors.Is(err, redis.ErrDuplicateRequest) {
				h.writeError(w, http.StatusConflict, "duplicate_request",
					"Request is already being processed",
					"Another request with this idempotency key is in progress")
				return
			}
			h.logger.Warn("idempotency check failed, proceeding",
				zap.Error(err),
				zap.String("idempotency_key", idempotencyKey),
			)
		} else if cached != nil {
			metrics.RecordIdempotencyHit()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replayed", "true")
			w.WriteHeader(cached.StatusCode)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": cached.ReminderID})
			return
		}
	}

	rem, err := h.svc.Create(ctx, engine.CreateInput{
		PetID:       petID,
		ScheduleID:  scheduleID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Intervals:   req.Intervals,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.writeEngineError(w, err, "create reminder")
		return
	}

	metrics.RecordReminderCreated("api")

	h.logger.Info("reminder created",
		zap.String("id", rem.ID.String()),
		zap.String("pet_id", rem.PetID.String()),
		zap.Time("due_date", rem.DueDate),
	)

	if idempotencyKey != "" && h.idempotency != nil {
		result := &redis.IdempotencyResult{
			ReminderID: rem.ID.String(),
			StatusCode: http.StatusCreated,
		}
		if err := h.idempotency.Store(ctx, req.PetID, idempotencyKey, result, redis.IdempotencyTTL); err != nil {
			h.logger.Warn("failed to store idempotency result",
				zap.Error(err),
				zap.String("idempotency_key", idempotencyKey),
			)
		}
	}

	h.writeJSON(w, http.StatusCreated, rem)
}

// GetReminder handles GET /v1/reminders/{id}
func (h *Handler) GetReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	rem, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err, "get reminder")
		return
	}

	h.writeJSON(w, http.StatusOK, rem)
}

// ListReminders handles GET /v1/reminders filtered by pet_id or owner_id,
// or GET /v1/reminders?upcoming_days=N for the upcoming view.
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var (
		reminders []*db.Reminder
		err       error
	)

	switch {
	case query.Get("pet_id") != "":
		petID, parseErr := uuid.Parse(query.Get("pet_id"))
		if parseErr != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid pet_id", "pet_id must be a valid UUID")
			return
		}
		reminders, err = h.svc.ListByPet(ctx, petID)

	case query.Get("owner_id") != "":
		ownerID, parseErr := uuid.Parse(query.Get("owner_id"))
		if parseErr != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid owner_id", "owner_id must be a valid UUID")
			return
		}
		reminders, err = h.svc.ListByOwner(ctx, ownerID)

	case query.Get("upcoming_days") != "":
		days, parseErr := strconv.Atoi(query.Get("upcoming_days"))
		if parseErr != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid upcoming_days", "upcoming_days must be an integer")
			return
		}
		reminders, err = h.svc.ListUpcoming(ctx, days)

	default:
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing filter",
			"one of pet_id, owner_id, or upcoming_days is required")
		return
	}

	if err != nil {
		h.writeEngineError(w, err, "list reminders")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  reminders,
		"count": len(reminders),
	})
}

// UpdateReminder handles PATCH /v1/reminders/{id}
func (h *Handler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	rem, err := h.svc.Update(r.Context(), id, engine.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.writeEngineError(w, err, "update reminder")
		return
	}

	h.writeJSON(w, http.StatusOK, rem)
}

// DeleteReminder handles DELETE /v1/reminders/{id}
func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeEngineError(w, err, "delete reminder")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteReminder handles POST /v1/reminders/{id}/complete
func (h *Handler) CompleteReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		RecordID string `json:"record_id,omitempty"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
			return
		}
	}

	var recordID *uuid.UUID
	if req.RecordID != "" {
		parsed, err := uuid.Parse(req.RecordID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid record_id", "record_id must be a valid UUID")
			return
		}
		recordID = &parsed
	}

	rem, err := h.svc.Complete(r.Context(), id, recordID)
	if err != nil {
		h.writeEngineError(w, err, "complete reminder")
		return
	}

	h.writeJSON(w, http.StatusOK, rem)
}

// CancelReminder handles POST /v1/reminders/{id}/cancel
func (h *Handler) CancelReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	rem, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err, "cancel reminder")
		return
	}

	h.writeJSON(w, http.StatusOK, rem)
}

// SnoozeReminder handles POST /v1/reminders/{id}/snooze
func (h *Handler) SnoozeReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		Days int `json:"days"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
			return
		}
	}

	rem, err := h.svc.Snooze(r.Context(), id, req.Days)
	if err != nil {
		h.writeEngineError(w, err, "snooze reminder")
		return
	}

	h.writeJSON(w, http.StatusOK, rem)
}

// SetIntervals handles PUT /v1/reminders/{id}/intervals
func (h *Handler) SetIntervals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		Intervals []int `json:"intervals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	rem, err := h.svc.SetIntervals(r.Context(), id, req.Intervals)
	if err != nil {
		h.writeEngineError(w, err, "set intervals")
		return
	}

	h.writeJSON(w, http.StatusOK, rem)
}

// GenerateForPet handles POST /v1/pets/{id}/reminders/generate
func (h *Handler) GenerateForPet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	created, err := h.svc.GenerateForPet(r.Context(), id, time.Now().UTC())
	if err != nil {
		h.writeEngineError(w, err, "generate reminders")
		return
	}

	for range created {
		metrics.RecordReminderCreated("schedule")
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data":  created,
		"count": len(created),
	})
}

// RunEscalationSweep handles POST /v1/sweeps/escalation.
// Per-item failures are embedded in the result, not surfaced as an
// HTTP error; only a total sweep failure is a 500.
func (h *Handler) RunEscalationSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunEscalationSweep(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("escalation sweep failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "sweep_error", "Escalation sweep failed", "")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// RunGenerationSweep handles POST /v1/sweeps/generation
func (h *Handler) RunGenerationSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunGenerationSweep(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("generation sweep failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "sweep_error", "Generation sweep failed", "")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// RunWakeSweep handles POST /v1/sweeps/wake
func (h *Handler) RunWakeSweep(w http.ResponseWriter, r *http.Request) {
	woken, err := h.svc.WakeSnoozed(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("wake sweep failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "sweep_error", "Wake sweep failed", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"woken": woken})
}

// GetStatistics handles GET /v1/statistics
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.logger.Error("statistics query failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to compute statistics", "")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid ID", "ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// writeEngineError maps engine and storage sentinels onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "Resource not found", err.Error())
	case errors.Is(err, engine.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid input", err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Operation failed", "")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
