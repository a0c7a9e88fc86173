package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
	"recurring-planner/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Code  int    `json:"code"`
}

type taskResponse struct {
	ID                 uint                    `json:"id"`
	UserID             uint                    `json:"user_id"`
	CategoryID         *uint                   `json:"category_id,omitempty"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description,omitempty"`
	Priority           model.Priority          `json:"priority"`
	DueDate            *time.Time              `json:"due_date,omitempty"`
	IsCompleted        bool                    `json:"is_completed"`
	CompletedAt        *time.Time              `json:"completed_at,omitempty"`
	RecurrencePattern  model.RecurrencePattern `json:"recurrence_pattern"`
	RecurrenceInterval int                     `json:"recurrence_interval,omitempty"`
	RecurrenceEndDate  *time.Time              `json:"recurrence_end_date,omitempty"`
	NextDueDate        *time.Time              `json:"next_due_date,omitempty"`
	OriginalTaskID     *uint                   `json:"original_task_id,omitempty"`
	State              model.TemplateState     `json:"state,omitempty"`
}

func newTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		ID:                 t.ID,
		UserID:             t.UserID,
		CategoryID:         t.CategoryID,
		Title:              t.Title,
		Description:        t.Description,
		Priority:           t.Priority,
		DueDate:            t.DueDate,
		IsCompleted:        t.IsCompleted,
		CompletedAt:        t.CompletedAt,
		RecurrencePattern:  t.RecurrencePattern,
		RecurrenceInterval: t.RecurrenceInterval,
		RecurrenceEndDate:  t.RecurrenceEndDate,
		NextDueDate:        t.NextDueDate,
		OriginalTaskID:     t.OriginalTaskID,
	}
	if t.IsTemplate() {
		resp.State = t.State()
	}
	return resp
}

type templateErrorResponse struct {
	TemplateID uint   `json:"template_id"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
}

type passResponse struct {
	PassID           string                  `json:"pass_id"`
	Now              time.Time               `json:"now"`
	TemplatesScanned int                     `json:"templates_scanned"`
	GeneratedCount   int                     `json:"generated_count"`
	BudgetExhausted  bool                    `json:"budget_exhausted"`
	Interrupted      bool                    `json:"interrupted"`
	TemplateErrors   []templateErrorResponse `json:"template_errors"`
}

func newPassResponse(r service.PassReport) passResponse {
	resp := passResponse{
		PassID:           r.PassID,
		Now:              r.Now,
		TemplatesScanned: r.TemplatesScanned,
		GeneratedCount:   r.GeneratedCount,
		BudgetExhausted:  r.BudgetExhausted,
		Interrupted:      r.Interrupted,
		TemplateErrors:   make([]templateErrorResponse, 0, len(r.TemplateErrors)),
	}
	for _, te := range r.TemplateErrors {
		resp.TemplateErrors = append(resp.TemplateErrors, templateErrorResponse{
			TemplateID: te.TemplateID,
			Kind:       string(te.Kind),
			Error:      te.Err.Error(),
		})
	}
	return resp
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// respondError maps err to a status code. Internal failures are logged and
// answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, message := classify(err)
	resp := errorResponse{Error: message, Code: status}
	if status == http.StatusInternalServerError || status == http.StatusConflict {
		resp.Kind = string(service.KindOf(err))
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	respondJSON(w, logger, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrConcurrentGeneration):
		return http.StatusConflict, "a generation pass is already running"
	case errors.Is(err, service.ErrInvalidOperation):
		return http.StatusConflict, err.Error()
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrInvalidTemplate),
		errors.Is(err, recurrence.ErrInvalidPattern),
		errors.Is(err, recurrence.ErrInvalidInterval):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrChainIntegrityViolation):
		return http.StatusInternalServerError, "task chain is inconsistent"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
