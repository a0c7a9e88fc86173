package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recurring-planner/internal/model"
	"recurring-planner/internal/service"
)

// PassRunner runs a generation pass on demand, bounded by the pass timeout.
type PassRunner interface {
	RunOnce(ctx context.Context) (service.PassReport, error)
}

// TemplateManager creates, reads and deletes templates.
type TemplateManager interface {
	CreateTemplate(ctx context.Context, input service.TemplateInput) (*model.Task, error)
	FindTemplate(ctx context.Context, id uint) (*model.Task, error)
	DeleteTemplate(ctx context.Context, id uint) error
}

// ChainResolver finds the template behind an instance.
type ChainResolver interface {
	ResolveChain(ctx context.Context, instanceID uint) (*model.Task, error)
}

// Completer marks tasks completed.
type Completer interface {
	Complete(ctx context.Context, taskID uint, when time.Time) (*model.Task, error)
}

// CategoryLister lists a user's categories.
type CategoryLister interface {
	List(ctx context.Context, userID uint) ([]model.Category, error)
}

type handler struct {
	passes      PassRunner
	categories  CategoryLister
	templates   TemplateManager
	chains      ChainResolver
	occurrences Completer
	logger      *zap.Logger
	clock       func() time.Time
}

type createTemplateRequest struct {
	UserID      uint           `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Priority    model.Priority `json:"priority"`
	Pattern     string         `json:"pattern"`
	Interval    int            `json:"interval"`
	// Dates are YYYY-MM-DD.
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *handler) runPass(w http.ResponseWriter, r *http.Request) {
	report, err := h.passes.RunOnce(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newPassResponse(report))
}

func (h *handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: http.StatusBadRequest})
		return
	}

	input := service.TemplateInput{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Pattern:     req.Pattern,
		Interval:    req.Interval,
	}
	var err error
	if input.StartDate, err = parseDate(req.StartDate); err != nil {
		respondJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "start_date: " + err.Error(), Code: http.StatusBadRequest})
		return
	}
	if strings.TrimSpace(req.EndDate) != "" {
		end, err := parseDate(req.EndDate)
		if err != nil {
			respondJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "end_date: " + err.Error(), Code: http.StatusBadRequest})
			return
		}
		input.EndDate = &end
	}

	task, err := h.templates.CreateTemplate(r.Context(), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Template created", zap.Uint("template_id", task.ID), zap.Uint("user_id", task.UserID))
	respondJSON(w, h.logger, http.StatusCreated, newTaskResponse(task))
}

func (h *handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	task, err := h.templates.FindTemplate(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newTaskResponse(task))
}

func (h *handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.templates.DeleteTemplate(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Template deleted", zap.Uint("template_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) resolveTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	template, err := h.chains.ResolveChain(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if template == nil {
		respondJSON(w, h.logger, http.StatusNotFound, errorResponse{Error: "task has no template", Code: http.StatusNotFound})
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newTaskResponse(template))
}

func (h *handler) completeTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	task, err := h.occurrences.Complete(r.Context(), id, h.clock().UTC())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newTaskResponse(task))
}

type categoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.idParam(w, r)
	if !ok {
		return
	}
	categories, err := h.categories.List(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse{ID: c.ID, Name: c.Name})
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

func (h *handler) idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid id %q", raw), Code: http.StatusBadRequest})
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts YYYY-MM-DD. An empty value yields the zero time.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, raw)
}
