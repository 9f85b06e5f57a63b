// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/middleware"
	"github.com/danielhkuo/do4btc/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// IdeaStore is the subset of db.Store and supastore.Store the HTTP API uses.
type IdeaStore interface {
	ListIdeasPage(ctx context.Context, page, pageSize int) ([]models.Idea, int64, error)
	CreateIdea(ctx context.Context, req models.CreateIdeaRequest) (models.Idea, error)
	IncrementVotes(ctx context.Context, id int64) (models.Idea, error)
	DeleteIdea(ctx context.Context, id int64) error
}

type IdeaHandler struct {
	store    IdeaStore
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewIdeaHandler(store IdeaStore, logger *zap.Logger, m *metrics.Collector) *IdeaHandler {
	return &IdeaHandler{
		store:    store,
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
	}
}

// ListIdeas handles GET /ideas?page=&page_size=
func (h *IdeaHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page", 1)
	if !ok || page < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	pageSize, ok := queryInt(r, "page_size", defaultPageSize)
	if !ok || pageSize < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "page_size must be a positive integer")
		return
	}
	pageSize = min(pageSize, maxPageSize)
	if _, ok := models.PageOffset(page, pageSize); !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "page is out of range")
		return
	}

	ideas, total, err := h.store.ListIdeasPage(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list ideas", zap.Error(err), zap.Int("page", page))
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load ideas")
		return
	}
	if ideas == nil {
		ideas = []models.Idea{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListIdeasResponse{
		Ideas:    ideas,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// CreateIdea handles POST /ideas
func (h *IdeaHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIdeaRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req = req.Normalize()
	if err := h.validate.Struct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	idea, err := h.store.CreateIdea(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to create idea", zap.Error(err))
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create idea")
		return
	}
	h.metrics.IdeaCreated()

	h.logger.Info("idea created", zap.Int64("idea_id", idea.ID))
	middleware.JSONResponse(w, http.StatusCreated, idea)
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}

// validationMessage names the first failing field in the request's JSON terms.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}
