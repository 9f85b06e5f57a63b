// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/auth"
	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/middleware"
	"github.com/danielhkuo/do4btc/models"
)

// VoteHandler serves the backend hooks guarded by the shared credit key:
// crediting a paid vote and removing an idea.
type VoteHandler struct {
	store     IdeaStore
	creditKey string
	logger    *zap.Logger
	metrics   *metrics.Collector
}

func NewVoteHandler(store IdeaStore, creditKey string, logger *zap.Logger, m *metrics.Collector) *VoteHandler {
	return &VoteHandler{store: store, creditKey: creditKey, logger: logger, metrics: m}
}

// CreditVote handles POST /ideas/{id}/votes
func (h *VoteHandler) CreditVote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	idea, err := h.store.IncrementVotes(r.Context(), id)
	if errors.Is(err, models.ErrIdeaNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Idea not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to credit vote", zap.Error(err), zap.Int64("idea_id", id))
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to credit vote")
		return
	}
	h.metrics.VoteCredited()

	h.logger.Info("vote credited", zap.Int64("idea_id", id), zap.Int64("votes", idea.Votes))
	middleware.JSONResponse(w, http.StatusOK, models.CreditVoteResponse{IdeaID: idea.ID, Votes: idea.Votes})
}

// DeleteIdea handles DELETE /ideas/{id}
func (h *VoteHandler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteIdea(r.Context(), id)
	if errors.Is(err, models.ErrIdeaNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Idea not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete idea", zap.Error(err), zap.Int64("idea_id", id))
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete idea")
		return
	}

	h.logger.Info("idea deleted", zap.Int64("idea_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// authorize checks the credit key and parses the {id} path parameter.
func (h *VoteHandler) authorize(w http.ResponseWriter, r *http.Request) (int64, bool) {
	err := auth.ValidateCreditKey(auth.CreditKeyFromRequest(r), h.creditKey)
	switch {
	case errors.Is(err, auth.ErrCreditDisabled):
		middleware.ErrorResponse(w, http.StatusForbidden, "Vote crediting is disabled")
		return 0, false
	case err != nil:
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credit key")
		return 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid idea id")
		return 0, false
	}
	return id, true
}
