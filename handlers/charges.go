// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/middleware"
	"github.com/danielhkuo/do4btc/models"
)

// Charger creates Lightning invoices.
type Charger interface {
	CreateCharge(ctx context.Context, ideaID, sats int64) (models.Charge, error)
}

type ChargeHandler struct {
	charger  Charger
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewChargeHandler(charger Charger, logger *zap.Logger, m *metrics.Collector) *ChargeHandler {
	return &ChargeHandler{
		charger:  charger,
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
	}
}

// CreateCharge handles POST /api/opennode/charge
func (h *ChargeHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req models.ChargeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	h.metrics.VoteRequested()
	charge, err := h.charger.CreateCharge(r.Context(), req.IdeaID, req.Amount)
	h.metrics.ChargeOutcome(err == nil)
	if err != nil {
		h.logger.Error("failed to create charge",
			zap.Error(err),
			zap.Int64("idea_id", req.IdeaID),
			zap.String("client", middleware.GetClientIP(r)),
		)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create charge")
		return
	}

	h.logger.Info("charge created", zap.Int64("idea_id", req.IdeaID), zap.String("charge_id", charge.ID))
	middleware.JSONResponse(w, http.StatusOK, charge)
}
