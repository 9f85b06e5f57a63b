// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/cliparse"
	"github.com/danielhkuo/do4btc/handlers"
	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/middleware"
)

// Deps are the components the routes are served by. Live and Metrics may be
// nil, in which case /ws and /metrics are not mounted.
type Deps struct {
	Store   handlers.IdeaStore
	Charger handlers.Charger
	Live    http.HandlerFunc
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

func NewRouter(deps Deps, cfg cliparse.Config) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize handlers
	ideaHandler := handlers.NewIdeaHandler(deps.Store, logger, deps.Metrics)
	chargeHandler := handlers.NewChargeHandler(deps.Charger, logger, deps.Metrics)
	voteHandler := handlers.NewVoteHandler(deps.Store, cfg.CreditKey, logger, deps.Metrics)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.WithLogging(logger, deps.Metrics))

		// Ideas (public)
		r.Get("/ideas", ideaHandler.ListIdeas)
		r.Post("/ideas", ideaHandler.CreateIdea)

		// Payments (public)
		r.Post("/api/opennode/charge", chargeHandler.CreateCharge)

		// Backend hooks (credit key)
		r.Post("/ideas/{id}/votes", voteHandler.CreditVote)
		r.Delete("/ideas/{id}", voteHandler.DeleteIdea)
	})

	// Websocket sessions skip request logging; the connection outlives it.
	if deps.Live != nil {
		r.Get("/ws", deps.Live)
	}

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("do4btc API v1"))
	})

	return r
}
