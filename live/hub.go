// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/models"
	"github.com/danielhkuo/do4btc/motion"
)

// ErrFeedClosed is returned by Run when the change feed ends on its own.
var ErrFeedClosed = errors.New("change feed closed")

// IdeaStore is the part of the idea store a session needs.
type IdeaStore interface {
	ListIdeas(ctx context.Context) ([]models.Idea, error)
	CreateIdea(ctx context.Context, req models.CreateIdeaRequest) (models.Idea, error)
}

// ChangeFeed delivers row changes of the ideas table. A SYNC event without
// a snapshot asks the consumer to refetch everything.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error)
}

type Charger interface {
	CreateCharge(ctx context.Context, ideaID, sats int64) (models.Charge, error)
}

type Config struct {
	VoteSats int64
	Tuning   motion.Tuning
}

// Hub owns the set of live sessions. It fans change events and tuning
// updates out to every session; each session applies them on its own loop.
type Hub struct {
	store    IdeaStore
	charger  Charger
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Collector
	validate *validator.Validate

	mu       sync.RWMutex
	sessions map[*Session]struct{}
	tuning   motion.Tuning
}

func NewHub(store IdeaStore, charger Charger, cfg Config, logger *zap.Logger, m *metrics.Collector) *Hub {
	if cfg.VoteSats <= 0 {
		cfg.VoteSats = 1000
	}
	if cfg.Tuning == (motion.Tuning{}) {
		cfg.Tuning = motion.DefaultTuning()
	}
	return &Hub{
		store:    store,
		charger:  charger,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		validate: validator.New(),
		sessions: make(map[*Session]struct{}),
		tuning:   cfg.Tuning,
	}
}

// Open registers a new session. The caller must Run it.
func (h *Hub) Open() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := newSession(uuid.NewString(), h, h.tuning)
	h.sessions[s] = struct{}{}
	h.metrics.SessionOpened()
	return s
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		h.metrics.SessionClosed()
	}
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast hands one change event to every session.
func (h *Hub) Broadcast(ev models.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions {
		s.deliver(ev)
	}
}

// SetTuning replaces the motion constants for new and running sessions.
func (h *Hub) SetTuning(t motion.Tuning) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.tuning = t
	for s := range h.sessions {
		s.retune(t)
	}
}

// Resync fetches the full idea list and sends it to every session as a SYNC
// event.
func (h *Hub) Resync(ctx context.Context) error {
	ideas, err := h.store.ListIdeas(ctx)
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}
	h.Broadcast(models.ChangeEvent{Type: models.EventSync, Snapshot: ideas})
	h.logger.Debug("resync broadcast", zap.Int("ideas", len(ideas)), zap.Int("sessions", h.Len()))
	return nil
}

// Run forwards the change feed to all sessions until ctx ends.
func (h *Hub) Run(ctx context.Context, feed ChangeFeed) error {
	events, err := feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	h.logger.Info("change feed subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrFeedClosed
			}
			h.metrics.ChangeEvent(ev.Type)

			if ev.Type == models.EventSync && ev.Snapshot == nil {
				if err := h.Resync(ctx); err != nil {
					h.logger.Warn("resync after feed reconnect failed", zap.Error(err))
				}
				continue
			}
			h.Broadcast(ev)
		}
	}
}
