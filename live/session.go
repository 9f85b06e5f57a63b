// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/board"
	"github.com/danielhkuo/do4btc/models"
	"github.com/danielhkuo/do4btc/motion"
)

// Intent types sent by the viewer.
const (
	IntentClick      = "click"
	IntentOutside    = "outside"
	IntentEscape     = "escape"
	IntentVote       = "vote"
	IntentCloseModal = "close_modal"
	IntentOpenForm   = "open_form"
	IntentCloseForm  = "close_form"
	IntentSubmit     = "submit"
)

const (
	eventBuffer  = 256
	intentBuffer = 32
	resultBuffer = 16
	frameBuffer  = 2
)

var ErrSessionClosed = errors.New("session closed")

// Intent is one viewer action.
type Intent struct {
	Type string                    `json:"type"`
	ID   int64                     `json:"id,omitempty"`
	Idea *models.CreateIdeaRequest `json:"idea,omitempty"`
}

// Session drives one viewer's board. Everything that touches the board runs
// on the Run goroutine: ticks, intents, change events and the results of
// async calls all arrive over channels.
type Session struct {
	id     string
	hub    *Hub
	logger *zap.Logger
	tuning motion.Tuning

	intents chan Intent
	events  chan models.ChangeEvent
	results chan func(*board.Board)
	tunings chan motion.Tuning
	frames  chan models.Frame
	done    chan struct{}

	// stale is set when a change event had to be dropped; the next tick
	// refetches the full list.
	stale atomic.Bool
}

func newSession(id string, h *Hub, t motion.Tuning) *Session {
	return &Session{
		id:      id,
		hub:     h,
		logger:  h.logger.With(zap.String("session", id)),
		tuning:  t,
		intents: make(chan Intent, intentBuffer),
		events:  make(chan models.ChangeEvent, eventBuffer),
		results: make(chan func(*board.Board), resultBuffer),
		tunings: make(chan motion.Tuning, 1),
		frames:  make(chan models.Frame, frameBuffer),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Frames is closed when the session ends.
func (s *Session) Frames() <-chan models.Frame {
	return s.frames
}

// Send queues an intent for the session loop.
func (s *Session) Send(ctx context.Context, in Intent) error {
	select {
	case s.intents <- in:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) deliver(ev models.ChangeEvent) {
	select {
	case s.events <- ev:
	default:
		s.stale.Store(true)
	}
}

func (s *Session) retune(t motion.Tuning) {
	// Only the latest tuning matters.
	select {
	case <-s.tunings:
	default:
	}
	select {
	case s.tunings <- t:
	default:
	}
}

// post hands an async result back to the loop. It gives up when the session
// is gone.
func (s *Session) post(ctx context.Context, fn func(*board.Board)) {
	select {
	case s.results <- fn:
	case <-ctx.Done():
	}
}

// Run owns the board until ctx ends.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.hub.unregister(s)
		close(s.done)
		close(s.frames)
		s.logger.Debug("session closed")
	}()

	b := board.New(s.tuning)
	go s.fetch(ctx, "load")

	ticker := time.NewTicker(s.tuning.FrameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if s.stale.Swap(false) {
				go s.fetch(ctx, "refetch")
			}
			start := time.Now()
			b.Tick()
			frame := b.Frame()
			s.hub.metrics.ObserveTick(time.Since(start))
			s.emit(frame)

		case in := <-s.intents:
			s.handle(ctx, b, in)

		case ev := <-s.events:
			b.Apply(ev)

		case fn := <-s.results:
			fn(b)

		case t := <-s.tunings:
			b.SetTuning(t)
			ticker.Reset(t.FrameInterval())
		}
	}
}

// emit never blocks the tick; a slow viewer just misses frames.
func (s *Session) emit(frame models.Frame) {
	select {
	case s.frames <- frame:
	default:
		s.hub.metrics.FrameDropped()
	}
}

// fetch loads the full idea list. Before the first successful load the board
// treats the SYNC as its initial Load.
func (s *Session) fetch(ctx context.Context, reason string) {
	ideas, err := s.hub.store.ListIdeas(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("failed to fetch ideas", zap.String("reason", reason), zap.Error(err))
		s.post(ctx, func(b *board.Board) {
			if !b.Loaded() {
				b.SetError(board.MsgLoadFailed)
			}
		})
		return
	}
	s.post(ctx, func(b *board.Board) {
		b.Apply(models.ChangeEvent{Type: models.EventSync, Snapshot: ideas})
	})
}

func (s *Session) handle(ctx context.Context, b *board.Board, in Intent) {
	switch in.Type {
	case IntentClick:
		b.OnBodyClick(in.ID)
	case IntentOutside:
		b.OnOutsideClick()
	case IntentEscape:
		b.OnEscape()
	case IntentCloseModal:
		b.CloseModal()
	case IntentOpenForm:
		b.OpenForm()
	case IntentCloseForm:
		b.CloseForm()
	case IntentVote:
		s.vote(ctx, b, in.ID)
	case IntentSubmit:
		s.submit(ctx, b, in.Idea)
	default:
		s.logger.Debug("ignoring unknown intent", zap.String("type", in.Type))
	}
}

func (s *Session) vote(ctx context.Context, b *board.Board, id int64) {
	ticket, ok := b.OnVoteRequested(id)
	if !ok {
		return
	}
	s.hub.metrics.VoteRequested()

	go func() {
		charge, err := s.hub.charger.CreateCharge(ctx, ticket.IdeaID, s.hub.cfg.VoteSats)
		if ctx.Err() != nil {
			return
		}
		s.hub.metrics.ChargeOutcome(err == nil)
		if err != nil {
			s.logger.Warn("charge failed", zap.Int64("idea_id", ticket.IdeaID), zap.Error(err))
			s.post(ctx, func(b *board.Board) { b.ChargeFailed(ticket) })
			return
		}
		s.post(ctx, func(b *board.Board) { b.ChargeSucceeded(ticket, charge) })
	}()
}

func (s *Session) submit(ctx context.Context, b *board.Board, idea *models.CreateIdeaRequest) {
	if idea == nil {
		return
	}
	req, ok := b.OnIdeaSubmitted(*idea)
	if !ok {
		return
	}
	if err := s.hub.validate.Struct(req); err != nil {
		b.SubmitFailed(board.MsgInvalidIdea)
		return
	}

	go func() {
		created, err := s.hub.store.CreateIdea(ctx, req)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("idea submit failed", zap.Error(err))
			s.post(ctx, func(b *board.Board) { b.SubmitFailed("") })
			return
		}
		s.hub.metrics.IdeaCreated()
		s.post(ctx, func(b *board.Board) {
			b.SubmitSucceeded()
			// The feed delivers the same insert later; ApplyInsert merges it.
			b.Apply(models.ChangeEvent{Type: models.EventInsert, Record: created})
		})
	}()
}
