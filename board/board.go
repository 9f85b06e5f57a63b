// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package board

import (
	"math/rand/v2"
	"time"

	"github.com/danielhkuo/do4btc/models"
	"github.com/danielhkuo/do4btc/motion"
)

// maxPending bounds the events queued before the first load.
const maxPending = 1024

const (
	MsgChargeFailed = "Failed to create payment. Please try again."
	MsgSubmitFailed = "Failed to submit idea. Please try again."
	MsgInvalidIdea  = "Please add a headline of at most 120 characters."
	MsgLoadFailed   = "Failed to load ideas. Retrying shortly."
)

// Body is one idea on the board together with its kinematic state.
type Body struct {
	Idea   models.Idea
	Motion motion.Kinematics
}

// VoteTicket identifies one charge request. Results are matched back to the
// modal by Seq, so a result for a closed or replaced modal is dropped.
type VoteTicket struct {
	Seq    uint64
	IdeaID int64
}

type modal struct {
	state  ModalState
	ideaID int64
	seq    uint64
	charge models.Charge
	err    string
}

// Board owns the bodies of one viewer and the interaction state around them.
//
// A Board is driven from a single goroutine: ticks, viewer intents, change
// events and async results must all be applied from the same loop.
type Board struct {
	bodies map[int64]Body
	order  []int64

	state State
	modal modal
	sched *motion.Scheduler

	tuning motion.Tuning
	bounds motion.Bounds
	rng    *rand.Rand

	loaded  bool
	pending []models.ChangeEvent

	formOpen   bool
	submitting bool
	uiError    string

	frameSeq   uint64
	requestSeq uint64
}

// Option configures a Board built by New.
type Option func(*Board)

// WithRand replaces the random source, mostly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(b *Board) { b.rng = rng }
}

// WithBounds sets the region bodies move within.
func WithBounds(bounds motion.Bounds) Option {
	return func(b *Board) { b.bounds = bounds }
}

// New returns an empty, unloaded Board in the Idle state.
func New(tuning motion.Tuning, opts ...Option) *Board {
	now := uint64(time.Now().UnixNano())
	b := &Board{
		bodies: make(map[int64]Body),
		state:  Idle(),
		sched:  motion.NewScheduler(),
		tuning: tuning,
		bounds: motion.DefaultBounds,
		rng:    rand.New(rand.NewPCG(now, now>>1)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetTuning swaps the motion constants. Positions are kept.
func (b *Board) SetTuning(t motion.Tuning) {
	b.tuning = t
}

// State returns the current interaction state.
func (b *Board) State() State {
	return b.state
}

// ModalState returns the state of the vote modal.
func (b *Board) ModalState() ModalState {
	return b.modal.state
}

// Loaded reports whether the initial idea list has been installed.
func (b *Board) Loaded() bool {
	return b.loaded
}

// Len returns the number of bodies on the board.
func (b *Board) Len() int {
	return len(b.order)
}

// Body returns a copy of one body.
func (b *Board) Body(id int64) (Body, bool) {
	body, ok := b.bodies[id]
	return body, ok
}

// Paused reports whether id is frozen. Only the expanded body is.
func (b *Board) Paused(id int64) bool {
	_, ok := b.bodies[id]
	return ok && !b.sched.Running(id)
}

// Tick advances every running body by one step. The new collection replaces
// the old one in a single assignment.
func (b *Board) Tick() {
	next := make(map[int64]Body, len(b.bodies))
	for _, id := range b.order {
		body := b.bodies[id]
		if b.sched.Running(id) {
			body.Motion = motion.Step(body.Motion, b.tuning, b.bounds, b.rng)
		}
		next[id] = body
	}
	b.bodies = next
}

// Event ingestion

// Load installs the initial idea list and replays anything that arrived on
// the change feed while the list was being fetched.
func (b *Board) Load(ideas []models.Idea) {
	b.sync(ideas)
	b.loaded = true
	if b.uiError == MsgLoadFailed {
		b.uiError = ""
	}

	pending := b.pending
	b.pending = nil
	for _, ev := range pending {
		b.Apply(ev)
	}
}

// Apply routes one change event. Events before the first load are queued.
func (b *Board) Apply(ev models.ChangeEvent) bool {
	if ev.Type == models.EventSync {
		if !b.loaded {
			b.Load(ev.Snapshot)
			return true
		}
		return b.ApplySync(ev.Snapshot)
	}

	if !b.loaded {
		if len(b.pending) < maxPending {
			b.pending = append(b.pending, ev)
		}
		return false
	}

	switch ev.Type {
	case models.EventInsert:
		return b.ApplyInsert(ev.Record)
	case models.EventUpdate:
		return b.ApplyUpdate(ev.Record)
	case models.EventDelete:
		id := ev.Old.ID
		if id == 0 {
			id = ev.Record.ID
		}
		return b.ApplyDelete(id)
	}
	return false
}

// ApplyInsert adds a new body. Inserting a known id only merges its payload.
func (b *Board) ApplyInsert(idea models.Idea) bool {
	if idea.ID == 0 {
		return false
	}
	if _, ok := b.bodies[idea.ID]; ok {
		return b.ApplyUpdate(idea)
	}

	b.bodies[idea.ID] = Body{Idea: idea, Motion: motion.Spawn(b.tuning, b.rng)}
	b.order = append(b.order, idea.ID)
	b.sched.Start(idea.ID)
	return true
}

// ApplyUpdate merges payload and vote count into a known body. Unknown ids
// are ignored.
func (b *Board) ApplyUpdate(idea models.Idea) bool {
	body, ok := b.bodies[idea.ID]
	if !ok {
		return false
	}
	if idea.Votes < 0 {
		idea.Votes = 0
	}
	if body.Idea == idea {
		return false
	}

	body.Idea = idea
	b.bodies[idea.ID] = body
	return true
}

// ApplyDelete removes a body and its scheduler entry. Deleting the expanded
// body returns the board to Idle.
func (b *Board) ApplyDelete(id int64) bool {
	if _, ok := b.bodies[id]; !ok {
		return false
	}
	b.remove(map[int64]struct{}{id: {}})
	return true
}

// remove drops every id in gone with a single pass over the order.
func (b *Board) remove(gone map[int64]struct{}) {
	expanded := false
	order := b.order[:0]
	for _, id := range b.order {
		if _, ok := gone[id]; ok {
			delete(b.bodies, id)
			b.sched.Stop(id)
			expanded = expanded || b.state.Is(id)
			continue
		}
		order = append(order, id)
	}
	clear(b.order[len(order):])
	b.order = order

	if expanded {
		b.collapse()
	}
}

// ApplySync reconciles the board with a full idea list: missing ids are
// inserted, known ids merged, and ids absent from the list removed.
func (b *Board) ApplySync(ideas []models.Idea) bool {
	return b.sync(ideas)
}

func (b *Board) sync(ideas []models.Idea) bool {
	changed := false
	seen := make(map[int64]struct{}, len(ideas))
	for _, idea := range ideas {
		if idea.ID == 0 {
			continue
		}
		seen[idea.ID] = struct{}{}
		if b.ApplyInsert(idea) {
			changed = true
		}
	}
	gone := make(map[int64]struct{})
	for _, id := range b.order {
		if _, ok := seen[id]; !ok {
			gone[id] = struct{}{}
		}
	}
	if len(gone) > 0 {
		b.remove(gone)
		changed = true
	}
	return changed
}

// Viewer intents

// OnBodyClick expands id. Clicking the expanded body does nothing; clicking
// another body moves the expansion in one step. Clicks are ignored while the
// vote modal is open.
func (b *Board) OnBodyClick(id int64) bool {
	if _, ok := b.bodies[id]; !ok {
		return false
	}
	if b.modal.state != ModalClosed {
		return false
	}
	if b.state.Is(id) {
		return false
	}

	b.uiError = ""
	if prev, ok := b.state.ExpandedID(); ok {
		b.sched.Start(prev)
	}
	b.sched.Stop(id)
	b.state = Expanded(id)
	return true
}

// OnOutsideClick collapses the expanded body.
func (b *Board) OnOutsideClick() bool {
	if b.modal.state != ModalClosed {
		return false
	}
	if b.state.Mode() != ModeExpanded {
		return false
	}
	b.collapse()
	return true
}

// OnEscape closes the vote modal if it is open, otherwise the open form,
// otherwise collapses the expanded body.
func (b *Board) OnEscape() bool {
	switch {
	case b.modal.state != ModalClosed:
		return b.CloseModal()
	case b.formOpen:
		return b.CloseForm()
	case b.state.Mode() == ModeExpanded:
		b.collapse()
		return true
	}
	return false
}

func (b *Board) collapse() {
	b.state = Idle()
	b.modal = modal{}
	for _, id := range b.order {
		b.sched.Start(id)
	}
}

// Vote modal

// OnVoteRequested opens the vote modal for the expanded body and returns the
// ticket for the charge request the caller must now make. A failed attempt
// can be retried from the error screen.
func (b *Board) OnVoteRequested(id int64) (VoteTicket, bool) {
	if !b.state.Is(id) {
		return VoteTicket{}, false
	}
	if b.modal.state != ModalClosed && b.modal.state != ModalShowingError {
		return VoteTicket{}, false
	}

	b.requestSeq++
	b.modal = modal{state: ModalAwaitingRequest, ideaID: id, seq: b.requestSeq}
	return VoteTicket{Seq: b.requestSeq, IdeaID: id}, true
}

// ChargeSucceeded shows the invoice for a pending request.
func (b *Board) ChargeSucceeded(ticket VoteTicket, charge models.Charge) bool {
	if !b.awaiting(ticket) {
		return false
	}
	b.modal.state = ModalShowingProof
	b.modal.charge = charge
	return true
}

// ChargeFailed shows the error screen for a pending request.
func (b *Board) ChargeFailed(ticket VoteTicket) bool {
	if !b.awaiting(ticket) {
		return false
	}
	b.modal.state = ModalShowingError
	b.modal.err = MsgChargeFailed
	return true
}

func (b *Board) awaiting(ticket VoteTicket) bool {
	return b.modal.state == ModalAwaitingRequest && b.modal.seq == ticket.Seq
}

// CloseModal returns to the expanded body without touching motion.
func (b *Board) CloseModal() bool {
	if b.modal.state == ModalClosed {
		return false
	}
	b.modal = modal{}
	return true
}

// Idea form

// OpenForm shows the submission form. It reports false if it was already open.
func (b *Board) OpenForm() bool {
	if b.formOpen {
		return false
	}
	b.formOpen = true
	b.uiError = ""
	return true
}

// CloseForm hides the submission form.
func (b *Board) CloseForm() bool {
	if !b.formOpen {
		return false
	}
	b.formOpen = false
	return true
}

// OnIdeaSubmitted accepts a submission unless one is already in flight. The
// caller performs the insert and reports back with SubmitSucceeded or
// SubmitFailed; the new body itself arrives through the change feed.
func (b *Board) OnIdeaSubmitted(req models.CreateIdeaRequest) (models.CreateIdeaRequest, bool) {
	if b.submitting {
		return models.CreateIdeaRequest{}, false
	}
	b.submitting = true
	b.uiError = ""
	return req.Normalize(), true
}

func (b *Board) SubmitSucceeded() {
	b.submitting = false
	b.formOpen = false
	b.uiError = ""
}

func (b *Board) SubmitFailed(msg string) {
	b.submitting = false
	if msg == "" {
		msg = MsgSubmitFailed
	}
	b.uiError = msg
}

// SetError shows a transient message until the next successful action.
func (b *Board) SetError(msg string) {
	b.uiError = msg
}

// Views

// View returns one view model per body in insertion order.
func (b *Board) View() []models.BodyView {
	views := make([]models.BodyView, 0, len(b.order))
	for _, id := range b.order {
		body := b.bodies[id]
		expanded := b.state.Is(id)
		radius := b.tuning.Radius
		if expanded {
			radius = b.tuning.ExpandedRadius
		}
		views = append(views, models.BodyView{
			ID:        id,
			Name:      body.Idea.Name,
			Headline:  body.Idea.Headline,
			Lightning: body.Idea.Lightning,
			Idea:      body.Idea.Idea,
			X:         body.Motion.X,
			Y:         body.Motion.Y,
			Radius:    radius,
			Expanded:  expanded,
			Paused:    !b.sched.Running(id),
			Votes:     body.Idea.Votes,
		})
	}
	return views
}

// Frame returns the full view and advances the frame sequence.
func (b *Board) Frame() models.Frame {
	b.frameSeq++
	frame := models.Frame{
		Seq:      b.frameSeq,
		Bodies:   b.View(),
		FormOpen: b.formOpen,
		Error:    b.uiError,
		Modal:    models.ModalView{State: b.modal.state.String()},
	}
	if id, ok := b.state.ExpandedID(); ok {
		frame.Expanded = &id
	}
	if b.modal.state != ModalClosed {
		frame.Modal.IdeaID = b.modal.ideaID
		frame.Modal.Error = b.modal.err
		if b.modal.state == ModalShowingProof {
			charge := b.modal.charge
			frame.Modal.Charge = &charge
		}
	}
	return frame
}
