// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package board

import "strconv"

// Mode is the top-level interaction mode of a board.
type Mode int

const (
	ModeIdle Mode = iota
	ModeExpanded
)

// State is either Idle or Expanded(id). Only one id fits, so two bodies can
// never be expanded at once.
type State struct {
	mode Mode
	id   int64
}

func Idle() State {
	return State{mode: ModeIdle}
}

func Expanded(id int64) State {
	return State{mode: ModeExpanded, id: id}
}

func (s State) Mode() Mode {
	return s.mode
}

// ExpandedID returns the expanded body, if any.
func (s State) ExpandedID() (int64, bool) {
	if s.mode != ModeExpanded {
		return 0, false
	}
	return s.id, true
}

// Is reports whether id is the expanded body.
func (s State) Is(id int64) bool {
	return s.mode == ModeExpanded && s.id == id
}

func (s State) String() string {
	if s.mode == ModeExpanded {
		return "expanded(" + strconv.FormatInt(s.id, 10) + ")"
	}
	return "idle"
}

// ModalState is the sub-state of the vote modal. The modal only exists while
// a body is expanded.
type ModalState int

const (
	ModalClosed ModalState = iota
	ModalAwaitingRequest
	ModalShowingProof
	ModalShowingError
)

func (m ModalState) String() string {
	switch m {
	case ModalAwaitingRequest:
		return "awaiting_request"
	case ModalShowingProof:
		return "showing_proof"
	case ModalShowingError:
		return "showing_error"
	default:
		return "closed"
	}
}
