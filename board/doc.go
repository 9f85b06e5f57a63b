// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package board holds one viewer's bubbles and the interaction state around them.

# State

A board is either Idle or Expanded(id). Expanding a body stops it in the
motion scheduler; every other body keeps moving. Clicking another body moves
the expansion in one step. An outside click or escape collapses the board and
restarts every body.

	b := board.New(motion.DefaultTuning())
	b.Load(ideas)
	b.OnBodyClick(3)   // Expanded(3), body 3 frozen
	b.OnOutsideClick() // Idle, everything moving

# Vote Modal

The vote modal opens on top of the expanded body:

	closed -> awaiting_request -> showing_proof | showing_error

OnVoteRequested hands out a VoteTicket. The charge result is reported back with
ChargeSucceeded or ChargeFailed and is dropped if the ticket no longer matches
the open modal.

# Change Events

Load, ApplyInsert, ApplyUpdate, ApplyDelete and ApplySync take ideas from any
change feed. Events that arrive before the first Load are queued and replayed
afterwards. Updates for unknown ids are ignored.

# Concurrency

Board is not safe for concurrent use. The live package drives each board from
a single session goroutine.
*/
package board
