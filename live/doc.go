// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package live runs one board per connected viewer and streams it over a
websocket.

# Hub

The Hub holds every open Session. Run subscribes to a ChangeFeed and hands
each event to all sessions; Resync fetches the full idea list and sends it as
a SYNC event. SetTuning pushes new motion constants to running sessions.

	hub := live.NewHub(store, charger, live.Config{VoteSats: 1000}, logger, m)
	go hub.Run(ctx, feed)

# Session

A Session owns a board.Board on a single goroutine. It steps the board at the
tuning's frame rate and sends one frame per tick; frames a slow viewer cannot
take are dropped. Charge requests and idea inserts run in their own
goroutines and report back to the loop.

# Protocol

Viewers send JSON intents:

	{"type":"click","id":3}
	{"type":"outside"}
	{"type":"escape"}
	{"type":"vote","id":3}
	{"type":"close_modal"}
	{"type":"open_form"}
	{"type":"close_form"}
	{"type":"submit","idea":{"name":"","headline":"...","lightning":"","idea":"..."}}

The server answers with {"type":"session","data":{"id":...}} once and then
{"type":"frame","data":{...}} per tick.
*/
package live
