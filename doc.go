// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the do4btc server.

do4btc is an idea board: every idea floats around the screen as a bubble,
opening one shows its details, and a vote is paid for with a Lightning
invoice.

# Starting the Server

	OPENNODE_API_KEY=... go run .

With flags, against a local postgres:

	go run . -store postgres -d "postgres://..." -opennode-key ...

Or without payments, on a local sqlite file:

	go run . -dev

# Configuration

See package cliparse for every flag and variable. The important ones:

  - STORE (-store): supabase, postgres or sqlite
  - SUPABASE_URL, SUPABASE_KEY: hosted store and realtime feed
  - DATABASE_URL (-d): postgres or sqlite connection string
  - OPENNODE_API_KEY: Lightning charges (required unless -dev)
  - CREDIT_KEY: enables the vote credit and delete hooks
  - TUNING_FILE (-tuning): motion tuning YAML, reloaded on change

# Architecture

  - motion: bubble kinematics and the frame scheduler
  - board: the interaction state machine over the bubbles
  - live: one board per websocket viewer, fed by the change feed
  - db, supastore: idea stores and change feeds
  - opennode: Lightning charge client
  - handlers, router, middleware: the HTTP API
  - metrics, tuning, cliparse, auth: supporting pieces

See package documentation for each component.
*/
package main
