// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package supastore keeps ideas in a hosted Supabase project.

# Store

Store talks to the project's REST API through supabase-go:

	store, err := supastore.New(os.Getenv("SUPABASE_URL"), os.Getenv("SUPABASE_KEY"))

Votes are added with the increment_votes(idea_id) RPC, which the project must
define. Error objects in RPC responses are reported as ErrRPC.

# Realtime

Realtime joins the realtime:public:ideas channel with a postgres_changes
config and turns row changes into models.ChangeEvent values. The connection
sends a heartbeat every 30 seconds and is redialed with exponential backoff
when it drops. Each reconnect emits a SYNC event without a snapshot so the
consumer can refetch.
*/
package supastore
