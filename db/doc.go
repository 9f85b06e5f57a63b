// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db stores ideas in PostgreSQL or SQLite and publishes their changes.

# Connecting

	conn, err := db.Open(ctx, "sqlite", "file:do4btc.db")
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

CreateSchema is safe to call multiple times.

# Tables

	ideas(id, name, headline, lightning, idea, votes, created_at)

On postgres the schema also installs increment_votes(idea_id), matching the
hosted database's RPC, and a trigger that sends {"type","id"} for every row
change on the ideas_changes NOTIFY channel. Rows are not sent whole because
NOTIFY payloads are capped near 8000 bytes.

# Store

Store implements list, paginated list, create, vote increment and delete.
IncrementVotes is a single UPDATE so concurrent credits are never lost.
ErrNotFound is returned for unknown ids.

# Change Feeds

  - PGFeed: LISTEN ideas_changes through a lib/pq listener, re-reading
    inserted and updated rows with Store.GetIdea
  - LocalFeed: in-process fan-out, fed by Store writes (SQLite)

Both hand out channels of models.ChangeEvent that close with the subscriber's
context.
*/
package db
