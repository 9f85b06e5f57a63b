// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NotifyChannel is the LISTEN/NOTIFY channel the postgres trigger publishes on.
const NotifyChannel = "ideas_changes"

// CreateSchema creates the ideas table for the connection's dialect.
// Safe to call multiple times - uses IF NOT EXISTS and CREATE OR REPLACE.
func CreateSchema(conn *sqlx.DB) error {
	ddl := sqliteSchema
	if conn.DriverName() == "postgres" {
		ddl = postgresSchema
	}

	if _, err := conn.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ideas (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    headline TEXT NOT NULL,
    lightning TEXT NOT NULL DEFAULT '',
    idea TEXT NOT NULL DEFAULT '',
    votes BIGINT NOT NULL DEFAULT 0 CHECK (votes >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ideas_created_at ON ideas(created_at);

-- Same contract as the hosted database's RPC
CREATE OR REPLACE FUNCTION increment_votes(idea_id BIGINT) RETURNS VOID AS $$
    UPDATE ideas SET votes = votes + 1 WHERE id = idea_id;
$$ LANGUAGE sql;

-- Change feed. NOTIFY payloads are capped near 8000 bytes, so only the
-- operation and id are sent; listeners re-read the row.
CREATE OR REPLACE FUNCTION notify_ideas_change() RETURNS TRIGGER AS $$
BEGIN
    PERFORM pg_notify('ideas_changes', json_build_object(
        'type', TG_OP,
        'id', CASE WHEN TG_OP = 'DELETE' THEN OLD.id ELSE NEW.id END
    )::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS ideas_notify ON ideas;
CREATE TRIGGER ideas_notify
    AFTER INSERT OR UPDATE OR DELETE ON ideas
    FOR EACH ROW EXECUTE FUNCTION notify_ideas_change();
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ideas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL DEFAULT '',
    headline TEXT NOT NULL,
    lightning TEXT NOT NULL DEFAULT '',
    idea TEXT NOT NULL DEFAULT '',
    votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ideas_created_at ON ideas(created_at);
`
