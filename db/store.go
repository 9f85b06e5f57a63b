// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/do4btc/models"
)

var ErrNotFound = models.ErrIdeaNotFound

const ideaColumns = `id, name, headline, lightning, idea, votes, created_at`

// Open connects to postgres or sqlite and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	// Every connection to an in-memory sqlite database is a separate database.
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	return conn, nil
}

// Store reads and writes ideas over SQL. When a LocalFeed is attached every
// successful write is published to it; postgres publishes through its
// trigger instead.
type Store struct {
	db   *sqlx.DB
	feed *LocalFeed
}

func NewStore(conn *sqlx.DB, feed *LocalFeed) *Store {
	return &Store{db: conn, feed: feed}
}

// ListIdeas returns every idea, newest first.
func (s *Store) ListIdeas(ctx context.Context) ([]models.Idea, error) {
	ideas := []models.Idea{}
	err := s.db.SelectContext(ctx, &ideas,
		`SELECT `+ideaColumns+` FROM ideas ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return ideas, nil
}

// ListIdeasPage returns one 1-based page of ideas, newest first, together
// with the total number of ideas.
func (s *Store) ListIdeasPage(ctx context.Context, page, pageSize int) ([]models.Idea, int64, error) {
	offset, ok := models.PageOffset(page, pageSize)
	if !ok {
		return nil, 0, models.ErrPageOutOfRange
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM ideas`); err != nil {
		return nil, 0, fmt.Errorf("count ideas: %w", err)
	}

	ideas := []models.Idea{}
	query := s.db.Rebind(`SELECT ` + ideaColumns + ` FROM ideas ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &ideas, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("list ideas page: %w", err)
	}

	return ideas, total, nil
}

// CreateIdea inserts a new idea with zero votes.
func (s *Store) CreateIdea(ctx context.Context, req models.CreateIdeaRequest) (models.Idea, error) {
	var idea models.Idea
	query := s.db.Rebind(`
		INSERT INTO ideas (name, headline, lightning, idea, votes, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		RETURNING ` + ideaColumns)

	err := s.db.GetContext(ctx, &idea, query,
		req.Name, req.Headline, req.Lightning, req.Idea, time.Now().UTC())
	if err != nil {
		return models.Idea{}, fmt.Errorf("insert idea: %w", err)
	}

	s.publish(models.ChangeEvent{Type: models.EventInsert, Record: idea})
	return idea, nil
}

// GetIdea reads one idea.
func (s *Store) GetIdea(ctx context.Context, id int64) (models.Idea, error) {
	var idea models.Idea
	err := s.db.GetContext(ctx, &idea, s.db.Rebind(`SELECT `+ideaColumns+` FROM ideas WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Idea{}, ErrNotFound
	}
	if err != nil {
		return models.Idea{}, fmt.Errorf("get idea: %w", err)
	}
	return idea, nil
}

// IncrementVotes adds one vote in a single statement, so concurrent credits
// never lose an increment.
func (s *Store) IncrementVotes(ctx context.Context, id int64) (models.Idea, error) {
	var idea models.Idea
	query := s.db.Rebind(`UPDATE ideas SET votes = votes + 1 WHERE id = ? RETURNING ` + ideaColumns)

	err := s.db.GetContext(ctx, &idea, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Idea{}, ErrNotFound
	}
	if err != nil {
		return models.Idea{}, fmt.Errorf("increment votes: %w", err)
	}

	s.publish(models.ChangeEvent{Type: models.EventUpdate, Record: idea})
	return idea, nil
}

// DeleteIdea removes one idea.
func (s *Store) DeleteIdea(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM ideas WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.publish(models.ChangeEvent{Type: models.EventDelete, Old: models.Idea{ID: id}})
	return nil
}

func (s *Store) publish(ev models.ChangeEvent) {
	if s.feed != nil {
		s.feed.Publish(ev)
	}
}
