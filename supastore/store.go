// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package supastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"github.com/tidwall/gjson"

	"github.com/danielhkuo/do4btc/models"
)

const ideasTable = "ideas"

var (
	ErrNotFound = models.ErrIdeaNotFound
	ErrRPC      = errors.New("rpc failed")
)

// Store reads and writes ideas through the hosted database's REST API.
//
// The REST client does not take a context; ctx is only checked before each
// call.
type Store struct {
	client *supabase.Client
}

func New(url, key string) (*Store, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &Store{client: client}, nil
}

// ListIdeas returns every idea, newest first.
func (s *Store) ListIdeas(ctx context.Context) ([]models.Idea, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, _, err := s.client.From(ideasTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return decodeIdeas(body)
}

// ListIdeasPage returns one 1-based page of ideas with the exact total.
func (s *Store) ListIdeasPage(ctx context.Context, page, pageSize int) ([]models.Idea, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	from, ok := models.PageOffset(page, pageSize)
	if !ok {
		return nil, 0, models.ErrPageOutOfRange
	}
	to := from + pageSize - 1

	body, total, err := s.client.From(ideasTable).
		Select("*", "exact", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(from, to, "").
		Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("list ideas page: %w", err)
	}

	ideas, err := decodeIdeas(body)
	if err != nil {
		return nil, 0, err
	}
	return ideas, total, nil
}

type newIdeaRow struct {
	Name      string `json:"name"`
	Headline  string `json:"headline"`
	Lightning string `json:"lightning"`
	Idea      string `json:"idea"`
	Votes     int64  `json:"votes"`
}

// CreateIdea inserts a new idea and returns the stored row.
func (s *Store) CreateIdea(ctx context.Context, req models.CreateIdeaRequest) (models.Idea, error) {
	if err := ctx.Err(); err != nil {
		return models.Idea{}, err
	}

	row := newIdeaRow{Name: req.Name, Headline: req.Headline, Lightning: req.Lightning, Idea: req.Idea}
	body, _, err := s.client.From(ideasTable).
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return models.Idea{}, fmt.Errorf("insert idea: %w", err)
	}

	ideas, err := decodeIdeas(body)
	if err != nil {
		return models.Idea{}, err
	}
	if len(ideas) == 0 {
		return models.Idea{}, fmt.Errorf("insert idea: empty response")
	}
	return ideas[0], nil
}

// IncrementVotes calls the increment_votes RPC and reads the row back.
func (s *Store) IncrementVotes(ctx context.Context, id int64) (models.Idea, error) {
	if err := ctx.Err(); err != nil {
		return models.Idea{}, err
	}

	resp := s.client.Rpc("increment_votes", "", map[string]int64{"idea_id": id})
	if err := rpcError(resp); err != nil {
		return models.Idea{}, err
	}

	return s.getIdea(id)
}

// DeleteIdea removes one idea.
func (s *Store) DeleteIdea(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, _, err := s.client.From(ideasTable).
		Delete("representation", "").
		Eq("id", strconv.FormatInt(id, 10)).
		Execute()
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}

	ideas, err := decodeIdeas(body)
	if err != nil {
		return err
	}
	if len(ideas) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) getIdea(id int64) (models.Idea, error) {
	body, _, err := s.client.From(ideasTable).
		Select("*", "", false).
		Eq("id", strconv.FormatInt(id, 10)).
		Execute()
	if err != nil {
		return models.Idea{}, fmt.Errorf("get idea: %w", err)
	}

	ideas, err := decodeIdeas(body)
	if err != nil {
		return models.Idea{}, err
	}
	if len(ideas) == 0 {
		return models.Idea{}, ErrNotFound
	}
	return ideas[0], nil
}

// rpcError detects a PostgREST error object in an RPC response body. A void
// function answers with an empty body.
func rpcError(resp string) error {
	if resp == "" || !gjson.Valid(resp) {
		return nil
	}
	msg := gjson.Get(resp, "message")
	if !msg.Exists() || !gjson.Get(resp, "code").Exists() {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrRPC, msg.String(), gjson.Get(resp, "code").String())
}

func decodeIdeas(body []byte) ([]models.Idea, error) {
	var rows []models.IdeaRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode ideas: %w", err)
	}

	ideas := make([]models.Idea, 0, len(rows))
	for _, row := range rows {
		ideas = append(ideas, row.ToIdea())
	}
	return ideas, nil
}
