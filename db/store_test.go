package db

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/do4btc/models"
)

func setupStore(t *testing.T) (*Store, *LocalFeed) {
	t.Helper()

	conn, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, CreateSchema(conn))
	require.NoError(t, CreateSchema(conn), "schema creation is idempotent")

	feed := NewLocalFeed()
	return NewStore(conn, feed), feed
}

func TestStore_CreateAndList(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for _, h := range []string{"first", "second", "third"} {
		_, err := store.CreateIdea(ctx, models.CreateIdeaRequest{Headline: h, Name: "sat", Idea: "body"})
		require.NoError(t, err)
	}

	ideas, err := store.ListIdeas(ctx)
	require.NoError(t, err)
	require.Len(t, ideas, 3)
	assert.Equal(t, "third", ideas[0].Headline)
	assert.Equal(t, "first", ideas[2].Headline)
	assert.Equal(t, int64(0), ideas[0].Votes)
	assert.Equal(t, "sat", ideas[0].Name)
	assert.False(t, ideas[0].CreatedAt.IsZero())
}

func TestStore_ListEmpty(t *testing.T) {
	store, _ := setupStore(t)

	ideas, err := store.ListIdeas(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ideas)
	assert.Empty(t, ideas)
}

func TestStore_ListIdeasPage(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.CreateIdea(ctx, models.CreateIdeaRequest{Headline: "idea"})
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		page     int
		pageSize int
		wantLen  int
	}{
		{"first page", 1, 2, 2},
		{"last partial page", 3, 2, 1},
		{"past the end", 4, 2, 0},
		{"everything", 1, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ideas, total, err := store.ListIdeasPage(ctx, tt.page, tt.pageSize)
			require.NoError(t, err)
			assert.Equal(t, int64(5), total)
			assert.Len(t, ideas, tt.wantLen)
		})
	}
}

func TestStore_ListIdeasPageOutOfRange(t *testing.T) {
	store, _ := setupStore(t)

	_, _, err := store.ListIdeasPage(context.Background(), math.MaxInt, 100)
	assert.ErrorIs(t, err, models.ErrPageOutOfRange)
}

func TestStore_IncrementVotes(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	idea, err := store.CreateIdea(ctx, models.CreateIdeaRequest{Headline: "vote me"})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		updated, err := store.IncrementVotes(ctx, idea.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(i), updated.Votes)
	}

	_, err = store.IncrementVotes(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteIdea(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	idea, err := store.CreateIdea(ctx, models.CreateIdeaRequest{Headline: "gone soon"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteIdea(ctx, idea.ID))
	assert.ErrorIs(t, store.DeleteIdea(ctx, idea.ID), ErrNotFound)

	ideas, err := store.ListIdeas(ctx)
	require.NoError(t, err)
	assert.Empty(t, ideas)
}

func TestStore_PublishesWrites(t *testing.T) {
	store, feed := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	idea, err := store.CreateIdea(ctx, models.CreateIdeaRequest{Headline: "live"})
	require.NoError(t, err)
	_, err = store.IncrementVotes(ctx, idea.ID)
	require.NoError(t, err)
	require.NoError(t, store.DeleteIdea(ctx, idea.ID))

	want := []string{models.EventInsert, models.EventUpdate, models.EventDelete}
	for _, typ := range want {
		select {
		case ev := <-events:
			assert.Equal(t, typ, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestStore_PostgresDialect(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewStore(sqlx.NewDb(mockDB, "postgres"), nil)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE ideas SET votes = votes + 1 WHERE id = $1 RETURNING`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "headline", "lightning", "idea", "votes", "created_at"}).
			AddRow(7, "", "h", "", "", 11, created))

	idea, err := store.IncrementVotes(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(11), idea.Votes)
	assert.Equal(t, created, idea.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE ideas SET votes = votes + 1 WHERE id = $1`)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = store.IncrementVotes(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetIdea(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateIdea(ctx, models.CreateIdeaRequest{Headline: "find me"})
	require.NoError(t, err)

	got, err := store.GetIdea(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "find me", got.Headline)

	_, err = store.GetIdea(ctx, created.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSchema_PostgresNotifiesIDOnly(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec(regexp.QuoteMeta(`'id', CASE WHEN TG_OP = 'DELETE' THEN OLD.id ELSE NEW.id END`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, CreateSchema(sqlx.NewDb(mockDB, "postgres")))
	assert.NoError(t, mock.ExpectationsWereMet())

	// Whole rows can exceed the NOTIFY payload limit.
	assert.NotContains(t, postgresSchema, "row_to_json")
	assert.NotContains(t, postgresSchema, "'old_record'")
}
