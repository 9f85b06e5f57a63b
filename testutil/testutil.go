// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/do4btc/cliparse"
	"github.com/danielhkuo/do4btc/db"
	"github.com/danielhkuo/do4btc/models"
)

// TestDBURL is an in-memory sqlite database private to one connection.
const TestDBURL = "file::memory:?cache=private"

// SetupTestDB creates a fresh in-memory database with the full schema
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), "sqlite", TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// SetupTestStore returns a store over a fresh database with a local feed
// attached.
func SetupTestStore(t *testing.T) (*db.Store, *db.LocalFeed) {
	t.Helper()
	feed := db.NewLocalFeed()
	return db.NewStore(SetupTestDB(t), feed), feed
}

// GetTestConfig returns a config suitable for tests
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		Store:          models.StoreSQLite,
		DatabaseURL:    TestDBURL,
		OpenNodeAPIKey: "test-opennode-key",
		PublicBaseURL:  "https://do4btc.test",
		VoteSats:       1000,
		CreditKey:      "test-credit-key",
		ResyncSchedule: "@every 5m",
		LogLevel:       "debug",
		AllowedOrigins: []string{"*"},
		Dev:            true,
	}
}

// CreateTestIdea inserts an idea and returns it
func CreateTestIdea(t *testing.T, store *db.Store, headline string) models.Idea {
	t.Helper()

	idea, err := store.CreateIdea(context.Background(), models.CreateIdeaRequest{
		Name:     "tester",
		Headline: headline,
		Idea:     "details for " + headline,
	})
	if err != nil {
		t.Fatalf("Failed to create test idea: %v", err)
	}
	return idea
}

// MakeRequest creates an HTTP request with optional JSON body
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
