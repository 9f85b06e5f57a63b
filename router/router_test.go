// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/do4btc/auth"
	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/models"
	"github.com/danielhkuo/do4btc/testutil"
)

type stubCharger struct{}

func (stubCharger) CreateCharge(_ context.Context, ideaID, sats int64) (models.Charge, error) {
	return models.Charge{ID: "ch_" + strconv.FormatInt(ideaID, 10), Invoice: "lnbc1", Amount: sats}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *metrics.Collector) {
	t.Helper()
	store, _ := testutil.SetupTestStore(t)
	collector := metrics.New()

	mux := NewRouter(Deps{
		Store:   store,
		Charger: stubCharger{},
		Live: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		},
		Metrics: collector,
	}, testutil.GetTestConfig())
	return mux, collector
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "do4btc API v1", w.Body.String())
}

func TestRouteExistence(t *testing.T) {
	mux, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/"},
		{"GET", "/metrics"},
		{"GET", "/ideas"},
		{"POST", "/ideas"},
		{"POST", "/api/opennode/charge"},
		{"POST", "/ideas/1/votes"},
		{"DELETE", "/ideas/1"},
		{"GET", "/ws"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))

			// Handlers may reject the empty body, but the route must exist
			assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code)
			assert.NotEqual(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestUnknownMethod(t *testing.T) {
	mux, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("PUT", "/ideas", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWebsocketMounted(t *testing.T) {
	mux, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}

// TestIdeaWorkflow walks an idea from creation through a paid vote to removal.
func TestIdeaWorkflow(t *testing.T) {
	mux, collector := newTestRouter(t)
	cfg := testutil.GetTestConfig()
	key := map[string]string{auth.CreditKeyHeader: cfg.CreditKey}

	// Step 1: create
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/ideas",
		models.CreateIdeaRequest{Name: "hal", Headline: "Run bitcoin", Lightning: "hal@ln.example"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var idea models.Idea
	testutil.AssertJSON(t, w, &idea)
	require.NotZero(t, idea.ID)
	id := strconv.FormatInt(idea.ID, 10)

	// Step 2: list
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("GET", "/ideas", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var list models.ListIdeasResponse
	testutil.AssertJSON(t, w, &list)
	require.Len(t, list.Ideas, 1)
	assert.Equal(t, "Run bitcoin", list.Ideas[0].Headline)

	// Step 3: charge
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/api/opennode/charge",
		models.ChargeRequest{IdeaID: idea.ID, Amount: cfg.VoteSats}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var charge models.Charge
	testutil.AssertJSON(t, w, &charge)
	assert.Equal(t, "ch_"+id, charge.ID)
	assert.Equal(t, cfg.VoteSats, charge.Amount)

	// Step 4: credit the paid vote
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/ideas/"+id+"/votes", nil, key))
	testutil.AssertStatus(t, w, http.StatusOK)

	var credited models.CreditVoteResponse
	testutil.AssertJSON(t, w, &credited)
	assert.Equal(t, int64(1), credited.Votes)

	// Step 5: delete
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("DELETE", "/ideas/"+id, nil, key))
	testutil.AssertStatus(t, w, http.StatusNoContent)

	// Requests were measured under their route patterns
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `route="/ideas/{id}/votes"`)
	assert.Equal(t, 1.0, promtest.ToFloat64(collector.VotesCredited))
}

func TestCORSPreflight(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest("OPTIONS", "/api/opennode/charge", nil)
	req.Header.Set("Origin", "https://do4btc.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
