package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/board"
	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/models"
	"github.com/danielhkuo/do4btc/motion"
)

type fakeStore struct {
	mu      sync.Mutex
	ideas   []models.Idea
	listErr error
	failNew bool
}

func (f *fakeStore) ListIdeas(ctx context.Context) ([]models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Idea(nil), f.ideas...), nil
}

func (f *fakeStore) CreateIdea(ctx context.Context, req models.CreateIdeaRequest) (models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNew {
		return models.Idea{}, errors.New("insert failed")
	}
	idea := models.Idea{ID: int64(len(f.ideas) + 1), Name: req.Name, Headline: req.Headline}
	f.ideas = append(f.ideas, idea)
	return idea, nil
}

func (f *fakeStore) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

type fakeCharger struct {
	err error
}

func (f fakeCharger) CreateCharge(ctx context.Context, ideaID, sats int64) (models.Charge, error) {
	if f.err != nil {
		return models.Charge{}, f.err
	}
	return models.Charge{ID: "ch_1", Invoice: "lnbc", Amount: sats}, nil
}

type fakeFeed struct {
	ch chan models.ChangeEvent
}

func (f *fakeFeed) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	return f.ch, nil
}

func seeded(n int) *fakeStore {
	store := &fakeStore{}
	for i := 1; i <= n; i++ {
		store.ideas = append(store.ideas, models.Idea{ID: int64(i), Headline: "idea"})
	}
	return store
}

func newHub(store IdeaStore, charger Charger) *Hub {
	return NewHub(store, charger, Config{VoteSats: 1000}, zap.NewNop(), metrics.New())
}

func startSession(t *testing.T, h *Hub) (*Session, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := h.Open()
	go s.Run(ctx)
	t.Cleanup(cancel)
	return s, cancel
}

// waitFrame reads frames until one satisfies pred.
func waitFrame(t *testing.T, s *Session, pred func(models.Frame) bool) models.Frame {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case f, ok := <-s.Frames():
			require.True(t, ok, "session ended")
			if pred(f) {
				return f
			}
		case <-deadline:
			t.Fatal("no matching frame")
		}
	}
}

func bodies(n int) func(models.Frame) bool {
	return func(f models.Frame) bool { return len(f.Bodies) == n }
}

func send(t *testing.T, s *Session, in Intent) {
	t.Helper()
	require.NoError(t, s.Send(context.Background(), in))
}

func TestSession_LoadsAndStreams(t *testing.T) {
	h := newHub(seeded(3), fakeCharger{})
	s, _ := startSession(t, h)

	f := waitFrame(t, s, bodies(3))
	for _, b := range f.Bodies {
		assert.True(t, motion.DefaultBounds.Contains(b.X, b.Y))
		assert.False(t, b.Paused)
	}
	next := waitFrame(t, s, bodies(3))
	assert.Greater(t, next.Seq, f.Seq)
	assert.Equal(t, 1, h.Len())
}

func TestSession_ClickAndOutside(t *testing.T) {
	h := newHub(seeded(3), fakeCharger{})
	s, _ := startSession(t, h)
	waitFrame(t, s, bodies(3))

	send(t, s, Intent{Type: IntentClick, ID: 2})
	f := waitFrame(t, s, func(f models.Frame) bool { return f.Expanded != nil })
	assert.Equal(t, int64(2), *f.Expanded)
	for _, b := range f.Bodies {
		assert.Equal(t, b.ID == 2, b.Paused)
	}

	send(t, s, Intent{Type: IntentOutside})
	f = waitFrame(t, s, func(f models.Frame) bool { return f.Expanded == nil })
	for _, b := range f.Bodies {
		assert.False(t, b.Paused)
	}
}

func TestSession_VoteFlow(t *testing.T) {
	h := newHub(seeded(1), fakeCharger{})
	s, _ := startSession(t, h)
	waitFrame(t, s, bodies(1))

	send(t, s, Intent{Type: IntentClick, ID: 1})
	send(t, s, Intent{Type: IntentVote, ID: 1})

	f := waitFrame(t, s, func(f models.Frame) bool { return f.Modal.State == "showing_proof" })
	require.NotNil(t, f.Modal.Charge)
	assert.Equal(t, "lnbc", f.Modal.Charge.Invoice)
	assert.Equal(t, int64(1000), f.Modal.Charge.Amount)
	assert.Equal(t, int64(1), f.Modal.IdeaID)

	send(t, s, Intent{Type: IntentEscape})
	f = waitFrame(t, s, func(f models.Frame) bool { return f.Modal.State == "closed" })
	require.NotNil(t, f.Expanded, "closing the modal keeps the body expanded")
}

func TestSession_VoteFailure(t *testing.T) {
	h := newHub(seeded(1), fakeCharger{err: errors.New("api down")})
	s, _ := startSession(t, h)
	waitFrame(t, s, bodies(1))

	send(t, s, Intent{Type: IntentClick, ID: 1})
	send(t, s, Intent{Type: IntentVote, ID: 1})

	f := waitFrame(t, s, func(f models.Frame) bool { return f.Modal.State == "showing_error" })
	assert.Equal(t, board.MsgChargeFailed, f.Modal.Error)
}

func TestSession_Submit(t *testing.T) {
	store := seeded(1)
	h := newHub(store, fakeCharger{})
	s, _ := startSession(t, h)
	waitFrame(t, s, bodies(1))

	send(t, s, Intent{Type: IntentOpenForm})
	waitFrame(t, s, func(f models.Frame) bool { return f.FormOpen })

	send(t, s, Intent{Type: IntentSubmit, Idea: &models.CreateIdeaRequest{Headline: "  Lightning tips  "}})
	f := waitFrame(t, s, bodies(2))
	assert.False(t, f.FormOpen)
	assert.Equal(t, "Lightning tips", f.Bodies[1].Headline)

	ideas, _ := store.ListIdeas(context.Background())
	assert.Len(t, ideas, 2)
}

func TestSession_SubmitRejected(t *testing.T) {
	tests := []struct {
		name    string
		idea    models.CreateIdeaRequest
		failNew bool
		want    string
	}{
		{"blank headline", models.CreateIdeaRequest{Headline: "   "}, false, board.MsgInvalidIdea},
		{"headline too long", models.CreateIdeaRequest{Headline: strings.Repeat("x", 121)}, false, board.MsgInvalidIdea},
		{"store failure", models.CreateIdeaRequest{Headline: "fine"}, true, board.MsgSubmitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seeded(1)
			store.failNew = tt.failNew
			h := newHub(store, fakeCharger{})
			s, _ := startSession(t, h)
			waitFrame(t, s, bodies(1))

			send(t, s, Intent{Type: IntentOpenForm})
			idea := tt.idea
			send(t, s, Intent{Type: IntentSubmit, Idea: &idea})

			f := waitFrame(t, s, func(f models.Frame) bool { return f.Error != "" })
			assert.Equal(t, tt.want, f.Error)
			assert.True(t, f.FormOpen)
			assert.Len(t, f.Bodies, 1)
		})
	}
}

func TestHub_RunBroadcastsChanges(t *testing.T) {
	h := newHub(seeded(3), fakeCharger{})
	feed := &fakeFeed{ch: make(chan models.ChangeEvent, 4)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx, feed)

	a, _ := startSession(t, h)
	b, _ := startSession(t, h)
	waitFrame(t, a, bodies(3))
	waitFrame(t, b, bodies(3))

	feed.ch <- models.ChangeEvent{Type: models.EventInsert, Record: models.Idea{ID: 4, Headline: "X"}}
	waitFrame(t, a, bodies(4))
	waitFrame(t, b, bodies(4))

	feed.ch <- models.ChangeEvent{Type: models.EventUpdate, Record: models.Idea{ID: 4, Headline: "X", Votes: 3}}
	waitFrame(t, a, func(f models.Frame) bool { return len(f.Bodies) == 4 && f.Bodies[3].Votes == 3 })

	feed.ch <- models.ChangeEvent{Type: models.EventDelete, Old: models.Idea{ID: 1}}
	waitFrame(t, b, bodies(3))
}

func TestHub_FeedResyncRequest(t *testing.T) {
	store := seeded(2)
	h := newHub(store, fakeCharger{})
	feed := &fakeFeed{ch: make(chan models.ChangeEvent, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx, feed)

	s, _ := startSession(t, h)
	waitFrame(t, s, bodies(2))

	store.mu.Lock()
	store.ideas = store.ideas[:1]
	store.mu.Unlock()

	feed.ch <- models.ChangeEvent{Type: models.EventSync}
	waitFrame(t, s, bodies(1))
}

func TestHub_RunReportsClosedFeed(t *testing.T) {
	h := newHub(seeded(0), fakeCharger{})
	feed := &fakeFeed{ch: make(chan models.ChangeEvent)}
	close(feed.ch)

	assert.ErrorIs(t, h.Run(context.Background(), feed), ErrFeedClosed)
}

func TestSession_LoadFailureRecoversOnResync(t *testing.T) {
	store := seeded(2)
	store.setListErr(errors.New("db down"))
	h := newHub(store, fakeCharger{})
	s, _ := startSession(t, h)

	f := waitFrame(t, s, func(f models.Frame) bool { return f.Error != "" })
	assert.Equal(t, board.MsgLoadFailed, f.Error)
	assert.Empty(t, f.Bodies)

	store.setListErr(nil)
	require.NoError(t, h.Resync(context.Background()))

	f = waitFrame(t, s, bodies(2))
	assert.Empty(t, f.Error)
}

func TestSession_CloseUnregisters(t *testing.T) {
	h := newHub(seeded(1), fakeCharger{})
	s, cancel := startSession(t, h)
	waitFrame(t, s, bodies(1))

	cancel()
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	for range s.Frames() {
	}
	assert.ErrorIs(t, s.Send(context.Background(), Intent{Type: IntentEscape}), ErrSessionClosed)
}

func TestHub_SetTuning(t *testing.T) {
	h := newHub(seeded(1), fakeCharger{})
	s, _ := startSession(t, h)
	waitFrame(t, s, bodies(1))

	tuning := motion.DefaultTuning()
	tuning.ExpandedRadius = 200
	h.SetTuning(tuning)

	send(t, s, Intent{Type: IntentClick, ID: 1})
	waitFrame(t, s, func(f models.Frame) bool {
		return f.Expanded != nil && f.Bodies[0].Radius == 200
	})
}

func TestServer_WebSocket(t *testing.T) {
	h := newHub(seeded(2), fakeCharger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(NewServer(ctx, h, nil, zap.NewNop()).HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, MessageSession, hello.Type)
	assert.NotEmpty(t, hello.Data["id"])

	readFrame := func(pred func(models.Frame) bool) models.Frame {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		for {
			var msg struct {
				Type string       `json:"type"`
				Data models.Frame `json:"data"`
			}
			require.NoError(t, conn.ReadJSON(&msg))
			if msg.Type == MessageFrame && pred(msg.Data) {
				return msg.Data
			}
		}
	}

	readFrame(bodies(2))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteJSON(Intent{Type: IntentClick, ID: 1}))
	f := readFrame(func(f models.Frame) bool { return f.Expanded != nil })
	assert.Equal(t, int64(1), *f.Expanded)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
