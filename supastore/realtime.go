// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package supastore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/models"
)

const (
	realtimeTopic = "realtime:public:" + ideasTable
	writeWait     = 10 * time.Second
	feedBuffer    = 64
)

type phxMessage struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	Ref     string `json:"ref"`
	JoinRef string `json:"join_ref,omitempty"`
}

// Realtime subscribes to row changes of the ideas table over the hosted
// database's Phoenix channel websocket. A dropped connection is redialed
// with backoff; after a reconnect a SYNC event without a snapshot is emitted
// because changes made in between are lost.
type Realtime struct {
	url    string
	logger *zap.Logger
	dialer *websocket.Dialer

	heartbeat  time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration

	ref atomic.Uint64
}

type RealtimeOption func(*Realtime)

func WithHeartbeat(d time.Duration) RealtimeOption {
	return func(r *Realtime) { r.heartbeat = d }
}

func WithBackoff(lo, hi time.Duration) RealtimeOption {
	return func(r *Realtime) {
		r.minBackoff = lo
		r.maxBackoff = hi
	}
}

func NewRealtime(supabaseURL, apiKey string, logger *zap.Logger, opts ...RealtimeOption) *Realtime {
	wsURL := strings.TrimSuffix(supabaseURL, "/")
	switch {
	case strings.HasPrefix(wsURL, "https"):
		wsURL = "wss" + strings.TrimPrefix(wsURL, "https")
	case strings.HasPrefix(wsURL, "http"):
		wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	}
	wsURL += "/realtime/v1/websocket?apikey=" + url.QueryEscape(apiKey) + "&vsn=1.0.0"

	r := &Realtime{
		url:        wsURL,
		logger:     logger,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		heartbeat:  30 * time.Second,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe dials once synchronously so a bad URL or key fails fast, then
// keeps the subscription alive until ctx ends.
func (r *Realtime) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial: %w", err)
	}

	out := make(chan models.ChangeEvent, feedBuffer)
	go r.run(ctx, conn, out)
	return out, nil
}

func (r *Realtime) run(ctx context.Context, conn *websocket.Conn, out chan<- models.ChangeEvent) {
	defer close(out)

	resync := false
	for {
		err := r.session(ctx, conn, out, resync)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("realtime connection lost", zap.Error(err))

		conn = r.redial(ctx)
		if conn == nil {
			return
		}
		resync = true
	}
}

func (r *Realtime) redial(ctx context.Context) *websocket.Conn {
	backoff := r.minBackoff
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
		if err == nil {
			r.logger.Info("realtime reconnected")
			return conn
		}
		r.logger.Warn("realtime redial failed", zap.Error(err), zap.Duration("backoff", backoff))

		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

// session joins the ideas topic and pumps messages until the connection or
// ctx ends.
func (r *Realtime) session(ctx context.Context, conn *websocket.Conn, out chan<- models.ChangeEvent, resync bool) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wmu sync.Mutex
	write := func(msg phxMessage) error {
		wmu.Lock()
		defer wmu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	joinRef := r.nextRef()
	join := phxMessage{
		Topic: realtimeTopic,
		Event: "phx_join",
		Payload: map[string]any{
			"config": map[string]any{
				"postgres_changes": []map[string]string{
					{"event": "*", "schema": "public", "table": ideasTable},
				},
			},
		},
		Ref:     joinRef,
		JoinRef: joinRef,
	}
	if err := write(join); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	go func() {
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-sctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				hb := phxMessage{Topic: "phoenix", Event: "heartbeat", Payload: map[string]any{}, Ref: r.nextRef()}
				if err := write(hb); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	if resync {
		if !emit(sctx, out, models.ChangeEvent{Type: models.EventSync}) {
			return sctx.Err()
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, ok, err := decodeMessage(msg)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !emit(sctx, out, ev) {
			return sctx.Err()
		}
	}
}

func (r *Realtime) nextRef() string {
	return strconv.FormatUint(r.ref.Add(1), 10)
}

func emit(ctx context.Context, out chan<- models.ChangeEvent, ev models.ChangeEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// decodeMessage extracts a change event from one channel message. It reports
// ok=false for replies, heartbeats and other topics, and an error when the
// server rejects or closes the subscription.
func decodeMessage(msg []byte) (models.ChangeEvent, bool, error) {
	if !gjson.ValidBytes(msg) {
		return models.ChangeEvent{}, false, nil
	}
	parsed := gjson.ParseBytes(msg)
	if parsed.Get("topic").String() != realtimeTopic {
		return models.ChangeEvent{}, false, nil
	}

	event := parsed.Get("event").String()
	switch event {
	case "phx_reply":
		if parsed.Get("payload.status").String() == "error" {
			return models.ChangeEvent{}, false, fmt.Errorf("join rejected: %s", parsed.Get("payload.response").Raw)
		}
		return models.ChangeEvent{}, false, nil
	case "phx_error", "phx_close":
		return models.ChangeEvent{}, false, fmt.Errorf("channel %s", strings.TrimPrefix(event, "phx_"))
	case "postgres_changes":
		return decodeChange(parsed.Get("payload.data"))
	case models.EventInsert, models.EventUpdate, models.EventDelete:
		// Older servers put the change directly in the payload.
		return decodeChange(parsed.Get("payload"))
	}
	return models.ChangeEvent{}, false, nil
}

func decodeChange(data gjson.Result) (models.ChangeEvent, bool, error) {
	typ := data.Get("type").String()
	switch typ {
	case models.EventInsert, models.EventUpdate, models.EventDelete:
	default:
		return models.ChangeEvent{}, false, nil
	}

	ev := models.ChangeEvent{Type: typ}
	if rec := data.Get("record"); rec.IsObject() {
		var row models.IdeaRow
		if err := json.Unmarshal([]byte(rec.Raw), &row); err == nil {
			ev.Record = row.ToIdea()
		}
	}
	if old := data.Get("old_record"); old.IsObject() {
		var row models.IdeaRow
		if err := json.Unmarshal([]byte(old.Raw), &row); err == nil {
			ev.Old = row.ToIdea()
		}
	}
	return ev, true, nil
}
