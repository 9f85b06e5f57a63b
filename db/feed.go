// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/models"
)

const feedBuffer = 64

// LocalFeed fans out change events published in this process. Slow
// subscribers lose events rather than block the writer.
type LocalFeed struct {
	mu   sync.Mutex
	subs map[chan models.ChangeEvent]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[chan models.ChangeEvent]struct{})}
}

// Subscribe returns a channel of events that is closed when ctx ends.
func (f *LocalFeed) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	ch := make(chan models.ChangeEvent, feedBuffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()

	return ch, nil
}

func (f *LocalFeed) Publish(ev models.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// RowLoader reads one idea by id. *Store implements it.
type RowLoader interface {
	GetIdea(ctx context.Context, id int64) (models.Idea, error)
}

// PGFeed listens on the postgres NOTIFY channel filled by the ideas trigger.
// Notifications carry only the operation and id; inserted and updated rows
// are re-read through rows.
type PGFeed struct {
	dsn    string
	rows   RowLoader
	logger *zap.Logger
}

func NewPGFeed(dsn string, rows RowLoader, logger *zap.Logger) *PGFeed {
	return &PGFeed{dsn: dsn, rows: rows, logger: logger}
}

// Subscribe opens a dedicated listener connection. After the listener
// reconnects a SYNC event without a snapshot is emitted, since notifications
// sent while disconnected are lost.
func (f *PGFeed) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	listener := pq.NewListener(f.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			f.logger.Warn("ideas listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	out := make(chan models.ChangeEvent, feedBuffer)
	go func() {
		defer close(out)
		defer listener.Close()

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				ev := models.ChangeEvent{Type: models.EventSync}
				if n != nil {
					decoded, err := DecodeNotification([]byte(n.Extra))
					if err != nil {
						f.logger.Warn("dropping malformed notification", zap.Error(err))
						continue
					}
					var ok bool
					if ev, ok = f.resolve(ctx, decoded); !ok {
						continue
					}
				} else {
					f.logger.Info("ideas listener reconnected")
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ping.C:
				go listener.Ping()
			}
		}
	}()

	return out, nil
}

// resolve fills in the row of an INSERT or UPDATE notification. A row that
// is already gone is skipped; a failed read asks consumers to refetch.
func (f *PGFeed) resolve(ctx context.Context, ev models.ChangeEvent) (models.ChangeEvent, bool) {
	if ev.Type == models.EventDelete {
		return ev, true
	}

	idea, err := f.rows.GetIdea(ctx, ev.Record.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		return models.ChangeEvent{}, false
	case err != nil:
		if ctx.Err() != nil {
			return models.ChangeEvent{}, false
		}
		f.logger.Warn("failed to read notified idea", zap.Int64("idea_id", ev.Record.ID), zap.Error(err))
		return models.ChangeEvent{Type: models.EventSync}, true
	}
	ev.Record = idea
	return ev, true
}

type notification struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// DecodeNotification turns a trigger payload into a change event that only
// carries the id: Record.ID for INSERT and UPDATE, Old.ID for DELETE.
func DecodeNotification(payload []byte) (models.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.ID <= 0 {
		return models.ChangeEvent{}, errors.New("decode notification: missing id")
	}

	ev := models.ChangeEvent{Type: n.Type}
	switch n.Type {
	case models.EventInsert, models.EventUpdate:
		ev.Record.ID = n.ID
	case models.EventDelete:
		ev.Old.ID = n.ID
	default:
		return models.ChangeEvent{}, fmt.Errorf("decode notification: unknown type %q", n.Type)
	}
	return ev, nil
}
