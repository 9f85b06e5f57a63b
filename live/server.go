// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Intents are tiny; a submitted idea is the largest
	maxMessageSize = 16 * 1024
)

// Message types sent to the viewer.
const (
	MessageSession = "session"
	MessageFrame   = "frame"
)

// Envelope wraps every server message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Server upgrades viewer connections and runs one session per connection.
type Server struct {
	base     context.Context
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer ties every session to base; cancelling it ends all sessions.
func NewServer(base context.Context, hub *Hub, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *Server {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Server{
		base: base,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// HandleWebSocket handles GET /ws. The session lives until either side
// closes the connection.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}

	// The request context ends when the handler returns, which happens
	// right away for hijacked connections.
	ctx, cancel := context.WithCancel(s.base)
	session := s.hub.Open()
	logger := s.logger.With(zap.String("session", session.ID()))
	logger.Info("viewer connected", zap.String("remote", r.RemoteAddr))

	go session.Run(ctx)
	go s.writePump(conn, session, cancel, logger)
	go s.readPump(ctx, conn, session, cancel, logger)
}

// readPump turns text messages into intents. Malformed messages are skipped.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, session *Session, cancel context.CancelFunc, logger *zap.Logger) {
	defer func() {
		cancel()
		conn.Close()
		logger.Info("viewer disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var in Intent
		if err := json.Unmarshal(message, &in); err != nil {
			logger.Debug("malformed intent", zap.Error(err))
			continue
		}
		if err := session.Send(ctx, in); err != nil {
			return
		}
	}
}

// writePump sends the session greeting, then frames, with periodic pings.
func (s *Server) writePump(conn *websocket.Conn, session *Session, cancel context.CancelFunc, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Envelope{Type: MessageSession, Data: map[string]string{"id": session.ID()}}); err != nil {
		logger.Warn("failed to write greeting", zap.Error(err))
		return
	}

	for {
		select {
		case frame, ok := <-session.Frames():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(Envelope{Type: MessageFrame, Data: frame}); err != nil {
				logger.Debug("failed to write frame", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
