package gateway

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/pkg/protocol"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
)

// session is one live websocket connection bound to a participant
// identity. All writes go through the send channel; the writer
// goroutine owns the connection for outbound traffic.
type session struct {
	id       string
	playerID string
	conn     *websocket.Conn
	send     chan protocol.Event
}

func newSession(id, playerID string, conn *websocket.Conn) *session {
	return &session{id: id, playerID: playerID, conn: conn, send: make(chan protocol.Event, sendBuffer)}
}

// deliver queues an event without blocking; a session that cannot keep
// up drops frames rather than stalling the room.
func (s *session) deliver(ev protocol.Event) {
	select {
	case s.send <- ev:
	default:
		obslog.L().Warn("session_send_drop",
			zap.String("session_id", s.id),
			zap.String("player_id", s.playerID),
			zap.String("event", ev.Type),
		)
	}
}

// writeLoop drains the send channel and keeps the connection alive
// with periodic pings. Returns when the send channel closes or a
// write fails.
func (s *session) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
	}()
	for {
		select {
		case ev, ok := <-s.send:
			if !ok {
				return
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := s.conn.Write(ctx, websocket.MessageText, raw); err != nil {
				return
			}
		case <-ping.C:
			if err := s.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
