// Package gateway is the real-time edge of the arena: it accepts
// websocket connections, routes intents to the match registry, and
// fans committed state back out to every connection in the match's
// room. It is the only package that talks to client connections.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chess-arena/internal/match"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/registry"
	"github.com/park285/chess-arena/pkg/protocol"
)

type Gateway struct {
	reg     *registry.Registry
	origins []string

	mu       sync.RWMutex
	sessions map[*session]struct{}
	rooms    map[string]map[*session]struct{}
}

func New(reg *registry.Registry, allowedOrigins []string) *Gateway {
	return &Gateway{
		reg:      reg,
		origins:  allowedOrigins,
		sessions: make(map[*session]struct{}),
		rooms:    make(map[string]map[*session]struct{}),
	}
}

// HandleWS upgrades the request and runs the session until the peer
// goes away. The participant identity comes from the player query
// parameter; without it the connection is refused.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.URL.Query().Get("player"))

	opts := &websocket.AcceptOptions{OriginPatterns: g.origins}
	if len(g.origins) == 0 {
		opts = &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	if playerID == "" {
		_ = conn.Close(websocket.StatusPolicyViolation, "player identity required")
		return
	}

	s := newSession(uuid.NewString(), playerID, conn)
	g.mu.Lock()
	g.sessions[s] = struct{}{}
	g.mu.Unlock()
	obslog.L().Info("session_open",
		zap.String("session_id", s.id),
		zap.String("player_id", s.playerID),
	)

	go s.writeLoop(r.Context())
	g.readLoop(r.Context(), s)

	g.detach(s)
	obslog.L().Info("session_close",
		zap.String("session_id", s.id),
		zap.String("player_id", s.playerID),
	)
}

func (g *Gateway) readLoop(ctx context.Context, s *session) {
	for {
		_, raw, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		var intent protocol.Intent
		if err := json.Unmarshal(raw, &intent); err != nil {
			g.sendError(s, "", protocol.CodeBadRequest, "malformed frame")
			continue
		}
		g.dispatch(s, intent)
	}
}

func (g *Gateway) dispatch(s *session, intent protocol.Intent) {
	switch intent.Type {
	case protocol.TypeCreateGame:
		g.handleCreate(s, intent)
	case protocol.TypeJoinGame:
		g.handleJoin(s, intent)
	case protocol.TypeMakeMove:
		g.handleMove(s, intent)
	case protocol.TypeResignGame:
		g.handleResign(s, intent)
	default:
		g.sendError(s, intent.MatchID, protocol.CodeBadRequest, "unknown intent: "+intent.Type)
	}
}

func (g *Gateway) handleCreate(s *session, intent protocol.Intent) {
	snap, created := g.reg.GetOrCreate(intent.MatchID, s.playerID)
	if !created {
		g.sendError(s, intent.MatchID, protocol.CodeMatchExists, "match already exists")
		return
	}
	g.subscribe(snap.ID, s)

	color := protocol.ColorBlack
	if snap.WhiteID == s.playerID {
		color = protocol.ColorWhite
	}
	g.sendTo(s, protocol.TypeGameCreated, protocol.GameCreated{
		MatchID:       snap.ID,
		AssignedColor: color,
		FEN:           snap.FEN,
		Status:        string(snap.Status),
	})
}

func (g *Gateway) handleJoin(s *session, intent protocol.Intent) {
	// subscribe before the join commits so a move broadcast in the
	// same window still reaches the joiner
	g.subscribe(intent.MatchID, s)
	seat, snap, err := g.reg.Join(intent.MatchID, s.playerID)
	if err != nil {
		g.unsubscribe(intent.MatchID, s)
		g.sendError(s, intent.MatchID, errorCode(err), err.Error())
		return
	}

	color := protocol.ColorSpectator
	if !seat.Spectator {
		color = string(seat.Color)
	}
	g.sendTo(s, protocol.TypeGameJoined, protocol.GameJoined{
		MatchID: snap.ID,
		Color:   color,
		FEN:     snap.FEN,
		Status:  string(snap.Status),
		Turn:    string(snap.Turn),
	})
	if seat.Started {
		g.broadcast(snap.ID, protocol.TypeGameStarted, protocol.GameStarted{
			MatchID: snap.ID,
			FEN:     snap.FEN,
			Status:  string(snap.Status),
			Turn:    string(snap.Turn),
			WhiteID: snap.WhiteID,
			BlackID: snap.BlackID,
		})
	}
}

func (g *Gateway) handleMove(s *session, intent protocol.Intent) {
	res, snap, err := g.reg.Move(intent.MatchID, s.playerID, intent.From, intent.To, intent.Promotion)
	if err != nil {
		g.sendError(s, intent.MatchID, errorCode(err), err.Error())
		return
	}
	g.broadcast(snap.ID, protocol.TypeMoveMade, protocol.MoveMade{
		MatchID:    snap.ID,
		FEN:        snap.FEN,
		Turn:       string(snap.Turn),
		LastMove:   wireMove(res.Move),
		IsCheck:    res.IsCheck,
		IsGameOver: res.Ended,
		Status:     string(snap.Status),
		Outcome:    wireOutcome(snap.Outcome),
	})
	if res.Ended {
		g.broadcast(snap.ID, protocol.TypeGameOver, protocol.GameOver{
			MatchID: snap.ID,
			Outcome: *wireOutcome(snap.Outcome),
			FEN:     snap.FEN,
		})
	}
}

func (g *Gateway) handleResign(s *session, intent protocol.Intent) {
	_, snap, err := g.reg.Resign(intent.MatchID, s.playerID)
	if err != nil {
		g.sendError(s, intent.MatchID, errorCode(err), err.Error())
		return
	}
	g.broadcast(snap.ID, protocol.TypeGameOver, protocol.GameOver{
		MatchID: snap.ID,
		Outcome: *wireOutcome(snap.Outcome),
		FEN:     snap.FEN,
	})
}

// subscribe adds the session to a match room. Rooms are gateway-local:
// dropping out of a room never touches match state.
func (g *Gateway) subscribe(matchID string, s *session) {
	g.mu.Lock()
	room := g.rooms[matchID]
	if room == nil {
		room = make(map[*session]struct{})
		g.rooms[matchID] = room
	}
	room[s] = struct{}{}
	g.mu.Unlock()
}

// unsubscribe backs a session out of one room, dropping the room when
// it empties.
func (g *Gateway) unsubscribe(matchID string, s *session) {
	g.mu.Lock()
	if room := g.rooms[matchID]; room != nil {
		delete(room, s)
		if len(room) == 0 {
			delete(g.rooms, matchID)
		}
	}
	g.mu.Unlock()
}

// detach removes the session from every room and closes its send
// channel. A seated player's disconnect does not forfeit the match;
// they may reconnect and rejoin.
func (g *Gateway) detach(s *session) {
	g.mu.Lock()
	delete(g.sessions, s)
	for id, room := range g.rooms {
		delete(room, s)
		if len(room) == 0 {
			delete(g.rooms, id)
		}
	}
	g.mu.Unlock()
	close(s.send)
}

func (g *Gateway) broadcast(matchID, eventType string, payload any) {
	ev, err := protocol.NewEvent(eventType, payload)
	if err != nil {
		return
	}
	g.mu.RLock()
	for s := range g.rooms[matchID] {
		s.deliver(ev)
	}
	g.mu.RUnlock()
}

func (g *Gateway) sendTo(s *session, eventType string, payload any) {
	ev, err := protocol.NewEvent(eventType, payload)
	if err != nil {
		return
	}
	s.deliver(ev)
}

// sendError reports a failed intent to its sender only; the rest of
// the room never sees it.
func (g *Gateway) sendError(s *session, matchID, code, message string) {
	g.sendTo(s, protocol.TypeError, protocol.ErrorPayload{Code: code, Message: message, MatchID: matchID})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		return protocol.CodeMatchNotFound
	case errors.Is(err, match.ErrNotAParticipant):
		return protocol.CodeNotAParticipant
	case errors.Is(err, match.ErrGameNotActive):
		return protocol.CodeGameNotActive
	case errors.Is(err, match.ErrOutOfTurn):
		return protocol.CodeOutOfTurn
	case errors.Is(err, match.ErrIllegalMove):
		return protocol.CodeIllegalMove
	}
	return protocol.CodeBadRequest
}

func wireMove(hm match.HalfMove) protocol.Move {
	return protocol.Move{
		From:      hm.From,
		To:        hm.To,
		Promotion: hm.Promotion,
		Piece:     hm.Piece,
		Color:     string(hm.Color),
		UCI:       hm.UCI,
		SAN:       hm.SAN,
	}
}

func wireOutcome(o *match.Outcome) *protocol.Outcome {
	if o == nil {
		return nil
	}
	return &protocol.Outcome{Method: string(o.Method), Winner: string(o.Winner)}
}
