// Package protocol defines the wire format spoken over the arena's
// websocket endpoint. Every frame is a JSON envelope with a type tag;
// inbound intents carry their fields inline, outbound events carry a
// typed payload.
package protocol

import "encoding/json"

// Inbound intent types.
const (
	TypeCreateGame = "createGame"
	TypeJoinGame   = "joinGame"
	TypeMakeMove   = "makeMove"
	TypeResignGame = "resignGame"
)

// Outbound event types.
const (
	TypeGameCreated = "gameCreated"
	TypeGameJoined  = "gameJoined"
	TypeGameStarted = "gameStarted"
	TypeMoveMade    = "moveMade"
	TypeGameOver    = "gameOver"
	TypeError       = "error"
)

// Intent is a client-to-server frame.
type Intent struct {
	Type      string `json:"type"`
	MatchID   string `json:"matchId,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

// Event is a server-to-client frame. Payload decodes into one of the
// payload structs below according to Type.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent wraps a payload struct into a ready-to-send Event.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// Match status values as they appear on the wire. Note the casing:
// status strings are upper-case.
const (
	StatusWaiting  = "WAITING"
	StatusActive   = "ACTIVE"
	StatusComplete = "COMPLETE"
)

// Color values used on the wire; ColorSpectator appears only in
// GameJoined when both seats were already taken.
const (
	ColorWhite     = "white"
	ColorBlack     = "black"
	ColorSpectator = "spectator"
)

// Move describes one applied half-move.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Piece     string `json:"piece"`
	Color     string `json:"color"`
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
}

// Outcome is present only on finished games.
type Outcome struct {
	Method string `json:"method"`
	Winner string `json:"winner,omitempty"`
}

type GameCreated struct {
	MatchID       string `json:"matchId"`
	AssignedColor string `json:"assignedColor"`
	FEN           string `json:"fen"`
	Status        string `json:"status"`
}

type GameJoined struct {
	MatchID string `json:"matchId"`
	Color   string `json:"color"`
	FEN     string `json:"fen"`
	Status  string `json:"status"`
	Turn    string `json:"turn"`
}

type GameStarted struct {
	MatchID string `json:"matchId"`
	FEN     string `json:"fen"`
	Status  string `json:"status"`
	Turn    string `json:"turn"`
	WhiteID string `json:"whiteId"`
	BlackID string `json:"blackId"`
}

type MoveMade struct {
	MatchID    string   `json:"matchId"`
	FEN        string   `json:"fen"`
	Turn       string   `json:"turn"`
	LastMove   Move     `json:"lastMove"`
	IsCheck    bool     `json:"isCheck"`
	IsGameOver bool     `json:"isGameOver"`
	Status     string   `json:"status"`
	Outcome    *Outcome `json:"outcome,omitempty"`
}

type GameOver struct {
	MatchID string  `json:"matchId"`
	Outcome Outcome `json:"outcome"`
	FEN     string  `json:"fen"`
	PGN     string  `json:"pgn,omitempty"`
}
