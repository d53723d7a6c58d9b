package match

import (
	"time"

	"github.com/park285/chess-arena/internal/rules"
)

// Color identifies a seat.
type Color = rules.Color

const (
	White = rules.White
	Black = rules.Black
)

// Status represents a match lifecycle state. Transitions only move
// forward: waiting -> active -> complete.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusActive   Status = "ACTIVE"
	StatusComplete Status = "COMPLETE"
)

// Outcome is populated once a match completes. Winner is empty for
// draws.
type Outcome struct {
	Method rules.Method `json:"method"`
	Winner Color        `json:"winner,omitempty"`
}

// HalfMove is one applied move; history records half-moves in play
// order.
type HalfMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Piece     string `json:"piece"`
	Color     Color  `json:"color"`
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
}

// Snapshot is the serializable state of a match at a point in time.
type Snapshot struct {
	ID         string     `json:"id"`
	FEN        string     `json:"fen"`
	Turn       Color      `json:"turn"`
	Status     Status     `json:"status"`
	WhiteID    string     `json:"white_id,omitempty"`
	BlackID    string     `json:"black_id,omitempty"`
	Spectators []string   `json:"spectators,omitempty"`
	History    []HalfMove `json:"history"`
	Outcome    *Outcome   `json:"outcome,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrMatchExists     staticErr = "match already exists"
	ErrMatchNotFound   staticErr = "match not found"
	ErrNotAParticipant staticErr = "not a participant"
	ErrGameNotActive   staticErr = "game not active"
	ErrOutOfTurn       staticErr = "not your turn"
)

// ErrIllegalMove is the legality engine's rejection, re-exported so
// callers match on one package.
const ErrIllegalMove = rules.ErrIllegalMove
