package match

import (
	"crypto/rand"
	"math/big"
	"sort"
	"time"

	"github.com/park285/chess-arena/internal/rules"
)

// CoinFlip decides the creator's seat: true seats the creator as white.
// The production flip is uniform; tests inject a fixed one.
type CoinFlip func() bool

// CryptoCoinFlip is the production coin flip, backed by crypto/rand.
func CryptoCoinFlip() bool {
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil {
		return n.Int64() == 0
	}
	// fallback
	return time.Now().UnixNano()&1 == 0
}

// Match owns exactly one game's authoritative state. Its fields are
// mutated only through the operations below; methods are not safe for
// concurrent use, the registry serializes calls per match id.
type Match struct {
	id         string
	game       *rules.Game
	status     Status
	whiteID    string
	blackID    string
	spectators map[string]struct{}
	history    []HalfMove
	outcome    *Outcome
	createdAt  time.Time
	updatedAt  time.Time
}

// New initializes a fresh match with the creator seated on a random
// color and the other seat open.
func New(id, creatorID string, flip CoinFlip) *Match {
	if flip == nil {
		flip = CryptoCoinFlip
	}
	m := &Match{
		id:         id,
		game:       rules.NewGame(),
		status:     StatusWaiting,
		spectators: make(map[string]struct{}),
		createdAt:  time.Now(),
	}
	m.updatedAt = m.createdAt
	if flip() {
		m.whiteID = creatorID
	} else {
		m.blackID = creatorID
	}
	return m
}

// SeatAssignment is the result of a join.
type SeatAssignment struct {
	Color     Color // empty when Spectator
	Spectator bool
	Started   bool // this join filled the second seat
	Rejoined  bool // identity already held a seat
}

// Join seats the joiner on the open seat, transitioning the match to
// active when both seats are filled. Rejoining an already-held seat is
// a no-op, and a joiner arriving after both seats are taken becomes a
// spectator.
func (m *Match) Join(joinerID string) SeatAssignment {
	if c := m.SeatColor(joinerID); c != "" {
		return SeatAssignment{Color: c, Rejoined: true}
	}
	if m.whiteID != "" && m.blackID != "" {
		m.spectators[joinerID] = struct{}{}
		m.touch()
		return SeatAssignment{Spectator: true}
	}
	var seated Color
	if m.whiteID == "" {
		m.whiteID = joinerID
		seated = White
	} else {
		m.blackID = joinerID
		seated = Black
	}
	started := false
	if m.whiteID != "" && m.blackID != "" && m.status == StatusWaiting {
		m.status = StatusActive
		started = true
	}
	m.touch()
	return SeatAssignment{Color: seated, Started: started}
}

// MoveResult reports a successfully applied move.
type MoveResult struct {
	Move    HalfMove
	IsCheck bool
	Ended   bool
}

// Move validates and applies one half-move for the given participant.
// Validation happens before any mutation: on error the position,
// history and status are unchanged.
func (m *Match) Move(moverID, from, to, promotion string) (MoveResult, error) {
	color := m.SeatColor(moverID)
	if color == "" {
		return MoveResult{}, ErrNotAParticipant
	}
	if m.status != StatusActive {
		return MoveResult{}, ErrGameNotActive
	}
	if color != m.game.SideToMove() {
		return MoveResult{}, ErrOutOfTurn
	}

	applied, err := m.game.Apply(from, to, promotion)
	if err != nil {
		return MoveResult{}, err
	}

	half := HalfMove{
		From:      from,
		To:        to,
		Promotion: promotionFromUCI(applied.UCI),
		Piece:     applied.Piece,
		Color:     applied.Color,
		UCI:       applied.UCI,
		SAN:       applied.SAN,
	}
	m.history = append(m.history, half)
	m.touch()

	ended := false
	if res := m.game.EvaluateEnd(); res != nil {
		m.status = StatusComplete
		m.outcome = &Outcome{Method: res.Method, Winner: res.Winner}
		ended = true
	}
	return MoveResult{Move: half, IsCheck: applied.IsCheck, Ended: ended}, nil
}

// Resign completes the match in the opponent's favor.
func (m *Match) Resign(resignerID string) (*Outcome, error) {
	color := m.SeatColor(resignerID)
	if color == "" {
		return nil, ErrNotAParticipant
	}
	if m.status != StatusActive {
		return nil, ErrGameNotActive
	}
	m.status = StatusComplete
	m.outcome = &Outcome{Method: rules.MethodResignation, Winner: color.Opponent()}
	m.touch()
	return m.outcome, nil
}

func (m *Match) ID() string        { return m.id }
func (m *Match) Status() Status    { return m.status }
func (m *Match) FEN() string       { return m.game.FEN() }
func (m *Match) Turn() Color       { return m.game.SideToMove() }
func (m *Match) WhiteID() string   { return m.whiteID }
func (m *Match) BlackID() string   { return m.blackID }
func (m *Match) Outcome() *Outcome { return m.outcome }

// PGN renders the applied moves in portable game notation.
func (m *Match) PGN() string { return m.game.PGN() }

// LastActivity is the time of the latest accepted mutation.
func (m *Match) LastActivity() time.Time { return m.updatedAt }

// SeatColor returns the color seated by the identity, or "" when it
// holds no seat.
func (m *Match) SeatColor(playerID string) Color {
	if playerID == "" {
		return ""
	}
	if m.whiteID == playerID {
		return White
	}
	if m.blackID == playerID {
		return Black
	}
	return ""
}

// History returns the applied half-moves in play order.
func (m *Match) History() []HalfMove {
	return append([]HalfMove(nil), m.history...)
}

// Snapshot captures the current committed state for broadcast and
// mirroring.
func (m *Match) Snapshot() Snapshot {
	spectators := make([]string, 0, len(m.spectators))
	for id := range m.spectators {
		spectators = append(spectators, id)
	}
	sort.Strings(spectators)

	var outcome *Outcome
	if m.outcome != nil {
		o := *m.outcome
		outcome = &o
	}
	return Snapshot{
		ID:         m.id,
		FEN:        m.game.FEN(),
		Turn:       m.game.SideToMove(),
		Status:     m.status,
		WhiteID:    m.whiteID,
		BlackID:    m.blackID,
		Spectators: spectators,
		History:    m.History(),
		Outcome:    outcome,
		CreatedAt:  m.createdAt,
		UpdatedAt:  m.updatedAt,
	}
}

func (m *Match) touch() { m.updatedAt = time.Now() }

// promotionFromUCI extracts the promotion letter from a 5-character UCI
// move, covering the implicit queen default.
func promotionFromUCI(uci string) string {
	if len(uci) == 5 {
		return uci[4:]
	}
	return ""
}
