package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// InitialFEN is the standard starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Method names the way a finished game ended.
type Method string

const (
	MethodCheckmate            Method = "checkmate"
	MethodStalemate            Method = "stalemate"
	MethodResignation          Method = "resignation"
	MethodThreefoldRepetition  Method = "threefold_repetition"
	MethodInsufficientMaterial Method = "insufficient_material"
	MethodFiftyMoveRule        Method = "fifty_move_rule"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

// ErrIllegalMove is returned when a move does not conform to chess rules
// for the side to move.
const ErrIllegalMove staticErr = "illegal move"

// Game wraps the rules library behind a pure, deterministic surface.
// It carries no I/O and no locking; callers serialize access.
type Game struct {
	g *nchess.Game
}

// NewGame returns a game at the standard starting position.
func NewGame() *Game { return &Game{g: nchess.NewGame()} }

// Replay rebuilds a game by applying stored UCI moves from the starting
// position. Replaying the history of any finished match reproduces its
// final position exactly.
func Replay(movesUCI []string) (*Game, error) {
	g := nchess.NewGame()
	for _, mv := range movesUCI {
		if err := g.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay %q: %w", mv, err)
		}
	}
	return &Game{g: g}, nil
}

func (x *Game) FEN() string { return x.g.FEN() }

// PGN renders the game in portable game notation.
func (x *Game) PGN() string { return x.g.String() }

func (x *Game) SideToMove() Color { return colorFrom(x.g.Position().Turn()) }

// MovesUCI returns the applied moves in play order.
func (x *Game) MovesUCI() []string {
	moves := x.g.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.String())
	}
	return out
}

// Applied describes a successfully applied half-move.
type Applied struct {
	UCI     string
	SAN     string
	Piece   string // upper-case piece letter: P N B R Q K
	Color   Color
	IsCheck bool
}

// Apply validates and applies a move given as origin/destination squares
// plus an optional promotion piece letter. A pawn landing on the back
// rank with no explicit promotion piece promotes to a queen. On failure
// the game is unchanged and the error wraps ErrIllegalMove.
func (x *Game) Apply(from, to, promotion string) (Applied, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	promotion = strings.ToLower(strings.TrimSpace(promotion))
	uci := from + to + promotion

	pos := x.g.Position()
	notation := nchess.UCINotation{}
	mv, err := notation.Decode(pos, uci)
	if err != nil && promotion == "" && backRank(to) {
		uci = from + to + "q"
		mv, err = notation.Decode(pos, uci)
	}
	if err != nil {
		return Applied{}, fmt.Errorf("%w: %s%s%s", ErrIllegalMove, from, to, promotion)
	}

	mover := colorFrom(pos.Turn())
	piece := pieceLetter(pos.Board().Piece(mv.S1()))
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := x.g.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return Applied{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}

	return Applied{
		UCI:     uci,
		SAN:     san,
		Piece:   piece,
		Color:   mover,
		IsCheck: mv.HasTag(nchess.Check),
	}, nil
}

// Result is the terminal result of a game, when one exists.
type Result struct {
	Method Method
	Winner Color // empty for draws
}

// EvaluateEnd reports the game's terminal result, claiming eligible
// draws. Conditions are checked in a fixed order: checkmate, stalemate,
// threefold repetition, insufficient material, fifty-move rule, then any
// remaining automatic draw. Nil means the game continues.
func (x *Game) EvaluateEnd() *Result {
	switch {
	case x.IsCheckmate():
		winner := Black
		if x.g.Outcome() == nchess.WhiteWon {
			winner = White
		}
		return &Result{Method: MethodCheckmate, Winner: winner}
	case x.IsStalemate():
		return &Result{Method: MethodStalemate}
	case x.IsThreefoldRepetition():
		_ = x.g.Draw(nchess.ThreefoldRepetition)
		return &Result{Method: MethodThreefoldRepetition}
	case x.IsInsufficientMaterial():
		return &Result{Method: MethodInsufficientMaterial}
	case x.IsFiftyMoveRule():
		_ = x.g.Draw(nchess.FiftyMoveRule)
		return &Result{Method: MethodFiftyMoveRule}
	case x.g.Outcome() == nchess.Draw:
		return &Result{Method: methodFrom(x.g.Method())}
	}
	return nil
}

func (x *Game) IsCheckmate() bool { return x.g.Method() == nchess.Checkmate }
func (x *Game) IsStalemate() bool { return x.g.Method() == nchess.Stalemate }

func (x *Game) IsInsufficientMaterial() bool {
	return x.g.Method() == nchess.InsufficientMaterial
}

func (x *Game) IsThreefoldRepetition() bool { return x.eligibleDraw(nchess.ThreefoldRepetition) }
func (x *Game) IsFiftyMoveRule() bool       { return x.eligibleDraw(nchess.FiftyMoveRule) }

// IsDraw is the logical OR of every draw condition.
func (x *Game) IsDraw() bool {
	if x.IsStalemate() || x.IsInsufficientMaterial() || x.IsThreefoldRepetition() || x.IsFiftyMoveRule() {
		return true
	}
	return x.g.Outcome() == nchess.Draw
}

func (x *Game) eligibleDraw(m nchess.Method) bool {
	for _, d := range x.g.EligibleDraws() {
		if d == m {
			return true
		}
	}
	return false
}

func backRank(sq string) bool {
	return strings.HasSuffix(sq, "1") || strings.HasSuffix(sq, "8")
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}

func methodFrom(m nchess.Method) Method {
	switch m {
	case nchess.Checkmate:
		return MethodCheckmate
	case nchess.Stalemate:
		return MethodStalemate
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return MethodThreefoldRepetition
	case nchess.InsufficientMaterial:
		return MethodInsufficientMaterial
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return MethodFiftyMoveRule
	default:
		return Method(strings.ToLower(m.String()))
	}
}

func pieceLetter(p nchess.Piece) string {
	switch p.Type() {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	case nchess.Pawn:
		return "P"
	default:
		return ""
	}
}
