package rules

import (
	"errors"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func mustApply(t *testing.T, g *Game, from, to, promotion string) Applied {
	t.Helper()
	a, err := g.Apply(from, to, promotion)
	if err != nil {
		t.Fatalf("apply %s%s%s: %v", from, to, promotion, err)
	}
	return a
}

func playUCI(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		mustApply(t, g, mv[:2], mv[2:4], mv[4:])
	}
}

func TestNewGameStartsAtInitialPosition(t *testing.T) {
	g := NewGame()
	if g.FEN() != InitialFEN {
		t.Fatalf("unexpected initial FEN: %s", g.FEN())
	}
	if g.SideToMove() != White {
		t.Fatalf("expected white to move, got %s", g.SideToMove())
	}
}

func TestApplyLegalMove(t *testing.T) {
	g := NewGame()
	a := mustApply(t, g, "e2", "e4", "")
	if a.UCI != "e2e4" {
		t.Fatalf("unexpected uci: %s", a.UCI)
	}
	if a.SAN != "e4" {
		t.Fatalf("unexpected san: %s", a.SAN)
	}
	if a.Piece != "P" || a.Color != White {
		t.Fatalf("unexpected metadata: %+v", a)
	}
	if a.IsCheck {
		t.Fatal("e4 is not check")
	}
	if g.SideToMove() != Black {
		t.Fatalf("expected black to move, got %s", g.SideToMove())
	}
}

func TestApplyIllegalMoveLeavesGameUnchanged(t *testing.T) {
	g := NewGame()
	for _, mv := range [][2]string{
		{"e2", "e6"}, // pawn cannot jump three ranks
		{"e7", "e5"}, // black piece with white to move
		{"b1", "d2"}, // knight to an occupied friendly square
		{"e4", "e5"}, // empty origin square
	} {
		_, err := g.Apply(mv[0], mv[1], "")
		if !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("%s%s: expected ErrIllegalMove, got %v", mv[0], mv[1], err)
		}
	}
	if g.FEN() != InitialFEN {
		t.Fatalf("rejected moves mutated position: %s", g.FEN())
	}
	if len(g.MovesUCI()) != 0 {
		t.Fatalf("rejected moves recorded: %v", g.MovesUCI())
	}
}

func TestFoolsMate(t *testing.T) {
	g := NewGame()
	playUCI(t, g, "f2f3", "e7e5", "g2g4")
	last := mustApply(t, g, "d8", "h4", "")
	if !last.IsCheck {
		t.Fatal("mating move must deliver check")
	}
	res := g.EvaluateEnd()
	if res == nil {
		t.Fatal("expected terminal result")
	}
	if res.Method != MethodCheckmate || res.Winner != Black {
		t.Fatalf("expected black checkmate, got %+v", res)
	}
}

func TestGameContinuesWithoutResult(t *testing.T) {
	g := NewGame()
	playUCI(t, g, "e2e4", "e7e5")
	if res := g.EvaluateEnd(); res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	g := NewGame()
	playUCI(t, g, "a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "h7h6")
	a := mustApply(t, g, "b7", "a8", "")
	if a.UCI != "b7a8q" {
		t.Fatalf("expected queen promotion, got %s", a.UCI)
	}
	if a.Piece != "P" {
		t.Fatalf("expected pawn mover, got %s", a.Piece)
	}
}

func TestExplicitUnderpromotion(t *testing.T) {
	g := NewGame()
	playUCI(t, g, "a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "h7h6")
	a := mustApply(t, g, "b7", "a8", "n")
	if a.UCI != "b7a8n" {
		t.Fatalf("expected knight promotion, got %s", a.UCI)
	}
}

func TestStalemate(t *testing.T) {
	g := NewGame()
	// Sam Loyd's ten-move stalemate
	playUCI(t, g,
		"e2e3", "a7a5", "d1h5", "a8a6", "h5a5", "h7h5", "a5c7", "a6h6",
		"h2h4", "f7f6", "c7d7", "e8f7", "d7b7", "d8d3", "b7b8", "d3h7",
		"b8c8", "f7g6", "c8e6",
	)
	res := g.EvaluateEnd()
	if res == nil {
		t.Fatal("expected terminal result")
	}
	if res.Method != MethodStalemate {
		t.Fatalf("expected stalemate, got %+v", res)
	}
	if res.Winner != "" {
		t.Fatalf("stalemate has no winner, got %s", res.Winner)
	}
}

func TestThreefoldRepetitionIsClaimed(t *testing.T) {
	g := NewGame()
	playUCI(t, g,
		"g1f3", "g8f6", "f3g1", "f6g8",
		"g1f3", "g8f6", "f3g1", "f6g8",
	)
	res := g.EvaluateEnd()
	if res == nil {
		t.Fatal("expected terminal result")
	}
	if res.Method != MethodThreefoldRepetition || res.Winner != "" {
		t.Fatalf("expected threefold draw, got %+v", res)
	}
}

// gameFromFEN builds a game at an arbitrary position, for draw
// conditions that would take a full game to reach from the start.
func gameFromFEN(t *testing.T, fen string) *Game {
	t.Helper()
	opt, err := nchess.FEN(fen)
	if err != nil {
		t.Fatalf("fen %q: %v", fen, err)
	}
	return &Game{g: nchess.NewGame(opt)}
}

func TestInsufficientMaterial(t *testing.T) {
	g := gameFromFEN(t, "8/8/8/4k3/8/8/4K3/8 w - - 0 1")
	if !g.IsInsufficientMaterial() {
		t.Fatal("bare kings must be insufficient material")
	}
	res := g.EvaluateEnd()
	if res == nil {
		t.Fatal("expected terminal result")
	}
	if res.Method != MethodInsufficientMaterial || res.Winner != "" {
		t.Fatalf("expected insufficient-material draw, got %+v", res)
	}
	if !g.IsDraw() {
		t.Fatal("insufficient material must report a draw")
	}
}

func TestFiftyMoveRuleIsClaimed(t *testing.T) {
	g := gameFromFEN(t, "8/8/8/4k3/8/8/4K2R/8 w - - 100 60")
	if !g.IsFiftyMoveRule() {
		t.Fatal("halfmove clock at 100 must make the fifty-move rule claimable")
	}
	res := g.EvaluateEnd()
	if res == nil {
		t.Fatal("expected terminal result")
	}
	if res.Method != MethodFiftyMoveRule || res.Winner != "" {
		t.Fatalf("expected fifty-move draw, got %+v", res)
	}
	if !g.IsDraw() {
		t.Fatal("fifty-move rule must report a draw")
	}
}

func TestReplayReproducesPosition(t *testing.T) {
	g := NewGame()
	playUCI(t, g, "e2e4", "c7c5", "g1f3", "d7d6", "d2d4", "c5d4", "f3d4")

	replayed, err := Replay(g.MovesUCI())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.FEN() != g.FEN() {
		t.Fatalf("replay diverged:\nwant %s\ngot  %s", g.FEN(), replayed.FEN())
	}
	if replayed.SideToMove() != g.SideToMove() {
		t.Fatalf("replay turn diverged: %s vs %s", replayed.SideToMove(), g.SideToMove())
	}
}

func TestReplayRejectsIllegalHistory(t *testing.T) {
	if _, err := Replay([]string{"e2e4", "e7e4"}); err == nil {
		t.Fatal("expected replay error for illegal history")
	}
}

func TestOpponent(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatal("opponent mapping broken")
	}
}
