package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arena/internal/match"
	"github.com/park285/chess-arena/internal/rules"
)

func newTestMirror(t *testing.T) *Mirror {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Mirror{rdb: rdb, ttl: time.Hour}
}

func testSnapshot(id, white, black string) match.Snapshot {
	now := time.Now().UTC()
	return match.Snapshot{
		ID:        id,
		FEN:       rules.InitialFEN,
		Turn:      rules.White,
		Status:    match.StatusActive,
		WhiteID:   white,
		BlackID:   black,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPublishAndLoad(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	m.Publish(testSnapshot("m1", "alice", "bob"))

	snap, err := m.Load(ctx, "m1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if snap.WhiteID != "alice" || snap.BlackID != "bob" {
		t.Fatalf("unexpected seats: %s vs %s", snap.WhiteID, snap.BlackID)
	}
	if snap.FEN != rules.InitialFEN {
		t.Fatalf("unexpected fen: %s", snap.FEN)
	}
}

func TestLoadMissing(t *testing.T) {
	m := newTestMirror(t)

	snap, err := m.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil for missing match")
	}
}

func TestMatchesByPlayer(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	first := testSnapshot("m1", "alice", "bob")
	first.UpdatedAt = time.Now().UTC().Add(-time.Minute)
	m.Publish(first)
	m.Publish(testSnapshot("m2", "alice", "carol"))
	m.Publish(testSnapshot("m3", "dave", "erin"))

	got, err := m.MatchesByPlayer(ctx, "alice")
	if err != nil {
		t.Fatalf("by player: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].ID != "m2" {
		t.Fatalf("expected most recent first, got %s", got[0].ID)
	}

	none, err := m.MatchesByPlayer(ctx, "mallory")
	if err != nil {
		t.Fatalf("by player: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}

func TestWaitingMatchSkipsEmptySeat(t *testing.T) {
	m := newTestMirror(t)
	snap := testSnapshot("m1", "alice", "")
	snap.Status = match.StatusWaiting
	m.Publish(snap)

	got, err := m.MatchesByPlayer(context.Background(), "alice")
	if err != nil {
		t.Fatalf("by player: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
}
