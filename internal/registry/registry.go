package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-arena/internal/match"
	"github.com/park285/chess-arena/internal/obslog"
	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// Sink receives the committed snapshot after every successful mutation.
// Publish must tolerate being called from the intent path; it runs after
// the per-match lock is released.
type Sink interface {
	Publish(snap match.Snapshot)
}

type entry struct {
	mu sync.Mutex
	m  *match.Match
}

// Registry is the process-wide table of live matches. It guarantees at
// most one match instance per id and serializes all mutations at
// per-match granularity; intents for different matches proceed in
// parallel. State lives in memory only and is torn down with the
// process.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	flip match.CoinFlip
	sink Sink
	ttl  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

type Option func(*Registry)

// WithCoinFlip injects the seat-assignment coin flip, for deterministic
// tests.
func WithCoinFlip(f match.CoinFlip) Option {
	return func(r *Registry) { r.flip = f }
}

// WithSink attaches a snapshot sink (e.g. the Redis mirror).
func WithSink(s Sink) Option {
	return func(r *Registry) { r.sink = s }
}

// WithIdleTTL enables the janitor: matches idle longer than ttl are
// removed. Zero disables expiry.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		flip:    match.CryptoCoinFlip,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl > 0 {
		go r.janitor()
	}
	return r
}

// Close stops the janitor. Matches are dropped with the process.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// GetOrCreate returns the match snapshot for id, creating a fresh match
// with creatorID seated on a random color when the id is unknown. An
// empty id gets a generated one. The boolean reports whether this call
// created the match; racing creates for the same id resolve to a single
// instance.
func (r *Registry) GetOrCreate(id, creatorID string) (match.Snapshot, bool) {
	if id == "" {
		id = uuid.NewString()
	}
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{m: match.New(id, creatorID, r.flip)}
		r.entries[id] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	snap := e.m.Snapshot()
	e.mu.Unlock()

	if !ok {
		obslog.L().Info("match_create",
			zap.String("match_id", snap.ID),
			zap.String("creator_id", creatorID),
			zap.String("white_id", snap.WhiteID),
			zap.String("black_id", snap.BlackID),
		)
		r.publish(snap)
	}
	return snap, !ok
}

// Get returns the latest committed snapshot for id.
func (r *Registry) Get(id string) (match.Snapshot, bool) {
	r.mu.RLock()
	e := r.entries[id]
	r.mu.RUnlock()
	if e == nil {
		return match.Snapshot{}, false
	}
	e.mu.Lock()
	snap := e.m.Snapshot()
	e.mu.Unlock()
	return snap, true
}

// List returns snapshots of every live match, ordered by id.
func (r *Registry) List() []match.Snapshot {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]match.Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.m.Snapshot())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove drops a match from the table.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Join seats or spectates playerID in the match.
func (r *Registry) Join(id, playerID string) (match.SeatAssignment, match.Snapshot, error) {
	var seat match.SeatAssignment
	snap, err := r.withMatch(id, func(m *match.Match) error {
		seat = m.Join(playerID)
		return nil
	})
	if err != nil {
		return match.SeatAssignment{}, match.Snapshot{}, err
	}
	obslog.L().Info("match_join",
		zap.String("match_id", id),
		zap.String("player_id", playerID),
		zap.Bool("spectator", seat.Spectator),
		zap.Bool("started", seat.Started),
	)
	return seat, snap, nil
}

// Move applies one half-move; the error taxonomy is the state
// machine's. No failed move mutates match state.
func (r *Registry) Move(id, playerID, from, to, promotion string) (match.MoveResult, match.Snapshot, error) {
	var res match.MoveResult
	snap, err := r.withMatch(id, func(m *match.Match) error {
		var mErr error
		res, mErr = m.Move(playerID, from, to, promotion)
		return mErr
	})
	if err != nil {
		return match.MoveResult{}, match.Snapshot{}, err
	}
	obslog.L().Info("match_move",
		zap.String("match_id", id),
		zap.String("player_id", playerID),
		zap.String("uci", res.Move.UCI),
		zap.String("turn", string(snap.Turn)),
		zap.String("status", string(snap.Status)),
	)
	return res, snap, nil
}

// Resign completes the match in the opponent's favor.
func (r *Registry) Resign(id, playerID string) (*match.Outcome, match.Snapshot, error) {
	var outcome *match.Outcome
	snap, err := r.withMatch(id, func(m *match.Match) error {
		var rErr error
		outcome, rErr = m.Resign(playerID)
		return rErr
	})
	if err != nil {
		return nil, match.Snapshot{}, err
	}
	obslog.L().Info("match_resign",
		zap.String("match_id", id),
		zap.String("player_id", playerID),
		zap.String("winner", string(outcome.Winner)),
	)
	return outcome, snap, nil
}

// withMatch runs fn holding the per-match lock, then publishes the
// committed snapshot after release. The lock is never held across I/O.
func (r *Registry) withMatch(id string, fn func(*match.Match) error) (match.Snapshot, error) {
	r.mu.RLock()
	e := r.entries[id]
	r.mu.RUnlock()
	if e == nil {
		return match.Snapshot{}, match.ErrMatchNotFound
	}

	e.mu.Lock()
	err := fn(e.m)
	snap := e.m.Snapshot()
	e.mu.Unlock()

	if err != nil {
		return match.Snapshot{}, err
	}
	r.publish(snap)
	return snap, nil
}

func (r *Registry) publish(snap match.Snapshot) {
	if r.sink != nil {
		r.sink.Publish(snap)
	}
}

func (r *Registry) janitor() {
	interval := r.ttl / 4
	if interval <= 0 || interval > defaultSweepInterval {
		interval = defaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-t.C:
			r.sweep(time.Now())
		}
	}
}

// sweep removes matches whose last accepted mutation is older than the
// idle TTL.
func (r *Registry) sweep(now time.Time) int {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range ids {
		r.mu.RLock()
		e := r.entries[id]
		r.mu.RUnlock()
		if e == nil {
			continue
		}
		e.mu.Lock()
		idle := now.Sub(e.m.LastActivity())
		e.mu.Unlock()
		if idle > r.ttl {
			r.Remove(id)
			removed++
			obslog.L().Info("match_expired", zap.String("match_id", id), zap.Duration("idle", idle))
		}
	}
	return removed
}
