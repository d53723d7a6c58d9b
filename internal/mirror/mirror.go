package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/match"
	"github.com/park285/chess-arena/internal/obslog"
)

const (
	defaultTTL     = 24 * time.Hour
	publishTimeout = 3 * time.Second
)

// Mirror copies committed match snapshots into Redis for operational
// inspection. It is write-mostly: the in-memory registry stays
// authoritative and never reads mirrored state back.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(redisURL string) (*Mirror, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for mirror")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Mirror{rdb: rdb, ttl: defaultTTL}, nil
}

func (m *Mirror) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// Publish implements registry.Sink. Failures are logged, never
// surfaced: the mirror must not fail an intent.
func (m *Mirror) Publish(snap match.Snapshot) {
	if m == nil || m.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := m.save(ctx, snap); err != nil {
		obslog.L().Warn("mirror_save_error", zap.String("match_id", snap.ID), zap.Error(err))
	}
}

func (m *Mirror) save(ctx context.Context, snap match.Snapshot) error {
	raw, err := json.Marshal(&snap)
	if err != nil {
		return err
	}
	if err := m.rdb.Set(ctx, matchKey(snap.ID), raw, m.ttl).Err(); err != nil {
		return err
	}
	for _, player := range []string{snap.WhiteID, snap.BlackID} {
		if strings.TrimSpace(player) == "" {
			continue
		}
		key := idxPlayerKey(player)
		if err := m.rdb.SAdd(ctx, key, snap.ID).Err(); err != nil {
			return err
		}
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

// Load returns the mirrored snapshot for a match id, nil when absent.
func (m *Mirror) Load(ctx context.Context, id string) (*match.Snapshot, error) {
	raw, err := m.rdb.Get(ctx, matchKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap match.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// MatchesByPlayer returns the player's mirrored matches, most recently
// updated first.
func (m *Mirror) MatchesByPlayer(ctx context.Context, playerID string) ([]match.Snapshot, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxPlayerKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	var out []match.Snapshot
	for _, id := range ids {
		snap, lErr := m.Load(ctx, id)
		if lErr != nil || snap == nil {
			continue
		}
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func matchKey(id string) string { return "arena:match:" + strings.TrimSpace(id) }

func idxPlayerKey(player string) string { return "arena:index:player:" + strings.TrimSpace(player) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
