package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fathima-sithara/dm-service/internal/registry"
	"github.com/redis/go-redis/v9"
)

// Tracker records which users have a live connection. MarkOnline is also the refresh call:
// an entry that is not refreshed within the tracker's TTL counts as offline.
type Tracker interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	OnlineUsers(ctx context.Context) ([]string, error)
	IsOnline(ctx context.Context, userID string) (bool, error)
	// LastSeen returns the unix time of the last presence change, or 0 when unknown.
	LastSeen(ctx context.Context, userID string) (int64, error)
}

// Store keeps presence in Redis so every instance sees the same online set.
// Keys:
//   - <prefix>:online            sorted set, member user id, score = unix expiry
//   - <prefix>:presence:<userID> json {status,last_seen}
//
// Users of an instance that dies without marking them offline drop out once their
// score passes.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(r *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: r, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *Store) onlineKey() string { return fmt.Sprintf("%s:online", s.prefix) }
func (s *Store) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

type status struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func (s *Store) MarkOnline(ctx context.Context, userID string) error {
	now := s.now()
	pb, _ := json.Marshal(status{Status: "online", LastSeen: now.Unix()})
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, s.onlineKey(), redis.Z{Score: float64(now.Add(s.ttl).Unix()), Member: userID})
		p.Set(ctx, s.presenceKey(userID), pb, s.ttl)
		return nil
	})
	return err
}

func (s *Store) MarkOffline(ctx context.Context, userID string) error {
	pb, _ := json.Marshal(status{Status: "offline", LastSeen: s.now().Unix()})
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, s.onlineKey(), userID)
		p.Set(ctx, s.presenceKey(userID), pb, 0)
		return nil
	})
	return err
}

// OnlineUsers prunes expired entries and returns the rest, sorted.
func (s *Store) OnlineUsers(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)
	var members *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, s.onlineKey(), "-inf", "("+now)
		members = p.ZRangeByScore(ctx, s.onlineKey(), &redis.ZRangeBy{Min: now, Max: "+inf"})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids := members.Val()
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	score, err := s.client.ZScore(ctx, s.onlineKey(), userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return int64(score) >= s.now().Unix(), nil
}

func (s *Store) LastSeen(ctx context.Context, userID string) (int64, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var st status
	if err := json.Unmarshal(b, &st); err != nil {
		return 0, err
	}
	return st.LastSeen, nil
}

// Local answers from this instance's registry. Used when Redis is not configured.
type Local struct {
	reg      *registry.Registry
	lastSeen sync.Map
}

func NewLocal(reg *registry.Registry) *Local { return &Local{reg: reg} }

func (l *Local) MarkOnline(_ context.Context, userID string) error {
	l.lastSeen.Store(userID, time.Now().Unix())
	return nil
}

func (l *Local) MarkOffline(_ context.Context, userID string) error {
	l.lastSeen.Store(userID, time.Now().Unix())
	return nil
}

func (l *Local) OnlineUsers(context.Context) ([]string, error) {
	ids := l.reg.UserIDs()
	sort.Strings(ids)
	return ids, nil
}

func (l *Local) IsOnline(_ context.Context, userID string) (bool, error) {
	_, ok := l.reg.Lookup(userID)
	return ok, nil
}

func (l *Local) LastSeen(_ context.Context, userID string) (int64, error) {
	v, ok := l.lastSeen.Load(userID)
	if !ok {
		return 0, nil
	}
	return v.(int64), nil
}
