package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fathima-sithara/dm-service/internal/registry"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type nopConn struct{}

func (nopConn) Send(string, any) error { return nil }

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, "dm", time.Minute), mr
}

func TestStore_OnlineOffline(t *testing.T) {
	req := require.New(t)
	s, mr := newStore(t)
	ctx := context.Background()

	req.NoError(s.MarkOnline(ctx, "b"))
	req.NoError(s.MarkOnline(ctx, "a"))

	ids, err := s.OnlineUsers(ctx)
	req.NoError(err)
	req.Equal([]string{"a", "b"}, ids)
	req.True(mr.Exists("dm:presence:a"))
	req.Equal(time.Minute, mr.TTL("dm:presence:a"))

	req.NoError(s.MarkOffline(ctx, "a"))
	online, err := s.IsOnline(ctx, "a")
	req.NoError(err)
	req.False(online)

	seen, err := s.LastSeen(ctx, "a")
	req.NoError(err)
	req.NotZero(seen)

	seen, err = s.LastSeen(ctx, "unknown")
	req.NoError(err)
	req.Zero(seen)
}

func TestStore_EntriesExpireWithoutRefresh(t *testing.T) {
	req := require.New(t)
	s, mr := newStore(t)
	ctx := context.Background()
	start := time.Now()
	s.now = func() time.Time { return start }

	// Given two users online on an instance
	req.NoError(s.MarkOnline(ctx, "a"))
	req.NoError(s.MarkOnline(ctx, "b"))

	// When the instance dies and only b reconnects elsewhere after the ttl
	later := start.Add(2 * time.Minute)
	s.now = func() time.Time { return later }
	mr.FastForward(2 * time.Minute)
	req.NoError(s.MarkOnline(ctx, "b"))

	// Then a is no longer reported and is pruned from the set
	ids, err := s.OnlineUsers(ctx)
	req.NoError(err)
	req.Equal([]string{"b"}, ids)

	members, err := mr.ZMembers("dm:online")
	req.NoError(err)
	req.Equal([]string{"b"}, members)

	online, err := s.IsOnline(ctx, "a")
	req.NoError(err)
	req.False(online)
	online, err = s.IsOnline(ctx, "b")
	req.NoError(err)
	req.True(online)

	seen, err := s.LastSeen(ctx, "a")
	req.NoError(err)
	req.Zero(seen)
}

func TestStore_RedisDown(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	require.Error(t, s.MarkOnline(context.Background(), "a"))
}

func TestLocal_FromRegistry(t *testing.T) {
	req := require.New(t)
	reg := registry.New()
	reg.Register("b", nopConn{})
	reg.Register("a", nopConn{})

	local := NewLocal(reg)
	ctx := context.Background()
	ids, err := local.OnlineUsers(ctx)
	req.NoError(err)
	req.Equal([]string{"a", "b"}, ids)

	online, err := local.IsOnline(ctx, "a")
	req.NoError(err)
	req.True(online)
	online, err = local.IsOnline(ctx, "c")
	req.NoError(err)
	req.False(online)

	seen, err := local.LastSeen(ctx, "a")
	req.NoError(err)
	req.Zero(seen)
	req.NoError(local.MarkOffline(ctx, "a"))
	seen, err = local.LastSeen(ctx, "a")
	req.NoError(err)
	req.NotZero(seen)
}
