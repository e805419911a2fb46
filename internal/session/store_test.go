package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/harunnryd/nightowl/internal/ranking"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newMemory(c *clock) *MemoryStore {
	return NewMemoryStore(Options{TTL: 2 * time.Hour, HistoryLimit: 4, Now: c.Now})
}

func TestMemoryStore_ReplaceAndGet(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)}
	s := newMemory(c)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	frame := &Frame{
		Area:    "East Village",
		Offered: []string{"a", "b"},
		Chosen:  []Pick{{ID: "a", Name: "Jazz"}},
		Filters: ranking.Filters{FreeOnly: true},
		Pending: &Pending{Area: "Lower East Side"},
		Visited: []string{"East Village"},
	}
	require.NoError(t, s.Replace(ctx, "u1", frame))

	got, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "East Village", got.Area)
	assert.Equal(t, c.now, got.UpdatedAt)
	assert.Equal(t, "Lower East Side", got.Pending.Area)

	// stored frames are isolated from callers
	got.Offered[0] = "mutated"
	got.Pending.Area = "mutated"
	frame.Visited[0] = "mutated"
	again, _, _ := s.Get(ctx, "u1")
	assert.Equal(t, []string{"a", "b"}, again.Offered)
	assert.Equal(t, "Lower East Side", again.Pending.Area)
	assert.Equal(t, []string{"East Village"}, again.Visited)
}

func TestMemoryStore_ReplaceIsWhole(t *testing.T) {
	c := &clock{now: time.Now()}
	s := newMemory(c)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "u1", &Frame{
		Area:    "East Village",
		Filters: ranking.Filters{FreeOnly: true},
		Pending: &Pending{Area: "Lower East Side"},
	}))
	require.NoError(t, s.Replace(ctx, "u1", &Frame{Area: "Williamsburg"}))

	got, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Williamsburg", got.Area)
	assert.Nil(t, got.Pending)
	assert.True(t, got.Filters.IsZero())
}

func TestMemoryStore_TTL(t *testing.T) {
	c := &clock{now: time.Now()}
	s := newMemory(c)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "u1", &Frame{Area: "SoHo"}))

	c.now = c.now.Add(119 * time.Minute)
	_, ok, _ := s.Get(ctx, "u1")
	assert.True(t, ok)

	c.now = c.now.Add(time.Minute)
	_, ok, _ = s.Get(ctx, "u1")
	assert.False(t, ok, "frame is absent once the TTL elapses")
}

func TestMemoryStore_TouchBoundsHistory(t *testing.T) {
	c := &clock{now: time.Now()}
	s := newMemory(c)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, s.Touch(ctx, "u1", Turn{Role: RoleUser, Text: string(rune('a' + i))}))
	}

	got, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.History, 4)
	assert.Equal(t, "c", got.History[0].Text)
	assert.Equal(t, "f", got.History[3].Text)
	assert.False(t, got.History[0].At.IsZero())
}

func TestMemoryStore_TouchKeepsFrameFields(t *testing.T) {
	c := &clock{now: time.Now()}
	s := newMemory(c)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "u1", &Frame{Area: "Chelsea", Offered: []string{"x"}}))
	require.NoError(t, s.Touch(ctx, "u1", Turn{Role: RoleUser, Text: "/where"}))

	got, _, _ := s.Get(ctx, "u1")
	assert.Equal(t, "Chelsea", got.Area)
	assert.Equal(t, []string{"x"}, got.Offered)
	assert.Len(t, got.History, 1)
}

func TestMemoryStore_SweepAndDelete(t *testing.T) {
	c := &clock{now: time.Now()}
	s := newMemory(c)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "old", &Frame{}))
	c.now = c.now.Add(time.Hour)
	require.NoError(t, s.Replace(ctx, "new", &Frame{}))
	require.NoError(t, s.Replace(ctx, "gone", &Frame{}))
	require.NoError(t, s.Delete(ctx, "gone"))

	c.now = c.now.Add(90 * time.Minute)
	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())
}

func TestAppendTurns(t *testing.T) {
	h := AppendTurns(nil, 2, Turn{Text: "1"}, Turn{Text: "2"}, Turn{Text: "3"})
	require.Len(t, h, 2)
	assert.Equal(t, "2", h[0].Text)

	h = AppendTurns(h, 0, Turn{Text: "4"})
	assert.Len(t, h, 3, "limit 0 means unbounded")
}

func TestFrame_Lookups(t *testing.T) {
	f := &Frame{Offered: []string{"a"}, Visited: []string{"East Village"}}
	assert.True(t, f.HasOffered("a"))
	assert.False(t, f.HasOffered("b"))
	assert.True(t, f.HasVisited("east village"))
	assert.Nil(t, (*Frame)(nil).Clone())
}

// TestRedisStore runs against a live server when NIGHTOWL_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("NIGHTOWL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NIGHTOWL_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()

	prefix := "nightowl:test:" + time.Now().Format("150405.000") + ":"
	s := NewRedisStore(client, prefix, Options{TTL: time.Minute, HistoryLimit: 2})
	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.Replace(ctx, "u1", &Frame{Area: "Bushwick", Filters: ranking.Filters{FreeOnly: true}}))
	got, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Bushwick", got.Area)
	assert.True(t, got.Filters.FreeOnly)

	ttl, err := client.TTL(ctx, prefix+"u1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.Touch(ctx, "u1", Turn{Role: RoleUser, Text: text}))
	}
	got, _, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, "b", got.History[0].Text)

	require.NoError(t, s.Delete(ctx, "u1"))
	_, ok, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
