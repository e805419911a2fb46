package ingress

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStore_CheckAndMark(t *testing.T) {
	clock := newClock()
	s, err := NewKeyStore("", clock.Now)
	require.NoError(t, err)

	assert.False(t, s.CheckAndMark("telegram:1", time.Hour))
	assert.True(t, s.CheckAndMark("telegram:1", time.Hour))
	assert.False(t, s.CheckAndMark("telegram:2", time.Hour))

	clock.Advance(time.Hour)
	assert.False(t, s.CheckAndMark("telegram:1", time.Hour), "expired keys are treated as new")
}

func TestKeyStore_PersistsAcrossRestart(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "keys.json")

	s, err := NewKeyStore(path, clock.Now)
	require.NoError(t, err)
	require.FileExists(t, path)
	s.CheckAndMark("slack:D1:1.0", time.Hour)
	require.NoError(t, s.Save())

	reopened, err := NewKeyStore(path, clock.Now)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())
	assert.True(t, reopened.CheckAndMark("slack:D1:1.0", time.Hour))
}

func TestKeyStore_Prune(t *testing.T) {
	clock := newClock()
	s, err := NewKeyStore("", clock.Now)
	require.NoError(t, err)

	s.CheckAndMark("a", time.Minute)
	s.CheckAndMark("b", time.Hour)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Len())
}

func TestRateLimiter_Window(t *testing.T) {
	clock := newClock()
	l := NewRateLimiter(2, clock.Now)

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"))

	clock.Advance(59 * time.Minute)
	assert.False(t, l.Allow("u1"))

	clock.Advance(time.Minute)
	assert.True(t, l.Allow("u1"), "a new window starts after an hour")
}

func TestRateLimiter_Prune(t *testing.T) {
	clock := newClock()
	l := NewRateLimiter(10, clock.Now)
	l.Allow("u1")
	clock.Advance(30 * time.Minute)
	l.Allow("u2")

	clock.Advance(40 * time.Minute)
	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, 1, l.Len())
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0, nil)
	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow("u1"))
	}
	assert.Zero(t, l.Len())

	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("u1"))
	assert.Zero(t, nilLimiter.Prune())
}
