package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBackendDown = errors.New("backend unreachable")

// brokenBackend fails every operation, simulating an unreachable cache.
type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) ([]byte, error) { return nil, errBackendDown }
func (brokenBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errBackendDown
}
func (brokenBackend) Delete(context.Context, string) error { return errBackendDown }

func TestCache_SetGetRoundtrip(t *testing.T) {
	c := New(NewMemoryBackend(), "auth", time.Hour, zap.NewNop())
	ctx := context.Background()

	key := c.Key("user-1")
	assert.Equal(t, "auth:user-1", key)

	c.Set(ctx, key, []byte(`{"id":"user-1"}`), time.Minute)

	value, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `{"id":"user-1"}`, string(value))
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := New(NewMemoryBackend(), "auth", time.Hour, zap.NewNop())

	_, ok := c.Get(context.Background(), c.Key("nope"))
	assert.False(t, ok)
}

func TestCache_EntryExpires(t *testing.T) {
	c := New(NewMemoryBackend(), "auth", time.Hour, zap.NewNop())
	ctx := context.Background()
	key := c.Key("user-1")

	c.Set(ctx, key, []byte("v"), 10*time.Millisecond)

	_, ok := c.Get(ctx, key)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCache_InvalidateRemovesEntry(t *testing.T) {
	c := New(NewMemoryBackend(), "auth", time.Hour, zap.NewNop())
	ctx := context.Background()
	key := c.Key("user-1")

	c.Set(ctx, key, []byte("v"), time.Minute)
	c.Invalidate(ctx, key)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCache_BackendFailureDegradesToMiss(t *testing.T) {
	c := New(brokenBackend{}, "auth", time.Hour, zap.NewNop())
	ctx := context.Background()
	key := c.Key("user-1")

	// none of these may panic or surface the backend error
	c.Set(ctx, key, []byte("v"), time.Minute)
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
	c.Invalidate(ctx, key)
}

func TestMemoryBackend_CopiesValueOnSet(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, backend.Set(ctx, "k", value, time.Minute))
	value[0] = 'X'

	stored, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(stored))
}
