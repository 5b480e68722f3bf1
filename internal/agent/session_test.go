package agent

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(30 * time.Minute)

	sess := NewSession(IntentApptBlock)
	sess.Slots["time"] = "15:00"
	require.NoError(t, store.Put(ctx, "doctor:d1", sess))

	got, err := store.Get(ctx, "doctor:d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, IntentApptBlock, got.Intent)
	assert.Equal(t, "15:00", got.Slots["time"])

	require.NoError(t, store.Delete(ctx, "doctor:d1"))
	got, err = store.Get(ctx, "doctor:d1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionStoreMissingIsNil(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	got, err := store.Get(context.Background(), "patient:nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(10 * time.Millisecond)

	sess := NewSession(IntentApptBook)
	require.NoError(t, store.Put(ctx, "patient:p1", sess))

	// Stale sessions are dropped on read.
	sess.UpdatedAt = time.Now().UTC().Add(-time.Minute)
	got, err := store.Get(ctx, "patient:p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionStoreIsolatesActors(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Minute)

	require.NoError(t, store.Put(ctx, "doctor:d1", NewSession(IntentApptBlock)))
	require.NoError(t, store.Put(ctx, "patient:p1", NewSession(IntentApptBook)))

	d, err := store.Get(ctx, "doctor:d1")
	require.NoError(t, err)
	p, err := store.Get(ctx, "patient:p1")
	require.NoError(t, err)
	assert.Equal(t, IntentApptBlock, d.Intent)
	assert.Equal(t, IntentApptBook, p.Intent)
}

func TestMemorySessionStoreRejectsNilSession(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	assert.Error(t, store.Put(context.Background(), "doctor:d1", nil))
}

func newRedisSessionStore(t *testing.T) *RedisSessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, 30*time.Minute)
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRedisSessionStore(t)

	sess := NewSession(IntentInvAdjust)
	sess.Slots["item"] = "gloves"
	sess.Slots["quantity"] = "50"
	require.NoError(t, store.Put(ctx, "doctor:d1", sess))

	got, err := store.Get(ctx, "doctor:d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, IntentInvAdjust, got.Intent)
	assert.Equal(t, "gloves", got.Slots["item"])
	assert.Equal(t, "50", got.Slots["quantity"])

	require.NoError(t, store.Delete(ctx, "doctor:d1"))
	got, err = store.Get(ctx, "doctor:d1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionStoreMissingIsNil(t *testing.T) {
	store := newRedisSessionStore(t)
	got, err := store.Get(context.Background(), "doctor:absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionStoreDecodeError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(client, time.Minute)

	require.NoError(t, mr.Set(sessionKeyPrefix+"doctor:d1", "not json"))
	_, err := store.Get(context.Background(), "doctor:d1")
	assert.Error(t, err)
}

func TestNewRedisSessionStoreNilClient(t *testing.T) {
	assert.Nil(t, NewRedisSessionStore(nil, time.Minute))
}
