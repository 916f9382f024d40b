package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCacheFromClient(client), mr
}

func TestIdempotencyStore_ClaimCompleteLookup(t *testing.T) {
	rc, _ := newTestCache(t)
	store := NewIdempotencyStore(rc, "", time.Minute)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k1", "transfer:p1:Ehemalige")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "k1", "transfer:p2:Ehemalige")
	require.NoError(t, err)
	assert.False(t, ok, "second claim must fail")

	entry, found, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, entry.Done, "pending key has no result")
	assert.Equal(t, "transfer:p1:Ehemalige", entry.Fingerprint, "first claim keeps its fingerprint")

	require.NoError(t, store.Complete(ctx, "k1", "transfer:p1:Ehemalige", []byte(`{"kind":"sale"}`)))

	entry, found, err = store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.Done)
	assert.Equal(t, "transfer:p1:Ehemalige", entry.Fingerprint)
	assert.JSONEq(t, `{"kind":"sale"}`, string(entry.Result))
}

func TestIdempotencyStore_Release(t *testing.T) {
	rc, _ := newTestCache(t)
	store := NewIdempotencyStore(rc, "test:", time.Minute)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k", "fp")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "k"))

	ok, err = store.Claim(ctx, "k", "fp")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_Expires(t *testing.T) {
	rc, mr := newTestCache(t)
	store := NewIdempotencyStore(rc, "", time.Minute)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k", "fp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("roster:idem:k"))

	mr.FastForward(2 * time.Minute)

	ok, err = store.Claim(ctx, "k", "fp")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_LookupUnknown(t *testing.T) {
	rc, _ := newTestCache(t)
	store := NewIdempotencyStore(rc, "", time.Minute)

	entry, found, err := store.Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Entry{}, entry)
}

func TestIdempotencyStore_RedisDown(t *testing.T) {
	rc, mr := newTestCache(t)
	store := NewIdempotencyStore(rc, "", time.Minute)
	mr.Close()

	_, err := store.Claim(context.Background(), "k", "fp")
	assert.Error(t, err)
}
