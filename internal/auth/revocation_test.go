package auth

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Hour))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationStore_Expiry(t *testing.T) {
	store := NewMemoryRevocationStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "short", time.Minute))
	now = now.Add(2 * time.Minute)

	revoked, err := store.IsRevoked(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, store.revoked)
}

func TestMemoryRevocationStore_IgnoresEmpty(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "", time.Hour))
	require.NoError(t, store.Revoke(ctx, "expired", 0))
	assert.Empty(t, store.revoked)
}

func TestMemoryRevocationStore_ConsumeOnce(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	const callers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(ctx, "jti-1", time.Hour)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryRevocationStore_ConsumeAfterRevoke(t *testing.T) {
	store := NewMemoryRevocationStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Minute))
	ok, err := store.Consume(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Consume(ctx, "", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = store.Consume(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRevocationStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisRevocationStore(client)
	jti := uuid.NewString()

	revoked, err := store.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, jti, time.Minute))
	revoked, err = store.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, store.keyPrefix+jti).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	fresh := uuid.NewString()
	ok, err := store.Consume(ctx, fresh, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Consume(ctx, fresh, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.Consume(ctx, jti, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
