package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository"
)

var _ repository.KeyValueStore = (*Store)(nil)

func setupTestRedis(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, DefaultKeyPrefix, ttl), mr
}

func TestStore_Get_Missing(t *testing.T) {
	store, _ := setupTestRedis(t, 0)

	v, ok, err := store.Get(context.Background(), "authToken")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_Set_UsesPrefix(t *testing.T) {
	store, mr := setupTestRedis(t, 0)

	require.NoError(t, store.Set(context.Background(), "authToken", "a.b.c"))

	got, err := mr.Get("reviewdesk:authToken")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", got)
	assert.Equal(t, time.Duration(0), mr.TTL("reviewdesk:authToken"))

	v, ok, err := store.Get(context.Background(), "authToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a.b.c", v)
}

func TestStore_Set_AppliesTTL(t *testing.T) {
	store, mr := setupTestRedis(t, 2*time.Hour)

	require.NoError(t, store.Set(context.Background(), "user", `{"_id":"U1"}`))
	assert.Equal(t, 2*time.Hour, mr.TTL("reviewdesk:user"))

	mr.FastForward(3 * time.Hour)
	_, ok, err := store.Get(context.Background(), "user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "authToken", "a.b.c"))
	require.NoError(t, store.Set(ctx, "user", "{}"))
	require.NoError(t, store.Delete(ctx, "authToken", "user"))

	assert.False(t, mr.Exists("reviewdesk:authToken"))
	assert.False(t, mr.Exists("reviewdesk:user"))
	assert.NoError(t, store.Delete(ctx))
}

func TestStore_ConnectionError(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	mr.Close()

	_, _, err := store.Get(context.Background(), "authToken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get authToken")
	assert.Error(t, store.Ping(context.Background()))
}
