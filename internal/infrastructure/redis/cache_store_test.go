package redisstore_test

import (
	"context"
	"testing"
	"time"

	redisstore "cryptoprice-service/internal/infrastructure/redis"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetExpire(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redisstore.New(client)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "price_cache_bitcoin")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "price_cache_bitcoin", []byte(`{"quote":{}}`), 120*time.Second))
	require.Equal(t, 120*time.Second, mr.TTL("price_cache_bitcoin"))

	v, ok, err := store.Get(ctx, "price_cache_bitcoin")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"quote":{}}`, string(v))

	mr.FastForward(121 * time.Second)
	_, ok, err = store.Get(ctx, "price_cache_bitcoin")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_UnreachableReturnsError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	store := redisstore.New(client)
	mr.Close()

	_, _, err = store.Get(context.Background(), "price_cache_bitcoin")
	require.Error(t, err)
	require.Error(t, store.Ping(context.Background()))
}

func TestNoop(t *testing.T) {
	var n redisstore.Noop
	require.NoError(t, n.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok, err := n.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}
