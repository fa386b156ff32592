package memcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_SetGetExpire(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "price_cache_bitcoin")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "price_cache_bitcoin", []byte("v1"), time.Minute))
	v, ok, err := s.Get(ctx, "price_cache_bitcoin")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(v))

	require.NoError(t, s.Set(ctx, "price_cache_ethereum", []byte("v2"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, ok, _ = s.Get(ctx, "price_cache_ethereum")
	require.False(t, ok)
}

func TestStore_CopiesValue(t *testing.T) {
	s := New()
	buf := []byte("abc")
	require.NoError(t, s.Set(context.Background(), "k", buf, time.Minute))
	buf[0] = 'x'
	v, _, _ := s.Get(context.Background(), "k")
	require.Equal(t, "abc", string(v))
}
