package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) (*AttemptLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAttemptLimiter(client, "login", max, window), mr
}

func TestAttemptLimiterBlocksAfterMax(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allowed(ctx, "dominick@dtauto.test|10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, limiter.Record(ctx, "dominick@dtauto.test|10.0.0.1"))
	}

	ok, err := limiter.Allowed(ctx, "dominick@dtauto.test|10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	// A different key keeps its own budget.
	ok, err = limiter.Allowed(ctx, "tony@dtauto.test|10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAttemptLimiterExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Record(ctx, "tony@dtauto.test|10.0.0.2"))
	ok, err := limiter.Allowed(ctx, "tony@dtauto.test|10.0.0.2")
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = limiter.Allowed(ctx, "tony@dtauto.test|10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAttemptLimiterReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Record(ctx, "key"))
	require.NoError(t, limiter.Reset(ctx, "key"))

	ok, err := limiter.Allowed(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
}
