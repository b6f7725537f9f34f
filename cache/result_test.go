package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/punchclock/cache"
)

// =============================================================================
// RESULT CACHE TESTS
// =============================================================================

func newResultCache(t *testing.T) *cache.ResultCache {
	t.Helper()
	c, err := cache.NewResultCache()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestGetOrCompute_SecondCallHitsCache(t *testing.T) {
	// GIVEN: A computed value inside its TTL
	// WHEN: Asking for the same key again
	// THEN: The compute function does not run a second time

	c := newResultCache(t)
	ctx := context.Background()

	var computes int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&computes, 1)
		return "expensive", nil
	}

	v1, err := c.GetOrCompute(ctx, "k", time.Minute, fn)
	require.NoError(t, err)
	v2, err := c.GetOrCompute(ctx, "k", time.Minute, fn)
	require.NoError(t, err)

	assert.Equal(t, "expensive", v1)
	assert.Equal(t, "expensive", v2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&computes))
}

func TestGetOrCompute_DistinctKeysComputeSeparately(t *testing.T) {
	c := newResultCache(t)
	ctx := context.Background()

	var computes int32
	fn := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&computes, 1), nil
	}

	v1, err := c.GetOrCompute(ctx, "a", time.Minute, fn)
	require.NoError(t, err)
	v2, err := c.GetOrCompute(ctx, "b", time.Minute, fn)
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestGetOrCompute_Stampede_SingleCompute(t *testing.T) {
	// GIVEN: A cold key and a slow compute
	// WHEN: Many goroutines request it at once
	// THEN: Exactly one compute runs and everyone gets its value

	c := newResultCache(t)

	var computes int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&computes, 1)
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrCompute(context.Background(), "hot", time.Minute, fn)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computes))
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	// GIVEN: A compute that fails once then recovers
	// THEN: The failure is returned but never poisons the key

	c := newResultCache(t)
	ctx := context.Background()

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("store unavailable")
		}
		return "recovered", nil
	}

	_, err := c.GetOrCompute(ctx, "k", time.Minute, fn)
	require.Error(t, err)

	v, err := c.GetOrCompute(ctx, "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResultCache_InvalidateForcesRecompute(t *testing.T) {
	c := newResultCache(t)
	ctx := context.Background()

	var computes int32
	fn := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&computes, 1), nil
	}

	_, err := c.GetOrCompute(ctx, "k", time.Minute, fn)
	require.NoError(t, err)

	c.Invalidate("k")

	v, err := c.GetOrCompute(ctx, "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestResultCache_ClearDropsEverything(t *testing.T) {
	c := newResultCache(t)
	ctx := context.Background()

	var computes int32
	fn := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&computes, 1), nil
	}

	_, err := c.GetOrCompute(ctx, "a", time.Minute, fn)
	require.NoError(t, err)
	_, err = c.GetOrCompute(ctx, "b", time.Minute, fn)
	require.NoError(t, err)

	c.Clear()

	_, err = c.GetOrCompute(ctx, "a", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&computes))
}

func TestKey_JoinsPartsInOrder(t *testing.T) {
	assert.Equal(t, "5:labor|4:site|2:s1|", cache.Key("labor", "site", "s1"))
	assert.NotEqual(t, cache.Key("a", "b"), cache.Key("b", "a"))
}

func TestKey_DelimiterInsidePartDoesNotCollide(t *testing.T) {
	// An id containing the delimiter must not alias a different part list
	assert.NotEqual(t, cache.Key("a|b", "c"), cache.Key("a", "b|c"))
	assert.NotEqual(t, cache.Key("a|b"), cache.Key("a", "b"))
}
