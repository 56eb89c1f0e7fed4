package cache_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
)

func TestFetchCallsProducerOnceWithinTTL(t *testing.T) {
	t.Parallel()

	store := cache.New()
	calls := 0
	produce := func() (interface{}, error) {
		calls++
		return "value", nil
	}

	v1, err := store.Fetch("k", time.Minute, produce)
	assert.NoError(t, err)
	v2, err := store.Fetch("k", time.Minute, produce)
	assert.NoError(t, err)

	assert.Equal(t, "value", v1)
	assert.Equal(t, "value", v2)
	assert.Equal(t, 1, calls)
}

func TestFetchRefreshesAfterExpiry(t *testing.T) {
	t.Parallel()

	store := cache.New()
	calls := 0
	produce := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := store.Fetch("k", 30*time.Millisecond, produce)
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	time.Sleep(60 * time.Millisecond)

	v, err = store.Fetch("k", 30*time.Millisecond, produce)
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestFetchProducerErrorNotCached(t *testing.T) {
	t.Parallel()

	store := cache.New()
	boom := errors.New("backend down")
	calls := 0

	_, err := store.Fetch("k", time.Minute, func() (interface{}, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	// The next read must retry the producer.
	v, err := store.Fetch("k", time.Minute, func() (interface{}, error) {
		calls++
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestInvalidatePrefix(t *testing.T) {
	t.Parallel()

	store := cache.New()
	store.Set(cache.Key("tasks", 1, "list"), "a", time.Minute)
	store.Set(cache.Key("tasks", 1, "id", "x"), "b", time.Minute)
	store.Set(cache.Key("tasks", 2, "list"), "c", time.Minute)
	store.Set(cache.Key("reminders", 1, "list"), "d", time.Minute)

	removed := store.Invalidate(cache.Prefix("tasks", 1))
	assert.Equal(t, 2, removed)

	_, ok := store.Get(cache.Key("tasks", 1, "list"))
	assert.False(t, ok)
	_, ok = store.Get(cache.Key("tasks", 2, "list"))
	assert.True(t, ok)
	_, ok = store.Get(cache.Key("reminders", 1, "list"))
	assert.True(t, ok)
}

func TestFlushDropsEveryEntry(t *testing.T) {
	t.Parallel()

	store := cache.New()
	store.Set(cache.Key("tasks", 1, "list"), "a", time.Minute)
	store.Set(cache.Key("reminders", 2, "list"), "b", time.Minute)
	assert.Equal(t, 2, store.Len())

	store.Flush()
	assert.Equal(t, 0, store.Len())

	// A flushed key misses and reaches the producer again.
	calls := 0
	v, err := store.Fetch(cache.Key("tasks", 1, "list"), time.Minute, func() (interface{}, error) {
		calls++
		return "fresh", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, calls)
}

func TestTypedFetch(t *testing.T) {
	t.Parallel()

	store := cache.New()
	got, err := cache.Fetch(store, "nums", time.Minute, func() ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	// Same key, different type: the mismatch is reported, not coerced.
	_, err = cache.Fetch(store, "nums", time.Minute, func() (string, error) {
		return "", nil
	})
	assert.Error(t, err)
}

func TestKeyLayout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tasks:7", cache.Key("tasks", 7))
	assert.Equal(t, "tasks:7:list:status=pending", cache.Key("tasks", 7, "list", "status=pending"))
	assert.Equal(t, "tasks:7:", cache.Prefix("tasks", 7))
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := cache.New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := cache.Key("tasks", uint(n%4), "list")
			_, _ = store.Fetch(key, time.Minute, func() (interface{}, error) {
				return n, nil
			})
			store.Invalidate(cache.Prefix("tasks", uint(n%2)))
		}(i)
	}
	wg.Wait()
}
