package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := New[string](time.Minute, 10)

	c.Put("k1", "hello")
	got, ok := c.Get("k1")

	require.True(t, ok)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := New[int](time.Minute, 10)

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryDroppedOnGet(t *testing.T) {
	c := New[string](time.Minute, 10)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put("k1", "hello")

	c.now = func() time.Time { return base.Add(61 * time.Second) }
	_, ok := c.Get("k1")

	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry should be removed on access")
}

func TestCache_EntryStillLiveJustBeforeTTL(t *testing.T) {
	c := New[string](time.Minute, 10)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put("k1", "hello")

	c.now = func() time.Time { return base.Add(59 * time.Second) }
	got, ok := c.Get("k1")

	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestCache_EvictsOldestWriteAtCapacity(t *testing.T) {
	c := New[string](time.Minute, 2)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put("a", "1")

	c.now = func() time.Time { return base.Add(time.Second) }
	c.Put("b", "2")

	c.now = func() time.Time { return base.Add(2 * time.Second) }
	c.Put("c", "3")

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_GetDoesNotRefreshAge(t *testing.T) {
	c := New[string](time.Minute, 2)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put("a", "1")

	c.now = func() time.Time { return base.Add(time.Second) }
	c.Put("b", "2")

	// Reading "a" must not protect it from eviction.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.now = func() time.Time { return base.Add(2 * time.Second) }
	c.Put("c", "3")

	_, ok = c.Get("a")
	assert.False(t, ok, "read recency must not affect eviction order")
}

func TestCache_OverwriteRefreshesWriteTime(t *testing.T) {
	c := New[string](time.Minute, 2)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put("a", "1")

	c.now = func() time.Time { return base.Add(time.Second) }
	c.Put("b", "2")

	c.now = func() time.Time { return base.Add(2 * time.Second) }
	c.Put("a", "1-updated")

	c.now = func() time.Time { return base.Add(3 * time.Second) }
	c.Put("c", "3")

	got, ok := c.Get("a")
	require.True(t, ok, "rewritten entry is the newest, b should be evicted instead")
	assert.Equal(t, "1-updated", got)

	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCache_Purge(t *testing.T) {
	c := New[int](time.Minute, 10)
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	require.Equal(t, 5, c.Len())

	c.Purge()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok)
}
