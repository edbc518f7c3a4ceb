package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetHonoursTTL(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := New(true)
	c.now = func() time.Time { return now }

	etag := c.Set("k", []byte(`{"a":1}`), time.Minute)
	data, got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, etag, got)
	assert.JSONEq(t, `{"a":1}`, string(data))

	now = now.Add(2 * time.Minute)
	_, _, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Evict())
	assert.Equal(t, 0, c.Stats()["total_keys"])

	stats := c.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
	assert.InDelta(t, 0.5, stats["hit_rate"], 0.0001)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("x"), time.Minute)
	assert.NotEmpty(t, etag)
	_, _, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.False(t, CheckETagMatch("", etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))
}
