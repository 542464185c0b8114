package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// --- Cache ---

func TestCacheSetGet(t *testing.T) {
	c := NewCache[string](0, time.Minute)
	c.Set("key1", "value1")

	v, ok := c.Get("key1")
	require.True(t, ok, "expected cache hit")
	assert.Equal(t, "value1", v)

	_, ok = c.Get("nonexistent")
	assert.False(t, ok)
}

func TestCacheExpiredEntriesEvicted(t *testing.T) {
	c := NewCache[int](2000, 100*time.Millisecond)
	for i := range 1000 {
		c.Set(fmt.Sprintf("https://x.test/%d", i), i)
	}
	require.Equal(t, 1000, c.lru.Len())

	require.Eventually(t, func() bool { return c.lru.Len() == 0 }, 2*time.Second, 10*time.Millisecond,
		"expired entries must not stay in memory")
	_, ok := c.Get("https://x.test/0")
	assert.False(t, ok, "expected cache miss after TTL expiry")
}

func TestCacheBounded(t *testing.T) {
	c := NewCache[int](3, time.Hour)
	for i := range 10 {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, 3, c.lru.Len())

	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest entry evicted once full")
	v, ok := c.Get("k9")
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache[int](10, 0)
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

// --- Client ---

func testClient(t *testing.T, cfg ClientConfig) *Client {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test"
	}
	return NewClient(cfg, zaptest.NewLogger(t))
}

func TestClientGetCachesBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{CacheTTL: time.Hour})
	for i := 0; i < 3; i++ {
		var out struct{ OK bool }
		require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
		assert.True(t, out.OK)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{BreakerMaxFailures: 1})
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.ErrorIs(t, err, ErrTickerNotFound)
	}
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, ClientConfig{}).Get(context.Background(), srv.URL, nil)
	var httpErr *ErrHTTP
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "upstream broke")
}

func TestClientBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{BreakerMaxFailures: 2, BreakerTimeout: time.Hour})
	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.Error(t, err)
	}

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), "test unavailable")
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach upstream")
}

func TestClientContextCanceled(t *testing.T) {
	c := testClient(t, ClientConfig{RateLimit: 0.001, RateBurst: 1})
	// Drain the single burst token.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "http://127.0.0.1:0", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClientDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := testClient(t, ClientConfig{}).GetJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
