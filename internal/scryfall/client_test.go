package scryfall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		name := r.URL.Query().Get("exact")
		if name == "" {
			name = r.URL.Query().Get("fuzzy")
		}
		if name == "Nonexistent" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "` + name + `",
			"image_uris": {"normal": "https://img.example/` + name + `.jpg"},
			"all_parts": [{"name": "Bear Token", "component": "token"}]
		}`))
	}))
}

func TestNamedResolvesAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	card, err := c.Named(context.Background(), "Forest")
	require.NoError(t, err)
	assert.Equal(t, "Forest", card.Name)
	assert.Contains(t, card.ImageURIs["normal"], "Forest")
	require.Len(t, card.AllParts, 1)
	assert.Equal(t, "token", card.AllParts[0].Component)

	// Second lookup is served from cache; also case-insensitive.
	_, err = c.Named(context.Background(), "forest")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, 1, c.CacheSize())
}

func TestNamedNotFound(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	_, err := c.Named(context.Background(), "Nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, c.CacheSize(), "misses are not cached")
}

func TestNamedFuzzy(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	card, err := c.NamedFuzzy(context.Background(), "Grizly Bars")
	require.NoError(t, err)
	assert.Equal(t, "Grizly Bars", card.Name)
}

func TestWarmPrefetchesInBackground(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	c.Warm([]string{"Forest", "Island", "Forest"})

	assert.Eventually(t, func() bool {
		return c.CacheSize() == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Already cached: no new requests.
	before := hits.Load()
	c.Warm([]string{"Forest", "Island"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, hits.Load())
}
