// Package scryfall resolves card names to artwork metadata. The resolver is
// an external collaborator of the sync core: asynchronous, cached, and never
// on the convergence path.
package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when no card matches the requested name.
var ErrNotFound = errors.New("scryfall: card not found")

// Card is the subset of card metadata the client consumes: face images and
// related-card references.
type Card struct {
	Name      string            `json:"name"`
	ImageURIs map[string]string `json:"image_uris"`
	CardFaces []CardFace        `json:"card_faces"`
	AllParts  []RelatedCard     `json:"all_parts"`
}

// CardFace carries per-face images for double-faced cards.
type CardFace struct {
	Name      string            `json:"name"`
	ImageURIs map[string]string `json:"image_uris"`
}

// RelatedCard references tokens and other cards tied to this one.
type RelatedCard struct {
	Name      string `json:"name"`
	Component string `json:"component"`
}

// Client is a caching name-to-metadata resolver.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Card
}

// NewClient creates a resolver against baseURL (the public API by default).
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		cache:      make(map[string]*Card),
	}
}

// Named resolves a card by exact name, serving repeats from cache.
func (c *Client) Named(ctx context.Context, name string) (*Card, error) {
	return c.named(ctx, name, "exact")
}

// NamedFuzzy resolves a card by fuzzy name match. Fuzzy results are cached
// under the requested name, not the resolved one.
func (c *Client) NamedFuzzy(ctx context.Context, name string) (*Card, error) {
	return c.named(ctx, name, "fuzzy")
}

func (c *Client) named(ctx context.Context, name, mode string) (*Card, error) {
	key := cacheKey(name)

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/cards/named?%s=%s", c.baseURL, mode, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var card Card
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.mu.Lock()
	c.cache[key] = &card
	c.mu.Unlock()

	return &card, nil
}

// Warm prefetches metadata for any uncached names in the background. Errors
// are logged and forgotten; a miss just means no art until the next try.
func (c *Client) Warm(names []string) {
	var missing []string
	c.mu.RLock()
	for _, name := range names {
		if _, ok := c.cache[cacheKey(name)]; !ok {
			missing = append(missing, name)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, name := range missing {
			if _, err := c.Named(ctx, name); err != nil {
				c.logger.Debug("art prefetch failed",
					zap.String("name", name),
					zap.Error(err),
				)
			}
		}
	}()
}

// CacheSize returns the number of cached entries.
func (c *Client) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
