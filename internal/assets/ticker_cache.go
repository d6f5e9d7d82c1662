package assets

import (
	"context"
	"log"
	"sync"
	"time"

	"wavespush/internal/models"
)

// DefaultTickerTTL is how long a resolved ticker stays cached.
const DefaultTickerTTL = 24 * time.Hour

// tickerSource is the lookup the cache wraps; *Client satisfies it.
type tickerSource interface {
	Ticker(ctx context.Context, assetID string) (string, error)
}

type tickerEntry struct {
	ticker    string
	expiresAt time.Time
}

// TickerCache resolves display symbols for assets with a TTL cache in front
// of the assets service. Unknown tickers and lookup failures fall back to the
// asset's id string, so rendering a message never blocks on metadata.
type TickerCache struct {
	source tickerSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[models.Asset]tickerEntry
}

func NewTickerCache(source tickerSource, ttl time.Duration) *TickerCache {
	if ttl <= 0 {
		ttl = DefaultTickerTTL
	}
	return &TickerCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[models.Asset]tickerEntry),
	}
}

// Ticker returns the symbol to display for the asset.
func (c *TickerCache) Ticker(ctx context.Context, asset models.Asset) string {
	if asset.IsWaves() {
		return asset.String()
	}

	c.mu.RLock()
	entry, ok := c.entries[asset]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.ticker
	}

	ticker, err := c.source.Ticker(ctx, asset.String())
	if err != nil {
		log.Printf("[assets] warning: ticker lookup for %s failed: %v", asset, err)
		return asset.String()
	}
	if ticker == "" {
		ticker = asset.String()
	}

	c.mu.Lock()
	c.entries[asset] = tickerEntry{ticker: ticker, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return ticker
}
