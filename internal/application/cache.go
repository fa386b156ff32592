package application

import (
	"context"
	"encoding/json"
	"time"

	"cryptoprice-service/internal/domain"

	"go.uber.org/zap"
)

const (
	// CacheFreshness decides hits. Entries are kept for CacheExpiry so the
	// store deleting late never serves a quote older than CacheFreshness.
	CacheFreshness = 60 * time.Second
	CacheExpiry    = 120 * time.Second
)

type cacheEntry struct {
	Quote     domain.PriceQuote `json:"quote"`
	WrittenAt time.Time         `json:"writtenAt"`
}

// PriceCache is a read-through cache of quotes keyed by asset id. Store
// failures degrade to misses; the cache is never required for correctness.
type PriceCache struct {
	store CacheStore
	clock Clock
	log   *zap.Logger
}

func NewPriceCache(store CacheStore, opts ...Option) *PriceCache {
	o := newOptions(opts)
	return &PriceCache{store: store, clock: o.clock, log: o.log.With(zap.String("component", "price_cache"))}
}

// Get returns the cached quote for assetID if it was written less than
// CacheFreshness ago.
func (c *PriceCache) Get(ctx context.Context, assetID string) (domain.PriceQuote, bool) {
	if c == nil || c.store == nil {
		return domain.PriceQuote{}, false
	}
	key := domain.CacheKey(assetID)
	log := scoped(ctx, c.log).With(zap.String("key", key))

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn("cache.get_failed", zap.Error(err))
		return domain.PriceQuote{}, false
	}
	if !ok {
		return domain.PriceQuote{}, false
	}
	var e cacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		log.Warn("cache.entry_corrupt", zap.Error(err))
		return domain.PriceQuote{}, false
	}
	age := c.clock.Now().Sub(e.WrittenAt)
	if age >= CacheFreshness {
		log.Debug("cache.stale", zap.Duration("age", age))
		return domain.PriceQuote{}, false
	}
	return e.Quote, true
}

// Put overwrites the entry for assetID. Errors are logged, not returned.
func (c *PriceCache) Put(ctx context.Context, assetID string, q domain.PriceQuote) {
	if c == nil || c.store == nil {
		return
	}
	key := domain.CacheKey(assetID)
	raw, err := json.Marshal(cacheEntry{Quote: q, WrittenAt: c.clock.Now().UTC()})
	if err != nil {
		scoped(ctx, c.log).Warn("cache.encode_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, CacheExpiry); err != nil {
		scoped(ctx, c.log).Warn("cache.put_failed", zap.String("key", key), zap.Error(err))
	}
}
