// Package trialcache caches search result sets in a key-value store.
package trialcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/db"
	"github.com/pipelinex/trialscope/internal/domain"
)

// Searcher is the inner pipeline contract the cache decorates.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.Trial, error)
}

// store is the consumer interface for the cache backend (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSearcher caches complete search result sets. Identical queries
// within the TTL are served from the cache; any cache failure falls
// through to the inner searcher.
type CachedSearcher struct {
	inner      Searcher
	store      store
	ttl        time.Duration
	keyPrefix  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner Searcher,
	s store,
	ttl time.Duration,
	keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearcher {
	return &CachedSearcher{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		keyPrefix:  keyPrefix,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Search returns cached trials or runs the inner pipeline. Only
// successful searches are cached; empty result sets are cached too so
// repeated misses do not re-paginate the upstream.
func (c *CachedSearcher) Search(ctx context.Context, query string) ([]domain.Trial, error) {
	key := c.cacheKey(query)

	if trials, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return trials, nil
	}

	c.incCache("miss")

	trials, err := c.inner.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search trials: %w", err)
	}

	c.putToCache(ctx, key, trials)
	return trials, nil
}

func (c *CachedSearcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSearcher) cacheKey(query string) string {
	h := sha256.Sum256([]byte(query))
	return c.keyPrefix + "search:" + hex.EncodeToString(h[:])
}

func (c *CachedSearcher) getFromCache(ctx context.Context, key string) ([]domain.Trial, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached search result", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var trials []domain.Trial
	if err := json.Unmarshal(data, &trials); err != nil {
		c.logger.Warn("Failed to parse cached search result", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return trials, true
}

func (c *CachedSearcher) putToCache(ctx context.Context, key string, trials []domain.Trial) {
	data, err := json.Marshal(trials)
	if err != nil {
		c.logger.Warn("Failed to encode search result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache search result", zap.String("key", key), zap.Error(err))
	}
}
