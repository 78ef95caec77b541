package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/jon4hz/evoting/internal/config"
	"github.com/jon4hz/evoting/internal/database"
)

// Cache key prefixes.
const (
	ResultsCachePrefix = "results-"
	SessionCachePrefix = "session-"
)

// ResultsKey is the key the current tally is stored under.
const ResultsKey = "tally"

type EngineCache struct {
	ResultsCache *PrefixedCache[[]database.TallyRow]

	// resultsVersion is bumped on every invalidation.
	resultsVersion atomic.Uint64
}

func NewEngineCache(cfg *config.CacheConfig) *EngineCache {
	return &EngineCache{
		ResultsCache: New[[]database.TallyRow](cfg, ResultsCachePrefix),
	}
}

// InvalidateResults drops the cached tally. Errors are logged, a stale entry expires on its own.
func (e *EngineCache) InvalidateResults(ctx context.Context) {
	e.resultsVersion.Add(1)
	if err := e.ResultsCache.Delete(ctx, ResultsKey); err != nil && !IsNotFound(err) {
		log.Errorf("failed to invalidate results cache: %v", err)
	}
}

// ResultsVersion returns the current invalidation counter. Take it before reading the tally
// and hand it to StoreResults.
func (e *EngineCache) ResultsVersion() uint64 {
	return e.resultsVersion.Load()
}

// StoreResults caches rows read at version. Nothing is kept if the results were invalidated
// since then. It reports whether the rows were cached.
func (e *EngineCache) StoreResults(ctx context.Context, version uint64, rows []database.TallyRow, ttl time.Duration) (bool, error) {
	if e.ResultsVersion() != version {
		return false, nil
	}
	if err := e.ResultsCache.SetWithTTL(ctx, ResultsKey, rows, ttl); err != nil {
		return false, err
	}
	// an invalidation may have run between the check and the write
	if e.ResultsVersion() != version {
		if err := e.ResultsCache.Delete(ctx, ResultsKey); err != nil && !IsNotFound(err) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
}

func (e *EngineCache) GetStats() []*Stats {
	return []*Stats{
		{
			Stats:     e.ResultsCache.GetStats(),
			CacheName: "results",
		},
	}
}
