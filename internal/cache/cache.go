// Package cache keeps built indexes keyed by scene id.
package cache

import (
	"log/slog"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/inamate/bspview/internal/engine"
	"github.com/inamate/bspview/internal/metrics"
)

// TreeCache holds built indexes. An entry is served only when it was built
// from the requested scene version, so a stale index is never returned after
// an edit even if its eviction has not happened yet.
type TreeCache struct {
	data *ristretto.Cache[string, *engine.Index]
}

// New creates a cache holding at most maxTrees indexes.
func New(maxTrees int64) (*TreeCache, error) {
	data, err := ristretto.NewCache(&ristretto.Config[string, *engine.Index]{
		NumCounters: maxTrees * 10,
		MaxCost:     maxTrees,
		BufferItems: 64,
		// Costs count trees, not bytes.
		IgnoreInternalCost: true,
		Cost: func(*engine.Index) int64 {
			return 1
		},
	})
	if err != nil {
		return nil, err
	}
	return &TreeCache{data: data}, nil
}

// Get returns the index for the scene when its version matches.
func (c *TreeCache) Get(sceneID string, version int) (*engine.Index, bool) {
	ix, ok := c.data.Get(sceneID)
	if !ok || ix.Version != version {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return ix, true
}

// Set stores ix under its scene id. The write is applied asynchronously;
// Wait makes it visible. It reports false when the cache dropped the entry.
func (c *TreeCache) Set(ix *engine.Index) bool {
	if !c.data.Set(ix.SceneID, ix, 1) {
		slog.Debug("tree cache dropped index", "scene", ix.SceneID, "version", ix.Version)
		return false
	}
	return true
}

func (c *TreeCache) Del(sceneID string) {
	c.data.Del(sceneID)
}

// Wait blocks until pending writes are applied.
func (c *TreeCache) Wait() {
	c.data.Wait()
}

func (c *TreeCache) Close() {
	c.data.Close()
}
