package app

import (
	"os"
	"sync"
	"time"
)

// resultCache keeps per-file results between runs of the same App so a
// watch-triggered rerun only re-parses files whose size or mtime changed.
type resultCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	path  string
	lang  string
	scope string
}

type cacheEntry struct {
	size    int64
	modTime time.Time
	result  FileResult
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[cacheKey]cacheEntry)}
}

func (c *resultCache) lookup(key cacheKey, info os.FileInfo) (FileResult, bool) {
	if c == nil || info == nil {
		return FileResult{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.size != info.Size() || !e.modTime.Equal(info.ModTime()) {
		return FileResult{}, false
	}
	return e.result, true
}

func (c *resultCache) store(key cacheKey, info os.FileInfo, res FileResult) {
	if c == nil || info == nil || res.Err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{size: info.Size(), modTime: info.ModTime(), result: res}
}

// invalidate drops every entry for the given paths.
func (c *resultCache) invalidate(paths []string) {
	if c == nil || len(paths) == 0 {
		return
	}
	drop := make(map[string]bool, len(paths))
	for _, p := range paths {
		drop[p] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if drop[key.path] {
			delete(c.entries, key)
		}
	}
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
