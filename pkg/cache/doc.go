// Package cache provides a generic, thread-safe LRU cache.
//
// The broadcast channel keeps one hub per recipient in an LRU so that the
// number of live hubs stays bounded; evicted hubs are closed through the
// eviction callback:
//
//	hubs := cache.New[int64, *hub](10000,
//	    cache.WithEvictCallback(func(_ int64, h *hub) { h.close() }),
//	)
//	h := hubs.GetOrCreate(userID, newHub)
package cache
