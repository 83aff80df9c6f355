package persistent

import lru "github.com/hashicorp/golang-lru"

// NodeCache caches immutable nodes by their content address. It serves two
// jobs: loads of already-seen nodes return the identical in-memory node, and
// flushes of already-stored content skip the store round trip. Invalidate or
// swap the cache when switching to a different Persist, since Contains() is
// trusted to mean "already stored there".
type NodeCache interface {
	// Add adds a freshly-persisted or freshly-loaded node to the cache.
	Add(key, value interface{})
	// Contains indicates the node with the given address has already been
	// persisted.
	Contains(key interface{}) bool
	// Get retrieves the already-materialized node with the given address,
	// if cached.
	Get(key interface{}) (value interface{}, ok bool)
}

// NewNodeCache creates a new LRU-based node cache of the given size. One
// cache can be shared by any number of map versions.
func NewNodeCache(size int) NodeCache {
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}
