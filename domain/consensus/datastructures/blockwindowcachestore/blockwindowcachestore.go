// Package blockwindowcachestore implements the purely optimistic,
// in-memory-only window caches used by the difficulty and past-median-time
// managers (spec.md §4.6.1 step 3): a miss is always recoverable by
// recomputing the window from ghostdag/headers data, so these caches never
// touch the storage engine and never participate in the commit batch.
package blockwindowcachestore

import (
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/lrucache"
)

const defaultCacheSize = 2_000

// WindowBlock is one entry of a block window: the fields the difficulty
// and past-median-time calculations need from an ancestor.
type WindowBlock struct {
	Hash               *externalapi.DomainHash
	TimeInMilliseconds int64
	Bits               uint32
}

// BlockWindowHeap is an ordered window of ancestor blocks, nearest-first.
type BlockWindowHeap []WindowBlock

// Store is a bounded in-memory cache of hash -> BlockWindowHeap.
type Store struct {
	mu    sync.RWMutex
	cache *lrucache.LRUCache[externalapi.DomainHash, BlockWindowHeap]
}

// New creates a block-window cache store with the default bound.
func New() *Store {
	return &Store{cache: lrucache.New[externalapi.DomainHash, BlockWindowHeap](defaultCacheSize)}
}

// Insert records window as the cached window for hash. Never fails: this
// is an optimization, not a durability guarantee.
func (s *Store) Insert(hash *externalapi.DomainHash, window BlockWindowHeap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(*hash, window)
}

// Get returns the cached window for hash, if present.
func (s *Store) Get(hash *externalapi.DomainHash) (BlockWindowHeap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Get(*hash)
}
