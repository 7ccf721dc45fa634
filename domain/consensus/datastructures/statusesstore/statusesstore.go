// Package statusesstore implements the status half of C3 (spec.md §4.3):
// hash -> BlockStatus. Transitions only ever move forward: absent ->
// HeaderOnly or Invalid; HeaderOnly -> downstream-set states (out of
// scope for this core); Invalid is terminal.
package statusesstore

import (
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/lrucache"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

const cacheSize = 10_000

var bucket = database.MakeBucket([]byte("statuses"))

// Store is the statuses store.
type Store struct {
	mu    sync.RWMutex
	cache *lrucache.LRUCache[externalapi.DomainHash, externalapi.BlockStatus]
}

// New creates a statuses store.
func New() *Store {
	return &Store{cache: lrucache.New[externalapi.DomainHash, externalapi.BlockStatus](cacheSize)}
}

// WriteGuard is held from the moment a status is set in a batch until the
// batch has been flushed, per spec.md §4.3 ("set_batch ... returns a write
// guard that must outlive the batch flush"). It exists purely to document
// and enforce, via the caller holding the mutex released by Release, that
// no reader observes the new status before the corresponding reachability
// update has also landed in the same flush.
type WriteGuard struct {
	store *Store
}

// Release unlocks the store for reads. Must be called only after the
// owning batch has been flushed to the storage engine.
func (g *WriteGuard) Release() {
	g.store.mu.Unlock()
}

// SetBatch stages hash -> status into writer and returns a WriteGuard that
// the caller must hold until the batch has been flushed, then Release.
func (s *Store) SetBatch(writer database.Writer, hash *externalapi.DomainHash, status externalapi.BlockStatus) (*WriteGuard, error) {
	s.mu.Lock()
	key := s.key(hash)
	if err := writer.Put(key, []byte{byte(status)}); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.cache.Add(*hash, status)
	return &WriteGuard{store: s}, nil
}

// Get returns the status of hash, and whether it was found.
func (s *Store) Get(dbContext database.DataAccessor, hash *externalapi.DomainHash) (externalapi.BlockStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status, ok := s.cache.Get(*hash); ok {
		return status, true, nil
	}
	value, err := dbContext.Get(s.key(hash))
	if err != nil {
		if database.IsNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	status := externalapi.BlockStatus(value[0])
	s.cache.Add(*hash, status)
	return status, true, nil
}

// Has returns whether hash has a recorded status.
func (s *Store) Has(dbContext database.DataAccessor, hash *externalapi.DomainHash) (bool, error) {
	_, found, err := s.Get(dbContext, hash)
	return found, err
}

func (s *Store) key(hash *externalapi.DomainHash) *database.Key {
	return bucket.Key(hash.ByteSlice())
}
