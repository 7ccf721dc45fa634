// Package daastore persists the mergeset-non-DAA set computed per header:
// the subset of the mergeset excluded from difficulty-adjustment
// calculations. Write-once, append-only per spec.md §3 invariant 5.
package daastore

import (
	"bytes"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/hashset"
	"github.com/dagchain/ghostnode/domain/consensus/utils/lrucache"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

const cacheSize = 10_000

var bucket = database.MakeBucket([]byte("daa"))

// Store is the mergeset-non-DAA store.
type Store struct {
	mu    sync.RWMutex
	cache *lrucache.LRUCache[externalapi.DomainHash, hashset.HashSet]
}

// New creates a daa store.
func New() *Store {
	return &Store{cache: lrucache.New[externalapi.DomainHash, hashset.HashSet](cacheSize)}
}

// InsertBatch stages the mergeset-non-DAA set for hash.
func (s *Store) InsertBatch(writer database.Writer, hash *externalapi.DomainHash, mergeSetNonDAA hashset.HashSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := new(bytes.Buffer)
	binaryserialization.WriteHashes(buf, mergeSetNonDAA.ToSlice())
	if err := writer.Put(bucket.Key(hash.ByteSlice()), buf.Bytes()); err != nil {
		return err
	}
	s.cache.Add(*hash, mergeSetNonDAA)
	return nil
}

// Get returns the mergeset-non-DAA set for hash.
func (s *Store) Get(dbContext database.DataAccessor, hash *externalapi.DomainHash) (hashset.HashSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if set, ok := s.cache.Get(*hash); ok {
		return set, nil
	}
	serialized, err := dbContext.Get(bucket.Key(hash.ByteSlice()))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.Wrapf(err, "daa set for hash %s not found", hash)
		}
		return nil, err
	}
	hashes, err := binaryserialization.ReadHashes(bytes.NewReader(serialized))
	if err != nil {
		return nil, err
	}
	set := hashset.New(hashes...)
	s.cache.Add(*hash, set)
	return set, nil
}

// Has returns whether hash has a recorded daa set.
func (s *Store) Has(dbContext database.DataAccessor, hash *externalapi.DomainHash) (bool, error) {
	s.mu.RLock()
	if s.cache.Has(*hash) {
		s.mu.RUnlock()
		return true, nil
	}
	s.mu.RUnlock()
	return dbContext.Has(bucket.Key(hash.ByteSlice()))
}
