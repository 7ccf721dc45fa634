// Package depthstore persists the merge-depth root and finality point
// computed for each admitted header, used by the block-depth manager to
// enforce merge-depth rules (out of scope here; only the storage is).
// Write-once per spec.md §3 invariant 5.
package depthstore

import (
	"bytes"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/lrucache"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

const cacheSize = 10_000

var bucket = database.MakeBucket([]byte("depth"))

type entry struct {
	mergeDepthRoot *externalapi.DomainHash
	finalityPoint  *externalapi.DomainHash
}

// Store is the depth store.
type Store struct {
	mu    sync.RWMutex
	cache *lrucache.LRUCache[externalapi.DomainHash, entry]
}

// New creates a depth store.
func New() *Store {
	return &Store{cache: lrucache.New[externalapi.DomainHash, entry](cacheSize)}
}

// InsertBatch stages the merge-depth root and finality point for hash.
func (s *Store) InsertBatch(writer database.Writer, hash, mergeDepthRoot, finalityPoint *externalapi.DomainHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := new(bytes.Buffer)
	binaryserialization.WriteHash(buf, mergeDepthRoot)
	binaryserialization.WriteHash(buf, finalityPoint)
	if err := writer.Put(bucket.Key(hash.ByteSlice()), buf.Bytes()); err != nil {
		return err
	}
	s.cache.Add(*hash, entry{mergeDepthRoot: mergeDepthRoot, finalityPoint: finalityPoint})
	return nil
}

// Get returns the merge-depth root and finality point for hash.
func (s *Store) Get(dbContext database.DataAccessor, hash *externalapi.DomainHash) (mergeDepthRoot, finalityPoint *externalapi.DomainHash, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.cache.Get(*hash); ok {
		return e.mergeDepthRoot, e.finalityPoint, nil
	}
	serialized, err := dbContext.Get(bucket.Key(hash.ByteSlice()))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, nil, errors.Wrapf(err, "depth data for hash %s not found", hash)
		}
		return nil, nil, err
	}
	r := bytes.NewReader(serialized)
	root, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, nil, err
	}
	finality, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, nil, err
	}
	s.cache.Add(*hash, entry{mergeDepthRoot: root, finalityPoint: finality})
	return root, finality, nil
}
