// Package headersselectedtipstore persists the single current
// headers-selected-tip: the admitted header of maximum blue-work, ties
// broken by lexicographic hash (spec.md §3 invariant 4).
package headersselectedtipstore

import (
	"bytes"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

var key = database.MakeBucket([]byte("headers-selected-tip")).Key([]byte("tip"))

// Store is the headers-selected-tip store.
type Store struct {
	mu     sync.RWMutex
	cached *externalapi.SortableBlock
}

// New creates a headers-selected-tip store.
func New() *Store {
	return &Store{}
}

// WriteGuard is held from Write until the owning batch has been
// flushed, per the commit-protocol guard-lifetime discipline of spec.md
// §4.6.1 step 13.
type WriteGuard struct {
	store *Store
}

// Release unlocks the store for reads.
func (g *WriteGuard) Release() {
	g.store.mu.Unlock()
}

// Write acquires the store's write lock without staging a change, used
// when the header processor only needs to read-then-compare the previous
// tip under exclusive access (spec.md §4.6.1 step 8: "Acquire a write
// guard on the headers-selected-tip store, read the previous tip").
func (s *Store) Write() *WriteGuard {
	s.mu.Lock()
	return &WriteGuard{store: s}
}

// Get returns the current selected tip. Must be called either while
// holding the WriteGuard returned by Write, or via Read for a standalone
// query - calling it unlocked races the cache.
func (s *Store) Get(dbContext database.DataAccessor) (*externalapi.SortableBlock, error) {
	if s.cached != nil {
		return s.cached, nil
	}
	serialized, err := dbContext.Get(key)
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	block, err := deserialize(serialized)
	if err != nil {
		return nil, err
	}
	s.cached = block
	return block, nil
}

// Read acquires a read lock and returns the current selected tip, for
// callers outside the commit path that only need a point-in-time read.
func (s *Store) Read(dbContext database.DataAccessor) (*externalapi.SortableBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Get(dbContext)
}

// SetBatch stages a new selected tip into writer. Must be called while
// holding the WriteGuard returned by Write.
func (s *Store) SetBatch(writer database.Writer, block externalapi.SortableBlock) error {
	if err := writer.Put(key, serialize(block)); err != nil {
		return err
	}
	s.cached = &block
	return nil
}

func serialize(block externalapi.SortableBlock) []byte {
	buf := new(bytes.Buffer)
	binaryserialization.WriteHash(buf, block.Hash)
	binaryserialization.WriteBigInt(buf, block.BlueWork)
	return buf.Bytes()
}

func deserialize(serialized []byte) (*externalapi.SortableBlock, error) {
	r := bytes.NewReader(serialized)
	hash, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	blueWork, err := binaryserialization.ReadBigInt(r)
	if err != nil {
		return nil, err
	}
	block := externalapi.NewSortableBlock(hash, blueWork)
	return &block, nil
}
