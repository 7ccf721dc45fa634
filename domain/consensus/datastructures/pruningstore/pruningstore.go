// Package pruningstore persists the PruningPointInfo record: mutable, but
// monotonic in index (spec.md §3).
package pruningstore

import (
	"bytes"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

var key = database.MakeBucket([]byte("pruning")).Key([]byte("info"))

// Store is the pruning-point store.
type Store struct {
	mu       sync.RWMutex
	cached   *externalapi.PruningPointInfo
	hasCache bool
}

// New creates a pruning store.
func New() *Store {
	return &Store{}
}

// Set stages a new PruningPointInfo, enforcing that the index is
// monotonically non-decreasing.
func (s *Store) Set(dbContext database.DataAccessor, writer database.Writer, info *externalapi.PruningPointInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasCache && info.Index < s.cached.Index {
		return errors.Errorf("pruning point index must be monotonic: tried to set index %d after %d", info.Index, s.cached.Index)
	}

	buf := new(bytes.Buffer)
	binaryserialization.WriteHash(buf, info.PruningPoint)
	binaryserialization.WriteHash(buf, info.CandidatePruningPoint)
	binaryserialization.WriteUint64(buf, info.Index)
	if err := writer.Put(key, buf.Bytes()); err != nil {
		return err
	}
	s.cached = info
	s.hasCache = true
	return nil
}

// Get returns the current PruningPointInfo.
func (s *Store) Get(dbContext database.DataAccessor) (*externalapi.PruningPointInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.hasCache {
		return s.cached, nil
	}
	serialized, err := dbContext.Get(key)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(serialized)
	pruningPoint, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	candidate, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	index, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	return externalapi.NewPruningPointInfo(pruningPoint, candidate, index), nil
}
