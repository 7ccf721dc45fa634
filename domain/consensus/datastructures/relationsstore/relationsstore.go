// Package relationsstore implements C3 of the consensus core: the
// per-level parent/child adjacency of spec.md §4.3. Relations[level]
// stores the parent list for each admitted hash at that level and
// materializes children by reverse-indexing; children reads return a
// shared read-only handle so readers never race a concurrent insertion.
package relationsstore

import (
	"bytes"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/lrucache"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

const parentsCacheSize = 10_000

// Store is the relations store for a single DAG level.
type Store struct {
	mu sync.RWMutex

	level  externalapi.BlockLevel
	bucket *database.Bucket

	parentsCache  *lrucache.LRUCache[externalapi.DomainHash, []*externalapi.DomainHash]
	childrenCache map[externalapi.DomainHash]map[externalapi.DomainHash]struct{}
}

// New creates a relations store for the given level.
func New(level externalapi.BlockLevel) *Store {
	return &Store{
		level:         level,
		bucket:        database.MakeBucket([]byte("relations")).Bucket([]byte{byte(level)}),
		parentsCache:  lrucache.New[externalapi.DomainHash, []*externalapi.DomainHash](parentsCacheSize),
		childrenCache: make(map[externalapi.DomainHash]map[externalapi.DomainHash]struct{}),
	}
}

// Insert writes the parents of hash at this level, building the reverse
// children index in memory as a side effect. Per spec.md §4.3, insertion
// is batched, and a hash is inserted at level ℓ only if it has not yet
// been inserted there.
func (s *Store) Insert(dbContext database.DataAccessor, writer database.Writer, hash *externalapi.DomainHash,
	parents []*externalapi.DomainHash) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	has, err := s.hasNoLock(dbContext, hash)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	serialized := serializeHashes(parents)
	if err := writer.Put(s.key(hash), serialized); err != nil {
		return err
	}
	s.parentsCache.Add(*hash, parents)

	if _, ok := s.childrenCache[*hash]; !ok {
		s.childrenCache[*hash] = make(map[externalapi.DomainHash]struct{})
	}
	for _, parent := range parents {
		s.addChildNoLock(*parent, *hash)
	}
	return nil
}

// addChildNoLock is copy-on-write: a map already handed out by ChildrenOf
// is never mutated, so a reader holding one does not race this insertion.
func (s *Store) addChildNoLock(parent, child externalapi.DomainHash) {
	existing := s.childrenCache[parent]
	children := make(map[externalapi.DomainHash]struct{}, len(existing)+1)
	for hash := range existing {
		children[hash] = struct{}{}
	}
	children[child] = struct{}{}
	s.childrenCache[parent] = children
}

// ParentsOf returns the parents of hash at this level.
func (s *Store) ParentsOf(dbContext database.DataAccessor, hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parentsOfNoLock(dbContext, hash)
}

func (s *Store) parentsOfNoLock(dbContext database.DataAccessor, hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	if parents, ok := s.parentsCache.Get(*hash); ok {
		return parents, nil
	}
	serialized, err := dbContext.Get(s.key(hash))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.Wrapf(err, "hash %s not found in relations at level %d", hash, s.level)
		}
		return nil, err
	}
	parents, err := deserializeHashes(serialized)
	if err != nil {
		return nil, err
	}
	s.parentsCache.Add(*hash, parents)
	return parents, nil
}

// ChildrenOf returns a shared read-only view over the children of hash.
// Callers must not mutate the returned map.
func (s *Store) ChildrenOf(dbContext database.DataAccessor, hash *externalapi.DomainHash) (map[externalapi.DomainHash]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if children, ok := s.childrenCache[*hash]; ok {
		return children, nil
	}

	// Not warmed in memory yet (e.g. after a restart): rebuild by
	// scanning every relations entry. This only happens once per hash,
	// the common path is the in-process reverse index built at Insert
	// time.
	children := make(map[externalapi.DomainHash]struct{})
	cursor, err := dbContext.Cursor(s.bucket)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()
	for cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return nil, err
		}
		childHash, err := externalapi.NewDomainHashFromByteSlice(key.Suffix())
		if err != nil {
			return nil, err
		}
		value, err := cursor.Value()
		if err != nil {
			return nil, err
		}
		parents, err := deserializeHashes(value)
		if err != nil {
			return nil, err
		}
		for _, parent := range parents {
			if parent.Equal(hash) {
				children[*childHash] = struct{}{}
				break
			}
		}
	}
	s.childrenCache[*hash] = children
	return children, nil
}

// Has returns whether hash has been inserted at this level.
func (s *Store) Has(dbContext database.DataAccessor, hash *externalapi.DomainHash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasNoLock(dbContext, hash)
}

func (s *Store) hasNoLock(dbContext database.DataAccessor, hash *externalapi.DomainHash) (bool, error) {
	if s.parentsCache.Has(*hash) {
		return true, nil
	}
	return dbContext.Has(s.key(hash))
}

func (s *Store) key(hash *externalapi.DomainHash) *database.Key {
	return s.bucket.Key(hash.ByteSlice())
}

func serializeHashes(hashes []*externalapi.DomainHash) []byte {
	buf := new(bytes.Buffer)
	binaryserialization.WriteHashes(buf, hashes)
	return buf.Bytes()
}

func deserializeHashes(data []byte) ([]*externalapi.DomainHash, error) {
	return binaryserialization.ReadHashes(bytes.NewReader(data))
}
