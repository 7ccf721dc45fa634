// Package ghostdagstore persists the per-header, per-level GhostdagData
// records the GHOSTDAG engine (C4) computes. Write-once: a second insert
// for the same hash with an identical value is a silent no-op, any other
// value is an invariant violation (spec.md §3, invariant 5).
package ghostdagstore

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/lrucache"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

const cacheSize = 10_000

// Store is the ghostdag store for a single DAG level.
type Store struct {
	mu     sync.RWMutex
	bucket *database.Bucket
	cache  *lrucache.LRUCache[externalapi.DomainHash, *externalapi.GhostdagData]
}

// New creates a ghostdag store for the given level.
func New(level externalapi.BlockLevel) *Store {
	return &Store{
		bucket: database.MakeBucket([]byte("ghostdag")).Bucket([]byte{byte(level)}),
		cache:  lrucache.New[externalapi.DomainHash, *externalapi.GhostdagData](cacheSize),
	}
}

// InsertBatch stages a GhostdagData record for hash into writer, unless an
// identical record is already present (in which case it's a no-op). A
// differing existing value is reported as an error: the caller (the
// header processor) is expected to treat it as a consensus bug, never a
// recoverable condition.
func (s *Store) InsertBatch(dbContext database.DataAccessor, writer database.Writer,
	hash *externalapi.DomainHash, data *externalapi.GhostdagData) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := s.getNoLock(dbContext, hash)
	if err != nil {
		return err
	}
	if found {
		if existing.Equal(data) {
			return nil
		}
		return errors.Errorf("ghostdag data for hash %s already exists with a different value", hash)
	}

	serialized := serializeGhostdagData(data)
	if err := writer.Put(s.key(hash), serialized); err != nil {
		return err
	}
	s.cache.Add(*hash, data)
	return nil
}

// Get returns the GhostdagData for hash.
func (s *Store) Get(dbContext database.DataAccessor, hash *externalapi.DomainHash) (*externalapi.GhostdagData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, found, err := s.getNoLock(dbContext, hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Errorf("ghostdag data for hash %s not found", hash)
	}
	return data, nil
}

// Has returns whether hash has a ghostdag record at this level.
func (s *Store) Has(dbContext database.DataAccessor, hash *externalapi.DomainHash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found, err := s.getNoLock(dbContext, hash)
	return found, err
}

func (s *Store) getNoLock(dbContext database.DataAccessor, hash *externalapi.DomainHash) (*externalapi.GhostdagData, bool, error) {
	if data, ok := s.cache.Get(*hash); ok {
		return data, true, nil
	}
	serialized, err := dbContext.Get(s.key(hash))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	data, err := deserializeGhostdagData(serialized)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(*hash, data)
	return data, true, nil
}

func (s *Store) key(hash *externalapi.DomainHash) *database.Key {
	return s.bucket.Key(hash.ByteSlice())
}

func serializeGhostdagData(data *externalapi.GhostdagData) []byte {
	buf := new(bytes.Buffer)
	binaryserialization.WriteUint64(buf, data.BlueScore)
	blueWork := data.BlueWork
	if blueWork == nil {
		blueWork = big.NewInt(0)
	}
	binaryserialization.WriteBigInt(buf, blueWork)
	binaryserialization.WriteHash(buf, data.SelectedParent)
	binaryserialization.WriteHashes(buf, data.MergeSetBlues)
	binaryserialization.WriteHashes(buf, data.MergeSetReds)
	binaryserialization.WriteUint64(buf, uint64(len(data.BluesAnticoneSizes)))
	for hash, size := range data.BluesAnticoneSizes {
		hash := hash
		binaryserialization.WriteHash(buf, &hash)
		binaryserialization.WriteUint16(buf, uint16(size))
	}
	return buf.Bytes()
}

func deserializeGhostdagData(serialized []byte) (*externalapi.GhostdagData, error) {
	r := bytes.NewReader(serialized)
	blueScore, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	blueWork, err := binaryserialization.ReadBigInt(r)
	if err != nil {
		return nil, err
	}
	selectedParent, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	mergeSetBlues, err := binaryserialization.ReadHashes(r)
	if err != nil {
		return nil, err
	}
	mergeSetReds, err := binaryserialization.ReadHashes(r)
	if err != nil {
		return nil, err
	}
	count, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	sizes := make(map[externalapi.DomainHash]externalapi.KType, count)
	for i := uint64(0); i < count; i++ {
		hash, err := binaryserialization.ReadHash(r)
		if err != nil {
			return nil, err
		}
		size, err := binaryserialization.ReadUint16(r)
		if err != nil {
			return nil, err
		}
		sizes[*hash] = externalapi.KType(size)
	}
	return externalapi.NewGhostdagData(blueScore, blueWork, selectedParent, mergeSetBlues, mergeSetReds, sizes), nil
}
