// Package headersstore persists the immutable header blob and block level
// for each admitted hash. Write-once, per spec.md §3 invariant 5.
package headersstore

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

var headerBucket = database.MakeBucket([]byte("headers"))
var levelBucket = database.MakeBucket([]byte("header-levels"))

type entry struct {
	header *externalapi.DomainBlockHeader
	level  externalapi.BlockLevel
}

// Store is the headers store.
type Store struct {
	mu    sync.RWMutex
	cache *lrucache.LRUCache[externalapi.DomainHash, entry]
}

// New creates a headers store.
func New() *Store {
	return &Store{cache: lrucache.New[externalapi.DomainHash, entry](cacheSize)}
}

// InsertBatch stages header and its block level for hash, overwriting any
// entry already present (the header processor checks Has first so
// pruning-proof-seeded headers aren't clobbered).
func (s *Store) InsertBatch(writer database.Writer, hash *externalapi.DomainHash,
	header *externalapi.DomainBlockHeader, level externalapi.BlockLevel) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	serializedHeader := serializeHeader(header)
	if err := writer.Put(headerBucket.Key(hash.ByteSlice()), serializedHeader); err != nil {
		return err
	}
	if err := writer.Put(levelBucket.Key(hash.ByteSlice()), []byte{byte(level)}); err != nil {
		return err
	}
	s.cache.Add(*hash, entry{header: header, level: level})
	return nil
}

// Get returns the header for hash.
func (s *Store) Get(dbContext database.DataAccessor, hash *externalapi.DomainHash) (*externalapi.DomainBlockHeader, error) {
	e, err := s.getEntry(dbContext, hash)
	if err != nil {
		return nil, err
	}
	return e.header, nil
}

// BlockLevel returns the block level of hash.
func (s *Store) BlockLevel(dbContext database.DataAccessor, hash *externalapi.DomainHash) (externalapi.BlockLevel, error) {
	e, err := s.getEntry(dbContext, hash)
	if err != nil {
		return 0, err
	}
	return e.level, nil
}

// Has returns whether hash has a stored header.
func (s *Store) Has(dbContext database.DataAccessor, hash *externalapi.DomainHash) (bool, error) {
	s.mu.RLock()
	if s.cache.Has(*hash) {
		s.mu.RUnlock()
		return true, nil
	}
	s.mu.RUnlock()
	return dbContext.Has(headerBucket.Key(hash.ByteSlice()))
}

func (s *Store) getEntry(dbContext database.DataAccessor, hash *externalapi.DomainHash) (entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.cache.Get(*hash); ok {
		return e, nil
	}

	serializedHeader, err := dbContext.Get(headerBucket.Key(hash.ByteSlice()))
	if err != nil {
		if database.IsNotFoundError(err) {
			return entry{}, errors.Wrapf(err, "header for hash %s not found", hash)
		}
		return entry{}, err
	}
	header, err := deserializeHeader(serializedHeader)
	if err != nil {
		return entry{}, err
	}

	levelBytes, err := dbContext.Get(levelBucket.Key(hash.ByteSlice()))
	if err != nil {
		return entry{}, err
	}
	e := entry{header: header, level: externalapi.BlockLevel(levelBytes[0])}
	s.cache.Add(*hash, e)
	return e, nil
}

func serializeHeader(header *externalapi.DomainBlockHeader) []byte {
	buf := new(bytes.Buffer)
	binaryserialization.WriteUint16(buf, header.Version)
	binaryserialization.WriteUint64(buf, uint64(len(header.ParentsAtLevel)))
	for _, parents := range header.ParentsAtLevel {
		binaryserialization.WriteHashes(buf, parents)
	}
	binaryserialization.WriteHash(buf, &header.HashMerkleRoot)
	binaryserialization.WriteHash(buf, &header.AcceptedIDMerkleRoot)
	binaryserialization.WriteHash(buf, &header.UTXOCommitment)
	binaryserialization.WriteUint64(buf, uint64(header.TimeInMilliseconds))
	binaryserialization.WriteUint32(buf, header.Bits)
	binaryserialization.WriteUint64(buf, header.Nonce)
	binaryserialization.WriteUint64(buf, header.DAAScore)
	binaryserialization.WriteUint64(buf, header.BlueScore)
	blueWork := header.BlueWork
	if blueWork == nil {
		blueWork = big.NewInt(0)
	}
	binaryserialization.WriteBigInt(buf, blueWork)
	binaryserialization.WriteHash(buf, &header.PruningPoint)
	return buf.Bytes()
}

func deserializeHeader(serialized []byte) (*externalapi.DomainBlockHeader, error) {
	r := bytes.NewReader(serialized)
	version, err := binaryserialization.ReadUint16(r)
	if err != nil {
		return nil, err
	}
	levelCount, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	parentsAtLevel := make([][]*externalapi.DomainHash, levelCount)
	for i := uint64(0); i < levelCount; i++ {
		parents, err := binaryserialization.ReadHashes(r)
		if err != nil {
			return nil, err
		}
		parentsAtLevel[i] = parents
	}
	hashMerkleRoot, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	acceptedIDMerkleRoot, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	utxoCommitment, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	timeInMilliseconds, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	bits, err := binaryserialization.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	nonce, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	daaScore, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	blueScore, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	blueWork, err := binaryserialization.ReadBigInt(r)
	if err != nil {
		return nil, err
	}
	pruningPoint, err := binaryserialization.ReadHash(r)
	if err != nil {
		return nil, err
	}
	return &externalapi.DomainBlockHeader{
		Version:              version,
		ParentsAtLevel:       parentsAtLevel,
		HashMerkleRoot:       *hashMerkleRoot,
		AcceptedIDMerkleRoot: *acceptedIDMerkleRoot,
		UTXOCommitment:       *utxoCommitment,
		TimeInMilliseconds:   int64(timeInMilliseconds),
		Bits:                 bits,
		Nonce:                nonce,
		DAAScore:             daaScore,
		BlueScore:            blueScore,
		BlueWork:             blueWork,
		PruningPoint:         *pruningPoint,
	}, nil
}
