// Package reachabilitydatastore is the persisted half of C2 (spec.md
// §4.2): per-block tree intervals and future-covering sets. It exposes
// the live store plus the locking discipline the staging layer needs -
// a query lock guarding concurrent reads, and a single stage lock
// ensuring at most one staging commit is in flight system-wide (spec.md
// §4.2, "Ordering guarantee").
package reachabilitydatastore

import (
	"bytes"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

var baseBucket = database.MakeBucket([]byte("reachability"))

// Interval is a half-open pre-order range [Start, End) identifying a
// node's position, and its subtree's span, in the reachability tree.
type Interval struct {
	Start uint64
	End   uint64
}

// Contains returns whether other is nested within interval - the core
// O(1) tree-ancestry test.
func (interval Interval) Contains(other Interval) bool {
	return interval.Start <= other.Start && other.End <= interval.End
}

// Size returns the number of pre-order slots the interval spans.
func (interval Interval) Size() uint64 {
	return interval.End - interval.Start
}

// FutureCoveringEntry is one member of a node's future-covering set: a
// descendant-by-merge whose own tree subtree interval is recorded so that
// cross-branch ancestry can be tested by interval containment, one level
// deep, rather than by walking the DAG.
type FutureCoveringEntry struct {
	Hash     *externalapi.DomainHash
	Interval Interval
}

// Data is the reachability record for a single block.
type Data struct {
	Interval Interval
	Parent   *externalapi.DomainHash // nil for ORIGIN
	Children []*externalapi.DomainHash

	// NextChildStart is the next unused pre-order slot within Interval,
	// i.e. the low end of the capacity not yet handed out to a child.
	NextChildStart uint64

	FutureCoveringSet []FutureCoveringEntry // sorted by Interval.Start
}

// Clone returns a deep copy of d.
func (d *Data) Clone() *Data {
	clone := &Data{Interval: d.Interval, Parent: d.Parent, NextChildStart: d.NextChildStart}
	clone.Children = externalapi.CloneHashes(d.Children)
	clone.FutureCoveringSet = append([]FutureCoveringEntry{}, d.FutureCoveringSet...)
	return clone
}

// RemainingCapacity returns how much of Interval has not yet been handed
// out to a child.
func (d *Data) RemainingCapacity() uint64 {
	return d.Interval.End - d.NextChildStart
}

// Store is the live, persisted reachability store. Each DAG level gets
// its own Store instance, bucketed independently over the same
// underlying DataAccessor - spec.md requires a distinct reachability
// view per level, mirroring relationsstore and ghostdagstore's own
// per-level bucketing rather than sharing a single fixed bucket.
type Store struct {
	QueryMu sync.RWMutex
	StageMu sync.Mutex

	bucket *database.Bucket
	data   map[externalapi.DomainHash]*Data

	// reindexCounter hands out fresh global capacity when a subtree runs
	// out of interval space. See DESIGN.md for why this core uses a
	// whole-tree reindex rather than the fully amortized localized
	// reindex of the original algorithm.
	reindexCounter uint64
}

// New creates an empty reachability store scoped to level.
func New(level externalapi.BlockLevel) *Store {
	return &Store{
		bucket: baseBucket.Bucket([]byte{byte(level)}),
		data:   make(map[externalapi.DomainHash]*Data),
	}
}

// Get returns the reachability data for hash, reading through to the
// storage engine on a cache miss.
func (s *Store) Get(dbContext database.DataAccessor, hash *externalapi.DomainHash) (*Data, error) {
	if d, ok := s.data[*hash]; ok {
		return d, nil
	}
	serialized, err := dbContext.Get(s.bucket.Key(hash.ByteSlice()))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.Wrapf(err, "reachability data for hash %s not found", hash)
		}
		return nil, err
	}
	d, err := deserialize(serialized)
	if err != nil {
		return nil, err
	}
	s.data[*hash] = d
	return d, nil
}

// Has returns whether hash has reachability data.
func (s *Store) Has(dbContext database.DataAccessor, hash *externalapi.DomainHash) (bool, error) {
	if _, ok := s.data[*hash]; ok {
		return true, nil
	}
	return dbContext.Has(s.bucket.Key(hash.ByteSlice()))
}

// Put inserts or overwrites hash's reachability data directly in memory,
// without touching the storage engine - used by the staging layer when
// promoting to a write and by tests. Callers writing through the normal
// commit path must also call PutBatch so the mutation survives a crash.
func (s *Store) Put(hash *externalapi.DomainHash, d *Data) {
	s.data[*hash] = d
}

// PutBatch stages hash's reachability data into writer and updates the
// in-memory copy.
func (s *Store) PutBatch(writer database.Writer, hash *externalapi.DomainHash, d *Data) error {
	if err := writer.Put(s.bucket.Key(hash.ByteSlice()), serialize(d)); err != nil {
		return err
	}
	s.data[*hash] = d
	return nil
}

// NextReindexCapacity returns a fresh, previously-unused interval of the
// requested size to seed a whole-tree reindex.
func (s *Store) NextReindexCapacity(size uint64) Interval {
	start := s.reindexCounter
	s.reindexCounter += size
	return Interval{Start: start, End: start + size}
}

func serialize(d *Data) []byte {
	buf := new(bytes.Buffer)
	binaryserialization.WriteUint64(buf, d.Interval.Start)
	binaryserialization.WriteUint64(buf, d.Interval.End)
	binaryserialization.WriteUint64(buf, d.NextChildStart)
	if d.Parent == nil {
		binaryserialization.WriteByte(buf, 0)
	} else {
		binaryserialization.WriteByte(buf, 1)
		binaryserialization.WriteHash(buf, d.Parent)
	}
	binaryserialization.WriteHashes(buf, d.Children)
	binaryserialization.WriteUint64(buf, uint64(len(d.FutureCoveringSet)))
	for _, entry := range d.FutureCoveringSet {
		binaryserialization.WriteHash(buf, entry.Hash)
		binaryserialization.WriteUint64(buf, entry.Interval.Start)
		binaryserialization.WriteUint64(buf, entry.Interval.End)
	}
	return buf.Bytes()
}

func deserialize(serialized []byte) (*Data, error) {
	r := bytes.NewReader(serialized)
	start, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	end, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	nextChildStart, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	hasParent, err := binaryserialization.ReadByteValue(r)
	if err != nil {
		return nil, err
	}
	var parent *externalapi.DomainHash
	if hasParent == 1 {
		parent, err = binaryserialization.ReadHash(r)
		if err != nil {
			return nil, err
		}
	}
	children, err := binaryserialization.ReadHashes(r)
	if err != nil {
		return nil, err
	}
	count, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	fcs := make([]FutureCoveringEntry, count)
	for i := uint64(0); i < count; i++ {
		hash, err := binaryserialization.ReadHash(r)
		if err != nil {
			return nil, err
		}
		entryStart, err := binaryserialization.ReadUint64(r)
		if err != nil {
			return nil, err
		}
		entryEnd, err := binaryserialization.ReadUint64(r)
		if err != nil {
			return nil, err
		}
		fcs[i] = FutureCoveringEntry{Hash: hash, Interval: Interval{Start: entryStart, End: entryEnd}}
	}
	return &Data{
		Interval:          Interval{Start: start, End: end},
		NextChildStart:    nextChildStart,
		Parent:            parent,
		Children:          children,
		FutureCoveringSet: fcs,
	}, nil
}
