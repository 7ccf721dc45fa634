// Package reachabilitymanager implements C2 (spec.md §4.2): amortized
// constant-time DAG ancestry queries over a tree of pre-order intervals
// plus future-covering sets, and the staging layer that is the sole way
// the tree mutates.
//
// The allocation scheme follows the shape of the algorithm described in
// original_source's reachability module (interval slicing with
// exponential-decay shares, and a reindex when a subtree exhausts its
// capacity) but trades the original's localized, amortized-O(1) reindex
// for a simpler whole-tree reindex - see DESIGN.md.
package reachabilitymanager

import (
	"sort"

	"github.com/dagchain/ghostnode/domain/consensus/datastructures/reachabilitydatastore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

// rootCapacity is the size of the interval ORIGIN is seeded with, and of
// each fresh whole-tree reindex.
const rootCapacity = uint64(1) << 62

// minSlice is the smallest capacity slice this core will hand a new child
// without first reindexing the tree.
const minSlice = uint64(32)

// Manager is the reachability index: the live store plus the ordering
// guarantee that at most one staging commit is in flight at a time.
type Manager struct {
	store *reachabilitydatastore.Store
}

// New creates a reachability manager over store.
func New(store *reachabilitydatastore.Store) *Manager {
	return &Manager{store: store}
}

// EnsureOrigin seeds ORIGIN's reachability record if absent, giving it
// the whole root capacity. Idempotent.
func (m *Manager) EnsureOrigin(dbContext database.DataAccessor, writer database.Writer) error {
	has, err := m.store.Has(dbContext, externalapi.ORIGIN)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	origin := &reachabilitydatastore.Data{
		Interval:       reachabilitydatastore.Interval{Start: 0, End: rootCapacity},
		NextChildStart: 1,
	}
	return m.store.PutBatch(writer, externalapi.ORIGIN, origin)
}

// IsDagAncestorOf returns whether a is a DAG ancestor of b (or a == b),
// against the live, committed store.
func (m *Manager) IsDagAncestorOf(dbContext database.DataAccessor, a, b *externalapi.DomainHash) (bool, error) {
	m.store.QueryMu.RLock()
	defer m.store.QueryMu.RUnlock()

	aData, err := m.store.Get(dbContext, a)
	if err != nil {
		return false, err
	}
	bData, err := m.store.Get(dbContext, b)
	if err != nil {
		return false, err
	}
	return isAncestorOf(aData, bData), nil
}

func isAncestorOf(aData, bData *reachabilitydatastore.Data) bool {
	if aData.Interval.Contains(bData.Interval) {
		return true
	}
	fcs := aData.FutureCoveringSet
	// Binary search for the last entry whose Interval.Start <= b's Start.
	i := sort.Search(len(fcs), func(i int) bool {
		return fcs[i].Interval.Start > bData.Interval.Start
	})
	if i == 0 {
		return false
	}
	candidate := fcs[i-1]
	return candidate.Interval.Contains(bData.Interval)
}

// Staging accumulates reachability mutations for a single header-commit
// sequence. It is the upgradable read handle described in spec.md §4.2:
// obtained via BeginStaging (which serializes against every other
// staging sequence system-wide), mutated with AddBlock/HintVirtualSelectedParent,
// then promoted to a write via Commit.
type Staging struct {
	manager   *Manager
	dbContext database.DataAccessor

	// overlay holds copy-on-write mutations, keyed by hash, not yet
	// visible to readers of the live store.
	overlay map[externalapi.DomainHash]*reachabilitydatastore.Data
	order   []externalapi.DomainHash // insertion order, for deterministic commit

	hintedParent *externalapi.DomainHash
}

// BeginStaging acquires the store's single in-flight staging slot and
// returns a handle for accumulating mutations. It blocks until any other
// staging sequence currently in flight has released its write guard.
func (m *Manager) BeginStaging(dbContext database.DataAccessor) *Staging {
	m.store.StageMu.Lock()
	return &Staging{
		manager:   m,
		dbContext: dbContext,
		overlay:   make(map[externalapi.DomainHash]*reachabilitydatastore.Data),
	}
}

// Abort releases the staging slot without committing any mutation, for
// use when a later validation step in the same header-commit sequence
// fails before Commit is reached.
func (s *Staging) Abort() {
	s.manager.store.StageMu.Unlock()
}

func (s *Staging) get(hash *externalapi.DomainHash) (*reachabilitydatastore.Data, error) {
	if d, ok := s.overlay[*hash]; ok {
		return d, nil
	}
	d, err := s.manager.store.Get(s.dbContext, hash)
	if err != nil {
		return nil, err
	}
	clone := d.Clone()
	return clone, nil
}

func (s *Staging) put(hash *externalapi.DomainHash, d *reachabilitydatastore.Data) {
	if _, exists := s.overlay[*hash]; !exists {
		s.order = append(s.order, *hash)
	}
	s.overlay[*hash] = d
}

// HintVirtualSelectedParent records hash as the chain the allocator
// should reserve the most capacity for, anticipating that it continues
// to be extended (spec.md §4.6.1 step 8).
func (s *Staging) HintVirtualSelectedParent(hash *externalapi.DomainHash) {
	s.hintedParent = hash
}

// AddBlock inserts hash into the reachability tree as a child of
// reachabilityParent, then merges mergeSet (the new block's mergeset
// excluding its selected parent) into the future-covering sets of those
// ancestors (spec.md §4.2, §4.6.1 step 7).
func (s *Staging) AddBlock(hash, reachabilityParent *externalapi.DomainHash, mergeSet []*externalapi.DomainHash) error {
	if has, err := s.has(hash); err != nil {
		return err
	} else if has {
		return nil // idempotent: already staged or already committed.
	}

	parentData, err := s.get(reachabilityParent)
	if err != nil {
		return err
	}

	interval, err := s.allocateChildInterval(reachabilityParent, parentData)
	if err != nil {
		return err
	}

	child := &reachabilitydatastore.Data{
		Interval:       interval,
		Parent:         reachabilityParent,
		NextChildStart: interval.Start + 1,
	}
	s.put(hash, child)

	parentData.Children = append(parentData.Children, hash)
	s.put(reachabilityParent, parentData)

	for _, ancestor := range mergeSet {
		ancestorData, err := s.get(ancestor)
		if err != nil {
			return err
		}
		ancestorData.FutureCoveringSet = insertSorted(ancestorData.FutureCoveringSet, reachabilitydatastore.FutureCoveringEntry{
			Hash:     hash,
			Interval: interval,
		})
		s.put(ancestor, ancestorData)
	}
	return nil
}

func (s *Staging) has(hash *externalapi.DomainHash) (bool, error) {
	if _, ok := s.overlay[*hash]; ok {
		return true, nil
	}
	return s.manager.store.Has(s.dbContext, hash)
}

func insertSorted(fcs []reachabilitydatastore.FutureCoveringEntry, entry reachabilitydatastore.FutureCoveringEntry) []reachabilitydatastore.FutureCoveringEntry {
	i := sort.Search(len(fcs), func(i int) bool {
		return fcs[i].Interval.Start >= entry.Interval.Start
	})
	if i < len(fcs) && fcs[i].Hash.Equal(entry.Hash) {
		return fcs
	}
	fcs = append(fcs, reachabilitydatastore.FutureCoveringEntry{})
	copy(fcs[i+1:], fcs[i:])
	fcs[i] = entry
	return fcs
}

// allocateChildInterval carves a fresh sub-interval out of parent's
// remaining capacity for one new child, reindexing the whole tree first
// if the parent has run out of room.
func (s *Staging) allocateChildInterval(parentHash *externalapi.DomainHash, parentData *reachabilitydatastore.Data) (reachabilitydatastore.Interval, error) {
	remaining := parentData.RemainingCapacity()
	if remaining < minSlice {
		if err := s.reindexTree(); err != nil {
			return reachabilitydatastore.Interval{}, err
		}
		parentData, _ = s.get(parentHash)
		remaining = parentData.RemainingCapacity()
		if remaining < minSlice {
			return reachabilitydatastore.Interval{}, errors.Errorf("reachability tree exhausted capacity for %s even after reindex", parentHash)
		}
	}

	// Exponential-decay share: the hinted chain-extension child (if any)
	// gets the bulk of what's left; everyone else gets half of it. Either
	// way some capacity is always retained for the next sibling.
	var size uint64
	if s.hintedParent != nil && s.hintedParent.Equal(parentHash) {
		size = remaining - remaining/8
	} else {
		size = remaining / 2
	}
	if size < minSlice {
		size = minSlice
	}

	start := parentData.NextChildStart
	parentData.NextChildStart = start + size
	s.put(parentHash, parentData)

	return reachabilitydatastore.Interval{Start: start, End: start + size}, nil
}

// reindexTree re-numbers every node currently known to the staging
// overlay plus the live store with fresh, generously-sized intervals. A
// whole-tree walk rather than the localized reindex of the original
// algorithm; see DESIGN.md.
func (s *Staging) reindexTree() error {
	all, err := s.allNodes()
	if err != nil {
		return err
	}
	childrenOf := make(map[externalapi.DomainHash][]*externalapi.DomainHash)
	for hash, d := range all {
		if d.Parent != nil {
			childrenOf[*d.Parent] = append(childrenOf[*d.Parent], &hash)
		}
	}

	capacity := s.manager.store.NextReindexCapacity(rootCapacity)
	var assign func(hash *externalapi.DomainHash, interval reachabilitydatastore.Interval) error
	assign = func(hash *externalapi.DomainHash, interval reachabilitydatastore.Interval) error {
		d, err := s.get(hash)
		if err != nil {
			return err
		}
		d.Interval = interval
		children := childrenOf[*hash]
		sort.Slice(children, func(i, j int) bool { return children[i].Less(children[j]) })

		cursor := interval.Start + 1
		share := (interval.End - cursor) / uint64(maxInt(len(children), 1))
		if share < minSlice {
			share = minSlice
		}
		for _, child := range children {
			end := cursor + share
			if end > interval.End {
				end = interval.End
			}
			if err := assign(child, reachabilitydatastore.Interval{Start: cursor, End: end}); err != nil {
				return err
			}
			cursor = end
		}
		d.NextChildStart = cursor
		s.put(hash, d)
		return nil
	}

	return assign(externalapi.ORIGIN, capacity)
}

func (s *Staging) allNodes() (map[externalapi.DomainHash]*reachabilitydatastore.Data, error) {
	all := make(map[externalapi.DomainHash]*reachabilitydatastore.Data)
	for hash, d := range s.overlay {
		all[hash] = d
	}
	// Walk the live tree from ORIGIN, since the in-memory store mirrors
	// every committed node (reachability has no on-disk-only records
	// once loaded, per its commit path).
	root, err := s.get(externalapi.ORIGIN)
	if err != nil {
		return nil, err
	}
	if _, ok := all[*externalapi.ORIGIN]; !ok {
		all[*externalapi.ORIGIN] = root
	}
	queue := append([]*externalapi.DomainHash{}, root.Children...)
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		if _, ok := all[*hash]; ok {
			continue
		}
		d, err := s.get(hash)
		if err != nil {
			return nil, err
		}
		all[*hash] = d
		queue = append(queue, d.Children...)
	}
	return all, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// WriteGuard is held from Commit until the caller's batch flush
// succeeds, per the guard-lifetime discipline of spec.md §4.6.1 step 13.
type WriteGuard struct {
	store *reachabilitydatastore.Store
}

// Release unlocks the live store for reads and frees the single
// in-flight staging slot for the next commit sequence.
func (g *WriteGuard) Release() {
	g.store.QueryMu.Unlock()
	g.store.StageMu.Unlock()
}

// Commit promotes the staging handle to a write: it takes the live
// store's exclusive query lock, applies every staged mutation to the
// in-memory store and serializes it into writer, and returns the held
// write guard for the caller to release after the batch flush succeeds.
func (s *Staging) Commit(writer database.Writer) (*WriteGuard, error) {
	s.manager.store.QueryMu.Lock()
	for _, hash := range s.order {
		h := hash
		if err := s.manager.store.PutBatch(writer, &h, s.overlay[hash]); err != nil {
			s.manager.store.QueryMu.Unlock()
			return nil, err
		}
	}
	return &WriteGuard{store: s.manager.store}, nil
}
