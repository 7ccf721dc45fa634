// Package ghostdagmanager implements C4 (spec.md §4.4): the GHOSTDAG
// blue/red classification of a new header's mergeset. One Manager is
// constructed per DAG level, since k and the relevant stores are all
// per-level configuration.
//
// The classification loop is ported from the teacher's
// consensus/ghostdag/ghostdag.go almost algorithm-for-algorithm, adapted
// from its mutable-BlockNode model to the store-based architecture: the
// "chain walk looking for an existing BluesAnticoneSizes entry" and the
// "selected-parent-chain walk stopping at the first already-past
// ancestor" are both kept exactly as the teacher implements them.
package ghostdagmanager

import (
	"math/big"
	"sort"

	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/relationsstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/processes/reachabilitymanager"
	"github.com/dagchain/ghostnode/domain/consensus/utils/difficulty"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

// Manager runs the GHOSTDAG protocol for a single DAG level.
type Manager struct {
	k externalapi.KType

	reachability *reachabilitymanager.Manager
	relations    *relationsstore.Store
	ghostdag     *ghostdagstore.Store
	headers      *headersstore.Store
}

// New creates a GHOSTDAG manager for one level.
func New(k externalapi.KType, reachability *reachabilitymanager.Manager,
	relations *relationsstore.Store, ghostdag *ghostdagstore.Store, headers *headersstore.Store) *Manager {
	return &Manager{k: k, reachability: reachability, relations: relations, ghostdag: ghostdag, headers: headers}
}

// GhostdagData computes a deterministic GhostdagData record for a new
// header given its own difficulty bits and its (non-pruned) parents at
// this level: for the same inputs and the same store contents, two
// invocations produce byte-identical output (spec.md §4.4).
func (m *Manager) GhostdagData(dbContext database.DataAccessor, bits uint32, parents []*externalapi.DomainHash) (*externalapi.GhostdagData, error) {
	if len(parents) == 0 {
		return nil, errors.New("cannot compute ghostdag data with no parents")
	}
	if len(parents) == 1 && parents[0].IsOrigin() {
		return externalapi.NewGhostdagData(
			1, difficulty.CalcWork(bits), externalapi.ORIGIN,
			[]*externalapi.DomainHash{externalapi.ORIGIN}, nil,
			map[externalapi.DomainHash]externalapi.KType{*externalapi.ORIGIN: 0},
		), nil
	}

	selectedParent, err := m.findSelectedParent(dbContext, parents)
	if err != nil {
		return nil, err
	}
	selectedParentData, err := m.blueWorkOf(dbContext, selectedParent)
	if err != nil {
		return nil, err
	}

	candidates, err := m.selectedParentAnticone(dbContext, selectedParent, parents)
	if err != nil {
		return nil, err
	}
	if err := m.sortByMergesetRule(dbContext, candidates); err != nil {
		return nil, err
	}

	blues := []*externalapi.DomainHash{selectedParent}
	anticoneSizes := map[externalapi.DomainHash]externalapi.KType{*selectedParent: 0}

	for _, candidate := range candidates {
		if externalapi.KType(len(blues)) == m.k+1 {
			break
		}

		candidateAnticoneSizes, accumulatedSize, possiblyBlue, err := m.checkBlueCandidate(dbContext, selectedParent, blues, anticoneSizes, candidate)
		if err != nil {
			return nil, err
		}
		if !possiblyBlue {
			continue
		}

		anticoneSizes[*candidate] = accumulatedSize
		for blue, size := range candidateAnticoneSizes {
			anticoneSizes[blue] = size
		}
		blues = append(blues, candidate)
	}

	reds := make([]*externalapi.DomainHash, 0, len(candidates)-(len(blues)-1))
	for _, candidate := range candidates {
		isBlue := false
		for _, blue := range blues {
			if blue.Equal(candidate) {
				isBlue = true
				break
			}
		}
		if !isBlue {
			reds = append(reds, candidate)
		}
	}

	// The new header itself is always blue relative to its own mergeset,
	// so its own work and its own rank both count alongside whichever
	// merge candidates were accepted - this is why blues is seeded with
	// selectedParent rather than starting empty: its length already
	// stands in for "the new header plus every accepted candidate".
	blueWork := new(big.Int).Set(selectedParentData)
	blueWork.Add(blueWork, difficulty.CalcWork(bits))
	for _, blue := range blues[1:] {
		header, err := m.headers.Get(dbContext, blue)
		if err != nil {
			return nil, err
		}
		blueWork.Add(blueWork, difficulty.CalcWork(header.Bits))
	}

	selectedParentGhostdagData, err := m.ghostdag.Get(dbContext, selectedParent)
	if err != nil {
		return nil, err
	}
	blueScore := selectedParentGhostdagData.BlueScore + uint64(len(blues))

	return externalapi.NewGhostdagData(blueScore, blueWork, selectedParent, blues, reds, anticoneSizes), nil
}

// checkBlueCandidate decides whether candidate keeps the k-cluster
// constraint, walking the constructing block's own accumulated blues and
// then the stored selected-parent chain, exactly as the teacher's
// ghostdag.Run does via its "chainBlock" loop.
func (m *Manager) checkBlueCandidate(dbContext database.DataAccessor, selectedParent *externalapi.DomainHash,
	blues []*externalapi.DomainHash, anticoneSizes map[externalapi.DomainHash]externalapi.KType,
	candidate *externalapi.DomainHash) (map[externalapi.DomainHash]externalapi.KType, externalapi.KType, bool, error) {

	candidateAnticoneSizes := make(map[externalapi.DomainHash]externalapi.KType)
	var candidateAnticoneSize externalapi.KType

	first := true
	var chainHash *externalapi.DomainHash

	for {
		var chainBlues []*externalapi.DomainHash
		var nextChainHash *externalapi.DomainHash

		if first {
			chainBlues = blues
			nextChainHash = selectedParent
			first = false
		} else {
			if chainHash == nil || chainHash.IsOrigin() {
				break
			}
			isAncestor, err := m.reachability.IsDagAncestorOf(dbContext, chainHash, candidate)
			if err != nil {
				return nil, 0, false, err
			}
			if isAncestor {
				break
			}
			chainData, err := m.ghostdag.Get(dbContext, chainHash)
			if err != nil {
				return nil, 0, false, err
			}
			chainBlues = chainData.MergeSetBlues
			nextChainHash = chainData.SelectedParent
		}

		possiblyBlue := true
		for _, blue := range chainBlues {
			isAncestor, err := m.reachability.IsDagAncestorOf(dbContext, blue, candidate)
			if err != nil {
				return nil, 0, false, err
			}
			if isAncestor {
				continue
			}

			// The constructing block's own sizes (its selected parent and
			// already-accepted blues) come first, as the stored chain has
			// no entry for them.
			size, ok := anticoneSizes[*blue]
			if !ok {
				size, err = m.blueAnticoneSizeOf(dbContext, selectedParent, candidateAnticoneSizes, blue)
				if err != nil {
					return nil, 0, false, err
				}
			}

			candidateAnticoneSize++
			if candidateAnticoneSize > m.k {
				possiblyBlue = false
				break
			}
			if size+1 > m.k {
				possiblyBlue = false
				break
			}
			candidateAnticoneSizes[*blue] = size + 1
		}
		if !possiblyBlue {
			return nil, 0, false, nil
		}

		chainHash = nextChainHash
	}

	return candidateAnticoneSizes, candidateAnticoneSize, true, nil
}

// blueAnticoneSizeOf returns block's anticone size intersected with the
// constructing header's own blue set: first the candidate's in-progress
// map, then a walk up the stored selected-parent chain looking for the
// nearest BluesAnticoneSizes entry for block - the record of where
// block's anticone last grew.
func (m *Manager) blueAnticoneSizeOf(dbContext database.DataAccessor, selectedParent *externalapi.DomainHash,
	inProgress map[externalapi.DomainHash]externalapi.KType, block *externalapi.DomainHash) (externalapi.KType, error) {

	if size, ok := inProgress[*block]; ok {
		return size, nil
	}

	current := selectedParent
	for {
		if current == nil {
			return 0, errors.Errorf("block %s not found in constructing blue set", block)
		}
		if current.IsOrigin() {
			if block.IsOrigin() {
				return 0, nil
			}
			return 0, errors.Errorf("block %s not found in constructing blue set", block)
		}
		data, err := m.ghostdag.Get(dbContext, current)
		if err != nil {
			return 0, err
		}
		if size, ok := data.BluesAnticoneSizes[*block]; ok {
			return size, nil
		}
		current = data.SelectedParent
	}
}

// findSelectedParent returns the parent of maximum blue-work, ties
// broken by lexicographic hash (spec.md §4.4 step 1).
func (m *Manager) findSelectedParent(dbContext database.DataAccessor, parents []*externalapi.DomainHash) (*externalapi.DomainHash, error) {
	best := parents[0]
	bestWork, err := m.blueWorkOf(dbContext, best)
	if err != nil {
		return nil, err
	}
	bestSortable := externalapi.NewSortableBlock(best, bestWork)

	for _, parent := range parents[1:] {
		work, err := m.blueWorkOf(dbContext, parent)
		if err != nil {
			return nil, err
		}
		sortable := externalapi.NewSortableBlock(parent, work)
		if sortable.Greater(bestSortable) {
			best = parent
			bestSortable = sortable
		}
	}
	return best, nil
}

func (m *Manager) blueWorkOf(dbContext database.DataAccessor, hash *externalapi.DomainHash) (*big.Int, error) {
	if hash.IsOrigin() {
		return big.NewInt(0), nil
	}
	data, err := m.ghostdag.Get(dbContext, hash)
	if err != nil {
		return nil, err
	}
	return data.BlueWork, nil
}

// selectedParentAnticone returns the anticone of selectedParent among
// the new header's parents: start the queue with every parent but
// selectedParent, then breadth-first expand through relations, pruning
// whatever turns out to already be in selectedParent's past (spec.md
// §4.4 step 2), exactly as the teacher's selectedParentAnticone does.
func (m *Manager) selectedParentAnticone(dbContext database.DataAccessor, selectedParent *externalapi.DomainHash,
	parents []*externalapi.DomainHash) ([]*externalapi.DomainHash, error) {

	inAnticone := make(map[externalapi.DomainHash]struct{})
	inSelectedParentPast := make(map[externalapi.DomainHash]struct{})
	var anticone []*externalapi.DomainHash
	var queue []*externalapi.DomainHash

	for _, parent := range parents {
		if parent.Equal(selectedParent) {
			continue
		}
		inAnticone[*parent] = struct{}{}
		anticone = append(anticone, parent)
		queue = append(queue, parent)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		currentParents, err := m.relations.ParentsOf(dbContext, current)
		if err != nil {
			return nil, err
		}
		for _, parent := range currentParents {
			if _, ok := inAnticone[*parent]; ok {
				continue
			}
			if _, ok := inSelectedParentPast[*parent]; ok {
				continue
			}
			isAncestor, err := m.reachability.IsDagAncestorOf(dbContext, parent, selectedParent)
			if err != nil {
				return nil, err
			}
			if isAncestor {
				inSelectedParentPast[*parent] = struct{}{}
				continue
			}
			inAnticone[*parent] = struct{}{}
			anticone = append(anticone, parent)
			queue = append(queue, parent)
		}
	}
	return anticone, nil
}

// sortByMergesetRule orders candidates by blue-work descending, hash
// ascending (spec.md §4.4 step 3).
func (m *Manager) sortByMergesetRule(dbContext database.DataAccessor, candidates []*externalapi.DomainHash) error {
	sortables := make([]externalapi.SortableBlock, len(candidates))
	for i, candidate := range candidates {
		work, err := m.blueWorkOf(dbContext, candidate)
		if err != nil {
			return err
		}
		sortables[i] = externalapi.NewSortableBlock(candidate, work)
	}
	sort.Slice(sortables, func(i, j int) bool {
		return sortables[i].Less(sortables[j])
	})
	for i, sortable := range sortables {
		candidates[i] = sortable.Hash
	}
	return nil
}
