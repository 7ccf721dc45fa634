// Package blockdepthmanager computes the merge-depth root and finality
// point persisted by post-PoW validation (spec.md §4.6 step 6, §4.6.1
// step 6). The original's own `calc_merge_depth_root`/`calc_finality_point`
// bodies were commented out in the retrieved processor.rs (only their call
// sites and the ORIGIN/ORIGIN genesis special-case survive), so this
// rebuilds the standard selected-parent-chain walk every GHOSTDAG
// implementation in this family uses for both notions: starting at a
// block's selected parent, walk up the selected-parent chain until the
// walk has covered `depth` blue-score worth of blocks, and return the
// ancestor found there. Merge-depth root uses the smaller, per-merge
// depth bound; the finality point uses the larger, checkpoint-style bound.
package blockdepthmanager

import (
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

// Manager computes merge-depth roots and finality points for one DAG
// level.
type Manager struct {
	mergeDepth    uint64
	finalityDepth uint64

	ghostdag *ghostdagstore.Store
}

// New creates a block-depth manager.
func New(mergeDepth, finalityDepth uint64, ghostdag *ghostdagstore.Store) *Manager {
	return &Manager{mergeDepth: mergeDepth, finalityDepth: finalityDepth, ghostdag: ghostdag}
}

// CalcMergeDepthRoot returns the merge-depth root for a block whose own
// GhostdagData is selfData.
func (m *Manager) CalcMergeDepthRoot(dbContext database.DataAccessor, selfData *externalapi.GhostdagData) (*externalapi.DomainHash, error) {
	return m.ancestorAtDepth(dbContext, selfData, m.mergeDepth)
}

// CalcFinalityPoint returns the finality point for a block whose own
// GhostdagData is selfData.
func (m *Manager) CalcFinalityPoint(dbContext database.DataAccessor, selfData *externalapi.GhostdagData) (*externalapi.DomainHash, error) {
	return m.ancestorAtDepth(dbContext, selfData, m.finalityDepth)
}

// ancestorAtDepth walks the selected-parent chain starting at
// selfData.SelectedParent until depth blue-score has been covered (or the
// chain reaches ORIGIN), returning whichever block it stops at. Genesis
// (selected parent ORIGIN) always returns ORIGIN for both quantities,
// matching the original's bootstrap special-case.
func (m *Manager) ancestorAtDepth(dbContext database.DataAccessor, selfData *externalapi.GhostdagData, depth uint64) (*externalapi.DomainHash, error) {
	if selfData.SelectedParent == nil || selfData.SelectedParent.IsOrigin() {
		return externalapi.ORIGIN, nil
	}

	current := selfData.SelectedParent
	currentData, err := m.ghostdag.Get(dbContext, current)
	if err != nil {
		return nil, err
	}
	targetBlueScore := selfData.BlueScore
	if targetBlueScore < depth {
		return externalapi.ORIGIN, nil
	}
	targetBlueScore -= depth

	for currentData.BlueScore > targetBlueScore {
		if currentData.SelectedParent == nil || currentData.SelectedParent.IsOrigin() {
			return externalapi.ORIGIN, nil
		}
		current = currentData.SelectedParent
		currentData, err = m.ghostdag.Get(dbContext, current)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}
