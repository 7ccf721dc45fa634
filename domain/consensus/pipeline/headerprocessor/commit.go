package headerprocessor

import (
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/processes/reachabilitymanager"
	"github.com/dagchain/ghostnode/domain/consensus/ruleerrors"
)

// commit runs the atomicity-critical path of spec.md §4.6.1: every store
// that records the new header is written through a single batch handle,
// and the guards serializing readers against the reachability/tip/status
// mutation are released only after the flush succeeds.
func (p *Processor) commit(ctx *processingContext) error {
	batch := p.db.NewBatch()

	// Step 2: ghostdag data per level, idempotent on an identical
	// re-insert (trusted or pruning-proof-seeded headers).
	for level := externalapi.BlockLevel(0); int(level) <= int(ctx.blockLevel); level++ {
		if err := p.levels[level].ghostdag.InsertBatch(p.db, batch, ctx.hash, ctx.ghostdagData[level]); err != nil {
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "committing ghostdag data at level %d", level)
		}
	}

	// Step 3: difficulty/past-median-time windows are cache-only, never
	// part of the crash-atomic batch - a miss just costs a recompute.
	p.windowCacheDifficulty.Insert(ctx.hash, ctx.windowForDifficulty)
	p.windowCachePastMedianTime.Insert(ctx.hash, ctx.windowForPastMedianTime)

	// Step 4.
	if err := p.daa.InsertBatch(batch, ctx.hash, ctx.mergeSetNonDAA); err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "committing daa set")
	}

	// Step 5: skip if a pruning-proof application already seeded it.
	hasHeader, err := p.headers.Has(p.db, ctx.hash)
	if err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "checking header presence")
	}
	if !hasHeader {
		if err := p.headers.InsertBatch(batch, ctx.hash, ctx.header, ctx.blockLevel); err != nil {
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "committing header blob")
		}
	}

	// Step 6.
	if err := p.depth.InsertBatch(batch, ctx.hash, ctx.mergeDepthRoot, ctx.finalityPoint); err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "committing depth data")
	}

	// Step 7: stage reachability at every level this header participates
	// in. Each level's store has its own StageMu, so one staging handle
	// per level is held concurrently, same as one ghostdag manager per
	// level operates independently.
	stagings := make([]*reachabilitymanager.Staging, int(ctx.blockLevel)+1)
	for level := externalapi.BlockLevel(0); int(level) <= int(ctx.blockLevel); level++ {
		staging := p.levels[level].reachMgr.BeginStaging(p.db)
		stagings[level] = staging

		reachParent, mergeSet := p.reachabilityParentAndMergeSet(ctx, level)
		if err := staging.AddBlock(ctx.hash, reachParent, mergeSet); err != nil {
			abortStagings(stagings[:level+1])
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "staging reachability at level %d", level)
		}
	}

	// Step 8: update the selected tip, driven by level 0 only - the
	// selected tip is a single, DAG-wide notion, not a per-level one.
	tipGuard := p.selectedTip.Write()
	prevTip, err := p.selectedTip.Get(p.db)
	if err != nil {
		tipGuard.Release()
		abortStagings(stagings)
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "reading previous selected tip")
	}
	newTip := externalapi.NewSortableBlock(ctx.hash, ctx.level0GhostdagData().BlueWork)
	if prevTip == nil || newTip.Greater(*prevTip) {
		stagings[0].HintVirtualSelectedParent(ctx.hash)
		if err := p.selectedTip.SetBatch(batch, newTip); err != nil {
			tipGuard.Release()
			abortStagings(stagings)
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "staging new selected tip")
		}
	}

	// Step 9: relations per level, each Insert a no-op if already present.
	for level := externalapi.BlockLevel(0); int(level) <= int(ctx.blockLevel); level++ {
		if err := p.levels[level].relations.Insert(p.db, batch, ctx.hash, ctx.nonPrunedParents[level]); err != nil {
			tipGuard.Release()
			abortStagings(stagings)
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "committing relations at level %d", level)
		}
	}

	// Step 10.
	statusGuard, err := p.statuses.SetBatch(batch, ctx.hash, externalapi.StatusHeaderOnly)
	if err != nil {
		tipGuard.Release()
		abortStagings(stagings)
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "staging status")
	}

	// Step 11.
	reachGuards := make([]*reachabilitymanager.WriteGuard, int(ctx.blockLevel)+1)
	for level := externalapi.BlockLevel(0); int(level) <= int(ctx.blockLevel); level++ {
		guard, err := stagings[level].Commit(batch)
		if err != nil {
			statusGuard.Release()
			tipGuard.Release()
			for _, g := range reachGuards {
				if g != nil {
					g.Release()
				}
			}
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "committing reachability staging at level %d", level)
		}
		reachGuards[level] = guard
	}

	// Step 12.
	if err := p.db.Write(batch); err != nil {
		statusGuard.Release()
		tipGuard.Release()
		for _, g := range reachGuards {
			g.Release()
		}
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "flushing commit batch")
	}

	// Step 13: only after the flush has landed.
	statusGuard.Release()
	tipGuard.Release()
	for _, g := range reachGuards {
		g.Release()
	}
	return nil
}

// reachabilityParentAndMergeSet computes the two reachability::add_block
// inputs for level (spec.md §4.6.1 step 7): the reachability-parent is
// ORIGIN when this header's non-pruned parents at level collapsed to
// [ORIGIN] (genesis, or every parent pruned away), otherwise the level's
// own selected parent; the mergeset is the header's mergeset excluding
// its own selected parent, filtered to ancestors reachability already
// knows about at commit time (see DESIGN.md for the snapshot caveat this
// inherits from spec.md §9 Open Question 1).
func (p *Processor) reachabilityParentAndMergeSet(ctx *processingContext, level externalapi.BlockLevel) (*externalapi.DomainHash, []*externalapi.DomainHash) {
	parents := ctx.nonPrunedParents[level]
	data := ctx.ghostdagData[level]

	var reachParent *externalapi.DomainHash
	if len(parents) == 1 && parents[0].IsOrigin() {
		reachParent = externalapi.ORIGIN
	} else {
		reachParent = data.SelectedParent
	}

	fullMergeSet := data.MergeSet()
	mergeSet := make([]*externalapi.DomainHash, 0, len(fullMergeSet))
	for _, candidate := range fullMergeSet {
		if candidate.Equal(data.SelectedParent) {
			continue
		}
		has, err := p.levels[level].reachability.Has(p.db, candidate)
		if err != nil || !has {
			continue
		}
		mergeSet = append(mergeSet, candidate)
	}
	return reachParent, mergeSet
}

func abortStagings(stagings []*reachabilitymanager.Staging) {
	for _, s := range stagings {
		if s != nil {
			s.Abort()
		}
	}
}
