package headerprocessor

import (
	"math/big"

	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/domain/consensus/ruleerrors"
)

// ProcessOriginIfNeeded implements spec.md §4.6.2's first bootstrap
// routine: if ORIGIN is absent from relations[0], insert it with empty
// parents at every level in a single batch, seed its reachability record
// at every level (an adaptation this core's per-level reachability
// requires - see DESIGN.md), and set the selected tip to (ORIGIN, 0).
// Idempotent: a second call is a no-op.
func (p *Processor) ProcessOriginIfNeeded() error {
	has, err := p.levels[0].relations.Has(p.db, externalapi.ORIGIN)
	if err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "checking ORIGIN presence")
	}
	if has {
		return nil
	}

	batch := p.db.NewBatch()
	for level := externalapi.BlockLevel(0); int(level) <= int(p.params.MaxBlockLevel); level++ {
		if err := p.levels[level].relations.Insert(p.db, batch, externalapi.ORIGIN, nil); err != nil {
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "inserting ORIGIN relations at level %d", level)
		}
		if err := p.levels[level].reachMgr.EnsureOrigin(p.db, batch); err != nil {
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "seeding ORIGIN reachability at level %d", level)
		}
	}

	tipGuard := p.selectedTip.Write()
	if err := p.selectedTip.SetBatch(batch, externalapi.NewSortableBlock(externalapi.ORIGIN, big.NewInt(0))); err != nil {
		tipGuard.Release()
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "staging ORIGIN as selected tip")
	}
	if err := p.db.Write(batch); err != nil {
		tipGuard.Release()
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "flushing ORIGIN bootstrap batch")
	}
	tipGuard.Release()
	return nil
}

// ProcessGenesisIfNeeded implements spec.md §4.6.2's second bootstrap
// routine: if genesis processing is enabled and genesis has not already
// been committed, provisionally set the selected tip to (genesis, 0) and
// the pruning point to (genesis, genesis, 0), then build a synthetic
// header-processing context (empty windows, ORIGIN merge-depth-root and
// finality-point, max block level) and run it through the same commit
// path every other header uses.
func (p *Processor) ProcessGenesisIfNeeded() error {
	if !p.params.ProcessGenesis {
		return nil
	}
	processed, err := p.statuses.Has(p.db, p.params.GenesisHash)
	if err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "checking genesis status")
	}
	if processed {
		return nil
	}

	tipBatch := p.db.NewBatch()
	tipGuard := p.selectedTip.Write()
	if err := p.selectedTip.SetBatch(tipBatch, externalapi.NewSortableBlock(p.params.GenesisHash, big.NewInt(0))); err != nil {
		tipGuard.Release()
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "staging provisional genesis tip")
	}
	if err := p.db.Write(tipBatch); err != nil {
		tipGuard.Release()
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "flushing provisional genesis tip")
	}
	tipGuard.Release()

	pruningBatch := p.db.NewBatch()
	if err := p.pruning.Set(p.db, pruningBatch, externalapi.PruningPointInfoFromGenesis(p.params.GenesisHash)); err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "staging genesis pruning point")
	}
	if err := p.db.Write(pruningBatch); err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "flushing genesis pruning point")
	}

	genesisHeader := &externalapi.DomainBlockHeader{
		ParentsAtLevel:     nil,
		TimeInMilliseconds: p.params.GenesisTimestamp,
		Bits:               p.params.GenesisBits,
	}
	genesisBlock := &blocktask.Block{Header: genesisHeader}

	ctx, err := p.buildContext(p.params.GenesisHash, genesisHeader, genesisBlock)
	if err != nil {
		return err
	}
	if err := p.computeGhostdag(ctx, genesisBlock); err != nil {
		return err
	}
	ctx.mergeDepthRoot = externalapi.ORIGIN
	ctx.finalityPoint = externalapi.ORIGIN

	return p.commit(ctx)
}
