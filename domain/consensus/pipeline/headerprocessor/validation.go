package headerprocessor

import (
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/domain/consensus/ruleerrors"
	"github.com/dagchain/ghostnode/domain/consensus/utils/difficulty"
)

// preGhostdagValidation implements spec.md §4.6 step 3: parent sanity and
// count bounds. A trusted header still runs this - only the pre/post-PoW
// steps are skipped for trusted submissions.
func (p *Processor) preGhostdagValidation(ctx *processingContext) error {
	if !ctx.isGenesis && len(ctx.header.DirectParents()) == 0 {
		return ruleerrors.New(ruleerrors.MissingParents, "%s declares no direct parents but is not genesis", ctx.hash)
	}
	if len(ctx.header.DirectParents()) > int(p.params.MaxBlockParents) {
		return ruleerrors.New(ruleerrors.InvalidHeaderStructure,
			"%s declares %d direct parents, exceeding the configured maximum of %d",
			ctx.hash, len(ctx.header.DirectParents()), p.params.MaxBlockParents)
	}
	if len(ctx.nonPrunedParents[0]) == 0 {
		return ruleerrors.New(ruleerrors.MissingParents, "%s has no non-pruned parents at level 0", ctx.hash)
	}
	return nil
}

// computeGhostdag implements spec.md §4.6 step 4: per level, reuse a
// previously-stored GhostdagData if present (pruning-proof seeding, or a
// trusted submission's precomputed data), otherwise invoke the engine.
func (p *Processor) computeGhostdag(ctx *processingContext, block *blocktask.Block) error {
	for level := externalapi.BlockLevel(0); int(level) <= int(ctx.blockLevel); level++ {
		if ctx.isTrusted && int(level) < len(block.PrecomputedGhostdag) && block.PrecomputedGhostdag[level] != nil {
			ctx.ghostdagData[level] = block.PrecomputedGhostdag[level]
			continue
		}

		has, err := p.levels[level].ghostdag.Has(p.db, ctx.hash)
		if err != nil {
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "checking ghostdag presence at level %d", level)
		}
		if has {
			data, err := p.levels[level].ghostdag.Get(p.db, ctx.hash)
			if err != nil {
				return ruleerrors.Wrap(ruleerrors.StoreError, err, "reading existing ghostdag data at level %d", level)
			}
			ctx.ghostdagData[level] = data
			continue
		}

		data, err := p.levels[level].ghostdagMgr.GhostdagData(p.db, ctx.header.Bits, ctx.nonPrunedParents[level])
		if err != nil {
			return ruleerrors.Wrap(ruleerrors.StoreError, err, "computing ghostdag data at level %d", level)
		}
		ctx.ghostdagData[level] = data
	}
	return nil
}

// prePoWValidation implements spec.md §4.6 step 5: timestamp deviation,
// difficulty target, parent-selection rule, mergeset-size limit. Skipped
// entirely for trusted headers.
func (p *Processor) prePoWValidation(ctx *processingContext) error {
	selfData := ctx.level0GhostdagData()

	window, medianTime, err := p.pastMedianTime.PastMedianTime(p.db, ctx.hash, selfData)
	if err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "computing past median time")
	}
	ctx.windowForPastMedianTime = window
	if len(window) > 0 && ctx.header.TimeInMilliseconds <= medianTime {
		return ruleerrors.New(ruleerrors.InvalidHeaderStructure,
			"%s timestamp %d does not exceed past median time %d", ctx.hash, ctx.header.TimeInMilliseconds, medianTime)
	}

	diffWindow, expectedBits, err := p.difficulty.RequiredDifficulty(p.db, ctx.hash, selfData)
	if err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "computing required difficulty")
	}
	ctx.windowForDifficulty = diffWindow
	if ctx.header.Bits != expectedBits {
		return ruleerrors.New(ruleerrors.DifficultyMismatch,
			"%s carries bits 0x%08x, expected 0x%08x", ctx.hash, ctx.header.Bits, expectedBits)
	}

	if uint64(len(selfData.MergeSet())) > p.params.MergesetSizeLimit {
		return ruleerrors.New(ruleerrors.MergesetTooLarge,
			"%s mergeset size %d exceeds configured limit %d", ctx.hash, len(selfData.MergeSet()), p.params.MergesetSizeLimit)
	}

	return nil
}

// postPoWValidation implements spec.md §4.6 step 6: the proof-of-work
// check (unless globally disabled) and the merge-depth/finality-point
// computation. Real PoW-arithmetic verification (hashing the header
// against its own target) is an explicit Non-goal, so the check here is
// the structural half any PoW verifier still runs first: the declared
// bits decode to a positive target.
func (p *Processor) postPoWValidation(ctx *processingContext) error {
	if !p.params.SkipProofOfWork {
		target := difficulty.CompactToBig(ctx.header.Bits)
		if target.Sign() <= 0 {
			return ruleerrors.New(ruleerrors.InvalidProofOfWork, "%s carries a non-positive difficulty target", ctx.hash)
		}
	}

	selfData := ctx.level0GhostdagData()
	root, err := p.blockDepth.CalcMergeDepthRoot(p.db, selfData)
	if err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "computing merge-depth root")
	}
	finality, err := p.blockDepth.CalcFinalityPoint(p.db, selfData)
	if err != nil {
		return ruleerrors.Wrap(ruleerrors.StoreError, err, "computing finality point")
	}
	ctx.mergeDepthRoot = root
	ctx.finalityPoint = finality
	return nil
}
