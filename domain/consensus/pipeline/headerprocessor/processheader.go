package headerprocessor

import (
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/domain/consensus/ruleerrors"
	"github.com/dagchain/ghostnode/domain/consensus/utils/hashset"
)

// processHeader runs the full pipeline of spec.md §4.6 for one header:
// idempotence check, context construction, validation, GHOSTDAG, commit,
// and counter updates. It returns the header's resulting status, or an
// error if validation failed (in which case, for any invalidating error,
// the status is persisted as Invalid before returning).
func (p *Processor) processHeader(hash *externalapi.DomainHash, block *blocktask.Block) (externalapi.BlockStatus, error) {
	header := block.Header

	// Step 1: idempotence short-circuit.
	existingStatus, found, err := p.statuses.Get(p.db, hash)
	if err != nil {
		return 0, ruleerrors.Wrap(ruleerrors.StoreError, err, "reading status for %s", hash)
	}
	if found {
		if existingStatus == externalapi.StatusInvalid {
			return existingStatus, ruleerrors.New(ruleerrors.KnownInvalid, "%s is already marked invalid", hash)
		}
		return existingStatus, nil
	}

	ctx, err := p.buildContext(hash, header, block)
	if err != nil {
		return 0, err
	}

	if err := p.preGhostdagValidation(ctx); err != nil {
		return p.invalidate(hash, err)
	}

	if err := p.computeGhostdag(ctx, block); err != nil {
		return p.invalidate(hash, err)
	}

	if !ctx.isTrusted {
		if err := p.prePoWValidation(ctx); err != nil {
			return p.invalidate(hash, err)
		}
		if err := p.postPoWValidation(ctx); err != nil {
			return p.invalidate(hash, err)
		}
	} else {
		ctx.mergeDepthRoot = externalapi.ORIGIN
		ctx.finalityPoint = externalapi.ORIGIN
	}

	if err := p.commit(ctx); err != nil {
		return 0, err
	}

	p.counters.HeaderProcessed()
	p.counters.DirectParentEdgesObserved(uint64(len(header.DirectParents())))

	return externalapi.StatusHeaderOnly, nil
}

// buildContext performs spec.md §4.6 step 2: non-pruned parents per
// level, substituting [ORIGIN] for genesis or for a level whose declared
// parents all fell outside relations[level].
func (p *Processor) buildContext(hash *externalapi.DomainHash, header *externalapi.DomainBlockHeader, block *blocktask.Block) (*processingContext, error) {
	isGenesis := len(header.DirectParents()) == 0
	isTrusted := block.IsTrusted()

	blockLevel := p.params.MaxBlockLevel
	if !isGenesis {
		blockLevel = blockLevelFromHash(hash, p.params.MaxBlockLevel)
	}

	if !isGenesis {
		for _, parent := range header.DirectParents() {
			status, found, err := p.statuses.Get(p.db, parent)
			if err != nil {
				return nil, ruleerrors.Wrap(ruleerrors.StoreError, err, "checking status of declared parent %s", parent)
			}
			if found && status == externalapi.StatusInvalid {
				return nil, ruleerrors.New(ruleerrors.KnownInvalid, "%s declares known-invalid parent %s", hash, parent)
			}
		}
	}

	nonPrunedParents := make([][]*externalapi.DomainHash, int(blockLevel)+1)
	for level := externalapi.BlockLevel(0); int(level) <= int(blockLevel); level++ {
		if isGenesis {
			nonPrunedParents[level] = []*externalapi.DomainHash{externalapi.ORIGIN}
			continue
		}
		declared := p.parents.ParentsAtLevel(header, level)
		filtered := make([]*externalapi.DomainHash, 0, len(declared))
		for _, parent := range declared {
			has, err := p.levels[level].relations.Has(p.db, parent)
			if err != nil {
				return nil, ruleerrors.Wrap(ruleerrors.StoreError, err, "checking relations presence at level %d", level)
			}
			if has {
				filtered = append(filtered, parent)
			}
		}
		if len(filtered) == 0 {
			filtered = []*externalapi.DomainHash{externalapi.ORIGIN}
		}
		nonPrunedParents[level] = filtered
	}

	return &processingContext{
		hash:             hash,
		header:           header,
		isGenesis:        isGenesis,
		isTrusted:        isTrusted,
		blockLevel:       blockLevel,
		nonPrunedParents: nonPrunedParents,
		ghostdagData:     make([]*externalapi.GhostdagData, int(blockLevel)+1),
		mergeSetNonDAA:   hashset.New(),
	}, nil
}

// invalidate persists status Invalid for hash in its own tiny batch
// (spec.md §4.6 step 6: "On failure, set status to Invalid and return
// error; the header is never committed to relations/reachability/
// ghostdag") and returns the resulting status/error pair, unless err's
// Kind is one that never marks a hash Invalid (a retryable store error,
// or the header already being known-invalid).
func (p *Processor) invalidate(hash *externalapi.DomainHash, err error) (externalapi.BlockStatus, error) {
	ruleErr, ok := err.(*ruleerrors.RuleError)
	if !ok || !ruleErr.IsInvalidating() {
		return 0, err
	}
	log.Warnf("marking %s invalid: %s", hash, ruleErr)

	batch := p.db.NewBatch()
	guard, setErr := p.statuses.SetBatch(batch, hash, externalapi.StatusInvalid)
	if setErr != nil {
		return 0, err
	}
	if flushErr := p.db.Write(batch); flushErr != nil {
		guard.Release()
		return 0, err
	}
	guard.Release()
	return externalapi.StatusInvalid, err
}
