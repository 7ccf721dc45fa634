package headerprocessor

import (
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/hashset"
)

// processingContext carries everything accumulated while a single header
// works its way through the pipeline of spec.md §4.6, from context
// construction through commit. One is built per call to processHeader.
type processingContext struct {
	hash   *externalapi.DomainHash
	header *externalapi.DomainBlockHeader

	isGenesis bool
	isTrusted bool

	// blockLevel bounds which levels this header actually participates
	// in: ghostdag/relations/reachability processing runs for levels
	// 0..=blockLevel only (spec.md §4.6 step 2, step 4).
	blockLevel externalapi.BlockLevel

	// nonPrunedParents[level] is the header's parents at level, filtered
	// to those present in relations[level], substituting [ORIGIN] when
	// empty or when isGenesis (spec.md §4.6 step 2). Indexed 0..=blockLevel.
	nonPrunedParents [][]*externalapi.DomainHash

	// ghostdagData[level] is this header's own computed (or reused,
	// or trusted) GhostdagData. Indexed 0..=blockLevel.
	ghostdagData []*externalapi.GhostdagData

	mergeSetNonDAA hashset.HashSet

	windowForDifficulty      blockwindowcachestore.BlockWindowHeap
	windowForPastMedianTime  blockwindowcachestore.BlockWindowHeap

	mergeDepthRoot *externalapi.DomainHash
	finalityPoint  *externalapi.DomainHash
}

// level0GhostdagData is a convenience accessor: level 0 is always present
// since every header participates at level 0.
func (ctx *processingContext) level0GhostdagData() *externalapi.GhostdagData {
	return ctx.ghostdagData[0]
}
