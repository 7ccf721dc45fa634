package headerprocessor

import (
	"testing"

	"github.com/dagchain/ghostnode/dagconfig"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/daastore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/depthstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersselectedtipstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/pruningstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/statusesstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/domain/consensus/processes/processingcounters"
	"github.com/dagchain/ghostnode/domain/consensus/ruleerrors"
	"github.com/dagchain/ghostnode/domain/consensus/utils/hashserialization"
	"github.com/dagchain/ghostnode/infrastructure/db/memdb"
	"github.com/stretchr/testify/require"
)

// TestScenarioS1GenesisBootstrap covers spec §8 S1: starting empty and
// running both bootstrap routines leaves ORIGIN parentless, GENESIS with
// ORIGIN as its sole parent at every level, the selected tip at GENESIS,
// and GENESIS's status HeaderOnly.
func TestScenarioS1GenesisBootstrap(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	originParents, err := h.processor.levels[0].relations.ParentsOf(h.processor.db, externalapi.ORIGIN)
	require.NoError(t, err)
	require.Empty(t, originParents)

	for level := range h.processor.levels {
		parents, err := h.processor.levels[level].relations.ParentsOf(h.processor.db, genesisHash)
		require.NoError(t, err)
		require.Len(t, parents, 1)
		require.True(t, parents[0].Equal(externalapi.ORIGIN))
	}

	tip, err := h.processor.selectedTip.Get(h.processor.db)
	require.NoError(t, err)
	require.True(t, tip.Hash.Equal(genesisHash))

	status, found, err := h.processor.statuses.Get(h.processor.db, genesisHash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, externalapi.StatusHeaderOnly, status)
}

// TestScenarioS2LinearChain covers spec §8 S2: H1 (parent genesis) then H2
// (parent H1) both admit, the tip advances to H2, and ancestry is
// directional.
func TestScenarioS2LinearChain(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	h1Hash := hash(40)
	h1 := childHeader(genesisHash, 1000)
	_, err := h.processor.processHeader(h1Hash, &blocktask.Block{Header: h1})
	require.NoError(t, err)

	h2Hash := hash(41)
	h2 := childHeader(h1Hash, 2000)
	_, err = h.processor.processHeader(h2Hash, &blocktask.Block{Header: h2})
	require.NoError(t, err)

	tip, err := h.processor.selectedTip.Get(h.processor.db)
	require.NoError(t, err)
	require.True(t, tip.Hash.Equal(h2Hash))

	isAncestor, err := h.processor.levels[0].reachMgr.IsDagAncestorOf(h.processor.db, h1Hash, h2Hash)
	require.NoError(t, err)
	require.True(t, isAncestor)

	isAncestor, err = h.processor.levels[0].reachMgr.IsDagAncestorOf(h.processor.db, h2Hash, h1Hash)
	require.NoError(t, err)
	require.False(t, isAncestor)
}

// TestScenarioS3ParallelBranch covers spec §8 S3: two headers sharing
// genesis as their only parent both admit, neither is the other's
// ancestor, genesis has both as children, and the selected tip is
// whichever carries the greater hash (their blue-work ties).
func TestScenarioS3ParallelBranch(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	loHash := hash(50)
	hiHash := hash(51) // greater than loHash byte-for-byte

	_, err := h.processor.processHeader(loHash, &blocktask.Block{Header: childHeader(genesisHash, 1000)})
	require.NoError(t, err)
	_, err = h.processor.processHeader(hiHash, &blocktask.Block{Header: childHeader(genesisHash, 1000)})
	require.NoError(t, err)

	tip, err := h.processor.selectedTip.Get(h.processor.db)
	require.NoError(t, err)
	require.True(t, tip.Hash.Equal(hiHash), "selected tip must favor the greater hash on a blue-work tie")

	children, err := h.processor.levels[0].relations.ChildrenOf(h.processor.db, genesisHash)
	require.NoError(t, err)
	require.Contains(t, children, *loHash)
	require.Contains(t, children, *hiHash)

	loAncestorOfHi, err := h.processor.levels[0].reachMgr.IsDagAncestorOf(h.processor.db, loHash, hiHash)
	require.NoError(t, err)
	require.False(t, loAncestorOfHi, "siblings sharing only genesis as a parent must be in each other's anticone")

	hiAncestorOfLo, err := h.processor.levels[0].reachMgr.IsDagAncestorOf(h.processor.db, hiHash, loHash)
	require.NoError(t, err)
	require.False(t, hiAncestorOfLo)
}

// TestScenarioS4OutOfOrderArrival covers spec §8 S4: a child submitted
// before its parent is held back by the dependency manager and only
// admits, via Run's worker loop, once the parent has committed.
func TestScenarioS4OutOfOrderArrival(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	go h.processor.Run()

	parentHeader := childHeader(genesisHash, 1000)
	parentHash := hashserialization.HeaderHash(parentHeader)
	childHdr := childHeader(parentHash, 2000)
	childHash := hashserialization.HeaderHash(childHdr)

	parentSink := make(blocktask.Sink, 1)
	childSink := make(blocktask.Sink, 1)

	h.receiver <- blocktask.NewProcessTask(&blocktask.Block{Header: childHdr}, []blocktask.Sink{childSink})
	h.receiver <- blocktask.NewProcessTask(&blocktask.Block{Header: parentHeader}, []blocktask.Sink{parentSink})
	close(h.receiver)

	parentResult := <-parentSink
	require.NoError(t, parentResult.Err)
	require.Equal(t, externalapi.StatusHeaderOnly, parentResult.Status)

	childResult := <-childSink
	require.NoError(t, childResult.Err)
	require.Equal(t, externalapi.StatusHeaderOnly, childResult.Status)

	status, found, err := h.processor.statuses.Get(h.processor.db, childHash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, externalapi.StatusHeaderOnly, status)

	<-h.sender // drain the forwarded Exit
}

// TestScenarioS5KnownInvalidReference covers spec §8 S5: a header with a
// corrupt proof of work is rejected and marked Invalid with no relations/
// ghostdag writes, and a header declaring that hash as a parent fails
// with KnownInvalid before any store write of its own.
func TestScenarioS5KnownInvalidReference(t *testing.T) {
	params := testParams()
	params.GenesisBits = 0 // a zero target near genesis keeps the expected retarget bits at zero too
	h := newHarnessWithParams(t, params)
	genesisHash := h.processor.params.GenesisHash

	h1Hash := hash(70)
	h1 := childHeader(genesisHash, 1000)
	h1.Bits = 0 // decodes to a non-positive target: InvalidProofOfWork

	status, err := h.processor.processHeader(h1Hash, &blocktask.Block{Header: h1})
	require.Error(t, err)
	ruleErr, ok := err.(*ruleerrors.RuleError)
	require.True(t, ok)
	require.Equal(t, ruleerrors.InvalidProofOfWork, ruleErr.Kind())
	require.Equal(t, externalapi.StatusInvalid, status)

	hasRelations, err := h.processor.levels[0].relations.Has(h.processor.db, h1Hash)
	require.NoError(t, err)
	require.False(t, hasRelations, "an invalidated header must never reach relations")

	hasGhostdag, err := h.processor.levels[0].ghostdag.Has(h.processor.db, h1Hash)
	require.NoError(t, err)
	require.False(t, hasGhostdag)

	h2Hash := hash(71)
	h2 := childHeader(h1Hash, 2000)

	_, err = h.processor.processHeader(h2Hash, &blocktask.Block{Header: h2})
	require.Error(t, err)
	ruleErr, ok = err.(*ruleerrors.RuleError)
	require.True(t, ok)
	require.Equal(t, ruleerrors.KnownInvalid, ruleErr.Kind())

	_, found, err := h.processor.statuses.Get(h.processor.db, h2Hash)
	require.NoError(t, err)
	require.False(t, found, "a header blocked on a known-invalid parent must never itself be written")
}

// TestScenarioS6ResubmissionIdempotence covers spec §8 S6: re-submitting
// an already-admitted header returns its recorded status unchanged and
// performs no further store writes.
func TestScenarioS6ResubmissionIdempotence(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	blockHash := hash(80)
	header := childHeader(genesisHash, 1000)
	block := &blocktask.Block{Header: header}

	first, err := h.processor.processHeader(blockHash, block)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusHeaderOnly, first)

	dataBefore, err := h.processor.levels[0].ghostdag.Get(h.processor.db, blockHash)
	require.NoError(t, err)

	second, err := h.processor.processHeader(blockHash, block)
	require.NoError(t, err)
	require.Equal(t, first, second)

	dataAfter, err := h.processor.levels[0].ghostdag.Get(h.processor.db, blockHash)
	require.NoError(t, err)
	require.True(t, dataBefore.Equal(dataAfter), "re-submission must not mutate already-committed ghostdag data")
}

// newHarnessWithParams is newHarness parameterized over params, for
// scenarios that need non-default configuration (e.g. S5's zero genesis
// bits).
func newHarnessWithParams(t *testing.T, params *dagconfig.Params) *harness {
	t.Helper()
	db := memdb.New()
	receiver := make(chan blocktask.Task, 32)
	sender := make(chan blocktask.Task, 32)

	p := New(
		params,
		db,
		headersstore.New(),
		statusesstore.New(),
		daastore.New(),
		depthstore.New(),
		pruningstore.New(),
		headersselectedtipstore.New(),
		blockwindowcachestore.New(),
		blockwindowcachestore.New(),
		processingcounters.New(),
		receiver,
		sender,
		4,
	)

	require.NoError(t, p.ProcessOriginIfNeeded())
	require.NoError(t, p.ProcessGenesisIfNeeded())

	return &harness{t: t, processor: p, receiver: receiver, sender: sender}
}
