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

const testBits = 0x207fffff // minimal difficulty: target stays fixed under the averaging retarget below

func testParams() *dagconfig.Params {
	return &dagconfig.Params{
		MaxBlockLevel:               0,
		KPerLevel:                   []externalapi.KType{100},
		DifficultyWindowSize:        5,
		TimestampDeviationTolerance: 2,
		TargetTimePerBlock:          1000,
		MergesetSizeLimit:           50,
		MaxBlockParents:             5,
		MergeDepth:                  100,
		FinalityDepth:               200,
		GenesisHash:                 hash(1),
		GenesisBits:                 testBits,
		GenesisTimestamp:            0,
		SkipProofOfWork:             false,
		ProcessGenesis:              true,
	}
}

func hash(b byte) *externalapi.DomainHash {
	h := externalapi.DomainHash{}
	h[0] = b
	return &h
}

type harness struct {
	t         *testing.T
	processor *Processor
	receiver  chan blocktask.Task
	sender    chan blocktask.Task
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	params := testParams()
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

// childHeader builds a header-only submission whose single direct parent
// is parent, windowSize/TargetTimePerBlock-paced timestamps so the
// difficulty and past-median-time checks line up across an arbitrarily
// long linear chain (see the retarget-ratio-of-1 reasoning this harness
// relies on).
func childHeader(parent *externalapi.DomainHash, timeMs int64) *externalapi.DomainBlockHeader {
	return &externalapi.DomainBlockHeader{
		ParentsAtLevel:     [][]*externalapi.DomainHash{{parent}},
		TimeInMilliseconds: timeMs,
		Bits:               testBits,
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	h := newHarness(t)

	genesisHash := h.processor.params.GenesisHash
	status, found, err := h.processor.statuses.Get(h.processor.db, genesisHash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, externalapi.StatusHeaderOnly, status)

	tip, err := h.processor.selectedTip.Get(h.processor.db)
	require.NoError(t, err)
	require.True(t, tip.Hash.Equal(genesisHash))

	// A second call to both bootstrap routines must be a pure no-op.
	require.NoError(t, h.processor.ProcessOriginIfNeeded())
	require.NoError(t, h.processor.ProcessGenesisIfNeeded())

	tipAgain, err := h.processor.selectedTip.Get(h.processor.db)
	require.NoError(t, err)
	require.True(t, tipAgain.Hash.Equal(genesisHash))
}

func TestProcessHeaderLinearChainAdvancesTip(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	prev := genesisHash
	for i, timeMs := range []int64{1000, 2000, 3000} {
		blockHash := hash(byte(10 + i))
		header := childHeader(prev, timeMs)
		block := &blocktask.Block{Header: header}

		status, err := h.processor.processHeader(blockHash, block)
		require.NoError(t, err)
		require.Equal(t, externalapi.StatusHeaderOnly, status)

		tip, err := h.processor.selectedTip.Get(h.processor.db)
		require.NoError(t, err)
		require.True(t, tip.Hash.Equal(blockHash), "each new chain tip accumulates more blue-work than its parent")

		prev = blockHash
	}

	data, err := h.processor.levels[0].ghostdag.Get(h.processor.db, prev)
	require.NoError(t, err)
	require.Equal(t, uint64(4), data.BlueScore, "genesis plus three linear descendants")
}

func TestProcessHeaderIsIdempotent(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	blockHash := hash(20)
	header := childHeader(genesisHash, 1000)
	block := &blocktask.Block{Header: header}

	first, err := h.processor.processHeader(blockHash, block)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusHeaderOnly, first)

	second, err := h.processor.processHeader(blockHash, block)
	require.NoError(t, err)
	require.Equal(t, first, second, "reprocessing an already-admitted hash returns its recorded status unchanged")
}

func TestProcessHeaderRejectsTooManyParents(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	tooMany := make([]*externalapi.DomainHash, h.processor.params.MaxBlockParents+1)
	for i := range tooMany {
		tooMany[i] = genesisHash
	}

	blockHash := hash(21)
	header := &externalapi.DomainBlockHeader{
		ParentsAtLevel:     [][]*externalapi.DomainHash{tooMany},
		TimeInMilliseconds: 1000,
		Bits:               testBits,
	}
	block := &blocktask.Block{Header: header}

	_, err := h.processor.processHeader(blockHash, block)
	require.Error(t, err)
	ruleErr, ok := err.(*ruleerrors.RuleError)
	require.True(t, ok)
	require.Equal(t, ruleerrors.InvalidHeaderStructure, ruleErr.Kind())

	status, found, err := h.processor.statuses.Get(h.processor.db, blockHash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, externalapi.StatusInvalid, status, "an invalidating error must be persisted")
}

func TestProcessHeaderRejectsDifficultyMismatch(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	blockHash := hash(22)
	header := childHeader(genesisHash, 1000)
	header.Bits = testBits - 1 // deliberately wrong

	_, err := h.processor.processHeader(blockHash, &blocktask.Block{Header: header})
	require.Error(t, err)
	ruleErr, ok := err.(*ruleerrors.RuleError)
	require.True(t, ok)
	require.Equal(t, ruleerrors.DifficultyMismatch, ruleErr.Kind())

	status, _, err := h.processor.statuses.Get(h.processor.db, blockHash)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusInvalid, status)
}

// TestRunResolvesOutOfOrderSubmission exercises the dependency-manager-
// driven admission loop end to end: a child is submitted before its
// parent, and the pipeline must still deliver both results correctly,
// held back by admission order rather than submission order.
func TestRunResolvesOutOfOrderSubmission(t *testing.T) {
	h := newHarness(t)
	genesisHash := h.processor.params.GenesisHash

	go h.processor.Run()

	parentHeader := childHeader(genesisHash, 1000)
	parentHash := hashserialization.HeaderHash(parentHeader)
	parentBlock := &blocktask.Block{Header: parentHeader}

	childHdr := childHeader(parentHash, 2000)
	childBlock := &blocktask.Block{Header: childHdr}

	parentSink := make(blocktask.Sink, 1)
	childSink := make(blocktask.Sink, 1)

	// Submit the child first, then the parent - the dependency manager
	// must hold the child back until the parent is admitted.
	h.receiver <- blocktask.NewProcessTask(childBlock, []blocktask.Sink{childSink})
	h.receiver <- blocktask.NewProcessTask(parentBlock, []blocktask.Sink{parentSink})
	close(h.receiver)

	parentResult := <-parentSink
	require.NoError(t, parentResult.Err)
	require.Equal(t, externalapi.StatusHeaderOnly, parentResult.Status)

	childResult := <-childSink
	require.NoError(t, childResult.Err)
	require.Equal(t, externalapi.StatusHeaderOnly, childResult.Status)

	exitTask := <-h.sender
	require.Equal(t, blocktask.Exit, exitTask.Kind)
}
