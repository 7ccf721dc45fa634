// Package difficultymanager computes the expected difficulty bits a new
// header must carry, checked by pre-PoW validation's DifficultyMismatch
// rule (spec.md §7). No difficulty-retarget algorithm was present in the
// retrieved original_source (only the window-size configuration knobs
// are named, in dagconfig's Configuration enumeration per SPEC_FULL.md
// §6), so this follows the standard Bitcoin/GHOSTDAG-family averaging
// retarget: compare the actual elapsed time across the difficulty window
// against the expected elapsed time at target_time_per_block, and scale
// the window's average target proportionally - the same family of
// calculation utils/difficulty.CompactToBig/BigToCompact already exist
// to support.
package difficultymanager

import (
	"math/big"

	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/blockwindow"
	"github.com/dagchain/ghostnode/domain/consensus/utils/difficulty"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

// Manager computes required difficulty for one DAG level.
type Manager struct {
	windowSize        uint64
	targetTimePerBlock uint64
	genesisBits       uint32

	ghostdag *ghostdagstore.Store
	headers  *headersstore.Store
	cache    *blockwindowcachestore.Store
}

// New creates a difficulty manager.
func New(windowSize, targetTimePerBlock uint64, genesisBits uint32,
	ghostdag *ghostdagstore.Store, headers *headersstore.Store, cache *blockwindowcachestore.Store) *Manager {
	return &Manager{
		windowSize:         windowSize,
		targetTimePerBlock: targetTimePerBlock,
		genesisBits:        genesisBits,
		ghostdag:           ghostdag,
		headers:            headers,
		cache:              cache,
	}
}

// RequiredDifficulty returns the window used (for caching, per
// SPEC_FULL.md §4 item 1) and the expected compact bits for a block whose
// own GhostdagData is selfData.
func (m *Manager) RequiredDifficulty(dbContext database.DataAccessor, hash *externalapi.DomainHash,
	selfData *externalapi.GhostdagData) (blockwindowcachestore.BlockWindowHeap, uint32, error) {

	if window, ok := m.cache.Get(hash); ok {
		return window, m.bitsForWindow(window), nil
	}
	window, err := blockwindow.Build(dbContext, m.ghostdag, m.headers, selfData, m.windowSize)
	if err != nil {
		return nil, 0, err
	}
	return window, m.bitsForWindow(window), nil
}

// bitsForWindow implements the averaging retarget. Fewer than two blocks
// in the window (near genesis) means there's nothing to retarget against,
// so genesisBits is returned unchanged.
func (m *Manager) bitsForWindow(window blockwindowcachestore.BlockWindowHeap) uint32 {
	if len(window) < 2 {
		return m.genesisBits
	}

	totalTarget := new(big.Int)
	for _, block := range window {
		totalTarget.Add(totalTarget, difficulty.CompactToBig(block.Bits))
	}
	averageTarget := totalTarget.Div(totalTarget, big.NewInt(int64(len(window))))

	oldest, newest := window[0].TimeInMilliseconds, window[0].TimeInMilliseconds
	for _, block := range window[1:] {
		if block.TimeInMilliseconds < oldest {
			oldest = block.TimeInMilliseconds
		}
		if block.TimeInMilliseconds > newest {
			newest = block.TimeInMilliseconds
		}
	}
	actualTimespan := newest - oldest
	expectedTimespan := int64(m.targetTimePerBlock) * int64(len(window)-1)
	if actualTimespan <= 0 {
		actualTimespan = 1
	}

	newTarget := new(big.Int).Mul(averageTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(expectedTimespan))

	return difficulty.BigToCompact(newTarget)
}
