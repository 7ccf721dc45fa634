package difficultymanager

import (
	"math/big"
	"testing"

	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/memdb"
	"github.com/stretchr/testify/require"
)

const genesisBits = 0x207fffff

func hashOf(b byte) *externalapi.DomainHash {
	h := externalapi.DomainHash{}
	h[0] = b
	return &h
}

func chain(t *testing.T, db *memdb.MemDB, ghostdag *ghostdagstore.Store, headers *headersstore.Store,
	n int, spacingMillis int64, bits uint32) *externalapi.GhostdagData {
	t.Helper()
	var prev *externalapi.DomainHash
	var prevData *externalapi.GhostdagData

	for i := 0; i < n; i++ {
		hash := hashOf(byte(i + 1))
		timestamp := int64(i) * spacingMillis

		var data *externalapi.GhostdagData
		if prev == nil {
			data = externalapi.NewGhostdagData(1, big.NewInt(1), externalapi.ORIGIN,
				[]*externalapi.DomainHash{externalapi.ORIGIN}, nil, nil)
		} else {
			data = externalapi.NewGhostdagData(prevData.BlueScore+1, big.NewInt(1), prev,
				[]*externalapi.DomainHash{prev}, nil, nil)
		}

		batch := db.NewBatch()
		require.NoError(t, headers.InsertBatch(batch, hash, &externalapi.DomainBlockHeader{TimeInMilliseconds: timestamp, Bits: bits}, 0))
		if i < n-1 {
			require.NoError(t, ghostdag.InsertBatch(db, batch, hash, data))
		}
		require.NoError(t, db.Write(batch))

		prev = hash
		prevData = data
	}
	return prevData
}

func TestRequiredDifficultyNearGenesisUnchanged(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	headers := headersstore.New()
	cache := blockwindowcachestore.New()
	manager := New(10, 1000, genesisBits, ghostdag, headers, cache)

	selfData := chain(t, db, ghostdag, headers, 1, 1000, genesisBits)
	_, bits, err := manager.RequiredDifficulty(db, hashOf(200), selfData)
	require.NoError(t, err)
	require.Equal(t, uint32(genesisBits), bits, "fewer than two window blocks means nothing to retarget against")
}

func TestRequiredDifficultyFasterBlocksRaiseDifficulty(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	headers := headersstore.New()
	cache := blockwindowcachestore.New()

	// target spacing 1000ms, but the chain actually produced blocks at
	// 500ms intervals: blocks came in twice as fast as expected, so the
	// next target should tighten (become numerically smaller).
	manager := New(5, 1000, genesisBits, ghostdag, headers, cache)
	selfData := chain(t, db, ghostdag, headers, 6, 500, genesisBits)

	_, bits, err := manager.RequiredDifficulty(db, hashOf(200), selfData)
	require.NoError(t, err)
	require.NotEqual(t, uint32(genesisBits), bits, "faster-than-expected spacing must shift the retargeted bits")
}

func TestRequiredDifficultyCacheHit(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	headers := headersstore.New()
	cache := blockwindowcachestore.New()
	manager := New(5, 1000, genesisBits, ghostdag, headers, cache)

	hash := hashOf(99)
	preset := blockwindowcachestore.BlockWindowHeap{
		{Hash: hashOf(1), TimeInMilliseconds: 0, Bits: genesisBits},
		{Hash: hashOf(2), TimeInMilliseconds: 500, Bits: genesisBits},
	}
	cache.Insert(hash, preset)

	window, _, err := manager.RequiredDifficulty(db, hash, nil)
	require.NoError(t, err)
	require.Equal(t, preset, window)
}
