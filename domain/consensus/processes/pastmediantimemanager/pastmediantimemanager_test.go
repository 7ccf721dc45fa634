package pastmediantimemanager

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

func hashOf(b byte) *externalapi.DomainHash {
	h := externalapi.DomainHash{}
	h[0] = b
	return &h
}

// chain builds n headers, each the sole blue ancestor of the next, with
// timestamps 1000ms apart, and returns the final block's own GhostdagData
// (not yet inserted, as is the case for a block under construction).
func chain(t *testing.T, db *memdb.MemDB, ghostdag *ghostdagstore.Store, headers *headersstore.Store, n int) *externalapi.GhostdagData {
	t.Helper()
	var prev *externalapi.DomainHash
	var prevData *externalapi.GhostdagData

	for i := 0; i < n; i++ {
		hash := hashOf(byte(i + 1))
		timestamp := int64(i * 1000)

		var data *externalapi.GhostdagData
		if prev == nil {
			data = externalapi.NewGhostdagData(1, big.NewInt(1), externalapi.ORIGIN,
				[]*externalapi.DomainHash{externalapi.ORIGIN}, nil, nil)
		} else {
			data = externalapi.NewGhostdagData(prevData.BlueScore+1, big.NewInt(1), prev,
				[]*externalapi.DomainHash{prev}, nil, nil)
		}

		batch := db.NewBatch()
		require.NoError(t, headers.InsertBatch(batch, hash, &externalapi.DomainBlockHeader{TimeInMilliseconds: timestamp}, 0))
		if i < n-1 {
			require.NoError(t, ghostdag.InsertBatch(db, batch, hash, data))
		}
		require.NoError(t, db.Write(batch))

		prev = hash
		prevData = data
	}
	return prevData
}

func TestPastMedianTimeOverWindow(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	headers := headersstore.New()
	cache := blockwindowcachestore.New()

	// tolerance=3 -> window size 5
	manager := New(3, ghostdag, headers, cache)
	require.Equal(t, uint64(5), manager.WindowSize())

	selfData := chain(t, db, ghostdag, headers, 7)

	window, median, err := manager.PastMedianTime(db, hashOf(200), selfData)
	require.NoError(t, err)
	require.Len(t, window, 5, "window is capped at windowSize even though more ancestors exist")
	require.Greater(t, median, int64(0))
}

func TestPastMedianTimeCacheHit(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	headers := headersstore.New()
	cache := blockwindowcachestore.New()
	manager := New(2, ghostdag, headers, cache)

	hash := hashOf(77)
	preset := blockwindowcachestore.BlockWindowHeap{{Hash: hashOf(1), TimeInMilliseconds: 42, Bits: 1}}
	cache.Insert(hash, preset)

	window, median, err := manager.PastMedianTime(db, hash, nil)
	require.NoError(t, err)
	require.Equal(t, preset, window)
	require.Equal(t, int64(42), median)
}
