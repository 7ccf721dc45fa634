package blockdepthmanager

import (
	"math/big"
	"testing"

	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/memdb"
	"github.com/stretchr/testify/require"
)

func hashOf(b byte) *externalapi.DomainHash {
	h := externalapi.DomainHash{}
	h[0] = b
	return &h
}

// chain inserts a pure selected-parent chain of n blocks (blue score i+1
// for the i'th block) and returns the GhostdagData of a hypothetical
// next block selecting the chain's tip as its selected parent.
func chain(t *testing.T, db *memdb.MemDB, ghostdag *ghostdagstore.Store, n int) *externalapi.GhostdagData {
	t.Helper()
	var prev *externalapi.DomainHash
	var prevData *externalapi.GhostdagData

	for i := 0; i < n; i++ {
		hash := hashOf(byte(i + 1))
		var data *externalapi.GhostdagData
		if prev == nil {
			data = externalapi.NewGhostdagData(1, big.NewInt(1), externalapi.ORIGIN,
				[]*externalapi.DomainHash{externalapi.ORIGIN}, nil, nil)
		} else {
			data = externalapi.NewGhostdagData(prevData.BlueScore+1, big.NewInt(1), prev,
				[]*externalapi.DomainHash{prev}, nil, nil)
		}
		batch := db.NewBatch()
		require.NoError(t, ghostdag.InsertBatch(db, batch, hash, data))
		require.NoError(t, db.Write(batch))
		prev = hash
		prevData = data
	}
	return externalapi.NewGhostdagData(prevData.BlueScore+1, big.NewInt(1), prev,
		[]*externalapi.DomainHash{prev}, nil, nil)
}

func TestAncestorAtDepthWalksSelectedParentChain(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	tipData := chain(t, db, ghostdag, 10)

	manager := New(3, 6, ghostdag)

	root, err := manager.CalcMergeDepthRoot(db, tipData)
	require.NoError(t, err)
	// tip's blue score is 11; target is 11-3=8, so the walk stops at the
	// first ancestor with blue score <= 8, i.e. block 8 (hash byte 8).
	require.Equal(t, hashOf(8), root)

	finality, err := manager.CalcFinalityPoint(db, tipData)
	require.NoError(t, err)
	require.Equal(t, hashOf(5), finality)
}

func TestAncestorAtDepthGenesisIsOrigin(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	manager := New(3, 6, ghostdag)

	genesisData := externalapi.NewGhostdagData(1, big.NewInt(1), externalapi.ORIGIN,
		[]*externalapi.DomainHash{externalapi.ORIGIN}, nil, nil)

	root, err := manager.CalcMergeDepthRoot(db, genesisData)
	require.NoError(t, err)
	require.True(t, root.IsOrigin())

	finality, err := manager.CalcFinalityPoint(db, genesisData)
	require.NoError(t, err)
	require.True(t, finality.IsOrigin())
}

func TestAncestorAtDepthShallowerThanDepthIsOrigin(t *testing.T) {
	db := memdb.New()
	ghostdag := ghostdagstore.New(0)
	tipData := chain(t, db, ghostdag, 2)

	manager := New(100, 200, ghostdag)
	root, err := manager.CalcMergeDepthRoot(db, tipData)
	require.NoError(t, err)
	require.True(t, root.IsOrigin())
}
