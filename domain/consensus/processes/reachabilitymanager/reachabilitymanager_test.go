package reachabilitymanager

import (
	"testing"

	"github.com/dagchain/ghostnode/domain/consensus/datastructures/reachabilitydatastore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/memdb"
	"github.com/stretchr/testify/require"
)

func hashOf(b byte) *externalapi.DomainHash {
	h := externalapi.DomainHash{}
	h[0] = b
	return &h
}

func commitBlock(t *testing.T, db *memdb.MemDB, manager *Manager, hash, reachabilityParent *externalapi.DomainHash, mergeSet []*externalapi.DomainHash) {
	t.Helper()
	staging := manager.BeginStaging(db)
	require.NoError(t, staging.AddBlock(hash, reachabilityParent, mergeSet))
	batch := db.NewBatch()
	guard, err := staging.Commit(batch)
	require.NoError(t, err)
	require.NoError(t, db.Write(batch))
	guard.Release()
}

func TestReachabilityTreeAncestry(t *testing.T) {
	db := memdb.New()
	store := reachabilitydatastore.New(0)
	manager := New(store)

	batch := db.NewBatch()
	require.NoError(t, manager.EnsureOrigin(db, batch))
	require.NoError(t, db.Write(batch))

	a := hashOf(1)
	b := hashOf(2)
	c := hashOf(3) // child of b, merges a

	commitBlock(t, db, manager, a, externalapi.ORIGIN, nil)
	commitBlock(t, db, manager, b, externalapi.ORIGIN, nil)
	commitBlock(t, db, manager, c, b, []*externalapi.DomainHash{a})

	isAncestor, err := manager.IsDagAncestorOf(db, externalapi.ORIGIN, c)
	require.NoError(t, err)
	require.True(t, isAncestor, "ORIGIN must be an ancestor of every block")

	isAncestor, err = manager.IsDagAncestorOf(db, b, c)
	require.NoError(t, err)
	require.True(t, isAncestor, "tree parent must be an ancestor")

	isAncestor, err = manager.IsDagAncestorOf(db, a, c)
	require.NoError(t, err)
	require.True(t, isAncestor, "merged block must become an ancestor via the future-covering set")

	isAncestor, err = manager.IsDagAncestorOf(db, c, a)
	require.NoError(t, err)
	require.False(t, isAncestor, "ancestry must not be symmetric")

	isAncestor, err = manager.IsDagAncestorOf(db, a, b)
	require.NoError(t, err)
	require.False(t, isAncestor, "unrelated siblings are not ancestors of one another")
}

func TestReachabilityReindexOnCapacityExhaustion(t *testing.T) {
	db := memdb.New()
	store := reachabilitydatastore.New(0)
	manager := New(store)

	batch := db.NewBatch()
	require.NoError(t, manager.EnsureOrigin(db, batch))
	require.NoError(t, db.Write(batch))

	// Force many siblings off ORIGIN so remaining capacity repeatedly
	// halves below minSlice and a whole-tree reindex is required.
	var prev []*externalapi.DomainHash
	for i := 0; i < 80; i++ {
		hash := hashOf(byte(i + 10))
		commitBlock(t, db, manager, hash, externalapi.ORIGIN, nil)
		prev = append(prev, hash)
	}

	for _, hash := range prev {
		isAncestor, err := manager.IsDagAncestorOf(db, externalapi.ORIGIN, hash)
		require.NoError(t, err)
		require.True(t, isAncestor)
	}

	// Pairwise, none of these siblings should be ancestors of one another.
	isAncestor, err := manager.IsDagAncestorOf(db, prev[0], prev[len(prev)-1])
	require.NoError(t, err)
	require.False(t, isAncestor)
}

func TestStagingSerializesAcrossCommits(t *testing.T) {
	db := memdb.New()
	store := reachabilitydatastore.New(0)
	manager := New(store)

	batch := db.NewBatch()
	require.NoError(t, manager.EnsureOrigin(db, batch))
	require.NoError(t, db.Write(batch))

	staging := manager.BeginStaging(db)

	done := make(chan struct{})
	go func() {
		second := manager.BeginStaging(db)
		second.Abort()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("a second staging sequence must not begin while the first is in flight")
	default:
	}

	staging.Abort()
	<-done
}
