package parentsmanager

import (
	"testing"

	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/stretchr/testify/require"
)

func hashOf(b byte) *externalapi.DomainHash {
	h := externalapi.DomainHash{}
	h[0] = b
	return &h
}

func TestParentsAtLevel(t *testing.T) {
	manager := New()
	level0 := []*externalapi.DomainHash{hashOf(1), hashOf(2)}
	level1 := []*externalapi.DomainHash{hashOf(1)}
	header := &externalapi.DomainBlockHeader{ParentsAtLevel: [][]*externalapi.DomainHash{level0, level1}}

	require.Equal(t, level0, manager.ParentsAtLevel(header, 0))
	require.Equal(t, level1, manager.ParentsAtLevel(header, 1))
	require.Empty(t, manager.ParentsAtLevel(header, 2), "a level the header doesn't declare relations at is empty")
}
