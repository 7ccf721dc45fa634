package hashserialization

import (
	"testing"

	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/stretchr/testify/require"
)

func TestHeaderHashDeterministicAndSensitive(t *testing.T) {
	header := &externalapi.DomainBlockHeader{
		Version:        1,
		ParentsAtLevel: [][]*externalapi.DomainHash{{externalapi.ORIGIN}},
		Bits:           0x207fffff,
		Nonce:          7,
	}

	first := HeaderHash(header)
	second := HeaderHash(header)
	require.True(t, first.Equal(second), "hashing the same header twice must be deterministic")

	header.Nonce = 8
	third := HeaderHash(header)
	require.False(t, first.Equal(third), "changing a field must change the hash")
}
