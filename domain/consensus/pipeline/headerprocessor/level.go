package headerprocessor

import "github.com/dagchain/ghostnode/domain/consensus/model/externalapi"

// blockLevelFromHash derives a header's pruning-proof level from its own
// identity hash: the number of leading zero bytes, the same notion
// externalapi.BlockLevel's doc comment names ("by looking at the number
// of leading zero bytes in their PoW hash"). Real PoW-magnitude-based
// level derivation is out of scope (proof-of-work verification arithmetic
// is an explicit Non-goal), so the header's own identity hash stands in
// as the PoW hash this computation would otherwise use - clamped to
// maxLevel, since a hash of all-zero bytes is astronomically unlikely but
// not structurally impossible to guard against.
func blockLevelFromHash(hash *externalapi.DomainHash, maxLevel externalapi.BlockLevel) externalapi.BlockLevel {
	slice := hash.ByteSlice()
	level := 0
	for _, b := range slice {
		if b != 0 {
			break
		}
		level++
	}
	if externalapi.BlockLevel(level) > maxLevel {
		return maxLevel
	}
	return externalapi.BlockLevel(level)
}
