package externalapi

import "math/big"

// SortableBlock pairs a hash with a blue-work value so that slices of
// blocks can be ordered by the mergeset/selected-tip rule: blue-work
// descending, hash ascending as the tiebreak.
type SortableBlock struct {
	Hash     *DomainHash
	BlueWork *big.Int
}

// NewSortableBlock constructs a SortableBlock.
func NewSortableBlock(hash *DomainHash, blueWork *big.Int) SortableBlock {
	return SortableBlock{Hash: hash, BlueWork: blueWork}
}

// Less returns true if sb should sort before other: greater blue-work
// first, and on a tie, the lexicographically smaller hash first. This
// ordering is used both for mergeset ordering and wherever blocks are
// ranked by "bluest first".
func (sb SortableBlock) Less(other SortableBlock) bool {
	cmp := sb.BlueWork.Cmp(other.BlueWork)
	if cmp != 0 {
		return cmp > 0
	}
	return sb.Hash.Less(other.Hash)
}

// Greater returns true if sb strictly exceeds other under the selected-tip
// comparison rule: greater blue-work wins; on a tie, the greater hash wins.
// This is the opposite tiebreak direction from Less/mergeset ordering,
// matching spec.md's headers-selected-tip invariant (max blue-work, ties
// broken by lexicographic hash, i.e. by a literal "argmax").
func (sb SortableBlock) Greater(other SortableBlock) bool {
	cmp := sb.BlueWork.Cmp(other.BlueWork)
	if cmp != 0 {
		return cmp > 0
	}
	return sb.Hash.Compare(other.Hash) > 0
}
