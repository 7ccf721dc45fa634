package externalapi

import "math/big"

// GhostdagData holds the per-header, per-level output of the GHOSTDAG
// protocol: selected parent, blue score, blue work, the ordered blue
// mergeset, the red mergeset, and the anticone sizes needed for future
// k-cluster checks. Immutable once written to the ghostdag store.
type GhostdagData struct {
	BlueScore          uint64
	BlueWork           *big.Int
	SelectedParent     *DomainHash
	MergeSetBlues      []*DomainHash
	MergeSetReds       []*DomainHash
	BluesAnticoneSizes map[DomainHash]KType
}

// KType is the k-cluster bound type, per-level configuration of GHOSTDAG.
type KType uint16

// NewGhostdagData constructs a populated GhostdagData record.
func NewGhostdagData(blueScore uint64, blueWork *big.Int, selectedParent *DomainHash,
	mergeSetBlues, mergeSetReds []*DomainHash, bluesAnticoneSizes map[DomainHash]KType) *GhostdagData {
	return &GhostdagData{
		BlueScore:          blueScore,
		BlueWork:           blueWork,
		SelectedParent:     selectedParent,
		MergeSetBlues:      mergeSetBlues,
		MergeSetReds:       mergeSetReds,
		BluesAnticoneSizes: bluesAnticoneSizes,
	}
}

// ToImmutable returns a GhostdagData whose slices and map are safe to hand
// out without further copying (the structure is already never mutated
// after construction, but this documents that contract at call sites that
// cross a store boundary).
func (gd *GhostdagData) ToImmutable() *GhostdagData {
	return gd
}

// MergeSet returns the full mergeset, with the selected parent first,
// followed by the rest of the blues, followed by the reds - the standard
// GHOSTDAG topological order used for DAA/coinbase calculations.
func (gd *GhostdagData) MergeSet() []*DomainHash {
	mergeSet := make([]*DomainHash, 0, len(gd.MergeSetBlues)+len(gd.MergeSetReds))
	mergeSet = append(mergeSet, gd.MergeSetBlues...)
	mergeSet = append(mergeSet, gd.MergeSetReds...)
	return mergeSet
}

// IsBlue returns whether hash is in the GHOSTDAG blue mergeset of the
// record (SelectedParent included since it is conventionally blues[0]).
func (gd *GhostdagData) IsBlue(hash *DomainHash) bool {
	for _, blue := range gd.MergeSetBlues {
		if blue.Equal(hash) {
			return true
		}
	}
	return false
}

// Equal compares two GhostdagData records for the write-once invariant
// check (re-insertion of identical data must be a silent no-op).
func (gd *GhostdagData) Equal(other *GhostdagData) bool {
	if gd == other {
		return true
	}
	if gd == nil || other == nil {
		return false
	}
	if gd.BlueScore != other.BlueScore {
		return false
	}
	if (gd.BlueWork == nil) != (other.BlueWork == nil) {
		return false
	}
	if gd.BlueWork != nil && gd.BlueWork.Cmp(other.BlueWork) != 0 {
		return false
	}
	if !gd.SelectedParent.Equal(other.SelectedParent) {
		return false
	}
	if !DomainHashesEqual(gd.MergeSetBlues, other.MergeSetBlues) {
		return false
	}
	if !DomainHashesEqual(gd.MergeSetReds, other.MergeSetReds) {
		return false
	}
	if len(gd.BluesAnticoneSizes) != len(other.BluesAnticoneSizes) {
		return false
	}
	for hash, size := range gd.BluesAnticoneSizes {
		otherSize, ok := other.BluesAnticoneSizes[hash]
		if !ok || size != otherSize {
			return false
		}
	}
	return true
}
