package externalapi

// PruningPointInfo holds the currently finalized pruning point, its index,
// and a candidate pruning point awaiting finalization. Mutable, but the
// index is monotonically non-decreasing.
type PruningPointInfo struct {
	PruningPoint          *DomainHash
	CandidatePruningPoint *DomainHash
	Index                 uint64
}

// NewPruningPointInfo builds a PruningPointInfo.
func NewPruningPointInfo(pruningPoint, candidate *DomainHash, index uint64) *PruningPointInfo {
	return &PruningPointInfo{
		PruningPoint:          pruningPoint,
		CandidatePruningPoint: candidate,
		Index:                 index,
	}
}

// PruningPointInfoFromGenesis returns the bootstrap pruning point info: the
// genesis hash as both pruning point and candidate, at index 0.
func PruningPointInfoFromGenesis(genesisHash *DomainHash) *PruningPointInfo {
	return NewPruningPointInfo(genesisHash, genesisHash, 0)
}
