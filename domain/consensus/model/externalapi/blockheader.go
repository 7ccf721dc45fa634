package externalapi

import "math/big"

// DomainBlockHeader holds the immutable fields identifying a header in the
// block-DAG: its parents at level 0, timing/difficulty fields, and the
// cumulative blue-work accumulator. Identity is the hash returned by the
// domain/consensus/utils/hashserialization package.
type DomainBlockHeader struct {
	Version              uint16
	ParentsAtLevel       [][]*DomainHash
	HashMerkleRoot       DomainHash
	AcceptedIDMerkleRoot DomainHash
	UTXOCommitment       DomainHash
	TimeInMilliseconds   int64
	Bits                 uint32
	Nonce                uint64
	DAAScore             uint64
	BlueScore            uint64
	BlueWork             *big.Int
	PruningPoint         DomainHash
}

// DirectParents returns the level-0 parents of the header.
func (h *DomainBlockHeader) DirectParents() []*DomainHash {
	if len(h.ParentsAtLevel) == 0 {
		return nil
	}
	return h.ParentsAtLevel[0]
}

// ParentsAt returns the parents the header declares at the given level, or
// an empty slice if the header carries no relations that high.
func (h *DomainBlockHeader) ParentsAt(level BlockLevel) []*DomainHash {
	if int(level) >= len(h.ParentsAtLevel) {
		return nil
	}
	return h.ParentsAtLevel[level]
}

// Clone returns a deep copy of the header.
func (h *DomainBlockHeader) Clone() *DomainBlockHeader {
	clone := *h
	clone.ParentsAtLevel = make([][]*DomainHash, len(h.ParentsAtLevel))
	for i, parents := range h.ParentsAtLevel {
		clone.ParentsAtLevel[i] = CloneHashes(parents)
	}
	if h.BlueWork != nil {
		clone.BlueWork = new(big.Int).Set(h.BlueWork)
	}
	return &clone
}

// DomainBlock is a full block: header plus an optional body. The body is
// out of scope for the header-processing core and is represented only as
// an opaque presence flag plus transaction count, sufficient to decide
// whether to forward the block downstream.
type DomainBlock struct {
	Header       *DomainBlockHeader
	Transactions []*DomainTransaction
}

// DomainTransaction is an opaque placeholder for a transaction; the core
// never inspects transaction contents, only whether any are present.
type DomainTransaction struct {
	Payload []byte
}

// HasBody returns whether the block carries transactions (a body), as
// opposed to being a header-only submission.
func (b *DomainBlock) HasBody() bool {
	return b != nil && len(b.Transactions) > 0
}
