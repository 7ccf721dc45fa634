// Package hashset provides a small set type over externalapi.DomainHash,
// used throughout the consensus core wherever a block set (parents,
// mergeset, anticone) needs membership tests rather than order.
package hashset

import "github.com/dagchain/ghostnode/domain/consensus/model/externalapi"

// HashSet is a set of *externalapi.DomainHash.
type HashSet map[externalapi.DomainHash]struct{}

// New creates an empty HashSet, optionally pre-populated with the given
// hashes.
func New(hashes ...*externalapi.DomainHash) HashSet {
	set := make(HashSet, len(hashes))
	for _, hash := range hashes {
		set.Add(hash)
	}
	return set
}

// Add inserts hash into the set.
func (hs HashSet) Add(hash *externalapi.DomainHash) {
	hs[*hash] = struct{}{}
}

// Remove deletes hash from the set, if present.
func (hs HashSet) Remove(hash *externalapi.DomainHash) {
	delete(hs, *hash)
}

// Contains returns whether hash is a member of the set.
func (hs HashSet) Contains(hash *externalapi.DomainHash) bool {
	_, ok := hs[*hash]
	return ok
}

// ToSlice returns the set's members as a slice, in unspecified order.
func (hs HashSet) ToSlice() []*externalapi.DomainHash {
	slice := make([]*externalapi.DomainHash, 0, len(hs))
	for hash := range hs {
		hash := hash
		slice = append(slice, &hash)
	}
	return slice
}

// Clone returns a shallow copy of the set.
func (hs HashSet) Clone() HashSet {
	clone := make(HashSet, len(hs))
	for hash := range hs {
		clone[hash] = struct{}{}
	}
	return clone
}
