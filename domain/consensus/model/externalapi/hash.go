package externalapi

import (
	"bytes"
	"encoding/hex"

	"github.com/pkg/errors"
)

// DomainHashSize is the size of the array used to store hashes.
const DomainHashSize = 32

// DomainHash is the domain representation of a daghash.Hash
type DomainHash [DomainHashSize]byte

// NewDomainHashFromByteSlice creates a new DomainHash from the given byte slice
func NewDomainHashFromByteSlice(slice []byte) (*DomainHash, error) {
	if len(slice) != DomainHashSize {
		return nil, errors.Errorf("invalid hash size. Want: %d, got: %d", DomainHashSize, len(slice))
	}
	hash := DomainHash{}
	copy(hash[:], slice)
	return &hash, nil
}

// NewDomainHashFromByteArray creates a new DomainHash from a byte array
func NewDomainHashFromByteArray(array *[DomainHashSize]byte) *DomainHash {
	hash := DomainHash(*array)
	return &hash
}

// String returns the hex encoding of the hash's bytes in reverse order
// (hash[31] first), unlike the hash[0]-first order Less compares in.
func (hash DomainHash) String() string {
	reversed := reverseBytes(hash[:])
	return hex.EncodeToString(reversed)
}

// ByteSlice returns a byte slice representation of the hash
func (hash *DomainHash) ByteSlice() []byte {
	slice := make([]byte, DomainHashSize)
	copy(slice, hash[:])
	return slice
}

// ByteArray returns a byte array representation of the hash
func (hash *DomainHash) ByteArray() *[DomainHashSize]byte {
	array := [DomainHashSize]byte(*hash)
	return &array
}

// Equal returns whether hash equals other.
func (hash *DomainHash) Equal(other *DomainHash) bool {
	if hash == nil || other == nil {
		return hash == other
	}
	return *hash == *other
}

// Less returns true if hash is numerically smaller than other, treating both
// as big-endian 32-byte unsigned integers. This is the canonical byte order
// used for every lexicographic tiebreak in the consensus core (selected
// parent, selected tip, mergeset ordering).
func (hash *DomainHash) Less(other *DomainHash) bool {
	return bytes.Compare(hash[:], other[:]) < 0
}

// Compare returns -1, 0 or 1 if hash is respectively less than, equal to,
// or greater than other, using the same big-endian byte order as Less.
func (hash *DomainHash) Compare(other *DomainHash) int {
	return bytes.Compare(hash[:], other[:])
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// DomainHashesEqual returns whether the given hash slices are equal.
func DomainHashesEqual(a, b []*DomainHash) bool {
	if len(a) != len(b) {
		return false
	}
	for i, hash := range a {
		if !hash.Equal(b[i]) {
			return false
		}
	}
	return true
}

// DomainHashesToStrings returns a slice of strings representing the given hashes
func DomainHashesToStrings(hashes []*DomainHash) []string {
	strings := make([]string, len(hashes))
	for i, hash := range hashes {
		strings[i] = hash.String()
	}
	return strings
}

// CloneHashes creates a copy of the given hash slice
func CloneHashes(hashes []*DomainHash) []*DomainHash {
	clone := make([]*DomainHash, len(hashes))
	copy(clone, hashes)
	return clone
}
