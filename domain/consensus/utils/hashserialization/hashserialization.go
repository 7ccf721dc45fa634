// Package hashserialization computes a header's identity hash: the
// 32-byte digest of its serialized fields (spec.md §3, "Identity is the
// hash"). Grounded in SPEC_FULL.md §3's domain-stack choice of
// golang.org/x/crypto/blake2b for the Hash type's underlying digest
// (rusty-kaspa and kaspad both use a blake-family primitive for header
// hashing) - rather than stdlib crypto/sha256, matching that choice.
package hashserialization

import (
	"bytes"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"golang.org/x/crypto/blake2b"
)

// HeaderHash returns the identity hash of header: blake2b-256 over its
// serialized fields in declaration order. The nonce is included (unlike
// proof-of-work hashing, which excludes it); BlueScore and BlueWork are
// not serialized and do not affect the hash.
func HeaderHash(header *externalapi.DomainBlockHeader) *externalapi.DomainHash {
	buf := new(bytes.Buffer)
	binaryserialization.WriteUint16(buf, header.Version)
	binaryserialization.WriteUint64(buf, uint64(len(header.ParentsAtLevel)))
	for _, parents := range header.ParentsAtLevel {
		binaryserialization.WriteHashes(buf, parents)
	}
	binaryserialization.WriteHash(buf, &header.HashMerkleRoot)
	binaryserialization.WriteHash(buf, &header.AcceptedIDMerkleRoot)
	binaryserialization.WriteHash(buf, &header.UTXOCommitment)
	binaryserialization.WriteUint64(buf, uint64(header.TimeInMilliseconds))
	binaryserialization.WriteUint32(buf, header.Bits)
	binaryserialization.WriteUint64(buf, header.Nonce)
	binaryserialization.WriteUint64(buf, header.DAAScore)
	binaryserialization.WriteHash(buf, &header.PruningPoint)

	digest := blake2b.Sum256(buf.Bytes())
	hash, err := externalapi.NewDomainHashFromByteSlice(digest[:])
	if err != nil {
		// blake2b.Sum256 always returns exactly DomainHashSize(32) bytes.
		panic(err)
	}
	return hash
}
