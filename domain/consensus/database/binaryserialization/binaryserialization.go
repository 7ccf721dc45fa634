// Package binaryserialization implements the stable on-disk encoding used
// by every store in the consensus core: length-prefixed integers and byte
// strings, little-endian, per spec.md §6 ("Persisted state"). Every store's
// serializeX/deserializeX pair is built from these primitives so that the
// wire format stays uniform across ghostdag, headers, daa, depth, relations
// and pruning records.
package binaryserialization

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// WriteUint64 appends a little-endian uint64 to buf.
func WriteUint64(buf *bytes.Buffer, value uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], value)
	buf.Write(b[:])
}

// ReadUint64 reads a little-endian uint64 from r.
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// WriteUint32 appends a little-endian uint32 to buf.
func WriteUint32(buf *bytes.Buffer, value uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	buf.Write(b[:])
}

// ReadUint32 reads a little-endian uint32 from r.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// WriteUint16 appends a little-endian uint16 to buf.
func WriteUint16(buf *bytes.Buffer, value uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], value)
	buf.Write(b[:])
}

// ReadUint16 reads a little-endian uint16 from r.
func ReadUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// WriteByte appends a single byte to buf.
func WriteByte(buf *bytes.Buffer, value byte) {
	buf.WriteByte(value)
}

// ReadByteValue reads a single byte from r.
func ReadByteValue(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteBytes writes a length-prefixed (uint32 little-endian) byte string.
func WriteBytes(buf *bytes.Buffer, value []byte) {
	WriteUint32(buf, uint32(len(value)))
	buf.Write(value)
}

// ReadBytes reads a length-prefixed byte string written by WriteBytes.
func ReadBytes(r io.Reader) ([]byte, error) {
	length, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	value := make([]byte, length)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, err
	}
	return value, nil
}

// WriteHash writes a fixed-width 32-byte hash.
func WriteHash(buf *bytes.Buffer, hash *externalapi.DomainHash) {
	buf.Write(hash[:])
}

// ReadHash reads a fixed-width 32-byte hash.
func ReadHash(r io.Reader) (*externalapi.DomainHash, error) {
	var b [externalapi.DomainHashSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	hash := externalapi.DomainHash(b)
	return &hash, nil
}

// WriteHashes writes a length-prefixed sequence of hashes.
func WriteHashes(buf *bytes.Buffer, hashes []*externalapi.DomainHash) {
	WriteUint64(buf, uint64(len(hashes)))
	for _, hash := range hashes {
		WriteHash(buf, hash)
	}
}

// ReadHashes reads a length-prefixed sequence of hashes written by
// WriteHashes.
func ReadHashes(r io.Reader) ([]*externalapi.DomainHash, error) {
	count, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	hashes := make([]*externalapi.DomainHash, count)
	for i := uint64(0); i < count; i++ {
		hash, err := ReadHash(r)
		if err != nil {
			return nil, err
		}
		hashes[i] = hash
	}
	return hashes, nil
}

// WriteBigInt writes the length-prefixed big-endian magnitude of a big.Int
// (value.Bytes()). The sign is not stored, so only non-negative values
// round-trip (blue-work accumulators are always non-negative).
func WriteBigInt(buf *bytes.Buffer, value *big.Int) {
	WriteBytes(buf, value.Bytes())
}

// ReadBigInt reads a big.Int written by WriteBigInt.
func ReadBigInt(r io.Reader) (*big.Int, error) {
	b, err := ReadBytes(r)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// ErrUnexpectedEOF names the short-buffer condition. The readers in this
// package do not return it: a short buffer surfaces as the error that
// io.ReadFull reports.
var ErrUnexpectedEOF = errors.New("unexpected end of serialized data")
