package database

import "bytes"

// Bucket is a fixed byte prefix partitioning a store's key space from every
// other store sharing the same underlying engine, per spec.md §6 ("The key
// layout partitions stores by a fixed byte prefix").
type Bucket struct {
	path []byte
}

// MakeBucket creates a new Bucket with the given path as prefix.
func MakeBucket(path []byte) *Bucket {
	return &Bucket{path: path}
}

// Bucket returns a sub-bucket nested under this one, joined by a separator
// byte, so that e.g. relations-per-level can share a "relations" bucket
// while still partitioning by level.
func (b *Bucket) Bucket(suffix []byte) *Bucket {
	return &Bucket{path: append(append([]byte{}, b.path...), append([]byte{'/'}, suffix...)...)}
}

// Key builds a full store key: the bucket's path followed by the entity
// key (a hash, (level, hash) pair, IP, or AddressKey, serialized by the
// caller).
func (b *Bucket) Key(suffix []byte) *Key {
	key := make([]byte, 0, len(b.path)+1+len(suffix))
	key = append(key, b.path...)
	key = append(key, '/')
	key = append(key, suffix...)
	return &Key{bucket: b, suffix: append([]byte{}, suffix...), bytes: key}
}

// Path returns the bucket's raw prefix bytes.
func (b *Bucket) Path() []byte {
	return b.path
}

// Key is a full, engine-ready key: a bucket prefix plus a raw entity
// suffix.
type Key struct {
	bucket *Bucket
	suffix []byte
	bytes  []byte
}

// Bytes returns the raw bytes to hand to the storage engine.
func (k *Key) Bytes() []byte {
	return k.bytes
}

// Suffix returns the entity-specific portion of the key (without the
// bucket prefix).
func (k *Key) Suffix() []byte {
	return k.suffix
}

// Bucket returns the bucket the key belongs to.
func (k *Key) Bucket() *Bucket {
	return k.bucket
}

// Equal returns whether two keys are byte-identical.
func (k *Key) Equal(other *Key) bool {
	return bytes.Equal(k.bytes, other.bytes)
}
