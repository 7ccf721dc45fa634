// Package database defines the abstract key-value interface every
// persistent store in the consensus core is built on, per spec.md §6:
// point get, prefix iterate, batched put/delete, atomic batch flush.
// Concrete engines (badgerdb) and an in-memory test double both satisfy
// DataAccessor so store code never depends on which engine backs it.
package database

// Writer is the common mutation surface shared by a direct accessor and a
// staged batch. Store code takes a Writer as an explicit parameter rather
// than selecting batched-vs-direct behavior via a mode flag (spec.md
// §4.1, §9 "writer capability").
type Writer interface {
	// Put sets the value for the given key. It overwrites any previous
	// value for that key.
	Put(key *Key, value []byte) error

	// Delete deletes the value for the given key. Will not return an
	// error if the key doesn't exist.
	Delete(key *Key) error
}

// Batch gathers mutations to be flushed atomically by DataAccessor.Write.
// A batch is never shared across goroutines: it's created, mutated and
// flushed by one worker (spec.md §5, "Shared-resource discipline").
type Batch interface {
	Writer
}

// Cursor iterates the keys of a bucket in key order.
type Cursor interface {
	Next() bool
	Key() (*Key, error)
	Value() ([]byte, error)
	Close() error
}

// DataAccessor defines the common interface by which data gets accessed
// in a generic ghostnode database.
type DataAccessor interface {
	Writer

	// Get gets the value for the given key. It returns a not-found
	// error if the given key does not exist.
	Get(key *Key) ([]byte, error)

	// Has returns true if the database contains the given key.
	Has(key *Key) (bool, error)

	// Cursor begins a new cursor over the given bucket.
	Cursor(bucket *Bucket) (Cursor, error)

	// NewBatch creates a fresh batch for gathering mutations.
	NewBatch() Batch

	// Write flushes a batch atomically. This is the sole mechanism by
	// which several stores commit as a single crash-safe unit (spec.md
	// §4.6.1, the commit protocol).
	Write(batch Batch) error

	// Close releases the underlying engine resources.
	Close() error
}

// noOpWriter discards every mutation. Threaded through a batch parameter
// for pure in-memory code paths where uniformity with the disk-backed
// writer capability is wanted but nothing should actually be persisted
// (spec.md §4.1, §9 "Polymorphic stores").
type noOpWriter struct{}

// NewNoOpWriter returns a Writer that performs no mutation.
func NewNoOpWriter() Writer {
	return noOpWriter{}
}

func (noOpWriter) Put(*Key, []byte) error { return nil }
func (noOpWriter) Delete(*Key) error      { return nil }
