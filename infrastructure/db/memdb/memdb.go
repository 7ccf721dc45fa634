// Package memdb implements database.DataAccessor purely in memory, used by
// unit and property tests that exercise store logic without paying for a
// real badger instance (spec.md §9, "implementations include a disk-backed
// cached form and an in-memory form for tests").
package memdb

import (
	"bytes"
	"sort"
	"sync"

	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/pkg/errors"
)

// MemDB is an in-memory database.DataAccessor.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty MemDB.
func New() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

// Put implements database.DataAccessor.
func (m *MemDB) Put(key *database.Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := append([]byte{}, value...)
	m.data[string(key.Bytes())] = stored
	return nil
}

// Delete implements database.DataAccessor.
func (m *MemDB) Delete(key *database.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key.Bytes()))
	return nil
}

// Get implements database.DataAccessor.
func (m *MemDB) Get(key *database.Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[string(key.Bytes())]
	if !ok {
		return nil, database.NewErrNotFound(key)
	}
	return append([]byte{}, value...), nil
}

// Has implements database.DataAccessor.
func (m *MemDB) Has(key *database.Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key.Bytes())]
	return ok, nil
}

// NewBatch implements database.DataAccessor.
func (m *MemDB) NewBatch() database.Batch {
	return &memBatch{}
}

// Write implements database.DataAccessor.
func (m *MemDB) Write(dbBatch database.Batch) error {
	mb, ok := dbBatch.(*memBatch)
	if !ok {
		return errors.New("batch was not created by memdb.NewBatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range mb.ops {
		if op.isDelete {
			delete(m.data, string(op.key))
			continue
		}
		m.data[string(op.key)] = op.value
	}
	return nil
}

// Cursor implements database.DataAccessor.
func (m *MemDB) Cursor(bucket *database.Bucket) (database.Cursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := append(append([]byte{}, bucket.Path()...), '/')
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	entries := make([]cursorEntry, len(keys))
	for i, k := range keys {
		entries[i] = cursorEntry{
			key:   bucket.Key([]byte(k[len(prefix):])),
			value: append([]byte{}, m.data[k]...),
		}
	}
	return &memCursor{bucket: bucket, entries: entries, index: -1}, nil
}

// Close implements database.DataAccessor.
func (m *MemDB) Close() error {
	return nil
}

type opKind struct {
	key      []byte
	value    []byte
	isDelete bool
}

type memBatch struct {
	ops []opKind
}

func (b *memBatch) Put(key *database.Key, value []byte) error {
	b.ops = append(b.ops, opKind{key: key.Bytes(), value: append([]byte{}, value...)})
	return nil
}

func (b *memBatch) Delete(key *database.Key) error {
	b.ops = append(b.ops, opKind{key: key.Bytes(), isDelete: true})
	return nil
}

type cursorEntry struct {
	key   *database.Key
	value []byte
}

type memCursor struct {
	bucket  *database.Bucket
	entries []cursorEntry
	index   int
}

func (c *memCursor) Next() bool {
	c.index++
	return c.index < len(c.entries)
}

func (c *memCursor) Key() (*database.Key, error) {
	if c.index < 0 || c.index >= len(c.entries) {
		return nil, errors.New("cursor: Key called without a valid position")
	}
	return c.entries[c.index].key, nil
}

func (c *memCursor) Value() ([]byte, error) {
	if c.index < 0 || c.index >= len(c.entries) {
		return nil, errors.New("cursor: Value called without a valid position")
	}
	return c.entries[c.index].value, nil
}

func (c *memCursor) Close() error {
	return nil
}
