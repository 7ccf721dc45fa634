// Package badgerdb implements database.DataAccessor on top of
// github.com/dgraph-io/badger/v3, the embedded key-value engine the
// consensus core persists every store through (spec.md §6, "Storage
// engine"). Badger's WriteBatch backs the atomic batch-flush capability
// the header processor's commit protocol depends on.
package badgerdb

import (
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

// BadgerDB is a database.DataAccessor backed by a badger.DB instance.
type BadgerDB struct {
	db *badger.DB
}

// Open opens (creating if necessary) a badger database rooted at path.
func Open(path string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed opening badger database at %s", path)
	}
	return &BadgerDB{db: db}, nil
}

// Close implements database.DataAccessor.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}

// Put implements database.DataAccessor.
func (b *BadgerDB) Put(key *database.Key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key.Bytes(), value)
	})
}

// Delete implements database.DataAccessor.
func (b *BadgerDB) Delete(key *database.Key) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key.Bytes())
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Get implements database.DataAccessor.
func (b *BadgerDB) Get(key *database.Key) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.Bytes())
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, database.NewErrNotFound(key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed getting key %x", key.Bytes())
	}
	return value, nil
}

// Has implements database.DataAccessor.
func (b *BadgerDB) Has(key *database.Key) (bool, error) {
	_, err := b.Get(key)
	if err != nil {
		if database.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewBatch implements database.DataAccessor.
func (b *BadgerDB) NewBatch() database.Batch {
	return &batch{wb: b.db.NewWriteBatch()}
}

// Write implements database.DataAccessor.
func (b *BadgerDB) Write(dbBatch database.Batch) error {
	bb, ok := dbBatch.(*batch)
	if !ok {
		return errors.New("batch was not created by badgerdb.NewBatch")
	}
	return bb.wb.Flush()
}

// Cursor implements database.DataAccessor.
func (b *BadgerDB) Cursor(bucket *database.Bucket) (database.Cursor, error) {
	txn := b.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = bucket.Path()
	it := txn.NewIterator(opts)
	it.Seek(bucket.Path())
	return &cursor{txn: txn, it: it, bucket: bucket, started: false}, nil
}

type batch struct {
	wb *badger.WriteBatch
}

func (bt *batch) Put(key *database.Key, value []byte) error {
	return bt.wb.Set(key.Bytes(), value)
}

func (bt *batch) Delete(key *database.Key) error {
	return bt.wb.Delete(key.Bytes())
}

type cursor struct {
	txn     *badger.Txn
	it      *badger.Iterator
	bucket  *database.Bucket
	started bool
	valid   bool
}

func (c *cursor) Next() bool {
	if !c.started {
		c.started = true
	} else {
		c.it.Next()
	}
	c.valid = c.it.ValidForPrefix(c.bucket.Path())
	return c.valid
}

func (c *cursor) Key() (*database.Key, error) {
	if !c.valid {
		return nil, errors.New("cursor: Key called without a valid position")
	}
	item := c.it.Item()
	full := item.KeyCopy(nil)
	suffix := full[len(c.bucket.Path())+1:]
	return c.bucket.Key(suffix), nil
}

func (c *cursor) Value() ([]byte, error) {
	if !c.valid {
		return nil, errors.New("cursor: Value called without a valid position")
	}
	item := c.it.Item()
	return item.ValueCopy(nil)
}

func (c *cursor) Close() error {
	c.it.Close()
	c.txn.Discard()
	return nil
}
