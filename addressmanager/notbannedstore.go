package addressmanager

import (
	"bytes"
	"net"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

var notBannedBucket = database.MakeBucket([]byte("not-banned-addresses"))

// notBannedStore mirrors every not-banned address in memory alongside the
// storage engine (spec.md §4.8: "mirrored in memory for O(1) enumeration
// and sampling"), the same shape as the original component's own
// HashMap-over-DbStore cache - cheap because the directory is capped
// small (maxAddresses).
type notBannedStore struct {
	mu      sync.RWMutex
	entries map[AddressKey]Entry
}

func newNotBannedStore(db database.DataAccessor) (*notBannedStore, error) {
	s := &notBannedStore{entries: make(map[AddressKey]Entry)}

	cursor, err := db.Cursor(notBannedBucket)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	for cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return nil, err
		}
		value, err := cursor.Value()
		if err != nil {
			return nil, err
		}
		entry, err := deserializeEntry(value)
		if err != nil {
			return nil, err
		}
		s.entries[addressKeyFromBytes(key.Suffix())] = entry
	}
	return s, nil
}

func (s *notBannedStore) has(address NetAddress) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[newAddressKey(address)]
	return ok
}

func (s *notBannedStore) get(address NetAddress) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[newAddressKey(address)]
	return entry, ok
}

// set inserts or overwrites address's entry, then evicts down to
// maxAddresses if the insert pushed the directory over capacity
// (spec.md §4.8: "when over, evict the entry with maximum failed_count").
func (s *notBannedStore) set(db database.DataAccessor, address NetAddress, failedCount uint64, maxAddresses int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := newAddressKey(address)
	entry := Entry{Address: address, ConnectionFailedCount: failedCount}
	if err := db.Put(notBannedBucket.Key(key.bytes()), serializeEntry(entry)); err != nil {
		return err
	}
	s.entries[key] = entry

	return s.evictOverCapacityNoLock(db, maxAddresses)
}

func (s *notBannedStore) removeKeyNoLock(db database.DataAccessor, key AddressKey) error {
	if err := db.Delete(notBannedBucket.Key(key.bytes())); err != nil {
		return err
	}
	delete(s.entries, key)
	return nil
}

func (s *notBannedStore) remove(db database.DataAccessor, address NetAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeKeyNoLock(db, newAddressKey(address))
}

// removeByIP purges every entry whose IP matches ip, the effect ban(ip)
// needs on the not-banned side (spec.md §4.8: "purges all entries whose
// IP matches").
func (s *notBannedStore) removeByIP(db database.DataAccessor, ip net.IP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if key.isIP(ip) {
			if err := s.removeKeyNoLock(db, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *notBannedStore) evictOverCapacityNoLock(db database.DataAccessor, maxAddresses int) error {
	for len(s.entries) > maxAddresses {
		var worstKey AddressKey
		var worstCount uint64
		found := false
		for key, entry := range s.entries {
			if !found || entry.ConnectionFailedCount > worstCount {
				worstKey, worstCount, found = key, entry.ConnectionFailedCount, true
			}
		}
		if !found {
			break
		}
		if err := s.removeKeyNoLock(db, worstKey); err != nil {
			return err
		}
	}
	return nil
}

func (s *notBannedStore) all() []NetAddress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]NetAddress, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Address)
	}
	return out
}

// snapshot returns a defensive copy of every entry, for getRandom's
// weighted-sampling pass (which consumes working weights, not the store
// itself).
func (s *notBannedStore) snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	return out
}

func (s *notBannedStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func serializeEntry(entry Entry) []byte {
	buf := new(bytes.Buffer)
	binaryserialization.WriteBytes(buf, entry.Address.IP.To16())
	binaryserialization.WriteUint16(buf, entry.Address.Port)
	binaryserialization.WriteUint64(buf, entry.ConnectionFailedCount)
	return buf.Bytes()
}

func deserializeEntry(data []byte) (Entry, error) {
	r := bytes.NewReader(data)

	ip, err := binaryserialization.ReadBytes(r)
	if err != nil {
		return Entry{}, err
	}
	port, err := binaryserialization.ReadUint16(r)
	if err != nil {
		return Entry{}, err
	}
	failedCount, err := binaryserialization.ReadUint64(r)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Address: NetAddress{IP: net.IP(ip), Port: port}, ConnectionFailedCount: failedCount}, nil
}
