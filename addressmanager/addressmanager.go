package addressmanager

import (
	"math"
	"net"
	"sync"
	"time"

	"github.com/dagchain/ghostnode/dagconfig"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/dagchain/ghostnode/infrastructure/logger"
	"github.com/google/uuid"
)

// nowUnix is the wall-clock source for ban timestamps, overridable by
// tests (spec.md §4.8's unix_now()).
var nowUnix = func() int64 { return time.Now().Unix() }

const maxBannedAge = 24 * time.Hour

var log = logger.NewLogger("ADXR")

// AddressManager is the known-peer directory of spec.md §4.8: a
// not-banned address table (mirrored in memory) plus a banned-IP table,
// with weighted random sampling that favors addresses with fewer recent
// connection failures. Grounded in the original component's
// AddressManager (components/addressmanager/src/lib.rs).
type AddressManager struct {
	mu sync.Mutex

	db        database.DataAccessor
	notBanned *notBannedStore

	maxAddresses             int
	maxConnectionFailedCount uint64
}

// New loads the not-banned mirror from db and returns a ready directory.
func New(db database.DataAccessor, params *dagconfig.Params) (*AddressManager, error) {
	notBanned, err := newNotBannedStore(db)
	if err != nil {
		return nil, err
	}
	return &AddressManager{
		db:                       db,
		notBanned:                notBanned,
		maxAddresses:             params.MaxAddresses,
		maxConnectionFailedCount: uint64(params.MaxConnectionFailedCount),
	}, nil
}

// Add inserts address with an initial failed count of 1 - a fresh
// address counts as a hypothetical first failure until a successful
// connection resets it to zero, matching the original's own comment
// ("we mark connection_failed_count as 0 only after first success").
//
// TODO: don't add non-routable addresses.
func (m *AddressManager) Add(address NetAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.notBanned.has(address) {
		return nil
	}
	return m.notBanned.set(m.db, address, 1, m.maxAddresses)
}

// MarkConnectionFailure increments address's consecutive-failure count,
// evicting it once the count exceeds the configured maximum.
func (m *AddressManager) MarkConnectionFailure(address NetAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.notBanned.get(address)
	if !ok {
		return nil
	}
	newCount := entry.ConnectionFailedCount + 1
	if newCount > m.maxConnectionFailedCount {
		return m.notBanned.remove(m.db, address)
	}
	return m.notBanned.set(m.db, address, newCount, m.maxAddresses)
}

// MarkConnectionSuccess resets address's failure streak to zero.
func (m *AddressManager) MarkConnectionSuccess(address NetAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.notBanned.has(address) {
		return nil
	}
	return m.notBanned.set(m.db, address, 0, m.maxAddresses)
}

// GetAllAddresses returns every not-banned address, in no particular
// order.
func (m *AddressManager) GetAllAddresses() []NetAddress {
	return m.notBanned.all()
}

// GetRandomAddresses samples every not-banned address not in except,
// without replacement, favoring lower connection-failure counts: weight
// = 64^((maxConnectionFailedCount+1) - failed_count) (spec.md §4.8).
func (m *AddressManager) GetRandomAddresses(except []NetAddress) []NetAddress {
	sessionID := uuid.New()
	log.Debugf("sampling session %s: starting with %d exceptions", sessionID, len(except))

	excluded := make(map[AddressKey]struct{}, len(except))
	for _, address := range except {
		excluded[newAddressKey(address)] = struct{}{}
	}

	entries := m.notBanned.snapshot()
	candidates := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if _, skip := excluded[newAddressKey(entry.Address)]; skip {
			continue
		}
		candidates = append(candidates, entry)
	}

	weights := make([]float64, len(candidates))
	for i, entry := range candidates {
		exponent := float64(m.maxConnectionFailedCount+1) - float64(entry.ConnectionFailedCount)
		weights[i] = math.Pow(64, exponent)
	}

	order := weightedSampleWithoutReplacement(weights)
	out := make([]NetAddress, len(order))
	for i, idx := range order {
		out[i] = candidates[idx].Address
	}
	log.Debugf("sampling session %s: drew %d of %d candidates", sessionID, len(out), len(candidates))
	return out
}

// Ban records ip as banned as of now and purges every not-banned entry
// whose IP matches it.
func (m *AddressManager) Ban(ip net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := setBanTimestamp(m.db, ip, nowUnix()); err != nil {
		return err
	}
	return m.notBanned.removeByIP(m.db, ip)
}

// Unban clears ip's ban record, if any.
func (m *AddressManager) Unban(ip net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return removeBan(m.db, ip)
}

// IsBanned reports whether ip has a live ban record, lazily clearing an
// expired one (spec.md §4.8: "expired bans are lazily unbanned on
// query").
func (m *AddressManager) IsBanned(ip net.IP) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	timestamp, found, err := getBanTimestamp(m.db, ip)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	age := time.Duration(nowUnix()-timestamp) * time.Second
	if age > maxBannedAge {
		if err := removeBan(m.db, ip); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
