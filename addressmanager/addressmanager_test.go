package addressmanager

import (
	"net"
	"testing"

	"github.com/dagchain/ghostnode/dagconfig"
	"github.com/dagchain/ghostnode/infrastructure/db/memdb"
	"github.com/stretchr/testify/require"
)

func testParams() *dagconfig.Params {
	return &dagconfig.Params{
		MaxAddresses:             4096,
		MaxConnectionFailedCount: 3,
		BanDurationSeconds:       24 * 60 * 60,
	}
}

func addr(ip string, port uint16) NetAddress {
	return NetAddress{IP: net.ParseIP(ip), Port: port}
}

func newManager(t *testing.T) *AddressManager {
	t.Helper()
	m, err := New(memdb.New(), testParams())
	require.NoError(t, err)
	return m
}

func TestAddInsertsWithFailedCountOne(t *testing.T) {
	m := newManager(t)
	a := addr("1.2.3.4", 16111)

	require.NoError(t, m.Add(a))

	entry, ok := m.notBanned.get(a)
	require.True(t, ok)
	require.Equal(t, uint64(1), entry.ConnectionFailedCount)
}

func TestAddIsIdempotentOnAlreadyPresentAddress(t *testing.T) {
	m := newManager(t)
	a := addr("1.2.3.4", 16111)

	require.NoError(t, m.Add(a))
	require.NoError(t, m.MarkConnectionSuccess(a))
	require.NoError(t, m.Add(a)) // must not reset an already-present address back to 1

	entry, ok := m.notBanned.get(a)
	require.True(t, ok)
	require.Equal(t, uint64(0), entry.ConnectionFailedCount)
}

func TestMarkConnectionFailureIncrementsThenEvicts(t *testing.T) {
	m := newManager(t)
	a := addr("1.2.3.4", 16111)
	require.NoError(t, m.Add(a))

	for i := 0; i < 2; i++ {
		require.NoError(t, m.MarkConnectionFailure(a))
	}
	entry, ok := m.notBanned.get(a)
	require.True(t, ok)
	require.Equal(t, uint64(3), entry.ConnectionFailedCount)

	// A third failure pushes the count to 4, past max (3), and evicts the entry.
	require.NoError(t, m.MarkConnectionFailure(a))
	require.False(t, m.notBanned.has(a))
}

// TestMarkFailureThenSuccessResetsToZero exercises spec.md §8's address
// directory law: after mark_failure called n times then mark_success,
// connection_failed_count == 0.
func TestMarkFailureThenSuccessResetsToZero(t *testing.T) {
	m := newManager(t)
	a := addr("5.6.7.8", 16111)
	require.NoError(t, m.Add(a))

	for i := 0; i < 2; i++ {
		require.NoError(t, m.MarkConnectionFailure(a))
	}
	require.NoError(t, m.MarkConnectionSuccess(a))

	entry, ok := m.notBanned.get(a)
	require.True(t, ok)
	require.Equal(t, uint64(0), entry.ConnectionFailedCount)
}

func TestMarkConnectionFailureOnUnknownAddressIsANoOp(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.MarkConnectionFailure(addr("9.9.9.9", 16111)))
	require.False(t, m.notBanned.has(addr("9.9.9.9", 16111)))
}

// TestBanRemovesEveryMatchingNotBannedEntry exercises spec.md §8's
// address directory law: after ban(ip), every entry whose IP equals ip
// is absent.
func TestBanRemovesEveryMatchingNotBannedEntry(t *testing.T) {
	m := newManager(t)
	ip := "1.2.3.4"
	require.NoError(t, m.Add(addr(ip, 16111)))
	require.NoError(t, m.Add(addr(ip, 16112))) // same IP, different port
	require.NoError(t, m.Add(addr("5.6.7.8", 16111)))

	require.NoError(t, m.Ban(net.ParseIP(ip)))

	require.False(t, m.notBanned.has(addr(ip, 16111)))
	require.False(t, m.notBanned.has(addr(ip, 16112)))
	require.True(t, m.notBanned.has(addr("5.6.7.8", 16111)))
}

func TestIsBannedTrueImmediatelyAfterBan(t *testing.T) {
	m := newManager(t)
	ip := net.ParseIP("1.2.3.4")

	require.NoError(t, m.Ban(ip))
	banned, err := m.IsBanned(ip)
	require.NoError(t, err)
	require.True(t, banned)
}

func TestIsBannedFalseForNeverBannedIP(t *testing.T) {
	m := newManager(t)
	banned, err := m.IsBanned(net.ParseIP("1.2.3.4"))
	require.NoError(t, err)
	require.False(t, banned)
}

// TestIsBannedLazilyExpiresAfterMaxAge pins nowUnix to simulate time
// passing beyond the 24h ban duration and confirms the record is cleared
// on query (spec.md §4.8: "expired bans are lazily unbanned on query").
func TestIsBannedLazilyExpiresAfterMaxAge(t *testing.T) {
	m := newManager(t)
	ip := net.ParseIP("1.2.3.4")

	originalNow := nowUnix
	defer func() { nowUnix = originalNow }()

	nowUnix = func() int64 { return 1_000_000 }
	require.NoError(t, m.Ban(ip))

	nowUnix = func() int64 { return 1_000_000 + int64(maxBannedAge.Seconds()) + 1 }
	banned, err := m.IsBanned(ip)
	require.NoError(t, err)
	require.False(t, banned, "a ban older than 24h must be treated as expired")

	_, found, err := getBanTimestamp(m.db, ip)
	require.NoError(t, err)
	require.False(t, found, "an expired ban query must clear the record")
}

func TestUnbanClearsRecord(t *testing.T) {
	m := newManager(t)
	ip := net.ParseIP("1.2.3.4")
	require.NoError(t, m.Ban(ip))
	require.NoError(t, m.Unban(ip))

	banned, err := m.IsBanned(ip)
	require.NoError(t, err)
	require.False(t, banned)
}

func TestGetAllAddressesReturnsEveryNotBannedEntry(t *testing.T) {
	m := newManager(t)
	addresses := []NetAddress{addr("1.1.1.1", 1), addr("2.2.2.2", 2), addr("3.3.3.3", 3)}
	for _, a := range addresses {
		require.NoError(t, m.Add(a))
	}

	all := m.GetAllAddresses()
	require.Len(t, all, len(addresses))
}

// TestGetRandomAddressesIsAPermutationExcludingGivenSet exercises
// spec.md §8's address directory law: get_random(except) returns a
// permutation of addresses \ except, with no duplicates.
func TestGetRandomAddressesIsAPermutationExcludingGivenSet(t *testing.T) {
	m := newManager(t)
	all := []NetAddress{addr("1.1.1.1", 1), addr("2.2.2.2", 2), addr("3.3.3.3", 3), addr("4.4.4.4", 4)}
	for _, a := range all {
		require.NoError(t, m.Add(a))
	}
	except := []NetAddress{addr("2.2.2.2", 2)}

	result := m.GetRandomAddresses(except)
	require.Len(t, result, 3)

	seen := make(map[AddressKey]struct{})
	for _, a := range result {
		key := newAddressKey(a)
		_, duplicate := seen[key]
		require.False(t, duplicate, "GetRandomAddresses must not repeat an address")
		seen[key] = struct{}{}
		require.NotEqual(t, addr("2.2.2.2", 2), a, "GetRandomAddresses must never return an excluded address")
	}
}

// TestMapCardinalityNeverExceedsMaxAddresses exercises spec.md §8's
// address directory law: map cardinality never exceeds 4,096 - here with
// a small cap so the eviction path actually triggers.
func TestMapCardinalityNeverExceedsMaxAddresses(t *testing.T) {
	params := testParams()
	params.MaxAddresses = 3
	m, err := New(memdb.New(), params)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Add(addr("1.2.3.4", uint16(i))))
	}
	require.LessOrEqual(t, m.notBanned.len(), 3)
}

// TestMapCardinalityEvictsHighestFailedCountFirst confirms eviction
// targets the worst-standing entry, not an arbitrary one.
func TestMapCardinalityEvictsHighestFailedCountFirst(t *testing.T) {
	params := testParams()
	params.MaxAddresses = 2
	m, err := New(memdb.New(), params)
	require.NoError(t, err)

	worst := addr("1.1.1.1", 1)
	require.NoError(t, m.Add(worst))
	require.NoError(t, m.MarkConnectionFailure(worst))
	require.NoError(t, m.MarkConnectionFailure(worst)) // failed count 3, at but not over the cap: kept

	require.NoError(t, m.Add(addr("2.2.2.2", 2))) // failed count 1, len 2: still within cap
	require.NoError(t, m.Add(addr("3.3.3.3", 3))) // pushes len to 3: worst (count 3) is evicted

	require.LessOrEqual(t, m.notBanned.len(), 2)
	require.False(t, m.notBanned.has(worst), "the entry with the highest failed count must be evicted first")
	require.True(t, m.notBanned.has(addr("2.2.2.2", 2)))
	require.True(t, m.notBanned.has(addr("3.3.3.3", 3)))
}

func TestNotBannedMirrorSurvivesReload(t *testing.T) {
	db := memdb.New()
	params := testParams()

	m1, err := New(db, params)
	require.NoError(t, err)
	require.NoError(t, m1.Add(addr("1.2.3.4", 16111)))

	m2, err := New(db, params)
	require.NoError(t, err)
	require.True(t, m2.notBanned.has(addr("1.2.3.4", 16111)), "a fresh manager over the same db must rebuild its mirror from disk")
}

func TestWeightedSampleWithoutReplacementIsAPermutation(t *testing.T) {
	weights := []float64{64, 64 * 64, 64 * 64 * 64}
	order := weightedSampleWithoutReplacement(weights)
	require.Len(t, order, len(weights))

	seen := make(map[int]struct{})
	for _, i := range order {
		_, duplicate := seen[i]
		require.False(t, duplicate)
		seen[i] = struct{}{}
	}
}
