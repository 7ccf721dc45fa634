package connmanager

import (
	"net"
	"testing"

	"github.com/dagchain/ghostnode/addressmanager"
	"github.com/dagchain/ghostnode/dagconfig"
	"github.com/dagchain/ghostnode/infrastructure/db/memdb"
	"github.com/dagchain/ghostnode/infrastructure/network/netadapter"
	"github.com/stretchr/testify/require"
)

func testParams() *dagconfig.Params {
	return &dagconfig.Params{
		MaxAddresses:             4096,
		MaxConnectionFailedCount: 3,
		BanDurationSeconds:       24 * 60 * 60,
	}
}

func addr(ip string, port uint16) addressmanager.NetAddress {
	return addressmanager.NetAddress{IP: net.ParseIP(ip), Port: port}
}

func newTestManagers(t *testing.T) (*netadapter.NetAdapter, *addressmanager.AddressManager) {
	t.Helper()
	a := netadapter.New()
	require.NoError(t, a.Start("127.0.0.1:0"))
	t.Cleanup(a.Stop)

	addresses, err := addressmanager.New(memdb.New(), testParams())
	require.NoError(t, err)
	return a, addresses
}

func TestTopUpOutgoingDialsUpToTarget(t *testing.T) {
	netAdapter, addresses := newTestManagers(t)
	require.NoError(t, addresses.Add(addr("127.0.0.1", 10001)))
	require.NoError(t, addresses.Add(addr("127.0.0.1", 10002)))
	require.NoError(t, addresses.Add(addr("127.0.0.1", 10003)))

	c := New(netAdapter, addresses, 2)
	c.topUpOutgoing()

	c.mu.Lock()
	count := len(c.activeOutgoing)
	c.mu.Unlock()
	require.Equal(t, 2, count)
}

func TestTopUpOutgoingIsANoOpOnceTargetIsReached(t *testing.T) {
	netAdapter, addresses := newTestManagers(t)
	require.NoError(t, addresses.Add(addr("127.0.0.1", 10001)))
	require.NoError(t, addresses.Add(addr("127.0.0.1", 10002)))

	c := New(netAdapter, addresses, 1)
	c.topUpOutgoing()

	c.mu.Lock()
	require.Len(t, c.activeOutgoing, 1)
	var onlyPeerID string
	for peerID := range c.activeOutgoing {
		onlyPeerID = peerID
	}
	c.mu.Unlock()

	c.topUpOutgoing()

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.activeOutgoing, 1, "a satisfied target must not dial further candidates")
	for peerID := range c.activeOutgoing {
		require.Equal(t, onlyPeerID, peerID, "an already-connected peer must not be redialed")
	}
}

func TestStopDisconnectsActiveOutgoing(t *testing.T) {
	netAdapter, addresses := newTestManagers(t)
	require.NoError(t, addresses.Add(addr("127.0.0.1", 10001)))

	c := New(netAdapter, addresses, 1)
	c.topUpOutgoing()

	c.mu.Lock()
	require.Len(t, c.activeOutgoing, 1)
	c.mu.Unlock()

	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Empty(t, c.activeOutgoing)
}
