package netadapter

import (
	"testing"
	"time"

	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/stretchr/testify/require"
)

func TestStartAndStopLifecycle(t *testing.T) {
	a := New()
	require.NoError(t, a.Start("127.0.0.1:0"))
	a.Stop()
}

func TestRouterForPeerReturnsSameRouterForSamePeer(t *testing.T) {
	a := New()
	defer a.Stop()

	first := a.RouterForPeer("peer-1")
	second := a.RouterForPeer("peer-1")
	require.Equal(t, first, second)

	third := a.RouterForPeer("peer-2")
	require.NotEqual(t, first, third)
}

func TestRouterOutgoingIsNotLoopedBackToIncoming(t *testing.T) {
	a := New()
	defer a.Stop()

	r := a.RouterForPeer("peer-1")
	task := blocktask.ExitTask()

	go func() { r.Outgoing() <- task }()

	select {
	case got := <-r.Incoming():
		t.Fatalf("unexpected delivery on Incoming from a send on Outgoing: %+v", got)
	case <-time.After(10 * time.Millisecond):
		// Outgoing and Incoming are distinct channels (a peer's outbound
		// traffic is never looped back as its own inbound traffic); this
		// confirms the two aren't accidentally aliased.
	}
}

func TestConnectRegistersRouterForPeer(t *testing.T) {
	a := New()
	require.NoError(t, a.Start("127.0.0.1:0"))
	defer a.Stop()

	r, err := a.Connect("peer-1", "127.0.0.1:0")
	require.NoError(t, err)
	require.Equal(t, r, a.RouterForPeer("peer-1"))

	a.DisconnectPeer("peer-1")
	_, open := <-r.Incoming()
	require.False(t, open)
}

func TestDisconnectPeerClosesRouter(t *testing.T) {
	a := New()
	defer a.Stop()

	r := a.RouterForPeer("peer-1")
	a.DisconnectPeer("peer-1")

	_, open := <-r.Incoming()
	require.False(t, open, "a disconnected peer's router must have closed channels")

	fresh := a.RouterForPeer("peer-1")
	require.NotEqual(t, r, fresh, "reconnecting the same peer ID must get a new router, not the closed one")
}
