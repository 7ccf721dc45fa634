// Package connmanager adapts kaspad's outbound-connection maintenance
// loop to this core's address directory and transport stub. Which peer
// to dial is the address directory's call (spec.md §4.8's weighted
// sampling); this package only keeps the outgoing count topped up to a
// target and tears connections down on Stop - peer selection itself
// stays out of scope.
package connmanager

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dagchain/ghostnode/addressmanager"
	"github.com/dagchain/ghostnode/infrastructure/logger"
	"github.com/dagchain/ghostnode/infrastructure/network/netadapter"
)

var log = logger.NewLogger("CMGR")

const connectionsLoopInterval = 30 * time.Second

// ConnectionManager maintains a target number of outgoing connections,
// drawing candidates from an address directory, and tracks them so Stop
// can tear every one back down.
type ConnectionManager struct {
	netAdapter *netadapter.NetAdapter
	addresses  *addressmanager.AddressManager

	targetOutgoing int

	mu             sync.Mutex
	activeOutgoing map[string]addressmanager.NetAddress

	stop uint32
}

// New creates a connection manager wired to netAdapter and addresses,
// targeting targetOutgoing simultaneous outgoing connections.
func New(netAdapter *netadapter.NetAdapter, addresses *addressmanager.AddressManager, targetOutgoing int) *ConnectionManager {
	return &ConnectionManager{
		netAdapter:     netAdapter,
		addresses:      addresses,
		targetOutgoing: targetOutgoing,
		activeOutgoing: make(map[string]addressmanager.NetAddress),
	}
}

// Start begins the maintenance loop in the background.
func (c *ConnectionManager) Start() {
	go c.connectionsLoop()
}

// Stop halts the maintenance loop and disconnects every outgoing peer it
// opened.
func (c *ConnectionManager) Stop() {
	atomic.StoreUint32(&c.stop, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	for peerID := range c.activeOutgoing {
		c.netAdapter.DisconnectPeer(peerID)
		delete(c.activeOutgoing, peerID)
	}
}

func (c *ConnectionManager) connectionsLoop() {
	for atomic.LoadUint32(&c.stop) == 0 {
		c.topUpOutgoing()
		time.Sleep(connectionsLoopInterval)
	}
}

// topUpOutgoing draws enough fresh candidates from the address directory
// to reach targetOutgoing, excluding already-connected addresses.
func (c *ConnectionManager) topUpOutgoing() {
	c.mu.Lock()
	deficit := c.targetOutgoing - len(c.activeOutgoing)
	except := make([]addressmanager.NetAddress, 0, len(c.activeOutgoing))
	for _, address := range c.activeOutgoing {
		except = append(except, address)
	}
	c.mu.Unlock()

	if deficit <= 0 {
		return
	}

	candidates := c.addresses.GetRandomAddresses(except)
	for i := 0; i < deficit && i < len(candidates); i++ {
		c.dial(candidates[i])
	}
}

// dial attempts one outgoing connection and reports the outcome back to
// the address directory (spec.md §4.8's mark_failure/mark_success) so
// future sampling keeps favoring reliable peers.
func (c *ConnectionManager) dial(address addressmanager.NetAddress) {
	peerID := fmt.Sprintf("%s:%d", address.IP, address.Port)

	_, err := c.netAdapter.Connect(peerID, peerID)
	if err != nil {
		log.Warnf("outgoing connection to %s failed: %s", peerID, err)
		if markErr := c.addresses.MarkConnectionFailure(address); markErr != nil {
			log.Errorf("recording connection failure for %s: %s", peerID, markErr)
		}
		return
	}

	if err := c.addresses.MarkConnectionSuccess(address); err != nil {
		log.Errorf("recording connection success for %s: %s", peerID, err)
	}

	c.mu.Lock()
	c.activeOutgoing[peerID] = address
	c.mu.Unlock()
	log.Infof("connected to %s", peerID)
}
