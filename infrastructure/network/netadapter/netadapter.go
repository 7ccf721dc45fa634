// Package netadapter is the transport boundary spec.md §6 names only
// through the narrow interface the header processor consumes: a
// BlockTask source and sink. Wire framing of the actual P2P protocol is
// a Non-goal of the core this repository implements, so NetAdapter is a
// thin stub over google.golang.org/grpc - enough surface for a real
// transport to be dropped in later without touching headerprocessor.
package netadapter

import (
	"net"
	"sync"

	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/infrastructure/logger"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var log = logger.NewLogger("NTAD")

// Router is the per-peer message path a connected remote end is
// addressed through - the minimal shape the header processor's upstream
// channel sits behind (spec.md §6 "Upstream (block ingress)").
type Router interface {
	// Outgoing returns the channel outbound BlockTasks for this peer are
	// written to.
	Outgoing() chan<- blocktask.Task
	// Incoming returns the channel inbound BlockTasks from this peer are
	// read from.
	Incoming() <-chan blocktask.Task
	// Close tears down the router's channels.
	Close()
}

// router is Router's concrete, in-process implementation: no actual
// wire codec, since framing is out of scope here.
type router struct {
	outgoing chan blocktask.Task
	incoming chan blocktask.Task
	once     sync.Once
	conn     *grpc.ClientConn // set only for client-dialed routers (Connect); nil for server-accepted ones
}

func newRouter() *router {
	return &router{
		outgoing: make(chan blocktask.Task, 64),
		incoming: make(chan blocktask.Task, 64),
	}
}

func (r *router) Outgoing() chan<- blocktask.Task { return r.outgoing }
func (r *router) Incoming() <-chan blocktask.Task { return r.incoming }

func (r *router) Close() {
	r.once.Do(func() {
		close(r.outgoing)
		close(r.incoming)
		if r.conn != nil {
			r.conn.Close()
		}
	})
}

// NetAdapter owns the process's single gRPC listener and hands out a
// Router per accepted connection. No service is registered on the
// underlying grpc.Server: actual block/header wire messages are a
// Non-goal, so the server exists only to prove out the lifecycle
// (listen, accept, serve, stop) a real protocol would be registered
// onto.
type NetAdapter struct {
	mu       sync.Mutex
	server   *grpc.Server
	routers  map[string]*router
	listener net.Listener
}

// New creates a NetAdapter with a fresh, unstarted gRPC server.
func New() *NetAdapter {
	return &NetAdapter{
		server:  grpc.NewServer(),
		routers: make(map[string]*router),
	}
}

// Start begins listening on addr and serving in the background. Stop
// must be called to release the listener.
func (a *NetAdapter) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}

	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()

	log.Infof("net adapter listening on %s", addr)
	go func() {
		if err := a.server.Serve(listener); err != nil {
			log.Errorf("net adapter serve stopped: %s", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the gRPC server and closes every router.
func (a *NetAdapter) Stop() {
	a.server.GracefulStop()

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, r := range a.routers {
		r.Close()
		delete(a.routers, id)
	}
}

// RouterForPeer returns (creating if necessary) the Router for peerID.
func (a *NetAdapter) RouterForPeer(peerID string) Router {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.routers[peerID]; ok {
		return r
	}
	r := newRouter()
	a.routers[peerID] = r
	return r
}

// Connect dials addr and registers the resulting connection as peerID's
// router. No service is invoked on the connection: a real protocol would
// register its client stub here the same way Start's server leaves room
// for one, but wire framing stays out of scope.
func (a *NetAdapter) Connect(peerID, addr string) (Router, error) {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}

	r := newRouter()
	r.conn = conn

	a.mu.Lock()
	a.routers[peerID] = r
	a.mu.Unlock()

	return r, nil
}

// DisconnectPeer closes and forgets peerID's router, if any.
func (a *NetAdapter) DisconnectPeer(peerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.routers[peerID]; ok {
		r.Close()
		delete(a.routers, peerID)
	}
}
