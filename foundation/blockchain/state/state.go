// Package state is the core API for the blockchain node. It wires the
// ledger, the peer transport, the worker pool and the miner together.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/miner"
	"github.com/ardanlabs/powchain/foundation/blockchain/network"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/worker"
)

// Set of default values for the configuration.
const (
	defaultWorkers      = 4
	defaultInboundQueue = 1024
	defaultPeerInterval = time.Minute
)

// ErrNotFound is returned when a requested block is not in the ledger.
var ErrNotFound = errors.New("block not found")

// EventHandler defines a function that is called when events
// occur in the processing of blocks and messages.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host         string
	Genesis      genesis.Genesis
	Workers      int
	InboundQueue int
	PeerInterval time.Duration
	KnownPeers   *peer.PeerSet
	EvHandler    EventHandler
}

// State manages the blockchain node.
type State struct {
	host      string
	evHandler EventHandler

	db      *database.Database
	inbound chan network.Inbound
	server  *peer.Server
	pool    *worker.Pool
	miner   *miner.Context
	handle  *miner.Handle

	wg   sync.WaitGroup
	shut chan struct{}
}

// New constructs the node, starts the worker pool, starts the miner in the
// paused state and starts reconnecting to the known peers in the background.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	db, err := database.New(cfg.Genesis, ev)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	queue := cfg.InboundQueue
	if queue <= 0 {
		queue = defaultInboundQueue
	}

	peerInterval := cfg.PeerInterval
	if peerInterval <= 0 {
		peerInterval = defaultPeerInterval
	}

	inbound := make(chan network.Inbound, queue)
	server := peer.NewServer(cfg.Host, cfg.KnownPeers, inbound, ev)

	pool := worker.New(worker.Config{
		Workers:   workers,
		Inbound:   inbound,
		Server:    server,
		DB:        db,
		EvHandler: ev,
	})

	mnr, handle := miner.New(server, db, ev)

	state := State{
		host:      cfg.Host,
		evHandler: ev,
		db:        db,
		inbound:   inbound,
		server:    server,
		pool:      pool,
		miner:     mnr,
		handle:    handle,
		shut:      make(chan struct{}),
	}

	pool.Start()
	mnr.Start()

	state.wg.Add(1)
	go func() {
		defer state.wg.Done()
		state.peerOperations(peerInterval)
	}()

	return &state, nil
}

// Shutdown cleanly brings the node down. The miner is stopped first so no
// new blocks are announced, then the peers are disconnected and finally
// the workers drain the inbound queue.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	s.evHandler("state: shutdown: stop peer operations")
	close(s.shut)
	s.wg.Wait()

	s.evHandler("state: shutdown: stop miner")
	if err := s.handle.Exit(); err != nil && !errors.Is(err, miner.ErrStopped) {
		return fmt.Errorf("miner exit: %w", err)
	}
	s.handle.Close()
	<-s.miner.Done()

	s.evHandler("state: shutdown: disconnect peers")
	s.server.Shutdown()

	s.evHandler("state: shutdown: stop workers")
	close(s.inbound)
	s.pool.Wait()

	return nil
}
