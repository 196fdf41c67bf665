// Package worker implements the pool of goroutines that process protocol
// messages received from peers and keep the local ledger in sync.
package worker

import (
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/network"
)

// Config represents the values required to construct a worker pool.
type Config struct {
	Workers   int
	Inbound   <-chan network.Inbound
	Server    network.Broadcaster
	DB        *database.Database
	EvHandler func(v string, args ...any)
}

// Pool manages a fixed set of goroutines competing for messages on a
// single inbound queue.
type Pool struct {
	workers   int
	inbound   <-chan network.Inbound
	server    network.Broadcaster
	db        *database.Database
	evHandler func(v string, args ...any)
	wg        sync.WaitGroup
	shut      chan struct{}
	once      sync.Once
}

// New constructs a worker pool. No goroutines are started until Start is
// called.
func New(cfg Config) *Pool {
	ev := func(v string, args ...any) {}
	if cfg.EvHandler != nil {
		ev = cfg.EvHandler
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:   workers,
		inbound:   cfg.Inbound,
		server:    cfg.Server,
		db:        cfg.DB,
		evHandler: ev,
		shut:      make(chan struct{}),
	}
}

// Start launches the worker goroutines and does not return until every
// one of them is running.
func (p *Pool) Start() {
	p.wg.Add(p.workers)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	for i := range p.workers {
		go func(id int) {
			defer p.wg.Done()
			hasStarted <- true
			p.workerLoop(id)
		}(i)
	}

	for range p.workers {
		<-hasStarted
	}
}

// Shutdown signals every worker to stop and waits for them to terminate.
// A message already being processed is completed first.
func (p *Pool) Shutdown() {
	p.evHandler("worker: shutdown: started")
	defer p.evHandler("worker: shutdown: completed")

	p.once.Do(func() { close(p.shut) })
	p.wg.Wait()
}

// Wait blocks until every worker has terminated, which happens after
// Shutdown or once the inbound queue is closed and drained.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// =============================================================================

// workerLoop receives messages until the pool is shut down or the inbound
// queue is closed.
func (p *Pool) workerLoop(id int) {
	p.evHandler("worker: workerLoop: G[%d] started", id)
	defer p.evHandler("worker: workerLoop: G[%d] completed", id)

	for {
		select {
		case in, ok := <-p.inbound:
			if !ok {
				p.evHandler("worker: workerLoop: G[%d] inbound queue closed", id)
				return
			}
			p.process(in)

		case <-p.shut:
			p.evHandler("worker: workerLoop: G[%d] received shut signal", id)
			return
		}
	}
}

// process decodes one inbound message and dispatches it. Malformed messages
// are logged and dropped.
func (p *Pool) process(in network.Inbound) {
	msg, err := network.Decode(in.Data)
	if err != nil {
		p.evHandler("worker: process: peer[%s]: WARNING: dropping message: %s", peerName(in.Peer), err)
		return
	}

	switch msg.Kind {
	case network.KindPing:
		p.handlePing(in.Peer, msg)
	case network.KindPong:
		p.handlePong(in.Peer, msg)
	case network.KindNewBlockHashes:
		p.handleNewBlockHashes(in.Peer, msg)
	case network.KindGetBlocks:
		p.handleGetBlocks(in.Peer, msg)
	case network.KindBlocks:
		p.handleBlocks(in.Peer, msg)
	}
}

func peerName(peer network.Peer) string {
	if peer == nil {
		return "unknown"
	}
	return peer.String()
}
