// Package miner implements the proof of work loop that extends the local
// ledger. The miner is a three state machine driven by control signals sent
// through a Handle.
package miner

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/network"
)

// ErrStopped is returned when a signal is sent to a miner that is no longer
// running.
var ErrStopped = errors.New("miner is stopped")

// Placeholder transaction carried by every mined block.
const (
	txInput  = "new block input!"
	txOutput = "new block output!"
)

// State represents the operating state of the miner.
type State int

// Set of operating states.
const (
	Paused State = iota
	Running
	ShutDown
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Running:
		return "running"
	case ShutDown:
		return "shutdown"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type signalKind int

const (
	signalStart signalKind = iota
	signalExit
)

// controlSignal is sent from a Handle to the mining goroutine.
type controlSignal struct {
	kind     signalKind
	interval time.Duration
}

// =============================================================================

// Handle is used by the embedding process to control the miner.
type Handle struct {
	mu      sync.Mutex
	closed  bool
	control chan<- controlSignal
	done    <-chan struct{}
}

// Start moves the miner into the running state. After each mined block the
// miner sleeps for the interval, zero means mine as fast as possible.
func (h *Handle) Start(interval time.Duration) error {
	return h.send(controlSignal{kind: signalStart, interval: interval})
}

// Exit moves the miner into the shutdown state. A block being inserted is
// completed first.
func (h *Handle) Exit() error {
	return h.send(controlSignal{kind: signalExit})
}

// Close disconnects the control channel. The miner treats a disconnected
// channel as fatal and terminates.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		h.closed = true
		close(h.control)
	}
}

func (h *Handle) send(sig controlSignal) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrStopped
	}

	select {
	case h.control <- sig:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

// =============================================================================

// Context owns the receiving end of the control channel and the state of
// the mining goroutine.
type Context struct {
	control   <-chan controlSignal
	state     atomic.Int32
	interval  time.Duration
	server    network.Broadcaster
	db        *database.Database
	evHandler func(v string, args ...any)
	mined     atomic.Uint64
	done      chan struct{}
	once      sync.Once
}

// New constructs a paused miner and the handle that controls it. Call
// Start on the context to launch the mining goroutine.
func New(server network.Broadcaster, db *database.Database, evHandler func(v string, args ...any)) (*Context, *Handle) {
	ev := func(v string, args ...any) {}
	if evHandler != nil {
		ev = evHandler
	}

	control := make(chan controlSignal, 16)
	done := make(chan struct{})

	ctx := Context{
		control:   control,
		server:    server,
		db:        db,
		evHandler: ev,
		done:      done,
	}

	handle := Handle{
		control: control,
		done:    done,
	}

	return &ctx, &handle
}

// Start launches the mining goroutine in the paused state. Calling Start
// more than once has no effect.
func (c *Context) Start() {
	c.once.Do(func() {
		hasStarted := make(chan bool)

		go func() {
			defer close(c.done)
			hasStarted <- true
			c.minerLoop()
		}()

		<-hasStarted
		c.evHandler("miner: Start: initialized into paused mode")
	})
}

// Done returns a channel that is closed once the miner has shut down.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// State returns the current operating state.
func (c *Context) State() State {
	return State(c.state.Load())
}

// Mined returns the number of blocks mined by this miner.
func (c *Context) Mined() uint64 {
	return c.mined.Load()
}

// =============================================================================

func (c *Context) setState(s State) {
	c.state.Store(int32(s))
}

// handleSignal applies a control signal to the state machine.
func (c *Context) handleSignal(sig controlSignal) {
	switch sig.kind {
	case signalExit:
		c.evHandler("miner: handleSignal: shutting down")
		c.setState(ShutDown)

	case signalStart:
		c.evHandler("miner: handleSignal: running with interval[%v]", sig.interval)
		c.interval = sig.interval
		c.setState(Running)
	}
}

// minerLoop drives the state machine until the miner is shut down.
func (c *Context) minerLoop() {
	c.evHandler("miner: minerLoop: G started")
	defer c.evHandler("miner: minerLoop: G completed")

	for {
		switch c.State() {
		case ShutDown:
			return

		case Paused:
			sig, ok := <-c.control
			if !ok {
				c.evHandler("miner: minerLoop: ERROR: control channel disconnected")
				c.setState(ShutDown)
				continue
			}
			c.handleSignal(sig)
			continue

		case Running:
			select {
			case sig, ok := <-c.control:
				if !ok {
					c.evHandler("miner: minerLoop: ERROR: control channel disconnected while running")
					c.setState(ShutDown)
					continue
				}
				c.handleSignal(sig)
				if c.State() != Running {
					continue
				}
			default:
			}
		}

		block, mined, err := c.attempt()
		if err != nil {
			c.evHandler("miner: minerLoop: ERROR: %s", err)
			c.setState(ShutDown)
			continue
		}

		if !mined {
			continue
		}

		n := c.mined.Add(1)
		c.evHandler("miner: minerLoop: MINING: mined block #%d: %s", n, block)

		if c.server != nil {
			c.server.Broadcast(network.NewBlockHashes(block.Hash()))
		}

		if c.interval > 0 {
			c.throttle()
		}
	}
}

// throttle sleeps for the configured interval after a mined block. A
// control signal received while sleeping ends the sleep and is applied.
func (c *Context) throttle() {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case sig, ok := <-c.control:
		if !ok {
			c.evHandler("miner: throttle: ERROR: control channel disconnected while running")
			c.setState(ShutDown)
			return
		}
		c.handleSignal(sig)
	}
}

// attempt mints one candidate block on top of the current tip while holding
// exclusive access to the ledger. If the candidate meets the difficulty of
// the tip block it is inserted before access is released.
func (c *Context) attempt() (database.Block, bool, error) {
	var block database.Block
	var mined bool

	err := c.db.Update(func(l *database.Ledger) error {
		parentHash := l.Tip()
		parent, ok := l.Get(parentHash)
		if !ok {
			return fmt.Errorf("tip blk[%s] not found", parentHash)
		}

		candidate, err := newCandidate(parentHash, parent.Header.Difficulty)
		if err != nil {
			return err
		}

		if !candidate.SolvesTarget() {
			return nil
		}

		if err := l.Insert(candidate); err != nil {
			return fmt.Errorf("insert mined block: %w", err)
		}

		block = candidate
		mined = true

		return nil
	})

	return block, mined, err
}

// newCandidate constructs a block with a fresh random nonce and the current
// time on top of the specified parent.
func newCandidate(parent hash.H256, difficulty hash.H256) (database.Block, error) {
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxUint32+1))
	if err != nil {
		return database.Block{}, fmt.Errorf("random nonce: %w", err)
	}

	return database.NewBlock(database.BlockArgs{
		Parent:     parent,
		Difficulty: difficulty,
		Nonce:      uint32(nBig.Uint64()),
		TimeStamp:  time.Now(),
		Trans:      []database.Tx{database.NewTx(txInput, txOutput)},
	})
}
