package worker

import (
	"errors"
	"strconv"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/network"
)

// handlePing answers the origin peer with the nonce it sent.
func (p *Pool) handlePing(peer network.Peer, msg network.Message) {
	p.evHandler("worker: handlePing: peer[%s]: nonce[%d]", peerName(peer), msg.Nonce)

	if peer != nil {
		peer.Write(network.NewPong(strconv.FormatUint(uint64(msg.Nonce), 10)))
	}
}

// handlePong only records the reply.
func (p *Pool) handlePong(peer network.Peer, msg network.Message) {
	p.evHandler("worker: handlePong: peer[%s]: text[%s]", peerName(peer), msg.Text)
}

// handleNewBlockHashes requests from the origin peer every announced block
// that is not in the local ledger.
func (p *Pool) handleNewBlockHashes(peer network.Peer, msg network.Message) {
	p.evHandler("worker: handleNewBlockHashes: peer[%s]: hashes[%d]", peerName(peer), len(msg.Hashes))

	var missing []hash.H256
	p.db.View(func(l *database.Ledger) error {
		for _, h := range msg.Hashes {
			if !l.Find(h) {
				missing = append(missing, h)
			}
		}
		return nil
	})

	if len(missing) == 0 || peer == nil {
		return
	}

	p.evHandler("worker: handleNewBlockHashes: peer[%s]: requesting blocks[%d]", peerName(peer), len(missing))
	peer.Write(network.NewGetBlocks(missing...))
}

// handleGetBlocks replies to the origin peer with every requested block
// found in the local ledger. Unknown hashes are logged and skipped.
func (p *Pool) handleGetBlocks(peer network.Peer, msg network.Message) {
	p.evHandler("worker: handleGetBlocks: peer[%s]: hashes[%d]", peerName(peer), len(msg.Hashes))

	found := make([]database.Block, 0, len(msg.Hashes))
	p.db.View(func(l *database.Ledger) error {
		for _, h := range msg.Hashes {
			block, ok := l.Get(h)
			if !ok {
				p.evHandler("worker: handleGetBlocks: ERROR: block[%s] not found", h)
				continue
			}
			found = append(found, block)
		}
		return nil
	})

	if peer != nil {
		peer.Write(network.NewBlocks(found...))
	}
}

// handleBlocks inserts every received block into the local ledger. Blocks
// already held connect nothing. Blocks that connect for the first time are
// announced to all peers. Blocks whose
// parent is unknown are buffered and the missing parents are requested from
// the origin peer.
func (p *Pool) handleBlocks(peer network.Peer, msg network.Message) {
	p.evHandler("worker: handleBlocks: peer[%s]: blocks[%d]", peerName(peer), len(msg.Blocks))

	var announce []hash.H256
	parents := make(map[hash.H256]struct{})

	for _, block := range msg.Blocks {
		connected, err := p.db.Insert(block)
		if err != nil {
			var oe *database.OrphanError
			if errors.As(err, &oe) {
				parents[oe.Parent] = struct{}{}
				continue
			}

			p.evHandler("worker: handleBlocks: ERROR: %s: %s", block, err)
			continue
		}

		announce = append(announce, connected...)
	}

	if len(announce) > 0 && p.server != nil {
		p.evHandler("worker: handleBlocks: announcing blocks[%d]", len(announce))
		p.server.Broadcast(network.NewBlockHashes(announce...))
	}

	// A later block in the batch may have supplied a parent.
	var missing []hash.H256
	for parent := range parents {
		if !p.db.Find(parent) {
			missing = append(missing, parent)
		}
	}

	if len(missing) > 0 && peer != nil {
		p.evHandler("worker: handleBlocks: peer[%s]: requesting parents[%d]", peerName(peer), len(missing))
		peer.Write(network.NewGetBlocks(missing...))
	}
}
