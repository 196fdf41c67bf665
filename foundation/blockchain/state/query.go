package state

import (
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.db.Genesis()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.server.KnownPeers()
}

// RetrieveTip returns the block at the tip of the longest chain and its
// height.
func (s *State) RetrieveTip() (database.Block, uint64) {
	var block database.Block
	var height uint64

	s.db.View(func(l *database.Ledger) error {
		block, _ = l.Get(l.Tip())
		height = l.TipHeight()
		return nil
	})

	return block, height
}

// RetrieveStatus returns the status of this node as seen by its peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	block, height := s.RetrieveTip()

	return peer.PeerStatus{
		Host:              s.RetrieveHost(),
		LatestBlockHash:   block.Hash().String(),
		LatestBlockNumber: height,
		Orphans:           s.QueryOrphanCount(),
		KnownPeers:        s.RetrieveKnownPeers(),
		Connections:       s.server.Connections(),
	}
}

// QueryBlock returns the block with the specified hash and its height.
func (s *State) QueryBlock(h hash.H256) (database.Block, uint64, error) {
	var block database.Block
	var height uint64
	var found bool

	s.db.View(func(l *database.Ledger) error {
		block, found = l.Get(h)
		height, _ = l.Height(h)
		return nil
	})

	if !found {
		return database.Block{}, 0, fmt.Errorf("blk[%s]: %w", h, ErrNotFound)
	}

	return block, height, nil
}

// QueryLongestChain returns the hashes of the longest chain, tip first.
func (s *State) QueryLongestChain() []hash.H256 {
	return s.db.LongestChain()
}

// QueryOrphanCount returns the number of buffered blocks waiting on an
// unknown parent.
func (s *State) QueryOrphanCount() int {
	return s.db.OrphanCount()
}
