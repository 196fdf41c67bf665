package state

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/network"
)

// NetAcceptPeer upgrades the request into a peer connection and announces
// the local longest chain to the new peer.
func (s *State) NetAcceptPeer(w http.ResponseWriter, r *http.Request) error {
	conn, err := s.server.Accept(w, r)
	if err != nil {
		return err
	}

	s.announceChain(conn)

	return nil
}

// NetConnectKnownPeers dials every configured peer that is not this node
// and is not already connected. Failures are logged and the number of new
// connections is returned.
func (s *State) NetConnectKnownPeers(ctx context.Context) int {
	connected := make(map[string]bool)
	for _, name := range s.server.Connections() {
		connected[name] = true
	}

	var n int
	for _, p := range s.server.KnownPeers() {
		if connected[p.Host] {
			continue
		}

		if err := s.NetConnectPeer(ctx, p.Host); err != nil {
			s.evHandler("state: NetConnectKnownPeers: peer[%s]: ERROR: %s", p.Host, err)
			continue
		}
		n++
	}

	return n
}

// peerOperations periodically reconnects to known peers until the node is
// shut down.
func (s *State) peerOperations(interval time.Duration) {
	s.evHandler("state: peerOperations: G started")
	defer s.evHandler("state: peerOperations: G completed")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		go func() {
			select {
			case <-s.shut:
				cancel()
			case <-ctx.Done():
			}
		}()

		n := s.NetConnectKnownPeers(ctx)
		cancel()

		if n > 0 {
			s.evHandler("state: peerOperations: connected peers[%d]", n)
		}

		select {
		case <-ticker.C:
		case <-s.shut:
			s.evHandler("state: peerOperations: received shut signal")
			return
		}
	}
}

// NetConnectPeer dials the peer at host and announces the local longest
// chain so the peer can request anything it is missing.
func (s *State) NetConnectPeer(ctx context.Context, host string) error {
	conn, err := s.server.Connect(ctx, host)
	if err != nil {
		return err
	}

	s.announceChain(conn)

	return nil
}

// announceChain sends the hashes of the longest chain, oldest first, so
// the peer requests the blocks in an order that rarely creates orphans.
func (s *State) announceChain(p network.Peer) {
	chain := s.db.LongestChain()
	slices.Reverse(chain)

	p.Write(network.NewBlockHashes(chain...))
}

// NetPing sends a ping to every connected peer.
func (s *State) NetPing(nonce uint32) {
	s.server.Broadcast(network.NewPing(nonce))
}
