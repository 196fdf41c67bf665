package peer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/network"
	"github.com/gorilla/websocket"
)

// Route is the path every node serves peer connections on.
const Route = "/v1/node/peer"

// Server manages the set of live peer connections for a node. It routes
// every message received to the inbound queue and implements broadcasting.
type Server struct {
	host      string
	known     *PeerSet
	inbound   chan<- network.Inbound
	evHandler func(v string, args ...any)
	upgrader  websocket.Upgrader
	dialer    *websocket.Dialer

	mu    sync.RWMutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
	shut  chan struct{}
	once  sync.Once
}

// NewServer constructs a peer server for the node reachable at host. The
// known set seeds the peers to dial and grows with every peer connected to.
// Messages received from any peer are sent to inbound.
func NewServer(host string, known *PeerSet, inbound chan<- network.Inbound, evHandler func(v string, args ...any)) *Server {
	ev := func(v string, args ...any) {}
	if evHandler != nil {
		ev = evHandler
	}

	if known == nil {
		known = NewPeerSet()
	}

	return &Server{
		host:      host,
		known:     known,
		inbound:   inbound,
		evHandler: ev,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: websocket.DefaultDialer,
		conns:  make(map[*Conn]struct{}),
		shut:   make(chan struct{}),
	}
}

// Host returns the host this node is reachable at.
func (s *Server) Host() string {
	return s.host
}

// KnownPeers returns the configured peers and every peer this node has
// connected to, excluding this node.
func (s *Server) KnownPeers() []Peer {
	return s.known.Copy(s.host)
}

// Connections returns the names of the live connections.
func (s *Server) Connections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.conns))
	for c := range s.conns {
		names = append(names, c.String())
	}

	return names
}

// Broadcast sends the message to every connected peer.
func (s *Server) Broadcast(msg network.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.evHandler("peer: Broadcast: %s: peers[%d]", msg, len(s.conns))

	for c := range s.conns {
		c.Write(msg)
	}
}

// Accept upgrades the HTTP request to a websocket connection and registers
// it as a peer. The connection is served in the background.
func (s *Server) Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}

	c := newConn(r.RemoteAddr, ws, s.evHandler)
	s.serve(c)

	return c, nil
}

// Connect dials the peer at host and registers the connection.
func (s *Server) Connect(ctx context.Context, host string) (*Conn, error) {
	if host == s.host {
		return nil, fmt.Errorf("peer[%s]: refusing to connect to self", host)
	}

	u := url.URL{Scheme: "ws", Host: host, Path: Route}

	ws, _, err := s.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	s.known.Add(New(host))

	c := newConn(host, ws, s.evHandler)
	s.serve(c)

	return c, nil
}

// Shutdown closes every connection and waits for their goroutines.
func (s *Server) Shutdown() {
	s.evHandler("peer: shutdown: started")
	defer s.evHandler("peer: shutdown: completed")

	s.mu.Lock()
	s.once.Do(func() { close(s.shut) })
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	s.wg.Wait()
}

// serve registers the connection and starts its goroutines. The
// connection is removed once it is closed.
func (s *Server) serve(c *Conn) {
	s.mu.Lock()
	select {
	case <-s.shut:
		s.mu.Unlock()
		c.Close()
		return
	default:
	}
	s.conns[c] = struct{}{}
	s.wg.Add(2)
	s.mu.Unlock()

	s.evHandler("peer: serve: peer[%s]: connected", c)

	go func() {
		defer s.wg.Done()
		c.writeLoop()
	}()

	go func() {
		defer s.wg.Done()
		c.readLoop(s.inbound, s.shut)

		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()

		s.evHandler("peer: serve: peer[%s]: disconnected", c)
	}()
}
