// Package network defines the block synchronization protocol spoken between
// nodes and the boundary to the transport that carries it.
package network

// Peer represents a handle back to one connected node. Writes are fire and
// forget, delivery failures are the concern of the transport.
type Peer interface {
	Write(msg Message)
	String() string
}

// Broadcaster represents the ability to send a message to every connected
// node.
type Broadcaster interface {
	Broadcast(msg Message)
}

// Inbound is the raw bytes of one message received from a peer, together
// with the peer it came from.
type Inbound struct {
	Data []byte
	Peer Peer
}
