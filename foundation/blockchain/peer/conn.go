package peer

import (
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/network"
	"github.com/gorilla/websocket"
)

// Connection limits.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 << 20
	sendBuffer     = 256
)

// Conn is a websocket connection to one peer. Every protocol message is
// carried in its own binary frame.
type Conn struct {
	name      string
	ws        *websocket.Conn
	send      chan network.Message
	done      chan struct{}
	once      sync.Once
	evHandler func(v string, args ...any)
}

func newConn(name string, ws *websocket.Conn, evHandler func(v string, args ...any)) *Conn {
	return &Conn{
		name:      name,
		ws:        ws,
		send:      make(chan network.Message, sendBuffer),
		done:      make(chan struct{}),
		evHandler: evHandler,
	}
}

// Write queues the message for delivery to the peer. Write never blocks,
// a message is dropped if the peer is not keeping up or is gone.
func (c *Conn) Write(msg network.Message) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
	default:
		c.evHandler("peer: Write: peer[%s]: WARNING: send buffer full, dropping %s", c.name, msg)
	}
}

// String implements the fmt.Stringer interface.
func (c *Conn) String() string {
	return c.name
}

// Close terminates the connection.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// Done returns a channel that is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// writeLoop delivers queued messages and keeps the connection alive.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			data, err := network.Encode(msg)
			if err != nil {
				c.evHandler("peer: writeLoop: peer[%s]: ERROR: %s", c.name, err)
				continue
			}

			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.evHandler("peer: writeLoop: peer[%s]: ERROR: %s", c.name, err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// readLoop pushes every binary frame received onto the inbound queue until
// the connection fails or the stop channel is closed.
func (c *Conn) readLoop(inbound chan<- network.Inbound, stop <-chan struct{}) {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.evHandler("peer: readLoop: peer[%s]: ERROR: %s", c.name, err)
			}
			return
		}

		if typ != websocket.BinaryMessage {
			continue
		}

		select {
		case inbound <- network.Inbound{Data: data, Peer: c}:
		case <-stop:
			return
		case <-c.done:
			return
		}
	}
}
