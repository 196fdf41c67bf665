package network

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrUnknownKind is returned when a message carries a kind that is not part
// of the protocol.
var ErrUnknownKind = errors.New("unknown message kind")

// Kind identifies the variant of a message on the wire.
type Kind uint8

// Set of message kinds in the protocol.
const (
	KindPing Kind = iota + 1
	KindPong
	KindNewBlockHashes
	KindGetBlocks
	KindBlocks
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	case KindNewBlockHashes:
		return "NewBlockHashes"
	case KindGetBlocks:
		return "GetBlocks"
	case KindBlocks:
		return "Blocks"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// =============================================================================

// Message is one protocol message. Only the fields belonging to the kind
// are meaningful.
type Message struct {
	Kind   Kind
	Nonce  uint32           // Ping
	Text   string           // Pong
	Hashes []hash.H256      // NewBlockHashes, GetBlocks
	Blocks []database.Block // Blocks
}

// NewPing constructs a Ping message.
func NewPing(nonce uint32) Message {
	return Message{Kind: KindPing, Nonce: nonce}
}

// NewPong constructs a Pong message.
func NewPong(text string) Message {
	return Message{Kind: KindPong, Text: text}
}

// NewBlockHashes constructs a message announcing blocks by hash.
func NewBlockHashes(hashes ...hash.H256) Message {
	return Message{Kind: KindNewBlockHashes, Hashes: hashes}
}

// NewGetBlocks constructs a message requesting blocks by hash.
func NewGetBlocks(hashes ...hash.H256) Message {
	return Message{Kind: KindGetBlocks, Hashes: hashes}
}

// NewBlocks constructs a message carrying full blocks.
func NewBlocks(blocks ...database.Block) Message {
	return Message{Kind: KindBlocks, Blocks: blocks}
}

// String implements the fmt.Stringer interface for logging.
func (m Message) String() string {
	switch m.Kind {
	case KindPing:
		return fmt.Sprintf("Ping(%d)", m.Nonce)
	case KindPong:
		return fmt.Sprintf("Pong(%s)", m.Text)
	case KindNewBlockHashes, KindGetBlocks:
		return fmt.Sprintf("%s(%d)", m.Kind, len(m.Hashes))
	case KindBlocks:
		return fmt.Sprintf("Blocks(%d)", len(m.Blocks))
	}
	return m.Kind.String()
}

// =============================================================================

// envelope is the wire form of every message: the kind followed by the RLP
// encoding of the payload for that kind.
type envelope struct {
	Kind    uint8
	Payload rlp.RawValue
}

// Encode produces the deterministic binary form of the message.
func Encode(msg Message) ([]byte, error) {
	var payload any

	switch msg.Kind {
	case KindPing:
		payload = msg.Nonce
	case KindPong:
		payload = msg.Text
	case KindNewBlockHashes, KindGetBlocks:
		payload = msg.Hashes
	case KindBlocks:
		payload = msg.Blocks
	default:
		return nil, fmt.Errorf("encode %s: %w", msg.Kind, ErrUnknownKind)
	}

	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.Kind, err)
	}

	return rlp.EncodeToBytes(envelope{Kind: uint8(msg.Kind), Payload: data})
}

// Decode parses the binary form of a message. Malformed bytes and unknown
// kinds are returned as errors.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}

	msg := Message{Kind: Kind(env.Kind)}

	var err error
	switch msg.Kind {
	case KindPing:
		err = rlp.DecodeBytes(env.Payload, &msg.Nonce)
	case KindPong:
		err = rlp.DecodeBytes(env.Payload, &msg.Text)
	case KindNewBlockHashes, KindGetBlocks:
		err = rlp.DecodeBytes(env.Payload, &msg.Hashes)
	case KindBlocks:
		err = rlp.DecodeBytes(env.Payload, &msg.Blocks)
	default:
		return Message{}, fmt.Errorf("decode %s: %w", msg.Kind, ErrUnknownKind)
	}

	if err != nil {
		return Message{}, fmt.Errorf("decode %s payload: %w", msg.Kind, err)
	}

	return msg, nil
}
