// Package relay implements the host-relay multiplayer protocol: room codes,
// the player directory, and routing of state, garbage and game-over messages
// through a single host over an abstract peer transport.
package relay

import (
	"context"
	"errors"
)

// Metadata is out-of-band data attached to a connection request.
type Metadata map[string]string

// MetadataName is the metadata key carrying the joiner's display name.
const MetadataName = "name"

// Transport makes peers discoverable at addresses.
type Transport interface {
	// Open registers a peer at address id. An empty id lets the transport
	// assign one. Returns ErrAddressTaken if id is already registered.
	Open(ctx context.Context, id string) (Peer, error)
}

// Peer is an open, discoverable endpoint.
type Peer interface {
	ID() string
	// Connect opens a connection to the peer at remote. It returns once the
	// connection is open on both ends.
	Connect(ctx context.Context, remote string, md Metadata) (Conn, error)
	// Accept waits for the next inbound connection.
	Accept(ctx context.Context) (Conn, error)
	// Close releases the address and closes every connection.
	Close() error
}

// Conn is a reliable, ordered, bidirectional message channel.
type Conn interface {
	RemoteID() string
	// Metadata returns what the connecting side attached; empty on the dialer's side.
	Metadata() Metadata
	Send(data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

var (
	// ErrAddressTaken is returned by Transport.Open when the address is in use.
	ErrAddressTaken = errors.New("relay: address taken")

	// ErrPeerUnreachable means no peer is registered at the requested address.
	ErrPeerUnreachable = errors.New("relay: peer unreachable")

	// ErrConnectionTimeout means no connection opened within the join window.
	ErrConnectionTimeout = errors.New("relay: connection timeout")

	// ErrTransport wraps any other transport failure.
	ErrTransport = errors.New("relay: transport error")

	// ErrConnClosed is returned by Conn operations after either side closed.
	ErrConnClosed = errors.New("relay: connection closed")

	// ErrInvalidRoomCode rejects codes of the wrong length or alphabet.
	ErrInvalidRoomCode = errors.New("relay: invalid room code")

	// ErrNotHost is returned when a joiner attempts a host-only operation.
	ErrNotHost = errors.New("relay: only the host can do that")

	// ErrNotConnected is returned by sends on a node outside a room.
	ErrNotConnected = errors.New("relay: not in a room")

	// ErrAlreadyConnected is returned by Host or Join on a node already in a room.
	ErrAlreadyConnected = errors.New("relay: already in a room")

	// ErrRoomFull means the host turned the joiner away.
	ErrRoomFull = errors.New("relay: room is full")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("relay: node closed")

	// ErrMalformedMessage marks a known message type missing required fields.
	ErrMalformedMessage = errors.New("relay: malformed message")

	// ErrUnknownMessage marks a message type this node does not speak.
	ErrUnknownMessage = errors.New("relay: unknown message type")
)
