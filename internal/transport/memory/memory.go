// Package memory is an in-process relay transport. Peers on one Network
// reach each other by address without touching the network stack.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vovakirdan/nyatetris/internal/relay"
)

// sendBuffer is how many undelivered messages a connection holds before
// Send fails.
const sendBuffer = 1024

// Network is a registry of open peers.
type Network struct {
	mu    sync.Mutex
	peers map[string]*peer
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*peer)}
}

// Open registers a peer. An empty id is replaced by a random UUID.
func (n *Network) Open(ctx context.Context, id string) (relay.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, taken := n.peers[id]; taken {
		return nil, fmt.Errorf("memory: open %s: %w", id, relay.ErrAddressTaken)
	}
	p := &peer{
		net:      n,
		id:       id,
		incoming: make(chan *conn),
		done:     make(chan struct{}),
	}
	n.peers[id] = p
	return p, nil
}

// Registered reports whether an address is currently open.
func (n *Network) Registered(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.peers[id]
	return ok
}

func (n *Network) lookup(id string) (*peer, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.peers[id]
	return p, ok
}

func (n *Network) remove(p *peer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.peers[p.id] == p {
		delete(n.peers, p.id)
	}
}

type peer struct {
	net      *Network
	id       string
	incoming chan *conn
	done     chan struct{}
	once     sync.Once

	mu    sync.Mutex
	conns []*conn
}

func (p *peer) ID() string {
	return p.id
}

// Connect hands a connection to the remote peer's Accept. It blocks until
// the remote accepts, so a peer that never accepts times out via ctx.
func (p *peer) Connect(ctx context.Context, remote string, md relay.Metadata) (relay.Conn, error) {
	target, ok := p.net.lookup(remote)
	if !ok {
		return nil, fmt.Errorf("memory: connect %s: %w", remote, relay.ErrPeerUnreachable)
	}

	local, far := newPair(p.id, remote, md)
	select {
	case target.incoming <- far:
		p.track(local)
		target.track(far)
		return local, nil
	case <-target.done:
		return nil, fmt.Errorf("memory: connect %s: %w", remote, relay.ErrPeerUnreachable)
	case <-p.done:
		return nil, relay.ErrConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *peer) Accept(ctx context.Context) (relay.Conn, error) {
	select {
	case c := <-p.incoming:
		return c, nil
	case <-p.done:
		return nil, relay.ErrConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *peer) track(c *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns = append(p.conns, c)
}

func (p *peer) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.net.remove(p)

		p.mu.Lock()
		conns := p.conns
		p.conns = nil
		p.mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return nil
}

// link is the state both ends of a connection share.
type link struct {
	closed chan struct{}
	once   sync.Once
}

type conn struct {
	localID  string
	remoteID string
	md       relay.Metadata
	in       chan []byte
	out      chan []byte
	link     *link
}

// newPair returns the dialer's end and the acceptor's end of a connection.
// Only the acceptor sees the metadata.
func newPair(dialer, acceptor string, md relay.Metadata) (*conn, *conn) {
	l := &link{closed: make(chan struct{})}
	toAcceptor := make(chan []byte, sendBuffer)
	toDialer := make(chan []byte, sendBuffer)

	mdCopy := make(relay.Metadata, len(md))
	for k, v := range md {
		mdCopy[k] = v
	}
	d := &conn{localID: dialer, remoteID: acceptor, in: toDialer, out: toAcceptor, link: l}
	a := &conn{localID: acceptor, remoteID: dialer, md: mdCopy, in: toAcceptor, out: toDialer, link: l}
	return d, a
}

func (c *conn) RemoteID() string {
	return c.remoteID
}

func (c *conn) Metadata() relay.Metadata {
	return c.md
}

func (c *conn) Send(data []byte) error {
	select {
	case <-c.link.closed:
		return relay.ErrConnClosed
	default:
	}
	buf := append([]byte(nil), data...)
	select {
	case c.out <- buf:
		return nil
	default:
		return fmt.Errorf("memory: send to %s: %w: buffer full", c.remoteID, relay.ErrTransport)
	}
}

// Receive returns the next message. Messages sent before a close are still
// delivered.
func (c *conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.link.closed:
		select {
		case data := <-c.in:
			return data, nil
		default:
			return nil, relay.ErrConnClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) Close() error {
	c.link.once.Do(func() {
		close(c.link.closed)
	})
	return nil
}
