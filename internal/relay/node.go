package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/nyatetris/internal/config"
)

// DefaultPlayerName is used when a joiner attaches no name.
const DefaultPlayerName = "Player"

// Role is a node's position in a room.
type Role int

const (
	RoleNone Role = iota
	roleOpening
	RoleHost
	RoleJoiner
)

// String names the role for logs.
func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleJoiner:
		return "joiner"
	case roleOpening:
		return "opening"
	default:
		return "none"
	}
}

// Config holds node parameters.
type Config struct {
	AddressPrefix string        // Prepended to the room code to form the host address
	JoinTimeout   time.Duration // Per-attempt connection window
	JoinRetries   int           // Extra attempts after the first
	MaxPlayers    int           // Host rejects connections beyond this; 0 = unlimited
	Logger        *log.Logger
	Metrics       *Metrics
	NewRoomCode   func() string
	NewSeed       func() int64
}

// DefaultConfig returns node defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.DefaultTetrisConfig())
}

// ConfigFrom builds node parameters from the loaded configuration.
func ConfigFrom(cfg config.TetrisConfig) Config {
	return Config{
		AddressPrefix: cfg.Network.AddressPrefix,
		JoinTimeout:   cfg.Network.JoinTimeout,
		JoinRetries:   cfg.Network.JoinRetries,
		MaxPlayers:    cfg.Match.MaxPlayers,
	}
}

// Node is one participant in a room, host or joiner. All protocol state
// lives in a single goroutine; public methods post closures to it and wait
// for the result.
type Node struct {
	transport Transport
	cfg       Config
	logger    *log.Logger
	metrics   *Metrics

	ctx    context.Context // Cancelled on Close; bounds reader goroutines
	cancel context.CancelFunc

	inbox     chan func()
	events    chan Event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	peer    Peer
	role    Role
	localID string
	hostID  string
	code    string
	dir     *Directory
	conns   map[string]Conn
	pending []Event
}

// NewNode creates an idle node and starts its loop.
func NewNode(t Transport, cfg Config) *Node {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.NewRoomCode == nil {
		cfg.NewRoomCode = GenerateRoomCode
	}
	if cfg.NewSeed == nil {
		cfg.NewSeed = rand.Int63
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		transport: t,
		cfg:       cfg,
		logger:    cfg.Logger.WithPrefix("relay"),
		metrics:   cfg.Metrics,
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan func(), 64),
		events:    make(chan Event),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		dir:       NewDirectory(),
		conns:     make(map[string]Conn),
	}
	go n.run()
	return n
}

// Events delivers protocol events in order. The channel closes after Close.
// Events queue inside the node without bound, so a slow reader never
// stalls message handling.
func (n *Node) Events() <-chan Event {
	return n.events
}

func (n *Node) run() {
	defer close(n.stopped)
	for {
		var out chan<- Event
		var next Event
		if len(n.pending) > 0 {
			out = n.events
			next = n.pending[0]
		}

		select {
		case fn := <-n.inbox:
			fn()
		case out <- next:
			n.pending[0] = nil
			n.pending = n.pending[1:]
		case <-n.done:
			n.teardown()
			close(n.events)
			return
		}
	}
}

func (n *Node) teardown() {
	n.cancel()
	for id, c := range n.conns {
		_ = c.Close()
		delete(n.conns, id)
	}
	if n.peer != nil {
		_ = n.peer.Close()
		n.peer = nil
	}
	n.role = RoleNone
	n.metrics.peers(0)
}

// Close leaves the room, closes every connection and releases the address.
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		close(n.done)
	})
	<-n.stopped
	return nil
}

func (n *Node) post(fn func()) bool {
	select {
	case n.inbox <- fn:
		return true
	case <-n.done:
		return false
	}
}

// do runs fn on the loop goroutine and returns its result.
func (n *Node) do(fn func() error) error {
	reply := make(chan error, 1)
	if !n.post(func() { reply <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-n.stopped:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

func (n *Node) emit(ev Event) {
	n.pending = append(n.pending, ev)
}

func (n *Node) reserve() error {
	return n.do(func() error {
		if n.role != RoleNone {
			return ErrAlreadyConnected
		}
		n.role = roleOpening
		return nil
	})
}

func (n *Node) release() {
	_ = n.do(func() error {
		if n.role == roleOpening {
			n.role = RoleNone
		}
		return nil
	})
}

// Host opens a room and returns its code. Codes whose address is already
// taken are silently replaced until one is free or ctx ends.
func (n *Node) Host(ctx context.Context, name string) (string, error) {
	if err := n.reserve(); err != nil {
		return "", err
	}

	var (
		peer Peer
		code string
	)
	for {
		if err := ctx.Err(); err != nil {
			n.release()
			return "", fmt.Errorf("relay: open room: %w", err)
		}
		code = n.cfg.NewRoomCode()
		p, err := n.transport.Open(ctx, n.cfg.AddressPrefix+code)
		if err == nil {
			peer = p
			break
		}
		if errors.Is(err, ErrAddressTaken) {
			n.metrics.collision()
			n.logger.Debug("room code taken, regenerating", "code", code)
			continue
		}
		n.release()
		return "", classify("open room", err)
	}

	err := n.do(func() error {
		n.role = RoleHost
		n.peer = peer
		n.code = code
		n.localID = peer.ID()
		n.hostID = n.localID
		n.dir.Add(PlayerInfo{ID: n.localID, Name: name, IsHost: true})
		go n.acceptLoop(peer)
		return nil
	})
	if err != nil {
		_ = peer.Close()
		return "", err
	}
	n.logger.Info("room open", "code", code, "peer", peer.ID())
	return code, nil
}

// Join connects to the host of a room. Each attempt is bounded by the join
// timeout; failed attempts are retried JoinRetries times.
func (n *Node) Join(ctx context.Context, code, name string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}
	if err := n.reserve(); err != nil {
		return err
	}

	peer, err := n.transport.Open(ctx, "")
	if err != nil {
		n.release()
		return classify("open peer", err)
	}

	var conn Conn
	addr := n.cfg.AddressPrefix + code
	for attempt := range n.cfg.JoinRetries + 1 {
		cctx, cancel := context.WithTimeout(ctx, n.cfg.JoinTimeout)
		conn, err = peer.Connect(cctx, addr, Metadata{MetadataName: name})
		if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = ErrConnectionTimeout
		}
		cancel()
		if err == nil {
			break
		}
		n.logger.Warn("join attempt failed", "code", code, "attempt", attempt+1, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		_ = peer.Close()
		n.release()
		return classify("join "+code, err)
	}

	err = n.do(func() error {
		n.role = RoleJoiner
		n.peer = peer
		n.code = code
		n.localID = peer.ID()
		n.hostID = conn.RemoteID()
		n.addConn(conn)
		return nil
	})
	if err != nil {
		_ = conn.Close()
		_ = peer.Close()
		return err
	}
	n.logger.Info("joined room", "code", code, "peer", peer.ID(), "host", conn.RemoteID())
	return nil
}

// classify maps transport failures onto the relay error taxonomy.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("relay: %s: %w", op, ErrConnectionTimeout)
	case errors.Is(err, ErrConnectionTimeout),
		errors.Is(err, ErrPeerUnreachable),
		errors.Is(err, ErrAddressTaken),
		errors.Is(err, ErrTransport),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("relay: %s: %w", op, err)
	default:
		return fmt.Errorf("relay: %s: %w: %w", op, ErrTransport, err)
	}
}

func (n *Node) acceptLoop(peer Peer) {
	for {
		conn, err := peer.Accept(n.ctx)
		if err != nil {
			if n.ctx.Err() == nil {
				n.logger.Warn("accept stopped", "err", err)
			}
			return
		}
		if !n.post(func() { n.onConnOpen(conn) }) {
			_ = conn.Close()
			return
		}
	}
}

func (n *Node) readLoop(conn Conn) {
	for {
		data, err := conn.Receive(n.ctx)
		if err != nil {
			n.post(func() { n.onConnClosed(conn, err) })
			return
		}
		if !n.post(func() { n.onData(conn, data) }) {
			return
		}
	}
}

func (n *Node) addConn(conn Conn) {
	n.conns[conn.RemoteID()] = conn
	n.metrics.peers(len(n.conns))
	go n.readLoop(conn)
}

func (n *Node) onConnOpen(conn Conn) {
	if n.role != RoleHost {
		_ = conn.Close()
		return
	}
	id := conn.RemoteID()
	if n.cfg.MaxPlayers > 0 && n.dir.Len() >= n.cfg.MaxPlayers {
		n.logger.Warn("room full, rejecting peer", "peer", id, "players", n.dir.Len())
		n.send(conn, RoomFullMsg())
		_ = conn.Close()
		return
	}
	name := conn.Metadata()[MetadataName]
	if name == "" {
		name = DefaultPlayerName
	}
	p := PlayerInfo{ID: id, Name: name}

	n.addConn(conn)
	n.send(conn, PlayerListMsg(n.dir.List()))
	n.dir.Add(p)
	n.broadcast(PlayerJoinMsg(id, name), "")
	n.emit(PlayerJoinedEvent{Player: p})
	n.logger.Info("peer joined", "peer", id, "name", name)
}

func (n *Node) onConnClosed(conn Conn, err error) {
	id := conn.RemoteID()
	if n.conns[id] != conn {
		return
	}
	delete(n.conns, id)
	_ = conn.Close()
	n.metrics.peers(len(n.conns))
	n.dir.Remove(id)

	switch n.role {
	case RoleHost:
		n.broadcast(PlayerLeaveMsg(id), "")
		n.emit(PlayerLeftEvent{PlayerID: id})
		n.logger.Info("peer left", "peer", id, "err", err)
	case RoleJoiner:
		n.emit(PlayerLeftEvent{PlayerID: id, WasHost: true})
		n.logger.Warn("lost connection to host", "host", id, "err", err)
	}
}

func (n *Node) onData(conn Conn, data []byte) {
	from := conn.RemoteID()
	m, err := Decode(data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnknownMessage) {
			reason = "unknown"
		}
		n.metrics.dropped(reason)
		n.logger.Warn("dropping message", "from", from, "err", err)
		return
	}
	n.metrics.received(m.Type)

	switch m.Type {
	case TypePlayerList:
		if n.dropUnlessFromHost(from, m) {
			return
		}
		n.dir.Replace(m.Players)
		n.emit(DirectoryEvent{Players: n.dir.List()})
	case TypePlayerJoin:
		if n.dropUnlessFromHost(from, m) {
			return
		}
		p := PlayerInfo{ID: m.PlayerID, Name: m.PlayerName}
		n.dir.Add(p)
		n.emit(PlayerJoinedEvent{Player: p})
	case TypePlayerLeave:
		if n.dropUnlessFromHost(from, m) {
			return
		}
		if _, ok := n.dir.Remove(m.PlayerID); ok {
			n.emit(PlayerLeftEvent{PlayerID: m.PlayerID})
		}
	case TypeGameStart:
		if n.dropUnlessFromHost(from, m) {
			return
		}
		n.emit(GameStartedEvent{Seed: m.Seed})
	case TypeStateUpdate:
		if n.role == RoleHost {
			n.broadcast(m, from)
		}
		n.emit(StateEvent{PlayerID: m.PlayerID, State: m.State})
	case TypeGameOver:
		if n.role == RoleHost {
			n.broadcast(m, from)
		}
		n.emit(GameOverEvent{PlayerID: m.PlayerID})
	case TypeGarbage:
		if n.dropUnlessFromHost(from, m) {
			return
		}
		n.emit(GarbageEvent{Lines: m.Lines})
	case TypeGarbageSend:
		if n.role != RoleHost {
			n.metrics.dropped("misrouted")
			n.logger.Warn("dropping garbageSend on a joiner", "from", from)
			return
		}
		n.routeGarbage(m.TargetID, m.Lines)
	case TypeRoomFull:
		if n.dropUnlessFromHost(from, m) {
			return
		}
		delete(n.conns, from)
		_ = conn.Close()
		n.metrics.peers(len(n.conns))
		n.emit(RoomFullEvent{})
		n.logger.Warn("host turned us away, room full", "host", from)
	}
}

// dropUnlessFromHost reports true (and drops m) unless this node is a
// joiner and m came from its host.
func (n *Node) dropUnlessFromHost(from string, m Message) bool {
	if n.role == RoleJoiner && from == n.hostID {
		return false
	}
	n.metrics.dropped("misrouted")
	n.logger.Warn("dropping message not sent by the host", "type", m.Type, "from", from)
	return true
}

// routeGarbage delivers garbage on the host: locally if the host is the
// target, otherwise re-addressed to the target's connection.
func (n *Node) routeGarbage(target string, lines int) {
	if target == n.localID {
		n.emit(GarbageEvent{Lines: lines})
		return
	}
	conn, ok := n.conns[target]
	if !ok {
		n.metrics.dropped("no-target")
		n.logger.Warn("garbage target not connected", "target", target, "lines", lines)
		return
	}
	n.send(conn, GarbageMsg(lines))
}

func (n *Node) send(conn Conn, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return fmt.Errorf("relay: encode %s: %w", m.Type, err)
	}
	if err := conn.Send(data); err != nil {
		n.logger.Warn("send failed", "type", m.Type, "peer", conn.RemoteID(), "err", err)
		return classify("send "+string(m.Type), err)
	}
	n.metrics.sent(m.Type)
	return nil
}

// broadcast sends m to every connection except the one to except.
func (n *Node) broadcast(m Message, except string) {
	for id, conn := range n.conns {
		if id != except {
			_ = n.send(conn, m)
		}
	}
}

func (n *Node) sendToHost(m Message) error {
	conn, ok := n.conns[n.hostID]
	if !ok {
		return ErrNotConnected
	}
	return n.send(conn, m)
}

// StartGame broadcasts a fresh shared seed to every joiner and raises a
// GameStartedEvent locally with the same seed. Host only.
func (n *Node) StartGame() (int64, error) {
	var seed int64
	err := n.do(func() error {
		if n.role != RoleHost {
			return ErrNotHost
		}
		seed = n.cfg.NewSeed()
		n.broadcast(GameStartMsg(seed), "")
		n.emit(GameStartedEvent{Seed: seed})
		n.logger.Info("game started", "seed", seed, "players", n.dir.Len())
		return nil
	})
	return seed, err
}

// SendState publishes the local session snapshot: broadcast by the host,
// sent to the host by a joiner.
func (n *Node) SendState(state []byte) error {
	return n.do(func() error {
		m := StateUpdateMsg(n.localID, state)
		switch n.role {
		case RoleHost:
			n.broadcast(m, "")
			return nil
		case RoleJoiner:
			return n.sendToHost(m)
		default:
			return ErrNotConnected
		}
	})
}

// SendGarbage attacks target with lines garbage rows.
func (n *Node) SendGarbage(target string, lines int) error {
	if lines <= 0 {
		return nil
	}
	return n.do(func() error {
		switch n.role {
		case RoleHost:
			n.routeGarbage(target, lines)
			return nil
		case RoleJoiner:
			return n.sendToHost(GarbageSendMsg(target, lines))
		default:
			return ErrNotConnected
		}
	})
}

// SendGameOver announces that the local board topped out.
func (n *Node) SendGameOver() error {
	return n.do(func() error {
		m := GameOverMsg(n.localID)
		switch n.role {
		case RoleHost:
			n.broadcast(m, "")
			return nil
		case RoleJoiner:
			return n.sendToHost(m)
		default:
			return ErrNotConnected
		}
	})
}

// Players returns the local copy of the directory.
func (n *Node) Players() []PlayerInfo {
	var out []PlayerInfo
	_ = n.do(func() error {
		out = n.dir.List()
		return nil
	})
	return out
}

// Info is a point-in-time view of the node.
type Info struct {
	LocalID  string
	HostID   string
	RoomCode string
	Role     Role
}

// Info returns the node's identity in its room.
func (n *Node) Info() Info {
	var info Info
	_ = n.do(func() error {
		info = Info{LocalID: n.localID, HostID: n.hostID, RoomCode: n.code, Role: n.role}
		return nil
	})
	return info
}

// Shorthands for Info fields.
func (n *Node) LocalID() string  { return n.Info().LocalID }
func (n *Node) RoomCode() string { return n.Info().RoomCode }
func (n *Node) IsHost() bool     { return n.Info().Role == RoleHost }
