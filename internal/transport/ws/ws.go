// Package ws is a relay transport over WebSocket. Hosts listen locally and
// publish their URL on a rendezvous server under the room address; joiners
// resolve the address and dial it.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/nyatetris/internal/relay"
)

const (
	headerPeerID   = "X-Peer-ID"
	headerMetadata = "X-Peer-Metadata"

	inboxSize = 256
)

// Directory publishes and resolves peer URLs. *rendezvous.Client
// implements it.
type Directory interface {
	Claim(ctx context.Context, id, url string) error
	Resolve(ctx context.Context, id string) (string, error)
	Release(ctx context.Context, id string) error
}

// Config tunes the transport.
type Config struct {
	// ListenAddr is where hosting peers listen, e.g. ":0".
	ListenAddr string
	// AdvertiseHost is the host put in the published URL. Defaults to
	// 127.0.0.1.
	AdvertiseHost string

	WriteTimeout time.Duration
	PingInterval time.Duration
	Logger       *log.Logger
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":0"
	}
	if c.AdvertiseHost == "" {
		c.AdvertiseHost = "127.0.0.1"
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Transport implements relay.Transport.
type Transport struct {
	dir    Directory
	cfg    Config
	logger *log.Logger
}

// New creates a transport that publishes through dir.
func New(dir Directory, cfg Config) *Transport {
	cfg.setDefaults()
	return &Transport{dir: dir, cfg: cfg, logger: cfg.Logger.WithPrefix("ws")}
}

// Open registers a peer. A named peer listens and claims its address on the
// directory; an unnamed one gets a random ID and can only dial out.
func (t *Transport) Open(ctx context.Context, id string) (relay.Peer, error) {
	p := &peer{
		t:        t,
		incoming: make(chan *conn),
		done:     make(chan struct{}),
		conns:    make(map[*conn]struct{}),
	}
	if id == "" {
		p.id = uuid.NewString()
		return p, nil
	}
	p.id = id

	ln, err := net.Listen("tcp", t.cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("ws: listen: %w: %w", relay.ErrTransport, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	url := "ws://" + net.JoinHostPort(t.cfg.AdvertiseHost, strconv.Itoa(port)) + "/ws"
	if err := t.dir.Claim(ctx, id, url); err != nil {
		_ = ln.Close()
		return nil, err
	}

	r := chi.NewRouter()
	r.Get("/ws", p.handleUpgrade)
	p.srv = &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	p.claimed = true
	go func() {
		if err := p.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Warn("listener stopped", "id", id, "err", err)
		}
	}()
	t.logger.Info("listening", "id", id, "url", url)
	return p, nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type peer struct {
	t       *Transport
	id      string
	srv     *http.Server
	claimed bool

	incoming  chan *conn
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	conns map[*conn]struct{}
}

func (p *peer) ID() string { return p.id }

func (p *peer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	remote := r.Header.Get(headerPeerID)
	if remote == "" {
		http.Error(w, "missing peer id", http.StatusBadRequest)
		return
	}
	md := relay.Metadata{}
	if raw := r.Header.Get(headerMetadata); raw != "" {
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			http.Error(w, "bad metadata", http.StatusBadRequest)
			return
		}
	}

	wsc, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.t.logger.Debug("upgrade failed", "remote", remote, "err", err)
		return
	}
	c := p.track(wsc, remote, md)
	if c == nil {
		return
	}
	select {
	case p.incoming <- c:
	case <-p.done:
		_ = c.Close()
	}
}

func (p *peer) Connect(ctx context.Context, remote string, md relay.Metadata) (relay.Conn, error) {
	select {
	case <-p.done:
		return nil, fmt.Errorf("ws: connect %s: %w", remote, relay.ErrConnClosed)
	default:
	}
	url, err := p.t.dir.Resolve(ctx, remote)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set(headerPeerID, p.id)
	if len(md) > 0 {
		raw, err := json.Marshal(md)
		if err != nil {
			return nil, err
		}
		header.Set(headerMetadata, string(raw))
	}

	wsc, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// A published but dead URL means the host went away without releasing.
		return nil, fmt.Errorf("ws: dial %s: %w: %w", remote, relay.ErrPeerUnreachable, err)
	}
	c := p.track(wsc, remote, nil)
	if c == nil {
		return nil, fmt.Errorf("ws: connect %s: %w", remote, relay.ErrConnClosed)
	}
	return c, nil
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

func (p *peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		if p.srv != nil {
			_ = p.srv.Close()
		}

		p.mu.Lock()
		conns := make([]*conn, 0, len(p.conns))
		for c := range p.conns {
			conns = append(conns, c)
		}
		p.mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}

		if p.claimed {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = p.t.dir.Release(ctx, p.id)
		}
	})
	return err
}

// track wraps and remembers a connection; nil if the peer is closing.
func (p *peer) track(wsc *websocket.Conn, remote string, md relay.Metadata) *conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		_ = wsc.Close()
		return nil
	default:
	}
	c := newConn(wsc, remote, md, p.t.cfg, func(c *conn) {
		p.mu.Lock()
		delete(p.conns, c)
		p.mu.Unlock()
	})
	p.conns[c] = struct{}{}
	return c
}
