package relay_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/nyatetris/internal/relay"
	"github.com/vovakirdan/nyatetris/internal/transport/memory"
)

const waitFor = 2 * time.Second

// recorder drains a node's events so tests can look at them later.
type recorder struct {
	mu     sync.Mutex
	events []relay.Event
}

func record(n *relay.Node) *recorder {
	r := &recorder{}
	go func() {
		for ev := range n.Events() {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		}
	}()
	return r
}

func eventsOf[T relay.Event](r *recorder) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, ev := range r.events {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

func newNode(t *testing.T, network *memory.Network, tweak ...func(*relay.Config)) *relay.Node {
	t.Helper()
	cfg := relay.DefaultConfig()
	cfg.JoinTimeout = 500 * time.Millisecond
	cfg.JoinRetries = 0
	for _, fn := range tweak {
		fn(&cfg)
	}
	n := relay.NewNode(network, cfg)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

type room struct {
	network *memory.Network
	host    *relay.Node
	code    string
	joiners []*relay.Node
	recs    map[*relay.Node]*recorder
}

func (r *room) rec(n *relay.Node) *recorder {
	return r.recs[n]
}

// newRoom opens a room and connects the named joiners, waiting until every
// directory lists everyone.
func newRoom(t *testing.T, names ...string) *room {
	t.Helper()
	ctx := context.Background()
	r := &room{network: memory.NewNetwork(), recs: make(map[*relay.Node]*recorder)}
	r.host = newNode(t, r.network, func(c *relay.Config) { c.NewSeed = func() int64 { return 1234 } })
	r.recs[r.host] = record(r.host)

	code, err := r.host.Host(ctx, "host")
	require.NoError(t, err)
	r.code = code

	for _, name := range names {
		j := newNode(t, r.network)
		r.recs[j] = record(j)
		require.NoError(t, j.Join(ctx, code, name))
		r.joiners = append(r.joiners, j)
	}

	want := len(names) + 1
	for _, n := range append([]*relay.Node{r.host}, r.joiners...) {
		require.Eventually(t, func() bool { return len(n.Players()) == want }, waitFor, 5*time.Millisecond)
	}
	return r
}

func TestDirectoryConverges(t *testing.T) {
	r := newRoom(t, "alice", "bob")

	want := r.host.Players()
	require.Len(t, want, 3)
	assert.True(t, want[0].IsHost)
	assert.Equal(t, r.host.LocalID(), want[0].ID)

	for _, j := range r.joiners {
		assert.ElementsMatch(t, want, j.Players())
		assert.False(t, j.IsHost())
		assert.Equal(t, r.code, j.RoomCode())
	}
	names := map[string]bool{}
	for _, p := range want {
		names[p.Name] = true
	}
	assert.Equal(t, map[string]bool{"host": true, "alice": true, "bob": true}, names)
}

func TestJoinerWithoutNameGetsDefault(t *testing.T) {
	r := newRoom(t, "")
	var found bool
	for _, p := range r.host.Players() {
		if p.ID == r.joiners[0].LocalID() {
			found = true
			assert.Equal(t, relay.DefaultPlayerName, p.Name)
		}
	}
	assert.True(t, found)
}

func TestStateRelayExcludesSender(t *testing.T) {
	r := newRoom(t, "alice", "bob")
	alice, bob := r.joiners[0], r.joiners[1]

	require.NoError(t, alice.SendState([]byte(`{"score":1}`)))

	require.Eventually(t, func() bool { return len(eventsOf[relay.StateEvent](r.rec(bob))) == 1 }, waitFor, 5*time.Millisecond)
	got := eventsOf[relay.StateEvent](r.rec(bob))[0]
	assert.Equal(t, alice.LocalID(), got.PlayerID)
	assert.JSONEq(t, `{"score":1}`, string(got.State))

	require.Eventually(t, func() bool { return len(eventsOf[relay.StateEvent](r.rec(r.host))) == 1 }, waitFor, 5*time.Millisecond)

	// Host updates reach every joiner directly.
	require.NoError(t, r.host.SendState([]byte(`{"score":2}`)))
	require.Eventually(t, func() bool { return len(eventsOf[relay.StateEvent](r.rec(alice))) == 1 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(eventsOf[relay.StateEvent](r.rec(bob))) == 2 }, waitFor, 5*time.Millisecond)

	for _, ev := range eventsOf[relay.StateEvent](r.rec(alice)) {
		assert.NotEqual(t, alice.LocalID(), ev.PlayerID, "sender must not get its own update back")
	}
}

func TestGarbageRouting(t *testing.T) {
	r := newRoom(t, "alice", "bob")
	alice, bob := r.joiners[0], r.joiners[1]

	require.NoError(t, alice.SendGarbage(bob.LocalID(), 2))
	require.Eventually(t, func() bool { return len(eventsOf[relay.GarbageEvent](r.rec(bob))) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 2, eventsOf[relay.GarbageEvent](r.rec(bob))[0].Lines)

	require.NoError(t, alice.SendGarbage(r.host.LocalID(), 3))
	require.Eventually(t, func() bool { return len(eventsOf[relay.GarbageEvent](r.rec(r.host))) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 3, eventsOf[relay.GarbageEvent](r.rec(r.host))[0].Lines)

	require.NoError(t, r.host.SendGarbage(alice.LocalID(), 4))
	require.Eventually(t, func() bool { return len(eventsOf[relay.GarbageEvent](r.rec(alice))) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 4, eventsOf[relay.GarbageEvent](r.rec(alice))[0].Lines)

	assert.Len(t, eventsOf[relay.GarbageEvent](r.rec(bob)), 1, "bob was attacked exactly once")
}

func TestGameStartFromHostOnly(t *testing.T) {
	r := newRoom(t, "alice")

	_, err := r.joiners[0].StartGame()
	assert.ErrorIs(t, err, relay.ErrNotHost)

	seed, err := r.host.StartGame()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), seed)

	for _, n := range []*relay.Node{r.host, r.joiners[0]} {
		require.Eventually(t, func() bool { return len(eventsOf[relay.GameStartedEvent](r.rec(n))) == 1 }, waitFor, 5*time.Millisecond)
		assert.Equal(t, int64(1234), eventsOf[relay.GameStartedEvent](r.rec(n))[0].Seed)
	}
}

func TestGameOverRelayed(t *testing.T) {
	r := newRoom(t, "alice", "bob")
	alice, bob := r.joiners[0], r.joiners[1]

	require.NoError(t, alice.SendGameOver())
	for _, n := range []*relay.Node{r.host, bob} {
		require.Eventually(t, func() bool { return len(eventsOf[relay.GameOverEvent](r.rec(n))) == 1 }, waitFor, 5*time.Millisecond)
		assert.Equal(t, alice.LocalID(), eventsOf[relay.GameOverEvent](r.rec(n))[0].PlayerID)
	}
	assert.Empty(t, eventsOf[relay.GameOverEvent](r.rec(alice)))
}

func TestJoinerDisconnectBroadcastsLeave(t *testing.T) {
	r := newRoom(t, "alice", "bob")
	alice, bob := r.joiners[0], r.joiners[1]
	aliceID := alice.LocalID()

	require.NoError(t, alice.Close())

	for _, n := range []*relay.Node{r.host, bob} {
		require.Eventually(t, func() bool {
			for _, ev := range eventsOf[relay.PlayerLeftEvent](r.rec(n)) {
				if ev.PlayerID == aliceID && !ev.WasHost {
					return true
				}
			}
			return false
		}, waitFor, 5*time.Millisecond)
		assert.Len(t, n.Players(), 2)
	}
}

func TestHostDisconnectEndsRoom(t *testing.T) {
	r := newRoom(t, "alice")
	hostID := r.host.LocalID()

	require.NoError(t, r.host.Close())
	assert.False(t, r.network.Registered("nyatetris-"+r.code), "room address released")

	require.Eventually(t, func() bool {
		left := eventsOf[relay.PlayerLeftEvent](r.rec(r.joiners[0]))
		return len(left) == 1 && left[0].PlayerID == hostID && left[0].WasHost
	}, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, r.joiners[0].SendState([]byte(`{}`)), relay.ErrNotConnected)
}

func TestHostRetriesTakenRoomCode(t *testing.T) {
	network := memory.NewNetwork()
	_, err := network.Open(context.Background(), "nyatetris-AAAA")
	require.NoError(t, err)

	codes := []string{"AAAA", "AAAA", "BBBB"}
	reg := prometheus.NewRegistry()
	metrics := relay.NewMetrics("test", reg)
	host := newNode(t, network, func(c *relay.Config) {
		c.Metrics = metrics
		c.NewRoomCode = func() string {
			code := codes[0]
			codes = codes[1:]
			return code
		}
	})

	code, err := host.Host(context.Background(), "host")
	require.NoError(t, err)
	assert.Equal(t, "BBBB", code)
	assert.True(t, network.Registered("nyatetris-BBBB"))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RoomCollisions))
}

func TestJoinTimesOut(t *testing.T) {
	network := memory.NewNetwork()
	// Registered but never accepting.
	_, err := network.Open(context.Background(), "nyatetris-ABCD")
	require.NoError(t, err)

	j := newNode(t, network, func(c *relay.Config) {
		c.JoinTimeout = 20 * time.Millisecond
		c.JoinRetries = 1
	})
	start := time.Now()
	err = j.Join(context.Background(), "abcd", "alice")
	assert.ErrorIs(t, err, relay.ErrConnectionTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "both attempts ran")

	// A failed join leaves the node usable.
	_, err = j.Host(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestFullRoomTurnsJoinerAway(t *testing.T) {
	ctx := context.Background()
	network := memory.NewNetwork()
	host := newNode(t, network, func(c *relay.Config) { c.MaxPlayers = 2 })
	code, err := host.Host(ctx, "host")
	require.NoError(t, err)

	first := newNode(t, network)
	require.NoError(t, first.Join(ctx, code, "ann"))
	require.Eventually(t, func() bool { return len(host.Players()) == 2 }, waitFor, 5*time.Millisecond)

	late := newNode(t, network)
	rec := record(late)
	require.NoError(t, late.Join(ctx, code, "bob"))

	require.Eventually(t, func() bool { return len(eventsOf[relay.RoomFullEvent](rec)) == 1 }, waitFor, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, eventsOf[relay.PlayerLeftEvent](rec), "a full room is not a departed host")
	assert.Len(t, host.Players(), 2)
}

func TestJoinErrors(t *testing.T) {
	network := memory.NewNetwork()
	j := newNode(t, network)

	assert.ErrorIs(t, j.Join(context.Background(), "IO01", "x"), relay.ErrInvalidRoomCode)
	assert.ErrorIs(t, j.Join(context.Background(), "ZZZZ", "x"), relay.ErrPeerUnreachable)

	_, err := j.Host(context.Background(), "x")
	require.NoError(t, err)
	assert.ErrorIs(t, j.Join(context.Background(), "ZZZZ", "x"), relay.ErrAlreadyConnected)
}

func TestIdleNodeRejectsSends(t *testing.T) {
	n := newNode(t, memory.NewNetwork())
	assert.ErrorIs(t, n.SendState([]byte(`{}`)), relay.ErrNotConnected)
	assert.ErrorIs(t, n.SendGameOver(), relay.ErrNotConnected)

	require.NoError(t, n.Close())
	assert.ErrorIs(t, n.SendState([]byte(`{}`)), relay.ErrClosed)
	_, ok := <-n.Events()
	assert.False(t, ok, "events close with the node")
}

func TestHostDropsBadInput(t *testing.T) {
	r := newRoom(t)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	raw, err := r.network.Open(ctx, "intruder")
	require.NoError(t, err)
	conn, err := raw.Connect(ctx, "nyatetris-"+r.code, relay.Metadata{relay.MetadataName: "mallory"})
	require.NoError(t, err)

	data, err := conn.Receive(ctx)
	require.NoError(t, err)
	list, err := relay.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, relay.TypePlayerList, list.Type)
	require.Len(t, list.Players, 1)
	assert.True(t, list.Players[0].IsHost)

	data, err = conn.Receive(ctx)
	require.NoError(t, err)
	join, err := relay.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, relay.PlayerJoinMsg("intruder", "mallory"), join)

	for _, junk := range []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"garbage"}`,
		`{"type":"gameStart","seed":9}`,
		`{"type":"playerJoin","playerId":"ghost"}`,
	} {
		require.NoError(t, conn.Send([]byte(junk)))
	}
	state, err := relay.Encode(relay.StateUpdateMsg("intruder", []byte(`{"ok":true}`)))
	require.NoError(t, err)
	require.NoError(t, conn.Send(state))

	require.Eventually(t, func() bool { return len(eventsOf[relay.StateEvent](r.rec(r.host))) == 1 }, waitFor, 5*time.Millisecond)
	assert.Empty(t, eventsOf[relay.GameStartedEvent](r.rec(r.host)))
	assert.Len(t, r.host.Players(), 2, "spoofed playerJoin ignored")
}
