package multiplayer

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/nyatetris/internal/config"
	"github.com/vovakirdan/nyatetris/internal/core"
	"github.com/vovakirdan/nyatetris/internal/games/tetris"
	"github.com/vovakirdan/nyatetris/internal/relay"
)

// ErrBusy is reported when a request needs the coordinator to be idle.
var ErrBusy = errors.New("multiplayer: already in a game or room")

// SoloPlayerID is the local player's id in solo matches.
const SoloPlayerID = "local"

// Relay is the room connection a coordinator plays through.
// *relay.Node implements it.
type Relay interface {
	Host(ctx context.Context, name string) (string, error)
	Join(ctx context.Context, code, name string) error
	StartGame() (int64, error)
	SendState(state []byte) error
	SendGarbage(target string, lines int) error
	SendGameOver() error
	Players() []relay.PlayerInfo
	LocalID() string
	RoomCode() string
	IsHost() bool
	Events() <-chan relay.Event
	Close() error
}

// RelayFactory creates a fresh, unconnected relay for each room.
type RelayFactory func() Relay

// NodeFactory returns a factory of relay nodes on transport t.
func NodeFactory(t relay.Transport, cfg relay.Config) RelayFactory {
	return func() Relay { return relay.NewNode(t, cfg) }
}

// MatchResultSaver persists finished matches.
// This keeps the coordinator independent of the storage package.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResultData) error
}

// MatchResultData is the local player's view of a finished match.
type MatchResultData struct {
	MatchID      string
	Mode         string
	Seed         int64
	PlayerName   string
	Score        int
	Lines        int
	Level        int
	Placement    int // 1-based rank by score
	Players      int
	Winner       string // Winner's name, empty if nobody won
	EndReason    string
	DurationSecs int
}

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	Tetris config.TetrisConfig

	// TickInterval is the simulation period. Zero derives it from
	// Tetris.Match.TickRate; negative disables the internal ticker so the
	// owner drives the clock with TickMsg.
	TickInterval time.Duration

	Logger *log.Logger
	Now    func() time.Time
}

// DefaultCoordinatorConfig returns the default configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{Tetris: config.DefaultTetrisConfig()}
}

// TickMsg advances the match clock to Now.
type TickMsg struct {
	Now time.Time
}

func (TickMsg) coordinatorMessage() {}

// connectedMsg carries the outcome of a Host or Join back into the loop.
type connectedMsg struct {
	node Relay
	code string
	err  error
}

func (connectedMsg) coordinatorMessage() {}

// Coordinator runs matches for one session. All state below msgChan is
// owned by the run loop.
type Coordinator struct {
	config      CoordinatorConfig
	newRelay    RelayFactory
	session     SessionHandle
	resultSaver MatchResultSaver // Optional, can be nil
	logger      *log.Logger

	msgChan  chan CoordinatorMessage
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	phase         Phase
	name          string
	connecting    Relay
	cancelConnect context.CancelFunc
	node          Relay
	nodeEvents    <-chan relay.Event
	code          string

	arena        *Arena
	paused       bool
	countdown    int
	nextCount    time.Time
	lastSent     time.Time
	sentVersion  uint64
	shownVersion uint64
}

// NewCoordinator creates a coordinator delivering events to session.
// newRelay may be nil for solo-only use.
func NewCoordinator(cfg CoordinatorConfig, newRelay RelayFactory, session SessionHandle) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = cfg.Tetris.Match.TickInterval()
	}
	return &Coordinator{
		config:   cfg,
		newRelay: newRelay,
		session:  session,
		logger:   cfg.Logger.WithPrefix("coordinator"),
		msgChan:  make(chan CoordinatorMessage, 256),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// SetResultSaver sets the optional match result saver.
func (c *Coordinator) SetResultSaver(saver MatchResultSaver) {
	c.resultSaver = saver
}

// Start begins the coordinator's background processing.
func (c *Coordinator) Start() {
	go c.run()
}

// Stop ends any match, leaves the room and waits for the loop to exit.
// Only call after Start.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
	<-c.stopped
}

// Send queues a message for the run loop.
func (c *Coordinator) Send(msg CoordinatorMessage) {
	c.post(msg)
}

func (c *Coordinator) post(msg CoordinatorMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.msgChan <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *Coordinator) run() {
	defer close(c.stopped)
	defer c.teardown()

	var tick <-chan time.Time
	if c.config.TickInterval > 0 {
		ticker := time.NewTicker(c.config.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case msg := <-c.msgChan:
			c.handleMessage(msg)
		case ev, ok := <-c.nodeEvents:
			if !ok {
				c.nodeEvents = nil
				c.handleRelayClosed()
				continue
			}
			c.handleRelayEvent(ev)
		case <-tick:
			c.step(c.config.Now())
		case <-c.session.Done():
			return
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) teardown() {
	c.stopOnce.Do(func() { close(c.done) })
	// Connect attempts that finished after the loop stopped.
drain:
	for {
		select {
		case msg := <-c.msgChan:
			if m, ok := msg.(connectedMsg); ok {
				_ = m.node.Close()
			}
		default:
			break drain
		}
	}
	if c.cancelConnect != nil {
		c.cancelConnect()
		c.cancelConnect = nil
	}
	c.connecting = nil
	c.closeNode()
	c.arena = nil
	c.phase = PhaseIdle
}

func (c *Coordinator) handleMessage(msg CoordinatorMessage) {
	switch m := msg.(type) {
	case SoloMsg:
		c.handleSolo(m)
	case HostMsg:
		c.handleHost(m)
	case JoinMsg:
		c.handleJoin(m)
	case connectedMsg:
		c.handleConnected(m)
	case StartMsg:
		c.handleStart()
	case InputMsg:
		c.handleInput(m)
	case LeaveMsg:
		c.handleLeave()
	case TickMsg:
		c.step(m.Now)
	}
}

func (c *Coordinator) fail(err error) {
	c.logger.Warn("request failed", "phase", c.phase, "err", err)
	c.session.Send(ErrorEvent{Err: err})
}

func (c *Coordinator) handleSolo(msg SoloMsg) {
	if c.phase != PhaseIdle {
		c.fail(ErrBusy)
		return
	}
	seed := msg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	name := msg.Name
	if name == "" {
		name = relay.DefaultPlayerName
	}
	c.beginMatch(MatchModeSolo, seed, relay.PlayerInfo{ID: SoloPlayerID, Name: name}, nil)
}

func (c *Coordinator) handleHost(msg HostMsg) {
	c.connect(msg.Name, func(ctx context.Context, node Relay, name string) (string, error) {
		return node.Host(ctx, name)
	})
}

func (c *Coordinator) handleJoin(msg JoinMsg) {
	c.connect(msg.Name, func(ctx context.Context, node Relay, name string) (string, error) {
		if err := node.Join(ctx, msg.Code, name); err != nil {
			return "", err
		}
		return node.RoomCode(), nil
	})
}

// connect runs a blocking Host or Join off the loop; the outcome comes back
// as a connectedMsg.
func (c *Coordinator) connect(name string, open func(context.Context, Relay, string) (string, error)) {
	if c.phase != PhaseIdle || c.newRelay == nil {
		c.fail(ErrBusy)
		return
	}
	c.name = name
	if c.name == "" {
		c.name = relay.DefaultPlayerName
	}

	node := c.newRelay()
	ctx, cancel := context.WithCancel(context.Background())
	c.connecting, c.cancelConnect = node, cancel
	c.phase = PhaseConnecting

	name = c.name
	go func() {
		code, err := open(ctx, node, name)
		if !c.post(connectedMsg{node: node, code: code, err: err}) {
			_ = node.Close()
		}
	}()
}

func (c *Coordinator) handleConnected(msg connectedMsg) {
	if msg.node != c.connecting {
		// Cancelled by Leave while the attempt was in flight.
		_ = msg.node.Close()
		return
	}
	c.cancelConnect()
	c.connecting, c.cancelConnect = nil, nil

	if msg.err != nil {
		_ = msg.node.Close()
		c.phase = PhaseIdle
		c.fail(msg.err)
		return
	}
	c.node = msg.node
	c.nodeEvents = msg.node.Events()
	c.code = msg.code
	c.phase = PhaseLobby
	c.logger.Info("in room", "code", c.code, "host", c.node.IsHost())
	c.sendLobby()
}

func (c *Coordinator) sendLobby() {
	if c.node == nil {
		return
	}
	c.session.Send(LobbyEvent{
		Code:    c.code,
		LocalID: c.node.LocalID(),
		IsHost:  c.node.IsHost(),
		Players: c.node.Players(),
	})
}

func (c *Coordinator) handleStart() {
	if c.phase != PhaseLobby || c.node == nil {
		c.fail(ErrBusy)
		return
	}
	if !c.node.IsHost() {
		c.fail(relay.ErrNotHost)
		return
	}
	// The match begins when the node echoes GameStartedEvent back.
	if _, err := c.node.StartGame(); err != nil {
		c.fail(err)
	}
}

func (c *Coordinator) handleInput(msg InputMsg) {
	if c.phase != PhasePlaying {
		return
	}
	game := c.arena.Game()
	if msg.Action == core.ActionPause {
		if c.arena.Mode() == MatchModeSolo {
			c.paused = !c.paused
			if !c.paused {
				game.Resume(c.config.Now())
			}
			c.publishBoards("", true)
		}
		return
	}
	if c.paused || !msg.Action.IsGameplay() {
		return
	}
	if game.Apply(msg.Action) && c.phase == PhasePlaying {
		c.maybePublishState(c.config.Now())
		c.publishBoards("", false)
	}
}

func (c *Coordinator) handleLeave() {
	switch c.phase {
	case PhaseConnecting:
		c.cancelConnect()
		c.connecting, c.cancelConnect = nil, nil
	case PhaseCountdown, PhasePlaying:
		c.finishMatch(MatchEndReasonCancelled, "")
	}
	c.closeNode()
	c.arena = nil
	c.phase = PhaseIdle
}

func (c *Coordinator) closeNode() {
	if c.node == nil {
		return
	}
	c.nodeEvents = nil
	if err := c.node.Close(); err != nil {
		c.logger.Debug("closing relay", "err", err)
	}
	c.node = nil
	c.code = ""
}

func garbageSeed(seed int64, playerID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(playerID))
	return seed ^ int64(h.Sum64()) //nolint:gosec // seed mixing, overflow is fine
}

func (c *Coordinator) beginMatch(mode MatchMode, seed int64, local relay.PlayerInfo, roster []relay.PlayerInfo) {
	now := c.config.Now()
	game := tetris.New(tetris.ConfigFrom(c.config.Tetris), seed)
	if mode == MatchModeOnline {
		game.SeedGarbage(garbageSeed(seed, local.ID))
	}
	game.Subscribe(c.onGameEvent)

	c.arena = NewArena(MatchID(uuid.NewString()), mode, seed, local, game, roster)
	c.paused = false
	c.sentVersion, c.shownVersion = 0, 0
	c.lastSent = time.Time{}

	players := roster
	if len(players) == 0 {
		players = []relay.PlayerInfo{local}
	}
	c.session.Send(MatchStartedEvent{
		MatchID: c.arena.ID(),
		Mode:    mode,
		Seed:    seed,
		Players: players,
	})
	c.logger.Info("match started", "match", c.arena.ID(), "mode", mode, "seed", seed, "players", c.arena.Size())

	if mode == MatchModeOnline && c.config.Tetris.Match.Countdown > 0 {
		c.phase = PhaseCountdown
		c.countdown = c.config.Tetris.Match.Countdown
		c.nextCount = now.Add(time.Second)
		c.session.Send(CountdownEvent{Remaining: c.countdown})
		c.publishBoards("", true)
		return
	}
	c.startPlaying(now)
}

func (c *Coordinator) startPlaying(now time.Time) {
	c.phase = PhasePlaying
	c.arena.start(now)
	c.arena.Game().Start(now)
	if c.phase != PhasePlaying {
		return
	}
	c.sendState(now)
	c.publishBoards("", true)
}

func (c *Coordinator) step(now time.Time) {
	switch c.phase {
	case PhaseCountdown:
		if now.Before(c.nextCount) {
			return
		}
		c.countdown--
		c.nextCount = c.nextCount.Add(time.Second)
		c.session.Send(CountdownEvent{Remaining: c.countdown})
		if c.countdown <= 0 {
			c.startPlaying(now)
		}
	case PhasePlaying:
		if c.paused {
			return
		}
		c.arena.Game().Tick(now)
		if c.phase != PhasePlaying {
			return
		}
		c.maybePublishState(now)
		c.publishBoards("", false)
	}
}

// onGameEvent runs synchronously inside the local game's mutators.
func (c *Coordinator) onGameEvent(ev tetris.Event) {
	switch e := ev.(type) {
	case tetris.LinesClearedEvent:
		if c.arena.Mode() != MatchModeOnline || c.node == nil {
			return
		}
		for _, atk := range c.arena.Attacks(c.arena.LocalID(), e.Count) {
			if err := c.node.SendGarbage(atk.Target, atk.Lines); err != nil {
				c.logger.Warn("sending garbage", "target", atk.Target, "lines", atk.Lines, "err", err)
			}
		}
	case tetris.GameOverEvent:
		c.onLocalGameOver()
	}
}

func (c *Coordinator) onLocalGameOver() {
	if c.arena.Mode() == MatchModeOnline && c.node != nil {
		c.sendState(c.config.Now())
		if err := c.node.SendGameOver(); err != nil {
			c.logger.Warn("sending game over", "err", err)
		}
		c.eliminated(c.arena.LocalID(), false)
	}
	c.checkEnd()
}

func (c *Coordinator) maybePublishState(now time.Time) {
	if c.arena.Mode() != MatchModeOnline || c.arena.Game().Version() == c.sentVersion {
		return
	}
	if now.Sub(c.lastSent) < c.config.Tetris.Network.StateInterval {
		return
	}
	c.sendState(now)
}

func (c *Coordinator) sendState(now time.Time) {
	if c.arena == nil || c.arena.Mode() != MatchModeOnline || c.node == nil {
		return
	}
	game := c.arena.Game()
	data, err := game.Snapshot().Encode()
	if err != nil {
		c.logger.Error("encoding snapshot", "err", err)
		return
	}
	if err := c.node.SendState(data); err != nil {
		c.logger.Warn("sending state", "err", err)
	}
	c.lastSent = now
	c.sentVersion = game.Version()
}

func (c *Coordinator) publishBoards(winner string, force bool) {
	if c.arena == nil {
		return
	}
	v := c.arena.Version()
	if !force && v == c.shownVersion {
		return
	}
	c.shownVersion = v
	c.session.Send(BoardsEvent{Boards: c.arena.Boards(winner), Paused: c.paused})
}

func (c *Coordinator) eliminated(id string, disconnected bool) {
	c.session.Send(PlayerEliminatedEvent{
		PlayerID:     id,
		Name:         c.arena.Name(id),
		Disconnected: disconnected,
	})
}

func (c *Coordinator) inMatch() bool {
	return c.arena != nil && (c.phase == PhaseCountdown || c.phase == PhasePlaying)
}

func (c *Coordinator) checkEnd() {
	if !c.inMatch() {
		return
	}
	if ended, winner := c.arena.Outcome(); ended {
		c.finishMatch(MatchEndReasonCompleted, winner)
	}
}

func (c *Coordinator) finishMatch(reason MatchEndReason, winner string) {
	a := c.arena
	results := a.Results(winner)
	c.publishBoards(winner, true)
	c.session.Send(MatchEndedEvent{
		MatchID: a.ID(),
		Mode:    a.Mode(),
		Reason:  reason,
		Winner:  winner,
		Results: results,
	})
	c.logger.Info("match ended", "match", a.ID(), "reason", reason, "winner", winner)
	c.saveResult(reason, winner, results)

	if a.Mode() == MatchModeOnline && c.node != nil && reason == MatchEndReasonCompleted {
		c.phase = PhaseLobby
		c.sendLobby()
		return
	}
	c.phase = PhaseIdle
}

func (c *Coordinator) saveResult(reason MatchEndReason, winner string, results []Result) {
	if c.resultSaver == nil {
		return
	}
	a := c.arena
	data := MatchResultData{
		MatchID:   string(a.ID()),
		Mode:      a.Mode().String(),
		Seed:      a.Seed(),
		Players:   len(results),
		Winner:    a.Name(winner),
		EndReason: reason.String(),
	}
	if !a.Started().IsZero() {
		data.DurationSecs = int(c.config.Now().Sub(a.Started()).Seconds())
	}
	for i, r := range results {
		if r.PlayerID == a.LocalID() {
			data.PlayerName = r.Name
			data.Score, data.Lines, data.Level = r.Score, r.Lines, r.Level
			data.Placement = i + 1
		}
	}
	saver := c.resultSaver
	// Best effort, don't stall the loop on disk
	go func() {
		if err := saver.SaveMatchResult(data); err != nil {
			c.logger.Warn("saving match result", "err", err)
		}
	}()
}

func (c *Coordinator) handleRelayEvent(ev relay.Event) {
	switch e := ev.(type) {
	case relay.DirectoryEvent, relay.PlayerJoinedEvent:
		if c.phase == PhaseLobby {
			c.sendLobby()
		}
	case relay.PlayerLeftEvent:
		c.handlePlayerLeft(e)
	case relay.RoomFullEvent:
		c.logger.Warn("room full", "code", c.code)
		c.closeNode()
		c.phase = PhaseIdle
		c.session.Send(MatchEndedEvent{Reason: MatchEndReasonRoomFull})
	case relay.GameStartedEvent:
		c.handleGameStarted(e.Seed)
	case relay.StateEvent:
		if !c.inMatch() {
			return
		}
		s, err := tetris.DecodeSnapshot(e.State)
		if err != nil {
			c.logger.Warn("dropping bad snapshot", "from", e.PlayerID, "err", err)
			return
		}
		if c.arena.UpdateRemote(e.PlayerID, s) {
			c.eliminated(e.PlayerID, false)
			c.checkEnd()
		}
	case relay.GarbageEvent:
		if c.phase == PhasePlaying {
			c.arena.Game().AddGarbage(e.Lines)
		}
	case relay.GameOverEvent:
		if c.inMatch() && c.arena.MarkGameOver(e.PlayerID) {
			c.eliminated(e.PlayerID, false)
			c.checkEnd()
		}
	}
}

func (c *Coordinator) handleGameStarted(seed int64) {
	if c.phase != PhaseLobby || c.node == nil {
		c.logger.Debug("ignoring game start", "phase", c.phase)
		return
	}
	roster := c.node.Players()
	local := relay.PlayerInfo{ID: c.node.LocalID(), Name: c.name, IsHost: c.node.IsHost()}
	c.beginMatch(MatchModeOnline, seed, local, roster)
}

func (c *Coordinator) handlePlayerLeft(e relay.PlayerLeftEvent) {
	if e.WasHost {
		c.endRoom()
		return
	}
	switch c.phase {
	case PhaseLobby:
		c.sendLobby()
	case PhaseCountdown, PhasePlaying:
		if c.arena.Disconnect(e.PlayerID) {
			c.eliminated(e.PlayerID, true)
		}
		c.checkEnd()
	}
}

// endRoom handles losing the host: any running match is over and there is
// no room to return to.
func (c *Coordinator) endRoom() {
	if c.inMatch() {
		if host := c.arena.HostID(); host != "" && c.arena.Disconnect(host) {
			c.eliminated(host, true)
		}
		_, winner := c.arena.Outcome()
		c.finishMatch(MatchEndReasonHostLeft, winner)
	} else if c.phase == PhaseLobby {
		c.session.Send(MatchEndedEvent{Reason: MatchEndReasonHostLeft})
	}
	c.closeNode()
	c.phase = PhaseIdle
}

func (c *Coordinator) handleRelayClosed() {
	if c.node != nil {
		c.logger.Warn("relay closed unexpectedly")
		c.endRoom()
	}
}
