package tetris

import (
	"math/rand"
	"time"

	"github.com/vovakirdan/nyatetris/internal/config"
	"github.com/vovakirdan/nyatetris/internal/core"
)

// State is the lifecycle state of the active piece.
type State int

const (
	StateNone State = iota // No active piece (before start, between lock and spawn)
	StateFalling
	StateLocking // Resting on something; lock delay running
	StateGameOver
)

// String names the state for logs.
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateFalling:
		return "falling"
	case StateLocking:
		return "locking"
	case StateGameOver:
		return "game over"
	default:
		return "unknown"
	}
}

// lineScores is indexed by the number of rows cleared at once.
var lineScores = [...]int{0, 100, 300, 500, 800}

// Config holds the engine parameters of one game.
type Config struct {
	Width      int
	Height     int
	Preview    int
	LockDelay  time.Duration
	StartLevel int
	Timing     config.TimingConfig
}

// ConfigFrom extracts engine parameters from the loaded configuration.
func ConfigFrom(cfg config.TetrisConfig) Config {
	return Config{
		Width:      cfg.Board.Width,
		Height:     cfg.Board.Height,
		Preview:    cfg.Board.Preview,
		LockDelay:  cfg.Timing.LockDelay,
		StartLevel: max(cfg.Timing.StartLevel, 1),
		Timing:     cfg.Timing,
	}
}

// DefaultConfig returns the standard 10x20 engine configuration.
func DefaultConfig() Config {
	return ConfigFrom(config.DefaultTetrisConfig())
}

// Game is one player's session: board, active piece, hold slot, preview
// queue, score and gravity clock. Time only advances through Tick, so a
// Game is deterministic for a given seed and sequence of calls.
//
// A Game is not safe for concurrent use.
type Game struct {
	cfg   Config
	board *Board
	bag   *Randomizer
	gaps  *rand.Rand

	piece   *Piece
	state   State
	hold    PieceType
	canHold bool
	queue   []PieceType

	score int
	lines int
	level int

	started   bool
	now       time.Time // Latest tick time
	lastDrop  time.Time
	lockStart time.Time

	sinks   []Sink
	version uint64
}

// New creates a game whose piece sequence and garbage gaps derive from seed.
func New(cfg Config, seed int64) *Game {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		def := DefaultConfig()
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.StartLevel < 1 {
		cfg.StartLevel = 1
	}
	if cfg.Timing.LinesPerLevel <= 0 {
		cfg.Timing.LinesPerLevel = 10
	}
	g := &Game{
		cfg:   cfg,
		board: NewBoard(cfg.Width, cfg.Height),
		bag:   NewRandomizer(seed),
		gaps:  rand.New(rand.NewSource(seed)),
		level: cfg.StartLevel,
	}
	g.fillQueue()
	return g
}

// SeedGarbage reseeds the gap generator independently of the piece sequence.
func (g *Game) SeedGarbage(seed int64) {
	g.gaps = rand.New(rand.NewSource(seed))
}

// Subscribe registers a sink for game events. Sinks run synchronously
// inside the call that produced the event.
func (g *Game) Subscribe(sink Sink) {
	g.sinks = append(g.sinks, sink)
}

func (g *Game) emit(ev Event) {
	for _, sink := range g.sinks {
		sink(ev)
	}
}

func (g *Game) changed() {
	g.version++
}

// Start begins gravity at now and spawns the first piece.
func (g *Game) Start(now time.Time) bool {
	if g.started {
		return false
	}
	g.started = true
	g.now = now
	g.lastDrop = now
	return g.Spawn()
}

// minQueue is the lookahead kept regardless of how many pieces are shown.
const minQueue = 3

func (g *Game) fillQueue() {
	for len(g.queue) < max(g.cfg.Preview, minQueue) {
		g.queue = append(g.queue, g.bag.Next())
	}
}

func (g *Game) popQueue() PieceType {
	t := g.queue[0]
	g.queue = g.queue[1:]
	g.fillQueue()
	return t
}

// Spawn draws the next piece from the queue and places it at the top.
// A blocked spawn ends the game and leaves no active piece.
func (g *Game) Spawn() bool {
	if g.state == StateGameOver {
		return false
	}
	return g.place(g.popQueue(), true)
}

// place puts a fresh piece of type t at the spawn position: horizontally
// centered, with the top filled row of its matrix on board row 0.
func (g *Game) place(t PieceType, canHold bool) bool {
	m := ShapeOf(t, 0)
	p := Piece{
		Type: t,
		X:    (g.cfg.Width - m.Size()) / 2,
		Y:    -m.TopRow(),
	}
	g.lockStart = time.Time{}
	if !g.board.IsValidPosition(m, p.X, p.Y) {
		g.gameOver()
		return false
	}
	g.piece = &p
	g.state = StateFalling
	g.canHold = canHold
	g.changed()
	return true
}

func (g *Game) gameOver() {
	if g.state == StateGameOver {
		return
	}
	g.piece = nil
	g.state = StateGameOver
	g.changed()
	g.emit(GameOverEvent{Score: g.score, Lines: g.lines, Level: g.level})
}

func (g *Game) active() bool {
	return g.piece != nil && (g.state == StateFalling || g.state == StateLocking)
}

func (g *Game) fits(p Piece) bool {
	return g.board.IsValidPosition(p.Matrix(), p.X, p.Y)
}

func (g *Game) canDescend() bool {
	p := *g.piece
	p.Y++
	return g.fits(p)
}

func (g *Game) startLock() {
	if g.state == StateLocking {
		return
	}
	g.state = StateLocking
	g.lockStart = g.now
	g.changed()
}

// touched restarts the lock countdown after a successful player action, or
// drops back to falling if the piece no longer rests on anything.
func (g *Game) touched() {
	if g.state != StateLocking {
		return
	}
	if g.canDescend() {
		g.state = StateFalling
		g.lockStart = time.Time{}
		return
	}
	g.lockStart = g.now
}

// Move shifts the active piece horizontally by dx columns.
func (g *Game) Move(dx int) bool {
	if !g.active() {
		return false
	}
	p := *g.piece
	p.X += dx
	if !g.fits(p) {
		return false
	}
	*g.piece = p
	g.touched()
	g.changed()
	return true
}

// Rotate turns the active piece a quarter turn (dir 1 = clockwise,
// -1 = counter-clockwise), trying each wall kick in order. The first
// candidate that fits wins; if none fit the piece is unchanged.
func (g *Game) Rotate(dir int) bool {
	if !g.active() || (dir != 1 && dir != -1) {
		return false
	}
	from := g.piece.Rotation
	to := mod4(from + dir)
	for _, k := range Kicks(g.piece.Type, from, to) {
		p := *g.piece
		p.Rotation = to
		p.X += k.X
		p.Y -= k.Y
		if g.fits(p) {
			*g.piece = p
			g.touched()
			g.changed()
			return true
		}
	}
	return false
}

// SoftDrop moves the piece down one row and awards one point. When the
// piece cannot descend it starts the lock delay instead.
func (g *Game) SoftDrop() bool {
	if !g.active() {
		return false
	}
	if !g.canDescend() {
		g.startLock()
		return false
	}
	g.piece.Y++
	g.score++
	g.touched()
	g.changed()
	return true
}

// HardDrop drops the piece to its resting row, awards two points per row
// travelled and locks immediately. Returns the distance.
func (g *Game) HardDrop() int {
	if !g.active() {
		return 0
	}
	dist := 0
	for g.canDescend() {
		g.piece.Y++
		dist++
	}
	g.score += 2 * dist
	g.LockPiece()
	return dist
}

// Hold stashes the active piece. With an empty slot the next queued piece
// spawns; otherwise the held piece swaps in at the spawn position. Either
// way holding stays disabled until the next lock.
func (g *Game) Hold() bool {
	if !g.active() || !g.canHold {
		return false
	}
	current := g.piece.Type
	next := g.hold
	g.hold = current
	if next == PieceNone {
		next = g.popQueue()
	}
	g.place(next, false)
	return true
}

// LockPiece writes the active piece into the board, clears full rows and
// spawns the next piece.
func (g *Game) LockPiece() {
	if g.piece == nil || g.state == StateGameOver {
		return
	}
	p := *g.piece
	g.board.Place(p.Matrix(), p.X, p.Y, CellFor(p.Type))
	g.piece = nil
	g.state = StateNone
	g.lockStart = time.Time{}
	g.changed()
	g.emit(PieceLockedEvent{Type: p.Type})

	g.ClearLines()
	g.Spawn()
}

// ClearLines removes full rows and scores them at the level reached by
// the clear. Returns the number of rows removed.
func (g *Game) ClearLines() int {
	n := g.board.ClearLines()
	if n == 0 {
		return 0
	}
	g.lines += n
	g.level = g.lines/g.cfg.Timing.LinesPerLevel + g.cfg.StartLevel
	g.score += lineScores[min(n, len(lineScores)-1)] * g.level
	g.changed()
	g.emit(LinesClearedEvent{Count: n, Score: g.score, Lines: g.lines, Level: g.level})
	return n
}

// AddGarbage pushes n garbage rows in from the bottom sharing one random
// gap column. An overlapped piece is pushed up while it stays on the board;
// if it still overlaps the game ends.
func (g *Game) AddGarbage(n int) {
	if n <= 0 || g.state == StateGameOver {
		return
	}
	n = min(n, g.cfg.Height)
	g.board.AddGarbage(n, g.gaps.Intn(g.cfg.Width))
	g.changed()

	if g.piece == nil {
		return
	}
	for !g.fits(*g.piece) {
		if g.piece.Y+g.piece.Matrix().TopRow()-1 < 0 {
			g.gameOver()
			return
		}
		g.piece.Y--
	}
}

// DropInterval returns the current gravity period.
func (g *Game) DropInterval() time.Duration {
	return g.cfg.Timing.DropInterval(g.level)
}

// Tick advances the game clock. Gravity moves the piece one row per drop
// interval; a piece that cannot fall enters the lock delay and locks once
// the delay passes without a successful move.
func (g *Game) Tick(now time.Time) {
	if !g.active() {
		return
	}
	g.now = now
	if now.Sub(g.lastDrop) >= g.DropInterval() {
		g.lastDrop = now
		if g.canDescend() {
			g.piece.Y++
			if g.state == StateLocking {
				g.state = StateFalling
				g.lockStart = time.Time{}
			}
			g.changed()
		} else {
			g.startLock()
		}
	}
	if g.state == StateLocking && now.Sub(g.lockStart) >= g.cfg.LockDelay {
		if g.canDescend() {
			g.state = StateFalling
			g.lockStart = time.Time{}
			return
		}
		g.LockPiece()
	}
}

// Resume shifts the gravity and lock timers past a pause that began at the
// last Tick, so no time elapsed while paused counts.
func (g *Game) Resume(now time.Time) {
	if !g.active() || now.Before(g.now) {
		return
	}
	paused := now.Sub(g.now)
	g.lastDrop = g.lastDrop.Add(paused)
	if !g.lockStart.IsZero() {
		g.lockStart = g.lockStart.Add(paused)
	}
	g.now = now
}

// Apply dispatches a gameplay action. Returns whether the state changed.
func (g *Game) Apply(action core.Action) bool {
	switch action {
	case core.ActionMoveLeft:
		return g.Move(-1)
	case core.ActionMoveRight:
		return g.Move(1)
	case core.ActionRotateCW:
		return g.Rotate(1)
	case core.ActionRotateCCW:
		return g.Rotate(-1)
	case core.ActionSoftDrop:
		return g.SoftDrop()
	case core.ActionHardDrop:
		if !g.active() {
			return false
		}
		g.HardDrop()
		return true
	case core.ActionHold:
		return g.Hold()
	default:
		return false
	}
}

// GhostY returns the row the active piece would land on, or -1 without one.
func (g *Game) GhostY() int {
	if g.piece == nil {
		return -1
	}
	p := *g.piece
	for {
		p.Y++
		if !g.fits(p) {
			return p.Y - 1
		}
	}
}

// Accessors for the session state.
func (g *Game) Board() *Board        { return g.board }
func (g *Game) State() State         { return g.state }
func (g *Game) Score() int           { return g.score }
func (g *Game) Lines() int           { return g.lines }
func (g *Game) Level() int           { return g.level }
func (g *Game) HoldPiece() PieceType { return g.hold }
func (g *Game) CanHold() bool        { return g.canHold }
func (g *Game) Started() bool        { return g.started }
func (g *Game) IsGameOver() bool     { return g.state == StateGameOver }

// Version increases on every observable change; compare values to detect
// whether a snapshot is stale.
func (g *Game) Version() uint64 { return g.version }

// Piece returns a copy of the active piece.
func (g *Game) Piece() (Piece, bool) {
	if g.piece == nil {
		return Piece{}, false
	}
	return *g.piece, true
}

// Next returns the pieces shown in the preview, front first.
func (g *Game) Next() []PieceType {
	n := min(g.cfg.Preview, len(g.queue))
	return append([]PieceType(nil), g.queue[:n]...)
}
