package tetris

import (
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/nyatetris/internal/core"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// newGameWith starts a game whose first pieces are forced to the given types.
func newGameWith(t *testing.T, first ...PieceType) *Game {
	t.Helper()
	g := New(DefaultConfig(), 1)
	g.queue = append(append([]PieceType(nil), first...), g.queue...)
	if !g.Start(t0) {
		t.Fatal("Start failed on an empty board")
	}
	return g
}

// setPiece replaces the active piece.
func setPiece(g *Game, p Piece) {
	g.piece = &p
	g.state = StateFalling
}

func TestSpawnLongBarAndHardDrop(t *testing.T) {
	g := newGameWith(t, PieceI)

	p, ok := g.Piece()
	if !ok || p.Type != PieceI {
		t.Fatalf("active piece = %+v, %v", p, ok)
	}
	for x := range 10 {
		occupied := false
		forEachFilled(p.Matrix(), func(mx, my int) {
			if p.X+mx == x && p.Y+my == 0 {
				occupied = true
			}
		})
		if want := x >= 3 && x <= 6; occupied != want {
			t.Errorf("column %d of row 0 occupied = %v, want %v", x, occupied, want)
		}
	}

	if d := g.HardDrop(); d != 19 {
		t.Errorf("HardDrop distance = %d, want 19", d)
	}
	if g.Score() != 38 {
		t.Errorf("score = %d, want 38", g.Score())
	}
	if got := g.Board().Rows()[19]; got != "...IIII..." {
		t.Errorf("row 19 = %q", got)
	}
	if _, ok := g.Piece(); !ok {
		t.Error("next piece should have spawned")
	}
}

func TestMoveBlockedByWalls(t *testing.T) {
	g := newGameWith(t, PieceO)
	moves := 0
	for g.Move(-1) {
		moves++
	}
	if moves != 4 {
		t.Errorf("moved left %d times, want 4", moves)
	}
	p, _ := g.Piece()
	if p.X != 0 {
		t.Errorf("x = %d, want 0", p.X)
	}
	if g.Move(-1) {
		t.Error("move through left wall succeeded")
	}
}

func TestFourRotationsRestorePiece(t *testing.T) {
	for _, typ := range PieceTypes {
		g := newGameWith(t, typ)
		setPiece(g, Piece{Type: typ, X: 3, Y: 8})
		for _, dir := range []int{1, -1} {
			for i := range 4 {
				if !g.Rotate(dir) {
					t.Fatalf("%v: rotation %d (dir %d) failed in open space", typ, i, dir)
				}
			}
			if p, _ := g.Piece(); p != (Piece{Type: typ, X: 3, Y: 8}) {
				t.Errorf("%v dir %d: after four turns piece = %+v", typ, dir, p)
			}
		}
	}
}

func TestRotateWallKick(t *testing.T) {
	g := newGameWith(t, PieceT)
	// Pointing right with the stem column against the left wall.
	setPiece(g, Piece{Type: PieceT, Rotation: 1, X: -1, Y: 5})
	if !g.Rotate(1) {
		t.Fatal("rotation next to the wall should kick")
	}
	p, _ := g.Piece()
	if p.Rotation != 2 || p.X != 0 || p.Y != 5 {
		t.Errorf("after kick piece = %+v, want rotation 2 at (0,5)", p)
	}
}

func TestRotateFailsWhenBoxedIn(t *testing.T) {
	g := newGameWith(t, PieceI)
	// A one-row pocket: no column has room for the vertical bar.
	for y := range 20 {
		fillRow(g.board, y, CellGarbage)
	}
	for x := 3; x <= 6; x++ {
		g.board.Set(x, 17, CellEmpty)
	}
	setPiece(g, Piece{Type: PieceI, X: 3, Y: 16})
	before, _ := g.Piece()
	if g.Rotate(1) {
		t.Fatalf("rotation should fail, piece now %+v", g.piece)
	}
	if after, _ := g.Piece(); after != before {
		t.Errorf("failed rotation moved piece: %+v -> %+v", before, after)
	}
}

func TestLineClearScores(t *testing.T) {
	tests := []struct {
		lines int
		rows  int
		level int
		want  int
	}{
		{0, 1, 1, 100},
		{0, 2, 1, 300},
		{0, 3, 1, 500},
		{0, 4, 1, 800},
		{10, 1, 2, 200},
		{10, 4, 2, 1600},
		{9, 1, 1, 200},  // The clear reaches level 2 and scores there
		{8, 4, 1, 1600}, // Same for a tetris crossing the boundary
	}
	for _, tt := range tests {
		g := New(DefaultConfig(), 1)
		g.lines = tt.lines
		g.level = tt.level
		for y := 20 - tt.rows; y < 20; y++ {
			fillRow(g.board, y, CellGarbage)
		}
		if n := g.ClearLines(); n != tt.rows {
			t.Fatalf("ClearLines = %d, want %d", n, tt.rows)
		}
		if g.Score() != tt.want {
			t.Errorf("%d rows at %d lines scored %d, want %d", tt.rows, tt.lines, g.Score(), tt.want)
		}
	}
}

func TestQueueKeepsLookaheadWithShortPreview(t *testing.T) {
	for _, preview := range []int{0, 1, 2} {
		cfg := DefaultConfig()
		cfg.Preview = preview
		g := New(cfg, 1)
		if len(g.queue) < 3 {
			t.Errorf("preview %d: queue length %d, want at least 3", preview, len(g.queue))
		}
		if got := len(g.Next()); got != preview {
			t.Errorf("preview %d: Next() shows %d pieces", preview, got)
		}
		g.Start(t0)
		g.HardDrop()
		if len(g.queue) < 3 {
			t.Errorf("preview %d: queue length %d after a lock", preview, len(g.queue))
		}
	}
}

func TestLockClearsLineAndEmits(t *testing.T) {
	g := newGameWith(t, PieceI)
	fillRow(g.board, 19, CellGarbage, 3, 4, 5, 6)

	var cleared []LinesClearedEvent
	g.Subscribe(func(ev Event) {
		if e, ok := ev.(LinesClearedEvent); ok {
			cleared = append(cleared, e)
		}
	})

	g.HardDrop()
	if len(cleared) != 1 || cleared[0].Count != 1 {
		t.Fatalf("cleared events = %+v", cleared)
	}
	if g.Lines() != 1 || g.Score() != 38+100 {
		t.Errorf("lines = %d score = %d", g.Lines(), g.Score())
	}
	if got := g.Board().Rows()[19]; got != ".........." {
		t.Errorf("row 19 = %q, want empty", got)
	}
}

func TestLevelAdvancesEveryTenLines(t *testing.T) {
	g := New(DefaultConfig(), 1)
	for range 3 {
		for y := 16; y < 20; y++ {
			fillRow(g.board, y, CellGarbage)
		}
		g.ClearLines()
	}
	if g.Lines() != 12 || g.Level() != 2 {
		t.Errorf("lines = %d level = %d, want 12 and 2", g.Lines(), g.Level())
	}
	if g.DropInterval() != 920*time.Millisecond {
		t.Errorf("drop interval = %v", g.DropInterval())
	}
}

func TestGravityAwardsNothing(t *testing.T) {
	g := newGameWith(t, PieceT)
	p, _ := g.Piece()

	g.Tick(t0.Add(999 * time.Millisecond))
	if q, _ := g.Piece(); q.Y != p.Y {
		t.Fatal("piece fell before the drop interval")
	}
	g.Tick(t0.Add(time.Second))
	if q, _ := g.Piece(); q.Y != p.Y+1 {
		t.Errorf("y = %d, want %d", q.Y, p.Y+1)
	}
	if g.Score() != 0 {
		t.Errorf("gravity scored %d", g.Score())
	}
}

func TestResumeSkipsPausedTime(t *testing.T) {
	g := newGameWith(t, PieceT)
	p, _ := g.Piece()

	g.Tick(t0.Add(500 * time.Millisecond))
	// Paused for a minute after the last tick.
	g.Resume(t0.Add(time.Minute + 500*time.Millisecond))
	g.Tick(t0.Add(time.Minute + 900*time.Millisecond))
	if q, _ := g.Piece(); q.Y != p.Y {
		t.Fatal("paused time counted toward gravity")
	}
	g.Tick(t0.Add(time.Minute + time.Second))
	if q, _ := g.Piece(); q.Y != p.Y+1 {
		t.Errorf("y = %d, want %d", q.Y, p.Y+1)
	}
}

func TestSoftDrop(t *testing.T) {
	g := newGameWith(t, PieceO)
	setPiece(g, Piece{Type: PieceO, X: 4, Y: 17})
	if !g.SoftDrop() {
		t.Fatal("soft drop failed")
	}
	if g.Score() != 1 {
		t.Errorf("score = %d, want 1", g.Score())
	}
	if g.SoftDrop() {
		t.Error("soft drop through floor succeeded")
	}
	if g.State() != StateLocking {
		t.Errorf("state = %v, want locking", g.State())
	}
}

func TestLockDelay(t *testing.T) {
	g := newGameWith(t, PieceI)
	setPiece(g, Piece{Type: PieceI, X: 3, Y: 18})

	g.Tick(t0.Add(time.Second))
	if g.State() != StateLocking {
		t.Fatalf("state = %v, want locking", g.State())
	}
	g.Tick(t0.Add(1400 * time.Millisecond))
	if p, _ := g.Piece(); p.Type != PieceI || g.State() != StateLocking {
		t.Fatal("locked before the delay elapsed")
	}
	if !g.Move(-1) {
		t.Fatal("move while locking failed")
	}

	// The move at 1.4s restarted the delay.
	g.Tick(t0.Add(1800 * time.Millisecond))
	if g.Board().Rows()[19] != ".........." {
		t.Fatal("locked before the restarted delay elapsed")
	}
	g.Tick(t0.Add(1950 * time.Millisecond))
	if got := g.Board().Rows()[19]; got != "..IIII...." {
		t.Errorf("row 19 = %q, want locked bar at columns 2-5", got)
	}
}

func TestLockDelayWithoutMoves(t *testing.T) {
	g := newGameWith(t, PieceO)
	setPiece(g, Piece{Type: PieceO, X: 4, Y: 18})
	g.Tick(t0.Add(time.Second))
	g.Tick(t0.Add(1499 * time.Millisecond))
	if g.Board().At(4, 19) != CellEmpty {
		t.Fatal("locked too early")
	}
	g.Tick(t0.Add(1500 * time.Millisecond))
	if g.Board().At(4, 19) != CellO || g.Board().At(5, 18) != CellO {
		t.Errorf("rows = %v", g.Board().Rows()[18:])
	}
}

func TestHold(t *testing.T) {
	g := newGameWith(t, PieceT, PieceO, PieceS)

	if !g.Hold() {
		t.Fatal("first hold failed")
	}
	if g.HoldPiece() != PieceT {
		t.Errorf("held %v, want T", g.HoldPiece())
	}
	if p, _ := g.Piece(); p.Type != PieceO {
		t.Errorf("active = %v, want O", p.Type)
	}
	if g.Hold() {
		t.Error("second hold before lock succeeded")
	}

	g.HardDrop()
	if p, _ := g.Piece(); p.Type != PieceS || !g.CanHold() {
		t.Fatalf("after lock active = %v canHold = %v", p.Type, g.CanHold())
	}
	if !g.Hold() {
		t.Fatal("hold after lock failed")
	}
	p, _ := g.Piece()
	if p.Type != PieceT || g.HoldPiece() != PieceS {
		t.Errorf("swap gave active %v hold %v", p.Type, g.HoldPiece())
	}
	if p.Rotation != 0 || p.Y != -ShapeOf(PieceT, 0).TopRow() {
		t.Errorf("swapped piece not at spawn: %+v", p)
	}
}

func TestSpawnBlockedEndsGame(t *testing.T) {
	g := New(DefaultConfig(), 1)
	fillRow(g.board, 0, CellGarbage, 0)

	overs := 0
	g.Subscribe(func(ev Event) {
		if _, ok := ev.(GameOverEvent); ok {
			overs++
		}
	})

	if g.Start(t0) {
		t.Fatal("Start succeeded on a blocked board")
	}
	if !g.IsGameOver() {
		t.Fatal("expected game over")
	}
	if _, ok := g.Piece(); ok {
		t.Error("game over should leave no active piece")
	}
	if g.Spawn() || g.Move(1) || g.Hold() || g.HardDrop() != 0 {
		t.Error("actions succeeded after game over")
	}
	if overs != 1 {
		t.Errorf("game over emitted %d times", overs)
	}
}

func TestAddGarbagePushesPieceUp(t *testing.T) {
	g := newGameWith(t, PieceI)
	setPiece(g, Piece{Type: PieceI, X: 3, Y: 18})

	g.AddGarbage(2)

	p, ok := g.Piece()
	if !ok || p.Y != 16 {
		t.Fatalf("piece = %+v, want pushed to y=16", p)
	}
	rows := g.Board().Rows()
	for _, y := range []int{18, 19} {
		gaps := 0
		for _, r := range rows[y] {
			if r == '.' {
				gaps++
			}
		}
		if gaps != 1 {
			t.Errorf("garbage row %d = %q, want exactly one gap", y, rows[y])
		}
	}
	if rows[18] != rows[19] {
		t.Errorf("rows of one batch should share the gap: %q vs %q", rows[18], rows[19])
	}
}

func TestAddGarbageOverflowEndsGame(t *testing.T) {
	g := newGameWith(t, PieceI)
	g.AddGarbage(25)
	if !g.IsGameOver() {
		t.Fatal("expected game over after filling the board")
	}
	if g.Board().Height() != 20 {
		t.Errorf("height = %d", g.Board().Height())
	}
}

func TestAddGarbageIgnoresNonPositive(t *testing.T) {
	g := newGameWith(t, PieceT)
	before := g.Snapshot()
	g.AddGarbage(0)
	g.AddGarbage(-3)
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Error("non-positive garbage changed the game")
	}
}

func TestSameSeedSameGame(t *testing.T) {
	script := []core.Action{
		core.ActionMoveLeft, core.ActionRotateCW, core.ActionHardDrop,
		core.ActionHold, core.ActionMoveRight, core.ActionMoveRight, core.ActionHardDrop,
		core.ActionRotateCCW, core.ActionSoftDrop, core.ActionHardDrop,
	}
	run := func() Snapshot {
		g := New(DefaultConfig(), 99)
		g.Start(t0)
		for i, a := range script {
			g.Apply(a)
			g.Tick(t0.Add(time.Duration(i+1) * 300 * time.Millisecond))
		}
		g.AddGarbage(2)
		return g.Snapshot()
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed diverged:\n%+v\n%+v", a, b)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := newGameWith(t, PieceL, PieceJ)
	g.HardDrop()
	g.Rotate(1)

	snap := g.Snapshot()
	data, err := snap.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, snap)
	}
	if got.Piece == nil || got.Piece.Type != PieceJ || got.Hold != PieceNone {
		t.Errorf("piece = %+v hold = %v", got.Piece, got.Hold)
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`{"board":["..Q."]}`,
		`{"board":["...."],"piece":{"type":"X"}}`,
		`{"board":["...."],"piece":{"type":""}}`,
	} {
		if _, err := DecodeSnapshot([]byte(data)); err == nil {
			t.Errorf("DecodeSnapshot(%s) succeeded", data)
		}
	}
}

func TestRenderDrawsBoard(t *testing.T) {
	g := newGameWith(t, PieceO)
	g.HardDrop()
	s := g.Snapshot()

	w, h := ViewSize(s.Width(), s.Height(), false)
	scr := core.NewScreen(w, h)
	used := Render(scr, 0, 0, View{Name: "alice", Snapshot: s})
	if used != w {
		t.Errorf("Render used %d columns, want %d", used, w)
	}
	if got := scr.Row(0); got[:5] != "alice" {
		t.Errorf("label row = %q", got)
	}
	// O locked at columns 4-5 -> screen columns 9-12 on the last board row.
	if c := scr.GetCell(9, 1+20); c.Rune != '█' || c.Color != core.ColorYellow {
		t.Errorf("locked cell = %+v", c)
	}
}
