package tetris

import (
	"fmt"

	"github.com/vovakirdan/nyatetris/internal/core"
)

const (
	cellWidth  = 2  // Screen columns per board cell
	panelWidth = 12 // Hold/next/score column next to the board
)

var pieceColors = map[Cell]core.Color{
	CellI:       core.ColorCyan,
	CellO:       core.ColorYellow,
	CellT:       core.ColorMagenta,
	CellS:       core.ColorGreen,
	CellZ:       core.ColorRed,
	CellJ:       core.ColorBlue,
	CellL:       core.ColorOrange,
	CellGarbage: core.ColorGray,
}

// View is one board as presented on screen.
type View struct {
	Name       string
	Snapshot   Snapshot
	Eliminated bool
	Winner     bool
	Compact    bool // Board only, no side panel
}

// ViewSize returns the screen footprint of a view of the given board.
func ViewSize(boardW, boardH int, compact bool) (w, h int) {
	w = boardW*cellWidth + 2
	if !compact {
		w += panelWidth + 1
	}
	return w, boardH + 3
}

// Render draws a labelled board at (x, y) and returns the columns used.
func Render(dst *core.Screen, x, y int, v View) int {
	s := v.Snapshot
	label := v.Name
	switch {
	case v.Winner:
		label += " *"
	case v.Eliminated || s.GameOver:
		label += " x"
	}
	dst.DrawText(x, y, label)
	RenderBoard(dst, x, y+1, s, v.Eliminated || s.GameOver)

	w, _ := ViewSize(s.Width(), s.Height(), v.Compact)
	if !v.Compact {
		renderPanel(dst, x+s.Width()*cellWidth+3, y+1, s)
	}
	return w
}

// RenderBoard draws the framed playfield with the active and ghost pieces.
// A dimmed board is drawn in gray regardless of piece colors.
func RenderBoard(dst *core.Screen, x, y int, s Snapshot, dimmed bool) {
	bw, bh := s.Width(), s.Height()
	dst.DrawBox(core.NewRect(x, y, bw*cellWidth+2, bh+2))

	board, err := s.Cells()
	if err != nil {
		dst.DrawText(x+1, y+1, "bad board")
		return
	}
	color := func(c Cell) core.Color {
		if dimmed {
			return core.ColorGray
		}
		return pieceColors[c]
	}
	drawCell := func(bx, by int, r rune, c core.Color) {
		if by < 0 || by >= bh || bx < 0 || bx >= bw {
			return
		}
		px, py := x+1+bx*cellWidth, y+1+by
		dst.SetColored(px, py, r, c)
		dst.SetColored(px+1, py, r, c)
	}

	for by := range bh {
		for bx := range bw {
			if c := board.At(bx, by); c.Filled() {
				drawCell(bx, by, '█', color(c))
			} else {
				drawCell(bx, by, ' ', core.ColorDefault)
			}
		}
	}

	p := s.Piece
	if p == nil {
		return
	}
	if s.GhostY > p.Y {
		forEachFilled(p.Shape, func(mx, my int) {
			drawCell(p.X+mx, s.GhostY+my, '░', core.ColorDim)
		})
	}
	forEachFilled(p.Shape, func(mx, my int) {
		drawCell(p.X+mx, p.Y+my, '█', color(CellFor(p.Type)))
	})
}

func renderPanel(dst *core.Screen, x, y int, s Snapshot) {
	dst.DrawText(x, y, "HOLD")
	if s.Hold.Valid() {
		drawMini(dst, x, y+1, s.Hold)
	}

	dst.DrawText(x, y+4, "NEXT")
	for i, t := range s.Next {
		drawMini(dst, x, y+5+i*3, t)
	}

	sy := y + 5 + max(len(s.Next), 1)*3
	dst.DrawText(x, sy, fmt.Sprintf("Score %d", s.Score))
	dst.DrawText(x, sy+1, fmt.Sprintf("Lines %d", s.Lines))
	dst.DrawText(x, sy+2, fmt.Sprintf("Level %d", s.Level))
}

// drawMini draws the spawn rotation of t in a two-row preview slot.
func drawMini(dst *core.Screen, x, y int, t PieceType) {
	m := ShapeOf(t, 0)
	top := m.TopRow()
	forEachFilled(m, func(mx, my int) {
		if my-top < 2 {
			dst.SetColored(x+mx*cellWidth, y+my-top, '█', pieceColors[CellFor(t)])
			dst.SetColored(x+mx*cellWidth+1, y+my-top, '█', pieceColors[CellFor(t)])
		}
	})
}

func forEachFilled(m Matrix, fn func(mx, my int)) {
	for my, row := range m {
		for mx, v := range row {
			if v != 0 {
				fn(mx, my)
			}
		}
	}
}
