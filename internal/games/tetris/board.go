package tetris

import (
	"fmt"
	"strings"
)

// Cell is the content of one board square.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellI
	CellO
	CellT
	CellS
	CellZ
	CellJ
	CellL
	CellGarbage
)

var cellRunes = [...]rune{'.', 'I', 'O', 'T', 'S', 'Z', 'J', 'L', 'G'}

// CellFor returns the locked-cell tag for a piece type.
func CellFor(t PieceType) Cell {
	if !t.Valid() {
		return CellEmpty
	}
	return Cell(t)
}

// Rune returns the wire/text representation of the cell.
func (c Cell) Rune() rune {
	if int(c) >= len(cellRunes) {
		return '?'
	}
	return cellRunes[c]
}

// Filled reports whether the cell blocks movement.
func (c Cell) Filled() bool {
	return c != CellEmpty
}

func cellFromRune(r rune) (Cell, bool) {
	for i, cr := range cellRunes {
		if cr == r {
			return Cell(i), true
		}
	}
	return CellEmpty, false
}

// Board is the playfield. Row 0 is the top; x grows to the right.
type Board struct {
	width  int
	height int
	rows   [][]Cell
}

// NewBoard creates an empty board.
func NewBoard(width, height int) *Board {
	b := &Board{width: width, height: height}
	b.rows = make([][]Cell, height)
	for y := range b.rows {
		b.rows[y] = make([]Cell, width)
	}
	return b
}

// Width is the number of columns.
func (b *Board) Width() int { return b.width }

// Height is the number of rows.
func (b *Board) Height() int { return b.height }

// InBounds reports whether (x, y) is a board square.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// At returns the cell at (x, y), or CellEmpty when out of bounds.
func (b *Board) At(x, y int) Cell {
	if !b.InBounds(x, y) {
		return CellEmpty
	}
	return b.rows[y][x]
}

// Set writes a cell. Out-of-bounds writes are ignored.
func (b *Board) Set(x, y int, c Cell) {
	if b.InBounds(x, y) {
		b.rows[y][x] = c
	}
}

// IsValidPosition reports whether matrix m anchored at (x, y) fits: every
// filled cell inside the side walls and above the floor, and not overlapping
// a locked cell. Cells above row 0 are allowed.
func (b *Board) IsValidPosition(m Matrix, x, y int) bool {
	for my, row := range m {
		for mx, v := range row {
			if v == 0 {
				continue
			}
			bx, by := x+mx, y+my
			if bx < 0 || bx >= b.width || by >= b.height {
				return false
			}
			if by >= 0 && b.rows[by][bx] != CellEmpty {
				return false
			}
		}
	}
	return true
}

// Place writes the filled cells of m at (x, y). Cells above row 0 are dropped.
func (b *Board) Place(m Matrix, x, y int, c Cell) {
	for my, row := range m {
		for mx, v := range row {
			if v != 0 {
				b.Set(x+mx, y+my, c)
			}
		}
	}
}

func (b *Board) rowFull(y int) bool {
	for _, c := range b.rows[y] {
		if c == CellEmpty {
			return false
		}
	}
	return true
}

// ClearLines removes every full row, shifting everything above down and
// inserting empty rows at the top. Returns the number of rows removed.
func (b *Board) ClearLines() int {
	cleared := 0
	for y := b.height - 1; y >= 0; {
		if !b.rowFull(y) {
			y--
			continue
		}
		copy(b.rows[1:y+1], b.rows[:y])
		b.rows[0] = make([]Cell, b.width)
		cleared++
	}
	return cleared
}

// AddGarbage discards the top n rows and appends n garbage rows at the
// bottom, all sharing an empty column at gap. n is clamped to the height.
func (b *Board) AddGarbage(n, gap int) {
	if n <= 0 {
		return
	}
	if n > b.height {
		n = b.height
	}
	rows := make([][]Cell, 0, b.height)
	rows = append(rows, b.rows[n:]...)
	for range n {
		row := make([]Cell, b.width)
		for x := range row {
			if x != gap {
				row[x] = CellGarbage
			}
		}
		rows = append(rows, row)
	}
	b.rows = rows
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	out := &Board{width: b.width, height: b.height, rows: make([][]Cell, b.height)}
	for y := range b.rows {
		out.rows[y] = append([]Cell(nil), b.rows[y]...)
	}
	return out
}

// Rows renders the board as one string per row using cell runes.
func (b *Board) Rows() []string {
	out := make([]string, b.height)
	var sb strings.Builder
	for y, row := range b.rows {
		sb.Reset()
		for _, c := range row {
			sb.WriteRune(c.Rune())
		}
		out[y] = sb.String()
	}
	return out
}

// ParseRows builds a board from the Rows representation. All rows must have
// equal width.
func ParseRows(rows []string) (*Board, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("tetris: empty board")
	}
	width := len([]rune(rows[0]))
	b := NewBoard(width, len(rows))
	for y, line := range rows {
		runes := []rune(line)
		if len(runes) != width {
			return nil, fmt.Errorf("tetris: row %d has width %d, want %d", y, len(runes), width)
		}
		for x, r := range runes {
			c, ok := cellFromRune(r)
			if !ok {
				return nil, fmt.Errorf("tetris: row %d: unknown cell %q", y, r)
			}
			b.rows[y][x] = c
		}
	}
	return b, nil
}
