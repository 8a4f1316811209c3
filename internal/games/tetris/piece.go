// Package tetris implements the falling-block engine: a 7-bag randomizer,
// SRS-style rotation with wall kicks, lock delay, line clears, scoring and
// garbage injection. One Game owns one player's board and active piece.
package tetris

import "fmt"

// PieceType identifies one of the seven canonical shapes.
// The zero value means "no piece" (empty hold slot).
type PieceType int

const (
	PieceNone PieceType = iota
	PieceI
	PieceO
	PieceT
	PieceS
	PieceZ
	PieceJ
	PieceL
)

// PieceTypes lists every playable shape in canonical order.
var PieceTypes = [...]PieceType{PieceI, PieceO, PieceT, PieceS, PieceZ, PieceJ, PieceL}

var pieceNames = [...]string{"", "I", "O", "T", "S", "Z", "J", "L"}

// String returns the single-letter tag of the piece, or "" for PieceNone.
func (p PieceType) String() string {
	if p < PieceNone || p > PieceL {
		return "?"
	}
	return pieceNames[p]
}

// Valid reports whether p is one of the seven playable shapes.
func (p PieceType) Valid() bool {
	return p >= PieceI && p <= PieceL
}

// ParsePieceType converts a letter tag back into a PieceType.
// The empty string parses as PieceNone.
func ParsePieceType(s string) (PieceType, error) {
	for i, name := range pieceNames {
		if name == s {
			return PieceType(i), nil
		}
	}
	return PieceNone, fmt.Errorf("tetris: unknown piece type %q", s)
}

// MarshalText encodes the piece as its letter tag.
func (p PieceType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a letter tag.
func (p *PieceType) UnmarshalText(text []byte) error {
	parsed, err := ParsePieceType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Matrix is a square occupancy grid for one rotation of a piece. 1 = filled.
type Matrix [][]int

// Size returns the matrix dimension.
func (m Matrix) Size() int {
	return len(m)
}

// TopRow returns the index of the first row containing a filled cell.
func (m Matrix) TopRow() int {
	for y, row := range m {
		for _, v := range row {
			if v != 0 {
				return y
			}
		}
	}
	return 0
}

// Clone returns a deep copy safe for mutation or serialization.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for y := range m {
		out[y] = append([]int(nil), m[y]...)
	}
	return out
}

// Equal reports whether two matrices have identical occupancy.
func (m Matrix) Equal(other Matrix) bool {
	if len(m) != len(other) {
		return false
	}
	for y := range m {
		if len(m[y]) != len(other[y]) {
			return false
		}
		for x := range m[y] {
			if m[y][x] != other[y][x] {
				return false
			}
		}
	}
	return true
}

var spawnShapes = map[PieceType]Matrix{
	PieceI: {{0, 0, 0, 0}, {1, 1, 1, 1}, {0, 0, 0, 0}, {0, 0, 0, 0}},
	PieceO: {{1, 1}, {1, 1}},
	PieceT: {{0, 1, 0}, {1, 1, 1}, {0, 0, 0}},
	PieceS: {{0, 1, 1}, {1, 1, 0}, {0, 0, 0}},
	PieceZ: {{1, 1, 0}, {0, 1, 1}, {0, 0, 0}},
	PieceJ: {{1, 0, 0}, {1, 1, 1}, {0, 0, 0}},
	PieceL: {{0, 0, 1}, {1, 1, 1}, {0, 0, 0}},
}

// rotations[type][r] is the matrix after r clockwise turns from spawn.
var rotations [PieceL + 1][4]Matrix

func init() {
	for _, t := range PieceTypes {
		m := spawnShapes[t]
		for r := range 4 {
			rotations[t][r] = m
			m = rotateMatrix(m, 1)
		}
	}
}

// rotateMatrix turns a square matrix a quarter turn; dir 1 = clockwise, -1 = counter-clockwise.
func rotateMatrix(m Matrix, dir int) Matrix {
	n := len(m)
	out := make(Matrix, n)
	for y := range out {
		out[y] = make([]int, n)
	}
	for y := range n {
		for x := range n {
			if dir == 1 {
				out[x][n-1-y] = m[y][x]
			} else {
				out[n-1-x][y] = m[y][x]
			}
		}
	}
	return out
}

// ShapeOf returns the shared matrix for a piece type at a rotation index.
// Callers must not mutate the result; use Clone for that.
func ShapeOf(t PieceType, rotation int) Matrix {
	if !t.Valid() {
		return nil
	}
	return rotations[t][mod4(rotation)]
}

func mod4(v int) int {
	return ((v % 4) + 4) % 4
}

// Piece is the falling piece: immutable type, mutable rotation and anchor.
// X/Y is the top-left corner of the rotation matrix in board coordinates.
type Piece struct {
	Type     PieceType
	Rotation int
	X, Y     int
}

// Matrix returns the occupancy matrix for the piece's current rotation.
func (p Piece) Matrix() Matrix {
	return ShapeOf(p.Type, p.Rotation)
}
