package tetris

// Offset is a kick translation in y-up coordinates, as written in SRS tables.
// A kick of (dx, dy) moves the piece to (x+dx, y-dy) on the y-down board.
type Offset struct {
	X, Y int
}

type rotationPair struct {
	from, to int
}

// kicksJLSTZ serves every piece except I. O never needs a kick since its
// matrix is rotation-invariant, so the in-place candidate always succeeds.
var kicksJLSTZ = map[rotationPair][]Offset{
	{0, 1}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{1, 0}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{1, 2}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{2, 1}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{2, 3}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{3, 2}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{3, 0}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{0, 3}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
}

var kicksI = map[rotationPair][]Offset{
	{0, 1}: {{0, 0}, {-2, 0}, {1, 0}, {-2, -1}, {1, 2}},
	{1, 0}: {{0, 0}, {2, 0}, {-1, 0}, {2, 1}, {-1, -2}},
	{1, 2}: {{0, 0}, {-1, 0}, {2, 0}, {-1, 2}, {2, -1}},
	{2, 1}: {{0, 0}, {1, 0}, {-2, 0}, {1, -2}, {-2, 1}},
	{2, 3}: {{0, 0}, {2, 0}, {-1, 0}, {2, 1}, {-1, -2}},
	{3, 2}: {{0, 0}, {-2, 0}, {1, 0}, {-2, -1}, {1, 2}},
	{3, 0}: {{0, 0}, {1, 0}, {-2, 0}, {1, -2}, {-2, 1}},
	{0, 3}: {{0, 0}, {-1, 0}, {2, 0}, {-1, 2}, {2, -1}},
}

var inPlace = []Offset{{0, 0}}

// Kicks returns the candidate offsets, in priority order, for rotating a
// piece of type t from one rotation index to another. The first candidate
// is always (0, 0).
func Kicks(t PieceType, from, to int) []Offset {
	table := kicksJLSTZ
	if t == PieceI {
		table = kicksI
	}
	if offsets, ok := table[rotationPair{mod4(from), mod4(to)}]; ok {
		return offsets
	}
	return inPlace
}
