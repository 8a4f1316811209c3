package tetris

import (
	"encoding/json"
	"fmt"
)

// PieceSnapshot is the serialized active piece, including its
// rotation-derived shape so observers need no rotation tables.
type PieceSnapshot struct {
	Type     PieceType `json:"type"`
	Rotation int       `json:"rotation"`
	Shape    Matrix    `json:"shape"`
	X        int       `json:"x"`
	Y        int       `json:"y"`
}

// Snapshot is a self-contained view of a game, sufficient for rendering a
// board elsewhere without simulating it. It is the stateUpdate payload.
type Snapshot struct {
	Board    []string       `json:"board"`
	Piece    *PieceSnapshot `json:"piece,omitempty"`
	GhostY   int            `json:"ghostY"`
	Hold     PieceType      `json:"hold"`
	Next     []PieceType    `json:"next"`
	Score    int            `json:"score"`
	Lines    int            `json:"lines"`
	Level    int            `json:"level"`
	GameOver bool           `json:"gameOver"`
}

// Snapshot captures the current state.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Board:    g.board.Rows(),
		GhostY:   -1,
		Hold:     g.hold,
		Next:     g.Next(),
		Score:    g.score,
		Lines:    g.lines,
		Level:    g.level,
		GameOver: g.state == StateGameOver,
	}
	if g.piece != nil {
		s.Piece = &PieceSnapshot{
			Type:     g.piece.Type,
			Rotation: g.piece.Rotation,
			Shape:    g.piece.Matrix().Clone(),
			X:        g.piece.X,
			Y:        g.piece.Y,
		}
		s.GhostY = g.GhostY()
	}
	return s
}

// Width returns the board width encoded in the snapshot.
func (s Snapshot) Width() int {
	if len(s.Board) == 0 {
		return 0
	}
	return len([]rune(s.Board[0]))
}

// Height returns the number of board rows.
func (s Snapshot) Height() int {
	return len(s.Board)
}

// Cells decodes the board rows.
func (s Snapshot) Cells() (*Board, error) {
	return ParseRows(s.Board)
}

// Encode serializes the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses and validates a snapshot received from a peer.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("tetris: decode snapshot: %w", err)
	}
	if _, err := ParseRows(s.Board); err != nil {
		return Snapshot{}, err
	}
	if s.Piece != nil && !s.Piece.Type.Valid() {
		return Snapshot{}, fmt.Errorf("tetris: snapshot piece has no type")
	}
	return s, nil
}
