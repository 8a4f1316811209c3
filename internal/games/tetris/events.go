package tetris

// Event is emitted synchronously by a Game to its subscribers.
// The set of events is closed: only this package defines them.
type Event interface {
	tetrisEvent()
}

// PieceLockedEvent is emitted when the active piece becomes part of the board.
type PieceLockedEvent struct {
	Type PieceType
}

// LinesClearedEvent is emitted after a lock removes one or more rows.
// Score, Lines and Level are the totals after the clear.
type LinesClearedEvent struct {
	Count int
	Score int
	Lines int
	Level int
}

// GameOverEvent is emitted once, when a spawn or garbage push fails.
type GameOverEvent struct {
	Score int
	Lines int
	Level int
}

func (PieceLockedEvent) tetrisEvent()  {}
func (LinesClearedEvent) tetrisEvent() {}
func (GameOverEvent) tetrisEvent()     {}

// Sink receives game events.
type Sink func(Event)
