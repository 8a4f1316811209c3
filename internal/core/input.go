package core

// Action represents a semantic game action, abstracted from physical key presses.
// Front-ends translate keys into actions; the engine never sees raw input.
type Action int

const (
	ActionNone       Action = iota
	ActionMoveLeft          // Left arrow, A
	ActionMoveRight         // Right arrow, D
	ActionRotateCW          // Up arrow, X, W
	ActionRotateCCW         // Z, Ctrl
	ActionSoftDrop          // Down arrow, S
	ActionHardDrop          // Space
	ActionHold              // Shift, C
	ActionPause             // P - solo only
	ActionQuit              // Q, Ctrl+C
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionMoveLeft:
		return "MoveLeft"
	case ActionMoveRight:
		return "MoveRight"
	case ActionRotateCW:
		return "RotateCW"
	case ActionRotateCCW:
		return "RotateCCW"
	case ActionSoftDrop:
		return "SoftDrop"
	case ActionHardDrop:
		return "HardDrop"
	case ActionHold:
		return "Hold"
	case ActionPause:
		return "Pause"
	case ActionQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// IsGameplay reports whether the action manipulates the falling piece.
func (a Action) IsGameplay() bool {
	return a >= ActionMoveLeft && a <= ActionHold
}
