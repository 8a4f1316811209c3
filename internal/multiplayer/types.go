// Package multiplayer runs tetris matches for one local player: solo games
// and online rooms over the relay protocol. The coordinator owns the match
// arena and turns relay traffic and local input into UI events.
package multiplayer

// SessionID identifies the UI session attached to a coordinator.
type SessionID string

// MatchID uniquely identifies a match.
type MatchID string

// MatchMode defines how a match is played.
type MatchMode int

const (
	// MatchModeSolo is a single local board. The match ends when it tops out.
	MatchModeSolo MatchMode = iota

	// MatchModeOnline is a relay room. The match ends when at most one
	// board is still alive.
	MatchModeOnline
)

// String returns a human-readable name for the match mode.
func (m MatchMode) String() string {
	switch m {
	case MatchModeSolo:
		return "Solo"
	case MatchModeOnline:
		return "Online"
	default:
		return "Unknown"
	}
}

// Phase is where the coordinator is in the match lifecycle.
type Phase int

const (
	PhaseIdle       Phase = iota // No room, no game
	PhaseConnecting              // Hosting or joining in progress
	PhaseLobby                   // In a room, waiting for the host to start
	PhaseCountdown               // Match created, pieces not spawned yet
	PhasePlaying
)

// String names the phase for logs.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseLobby:
		return "lobby"
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// AttackLines maps a line clear to the garbage it sends: 2 lines send 1,
// 3 send 2, a tetris sends 4. Singles send nothing.
func AttackLines(cleared int) int {
	switch cleared {
	case 2:
		return 1
	case 3:
		return 2
	case 4:
		return 4
	default:
		return 0
	}
}
