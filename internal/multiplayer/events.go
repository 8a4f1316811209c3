package multiplayer

import (
	"github.com/vovakirdan/nyatetris/internal/core"
	"github.com/vovakirdan/nyatetris/internal/games/tetris"
	"github.com/vovakirdan/nyatetris/internal/relay"
)

// SessionEvent is sent from the coordinator to its session.
type SessionEvent interface {
	sessionEvent()
}

// LobbyEvent reports the room and its directory. Sent after hosting or
// joining and on every directory change while waiting.
type LobbyEvent struct {
	Code    string
	LocalID string
	IsHost  bool
	Players []relay.PlayerInfo
}

// MatchStartedEvent is sent when a match is created, before the countdown.
type MatchStartedEvent struct {
	MatchID MatchID
	Mode    MatchMode
	Seed    int64
	Players []relay.PlayerInfo
}

// CountdownEvent ticks down before pieces spawn; Remaining 0 means go.
type CountdownEvent struct {
	Remaining int
}

// Board is one player's board as the UI should draw it.
type Board struct {
	PlayerID string
	Local    bool
	View     tetris.View
}

// BoardsEvent carries every board in the match, local first.
type BoardsEvent struct {
	Boards []Board
	Paused bool
}

// PlayerEliminatedEvent is sent once per player that tops out or leaves.
type PlayerEliminatedEvent struct {
	PlayerID     string
	Name         string
	Disconnected bool
}

// Result is one line of the final standings.
type Result struct {
	PlayerID     string
	Name         string
	Score        int
	Lines        int
	Level        int
	Winner       bool
	Disconnected bool
}

// MatchEndedEvent is sent when the match is over. Results are ordered by
// score, highest first.
type MatchEndedEvent struct {
	MatchID MatchID
	Mode    MatchMode
	Reason  MatchEndReason
	Winner  string // Player id, empty if nobody won
	Results []Result
}

// MatchEndReason describes why a match ended.
type MatchEndReason int

const (
	MatchEndReasonCompleted MatchEndReason = iota // Boards topped out
	MatchEndReasonHostLeft                        // The room went away
	MatchEndReasonCancelled                       // The local player left
	MatchEndReasonRoomFull                        // The host turned us away
)

// String is the reason shown on the results page and stored with a match.
func (r MatchEndReason) String() string {
	switch r {
	case MatchEndReasonCompleted:
		return "Match completed"
	case MatchEndReasonHostLeft:
		return "Host left"
	case MatchEndReasonCancelled:
		return "Match cancelled"
	case MatchEndReasonRoomFull:
		return "Room full"
	default:
		return "Unknown"
	}
}

// ErrorEvent reports a failed request, such as a join that timed out.
type ErrorEvent struct {
	Err error
}

// Message returns the text shown to the player.
func (e ErrorEvent) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (LobbyEvent) sessionEvent()            {}
func (MatchStartedEvent) sessionEvent()     {}
func (CountdownEvent) sessionEvent()        {}
func (BoardsEvent) sessionEvent()           {}
func (PlayerEliminatedEvent) sessionEvent() {}
func (MatchEndedEvent) sessionEvent()       {}
func (ErrorEvent) sessionEvent()            {}

// CoordinatorMessage is a request from the session to the coordinator.
type CoordinatorMessage interface {
	coordinatorMessage()
}

// SoloMsg starts a single-player game. A zero seed picks a random one.
type SoloMsg struct {
	Name string
	Seed int64
}

// HostMsg opens a room.
type HostMsg struct {
	Name string
}

// JoinMsg joins the room with the given code.
type JoinMsg struct {
	Code string
	Name string
}

// StartMsg starts the match in a hosted room.
type StartMsg struct{}

// InputMsg applies one player action to the local board.
type InputMsg struct {
	Action core.Action
}

// LeaveMsg abandons the current game or room.
type LeaveMsg struct{}

func (SoloMsg) coordinatorMessage()  {}
func (HostMsg) coordinatorMessage()  {}
func (JoinMsg) coordinatorMessage()  {}
func (StartMsg) coordinatorMessage() {}
func (InputMsg) coordinatorMessage() {}
func (LeaveMsg) coordinatorMessage() {}
