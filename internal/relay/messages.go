package relay

import (
	"encoding/json"
	"fmt"
)

// MessageType tags every relay message on the wire.
type MessageType string

const (
	TypePlayerList  MessageType = "playerList"
	TypePlayerJoin  MessageType = "playerJoin"
	TypePlayerLeave MessageType = "playerLeave"
	TypeGameStart   MessageType = "gameStart"
	TypeStateUpdate MessageType = "stateUpdate"
	TypeGarbage     MessageType = "garbage"
	TypeGarbageSend MessageType = "garbageSend" // Joiner to host only
	TypeGameOver    MessageType = "gameOver"
	TypeRoomFull    MessageType = "roomFull" // Host to a turned-away joiner
)

// PlayerInfo is one directory entry.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// Message is the wire form of every relay message. Only the fields of the
// tagged type are set.
type Message struct {
	Type       MessageType     `json:"type"`
	Players    []PlayerInfo    `json:"players,omitempty"`
	PlayerID   string          `json:"playerId,omitempty"`
	PlayerName string          `json:"playerName,omitempty"`
	Seed       int64           `json:"seed,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
	TargetID   string          `json:"targetId,omitempty"`
	Lines      int             `json:"lines,omitempty"`
}

// PlayerListMsg carries the full directory to a newly connected joiner.
func PlayerListMsg(players []PlayerInfo) Message {
	return Message{Type: TypePlayerList, Players: players}
}

// PlayerJoinMsg announces a new player to the room.
func PlayerJoinMsg(id, name string) Message {
	return Message{Type: TypePlayerJoin, PlayerID: id, PlayerName: name}
}

// PlayerLeaveMsg announces that a player disconnected.
func PlayerLeaveMsg(id string) Message {
	return Message{Type: TypePlayerLeave, PlayerID: id}
}

// GameStartMsg starts the match with the shared seed.
func GameStartMsg(seed int64) Message {
	return Message{Type: TypeGameStart, Seed: seed}
}

// StateUpdateMsg carries one player's encoded board snapshot.
func StateUpdateMsg(id string, state []byte) Message {
	return Message{Type: TypeStateUpdate, PlayerID: id, State: state}
}

// GarbageMsg tells the receiver to add lines of garbage.
func GarbageMsg(lines int) Message {
	return Message{Type: TypeGarbage, Lines: lines}
}

// GarbageSendMsg asks the host to deliver garbage to target.
func GarbageSendMsg(target string, lines int) Message {
	return Message{Type: TypeGarbageSend, TargetID: target, Lines: lines}
}

// GameOverMsg announces that a player topped out.
func GameOverMsg(id string) Message {
	return Message{Type: TypeGameOver, PlayerID: id}
}

// RoomFullMsg tells a joiner the host turned it away.
func RoomFullMsg() Message {
	return Message{Type: TypeRoomFull}
}

// Encode serializes a message.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a message and checks the fields its type requires.
// Unknown types yield ErrUnknownMessage; anything else unusable yields
// ErrMalformedMessage.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := m.validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) validate() error {
	malformed := func(field string) error {
		return fmt.Errorf("%w: %s without %s", ErrMalformedMessage, m.Type, field)
	}
	switch m.Type {
	case TypePlayerList, TypeGameStart, TypeRoomFull:
		return nil
	case TypePlayerJoin, TypePlayerLeave, TypeGameOver:
		if m.PlayerID == "" {
			return malformed("playerId")
		}
	case TypeStateUpdate:
		if m.PlayerID == "" {
			return malformed("playerId")
		}
		if len(m.State) == 0 {
			return malformed("state")
		}
	case TypeGarbage:
		if m.Lines <= 0 {
			return malformed("lines")
		}
	case TypeGarbageSend:
		if m.TargetID == "" {
			return malformed("targetId")
		}
		if m.Lines <= 0 {
			return malformed("lines")
		}
	case "":
		return fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
	return nil
}
