package relay

// Event is emitted by a Node on its Events channel.
type Event interface {
	relayEvent()
}

// DirectoryEvent carries the directory after a bulk playerList update.
type DirectoryEvent struct {
	Players []PlayerInfo
}

// PlayerJoinedEvent is emitted when a player enters the directory.
type PlayerJoinedEvent struct {
	Player PlayerInfo
}

// PlayerLeftEvent is emitted when a player leaves the directory. WasHost
// means the room is gone.
type PlayerLeftEvent struct {
	PlayerID string
	WasHost  bool
}

// GameStartedEvent carries the shared seed, on the host and every joiner.
type GameStartedEvent struct {
	Seed int64
}

// StateEvent carries a remote player's session snapshot.
type StateEvent struct {
	PlayerID string
	State    []byte
}

// GarbageEvent asks the local session to take garbage rows.
type GarbageEvent struct {
	Lines int
}

// GameOverEvent reports that a remote player's board topped out.
type GameOverEvent struct {
	PlayerID string
}

// RoomFullEvent reaches a joiner the host turned away. The connection is
// already closed and no PlayerLeftEvent follows.
type RoomFullEvent struct{}

func (DirectoryEvent) relayEvent()    {}
func (PlayerJoinedEvent) relayEvent() {}
func (PlayerLeftEvent) relayEvent()   {}
func (GameStartedEvent) relayEvent()  {}
func (StateEvent) relayEvent()        {}
func (GarbageEvent) relayEvent()      {}
func (GameOverEvent) relayEvent()     {}
func (RoomFullEvent) relayEvent()     {}
