package multiplayer

import (
	"cmp"
	"slices"
	"time"

	"github.com/vovakirdan/nyatetris/internal/games/tetris"
	"github.com/vovakirdan/nyatetris/internal/relay"
)

// Attack is garbage owed to one opponent.
type Attack struct {
	Target string
	Lines  int
}

type player struct {
	info     relay.PlayerInfo
	snapshot tetris.Snapshot
	over     bool
	gone     bool
}

// Arena is the registry of one match: the local game plus a mirror of every
// remote board, keyed by player id. Remote boards are only ever replaced
// wholesale from their owner's snapshots.
type Arena struct {
	id      MatchID
	mode    MatchMode
	seed    int64
	localID string
	game    *tetris.Game
	started time.Time

	players map[string]*player
	order   []string // Local first, then directory order

	remoteVersion uint64
}

// NewArena creates the arena for a match. roster is the room directory;
// the local player is added if it is missing.
func NewArena(id MatchID, mode MatchMode, seed int64, local relay.PlayerInfo, game *tetris.Game, roster []relay.PlayerInfo) *Arena {
	a := &Arena{
		id:      id,
		mode:    mode,
		seed:    seed,
		localID: local.ID,
		game:    game,
		players: make(map[string]*player),
	}
	blank := tetris.Snapshot{
		Board:  tetris.NewBoard(game.Board().Width(), game.Board().Height()).Rows(),
		GhostY: -1,
		Level:  1,
	}

	a.add(local, blank)
	for _, info := range roster {
		if info.ID == local.ID {
			a.players[local.ID].info = info
			continue
		}
		a.add(info, blank)
	}
	return a
}

func (a *Arena) add(info relay.PlayerInfo, blank tetris.Snapshot) {
	if _, ok := a.players[info.ID]; ok {
		return
	}
	a.players[info.ID] = &player{info: info, snapshot: blank}
	a.order = append(a.order, info.ID)
}

// Accessors for the match parameters.
func (a *Arena) ID() MatchID         { return a.id }
func (a *Arena) Mode() MatchMode     { return a.mode }
func (a *Arena) Seed() int64         { return a.seed }
func (a *Arena) LocalID() string     { return a.localID }
func (a *Arena) Game() *tetris.Game  { return a.game }
func (a *Arena) Started() time.Time  { return a.started }
func (a *Arena) Size() int           { return len(a.order) }
func (a *Arena) start(now time.Time) { a.started = now }

// Version changes whenever any board in the arena changes.
func (a *Arena) Version() uint64 {
	return a.game.Version() + a.remoteVersion
}

// HostID returns the room host's id, empty in solo matches.
func (a *Arena) HostID() string {
	for _, id := range a.order {
		if a.players[id].info.IsHost {
			return id
		}
	}
	return ""
}

// Has reports whether id takes part in the match.
func (a *Arena) Has(id string) bool {
	_, ok := a.players[id]
	return ok
}

// Name returns a player's display name.
func (a *Arena) Name(id string) string {
	if p, ok := a.players[id]; ok {
		return p.info.Name
	}
	return ""
}

func (a *Arena) isOver(id string) bool {
	if id == a.localID {
		return a.game.IsGameOver() || a.players[id].gone
	}
	p := a.players[id]
	return p.over || p.gone
}

// Alive lists the players whose boards are still in play.
func (a *Arena) Alive() []string {
	var out []string
	for _, id := range a.order {
		if !a.isOver(id) {
			out = append(out, id)
		}
	}
	return out
}

// Opponents lists the live players other than source.
func (a *Arena) Opponents(source string) []string {
	var out []string
	for _, id := range a.Alive() {
		if id != source {
			out = append(out, id)
		}
	}
	return out
}

// Attacks resolves a line clear by source into garbage for every live
// opponent.
func (a *Arena) Attacks(source string, cleared int) []Attack {
	lines := AttackLines(cleared)
	if lines == 0 {
		return nil
	}
	var out []Attack
	for _, id := range a.Opponents(source) {
		out = append(out, Attack{Target: id, Lines: lines})
	}
	return out
}

// UpdateRemote replaces a remote board with its owner's snapshot. Returns
// true if the snapshot is the first to report game over.
func (a *Arena) UpdateRemote(id string, s tetris.Snapshot) bool {
	p, ok := a.players[id]
	if !ok || id == a.localID || p.gone {
		return false
	}
	p.snapshot = s
	a.remoteVersion++
	if s.GameOver && !p.over {
		p.over = true
		return true
	}
	return false
}

// MarkGameOver records that a remote board topped out. Returns true the
// first time.
func (a *Arena) MarkGameOver(id string) bool {
	p, ok := a.players[id]
	if !ok || id == a.localID || p.over || p.gone {
		return false
	}
	p.over = true
	a.remoteVersion++
	return true
}

// Disconnect eliminates a player that left the room. Returns true if the
// player was still alive.
func (a *Arena) Disconnect(id string) bool {
	p, ok := a.players[id]
	if !ok || p.gone {
		return false
	}
	wasAlive := !a.isOver(id)
	p.gone = true
	a.remoteVersion++
	return wasAlive
}

// Outcome reports whether the match is decided. A solo match ends when its
// board tops out; an online one when at most one board is alive, that
// board's owner being the winner.
func (a *Arena) Outcome() (ended bool, winner string) {
	alive := a.Alive()
	if a.mode == MatchModeSolo || len(a.order) < 2 {
		return len(alive) == 0, ""
	}
	switch len(alive) {
	case 0:
		return true, ""
	case 1:
		return true, alive[0]
	default:
		return false, ""
	}
}

func (a *Arena) snapshotOf(id string) tetris.Snapshot {
	if id == a.localID {
		return a.game.Snapshot()
	}
	return a.players[id].snapshot
}

// Results returns the standings ordered by score, highest first.
func (a *Arena) Results(winner string) []Result {
	out := make([]Result, 0, len(a.order))
	for _, id := range a.order {
		p := a.players[id]
		s := a.snapshotOf(id)
		out = append(out, Result{
			PlayerID:     id,
			Name:         p.info.Name,
			Score:        s.Score,
			Lines:        s.Lines,
			Level:        s.Level,
			Winner:       id == winner,
			Disconnected: p.gone,
		})
	}
	slices.SortStableFunc(out, func(x, y Result) int {
		return cmp.Compare(y.Score, x.Score)
	})
	return out
}

// Boards returns every board for display, local first. Remote boards are
// drawn without their side panel.
func (a *Arena) Boards(winner string) []Board {
	out := make([]Board, 0, len(a.order))
	for _, id := range a.order {
		p := a.players[id]
		out = append(out, Board{
			PlayerID: id,
			Local:    id == a.localID,
			View: tetris.View{
				Name:       p.info.Name,
				Snapshot:   a.snapshotOf(id),
				Eliminated: a.mode == MatchModeOnline && a.isOver(id),
				Winner:     winner != "" && id == winner,
				Compact:    id != a.localID,
			},
		})
	}
	return out
}
