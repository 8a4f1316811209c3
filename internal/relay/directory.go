package relay

import "sort"

// Directory maps peer ids to player info. It is owned by one node loop
// and never shared, so it carries no lock.
type Directory struct {
	players map[string]PlayerInfo
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{players: make(map[string]PlayerInfo)}
}

// Add inserts or replaces an entry.
func (d *Directory) Add(p PlayerInfo) {
	d.players[p.ID] = p
}

// Remove deletes an entry and returns what was there.
func (d *Directory) Remove(id string) (PlayerInfo, bool) {
	p, ok := d.players[id]
	delete(d.players, id)
	return p, ok
}

// Replace loads a full snapshot, keeping nothing from before.
func (d *Directory) Replace(players []PlayerInfo) {
	clear(d.players)
	for _, p := range players {
		if p.ID != "" {
			d.players[p.ID] = p
		}
	}
}

// Get looks up one entry.
func (d *Directory) Get(id string) (PlayerInfo, bool) {
	p, ok := d.players[id]
	return p, ok
}

// Len is the number of players, the host included.
func (d *Directory) Len() int {
	return len(d.players)
}

// List returns every entry, host first, then by name and id.
func (d *Directory) List() []PlayerInfo {
	out := make([]PlayerInfo, 0, len(d.players))
	for _, p := range d.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsHost != out[j].IsHost {
			return out[i].IsHost
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
