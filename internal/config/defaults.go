package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/tetris.yaml
var defaultTetrisYAML []byte

// DefaultTetrisConfig returns the default tetris configuration.
func DefaultTetrisConfig() TetrisConfig {
	return TetrisConfig{
		Board: BoardConfig{
			Width:   10,
			Height:  20,
			Preview: 3,
		},
		Timing: TimingConfig{
			BaseDrop:      1000 * time.Millisecond,
			MinDrop:       100 * time.Millisecond,
			DropStep:      80 * time.Millisecond,
			LockDelay:     500 * time.Millisecond,
			LinesPerLevel: 10,
			StartLevel:    1,
		},
		Network: NetworkConfig{
			RendezvousURL: "http://localhost:7420",
			ListenAddr:    ":0",
			AddressPrefix: "nyatetris-",
			JoinTimeout:   10 * time.Second,
			JoinRetries:   2,
			StateInterval: 50 * time.Millisecond,
		},
		Match: MatchConfig{
			TickRate:   60,
			Countdown:  3,
			MaxPlayers: 8,
		},
	}
}
