// Package config provides YAML-based configuration loading and difficulty
// presets for the tetris engine, relay network and match coordinator.
package config

import (
	"fmt"
	"time"
)

// TetrisConfig contains all configuration for a tetris session.
type TetrisConfig struct {
	Board   BoardConfig   `yaml:"board"`
	Timing  TimingConfig  `yaml:"timing"`
	Network NetworkConfig `yaml:"network"`
	Match   MatchConfig   `yaml:"match"`
}

// BoardConfig defines playfield dimensions.
type BoardConfig struct {
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Preview int `yaml:"preview"` // Number of upcoming pieces shown
}

// TimingConfig defines gravity and lock timing.
type TimingConfig struct {
	BaseDrop      time.Duration `yaml:"base_drop"` // Drop interval at level 1
	MinDrop       time.Duration `yaml:"min_drop"`
	DropStep      time.Duration `yaml:"drop_step"` // Interval reduction per level
	LockDelay     time.Duration `yaml:"lock_delay"`
	LinesPerLevel int           `yaml:"lines_per_level"`
	StartLevel    int           `yaml:"start_level"`
}

// NetworkConfig defines relay and rendezvous parameters.
type NetworkConfig struct {
	RendezvousURL string        `yaml:"rendezvous_url"`
	ListenAddr    string        `yaml:"listen_addr"`    // Host-side websocket listener
	AdvertiseHost string        `yaml:"advertise_host"` // Host name joiners dial; empty = listener address
	AddressPrefix string        `yaml:"address_prefix"`
	JoinTimeout   time.Duration `yaml:"join_timeout"`
	JoinRetries   int           `yaml:"join_retries"`
	StateInterval time.Duration `yaml:"state_interval"` // Minimum spacing between state updates
}

// MatchConfig defines match lifecycle parameters.
type MatchConfig struct {
	TickRate   int `yaml:"tick_rate"`
	Countdown  int `yaml:"countdown"` // Seconds before pieces spawn in multiplayer
	MaxPlayers int `yaml:"max_players"`
}

// TickInterval returns the coordinator tick period.
func (m MatchConfig) TickInterval() time.Duration {
	if m.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(m.TickRate)
}

// Validate rejects configurations the engine cannot run with.
func (c TetrisConfig) Validate() error {
	switch {
	case c.Board.Width < 4:
		return fmt.Errorf("config: board width %d too small", c.Board.Width)
	case c.Board.Height < 4:
		return fmt.Errorf("config: board height %d too small", c.Board.Height)
	case c.Board.Preview < 0:
		return fmt.Errorf("config: negative preview")
	case c.Timing.BaseDrop <= 0 || c.Timing.MinDrop <= 0:
		return fmt.Errorf("config: drop intervals must be positive")
	case c.Timing.MinDrop > c.Timing.BaseDrop:
		return fmt.Errorf("config: min_drop %s exceeds base_drop %s", c.Timing.MinDrop, c.Timing.BaseDrop)
	case c.Timing.DropStep < 0:
		return fmt.Errorf("config: negative drop_step")
	case c.Timing.LockDelay <= 0:
		return fmt.Errorf("config: lock_delay must be positive")
	case c.Timing.LinesPerLevel <= 0:
		return fmt.Errorf("config: lines_per_level must be positive")
	case c.Timing.StartLevel < 1:
		return fmt.Errorf("config: start_level must be at least 1")
	case c.Network.JoinTimeout <= 0:
		return fmt.Errorf("config: join_timeout must be positive")
	case c.Network.JoinRetries < 0:
		return fmt.Errorf("config: negative join_retries")
	case c.Network.StateInterval <= 0:
		return fmt.Errorf("config: state_interval must be positive")
	case c.Match.TickRate <= 0:
		return fmt.Errorf("config: tick_rate must be positive")
	case c.Match.Countdown < 0:
		return fmt.Errorf("config: negative countdown")
	case c.Match.MaxPlayers < 2:
		return fmt.Errorf("config: max_players must be at least 2")
	}
	return nil
}

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
	DifficultyFixed  DifficultyPreset = "fixed"
)

// ParseDifficulty validates a preset name. Empty means normal.
func ParseDifficulty(s string) (DifficultyPreset, error) {
	switch p := DifficultyPreset(s); p {
	case "":
		return DifficultyNormal, nil
	case DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyFixed:
		return p, nil
	default:
		return "", fmt.Errorf("config: unknown difficulty %q (easy, normal, hard, fixed)", s)
	}
}

// StartLevelForPreset returns the level a preset starts the game at.
func StartLevelForPreset(preset DifficultyPreset) int {
	switch preset {
	case DifficultyHard:
		return 5
	default:
		return 1
	}
}

// IsFixedPreset returns true if the preset disables gravity speed-up.
func IsFixedPreset(preset DifficultyPreset) bool {
	return preset == DifficultyFixed
}
