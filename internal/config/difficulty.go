package config

import "time"

// ApplyTetrisPreset modifies the timing section based on a difficulty preset.
func ApplyTetrisPreset(cfg *TetrisConfig, preset DifficultyPreset) {
	cfg.Timing.StartLevel = StartLevelForPreset(preset)
	switch preset {
	case DifficultyEasy:
		cfg.Timing.LockDelay = cfg.Timing.LockDelay * 3 / 2
	case DifficultyHard:
		cfg.Timing.LockDelay = max(cfg.Timing.LockDelay*3/4, 100*time.Millisecond)
	case DifficultyFixed:
		cfg.Timing.DropStep = 0
	}
}

// DropInterval returns the gravity period for a level: the base interval
// shortened by one step per level above the first, never below the minimum.
func (t TimingConfig) DropInterval(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	d := t.BaseDrop - time.Duration(level-1)*t.DropStep
	if d < t.MinDrop {
		return t.MinDrop
	}
	return d
}
