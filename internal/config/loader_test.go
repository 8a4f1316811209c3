package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTetrisConfigIsValid(t *testing.T) {
	if err := DefaultTetrisConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestEmbeddedDefaultsMatchHardcoded(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadTetris("")
	if err != nil {
		t.Fatalf("LoadTetris: %v", err)
	}
	if cfg != DefaultTetrisConfig() {
		t.Errorf("embedded defaults = %+v, want %+v", cfg, DefaultTetrisConfig())
	}
}

func TestLoadTetrisCustomPathOverridesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tetris.yaml")
	data := []byte("timing:\n  lock_delay: 750ms\nboard:\n  height: 24\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTetris(path)
	if err != nil {
		t.Fatalf("LoadTetris: %v", err)
	}
	if cfg.Timing.LockDelay != 750*time.Millisecond {
		t.Errorf("lock delay = %v, want 750ms", cfg.Timing.LockDelay)
	}
	if cfg.Board.Height != 24 {
		t.Errorf("height = %d, want 24", cfg.Board.Height)
	}
	if cfg.Board.Width != 10 {
		t.Errorf("width = %d, want default 10", cfg.Board.Width)
	}
}

func TestLoadTetrisCustomPathErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadTetris(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("board: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTetris(bad); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("board:\n  width: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTetris(invalid); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadTetrisUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".nyatetris", "configs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tetris.yaml"), []byte("match:\n  countdown: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTetris("")
	if err != nil {
		t.Fatalf("LoadTetris: %v", err)
	}
	if cfg.Match.Countdown != 5 {
		t.Errorf("countdown = %d, want 5", cfg.Match.Countdown)
	}
}

func TestDropInterval(t *testing.T) {
	timing := DefaultTetrisConfig().Timing
	tests := []struct {
		level int
		want  time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 920 * time.Millisecond},
		{5, 680 * time.Millisecond},
		{12, 120 * time.Millisecond},
		{13, 100 * time.Millisecond},
		{30, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := timing.DropInterval(tt.level); got != tt.want {
			t.Errorf("DropInterval(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestApplyTetrisPreset(t *testing.T) {
	tests := []struct {
		preset     DifficultyPreset
		startLevel int
		lockDelay  time.Duration
		dropStep   time.Duration
	}{
		{DifficultyEasy, 1, 750 * time.Millisecond, 80 * time.Millisecond},
		{DifficultyNormal, 1, 500 * time.Millisecond, 80 * time.Millisecond},
		{DifficultyHard, 5, 375 * time.Millisecond, 80 * time.Millisecond},
		{DifficultyFixed, 1, 500 * time.Millisecond, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			cfg := DefaultTetrisConfig()
			ApplyTetrisPreset(&cfg, tt.preset)
			if cfg.Timing.StartLevel != tt.startLevel {
				t.Errorf("start level = %d, want %d", cfg.Timing.StartLevel, tt.startLevel)
			}
			if cfg.Timing.LockDelay != tt.lockDelay {
				t.Errorf("lock delay = %v, want %v", cfg.Timing.LockDelay, tt.lockDelay)
			}
			if cfg.Timing.DropStep != tt.dropStep {
				t.Errorf("drop step = %v, want %v", cfg.Timing.DropStep, tt.dropStep)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset produced invalid config: %v", err)
			}
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	if p, err := ParseDifficulty(""); err != nil || p != DifficultyNormal {
		t.Errorf("ParseDifficulty(\"\") = %q, %v", p, err)
	}
	if p, err := ParseDifficulty("hard"); err != nil || p != DifficultyHard {
		t.Errorf("ParseDifficulty(hard) = %q, %v", p, err)
	}
	if _, err := ParseDifficulty("insane"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestMatchTickInterval(t *testing.T) {
	if got := (MatchConfig{TickRate: 50}).TickInterval(); got != 20*time.Millisecond {
		t.Errorf("TickInterval = %v, want 20ms", got)
	}
	if got := (MatchConfig{}).TickInterval(); got != time.Second/60 {
		t.Errorf("zero TickInterval = %v, want 1/60s", got)
	}
}
