package core

import (
	"testing"
	"time"
)

func TestRectContains(t *testing.T) {
	r := NewRect(2, 3, 4, 5)

	tests := []struct {
		x, y     int
		expected bool
	}{
		{2, 3, true},
		{5, 7, true},
		{6, 3, false}, // right edge is exclusive
		{2, 8, false}, // bottom edge is exclusive
		{1, 4, false},
	}

	for _, tc := range tests {
		if got := r.Contains(tc.x, tc.y); got != tc.expected {
			t.Errorf("Contains(%d, %d) = %v, want %v", tc.x, tc.y, got, tc.expected)
		}
	}
	if r.Right() != 6 || r.Bottom() != 8 {
		t.Errorf("edges = (%d, %d), want (6, 8)", r.Right(), r.Bottom())
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, expected int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, tc := range tests {
		if got := Clamp(tc.val, tc.lo, tc.hi); got != tc.expected {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tc.val, tc.lo, tc.hi, got, tc.expected)
		}
	}
}

func TestTickInterval(t *testing.T) {
	if got := (RuntimeConfig{TickRate: 50}).TickInterval(); got != 20*time.Millisecond {
		t.Errorf("TickInterval(50) = %v", got)
	}
	if got := (RuntimeConfig{}).TickInterval(); got != time.Second/60 {
		t.Errorf("TickInterval(0) = %v, want 60Hz fallback", got)
	}
}

func TestActionIsGameplay(t *testing.T) {
	if !ActionHardDrop.IsGameplay() || !ActionMoveLeft.IsGameplay() {
		t.Error("piece actions should be gameplay")
	}
	if ActionPause.IsGameplay() || ActionQuit.IsGameplay() || ActionNone.IsGameplay() {
		t.Error("platform actions should not be gameplay")
	}
}
