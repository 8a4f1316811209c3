package tui

import (
	"fmt"

	"github.com/vovakirdan/nyatetris/internal/core"
	"github.com/vovakirdan/nyatetris/internal/games/tetris"
	"github.com/vovakirdan/nyatetris/internal/multiplayer"
)

const boardGap = 2 // Columns between boards

// layoutBoards draws the local board at full size followed by the
// opponents' compact boards, wrapping onto a new band when a board would
// run past the right edge. Returns the rows used.
func layoutBoards(dst *core.Screen, boards []multiplayer.Board) int {
	x, y, bandH := 0, 0, 0
	for _, b := range boards {
		s := b.View.Snapshot
		w, h := tetris.ViewSize(s.Width(), s.Height(), b.View.Compact)
		if x > 0 && x+w > dst.Width() {
			x = 0
			y += bandH + 1
			bandH = 0
		}
		tetris.Render(dst, x, y, b.View)
		x += w + boardGap
		bandH = max(bandH, h)
	}
	return y + bandH
}

// drawBanner writes text centered on row y inside a box.
func drawBanner(dst *core.Screen, y int, text string) {
	w := len([]rune(text)) + 4
	x := core.Clamp((dst.Width()-w)/2, 0, dst.Width())
	r := core.NewRect(x, y, w, 3)
	for cx := r.X + 1; cx < r.Right()-1; cx++ {
		dst.Set(cx, y+1, ' ')
	}
	dst.DrawBox(r)
	dst.DrawText(x+2, y+1, text)
}

// countdownText is the banner shown before pieces spawn.
func countdownText(remaining int) string {
	if remaining <= 0 {
		return "GO!"
	}
	return fmt.Sprintf("%d", remaining)
}
