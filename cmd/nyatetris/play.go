package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/nyatetris/internal/platform/tui"
)

const controls = `Controls:
  Left/Right, A/D - Move
  Up, X, W        - Rotate clockwise
  Z               - Rotate counter-clockwise
  Down, S         - Soft drop
  Space           - Hard drop
  C               - Hold
  P               - Pause (solo only)
  Esc             - Leave the match
  Q/Ctrl+C        - Quit`

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Start the menu",
	Args:  cobra.NoArgs,
	RunE:  runMenu,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a solo marathon",
	Long: `Start a solo marathon right away. The game ends when the stack tops out;
finished games go on the high score table.

` + controls + `

Difficulty options:
  easy   - Longer lock delay
  normal - Default timing
  hard   - Start at level 5 with a shorter lock delay
  fixed  - Gravity never speeds up

Examples:
  nyatetris play
  nyatetris play --difficulty hard
  nyatetris play --seed 42
  nyatetris play --config ./my-tetris.yaml`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runTUI(tui.LaunchSolo, "")
	},
}

func runMenu(_ *cobra.Command, _ []string) error {
	return runTUI(tui.LaunchMenu, "")
}
