// nyatetris is a terminal tetris with online rooms for any number of players.
//
// Usage:
//
//	nyatetris                - Start the menu
//	nyatetris play           - Start a solo marathon right away
//	nyatetris host           - Open a room and wait for players
//	nyatetris join <code>    - Join a room by its code
//	nyatetris rendezvous     - Run the room code lookup service
//	nyatetris serve          - Start SSH server for remote play
//	nyatetris scores         - Show high scores and recent matches
//
// Global flags:
//
//	--fps <rate>          - Set tick rate (default: from config)
//	--seed <value>        - Set RNG seed for reproducible solo games
//	--db <path>           - Set database path (default: ~/.nyatetris/scores.db)
//	--config <path>       - Path to a custom tetris.yaml
//	--difficulty <preset> - easy, normal, hard, fixed
//	--log-level <level>   - debug, info, warn, error
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagFPS        int
	flagSeed       int64
	flagDBPath     string
	flagConfig     string
	flagDifficulty string
	flagLogLevel   string
	flagName       string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nyatetris",
	Short: "nyatetris - tetris in your terminal, alone or with friends",
	Long: `nyatetris is a terminal tetris with online rooms. One player hosts a
room and shares its four-letter code; everyone else joins with it. Lines you
clear are sent to your opponents as garbage rows.

Available commands:
  play        - Solo marathon
  host        - Open a room
  join        - Join a room by code
  rendezvous  - Run the room code lookup service
  serve       - Start SSH server for remote play
  scores      - View high scores

Examples:
  nyatetris
  nyatetris play --difficulty hard
  nyatetris host --name ann
  nyatetris join K7QP --name bob
  nyatetris rendezvous --addr :7420
  nyatetris serve --ssh :2222`,
	SilenceUsage: true,
	RunE:         runMenu,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 0, "Tick rate (frames per second, 0 = from config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed for solo games (0 = random)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.nyatetris/scores.db", "Path to scores database")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to custom tetris config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard, fixed")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagName, "name", defaultName(), "Player name shown to opponents")

	// Add subcommands
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(rendezvousCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoresCmd)
}

func defaultName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "Player"
}
