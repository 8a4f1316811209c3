package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/nyatetris/internal/storage"
)

var (
	flagScoresLimit int
	flagMatches     bool
	flagClear       bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show high scores",
	Long: `Display the top solo scores, or the most recent matches with --matches.

Examples:
  nyatetris scores
  nyatetris scores --limit 20
  nyatetris scores --matches
  nyatetris scores --clear`,
	Args: cobra.NoArgs,
	RunE: runScores,
}

func init() {
	scoresCmd.Flags().IntVar(&flagScoresLimit, "limit", 10, "Number of entries to show")
	scoresCmd.Flags().BoolVar(&flagMatches, "matches", false, "Show recent matches instead of high scores")
	scoresCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete all solo high scores")
}

func runScores(_ *cobra.Command, _ []string) error {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		return fmt.Errorf("opening scores database: %w", err)
	}
	defer store.Close()

	switch {
	case flagClear:
		if err := store.ClearScores(storage.ModeSolo); err != nil {
			return err
		}
		fmt.Println("Solo high scores cleared.")
		return nil
	case flagMatches:
		return printMatches(store)
	}

	scores, err := store.TopScores(storage.ModeSolo, flagScoresLimit)
	if err != nil {
		return fmt.Errorf("retrieving scores: %w", err)
	}

	fmt.Println("High Scores - Solo marathon")
	fmt.Println()

	if len(scores) == 0 {
		fmt.Println("No scores recorded yet.")
		fmt.Println()
		fmt.Println("Play 'nyatetris play' to set the first high score!")
		return nil
	}

	// Print header
	fmt.Printf("  %-4s  %-16s  %-10s  %-5s  %-5s  %s\n", "Rank", "Player", "Score", "Lines", "Level", "Date")
	fmt.Printf("  %-4s  %-16s  %-10s  %-5s  %-5s  %s\n", "----", "------", "-----", "-----", "-----", "----")

	// Print scores
	for i, entry := range scores {
		dateStr := entry.CreatedAt.Format("2006-01-02 15:04")
		fmt.Printf("  %-4d  %-16s  %-10d  %-5d  %-5d  %s\n", i+1, entry.Player, entry.Score, entry.Lines, entry.Level, dateStr)
	}

	stats, err := store.Stats(storage.ModeSolo)
	if err == nil {
		fmt.Println()
		fmt.Printf("Best: %d  Games: %d  Average: %.0f  Most lines: %d\n",
			stats.HighScore, stats.GamesCount, stats.AvgScore, stats.MaxLines)
	}
	return nil
}

func printMatches(store *storage.Store) error {
	matches, err := store.RecentMatches(flagScoresLimit)
	if err != nil {
		return fmt.Errorf("retrieving matches: %w", err)
	}

	fmt.Println("Recent matches")
	fmt.Println()
	if len(matches) == 0 {
		fmt.Println("No matches recorded yet.")
		return nil
	}

	fmt.Printf("  %-16s  %-6s  %-5s  %-10s  %-5s  %-16s  %s\n", "Date", "Mode", "Place", "Score", "Lines", "Winner", "Result")
	for _, m := range matches {
		winner := m.Winner
		if winner == "" {
			winner = "-"
		}
		fmt.Printf("  %-16s  %-6s  %-5s  %-10d  %-5d  %-16s  %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"),
			m.Mode,
			fmt.Sprintf("%d/%d", m.Placement, m.Players),
			m.Score,
			m.Lines,
			winner,
			m.EndReason,
		)
	}
	return nil
}
