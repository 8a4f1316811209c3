// Package storage provides SQLite-based persistence for scores and match
// history. Uses the pure-Go modernc.org/sqlite driver to avoid CGO.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/nyatetris/internal/multiplayer"
)

// ModeSolo is the score board key for single-player games.
const ModeSolo = "Solo"

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// ScoreEntry is one finished game on a score board.
type ScoreEntry struct {
	ID        int64
	Mode      string
	Player    string
	Score     int
	Lines     int
	Level     int
	Seed      int64
	CreatedAt time.Time
}

// MatchRecord is the local player's result of one match.
type MatchRecord struct {
	ID        int64
	MatchID   string
	Mode      string
	Player    string
	Score     int
	Lines     int
	Level     int
	Placement int
	Players   int
	Winner    string // Empty if nobody won
	EndReason string
	Duration  int // Seconds
	Seed      int64
	CreatedAt time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode TEXT NOT NULL,
			player TEXT NOT NULL,
			score INTEGER NOT NULL,
			lines INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			seed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scores_top ON scores(mode, score DESC);

		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL,
			player TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			lines INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			placement INTEGER NOT NULL DEFAULT 0,
			players INTEGER NOT NULL DEFAULT 1,
			winner TEXT,
			end_reason TEXT NOT NULL,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			seed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// parseTime handles both time.Time and the string form SQLite returns
// for CURRENT_TIMESTAMP.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// SaveScore records a finished game. Returns the ID of the inserted record.
func (s *Store) SaveScore(e ScoreEntry) (int64, error) {
	if e.Mode == "" {
		e.Mode = ModeSolo
	}
	result, err := s.db.Exec(
		"INSERT INTO scores (mode, player, score, lines, level, seed) VALUES (?, ?, ?, ?, ?, ?)",
		e.Mode, e.Player, e.Score, e.Lines, e.Level, e.Seed,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// TopScores retrieves the top N scores for a mode, highest first.
func (s *Store) TopScores(mode string, limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, mode, player, score, lines, level, seed, created_at
		 FROM scores
		 WHERE mode = ?
		 ORDER BY score DESC, id ASC
		 LIMIT ?`,
		mode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.Mode, &e.Player, &e.Score, &e.Lines, &e.Level, &e.Seed, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// HighScore returns the highest score for a mode, or 0 if there is none.
func (s *Store) HighScore(mode string) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(score) FROM scores WHERE mode = ?",
		mode,
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}
	if !score.Valid {
		return 0, nil
	}
	return int(score.Int64), nil
}

// ClearScores deletes all scores for a mode.
func (s *Store) ClearScores(mode string) error {
	_, err := s.db.Exec("DELETE FROM scores WHERE mode = ?", mode)
	if err != nil {
		return fmt.Errorf("storage: cannot clear scores: %w", err)
	}
	return nil
}

// SaveMatch records a match result. Returns the ID of the inserted record.
func (s *Store) SaveMatch(m MatchRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO matches
		 (match_id, mode, player, score, lines, level, placement, players, winner, end_reason, duration_secs, seed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MatchID,
		m.Mode,
		m.Player,
		m.Score,
		m.Lines,
		m.Level,
		m.Placement,
		m.Players,
		m.Winner,
		m.EndReason,
		m.Duration,
		m.Seed,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// RecentMatches returns the last matches played, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, match_id, mode, player, score, lines, level, placement, players,
		        winner, end_reason, duration_secs, seed, created_at
		 FROM matches
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var results []MatchRecord
	for rows.Next() {
		var m MatchRecord
		var winner sql.NullString
		var createdAt any
		if err := rows.Scan(
			&m.ID, &m.MatchID, &m.Mode, &m.Player, &m.Score, &m.Lines, &m.Level,
			&m.Placement, &m.Players, &winner, &m.EndReason, &m.Duration, &m.Seed, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan match: %w", err)
		}
		m.Winner = winner.String
		m.CreatedAt = parseTime(createdAt)
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return results, nil
}

// SaveMatchResult implements multiplayer.MatchResultSaver. Every match is
// recorded; solo games also go on the score board unless the player left
// them midway.
func (s *Store) SaveMatchResult(data multiplayer.MatchResultData) error {
	_, err := s.SaveMatch(MatchRecord{
		MatchID:   data.MatchID,
		Mode:      data.Mode,
		Player:    data.PlayerName,
		Score:     data.Score,
		Lines:     data.Lines,
		Level:     data.Level,
		Placement: data.Placement,
		Players:   data.Players,
		Winner:    data.Winner,
		EndReason: data.EndReason,
		Duration:  data.DurationSecs,
		Seed:      data.Seed,
	})
	if err != nil {
		return err
	}
	if data.Mode != ModeSolo || data.EndReason == multiplayer.MatchEndReasonCancelled.String() {
		return nil
	}
	_, err = s.SaveScore(ScoreEntry{
		Mode:   ModeSolo,
		Player: data.PlayerName,
		Score:  data.Score,
		Lines:  data.Lines,
		Level:  data.Level,
		Seed:   data.Seed,
	})
	return err
}

var _ multiplayer.MatchResultSaver = (*Store)(nil)

// Stats aggregates a score board.
type Stats struct {
	Mode       string
	GamesCount int
	HighScore  int
	AvgScore   float64
	MaxLines   int
	LastPlayed time.Time
}

// Stats returns aggregates for a mode. GamesCount is 0 if nothing was
// recorded.
func (s *Store) Stats(mode string) (*Stats, error) {
	var (
		count    int
		high     sql.NullInt64
		avg      sql.NullFloat64
		maxLines sql.NullInt64
		last     any
	)
	err := s.db.QueryRow(
		`SELECT COUNT(*), MAX(score), AVG(score), MAX(lines), MAX(created_at)
		 FROM scores
		 WHERE mode = ?`,
		mode,
	).Scan(&count, &high, &avg, &maxLines, &last)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query stats: %w", err)
	}
	return &Stats{
		Mode:       mode,
		GamesCount: count,
		HighScore:  int(high.Int64),
		AvgScore:   avg.Float64,
		MaxLines:   int(maxLines.Int64),
		LastPlayed: parseTime(last),
	}, nil
}
