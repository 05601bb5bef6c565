package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"streakoverlay/pkg/logger"
	"streakoverlay/pkg/protocol"
)

// Store is a write-mostly archive of finished matches and streak snapshots.
// The streak engine never reads from it; history always comes from the feed.
type Store struct {
	db     *sql.DB
	logger *logger.ColoredLogger
}

// ResultRow is one archived match result
type ResultRow struct {
	MatchID     int64     `json:"match_id"`
	Opponent    string    `json:"opponent"`
	Result      string    `json:"result"`
	Map         string    `json:"map"`
	Diplomacy   string    `json:"diplomacy"`
	StartedAt   time.Time `json:"started_at"`
	DurationSec int       `json:"duration_seconds"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Open opens (or creates) the archive database at path and brings its schema
// up to date
func Open(path string) (*Store, error) {
	log := logger.DBLogger

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping archive: %w", err)
	}

	if err := NewMigrator(db).Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}

	log.Info("Archive open: %s", path)
	return &Store{db: db, logger: log}, nil
}

// Close closes the archive
func (s *Store) Close() error {
	if s.db != nil {
		s.logger.Info("Closing archive")
		return s.db.Close()
	}
	return nil
}

// RecordResult archives one finished match
func (s *Store) RecordResult(match *protocol.Match, opponent string, result string) error {
	query := `
		INSERT INTO match_results (match_id, opponent, result, map, diplomacy, started_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var startedAt interface{}
	if match.HasTimestamps() {
		startedAt = match.StartTime()
	}

	_, err := s.db.Exec(query,
		match.ID, opponent, result, match.RMS, match.Diplomacy,
		startedAt, int(match.Duration))
	if err != nil {
		return fmt.Errorf("failed to record match result: %w", err)
	}
	return nil
}

// RecordSnapshot archives the streak score after a completed match
func (s *Store) RecordSnapshot(wins, losses int, sessionActive bool) error {
	query := "INSERT INTO streak_snapshots (wins, losses, session_active) VALUES (?, ?, ?)"
	if _, err := s.db.Exec(query, wins, losses, sessionActive); err != nil {
		return fmt.Errorf("failed to record streak snapshot: %w", err)
	}
	return nil
}

// RecentResults returns the newest archived results, most recent first
func (s *Store) RecentResults(limit int) ([]ResultRow, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT match_id, opponent, result, map, diplomacy,
		       started_at, duration_seconds, recorded_at
		FROM match_results
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]ResultRow, 0, limit)
	for rows.Next() {
		var row ResultRow
		var startedAt sql.NullTime
		if err := rows.Scan(&row.MatchID, &row.Opponent, &row.Result, &row.Map,
			&row.Diplomacy, &startedAt, &row.DurationSec, &row.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		// Rows archived without feed timestamps fall back to insertion time
		if startedAt.Valid {
			row.StartedAt = startedAt.Time
		} else {
			row.StartedAt = row.RecordedAt
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// Health checks the archive connection
func (s *Store) Health() error {
	return s.db.Ping()
}
