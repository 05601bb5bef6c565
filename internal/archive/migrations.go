package archive

import (
	"database/sql"
	"fmt"

	"streakoverlay/pkg/logger"
)

// Migration represents a schema migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered schema history. Append only.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_match_results",
		SQL: `
			CREATE TABLE IF NOT EXISTS match_results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				match_id INTEGER NOT NULL,
				opponent TEXT,
				result TEXT NOT NULL,
				map TEXT,
				diplomacy TEXT,
				started_at TIMESTAMP,
				duration_seconds INTEGER,
				recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_match_results_match_id ON match_results(match_id);
			CREATE INDEX IF NOT EXISTS idx_match_results_recorded_at ON match_results(recorded_at);
		`,
	},
	{
		Version: 2,
		Name:    "create_streak_snapshots",
		SQL: `
			CREATE TABLE IF NOT EXISTS streak_snapshots (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				wins INTEGER NOT NULL,
				losses INTEGER NOT NULL,
				session_active BOOLEAN NOT NULL,
				recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
}

// Migrator applies pending schema migrations
type Migrator struct {
	db     *sql.DB
	logger *logger.ColoredLogger
}

// NewMigrator creates a migrator
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger.DBLogger,
	}
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pending := 0
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w",
				migration.Version, migration.Name, err)
		}
		m.logger.Info("Applied migration %d: %s", migration.Version, migration.Name)
		pending++
	}

	if pending == 0 {
		m.logger.Debug("Archive schema is up to date (version %d)", currentVersion)
	}
	return nil
}

// GetCurrentVersion returns the current schema version
func (m *Migrator) GetCurrentVersion() (int, error) {
	if err := m.createMigrationsTable(); err != nil {
		return 0, err
	}
	return m.getCurrentVersion()
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.Exec(query)
	return err
}

// getCurrentVersion gets the latest applied migration version
func (m *Migrator) getCurrentVersion() (int, error) {
	query := "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"
	var version int
	err := m.db.QueryRow(query).Scan(&version)
	return version, err
}

// applyMigration runs one migration inside a transaction
func (m *Migrator) applyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	record := "INSERT INTO schema_migrations (version, name) VALUES (?, ?)"
	if _, err := tx.Exec(record, migration.Version, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
