package archive

import (
	"path/filepath"
	"testing"

	"streakoverlay/pkg/protocol"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMigrationsApplyOnce(t *testing.T) {
	store := openTestStore(t)

	version, err := NewMigrator(store.db).GetCurrentVersion()
	if err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if want := migrations[len(migrations)-1].Version; version != want {
		t.Errorf("Expected schema version %d, got %d", want, version)
	}

	// Re-running the migrator against an up-to-date schema must be a no-op
	if err := NewMigrator(store.db).Migrate(); err != nil {
		t.Errorf("Re-migration failed: %v", err)
	}
}

func TestRecordAndReadResults(t *testing.T) {
	store := openTestStore(t)

	matches := []*protocol.Match{
		{ID: 10, Status: protocol.MatchComplete, Started: 1000, Duration: 600, RMS: "Arabia", Diplomacy: "1v1"},
		{ID: 11, Status: protocol.MatchComplete, Started: 1700, Duration: 900, RMS: "Arena", Diplomacy: "1v1"},
	}
	if err := store.RecordResult(matches[0], "Viper", protocol.ResultLabelWin); err != nil {
		t.Fatalf("Failed to record result: %v", err)
	}
	if err := store.RecordResult(matches[1], "Liereyy", protocol.ResultLabelLoss); err != nil {
		t.Fatalf("Failed to record result: %v", err)
	}

	results, err := store.RecentResults(10)
	if err != nil {
		t.Fatalf("Failed to read results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	// Most recent first
	if results[0].MatchID != 11 || results[0].Result != protocol.ResultLabelLoss {
		t.Errorf("Unexpected newest result: %+v", results[0])
	}
	if results[1].Opponent != "Viper" || results[1].Map != "Arabia" {
		t.Errorf("Unexpected oldest result: %+v", results[1])
	}
	for _, row := range results {
		if row.StartedAt.IsZero() || row.RecordedAt.IsZero() {
			t.Errorf("Timestamps must round-trip, got %+v", row)
		}
	}
}

func TestRecentResultsWithoutFeedTimestamps(t *testing.T) {
	store := openTestStore(t)

	// A match the feed never timestamped archives with a NULL started_at
	match := &protocol.Match{ID: 12, Status: protocol.MatchComplete, RMS: "Nomad", Diplomacy: "1v1"}
	if err := store.RecordResult(match, "TheMax", protocol.ResultLabelWin); err != nil {
		t.Fatalf("Failed to record result: %v", err)
	}

	results, err := store.RecentResults(10)
	if err != nil {
		t.Fatalf("Failed to read results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].StartedAt.IsZero() {
		t.Error("StartedAt should fall back to the insertion time")
	}
	if !results[0].StartedAt.Equal(results[0].RecordedAt) {
		t.Errorf("Fallback should equal recorded_at, got %v vs %v",
			results[0].StartedAt, results[0].RecordedAt)
	}
}

func TestRecordSnapshot(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordSnapshot(3, 1, true); err != nil {
		t.Fatalf("Failed to record snapshot: %v", err)
	}

	var wins, losses int
	var active bool
	row := store.db.QueryRow("SELECT wins, losses, session_active FROM streak_snapshots")
	if err := row.Scan(&wins, &losses, &active); err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if wins != 3 || losses != 1 || !active {
		t.Errorf("Expected 3-1 active, got %d-%d active=%v", wins, losses, active)
	}
}
