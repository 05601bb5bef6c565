package streak

import (
	"testing"
	"time"

	"streakoverlay/pkg/protocol"
)

// Test match builders. Times are epoch seconds, matching the feed.

func winMatch(id int64, started, duration float64) protocol.Match {
	return protocol.Match{
		ID:       id,
		Status:   protocol.MatchComplete,
		Started:  started,
		Duration: duration,
		Players: []protocol.Player{
			{ID: testProfileID, Winner: boolPtr(true)},
			{ID: 222, Winner: boolPtr(false)},
		},
	}
}

func lossMatch(id int64, started, duration float64) protocol.Match {
	m := winMatch(id, started, duration)
	m.Players[0].Winner = boolPtr(false)
	m.Players[1].Winner = boolPtr(true)
	return m
}

func unknownMatch(id int64, started, duration float64) protocol.Match {
	return protocol.Match{
		ID:       id,
		Status:   protocol.MatchComplete,
		Started:  started,
		Duration: duration,
		Players: []protocol.Player{
			{ID: testProfileID},
			{ID: 222},
		},
	}
}

func testConfig() Config {
	return Config{ProfileID: testProfileID}
}

// TestComputeSingleWin is the basic accumulation scenario: one complete
// match with an explicit winner flag
func TestComputeSingleWin(t *testing.T) {
	matches := []protocol.Match{
		{
			ID:       1,
			Status:   protocol.MatchComplete,
			Started:  1000,
			Duration: 600,
			Players:  []protocol.Player{{ID: testProfileID, Winner: boolPtr(true)}},
		},
	}
	now := time.Unix(1700, 0)

	tally := testConfig().Compute(matches, nil, now)
	if tally.Wins != 1 || tally.Losses != 0 {
		t.Errorf("Expected 1-0, got %d-%d", tally.Wins, tally.Losses)
	}
	if !tally.SessionActive {
		t.Error("Session should be active right after the match")
	}
	if got := tally.LastFinish; !got.Equal(time.Unix(1600, 0)) {
		t.Errorf("Expected last finish at 1600s, got %v", got)
	}
}

// TestComputeSessionContinuity counts every conclusive match while the
// inter-match pause stays within the session gap
func TestComputeSessionContinuity(t *testing.T) {
	// Three back-to-back matches, most recent first
	matches := []protocol.Match{
		winMatch(3, 108000, 1000),
		lossMatch(2, 105000, 1200),
		winMatch(1, 102000, 900),
	}
	now := time.Unix(109100, 0)

	tally := testConfig().Compute(matches, nil, now)
	if tally.Wins != 2 || tally.Losses != 1 {
		t.Errorf("Expected 2-1, got %d-%d", tally.Wins, tally.Losses)
	}
}

// TestComputeSessionCut stops the scan at the first pause beyond the gap;
// nothing older is counted
func TestComputeSessionCut(t *testing.T) {
	// Most recent match lost; the older win ended 3 hours before
	matches := []protocol.Match{
		{
			ID:        2,
			Status:    protocol.MatchComplete,
			Started:   200000,
			Duration:  1000,
			Diplomacy: "1v1",
			Players:   []protocol.Player{{ID: testProfileID, Number: 1}, {ID: 222, Number: 2}},
			Teams: []protocol.Team{
				{Members: []int{1}, Winner: boolPtr(false)},
				{Members: []int{2}, Winner: boolPtr(true)},
			},
		},
		winMatch(1, 188600, 600),
	}
	now := time.Unix(201100, 0)

	tally := testConfig().Compute(matches, nil, now)
	if tally.Wins != 0 || tally.Losses != 1 {
		t.Errorf("Expected 0-1 after session cut, got %d-%d", tally.Wins, tally.Losses)
	}
}

// TestComputeGapBoundary verifies the strict greater-than comparison: a
// pause of exactly the session gap does not break the streak, one
// millisecond more does
func TestComputeGapBoundary(t *testing.T) {
	// Newer match starts at 100000s; its finish is at 101000s. The older
	// match starts exactly two hours before that finish.
	newer := winMatch(2, 100000, 1000)
	now := time.Unix(101100, 0)

	exact := []protocol.Match{newer, winMatch(1, 101000-7200, 600)}
	tally := testConfig().Compute(exact, nil, now)
	if tally.Wins != 2 {
		t.Errorf("Gap of exactly 2h must not break the streak: got %d wins, want 2", tally.Wins)
	}

	over := []protocol.Match{newer, winMatch(1, 101000-7200-0.001, 600)}
	tally = testConfig().Compute(over, nil, now)
	if tally.Wins != 1 {
		t.Errorf("Gap of 2h+1ms must break the streak: got %d wins, want 1", tally.Wins)
	}
}

// TestComputeSkipsMalformed verifies that ongoing and timestamp-less
// records are skipped without breaking the scan
func TestComputeSkipsMalformed(t *testing.T) {
	matches := []protocol.Match{
		winMatch(4, 108000, 1000),
		{ID: 3, Status: protocol.MatchOngoing, Started: 107000},
		{ID: 2, Status: protocol.MatchComplete}, // no timestamps
		winMatch(1, 105000, 900),
	}
	now := time.Unix(109100, 0)

	tally := testConfig().Compute(matches, nil, now)
	if tally.Wins != 2 || tally.Losses != 0 {
		t.Errorf("Expected 2-0 with malformed records skipped, got %d-%d", tally.Wins, tally.Losses)
	}
}

// TestComputeUnknownResultContinuity verifies that an indeterminate result
// neither counts nor terminates the scan
func TestComputeUnknownResultContinuity(t *testing.T) {
	matches := []protocol.Match{
		winMatch(3, 108000, 1000),
		unknownMatch(2, 105000, 1200),
		winMatch(1, 102000, 900),
	}
	now := time.Unix(109100, 0)

	tally := testConfig().Compute(matches, nil, now)
	if tally.Wins != 2 || tally.Losses != 0 {
		t.Errorf("Expected 2-0 across an indeterminate match, got %d-%d", tally.Wins, tally.Losses)
	}
}

// TestComputeInactivityReset zeroes a still-contiguous streak once the
// player has been away longer than the session gap
func TestComputeInactivityReset(t *testing.T) {
	matches := []protocol.Match{winMatch(1, 100000, 1000)} // finish at 101000s

	// Exactly at the gap the streak still shows
	tally := testConfig().Compute(matches, nil, time.Unix(101000+7200, 0))
	if tally.Wins != 1 {
		t.Errorf("Streak should survive exactly 2h idle, got %d wins", tally.Wins)
	}
	if !tally.SessionActive {
		t.Error("Session should still be active at exactly 2h")
	}

	// Past the gap it is hidden
	tally = testConfig().Compute(matches, nil, time.Unix(101000+7201, 0))
	if tally.Wins != 0 || tally.Losses != 0 {
		t.Errorf("Expected 0-0 after inactivity, got %d-%d", tally.Wins, tally.Losses)
	}
	if tally.SessionActive {
		t.Error("Session should be inactive past the gap")
	}
}

// TestComputeIdempotent verifies that recomputation from the same snapshot
// yields an identical tally
func TestComputeIdempotent(t *testing.T) {
	matches := []protocol.Match{
		winMatch(3, 108000, 1000),
		lossMatch(2, 105000, 1200),
	}
	live := &protocol.Match{ID: 4, Status: protocol.MatchOngoing, Started: 109500}
	now := time.Unix(109600, 0)

	first := testConfig().Compute(matches, live, now)
	second := testConfig().Compute(matches, live, now)
	if first != second {
		t.Errorf("Recomputation diverged: %+v vs %+v", first, second)
	}
}

// TestComputeLiveGap verifies the informational live-match gap and its
// clamping against feed clock skew
func TestComputeLiveGap(t *testing.T) {
	matches := []protocol.Match{winMatch(1, 100000, 1000)} // finish at 101000s
	now := time.Unix(105000, 0)

	live := &protocol.Match{ID: 2, Status: protocol.MatchOngoing, Started: 104600}
	tally := testConfig().Compute(matches, live, now)
	if tally.LiveGap != 3600*time.Second {
		t.Errorf("Expected 1h live gap, got %v", tally.LiveGap)
	}
	if tally.Wins != 1 {
		t.Errorf("Default policy must not touch the score, got %d wins", tally.Wins)
	}

	// Live start before the last finish clamps to zero
	skewed := &protocol.Match{ID: 2, Status: protocol.MatchOngoing, Started: 100900}
	tally = testConfig().Compute(matches, skewed, now)
	if tally.LiveGap != 0 {
		t.Errorf("Expected clamped zero gap, got %v", tally.LiveGap)
	}
}

// TestComputeStrictLiveGap verifies the opt-in policy that zeroes the
// streak when the live match starts too long after the last finish
func TestComputeStrictLiveGap(t *testing.T) {
	matches := []protocol.Match{winMatch(1, 100000, 1000)} // finish at 101000s
	live := &protocol.Match{ID: 2, Status: protocol.MatchOngoing, Started: 101000 + 10800}
	now := time.Unix(101000+10900, 0)

	cfg := testConfig()
	cfg.StrictLiveGap = true

	// The player was idle past the gap too, so pin the inactivity check
	// out of the way with a recent finish.
	matches[0].Started = float64(now.Unix()) - 4000
	matches[0].Duration = 1000
	live.Started = matches[0].Started + matches[0].Duration + 7201

	tally := cfg.Compute(matches, live, now)
	if tally.Wins != 0 || tally.Losses != 0 {
		t.Errorf("Strict policy should zero the streak, got %d-%d", tally.Wins, tally.Losses)
	}

	cfg.StrictLiveGap = false
	tally = cfg.Compute(matches, live, now)
	if tally.Wins != 1 {
		t.Errorf("Informational policy should keep the streak, got %d wins", tally.Wins)
	}
}

// TestComputeEmptyHistory verifies the zero-value tally
func TestComputeEmptyHistory(t *testing.T) {
	tally := testConfig().Compute(nil, nil, time.Now())
	if tally.Wins != 0 || tally.Losses != 0 {
		t.Errorf("Expected 0-0 for empty history, got %d-%d", tally.Wins, tally.Losses)
	}
	if tally.SessionActive {
		t.Error("Empty history cannot have an active session")
	}
	if !tally.LastPlayed.IsZero() || !tally.LastFinish.IsZero() {
		t.Error("Timestamps should be zero for empty history")
	}
}

// TestComputeCustomGap verifies the configurable session gap
func TestComputeCustomGap(t *testing.T) {
	cfg := testConfig()
	cfg.SessionGap = 30 * time.Minute

	// Older match ends 45 minutes before the newer one starts
	matches := []protocol.Match{
		winMatch(2, 100000, 1000),
		winMatch(1, 100000-2700-600, 600),
	}
	now := time.Unix(101100, 0)

	tally := cfg.Compute(matches, nil, now)
	if tally.Wins != 1 {
		t.Errorf("45m pause must break a 30m session, got %d wins", tally.Wins)
	}
}
