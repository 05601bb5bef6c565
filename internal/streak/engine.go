package streak

import (
	"time"

	"streakoverlay/pkg/protocol"
)

// DefaultSessionGap is the maximum tolerated pause between the end of one
// match and the start of the next before the streak is considered broken.
const DefaultSessionGap = 2 * time.Hour

// Config controls how the streak is derived from match history.
type Config struct {
	// ProfileID identifies the tracked player
	ProfileID int64

	// SessionGap overrides DefaultSessionGap when positive
	SessionGap time.Duration

	// StrictLiveGap zeroes the tally when a live match starts more than
	// SessionGap after the last counted finish. Off, the gap is reported
	// but does not affect the score.
	StrictLiveGap bool
}

// Tally is the computed score for the current play session.
type Tally struct {
	Wins   int
	Losses int

	// LastFinish is the end of the most recent match inside the unbroken
	// session window, including matches with an inconclusive result
	LastFinish time.Time

	// LastPlayed is the end of the most recent completed match regardless
	// of session continuity
	LastPlayed time.Time

	// LiveGap is the pause between LastFinish and the live match start,
	// clamped at zero; it stays zero when either side is missing
	LiveGap time.Duration

	// SessionActive reports whether the tally survived the inactivity check
	SessionActive bool
}

func (c Config) gap() time.Duration {
	if c.SessionGap > 0 {
		return c.SessionGap
	}
	return DefaultSessionGap
}

// Compute derives the session tally from a most-recent-first match history
// and an optional live match. It is a pure function of its inputs: feeding
// the same snapshot twice yields the same tally.
//
// Matches that are not complete or lack timestamps are skipped without
// breaking continuity, as are matches whose result cannot be determined.
func (c Config) Compute(matches []protocol.Match, live *protocol.Match, now time.Time) Tally {
	var t Tally
	gap := c.gap()

	for i := range matches {
		m := &matches[i]
		if m.Status != protocol.MatchComplete || !m.HasTimestamps() {
			continue
		}

		finished := m.FinishTime()

		// The first considered match is the most recently played one,
		// whether or not it survives the continuity check below.
		if t.LastPlayed.IsZero() {
			t.LastPlayed = finished
		}

		if !t.LastFinish.IsZero() {
			pause := m.StartTime().Sub(t.LastFinish)
			if pause < 0 {
				pause = -pause
			}
			if pause > gap {
				// Everything older belongs to a previous session
				break
			}
		}

		switch PlayerResult(m, c.ProfileID) {
		case ResultWin:
			t.Wins++
		case ResultLoss:
			t.Losses++
		}

		t.LastFinish = finished
	}

	// A still-contiguous streak is stale once the player has been away
	// longer than the session gap.
	if !t.LastPlayed.IsZero() {
		idle := now.Sub(t.LastPlayed)
		t.SessionActive = idle <= gap
		if idle > gap {
			t.Wins = 0
			t.Losses = 0
		}
	}

	if live != nil && !t.LastFinish.IsZero() {
		liveGap := live.StartTime().Sub(t.LastFinish)
		if liveGap < 0 {
			// Clock skew between the feed and wall time
			liveGap = 0
		}
		t.LiveGap = liveGap

		if c.StrictLiveGap && liveGap > gap {
			t.Wins = 0
			t.Losses = 0
		}
	}

	return t
}
