package streak

import (
	"streakoverlay/pkg/protocol"
)

// Phase of live-match tracking
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInMatch
	PhaseAwaitingNext
)

func (p Phase) String() string {
	switch p {
	case PhaseInMatch:
		return "in_match"
	case PhaseAwaitingNext:
		return "awaiting_next"
	default:
		return "idle"
	}
}

// Event describes the transition produced by observing a snapshot
type Event int

const (
	// EventNone means nothing changed (duplicate or irrelevant snapshot)
	EventNone Event = iota
	// EventMatchStarted means a new live match began
	EventMatchStarted
	// EventMatchFinished means the tracked live match completed; classify
	// it and bump the score by exactly one before the next full recompute
	EventMatchFinished
	// EventWentIdle means no live match is in progress; tracking fields
	// were cleared but the score is untouched
	EventWentIdle
)

// Tracker follows the live match across snapshots. Snapshots are frequently
// retransmitted unchanged, so every transition is guarded to be idempotent.
type Tracker struct {
	phase     Phase
	currentID int64
}

// NewTracker returns a tracker in the idle phase
func NewTracker() *Tracker {
	return &Tracker{}
}

// Phase returns the current tracking phase
func (t *Tracker) Phase() Phase {
	return t.phase
}

// CurrentID returns the id of the tracked live match, zero when idle
func (t *Tracker) CurrentID() int64 {
	return t.currentID
}

// Observe advances the tracker with the live match from a fresh snapshot
// and reports what changed.
func (t *Tracker) Observe(live *protocol.Match) Event {
	switch {
	case live != nil && live.Status == protocol.MatchOngoing:
		if t.phase == PhaseInMatch && live.ID == t.currentID {
			return EventNone
		}
		t.phase = PhaseInMatch
		t.currentID = live.ID
		return EventMatchStarted

	case live != nil && live.Status == protocol.MatchComplete && t.phase == PhaseInMatch:
		if live.ID != t.currentID {
			// A completion for a match we never tracked
			return EventNone
		}
		t.phase = PhaseAwaitingNext
		t.currentID = 0
		return EventMatchFinished

	default:
		// No ongoing live match: clear tracking only, never the score
		t.phase = PhaseIdle
		t.currentID = 0
		return EventWentIdle
	}
}

// Reset clears live-match tracking. Used when the feed reports the match
// removed without ever sending a terminal status.
func (t *Tracker) Reset() {
	t.phase = PhaseIdle
	t.currentID = 0
}
