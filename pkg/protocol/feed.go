package protocol

import (
	"bytes"
	"encoding/json"
	"time"
)

// Envelope classes used by the upstream dashboard feed
const (
	// ClsSnapshot carries the match history snapshot and live match
	ClsSnapshot = 13
)

// Envelope type discriminators (string-typed messages)
const (
	// TypeMatchRemoved signals the live match disappeared without a
	// terminal "complete" status
	TypeMatchRemoved = "matchRemoved"
)

// Match status values observed on the feed; other values exist and are skipped
const (
	MatchOngoing  = "ongoing"
	MatchComplete = "complete"
)

// Diplomacy1v1 is the only diplomacy label with derivation semantics: in
// strict 1v1 a team that did not win has lost. Compared as an exact literal.
const Diplomacy1v1 = "1v1"

// Ladder1v1RandomMap is the ladder entry carrying the player's current Elo
const Ladder1v1RandomMap = "1v1 Random Map"

// Envelope is a single frame element from the upstream feed. The feed sends
// either one envelope or an array of them per frame.
type Envelope struct {
	Cls  int             `json:"cls,omitempty"`
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelopes parses a feed frame, accepting both the single-object and
// array framings.
func DecodeEnvelopes(data []byte) ([]Envelope, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []Envelope
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}

	var single Envelope
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []Envelope{single}, nil
}

// Subscription is the first message sent after the connection opens
type Subscription struct {
	ProfileID int64 `json:"profile_id"`
}

// Snapshot is the cls-13 payload: match history (most recent first), the
// live match if any, and identity/ladder context for the idle state
type Snapshot struct {
	Matches []Match  `json:"matches"`
	Live    *Match   `json:"live"`
	Player  *Player  `json:"player,omitempty"`
	Players []Player `json:"players,omitempty"`
	Ladders []Ladder `json:"ladders,omitempty"`
}

// Match is one record of the upstream match history. The feed is
// inconsistent about which fields are populated across match types, so
// everything beyond the identifier is optional.
type Match struct {
	ID        int64    `json:"id"`
	Status    string   `json:"status,omitempty"`
	Started   float64  `json:"started,omitempty"`  // epoch seconds
	Duration  float64  `json:"duration,omitempty"` // seconds; zero while ongoing
	Diplomacy string   `json:"diplomacy,omitempty"`
	Type      string   `json:"type,omitempty"`
	RMS       string   `json:"rms,omitempty"`
	Players   []Player `json:"players,omitempty"`
	Teams     []Team   `json:"teams,omitempty"`
}

// Player is one participant record. The feed populates id or profileId
// depending on the message variant, so both must be checked when matching
// against the configured profile.
type Player struct {
	ID           int64  `json:"id,omitempty"`
	ProfileID    int64  `json:"profileId,omitempty"`
	Number       int    `json:"number,omitempty"`
	Name         string `json:"name,omitempty"`
	Country      string `json:"country,omitempty"`
	Civilization string `json:"civilization,omitempty"`
	Rating       int    `json:"rating,omitempty"`
	Winner       *bool  `json:"winner,omitempty"`
}

// Team groups players by their number field
type Team struct {
	Members []int `json:"members,omitempty"`
	Winner  *bool `json:"winner,omitempty"`
	Loser   *bool `json:"loser,omitempty"`
}

// Ladder is one rating ladder entry for the tracked player
type Ladder struct {
	Name    string `json:"name"`
	Current int    `json:"current"`
}

// HasTimestamps reports whether started and duration are both usable
func (m *Match) HasTimestamps() bool {
	return m.Started > 0 && m.Duration > 0
}

// StartTime returns the match start as wall-clock time
func (m *Match) StartTime() time.Time {
	return time.UnixMilli(int64(m.Started * 1000))
}

// FinishTime returns the match end as wall-clock time
func (m *Match) FinishTime() time.Time {
	return time.UnixMilli(int64((m.Started + m.Duration) * 1000))
}

// Is matches a player record against the configured profile identifier,
// checking both identifier fields the feed may populate.
func (p *Player) Is(profileID int64) bool {
	if p == nil || profileID == 0 {
		return false
	}
	return p.ID == profileID || p.ProfileID == profileID
}
