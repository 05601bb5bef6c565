package overlay

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"streakoverlay/internal/streak"
	"streakoverlay/pkg/logger"
	"streakoverlay/pkg/protocol"
)

// civIconBase is the public icon set the overlay page loads civ images from
const civIconBase = "https://raw.githubusercontent.com/SiegeEngineers/aoe2techtree/master/img/Civs/"

var matchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "overlay_matches_finished_total",
	Help: "Live matches observed to completion, by classified result",
}, []string{"result"})

// Broadcaster pushes a message to every connected overlay client
type Broadcaster interface {
	Broadcast(msg *protocol.Message)
}

// MessageSender delivers a message to a single overlay client
type MessageSender interface {
	SendMessage(msg *protocol.Message) error
}

// Recorder archives finished matches and streak snapshots. Archive failures
// never affect overlay state.
type Recorder interface {
	RecordResult(match *protocol.Match, opponent string, result string) error
	RecordSnapshot(wins, losses int, sessionActive bool) error
}

// StateSnapshot is the replayable view of the current overlay state
type StateSnapshot struct {
	Streak  protocol.StreakPayload        `json:"streak"`
	Phase   string                        `json:"phase"`
	Match   *protocol.MatchStartedPayload `json:"match,omitempty"`
	Waiting *protocol.WaitingPayload      `json:"waiting,omitempty"`
}

// StateManager glues the feed to the overlay: it recomputes the streak from
// every snapshot, runs the live-match tracker, and broadcasts the resulting
// state. It implements feed.Handler.
//
// All mutation happens on the feed dispatch goroutine; the mutex only
// protects concurrent reads from the HTTP surface.
type StateManager struct {
	cfg      streak.Config
	hub      Broadcaster
	recorder Recorder
	logger   *logger.ColoredLogger
	now      func() time.Time

	mu           sync.Mutex
	tracker      *streak.Tracker
	tally        streak.Tally
	currentMatch *protocol.MatchStartedPayload
	waiting      *protocol.WaitingPayload
}

// NewStateManager creates a state manager. The recorder may be nil.
func NewStateManager(cfg streak.Config, hub Broadcaster, recorder Recorder) *StateManager {
	return &StateManager{
		cfg:      cfg,
		hub:      hub,
		recorder: recorder,
		logger:   logger.StreakLogger,
		now:      time.Now,
		tracker:  streak.NewTracker(),
	}
}

// HandleSnapshot processes a full cls-13 snapshot: recompute the tally from
// scratch, advance the live-match tracker, broadcast what changed.
func (m *StateManager) HandleSnapshot(snap *protocol.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.tally = m.cfg.Compute(snap.Matches, snap.Live, now)

	switch m.tracker.Observe(snap.Live) {
	case streak.EventMatchStarted:
		m.onMatchStarted(snap.Live)

	case streak.EventMatchFinished:
		m.onMatchFinished(snap)

	case streak.EventWentIdle:
		m.onWentIdle(snap)
	}

	m.hub.Broadcast(protocol.NewMessage(protocol.MsgStreakUpdate, m.streakPayload()))
}

// HandleMatchRemoved clears live-match tracking when the feed drops the
// match without a terminal status. The score is untouched.
func (m *StateManager) HandleMatchRemoved() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracker.Reset()
	m.currentMatch = nil
	m.waiting = &protocol.WaitingPayload{}

	m.hub.Broadcast(protocol.NewMessage(protocol.MsgWaiting, m.waiting))
}

// onMatchStarted composes and broadcasts the new live match. An
// unresolvable player means the match cannot be rendered; tracking still
// advances so the eventual completion is classified once.
func (m *StateManager) onMatchStarted(live *protocol.Match) {
	payload := m.composeMatchStarted(live)
	if payload == nil {
		m.logger.Warn("Live match %d has no record for profile %d, not rendering", live.ID, m.cfg.ProfileID)
		return
	}

	m.currentMatch = payload
	m.waiting = nil
	m.logger.Info("Match %d started: %s", live.ID, payload.Title)

	m.hub.Broadcast(protocol.NewMessage(protocol.MsgMatchStarted, payload))
}

// onMatchFinished classifies the tracked match and bumps the score by
// exactly one, but only while the snapshot's history has not caught up: when
// the completion snapshot already lists the finished match, the recompute in
// HandleSnapshot counted it.
func (m *StateManager) onMatchFinished(snap *protocol.Snapshot) {
	live := snap.Live
	result := streak.PlayerResult(live, m.cfg.ProfileID)
	switch {
	case !result.Conclusive():
		m.logger.Warn("Match %d finished without a determinable result", live.ID)
	case historyContains(snap.Matches, live.ID):
		// Already in the recomputed tally
	case result == streak.ResultWin:
		m.tally.Wins++
	default:
		m.tally.Losses++
	}
	matchesFinished.WithLabelValues(result.String()).Inc()

	m.currentMatch = nil
	m.logger.Info("Match %d finished: %s (%d-%d)", live.ID, result, m.tally.Wins, m.tally.Losses)

	m.hub.Broadcast(protocol.NewMessage(protocol.MsgMatchFinished, &protocol.MatchFinishedPayload{
		MatchID: live.ID,
		Result:  result.String(),
		Wins:    m.tally.Wins,
		Losses:  m.tally.Losses,
	}))

	if m.recorder != nil {
		opponent := ""
		if opp := streak.FindOpponent(live, m.cfg.ProfileID); opp != nil {
			opponent = opp.Name
		}
		if err := m.recorder.RecordResult(live, opponent, result.String()); err != nil {
			m.logger.Error("Failed to archive match %d: %v", live.ID, err)
		}
		if err := m.recorder.RecordSnapshot(m.tally.Wins, m.tally.Losses, m.tally.SessionActive); err != nil {
			m.logger.Error("Failed to archive streak snapshot: %v", err)
		}
	}
}

// onWentIdle clears the current match and broadcasts the waiting state
func (m *StateManager) onWentIdle(snap *protocol.Snapshot) {
	m.currentMatch = nil
	m.waiting = composeWaiting(snap, m.cfg.ProfileID)

	m.hub.Broadcast(protocol.NewMessage(protocol.MsgWaiting, m.waiting))
}

// Attach replays the current state to a newly connected client so the
// overlay renders immediately instead of waiting for the next snapshot.
func (m *StateManager) Attach(s MessageSender) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.SendMessage(protocol.NewMessage(protocol.MsgStreakUpdate, m.streakPayload()))

	switch {
	case m.currentMatch != nil:
		s.SendMessage(protocol.NewMessage(protocol.MsgMatchStarted, m.currentMatch))
	case m.waiting != nil:
		s.SendMessage(protocol.NewMessage(protocol.MsgWaiting, m.waiting))
	}
}

// Snapshot returns the current state for the HTTP API
func (m *StateManager) Snapshot() StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return StateSnapshot{
		Streak:  *m.streakPayload(),
		Phase:   m.tracker.Phase().String(),
		Match:   m.currentMatch,
		Waiting: m.waiting,
	}
}

// streakPayload converts the tally; callers must hold the mutex
func (m *StateManager) streakPayload() *protocol.StreakPayload {
	return &protocol.StreakPayload{
		Wins:          m.tally.Wins,
		Losses:        m.tally.Losses,
		SessionActive: m.tally.SessionActive,
		LiveGapMs:     m.tally.LiveGap.Milliseconds(),
	}
}

// composeMatchStarted builds the broadcast payload for a live match, or nil
// when the tracked player cannot be resolved in it
func (m *StateManager) composeMatchStarted(live *protocol.Match) *protocol.MatchStartedPayload {
	me := streak.FindPlayer(live, m.cfg.ProfileID)
	if me == nil {
		return nil
	}

	payload := &protocol.MatchStartedPayload{
		MatchID:    live.ID,
		Title:      matchTitle(live),
		GameNumber: m.tally.Wins + m.tally.Losses + 1,
		Player:     composeCard(me),
	}
	if opp := streak.FindOpponent(live, m.cfg.ProfileID); opp != nil {
		card := composeCard(opp)
		payload.Opponent = &card
	}
	return payload
}

// matchTitle formats the header line with the same fallbacks the overlay
// page used to hardcode
func matchTitle(m *protocol.Match) string {
	matchType := m.Type
	if matchType == "" {
		matchType = "Unknown type"
	}
	diplomacy := m.Diplomacy
	if diplomacy == "" {
		diplomacy = "Ladder"
	}
	rms := m.RMS
	if rms == "" {
		rms = "Unknown map"
	}
	return fmt.Sprintf("%s %s on %s", matchType, diplomacy, rms)
}

// composeCard builds the per-player rendering fields
func composeCard(p *protocol.Player) protocol.PlayerCard {
	return protocol.PlayerCard{
		Name:         p.Name,
		Country:      p.Country,
		Civilization: p.Civilization,
		CivIconURL:   CivIconURL(p.Civilization),
		Rating:       p.Rating,
	}
}

// historyContains reports whether the match history already carries a
// record with the given id
func historyContains(matches []protocol.Match, id int64) bool {
	for i := range matches {
		if matches[i].ID == id {
			return true
		}
	}
	return false
}

// composeWaiting builds the idle status from the snapshot's identity and
// ladder context
func composeWaiting(snap *protocol.Snapshot, profileID int64) *protocol.WaitingPayload {
	w := &protocol.WaitingPayload{}

	for i := range snap.Players {
		if snap.Players[i].Is(profileID) {
			w.PlayerName = snap.Players[i].Name
			break
		}
	}
	if w.PlayerName == "" && snap.Player != nil {
		w.PlayerName = snap.Player.Name
	}

	for _, ladder := range snap.Ladders {
		if ladder.Name == protocol.Ladder1v1RandomMap {
			w.CurrentElo = ladder.Current
			break
		}
	}

	return w
}

// CivIconURL maps a civilization name to its public icon image
func CivIconURL(civilization string) string {
	if civilization == "" {
		return ""
	}
	normalized := strings.Join(strings.Fields(strings.ToLower(civilization)), "")
	return civIconBase + normalized + ".png"
}
