package streak

import (
	"streakoverlay/pkg/protocol"
)

// Result is the tri-state outcome of classifying a match for the tracked
// player. The feed populates result information inconsistently across match
// types, so Unknown is a normal outcome, not an error.
type Result int

const (
	ResultUnknown Result = iota
	ResultWin
	ResultLoss
)

func (r Result) String() string {
	switch r {
	case ResultWin:
		return protocol.ResultLabelWin
	case ResultLoss:
		return protocol.ResultLabelLoss
	default:
		return protocol.ResultLabelUnknown
	}
}

// Conclusive reports whether the result should affect the score
func (r Result) Conclusive() bool {
	return r == ResultWin || r == ResultLoss
}

// FindPlayer returns the participant record for the configured profile, or
// nil when the match cannot be resolved. The flat players list is the
// primary lookup; some feed variants only expose players indirectly through
// team membership.
func FindPlayer(m *protocol.Match, profileID int64) *protocol.Player {
	if m == nil {
		return nil
	}

	for i := range m.Players {
		if m.Players[i].Is(profileID) {
			return &m.Players[i]
		}
	}

	if len(m.Teams) > 0 && len(m.Players) > 0 {
		for _, team := range m.Teams {
			for _, number := range team.Members {
				if p := playerByNumber(m, number); p.Is(profileID) {
					return p
				}
			}
		}
	}

	return nil
}

// FindOpponent returns the first participant that is not the tracked player,
// or nil. Only the first non-self player is surfaced, whether the match is
// 1v1 or not.
func FindOpponent(m *protocol.Match, profileID int64) *protocol.Player {
	if m == nil {
		return nil
	}

	for i := range m.Players {
		if !m.Players[i].Is(profileID) {
			return &m.Players[i]
		}
	}

	return nil
}

// PlayerResult determines whether the tracked player won or lost a match.
//
// Precedence: the per-player winner flag when present, then the flags of the
// team containing the player's number. In strict 1v1 a team that did not win
// has lost even if the feed never sets a loser flag. Anything else is
// Unknown.
func PlayerResult(m *protocol.Match, profileID int64) Result {
	player := FindPlayer(m, profileID)
	if player == nil {
		return ResultUnknown
	}

	if player.Winner != nil {
		if *player.Winner {
			return ResultWin
		}
		return ResultLoss
	}

	if len(m.Teams) > 0 && len(m.Players) > 0 && player.Number != 0 {
		if team := teamOf(m, player.Number); team != nil {
			if team.Winner != nil && *team.Winner {
				return ResultWin
			}
			if team.Loser != nil && *team.Loser {
				return ResultLoss
			}
			if m.Diplomacy == protocol.Diplomacy1v1 {
				return ResultLoss
			}
		}
	}

	return ResultUnknown
}

// playerByNumber finds a participant by their in-match number
func playerByNumber(m *protocol.Match, number int) *protocol.Player {
	for i := range m.Players {
		if m.Players[i].Number == number {
			return &m.Players[i]
		}
	}
	return nil
}

// teamOf finds the team whose members include the given player number
func teamOf(m *protocol.Match, number int) *protocol.Team {
	for i := range m.Teams {
		for _, member := range m.Teams[i].Members {
			if member == number {
				return &m.Teams[i]
			}
		}
	}
	return nil
}
