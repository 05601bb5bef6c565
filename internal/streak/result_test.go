package streak

import (
	"testing"

	"streakoverlay/pkg/protocol"
)

const testProfileID int64 = 199325

func boolPtr(b bool) *bool {
	return &b
}

// TestFindPlayerFlatList tests the primary lookup against the players list
func TestFindPlayerFlatList(t *testing.T) {
	match := &protocol.Match{
		Players: []protocol.Player{
			{ID: 111, Name: "SomeoneElse"},
			{ID: testProfileID, Name: "Me"},
		},
	}

	p := FindPlayer(match, testProfileID)
	if p == nil {
		t.Fatal("Expected to resolve player from flat list")
	}
	if p.Name != "Me" {
		t.Errorf("Expected player 'Me', got %s", p.Name)
	}
}

// TestFindPlayerProfileIDField tests that both identifier fields are checked
func TestFindPlayerProfileIDField(t *testing.T) {
	match := &protocol.Match{
		Players: []protocol.Player{
			{ProfileID: testProfileID, Name: "Me"},
		},
	}

	p := FindPlayer(match, testProfileID)
	if p == nil {
		t.Fatal("Expected to resolve player via profileId field")
	}
	if p.Name != "Me" {
		t.Errorf("Expected player 'Me', got %s", p.Name)
	}
}

// TestFindPlayerTeamMembership tests the team-membership fallback for feeds
// that key the flat list by number only
func TestFindPlayerTeamMembership(t *testing.T) {
	match := &protocol.Match{
		Players: []protocol.Player{
			{Number: 1, Name: "Other"},
			{Number: 2, ProfileID: testProfileID, Name: "Me"},
		},
		Teams: []protocol.Team{
			{Members: []int{1, 2}},
		},
	}

	p := FindPlayer(match, testProfileID)
	if p == nil {
		t.Fatal("Expected to resolve player through team membership")
	}
	if p.Name != "Me" {
		t.Errorf("Expected player 'Me', got %s", p.Name)
	}
}

// TestFindPlayerNoPlayersList tests that a match exposing only teams cannot
// be resolved
func TestFindPlayerNoPlayersList(t *testing.T) {
	match := &protocol.Match{
		Teams: []protocol.Team{
			{Members: []int{1, 2}},
		},
	}

	if p := FindPlayer(match, testProfileID); p != nil {
		t.Errorf("Expected nil without a players list, got %+v", p)
	}
}

// TestFindOpponent tests opponent selection
func TestFindOpponent(t *testing.T) {
	match := &protocol.Match{
		Players: []protocol.Player{
			{ID: testProfileID, Name: "Me"},
			{ID: 222, Name: "Rival"},
		},
	}

	opp := FindOpponent(match, testProfileID)
	if opp == nil {
		t.Fatal("Expected to find an opponent")
	}
	if opp.Name != "Rival" {
		t.Errorf("Expected opponent 'Rival', got %s", opp.Name)
	}

	if opp := FindOpponent(&protocol.Match{}, testProfileID); opp != nil {
		t.Errorf("Expected nil opponent without players, got %+v", opp)
	}
}

// TestPlayerResult tests the classification precedence across the data
// shapes the feed is known to produce
func TestPlayerResult(t *testing.T) {
	tests := []struct {
		name  string
		match protocol.Match
		want  Result
	}{
		{
			name: "explicit winner flag wins",
			match: protocol.Match{
				Players: []protocol.Player{
					{ID: testProfileID, Winner: boolPtr(true)},
				},
			},
			want: ResultWin,
		},
		{
			name: "explicit winner flag loses",
			match: protocol.Match{
				Players: []protocol.Player{
					{ID: testProfileID, Winner: boolPtr(false)},
				},
			},
			want: ResultLoss,
		},
		{
			name: "player flag beats contradicting team data",
			match: protocol.Match{
				Diplomacy: "1v1",
				Players: []protocol.Player{
					{ID: testProfileID, Number: 1, Winner: boolPtr(true)},
				},
				Teams: []protocol.Team{
					{Members: []int{1}, Loser: boolPtr(true)},
				},
			},
			want: ResultWin,
		},
		{
			name: "team winner flag",
			match: protocol.Match{
				Players: []protocol.Player{
					{ID: testProfileID, Number: 1},
				},
				Teams: []protocol.Team{
					{Members: []int{1}, Winner: boolPtr(true)},
				},
			},
			want: ResultWin,
		},
		{
			name: "team loser flag",
			match: protocol.Match{
				Players: []protocol.Player{
					{ID: testProfileID, Number: 1},
				},
				Teams: []protocol.Team{
					{Members: []int{1}, Loser: boolPtr(true)},
				},
			},
			want: ResultLoss,
		},
		{
			name: "1v1 without a win is a loss",
			match: protocol.Match{
				Diplomacy: "1v1",
				Players: []protocol.Player{
					{ID: testProfileID, Number: 1},
				},
				Teams: []protocol.Team{
					{Members: []int{1}, Winner: boolPtr(false)},
				},
			},
			want: ResultLoss,
		},
		{
			name: "1v1 rule needs the exact literal",
			match: protocol.Match{
				Diplomacy: "1v1 Random Map",
				Players: []protocol.Player{
					{ID: testProfileID, Number: 1},
				},
				Teams: []protocol.Team{
					{Members: []int{1}},
				},
			},
			want: ResultUnknown,
		},
		{
			name: "team found but inconclusive in team game",
			match: protocol.Match{
				Diplomacy: "2v2",
				Players: []protocol.Player{
					{ID: testProfileID, Number: 1},
				},
				Teams: []protocol.Team{
					{Members: []int{1, 2}},
				},
			},
			want: ResultUnknown,
		},
		{
			name: "player not in match",
			match: protocol.Match{
				Players: []protocol.Player{
					{ID: 333},
				},
			},
			want: ResultUnknown,
		},
		{
			name:  "empty match",
			match: protocol.Match{},
			want:  ResultUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlayerResult(&tt.match, testProfileID)
			if got != tt.want {
				t.Errorf("PlayerResult() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestResultConclusive tests the conclusive check used by the engine
func TestResultConclusive(t *testing.T) {
	if ResultUnknown.Conclusive() {
		t.Error("Unknown should not be conclusive")
	}
	if !ResultWin.Conclusive() || !ResultLoss.Conclusive() {
		t.Error("Win and loss should be conclusive")
	}
}
