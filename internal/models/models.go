package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"padel-scoring/internal/scoring"
)

type MatchStatus string

const (
	StatusUpcoming   MatchStatus = "upcoming"
	StatusInProgress MatchStatus = "in-progress"
	StatusCompleted  MatchStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// PlayersPerTeam is fixed: padel is played in pairs.
const PlayersPerTeam = 2

type LocalUser struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Match struct {
	ID         string            `json:"id"`
	Date       time.Time         `json:"date"`
	Team1      []string          `json:"team1"`
	Team2      []string          `json:"team2"`
	Score      *scoring.Snapshot `json:"score,omitempty"`
	Status     MatchStatus       `json:"status"`
	OwnerEmail string            `json:"ownerEmail,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Clone deep copies m so stores can hand out values callers may mutate.
func (m *Match) Clone() *Match {
	c := *m
	c.Team1 = append([]string(nil), m.Team1...)
	c.Team2 = append([]string(nil), m.Team2...)
	if m.Score != nil {
		s := *m.Score
		s.A = append([]int(nil), m.Score.A...)
		s.B = append([]int(nil), m.Score.B...)
		c.Score = &s
	}
	return &c
}

// Team returns the player names of side.
func (m *Match) Team(side scoring.Side) []string {
	switch side {
	case scoring.SideA:
		return m.Team1
	case scoring.SideB:
		return m.Team2
	}
	return nil
}

// TeamName is the display name of side, e.g. "Ana & Bea".
func (m *Match) TeamName(side scoring.Side) string {
	return strings.Join(m.Team(side), " & ")
}

// SetsWon returns the set tally of both sides from the stored score.
func (m *Match) SetsWon() (int, int) {
	if m.Score == nil {
		return 0, 0
	}
	return m.Score.SetsWon(scoring.SideA), m.Score.SetsWon(scoring.SideB)
}

// MarshalJSON adds the derived set tally, the shape older clients read.
func (m Match) MarshalJSON() ([]byte, error) {
	type matchAlias Match
	a, b := m.SetsWon()
	return json.Marshal(struct {
		matchAlias
		Team1Sets int `json:"team1Sets"`
		Team2Sets int `json:"team2Sets"`
	}{matchAlias(m), a, b})
}

// StatusFor is the status a saved score implies: completed once somebody
// has won, in progress otherwise.
func StatusFor(snap scoring.Snapshot) MatchStatus {
	if snap.Winner != scoring.NoSide {
		return StatusCompleted
	}
	return StatusInProgress
}

// NormalizePlayers trims and NFC-normalizes names and checks the team has
// exactly two players.
func NormalizePlayers(names []string) ([]string, error) {
	if len(names) != PlayersPerTeam {
		return nil, fmt.Errorf("a team needs exactly %d players, got %d", PlayersPerTeam, len(names))
	}
	out := make([]string, len(names))
	for i, n := range names {
		n = strings.Join(strings.Fields(norm.NFC.String(n)), " ")
		if n == "" {
			return nil, fmt.Errorf("player %d has no name", i+1)
		}
		out[i] = n
	}
	return out, nil
}

// NormalizeEmail lower-cases an address for use as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MatchFilter selects matches for listing. Zero fields match everything.
type MatchFilter struct {
	Status MatchStatus
	Query  string
	Owner  string
}

var folder = cases.Fold()

// Matches reports whether m passes the filter. Query is matched
// case-insensitively against the player names and the match id.
func (f MatchFilter) Matches(m *Match) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Owner != "" && NormalizeEmail(m.OwnerEmail) != NormalizeEmail(f.Owner) {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	q = folder.String(norm.NFC.String(q))
	haystack := []string{
		strings.Join(m.Team1, " "),
		strings.Join(m.Team2, " "),
		m.ID,
	}
	for _, h := range haystack {
		if strings.Contains(folder.String(norm.NFC.String(h)), q) {
			return true
		}
	}
	return false
}

// FilterMatches applies f and orders the result newest date first, ties
// broken by id so listings are stable.
func FilterMatches(matches []*Match, f MatchFilter) []*Match {
	out := make([]*Match, 0, len(matches))
	for _, m := range matches {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
