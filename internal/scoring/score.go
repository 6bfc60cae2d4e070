package scoring

const (
	// GamesToWinSet is the minimum game count that can close a set.
	GamesToWinSet = 6

	// WinMargin is the game lead required to close a set.
	WinMargin = 2

	// DefaultSetsToWin makes a best of three match.
	DefaultSetsToWin = 2
)

// MatchScore is the complete live state of one match.
//
// Games holds, per side, the games won in every set played so far. Both
// sequences always have the same length; the last element is the open set.
type MatchScore struct {
	Games      [2][]int
	CurrentSet int
	Points     [2]PointLabel
	Deuce      bool
	Advantage  Side
	Winner     Side
}

// NewMatchScore returns a fresh 0-0 match with one open set.
func NewMatchScore() MatchScore {
	return MatchScore{Games: [2][]int{{0}, {0}}}
}

// Clone returns a deep copy that shares no slices with m.
func (m MatchScore) Clone() MatchScore {
	c := m
	c.Games[0] = append([]int(nil), m.Games[0]...)
	c.Games[1] = append([]int(nil), m.Games[1]...)
	return c
}

// PointsOf returns the point label of side in the current game.
func (m MatchScore) PointsOf(side Side) PointLabel {
	if !side.Valid() {
		return Love
	}
	return m.Points[side.index()]
}

// GamesOf returns the games side has won in the open set.
func (m MatchScore) GamesOf(side Side) int {
	if !side.Valid() || len(m.Games[side.index()]) == 0 {
		return 0
	}
	g := m.Games[side.index()]
	return g[len(g)-1]
}

// SetsWon is the number of sets side has closed, re-derived from Games.
func (m MatchScore) SetsWon(side Side) int {
	return SetsWon(m.Games, side)
}

// Decided reports whether the match is terminal.
func (m MatchScore) Decided() bool {
	return m.Winner != NoSide
}

func (m *MatchScore) clearGame() {
	m.Points = [2]PointLabel{Love, Love}
	m.Deuce = false
	m.Advantage = NoSide
}

func (m *MatchScore) enterDeuce() {
	m.Points = [2]PointLabel{Deuce, Deuce}
	m.Deuce = true
	m.Advantage = NoSide
}

func (m *MatchScore) openSet() {
	m.Games[0] = append(m.Games[0], 0)
	m.Games[1] = append(m.Games[1], 0)
	m.CurrentSet = len(m.Games[0]) - 1
}

// SetWon reports whether a set finishing games to opponent is closed.
func SetWon(games, opponent int) bool {
	return games >= GamesToWinSet && games-opponent >= WinMargin
}

// SetsWon scans every recorded set and counts the ones side has closed.
// This scan is the only source of the set tally.
func SetsWon(games [2][]int, side Side) int {
	if !side.Valid() {
		return 0
	}
	own, opp := games[side.index()], games[side.Other().index()]
	won := 0
	for i := range own {
		if i < len(opp) && SetWon(own[i], opp[i]) {
			won++
		}
	}
	return won
}

// decidingSet returns the index of the set in which either side's tally
// first reached setsToWin, or -1 if neither did.
func decidingSet(games [2][]int, setsToWin int) int {
	var won [2]int
	for i := range games[0] {
		if i >= len(games[1]) {
			break
		}
		a, b := games[0][i], games[1][i]
		switch {
		case SetWon(a, b):
			won[0]++
		case SetWon(b, a):
			won[1]++
		}
		if won[0] >= setsToWin || won[1] >= setsToWin {
			return i
		}
	}
	return -1
}

// validate checks the structural invariants that do not depend on the
// sets-to-win threshold.
func (m MatchScore) validate() error {
	a, b := m.Games[0], m.Games[1]
	if len(a) != len(b) {
		return invalidState("set sequences unaligned: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return invalidState("no open set")
	}
	for i := range a {
		if a[i] < 0 || b[i] < 0 {
			return invalidState("negative game count in set %d", i+1)
		}
	}
	if m.CurrentSet != len(a)-1 {
		return invalidState("current set %d does not point at the open set %d", m.CurrentSet, len(a)-1)
	}
	if m.Winner != NoSide && !m.Winner.Valid() {
		return invalidState("unknown winner %d", m.Winner)
	}
	if m.Advantage != NoSide && !m.Advantage.Valid() {
		return invalidState("unknown advantage holder %d", m.Advantage)
	}
	return m.validatePoints()
}

func (m MatchScore) validatePoints() error {
	pa, pb := m.Points[0], m.Points[1]
	if !m.Deuce {
		if m.Advantage != NoSide {
			return invalidState("advantage held outside deuce")
		}
		if !pa.regular() || !pb.regular() {
			return invalidState("point labels %s-%s require deuce", pa, pb)
		}
		return nil
	}
	if m.Advantage == NoSide {
		if pa != Deuce || pb != Deuce {
			return invalidState("deuce without advantage must show Deuce-Deuce, got %s-%s", pa, pb)
		}
		return nil
	}
	if m.PointsOf(m.Advantage) != Advantage || m.PointsOf(m.Advantage.Other()) != Behind {
		return invalidState("advantage %s inconsistent with labels %s-%s", m.Advantage, pa, pb)
	}
	return nil
}
