package scoring

// Snapshot is the persisted shape of a match score: games won per set for
// each side, plus the winner when the match is over. Point labels of the
// game in progress are not part of it; a restored match resumes at Love-Love.
type Snapshot struct {
	A      []int `json:"a" yaml:"a"`
	B      []int `json:"b" yaml:"b"`
	Winner Side  `json:"winner" yaml:"winner,omitempty"`
}

// SetScore is one set as displayed: games of side A and side B.
type SetScore struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Games returns the per-set game sequence of side.
func (s Snapshot) Games(side Side) []int {
	switch side {
	case SideA:
		return s.A
	case SideB:
		return s.B
	}
	return nil
}

// SetsWon re-derives the set tally of side from the recorded games.
func (s Snapshot) SetsWon(side Side) int {
	return SetsWon([2][]int{s.A, s.B}, side)
}

// Sets pairs the two sequences index by index. Missing entries count as 0.
func (s Snapshot) Sets() []SetScore {
	n := max(len(s.A), len(s.B))
	sets := make([]SetScore, n)
	for i := range sets {
		if i < len(s.A) {
			sets[i].A = s.A[i]
		}
		if i < len(s.B) {
			sets[i].B = s.B[i]
		}
	}
	return sets
}
