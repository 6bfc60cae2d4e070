package scorer

import "padel-scoring/internal/scoring"

// Points is the label of the game in progress for each side.
type Points struct {
	A scoring.PointLabel `json:"a"`
	B scoring.PointLabel `json:"b"`
}

// View is the live state of a match as shown to the scorer.
type View struct {
	MatchID    string             `json:"matchId"`
	Points     Points             `json:"points"`
	Sets       []scoring.SetScore `json:"sets"`
	CurrentSet int                `json:"currentSet"`
	SetsWon    scoring.SetScore   `json:"setsWon"`
	Deuce      bool               `json:"deuce"`
	Advantage  scoring.Side       `json:"advantage"`
	Winner     scoring.Side       `json:"winner"`
	Finished   bool               `json:"finished"`
	Unsaved    bool               `json:"unsaved"`
}

// Update is the answer to an accepted event.
type Update struct {
	View
	Result scoring.Result `json:"result"`
	Saved  bool           `json:"saved"`
}

func (m *Manager) view(s *session) View {
	st := s.state
	snap := scoring.Snapshot{A: st.Games[0], B: st.Games[1]}
	return View{
		MatchID:    s.id,
		Points:     Points{A: st.PointsOf(scoring.SideA), B: st.PointsOf(scoring.SideB)},
		Sets:       snap.Sets(),
		CurrentSet: st.CurrentSet,
		SetsWon:    scoring.SetScore{A: st.SetsWon(scoring.SideA), B: st.SetsWon(scoring.SideB)},
		Deuce:      st.Deuce,
		Advantage:  st.Advantage,
		Winner:     st.Winner,
		Finished:   s.finished,
		Unsaved:    s.dirty,
	}
}
