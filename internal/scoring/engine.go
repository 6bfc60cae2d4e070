package scoring

// Result reports the boundaries a single point crossed. Each field is NoSide
// unless that boundary was reached by this point.
type Result struct {
	GameWon  Side `json:"gameWon"`
	SetWon   Side `json:"setWon"`
	MatchWon Side `json:"matchWon"`
}

// Engine applies scoring events to MatchScore values. It is stateless apart
// from its configuration and safe to share.
type Engine struct {
	setsToWin int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSetsToWin sets how many sets decide the match. Values below 1 are
// ignored.
func WithSetsToWin(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.setsToWin = n
		}
	}
}

// NewEngine creates an engine for a best of three match unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{setsToWin: DefaultSetsToWin}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetsToWin returns the configured match threshold.
func (e *Engine) SetsToWin() int {
	return e.setsToWin
}

// NewMatch returns a fresh match.
func (e *Engine) NewMatch() MatchScore {
	return NewMatchScore()
}

// Validate checks every MatchScore invariant, including the ones that
// depend on the sets-to-win threshold.
func (e *Engine) Validate(m MatchScore) error {
	if err := m.validate(); err != nil {
		return err
	}
	wonA, wonB := m.SetsWon(SideA), m.SetsWon(SideB)
	if wonA >= e.setsToWin && wonB >= e.setsToWin {
		return invalidState("both sides reached %d sets", e.setsToWin)
	}

	var leader Side
	switch {
	case wonA >= e.setsToWin:
		leader = SideA
	case wonB >= e.setsToWin:
		leader = SideB
	}
	if m.Winner != leader {
		return invalidState("winner %q disagrees with set tally %d-%d", m.Winner, wonA, wonB)
	}
	if leader != NoSide {
		if at := decidingSet(m.Games, e.setsToWin); at != len(m.Games[0])-1 {
			return invalidState("sets recorded after the deciding set %d", at+1)
		}
	}
	if !m.Decided() && openSetClosed(m) {
		return invalidState("open set %d is already closed", m.CurrentSet+1)
	}
	return nil
}

func openSetClosed(m MatchScore) bool {
	a, b := m.GamesOf(SideA), m.GamesOf(SideB)
	return SetWon(a, b) || SetWon(b, a)
}

// ApplyPoint scores one point for side.
func (e *Engine) ApplyPoint(state MatchScore, side Side) (MatchScore, Result, error) {
	if err := e.mutable(state, side); err != nil {
		return state, Result{}, err
	}

	next := state.Clone()
	own, opp := side.index(), side.Other().index()

	if next.Deuce {
		switch next.Advantage {
		case NoSide:
			next.Advantage = side
			next.Points[own] = Advantage
			next.Points[opp] = Behind
		case side:
			return e.winGame(next, side)
		default:
			next.enterDeuce()
		}
		return next, Result{}, nil
	}

	switch {
	case next.Points[own] < Forty:
		next.Points[own]++
		if next.Points[own] == Forty && next.Points[opp] == Forty {
			next.enterDeuce()
		}
	case next.Points[opp] == Forty:
		// 40-40 without the deuce flag only exists after undoing out of deuce.
		next.enterDeuce()
	default:
		return e.winGame(next, side)
	}
	return next, Result{}, nil
}

func (e *Engine) winGame(next MatchScore, side Side) (MatchScore, Result, error) {
	own, opp := side.index(), side.Other().index()
	res := Result{GameWon: side}

	next.Games[own][next.CurrentSet]++
	next.clearGame()

	if !SetWon(next.Games[own][next.CurrentSet], next.Games[opp][next.CurrentSet]) {
		return next, res, nil
	}
	res.SetWon = side

	if SetsWon(next.Games, side) >= e.setsToWin {
		next.Winner = side
		res.MatchWon = side
		return next, res, nil
	}
	next.openSet()
	return next, res, nil
}

// UndoLastPoint takes back the last point of side in the current game. It
// never touches recorded games or sets. Undoing during deuce cancels it and
// puts both sides back on 40.
func (e *Engine) UndoLastPoint(state MatchScore, side Side) (MatchScore, error) {
	if err := e.mutable(state, side); err != nil {
		return state, err
	}

	next := state.Clone()
	if next.Deuce {
		next.Deuce = false
		next.Advantage = NoSide
		next.Points = [2]PointLabel{Forty, Forty}
		return next, nil
	}

	own := side.index()
	if next.Points[own] == Love {
		return state, nothingToUndo(side)
	}
	next.Points[own]--
	return next, nil
}

// ResetCurrentGame puts both sides back on Love and clears deuce, leaving
// games and sets as recorded.
func (e *Engine) ResetCurrentGame(state MatchScore) (MatchScore, error) {
	if err := e.Validate(state); err != nil {
		return state, err
	}
	if state.Decided() {
		return state, alreadyDecided(state.Winner)
	}
	next := state.Clone()
	next.clearGame()
	return next, nil
}

// FinishMatch projects state onto its persisted shape. It can be called at
// any time; Winner is only set when the match was actually decided.
func (e *Engine) FinishMatch(state MatchScore) (Snapshot, error) {
	if err := e.Validate(state); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		A:      append([]int(nil), state.Games[0]...),
		B:      append([]int(nil), state.Games[1]...),
		Winner: state.Winner,
	}, nil
}

// Restore rebuilds a MatchScore from a persisted snapshot. Points restart at
// Love-Love. When the last recorded set is already closed and the match is
// not over, a fresh set is opened, as it would have been live.
func (e *Engine) Restore(snap Snapshot) (MatchScore, error) {
	if len(snap.A) != len(snap.B) {
		return MatchScore{}, invalidState("snapshot sets unaligned: %d vs %d", len(snap.A), len(snap.B))
	}
	if len(snap.A) == 0 {
		if snap.Winner != NoSide {
			return MatchScore{}, invalidState("snapshot has a winner but no sets")
		}
		return NewMatchScore(), nil
	}

	m := MatchScore{
		Games:      [2][]int{append([]int(nil), snap.A...), append([]int(nil), snap.B...)},
		CurrentSet: len(snap.A) - 1,
	}
	if err := m.validate(); err != nil {
		return MatchScore{}, err
	}

	wonA, wonB := m.SetsWon(SideA), m.SetsWon(SideB)
	switch {
	case wonA >= e.setsToWin && wonB >= e.setsToWin:
		return MatchScore{}, invalidState("both sides reached %d sets", e.setsToWin)
	case wonA >= e.setsToWin:
		m.Winner = SideA
	case wonB >= e.setsToWin:
		m.Winner = SideB
	}
	if snap.Winner != NoSide && snap.Winner != m.Winner {
		return MatchScore{}, invalidState("snapshot winner %s disagrees with set tally %d-%d", snap.Winner, wonA, wonB)
	}
	if m.Winner != NoSide {
		if at := decidingSet(m.Games, e.setsToWin); at != len(snap.A)-1 {
			return MatchScore{}, invalidState("snapshot has sets after the deciding set %d", at+1)
		}
	}

	if !m.Decided() && openSetClosed(m) {
		m.openSet()
	}
	return m, nil
}

// mutable guards the point-level mutations.
func (e *Engine) mutable(state MatchScore, side Side) error {
	if !side.Valid() {
		return invalidState("unknown side %d", side)
	}
	if err := e.Validate(state); err != nil {
		return err
	}
	if state.Decided() {
		return alreadyDecided(state.Winner)
	}
	return nil
}
