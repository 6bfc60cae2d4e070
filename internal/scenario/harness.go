package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"padel-scoring/internal/scoring"
)

// TraceLine records one applied (or rejected) event and the state after it.
type TraceLine struct {
	Seq      int
	Event    scoring.Event
	State    scoring.MatchScore
	Result   scoring.Result
	Rejected scoring.ErrorCode
	Snapshot *scoring.Snapshot
}

// Report is the outcome of running a scenario.
type Report struct {
	Scenario *Scenario
	Final    scoring.MatchScore
	Trace    []TraceLine
}

// Run drives every step of sc through e. A step rejected with a code other
// than the one it declares, or a declared rejection that does not happen,
// aborts the run.
func Run(e *scoring.Engine, sc *Scenario) (*Report, error) {
	state := e.NewMatch()
	if sc.Start != nil {
		restored, err := e.Restore(*sc.Start)
		if err != nil {
			return nil, fmt.Errorf("restoring start snapshot: %w", err)
		}
		state = restored
	}

	rep := &Report{Scenario: sc}
	seq := 0
	for i, step := range sc.Steps {
		events, err := ParseStep(step.Do)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		for _, ev := range events {
			seq++
			out, err := e.Apply(state, ev)
			line := TraceLine{Seq: seq, Event: ev, State: out.State, Result: out.Result, Snapshot: out.Snapshot}
			if err != nil {
				code := scoring.CodeOf(err)
				if code == "" || code != step.Reject {
					return nil, fmt.Errorf("steps[%d] %q: %w", i, step.Do, err)
				}
				line.Rejected = code
			} else if step.Reject != "" {
				return nil, fmt.Errorf("steps[%d] %q: expected rejection %s", i, step.Do, step.Reject)
			}
			rep.Trace = append(rep.Trace, line)
			state = out.State
		}
	}
	rep.Final = state
	return rep, nil
}

// Check evaluates the scenario's expectations against the final state and
// joins every mismatch into one error.
func (r *Report) Check() error {
	exp := r.Scenario.Expect
	if exp == nil {
		return nil
	}
	final := r.Final
	var errs []error

	if exp.Points != nil {
		got := []string{final.Points[0].String(), final.Points[1].String()}
		for i := range got {
			want, _ := scoring.ParsePointLabel(exp.Points[i])
			if final.Points[i] != want {
				errs = append(errs, fmt.Errorf("points = %v, want %v", got, exp.Points))
				break
			}
		}
	}
	if exp.Games != nil {
		if !slices.Equal(final.Games[0], exp.Games.A) || !slices.Equal(final.Games[1], exp.Games.B) {
			errs = append(errs, fmt.Errorf("games = %s, want %s", FormatGames(final.Games), FormatGames([2][]int{exp.Games.A, exp.Games.B})))
		}
	}
	if exp.Deuce != nil && final.Deuce != *exp.Deuce {
		errs = append(errs, fmt.Errorf("deuce = %t, want %t", final.Deuce, *exp.Deuce))
	}
	if exp.Advantage != nil && final.Advantage != *exp.Advantage {
		errs = append(errs, fmt.Errorf("advantage = %q, want %q", final.Advantage, *exp.Advantage))
	}
	if exp.Winner != nil && final.Winner != *exp.Winner {
		errs = append(errs, fmt.Errorf("winner = %q, want %q", final.Winner, *exp.Winner))
	}
	if exp.SetsWon != nil {
		got := []int{final.SetsWon(scoring.SideA), final.SetsWon(scoring.SideB)}
		if !slices.Equal(got, exp.SetsWon) {
			errs = append(errs, fmt.Errorf("setsWon = %v, want %v", got, exp.SetsWon))
		}
	}
	return errors.Join(errs...)
}

// Render writes the trace as one line per event followed by the final
// state. The format is stable and compared byte for byte in golden tests.
func (r *Report) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "scenario: %s\n", r.Scenario.Name); err != nil {
		return err
	}
	for _, line := range r.Trace {
		if _, err := fmt.Fprintf(w, "%03d %s %s%s\n", line.Seq, line.Event, formatState(line.State), formatLine(line)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "final %s\n", formatState(r.Final))
	return err
}

// Text is Render into a byte slice.
func (r *Report) Text() []byte {
	var buf bytes.Buffer
	_ = r.Render(&buf)
	return buf.Bytes()
}

func formatState(m scoring.MatchScore) string {
	s := fmt.Sprintf("points=%s/%s games=%s sets=%d-%d",
		m.Points[0], m.Points[1], FormatGames(m.Games), m.SetsWon(scoring.SideA), m.SetsWon(scoring.SideB))
	if m.Winner != scoring.NoSide {
		s += " winner=" + m.Winner.String()
	}
	return s
}

// Notes lists the boundaries the event crossed and any rejection, e.g.
// "game=a set=a".
func (l TraceLine) Notes() string {
	return strings.TrimSpace(formatLine(l))
}

func formatLine(line TraceLine) string {
	var b strings.Builder
	if line.Result.GameWon != scoring.NoSide {
		b.WriteString(" game=" + line.Result.GameWon.String())
	}
	if line.Result.SetWon != scoring.NoSide {
		b.WriteString(" set=" + line.Result.SetWon.String())
	}
	if line.Result.MatchWon != scoring.NoSide {
		b.WriteString(" match=" + line.Result.MatchWon.String())
	}
	if line.Rejected != "" {
		b.WriteString(" rejected=" + string(line.Rejected))
	}
	if line.Snapshot != nil {
		b.WriteString(" snapshot=" + FormatGames([2][]int{line.Snapshot.A, line.Snapshot.B}))
	}
	return b.String()
}

// FormatGames renders per-set games as "6-4,2-1".
func FormatGames(games [2][]int) string {
	n := max(len(games[0]), len(games[1]))
	parts := make([]string, n)
	for i := range parts {
		var a, b int
		if i < len(games[0]) {
			a = games[0][i]
		}
		if i < len(games[1]) {
			b = games[1][i]
		}
		parts[i] = fmt.Sprintf("%d-%d", a, b)
	}
	return strings.Join(parts, ",")
}
