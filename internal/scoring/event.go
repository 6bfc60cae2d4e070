package scoring

import "fmt"

// EventType names an inbound scorer intent.
type EventType string

const (
	PointScored    EventType = "point_scored"
	PointCorrected EventType = "point_corrected"
	GameReset      EventType = "game_reset"
	MatchFinished  EventType = "match_finished"
)

// Event is a single button press from the presentation layer. Side is only
// meaningful for PointScored and PointCorrected.
type Event struct {
	Type EventType `json:"type"`
	Side Side      `json:"side,omitempty"`
}

func (e Event) String() string {
	if e.Side != NoSide {
		return fmt.Sprintf("%s(%s)", e.Type, e.Side)
	}
	return string(e.Type)
}

// Outcome is what Apply produces for an accepted event. Snapshot is only
// set for MatchFinished.
type Outcome struct {
	State    MatchScore
	Result   Result
	Snapshot *Snapshot
}

// Apply routes ev to the matching engine operation. A rejected event
// returns the untouched input state inside the Outcome along with the error.
func (e *Engine) Apply(state MatchScore, ev Event) (Outcome, error) {
	switch ev.Type {
	case PointScored:
		next, res, err := e.ApplyPoint(state, ev.Side)
		if err != nil {
			return Outcome{State: state}, err
		}
		return Outcome{State: next, Result: res}, nil

	case PointCorrected:
		next, err := e.UndoLastPoint(state, ev.Side)
		if err != nil {
			return Outcome{State: state}, err
		}
		return Outcome{State: next}, nil

	case GameReset:
		next, err := e.ResetCurrentGame(state)
		if err != nil {
			return Outcome{State: state}, err
		}
		return Outcome{State: next}, nil

	case MatchFinished:
		snap, err := e.FinishMatch(state)
		if err != nil {
			return Outcome{State: state}, err
		}
		return Outcome{State: state, Snapshot: &snap}, nil
	}
	return Outcome{State: state}, invalidState("unknown event type %q", ev.Type)
}
