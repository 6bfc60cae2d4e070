package scenario

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"padel-scoring/internal/scoring"
)

// Scenario is one scripted scoring session.
type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	SetsToWin   int               `yaml:"setsToWin,omitempty"`
	Start       *scoring.Snapshot `yaml:"start,omitempty"`
	Steps       []Step            `yaml:"steps"`
	Expect      *Expect           `yaml:"expect,omitempty"`
}

// Step is a single line of the script. Reject names the error code the
// step must be rejected with; a rejecting step must expand to exactly one
// event.
type Step struct {
	Do     string            `yaml:"do"`
	Reject scoring.ErrorCode `yaml:"reject,omitempty"`
}

// UnmarshalYAML accepts both the scalar shorthand and the mapping form.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Do = value.Value
		return nil
	}
	type plain Step
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Step(p)
	return nil
}

// Expect holds assertions on the final state. Nil fields are not checked.
type Expect struct {
	Points    []string          `yaml:"points,omitempty"`
	Games     *scoring.Snapshot `yaml:"games,omitempty"`
	Deuce     *bool             `yaml:"deuce,omitempty"`
	Advantage *scoring.Side     `yaml:"advantage,omitempty"`
	Winner    *scoring.Side     `yaml:"winner,omitempty"`
	SetsWon   []int             `yaml:"setsWon,omitempty"`
}

// Load reads and validates a scenario file. Unknown fields are rejected so
// typos in expectations do not silently pass.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", sc.Name, err)
	}
	return &sc, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must be non-empty")
	}
	if s.SetsToWin < 0 {
		return fmt.Errorf("setsToWin must be positive")
	}
	for i, step := range s.Steps {
		events, err := ParseStep(step.Do)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Reject != "" && len(events) != 1 {
			return fmt.Errorf("steps[%d]: a rejecting step must be a single event, got %d", i, len(events))
		}
	}
	if s.Expect != nil {
		if s.Expect.Points != nil && len(s.Expect.Points) != 2 {
			return fmt.Errorf("expect.points needs one label per side")
		}
		for _, p := range s.Expect.Points {
			if _, err := scoring.ParsePointLabel(p); err != nil {
				return fmt.Errorf("expect.points: %w", err)
			}
		}
		if s.Expect.SetsWon != nil && len(s.Expect.SetsWon) != 2 {
			return fmt.Errorf("expect.setsWon needs one count per side")
		}
	}
	return nil
}

// Engine builds the engine the scenario is written against.
func (s *Scenario) Engine() *scoring.Engine {
	return scoring.NewEngine(scoring.WithSetsToWin(s.SetsToWin))
}

// ParseStep expands one line of shorthand into engine events.
func ParseStep(raw string) ([]scoring.Event, error) {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty step")
	}

	switch fields[0] {
	case "reset":
		if len(fields) != 1 {
			return nil, fmt.Errorf("reset takes no argument")
		}
		return []scoring.Event{{Type: scoring.GameReset}}, nil
	case "finish":
		if len(fields) != 1 {
			return nil, fmt.Errorf("finish takes no argument")
		}
		return []scoring.Event{{Type: scoring.MatchFinished}}, nil
	case "undo":
		if len(fields) != 2 {
			return nil, fmt.Errorf("undo needs exactly one side")
		}
		side, err := scoring.ParseSide(fields[1])
		if err != nil || side == scoring.NoSide {
			return nil, fmt.Errorf("undo: unknown side %q", fields[1])
		}
		return []scoring.Event{{Type: scoring.PointCorrected, Side: side}}, nil
	}

	if len(fields) != 1 {
		return nil, fmt.Errorf("unknown step %q", raw)
	}
	return parsePoints(fields[0])
}

func parsePoints(token string) ([]scoring.Event, error) {
	pattern, times := token, 1
	if i := strings.IndexByte(token, '*'); i >= 0 {
		n, err := strconv.Atoi(token[i+1:])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad repeat count in %q", token)
		}
		pattern, times = token[:i], n
	}
	if pattern == "" {
		return nil, fmt.Errorf("empty point pattern in %q", token)
	}

	once := make([]scoring.Event, 0, len(pattern))
	for _, r := range pattern {
		switch r {
		case 'a':
			once = append(once, scoring.Event{Type: scoring.PointScored, Side: scoring.SideA})
		case 'b':
			once = append(once, scoring.Event{Type: scoring.PointScored, Side: scoring.SideB})
		default:
			return nil, fmt.Errorf("unknown point %q in %q", r, token)
		}
	}

	events := make([]scoring.Event, 0, len(once)*times)
	for range times {
		events = append(events, once...)
	}
	return events, nil
}
