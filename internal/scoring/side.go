package scoring

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Side identifies one of the two pairs on court. The zero value NoSide
// stands for "nobody" wherever a side is optional (winner, advantage).
type Side uint8

const (
	NoSide Side = iota
	SideA
	SideB
)

// Sides lists both playing sides in display order.
var Sides = [2]Side{SideA, SideB}

// Valid reports whether s is SideA or SideB.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Other returns the opposing side. NoSide has no opponent.
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	}
	return NoSide
}

func (s Side) index() int {
	return int(s) - 1
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "a"
	case SideB:
		return "b"
	}
	return ""
}

// ParseSide accepts "a"/"b" as well as the "team1"/"team2" names used by
// older clients.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a", "team1", "1":
		return SideA, nil
	case "b", "team2", "2":
		return SideB, nil
	case "", "none", "null":
		return NoSide, nil
	}
	return NoSide, fmt.Errorf("unknown side %q", raw)
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON encodes NoSide as null so optional sides read naturally.
func (s Side) MarshalJSON() ([]byte, error) {
	if s == NoSide {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoSide
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("side must be a string: %w", err)
	}
	return s.UnmarshalText([]byte(raw))
}

// PointLabel is the per-side label of the game in progress.
//
// Love through Forty are the ordinary denominations. Deuce, Advantage and
// Behind only appear while the deuce flag of a MatchScore is set: both sides
// show Deuce, or the side ahead shows Advantage and the other shows Behind.
type PointLabel uint8

const (
	Love PointLabel = iota
	Fifteen
	Thirty
	Forty
	Deuce
	Advantage
	Behind
)

var pointLabelText = [...]string{
	Love:      "0",
	Fifteen:   "15",
	Thirty:    "30",
	Forty:     "40",
	Deuce:     "Deuce",
	Advantage: "Ad",
	Behind:    "-",
}

func (p PointLabel) String() string {
	if int(p) < len(pointLabelText) {
		return pointLabelText[p]
	}
	return fmt.Sprintf("PointLabel(%d)", uint8(p))
}

// regular reports whether p is one of Love, Fifteen, Thirty, Forty.
func (p PointLabel) regular() bool {
	return p <= Forty
}

// ParsePointLabel is the inverse of String.
func ParsePointLabel(raw string) (PointLabel, error) {
	for i, text := range pointLabelText {
		if strings.EqualFold(text, strings.TrimSpace(raw)) {
			return PointLabel(i), nil
		}
	}
	return Love, fmt.Errorf("unknown point label %q", raw)
}

func (p PointLabel) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PointLabel) UnmarshalText(text []byte) error {
	parsed, err := ParsePointLabel(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
