package scenario

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padel-scoring/internal/scoring"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		raw  string
		want []scoring.Event
	}{
		{"a", []scoring.Event{{Type: scoring.PointScored, Side: scoring.SideA}}},
		{"ab", []scoring.Event{
			{Type: scoring.PointScored, Side: scoring.SideA},
			{Type: scoring.PointScored, Side: scoring.SideB},
		}},
		{"b*3", []scoring.Event{
			{Type: scoring.PointScored, Side: scoring.SideB},
			{Type: scoring.PointScored, Side: scoring.SideB},
			{Type: scoring.PointScored, Side: scoring.SideB},
		}},
		{"undo b", []scoring.Event{{Type: scoring.PointCorrected, Side: scoring.SideB}}},
		{"Reset", []scoring.Event{{Type: scoring.GameReset}}},
		{"finish", []scoring.Event{{Type: scoring.MatchFinished}}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseStep(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStep_Errors(t *testing.T) {
	for _, raw := range []string{"", "c", "a*0", "a*x", "*2", "undo", "undo c", "reset now", "serve a"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseStep(raw)
			assert.Error(t, err)
		})
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "steps: [a]"},
		{"no steps", "name: x"},
		{"unknown field", "name: x\nsteps: [a]\nexpects: {}"},
		{"bad step", "name: x\nsteps: [q]"},
		{"multi event rejection", "name: x\nsteps:\n  - do: aa\n    reject: NOTHING_TO_UNDO"},
		{"bad label", "name: x\nsteps: [a]\nexpect:\n  points: ['0', '50']"},
		{"one sided points", "name: x\nsteps: [a]\nexpect:\n  points: ['0']"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_MixedStepForms(t *testing.T) {
	sc, err := Parse([]byte(`
name: mixed
steps:
  - aa
  - do: undo a
  - do: b
    reject: MATCH_ALREADY_DECIDED
`))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, Step{Do: "aa"}, sc.Steps[0])
	assert.Equal(t, Step{Do: "undo a"}, sc.Steps[1])
	assert.Equal(t, Step{Do: "b", Reject: scoring.CodeMatchAlreadyDecided}, sc.Steps[2])
}

func TestRun_UnexpectedRejectionFails(t *testing.T) {
	sc, err := Parse([]byte("name: x\nsteps:\n  - undo a"))
	require.NoError(t, err)

	_, err = Run(sc.Engine(), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrNothingToUndo)
}

func TestRun_MissingRejectionFails(t *testing.T) {
	sc, err := Parse([]byte("name: x\nsteps:\n  - do: a\n    reject: NOTHING_TO_UNDO"))
	require.NoError(t, err)

	_, err = Run(sc.Engine(), sc)
	assert.ErrorContains(t, err, "expected rejection")
}

func TestReport_CheckReportsMismatches(t *testing.T) {
	sc, err := Parse([]byte(`
name: wrong
steps: [aaaa]
expect:
  games: {a: [0], b: [1]}
  winner: b
`))
	require.NoError(t, err)

	rep, err := Run(sc.Engine(), sc)
	require.NoError(t, err)
	err = rep.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "games = 1-0, want 0-1")
	assert.Contains(t, err.Error(), "winner")
}

func TestScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := Load(path)
			require.NoError(t, err)

			rep, err := Run(sc.Engine(), sc)
			require.NoError(t, err)
			assert.NoError(t, rep.Check())
		})
	}
}

func TestScenarioTraces(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range []string{"deuce-advantage", "corrections", "match-point"} {
		t.Run(name, func(t *testing.T) {
			sc, err := Load(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			rep, err := Run(sc.Engine(), sc)
			require.NoError(t, err)
			g.Assert(t, name, rep.Text())
		})
	}
}
