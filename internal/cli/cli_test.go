package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
	"padel-scoring/internal/store"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

const scenarios = "../scenario/testdata/scenarios"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "padelctl", cmd.Use)
	for _, name := range []string{"replay", "migrate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestStandalone(t *testing.T) {
	cmd := Standalone(NewReplayCommand)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("format"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, cmd.Flags().Lookup("trace"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "replay", filepath.Join(scenarios, "corrections.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayText(t *testing.T) {
	out, err := execute(t, "replay", filepath.Join(scenarios, "deuce-advantage.yaml"), filepath.Join(scenarios, "match-point.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "PASS deuce-advantage")
	assert.Contains(t, out, "PASS match-point")
	assert.Contains(t, out, "Set 2")
	assert.Contains(t, out, "A *")
	assert.Contains(t, out, "2 passed, 0 failed")
}

func TestReplayTrace(t *testing.T) {
	out, err := execute(t, "replay", "--trace", filepath.Join(scenarios, "match-point.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "point_scored(a)")
	assert.Contains(t, out, "rejected=MATCH_ALREADY_DECIDED")
	assert.Contains(t, out, "6-3,7-5")
}

func TestReplayJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "replay", filepath.Join(scenarios, "match-point.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	sc := resp.Data.Scenarios[0]
	assert.Equal(t, "match-point", sc.Name)
	assert.Equal(t, scoring.SideA, sc.Winner)
	assert.Equal(t, 1, sc.Rejected)
	assert.Equal(t, scoring.SetScore{A: 2, B: 0}, sc.SetsWon)
	assert.True(t, sc.Passed)
}

func TestReplayFailedExpectation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: wrong
steps: [aaaa]
expect:
  games: {a: [0], b: [1]}
`), 0644))

	out, err := execute(t, "replay", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL wrong")
	assert.Contains(t, out, "games = 1-0, want 0-1")

	_, err = execute(t, "replay", "--no-check", path)
	assert.NoError(t, err)
}

func TestReplayBadFile(t *testing.T) {
	_, err := execute(t, "replay", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplaySetsToWinOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "straight.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: straight\nsteps: [aaaa*12]\n"), 0644))

	winner := func(args ...string) scoring.Side {
		t.Helper()
		out, err := execute(t, append([]string{"--format", "json", "replay"}, args...)...)
		require.NoError(t, err)
		var resp struct {
			Data ReplayResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.Scenarios[0].Winner
	}
	assert.Equal(t, scoring.SideA, winner(path))
	assert.Equal(t, scoring.NoSide, winner("--sets-to-win", "3", path))
}

func seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	for i, id := range []string{"m1", "m2"} {
		require.NoError(t, s.CreateMatch(ctx, &models.Match{
			ID:     id,
			Date:   time.Date(2026, 8, i+1, 18, 0, 0, 0, time.UTC),
			Team1:  []string{"Ana", "Bea"},
			Team2:  []string{"Carla", "Dani"},
			Status: models.StatusUpcoming,
		}))
	}
	_, err := s.SaveScore(ctx, "m2", scoring.Snapshot{A: []int{6, 6}, B: []int{1, 2}, Winner: scoring.SideA}, models.StatusCompleted)
	require.NoError(t, err)
	require.NoError(t, s.CreateLocalUser(ctx, &models.LocalUser{Email: "ana@club.es", Name: "Ana", PasswordHash: "h"}))
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryStore()
	seed(t, src)
	dst, err := store.OpenSQLite(filepath.Join(t.TempDir(), "padel.db"))
	require.NoError(t, err)
	defer dst.Close()

	log := (&OutputFormatter{Writer: &bytes.Buffer{}}).Logger()

	res, err := Migrate(ctx, src, dst, true, log)
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	all, err := dst.ListMatches(ctx, models.MatchFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	res, err = Migrate(ctx, src, dst, false, log)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Copied)
	assert.Equal(t, 0, res.Skipped)

	m2, err := dst.GetMatch(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, m2.Status)
	assert.Equal(t, scoring.SideA, m2.Score.Winner)
	assert.Equal(t, "Ana & Bea vs Carla & Dani", res.Items[0].Label)

	// Matches are imported verbatim again; the account already exists.
	res, err = Migrate(ctx, src, dst, false, log)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "already exists", res.Items[2].Reason)
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)
	seed(t, fs)

	dbPath := filepath.Join(dir, "padel.db")
	out, err := execute(t, "migrate", "--from", "file", "--from-dir", filepath.Join(dir, "data"), "--to", "sqlite", "--to-sqlite", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "3 copied, 0 skipped")

	_, err = execute(t, "migrate", "--from", "file", "--from-dir", filepath.Join(dir, "data"), "--to", "sqlite", "--to-sqlite", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "migrate", "--from", "file", "--to", "file")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "x", assert.AnError)))
}
