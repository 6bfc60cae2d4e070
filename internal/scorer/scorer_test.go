package scorer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
	"padel-scoring/internal/store"
)

func setup(t *testing.T, opts ...Option) (*Manager, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	require.NoError(t, s.CreateMatch(context.Background(), &models.Match{
		ID:     "m1",
		Date:   time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
		Team1:  []string{"Ana", "Bea"},
		Team2:  []string{"Carla", "Dani"},
		Status: models.StatusUpcoming,
	}))
	return NewManager(s, opts...), s
}

// play scores a string of a/b points.
func play(t *testing.T, m *Manager, id, points string) Update {
	t.Helper()
	var up Update
	for _, c := range points {
		side := scoring.SideA
		if c == 'b' {
			side = scoring.SideB
		}
		var err error
		up, err = m.ScorePoint(context.Background(), id, side)
		require.NoError(t, err)
	}
	return up
}

func TestScorePointAutosavesOnGameWon(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t)

	up := play(t, m, "m1", "aaa")
	assert.Equal(t, Points{A: scoring.Forty, B: scoring.Love}, up.Points)
	assert.False(t, up.Saved)
	assert.True(t, up.Unsaved)

	up = play(t, m, "m1", "a")
	assert.Equal(t, scoring.SideA, up.Result.GameWon)
	assert.True(t, up.Saved)
	assert.False(t, up.Unsaved)
	assert.Equal(t, []scoring.SetScore{{A: 1, B: 0}}, up.Sets)

	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, scoring.Snapshot{A: []int{1}, B: []int{0}}, *stored.Score)
	assert.Equal(t, models.StatusInProgress, stored.Status)
}

func TestAutosaveOff(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t, WithAutosave(false))

	up := play(t, m, "m1", "aaaa")
	assert.False(t, up.Saved)

	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, stored.Score)

	saved, err := m.Save(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, saved.Status)
	assert.Equal(t, []int{1}, saved.Score.A)

	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, v.Unsaved)
}

func TestDeuceIsVisibleInView(t *testing.T) {
	m, _ := setup(t)

	up := play(t, m, "m1", "aaabbb")
	assert.True(t, up.Deuce)
	assert.Equal(t, Points{A: scoring.Deuce, B: scoring.Deuce}, up.Points)

	up = play(t, m, "m1", "b")
	assert.Equal(t, scoring.SideB, up.Advantage)
	assert.Equal(t, Points{A: scoring.Behind, B: scoring.Advantage}, up.Points)
}

func TestRejectedEventsLeaveStateAlone(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	play(t, m, "m1", "ab")
	_, err := m.CorrectPoint(ctx, "m1", scoring.SideB)
	require.NoError(t, err)

	_, err = m.CorrectPoint(ctx, "m1", scoring.SideB)
	assert.ErrorIs(t, err, scoring.ErrNothingToUndo)

	_, err = m.ScorePoint(ctx, "m1", scoring.NoSide)
	assert.ErrorIs(t, err, scoring.ErrInvalidState)

	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, Points{A: scoring.Fifteen, B: scoring.Love}, v.Points)
}

func TestResetGame(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	play(t, m, "m1", "aaaa"+"aabbb")
	up, err := m.ResetGame(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, Points{A: scoring.Love, B: scoring.Love}, up.Points)
	assert.False(t, up.Deuce)
	assert.Equal(t, []scoring.SetScore{{A: 1, B: 0}}, up.Sets)
}

func TestMatchWonIsPersistedAsCompleted(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t)

	up := play(t, m, "m1", strings.Repeat("aaaa", 12))
	assert.Equal(t, scoring.SideA, up.Result.MatchWon)
	assert.Equal(t, scoring.SideA, up.Winner)
	assert.True(t, up.Saved)

	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, scoring.SideA, stored.Score.Winner)

	_, err = m.ScorePoint(ctx, "m1", scoring.SideB)
	assert.ErrorIs(t, err, scoring.ErrMatchAlreadyDecided)
	_, err = m.ResetGame(ctx, "m1")
	assert.ErrorIs(t, err, scoring.ErrMatchAlreadyDecided)
}

func TestFinishEarly(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t)

	play(t, m, "m1", strings.Repeat("aaaa", 3)+"bb")
	match, err := m.Finish(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, match.Status)
	assert.Equal(t, scoring.Snapshot{A: []int{3}, B: []int{0}}, *match.Score)
	assert.Equal(t, 0, m.Active())

	// The reloaded session knows the match is over.
	_, err = m.ScorePoint(ctx, "m1", scoring.SideA)
	assert.ErrorIs(t, err, ErrMatchFinished)
	assert.ErrorIs(t, err, scoring.ErrMatchAlreadyDecided)

	_, err = m.Finish(ctx, "m1")
	assert.ErrorIs(t, err, ErrMatchFinished)
	_, err = m.Save(ctx, "m1")
	assert.ErrorIs(t, err, ErrMatchFinished)

	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, scoring.NoSide, stored.Score.Winner)

	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, v.Finished)
}

func TestResumeFromStoredScore(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t)
	_, err := s.SaveScore(ctx, "m1", scoring.Snapshot{A: []int{6, 2}, B: []int{3, 1}}, models.StatusInProgress)
	require.NoError(t, err)

	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []scoring.SetScore{{A: 6, B: 3}, {A: 2, B: 1}}, v.Sets)
	assert.Equal(t, 1, v.CurrentSet)
	assert.Equal(t, scoring.SetScore{A: 1, B: 0}, v.SetsWon)
	assert.Equal(t, Points{A: scoring.Love, B: scoring.Love}, v.Points)
}

func TestCorruptStoredScore(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t)
	_, err := s.SaveScore(ctx, "m1", scoring.Snapshot{A: []int{6, 2}, B: []int{1}}, models.StatusInProgress)
	require.NoError(t, err)

	_, err = m.View(ctx, "m1")
	assert.ErrorIs(t, err, scoring.ErrInvalidState)
	assert.Equal(t, 0, m.Active())
}

func TestUnknownMatch(t *testing.T) {
	m, _ := setup(t)
	_, err := m.ScorePoint(context.Background(), "nope", scoring.SideA)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, m.Active())
}

func TestForgetReloads(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	play(t, m, "m1", "aa")
	m.Forget("m1")

	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, Points{A: scoring.Love, B: scoring.Love}, v.Points)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)
	m, s := setup(t, WithSessionTTL(10*time.Minute), withClock(func() time.Time { return now }))

	play(t, m, "m1", strings.Repeat("bbbb", 2)+"b")
	assert.Equal(t, 1, m.Active())

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 0, m.Sweep(ctx))

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 1, m.Sweep(ctx))
	assert.Equal(t, 0, m.Active())

	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, stored.Score.B)
}

func TestSweepSavesBeforeEvictingWithoutAutosave(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)
	m, s := setup(t, WithAutosave(false), WithSessionTTL(10*time.Minute), withClock(func() time.Time { return now }))

	up := play(t, m, "m1", strings.Repeat("aaaa", 3))
	assert.True(t, up.Unsaved)
	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, stored.Score)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, m.Sweep(ctx))

	stored, err = s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, []int{3}, stored.Score.A)
	assert.Equal(t, models.StatusInProgress, stored.Status)

	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []scoring.SetScore{{A: 3, B: 0}}, v.Sets)
}

func TestEditKeepsLiveScore(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t, WithAutosave(false))
	play(t, m, "m1", "aaaa"+"bb")

	edited, err := m.Edit(ctx, "m1", func(match *models.Match) error {
		match.Team2 = []string{"Elena", "Fer"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, edited.Score.A)
	assert.Equal(t, 0, m.Active())

	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Elena", "Fer"}, stored.Team2)
	require.NotNil(t, stored.Score)
	assert.Equal(t, []int{1}, stored.Score.A)
	assert.Equal(t, []int{0}, stored.Score.B)

	// Points of the open game restart; recorded games survive the reload.
	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []scoring.SetScore{{A: 1, B: 0}}, v.Sets)
	assert.Equal(t, Points{A: scoring.Love, B: scoring.Love}, v.Points)
}

func TestEditErrors(t *testing.T) {
	ctx := context.Background()
	m, s := setup(t)
	play(t, m, "m1", "aaaa")

	_, err := m.Edit(ctx, "nope", func(*models.Match) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)

	boom := errors.New("boom")
	_, err = m.Edit(ctx, "m1", func(match *models.Match) error {
		match.Team1 = []string{"X", "Y"}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Bea"}, stored.Team1)
	assert.Equal(t, 0, m.Active())
}

func TestSweepWithoutTTL(t *testing.T) {
	m, _ := setup(t)
	play(t, m, "m1", "a")
	assert.Equal(t, 0, m.Sweep(context.Background()))
	assert.Equal(t, 1, m.Active())
}

func TestConcurrentPointsAreSerialized(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.ScorePoint(ctx, "m1", scoring.SideA)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := m.View(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []scoring.SetScore{{A: 6, B: 0}, {A: 4, B: 0}}, v.Sets)
	assert.Equal(t, scoring.SetScore{A: 1, B: 0}, v.SetsWon)
}

func TestBestOfFiveEngine(t *testing.T) {
	m, _ := setup(t, WithEngine(scoring.NewEngine(scoring.WithSetsToWin(3))))
	up := play(t, m, "m1", strings.Repeat("aaaa", 12))
	assert.Equal(t, scoring.NoSide, up.Winner)
	assert.Equal(t, 2, up.CurrentSet)
}
