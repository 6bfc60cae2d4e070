// Package scorer hosts live scoring sessions. Events for one match are
// applied one at a time, in arrival order, against the engine; the store is
// only touched on load, at game boundaries when autosave is on, and on
// explicit save or finish.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
	"padel-scoring/internal/store"
)

// ErrMatchFinished is returned for events on a match whose status is
// completed, even if it was ended before anyone won.
var ErrMatchFinished = &scoring.Error{Code: scoring.CodeMatchAlreadyDecided, Message: "match is finished"}

// Manager owns the live sessions of every match being scored.
type Manager struct {
	store    store.Store
	engine   *scoring.Engine
	log      *slog.Logger
	autosave bool
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu       sync.Mutex
	id       string
	loaded   bool
	closed   bool
	finished bool
	dirty    bool
	state    scoring.MatchScore
	lastUsed time.Time
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func WithEngine(e *scoring.Engine) Option {
	return func(m *Manager) {
		if e != nil {
			m.engine = e
		}
	}
}

// WithAutosave persists the snapshot whenever a game is won.
func WithAutosave(on bool) Option {
	return func(m *Manager) { m.autosave = on }
}

// WithSessionTTL sets how long an idle session is kept by Sweep. Zero
// keeps sessions forever.
func WithSessionTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

func withClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		engine:   scoring.NewEngine(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		autosave: true,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Engine returns the engine sessions are scored with.
func (m *Manager) Engine() *scoring.Engine { return m.engine }

// acquire returns the locked session for id, loading it from the store on
// first use. The caller must unlock it.
func (m *Manager) acquire(ctx context.Context, id string) (*session, error) {
	for {
		m.mu.Lock()
		s, ok := m.sessions[id]
		if !ok {
			s = &session{id: id}
			m.sessions[id] = s
		}
		m.mu.Unlock()

		s.mu.Lock()
		if s.closed {
			// Finished or evicted while we waited; look again.
			s.mu.Unlock()
			continue
		}
		if !s.loaded {
			if err := m.load(ctx, s); err != nil {
				s.closed = true
				m.drop(s)
				s.mu.Unlock()
				return nil, err
			}
		}
		s.lastUsed = m.now()
		return s, nil
	}
}

func (m *Manager) load(ctx context.Context, s *session) error {
	match, err := m.store.GetMatch(ctx, s.id)
	if err != nil {
		return err
	}
	state := m.engine.NewMatch()
	if match.Score != nil {
		state, err = m.engine.Restore(*match.Score)
		if err != nil {
			return fmt.Errorf("restoring match %s: %w", s.id, err)
		}
	}
	s.state = state
	s.finished = match.Status == models.StatusCompleted
	s.loaded = true
	m.log.Debug("session loaded", "match", s.id, "sets", len(state.Games[0]), "finished", s.finished)
	return nil
}

// drop removes s from the session table if it is still the current one.
func (m *Manager) drop(s *session) {
	m.mu.Lock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()
}

// Edit runs fn on the stored record of id and writes the result back while
// holding the match's session, so no autosave can land in between. A live
// session's score replaces the stored one before fn runs. The session is
// closed afterwards and the next event reloads the edited record.
func (m *Manager) Edit(ctx context.Context, id string, fn func(*models.Match) error) (*models.Match, error) {
	for {
		m.mu.Lock()
		s, ok := m.sessions[id]
		if !ok {
			s = &session{id: id}
			m.sessions[id] = s
		}
		m.mu.Unlock()

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			continue
		}
		match, err := m.edit(ctx, s, fn)
		s.closed = true
		m.drop(s)
		s.mu.Unlock()
		return match, err
	}
}

func (m *Manager) edit(ctx context.Context, s *session, fn func(*models.Match) error) (*models.Match, error) {
	match, err := m.store.GetMatch(ctx, s.id)
	if err != nil {
		return nil, err
	}
	if s.loaded && !s.finished {
		snap := m.snapshot(s)
		match.Score = &snap
	}
	if err := fn(match); err != nil {
		return nil, err
	}
	if err := m.store.UpdateMatch(ctx, match); err != nil {
		return nil, err
	}
	m.log.Info("match edited", "match", s.id, "status", match.Status, "unsavedKept", s.dirty)
	return match, nil
}

// Forget discards any session for id without saving it. Handlers call it
// when a match is edited or deleted behind the scorer's back.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	}
}

// Active reports the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// View returns the live state of a match.
func (m *Manager) View(ctx context.Context, id string) (View, error) {
	s, err := m.acquire(ctx, id)
	if err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()
	return m.view(s), nil
}

// ScorePoint awards a point to side.
func (m *Manager) ScorePoint(ctx context.Context, id string, side scoring.Side) (Update, error) {
	return m.apply(ctx, id, scoring.Event{Type: scoring.PointScored, Side: side})
}

// CorrectPoint takes back the last point of side in the current game.
func (m *Manager) CorrectPoint(ctx context.Context, id string, side scoring.Side) (Update, error) {
	return m.apply(ctx, id, scoring.Event{Type: scoring.PointCorrected, Side: side})
}

// ResetGame puts the current game back to Love-Love.
func (m *Manager) ResetGame(ctx context.Context, id string) (Update, error) {
	return m.apply(ctx, id, scoring.Event{Type: scoring.GameReset})
}

func (m *Manager) apply(ctx context.Context, id string, ev scoring.Event) (Update, error) {
	s, err := m.acquire(ctx, id)
	if err != nil {
		return Update{}, err
	}
	defer s.mu.Unlock()

	if s.finished {
		return Update{}, ErrMatchFinished
	}

	out, err := m.engine.Apply(s.state, ev)
	if err != nil {
		m.log.Debug("event rejected", "match", id, "event", ev.String(), "code", scoring.CodeOf(err))
		return Update{}, err
	}
	s.state = out.State
	s.dirty = true

	up := Update{Result: out.Result}
	if out.Result.GameWon != scoring.NoSide {
		m.log.Info("game won", "match", id, "side", out.Result.GameWon.String(),
			"set", out.State.CurrentSet+1, "setWon", out.Result.SetWon != scoring.NoSide)
	}
	if out.Result.MatchWon != scoring.NoSide {
		m.log.Info("match won", "match", id, "side", out.Result.MatchWon.String())
	}
	if m.autosave && out.Result.GameWon != scoring.NoSide {
		if _, err := m.persist(ctx, s, models.StatusFor(m.snapshot(s))); err != nil {
			// The point stands; the caller can retry with an explicit save.
			m.log.Warn("autosave failed", "match", id, "error", err)
		} else {
			up.Saved = true
		}
	}
	up.View = m.view(s)
	return up, nil
}

func (m *Manager) snapshot(s *session) scoring.Snapshot {
	snap, err := m.engine.FinishMatch(s.state)
	if err != nil {
		// Session states only ever come out of the engine.
		panic(fmt.Sprintf("scorer: session %s holds an invalid state: %v", s.id, err))
	}
	return snap
}

func (m *Manager) persist(ctx context.Context, s *session, status models.MatchStatus) (*models.Match, error) {
	match, err := m.store.SaveScore(ctx, s.id, m.snapshot(s), status)
	if err != nil {
		return nil, err
	}
	s.dirty = false
	return match, nil
}

// Save persists the current projection. The status becomes completed if
// the match has a winner, in progress otherwise.
func (m *Manager) Save(ctx context.Context, id string) (*models.Match, error) {
	s, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if s.finished {
		return nil, ErrMatchFinished
	}
	match, err := m.persist(ctx, s, models.StatusFor(m.snapshot(s)))
	if err != nil {
		return nil, fmt.Errorf("saving match %s: %w", id, err)
	}
	m.log.Info("match saved", "match", id, "status", match.Status)
	return match, nil
}

// Finish ends the match now: the projection is persisted as completed and
// the session is closed. The winner stays empty unless someone had won.
func (m *Manager) Finish(ctx context.Context, id string) (*models.Match, error) {
	s, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if s.finished {
		return nil, ErrMatchFinished
	}
	out, err := m.engine.Apply(s.state, scoring.Event{Type: scoring.MatchFinished})
	if err != nil {
		return nil, err
	}
	match, err := m.store.SaveScore(ctx, id, *out.Snapshot, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("finishing match %s: %w", id, err)
	}
	s.closed = true
	m.drop(s)
	m.log.Info("match finished", "match", id, "winner", out.Snapshot.Winner.String())
	return match, nil
}

// Sweep evicts sessions idle for longer than the TTL. Unsaved changes are
// saved first whatever the autosave setting; a session whose save fails is
// kept. It returns the number evicted.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	evicted := 0
	for _, s := range all {
		s.mu.Lock()
		if s.closed || !s.loaded || s.lastUsed.After(cutoff) {
			s.mu.Unlock()
			continue
		}
		if s.dirty && !s.finished {
			if _, err := m.persist(ctx, s, models.StatusFor(m.snapshot(s))); err != nil && !errors.Is(err, store.ErrNotFound) {
				m.log.Warn("saving idle session failed", "match", s.id, "error", err)
				s.mu.Unlock()
				continue
			}
		}
		s.closed = true
		m.drop(s)
		s.mu.Unlock()
		evicted++
		m.log.Debug("session evicted", "match", s.id)
	}
	return evicted
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(ctx); n > 0 {
				m.log.Info("evicted idle sessions", "count", n)
			}
		}
	}
}
