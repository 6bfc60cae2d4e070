package store

import (
	"context"
	"errors"
	"time"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Store defines the interface for match persistence.
// Implementations can back this with in-memory storage, files, SQLite, Redis or Firestore.
// Writers are not coordinated: the last write for a match wins.
type Store interface {
	// Match CRUD
	CreateMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	UpdateMatch(ctx context.Context, m *models.Match) error
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)
	DeleteMatch(ctx context.Context, id string) error

	// SaveScore replaces the persisted score and status of a match and
	// returns the updated record.
	SaveScore(ctx context.Context, id string, snap scoring.Snapshot, status models.MatchStatus) (*models.Match, error)

	// Local accounts, keyed by normalized email
	CreateLocalUser(ctx context.Context, u *models.LocalUser) error
	GetLocalUser(ctx context.Context, email string) (*models.LocalUser, error)
	ListLocalUsers(ctx context.Context) ([]*models.LocalUser, error)

	Close() error
}

func stampCreated(m *models.Match, now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

func applyScore(m *models.Match, snap scoring.Snapshot, status models.MatchStatus, now time.Time) {
	s := scoring.Snapshot{
		A:      append([]int(nil), snap.A...),
		B:      append([]int(nil), snap.B...),
		Winner: snap.Winner,
	}
	m.Score = &s
	m.Status = status
	m.UpdatedAt = now
}
