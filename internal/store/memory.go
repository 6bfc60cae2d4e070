package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
)

type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]*models.Match
	users   map[string]*models.LocalUser
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[string]*models.Match),
		users:   make(map[string]*models.LocalUser),
	}
}

func (m *MemoryStore) CreateMatch(_ context.Context, match *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.matches[match.ID]; exists {
		return fmt.Errorf("match %s: %w", match.ID, ErrAlreadyExists)
	}

	stampCreated(match, time.Now())
	m.matches[match.ID] = match.Clone()
	return nil
}

func (m *MemoryStore) GetMatch(_ context.Context, id string) (*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return match.Clone(), nil
}

func (m *MemoryStore) UpdateMatch(_ context.Context, match *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.matches[match.ID]; !ok {
		return fmt.Errorf("match %s: %w", match.ID, ErrNotFound)
	}

	match.UpdatedAt = time.Now()
	m.matches[match.ID] = match.Clone()
	return nil
}

func (m *MemoryStore) ListMatches(_ context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Match, 0, len(m.matches))
	for _, match := range m.matches {
		result = append(result, match.Clone())
	}
	return models.FilterMatches(result, filter), nil
}

func (m *MemoryStore) DeleteMatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.matches[id]; !ok {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	delete(m.matches, id)
	return nil
}

func (m *MemoryStore) SaveScore(_ context.Context, id string, snap scoring.Snapshot, status models.MatchStatus) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	match, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	applyScore(match, snap, status, time.Now())
	return match.Clone(), nil
}

func (m *MemoryStore) CreateLocalUser(_ context.Context, u *models.LocalUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.NormalizeEmail(u.Email)
	if _, exists := m.users[key]; exists {
		return fmt.Errorf("user %s: %w", u.Email, ErrAlreadyExists)
	}
	copied := *u
	m.users[key] = &copied
	return nil
}

func (m *MemoryStore) GetLocalUser(_ context.Context, email string) (*models.LocalUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[models.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (m *MemoryStore) ListLocalUsers(_ context.Context) ([]*models.LocalUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.LocalUser, 0, len(m.users))
	for _, u := range m.users {
		copied := *u
		result = append(result, &copied)
	}
	return result, nil
}

func (m *MemoryStore) Close() error { return nil }
