package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
)

// FileStore persists each match as a JSON file on disk.
// Files are stored as {dir}/{match-id}.json; accounts live in {dir}/_local_users.json.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, "_") || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	return filepath.Join(f.dir, id+".json"), nil
}

func (f *FileStore) readMatch(id string) (*models.Match, error) {
	p, err := f.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading match %s: %w", id, err)
	}

	var m models.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding match %s: %w", id, err)
	}
	return &m, nil
}

// writeJSON writes to a temp file then renames it into place.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (f *FileStore) writeMatch(m *models.Match) error {
	p, err := f.path(m.ID)
	if err != nil {
		return err
	}
	return writeJSON(p, m)
}

func (f *FileStore) CreateMatch(_ context.Context, m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, err := f.path(m.ID)
	if err != nil {
		return fmt.Errorf("invalid match id %q", m.ID)
	}
	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("match %s: %w", m.ID, ErrAlreadyExists)
	}

	stampCreated(m, time.Now())
	return f.writeMatch(m)
}

func (f *FileStore) GetMatch(_ context.Context, id string) (*models.Match, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.readMatch(id)
}

func (f *FileStore) UpdateMatch(_ context.Context, m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.readMatch(m.ID); err != nil {
		return err
	}

	m.UpdatedAt = time.Now()
	return f.writeMatch(m)
}

func (f *FileStore) ListMatches(_ context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("listing data directory: %w", err)
	}

	matches := make([]*models.Match, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		m, err := f.readMatch(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // skip corrupt files
		}
		matches = append(matches, m)
	}
	return models.FilterMatches(matches, filter), nil
}

func (f *FileStore) DeleteMatch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("match %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("deleting match %s: %w", id, err)
	}
	return nil
}

func (f *FileStore) SaveScore(_ context.Context, id string, snap scoring.Snapshot, status models.MatchStatus) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.readMatch(id)
	if err != nil {
		return nil, err
	}
	applyScore(m, snap, status, time.Now())
	if err := f.writeMatch(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *FileStore) localUsersPath() string {
	return filepath.Join(f.dir, "_local_users.json")
}

func (f *FileStore) readLocalUsers() (map[string]*models.LocalUser, error) {
	data, err := os.ReadFile(f.localUsersPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]*models.LocalUser), nil
		}
		return nil, fmt.Errorf("reading local users: %w", err)
	}
	var users map[string]*models.LocalUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decoding local users: %w", err)
	}
	if users == nil {
		users = make(map[string]*models.LocalUser)
	}
	return users, nil
}

func (f *FileStore) CreateLocalUser(_ context.Context, u *models.LocalUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.readLocalUsers()
	if err != nil {
		return err
	}

	key := models.NormalizeEmail(u.Email)
	if _, exists := users[key]; exists {
		return fmt.Errorf("user %s: %w", u.Email, ErrAlreadyExists)
	}

	users[key] = u
	return writeJSON(f.localUsersPath(), users)
}

func (f *FileStore) GetLocalUser(_ context.Context, email string) (*models.LocalUser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	users, err := f.readLocalUsers()
	if err != nil {
		return nil, err
	}

	u, ok := users[models.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, nil
}

func (f *FileStore) ListLocalUsers(_ context.Context) ([]*models.LocalUser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	users, err := f.readLocalUsers()
	if err != nil {
		return nil, err
	}

	result := make([]*models.LocalUser, 0, len(users))
	for _, u := range users {
		result = append(result, u)
	}
	return result, nil
}

func (f *FileStore) Close() error { return nil }
