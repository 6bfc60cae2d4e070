package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps matches and accounts in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

type matchRow struct {
	id, date, team1, team2 string
	status, owner          string
	created, updated       string
	score                  sql.NullString
}

func encodeMatch(m *models.Match) (matchRow, error) {
	r := matchRow{
		id:      m.ID,
		date:    formatTime(m.Date),
		status:  string(m.Status),
		owner:   m.OwnerEmail,
		created: formatTime(m.CreatedAt),
		updated: formatTime(m.UpdatedAt),
	}
	t1, err := json.Marshal(m.Team1)
	if err != nil {
		return r, err
	}
	t2, err := json.Marshal(m.Team2)
	if err != nil {
		return r, err
	}
	r.team1, r.team2 = string(t1), string(t2)
	if m.Score != nil {
		sc, err := json.Marshal(m.Score)
		if err != nil {
			return r, err
		}
		r.score = sql.NullString{String: string(sc), Valid: true}
	}
	return r, nil
}

func (r matchRow) decode() (*models.Match, error) {
	m := &models.Match{ID: r.id, Status: models.MatchStatus(r.status), OwnerEmail: r.owner}
	var err error
	if m.Date, err = parseTime(r.date); err != nil {
		return nil, fmt.Errorf("match %s date: %w", r.id, err)
	}
	if m.CreatedAt, err = parseTime(r.created); err != nil {
		return nil, fmt.Errorf("match %s created_at: %w", r.id, err)
	}
	if m.UpdatedAt, err = parseTime(r.updated); err != nil {
		return nil, fmt.Errorf("match %s updated_at: %w", r.id, err)
	}
	if err := json.Unmarshal([]byte(r.team1), &m.Team1); err != nil {
		return nil, fmt.Errorf("match %s team1: %w", r.id, err)
	}
	if err := json.Unmarshal([]byte(r.team2), &m.Team2); err != nil {
		return nil, fmt.Errorf("match %s team2: %w", r.id, err)
	}
	if r.score.Valid {
		var snap scoring.Snapshot
		if err := json.Unmarshal([]byte(r.score.String), &snap); err != nil {
			return nil, fmt.Errorf("match %s score: %w", r.id, err)
		}
		m.Score = &snap
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const matchColumns = `id, date, team1, team2, score, status, owner_email, created_at, updated_at`

func scanMatch(sc rowScanner) (*models.Match, error) {
	var r matchRow
	if err := sc.Scan(&r.id, &r.date, &r.team1, &r.team2, &r.score, &r.status, &r.owner, &r.created, &r.updated); err != nil {
		return nil, err
	}
	return r.decode()
}

func (s *SQLiteStore) CreateMatch(ctx context.Context, m *models.Match) error {
	stampCreated(m, time.Now())
	r, err := encodeMatch(m)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", m.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id, r.date, r.team1, r.team2, r.score, r.status, r.owner, r.created, r.updated)
	if isConstraint(err) {
		return fmt.Errorf("match %s: %w", m.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("inserting match %s: %w", m.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading match %s: %w", id, err)
	}
	return m, nil
}

func (s *SQLiteStore) UpdateMatch(ctx context.Context, m *models.Match) error {
	m.UpdatedAt = time.Now()
	r, err := encodeMatch(m)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", m.ID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET date = ?, team1 = ?, team2 = ?, score = ?, status = ?, owner_email = ?, updated_at = ? WHERE id = ?`,
		r.date, r.team1, r.team2, r.score, r.status, r.owner, r.updated, r.id)
	if err != nil {
		return fmt.Errorf("updating match %s: %w", m.ID, err)
	}
	return requireRow(res, m.ID)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE (? = '' OR status = ?) ORDER BY date DESC, id`,
		string(filter.Status), string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	return models.FilterMatches(matches, filter), nil
}

func (s *SQLiteStore) DeleteMatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting match %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) SaveScore(ctx context.Context, id string, snap scoring.Snapshot, status models.MatchStatus) (*models.Match, error) {
	m, err := s.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	applyScore(m, snap, status, time.Now())
	data, err := json.Marshal(m.Score)
	if err != nil {
		return nil, fmt.Errorf("encoding score %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET score = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(data), string(status), formatTime(m.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("saving score %s: %w", id, err)
	}
	if err := requireRow(res, id); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) CreateLocalUser(ctx context.Context, u *models.LocalUser) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_users (email, name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		models.NormalizeEmail(u.Email), u.Name, u.PasswordHash, formatTime(u.CreatedAt))
	if isConstraint(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("inserting user %s: %w", u.Email, err)
	}
	return nil
}

func scanUser(sc rowScanner) (*models.LocalUser, error) {
	var u models.LocalUser
	var created string
	if err := sc.Scan(&u.Email, &u.Name, &u.PasswordHash, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("user %s created_at: %w", u.Email, err)
	}
	u.CreatedAt = t
	return &u, nil
}

func (s *SQLiteStore) GetLocalUser(ctx context.Context, email string) (*models.LocalUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT email, name, password_hash, created_at FROM local_users WHERE email = ?`,
		models.NormalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading user %s: %w", email, err)
	}
	return u, nil
}

func (s *SQLiteStore) ListLocalUsers(ctx context.Context) ([]*models.LocalUser, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email, name, password_hash, created_at FROM local_users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.LocalUser, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ImportMatch writes m as-is, replacing any existing row.
func (s *SQLiteStore) ImportMatch(ctx context.Context, m *models.Match) error {
	r, err := encodeMatch(m)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", m.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id, r.date, r.team1, r.team2, r.score, r.status, r.owner, r.created, r.updated)
	if err != nil {
		return fmt.Errorf("importing match %s: %w", m.ID, err)
	}
	return nil
}
