package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
)

const (
	matchesCollection = "matches"
	usersCollection   = "localUsers"
)

// FirestoreStore is a Google Cloud Firestore-backed Store. Each match is a
// document in the "matches" collection keyed by its id.
type FirestoreStore struct {
	client *firestore.Client
}

type FirestoreConfig struct {
	ProjectID       string
	Database        string // empty selects the default database
	CredentialsFile string
}

func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	db := cfg.Database
	if db == "" {
		db = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, db, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (f *FirestoreStore) Close() error { return f.client.Close() }

// matchDoc is the stored document shape. Firestore cannot hold nested
// arrays, so the per-set games are kept as two flat arrays.
type matchDoc struct {
	Date       time.Time `firestore:"date"`
	Team1      []string  `firestore:"team1"`
	Team2      []string  `firestore:"team2"`
	HasScore   bool      `firestore:"hasScore"`
	GamesA     []int     `firestore:"gamesA"`
	GamesB     []int     `firestore:"gamesB"`
	Winner     string    `firestore:"winner"`
	Status     string    `firestore:"status"`
	OwnerEmail string    `firestore:"ownerEmail"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func toDoc(m *models.Match) matchDoc {
	d := matchDoc{
		Date:       m.Date,
		Team1:      m.Team1,
		Team2:      m.Team2,
		Status:     string(m.Status),
		OwnerEmail: m.OwnerEmail,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.Score != nil {
		d.HasScore = true
		d.GamesA = m.Score.A
		d.GamesB = m.Score.B
		d.Winner = m.Score.Winner.String()
	}
	return d
}

func (d matchDoc) toMatch(id string) (*models.Match, error) {
	m := &models.Match{
		ID:         id,
		Date:       d.Date,
		Team1:      d.Team1,
		Team2:      d.Team2,
		Status:     models.MatchStatus(d.Status),
		OwnerEmail: d.OwnerEmail,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.HasScore {
		w, err := scoring.ParseSide(d.Winner)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", id, err)
		}
		m.Score = &scoring.Snapshot{A: d.GamesA, B: d.GamesB, Winner: w}
	}
	return m, nil
}

func grpcCode(err error) codes.Code {
	return status.Code(err)
}

func (f *FirestoreStore) CreateMatch(ctx context.Context, m *models.Match) error {
	stampCreated(m, time.Now())
	_, err := f.client.Collection(matchesCollection).Doc(m.ID).Create(ctx, toDoc(m))
	if grpcCode(err) == codes.AlreadyExists {
		return fmt.Errorf("match %s: %w", m.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("creating match %s: %w", m.ID, err)
	}
	return nil
}

// ImportMatch writes m as-is, keeping its timestamps. Used by migrations.
func (f *FirestoreStore) ImportMatch(ctx context.Context, m *models.Match) error {
	if _, err := f.client.Collection(matchesCollection).Doc(m.ID).Set(ctx, toDoc(m)); err != nil {
		return fmt.Errorf("importing match %s: %w", m.ID, err)
	}
	return nil
}

func (f *FirestoreStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	snap, err := f.client.Collection(matchesCollection).Doc(id).Get(ctx)
	if grpcCode(err) == codes.NotFound {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading match %s: %w", id, err)
	}
	var d matchDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding match %s: %w", id, err)
	}
	return d.toMatch(id)
}

func (f *FirestoreStore) replace(ctx context.Context, m *models.Match) error {
	ref := f.client.Collection(matchesCollection).Doc(m.ID)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, toDoc(m))
	})
	if grpcCode(err) == codes.NotFound {
		return fmt.Errorf("match %s: %w", m.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("writing match %s: %w", m.ID, err)
	}
	return nil
}

func (f *FirestoreStore) UpdateMatch(ctx context.Context, m *models.Match) error {
	m.UpdatedAt = time.Now()
	return f.replace(ctx, m)
}

func (f *FirestoreStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	q := f.client.Collection(matchesCollection).Query
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status))
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	matches := make([]*models.Match, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing matches: %w", err)
		}
		var d matchDoc
		if err := snap.DataTo(&d); err != nil {
			continue
		}
		m, err := d.toMatch(snap.Ref.ID)
		if err != nil {
			continue
		}
		matches = append(matches, m)
	}
	return models.FilterMatches(matches, filter), nil
}

func (f *FirestoreStore) DeleteMatch(ctx context.Context, id string) error {
	_, err := f.client.Collection(matchesCollection).Doc(id).Delete(ctx, firestore.Exists)
	if grpcCode(err) == codes.NotFound {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting match %s: %w", id, err)
	}
	return nil
}

func (f *FirestoreStore) SaveScore(ctx context.Context, id string, snap scoring.Snapshot, st models.MatchStatus) (*models.Match, error) {
	m, err := f.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	applyScore(m, snap, st, time.Now())
	if err := f.replace(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

type userDoc struct {
	Email        string    `firestore:"email"`
	Name         string    `firestore:"name"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

func (f *FirestoreStore) CreateLocalUser(ctx context.Context, u *models.LocalUser) error {
	key := models.NormalizeEmail(u.Email)
	_, err := f.client.Collection(usersCollection).Doc(key).Create(ctx, userDoc{
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
	if grpcCode(err) == codes.AlreadyExists {
		return fmt.Errorf("user %s: %w", u.Email, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.Email, err)
	}
	return nil
}

func (f *FirestoreStore) GetLocalUser(ctx context.Context, email string) (*models.LocalUser, error) {
	snap, err := f.client.Collection(usersCollection).Doc(models.NormalizeEmail(email)).Get(ctx)
	if grpcCode(err) == codes.NotFound {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading user %s: %w", email, err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", email, err)
	}
	return &models.LocalUser{Email: d.Email, Name: d.Name, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt}, nil
}

func (f *FirestoreStore) ListLocalUsers(ctx context.Context) ([]*models.LocalUser, error) {
	docs, err := f.client.Collection(usersCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]*models.LocalUser, 0, len(docs))
	for _, snap := range docs {
		var d userDoc
		if err := snap.DataTo(&d); err != nil {
			continue
		}
		users = append(users, &models.LocalUser{Email: d.Email, Name: d.Name, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt})
	}
	return users, nil
}
