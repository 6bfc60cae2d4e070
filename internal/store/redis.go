package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
)

const defaultRedisPrefix = "padel"

// RedisStore keeps each match as a JSON value with a set indexing all ids.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects to the server described by a redis:// URL.
func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStoreWithClient(rdb, defaultRedisPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client. Keys are namespaced
// under prefix.
func NewRedisStoreWithClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) Close() error { return r.rdb.Close() }

func (r *RedisStore) matchKey(id string) string   { return r.prefix + ":match:" + id }
func (r *RedisStore) matchIndex() string          { return r.prefix + ":matches" }
func (r *RedisStore) userKey(email string) string { return r.prefix + ":user:" + models.NormalizeEmail(email) }
func (r *RedisStore) userIndex() string           { return r.prefix + ":users" }

func (r *RedisStore) CreateMatch(ctx context.Context, m *models.Match) error {
	stampCreated(m, time.Now())
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", m.ID, err)
	}
	ok, err := r.rdb.SetNX(ctx, r.matchKey(m.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("creating match %s: %w", m.ID, err)
	}
	if !ok {
		return fmt.Errorf("match %s: %w", m.ID, ErrAlreadyExists)
	}
	if err := r.rdb.SAdd(ctx, r.matchIndex(), m.ID).Err(); err != nil {
		return fmt.Errorf("indexing match %s: %w", m.ID, err)
	}
	return nil
}

func (r *RedisStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	raw, err := r.rdb.Get(ctx, r.matchKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading match %s: %w", id, err)
	}
	var m models.Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding match %s: %w", id, err)
	}
	return &m, nil
}

func (r *RedisStore) replace(ctx context.Context, m *models.Match) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", m.ID, err)
	}
	ok, err := r.rdb.SetXX(ctx, r.matchKey(m.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("writing match %s: %w", m.ID, err)
	}
	if !ok {
		return fmt.Errorf("match %s: %w", m.ID, ErrNotFound)
	}
	return nil
}

func (r *RedisStore) UpdateMatch(ctx context.Context, m *models.Match) error {
	m.UpdatedAt = time.Now()
	return r.replace(ctx, m)
}

func (r *RedisStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	ids, err := r.rdb.SMembers(ctx, r.matchIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	matches := make([]*models.Match, 0, len(ids))
	if len(ids) == 0 {
		return matches, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.matchKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading matches: %w", err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // removed between SMEMBERS and MGET
		}
		var m models.Match
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		matches = append(matches, &m)
	}
	return models.FilterMatches(matches, filter), nil
}

func (r *RedisStore) DeleteMatch(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, r.matchKey(id)).Result()
	if err != nil {
		return fmt.Errorf("deleting match %s: %w", id, err)
	}
	if err := r.rdb.SRem(ctx, r.matchIndex(), id).Err(); err != nil {
		return fmt.Errorf("unindexing match %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *RedisStore) SaveScore(ctx context.Context, id string, snap scoring.Snapshot, status models.MatchStatus) (*models.Match, error) {
	m, err := r.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	applyScore(m, snap, status, time.Now())
	if err := r.replace(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *RedisStore) CreateLocalUser(ctx context.Context, u *models.LocalUser) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user %s: %w", u.Email, err)
	}
	ok, err := r.rdb.SetNX(ctx, r.userKey(u.Email), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.Email, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", u.Email, ErrAlreadyExists)
	}
	return r.rdb.SAdd(ctx, r.userIndex(), models.NormalizeEmail(u.Email)).Err()
}

func (r *RedisStore) GetLocalUser(ctx context.Context, email string) (*models.LocalUser, error) {
	raw, err := r.rdb.Get(ctx, r.userKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading user %s: %w", email, err)
	}
	var u models.LocalUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", email, err)
	}
	return &u, nil
}

func (r *RedisStore) ListLocalUsers(ctx context.Context) ([]*models.LocalUser, error) {
	emails, err := r.rdb.SMembers(ctx, r.userIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]*models.LocalUser, 0, len(emails))
	for _, e := range emails {
		u, err := r.GetLocalUser(ctx, e)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}
