package store

import (
	"context"
	"fmt"

	"padel-scoring/internal/models"
)

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendFirestore = "firestore"
)

var Backends = []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendFirestore}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	DataDir    string
	SQLitePath string
	RedisURL   string
	Firestore  FirestoreConfig
}

// Open builds the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return NewFileStore(opts.DataDir)
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL)
	case BackendFirestore:
		return NewFirestoreStore(ctx, opts.Firestore)
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}

// Importer is implemented by stores that can write a match verbatim,
// keeping its timestamps.
type Importer interface {
	ImportMatch(ctx context.Context, m *models.Match) error
}
