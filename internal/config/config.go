// Package config loads server settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"padel-scoring/internal/store"
)

type Config struct {
	Port        string   `yaml:"port"`
	CORSOrigin  string   `yaml:"corsOrigin"`
	DevMode     bool     `yaml:"devMode"`
	AdminEmails []string `yaml:"adminEmails"`
	AuthSecret  string   `yaml:"authSecret"`
	LogLevel    string   `yaml:"logLevel"`

	Store   StoreConfig   `yaml:"store"`
	Scoring ScoringConfig `yaml:"scoring"`
}

type StoreConfig struct {
	Backend         string `yaml:"backend"`
	DataDir         string `yaml:"dataDir"`
	SQLitePath      string `yaml:"sqlitePath"`
	RedisURL        string `yaml:"redisURL"`
	GCPProjectID    string `yaml:"gcpProjectID"`
	FirestoreDB     string `yaml:"firestoreDatabase"`
	CredentialsFile string `yaml:"credentialsFile"`
}

type ScoringConfig struct {
	SetsToWin  int           `yaml:"setsToWin"`
	Autosave   bool          `yaml:"autosave"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

func Default() Config {
	return Config{
		Port:       "8080",
		CORSOrigin: "http://localhost:5173",
		LogLevel:   "info",
		Store: StoreConfig{
			Backend:    store.BackendMemory,
			DataDir:    "./data",
			SQLitePath: "./data/padel.db",
			RedisURL:   "redis://localhost:6379/0",
		},
		Scoring: ScoringConfig{
			SetsToWin:  2,
			Autosave:   true,
			SessionTTL: 2 * time.Hour,
		},
	}
}

// Load reads path (if not empty) over the defaults, then applies the
// process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from the environment variables the server
// has always read.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("CORS_ORIGIN", &c.CORSOrigin)
	str("AUTH_SECRET", &c.AuthSecret)
	str("LOG_LEVEL", &c.LogLevel)
	str("STORE_BACKEND", &c.Store.Backend)
	str("DATA_DIR", &c.Store.DataDir)
	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("REDIS_URL", &c.Store.RedisURL)
	str("GCP_PROJECT_ID", &c.Store.GCPProjectID)
	str("FIRESTORE_DATABASE", &c.Store.FirestoreDB)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.Store.CredentialsFile)

	if v := getenv("DEV_MODE"); v != "" {
		c.DevMode = v == "true"
	}
	if v := getenv("ADMIN_EMAILS"); v != "" {
		c.AdminEmails = nil
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(strings.ToLower(e)); e != "" {
				c.AdminEmails = append(c.AdminEmails, e)
			}
		}
	}
	if v := getenv("SETS_TO_WIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SETS_TO_WIN: %w", err)
		}
		c.Scoring.SetsToWin = n
	}
	if v := getenv("AUTOSAVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTOSAVE: %w", err)
		}
		c.Scoring.Autosave = b
	}
	if v := getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.Scoring.SessionTTL = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(store.Backends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("unknown store backend %q (want one of %s)", c.Store.Backend, strings.Join(store.Backends, ", ")))
	}
	if c.Store.Backend == store.BackendFirestore && c.Store.GCPProjectID == "" {
		errs = append(errs, errors.New("GCP_PROJECT_ID is required for the firestore backend"))
	}
	if c.Scoring.SetsToWin < 1 {
		errs = append(errs, fmt.Errorf("setsToWin must be at least 1, got %d", c.Scoring.SetsToWin))
	}
	if c.Scoring.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("sessionTTL must not be negative"))
	}
	if !c.DevMode && c.AuthSecret == "" {
		errs = append(errs, errors.New("AUTH_SECRET is required unless DEV_MODE is on"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend:    c.Store.Backend,
		DataDir:    c.Store.DataDir,
		SQLitePath: c.Store.SQLitePath,
		RedisURL:   c.Store.RedisURL,
		Firestore: store.FirestoreConfig{
			ProjectID:       c.Store.GCPProjectID,
			Database:        c.Store.FirestoreDB,
			CredentialsFile: c.Store.CredentialsFile,
		},
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
