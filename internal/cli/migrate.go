package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
	"padel-scoring/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	From   store.Options
	To     store.Options
	DryRun bool
}

// MigrateItem is one copied (or skipped) record.
type MigrateItem struct {
	Kind   string `json:"kind"` // "match" | "user"
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"` // "ok" | "skipped" | "dry-run"
	Reason string `json:"reason,omitempty"`
}

type MigrateResult struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Items   []MigrateItem `json:"items"`
	Copied  int           `json:"copied"`
	Skipped int           `json:"skipped"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy matches and accounts from one store backend to another",
		Long: `Copy every match and local account from a source store into a destination.

Stores that support it receive matches verbatim, keeping their original
timestamps. Records that already exist in the destination are skipped.

Exit codes:
  0 - Everything was copied
  1 - Some records were skipped
  2 - Command error (store could not be opened, etc.)

Examples:
  padelctl migrate --from file --from-dir ./data --to sqlite --to-sqlite ./padel.db
  padelctl migrate --from file --from-dir ./data --to firestore --to-project my-project
  padelctl migrate --from sqlite --from-sqlite ./padel.db --to redis --to-redis redis://localhost:6379/0 --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), opts, cmd)
		},
	}

	storeFlags(cmd, "from", &opts.From)
	storeFlags(cmd, "to", &opts.To)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list what would be copied without writing")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func storeFlags(cmd *cobra.Command, prefix string, o *store.Options) {
	fs := cmd.Flags()
	fs.StringVar(&o.Backend, prefix, "", fmt.Sprintf("%s backend (%v)", prefix, store.Backends))
	fs.StringVar(&o.DataDir, prefix+"-dir", "./data", "data directory for the file backend")
	fs.StringVar(&o.SQLitePath, prefix+"-sqlite", "./data/padel.db", "database path for the sqlite backend")
	fs.StringVar(&o.RedisURL, prefix+"-redis", "redis://localhost:6379/0", "url for the redis backend")
	fs.StringVar(&o.Firestore.ProjectID, prefix+"-project", "", "GCP project for the firestore backend")
	fs.StringVar(&o.Firestore.Database, prefix+"-database", "", "firestore database (default database when empty)")
	fs.StringVar(&o.Firestore.CredentialsFile, prefix+"-credentials", "", "service account key file for firestore")
}

func describe(o store.Options) string {
	switch o.Backend {
	case store.BackendFile:
		return "file:" + o.DataDir
	case store.BackendSQLite:
		return "sqlite:" + o.SQLitePath
	case store.BackendRedis:
		return o.RedisURL
	case store.BackendFirestore:
		return "firestore:" + o.Firestore.ProjectID
	}
	return o.Backend
}

func runMigrate(ctx context.Context, opts *MigrateOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)
	log := out.Logger()

	if opts.From == opts.To {
		return NewExitError(ExitCommandError, "source and destination are the same store")
	}
	src, err := store.Open(ctx, opts.From)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open source store", err)
	}
	defer src.Close()
	dst, err := store.Open(ctx, opts.To)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open destination store", err)
	}
	defer dst.Close()

	res, err := Migrate(ctx, src, dst, opts.DryRun, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "migration failed", err)
	}
	res.From, res.To = describe(opts.From), describe(opts.To)

	if err := out.Success(res, func(w io.Writer) error {
		fmt.Fprintf(w, "Migrating %s -> %s\n", res.From, res.To)
		rows := [][]string{{"Kind", "ID", "Label", "Status", "Reason"}}
		for _, it := range res.Items {
			rows = append(rows, []string{it.Kind, it.ID, it.Label, it.Status, it.Reason})
		}
		if err := out.Table(rows); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d copied, %d skipped\n", res.Copied, res.Skipped)
		return err
	}); err != nil {
		return err
	}
	if res.Skipped > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) skipped", res.Skipped))
	}
	return nil
}

// Migrate copies every match and local account from src to dst. Records
// that fail to write are reported as skipped; only listing errors abort.
func Migrate(ctx context.Context, src, dst store.Store, dryRun bool, log *slog.Logger) (*MigrateResult, error) {
	res := &MigrateResult{Items: make([]MigrateItem, 0)}
	record := func(it MigrateItem, err error) {
		switch {
		case dryRun:
			it.Status = "dry-run"
		case err != nil:
			it.Status = "skipped"
			it.Reason = err.Error()
			if errors.Is(err, store.ErrAlreadyExists) {
				it.Reason = "already exists"
			}
			res.Skipped++
			log.Warn("skipped", "kind", it.Kind, "id", it.ID, "error", err)
		default:
			it.Status = "ok"
			res.Copied++
			log.Debug("copied", "kind", it.Kind, "id", it.ID)
		}
		res.Items = append(res.Items, it)
	}

	matches, err := src.ListMatches(ctx, models.MatchFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	importer, verbatim := dst.(store.Importer)
	for _, m := range matches {
		it := MigrateItem{Kind: "match", ID: m.ID, Label: m.TeamName(scoring.SideA) + " vs " + m.TeamName(scoring.SideB)}
		if dryRun {
			record(it, nil)
			continue
		}
		if verbatim {
			err = importer.ImportMatch(ctx, m)
		} else {
			err = dst.CreateMatch(ctx, m)
		}
		record(it, err)
	}

	users, err := src.ListLocalUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	for _, u := range users {
		it := MigrateItem{Kind: "user", ID: u.Email, Label: u.Name}
		if dryRun {
			record(it, nil)
			continue
		}
		record(it, dst.CreateLocalUser(ctx, u))
	}
	return res, nil
}
