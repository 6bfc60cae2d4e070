package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// addRootFlags attaches the global flags and their validation to cmd.
func addRootFlags(cmd *cobra.Command, opts *RootOptions) {
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(ValidFormats, opts.Format) {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
		}
		return nil
	}
}

// NewRootCommand creates the padelctl command with every subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "padelctl",
		Short: "Offline tools for the padel scoring service",
		Long:  "Replay scoring scenarios through the match engine and move match data between store backends.",
	}
	addRootFlags(cmd, opts)

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	return cmd
}

// Standalone makes sub the root of its own binary, carrying the global flags.
func Standalone(build func(*RootOptions) *cobra.Command) *cobra.Command {
	opts := &RootOptions{}
	cmd := build(opts)
	addRootFlags(cmd, opts)
	return cmd
}
