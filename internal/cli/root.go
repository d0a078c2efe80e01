package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptsync/internal/clock"
	"github.com/roach88/scriptsync/internal/hostcheck"
	"github.com/roach88/scriptsync/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	ConfigPath    string
	SkipHostCheck bool

	// Clock, RunIDs and HostLister override the system clock, the run id
	// generator and the process lister (for testing). Nil means the real
	// implementation.
	Clock      clock.Clock
	RunIDs     store.IDGenerator
	HostLister hostcheck.Lister
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scriptsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scriptsync",
		Short: "Keep RPG Maker script archives under version control",
		Long: `scriptsync unpacks a project's script archive (Data/Scripts.rvdata) into
one plain text file per script plus a manifest, and packs them back into an
archive with the same slot order, ids, names and empty slots.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default <project-root>/scriptsync.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.SkipHostCheck, "skip-host-check", false, "do not check whether the editor is running")

	// Add subcommands
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
