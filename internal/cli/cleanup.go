package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CleanupResult is the JSON payload of the cleanup command.
type CleanupResult struct {
	ScriptsDir string   `json:"scripts_dir"`
	Stale      []string `json:"stale"`
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup <project-root>",
		Short: "List script files the manifest no longer names",
		Long: `List files in the scripts directory that carry the script extension but
are not named by the manifest, typically left behind after scripts were
renamed or deleted in the editor. Nothing is deleted.

Example:
  scriptsync cleanup ./MyGame`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runCleanup(opts *RootOptions, cmd *cobra.Command, root string) error {
	s, err := openSession(cmd.Context(), opts, cmd, root, sessionNeeds{})
	if err != nil {
		return sessionError(err)
	}
	defer s.Close()

	stale, err := s.runner.Stale()
	if err != nil {
		return handleRunError(s.formatter, "cleanup failed", err)
	}

	result := CleanupResult{ScriptsDir: s.paths.ScriptsDir, Stale: stale}
	if result.Stale == nil {
		result.Stale = []string{}
	}
	if len(stale) == 0 {
		return s.formatter.Success("No stale script files", result)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d script files are not in the manifest:", len(stale))
	for _, name := range stale {
		fmt.Fprintf(&b, "\n  %s", name)
	}
	return s.formatter.Success(b.String(), result)
}
