package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptsync/internal/project"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Limit int
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <project-root>",
		Short: "Show whether an export is due and recent runs",
		Long: `Evaluate the export gate without exporting and list the most recent
export and import runs recorded for the project.

Example:
  scriptsync status ./MyGame --limit 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "number of recent runs to show")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command, root string) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --limit %d: must not be negative", opts.Limit))
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, cmd, root, sessionNeeds{store: true})
	if err != nil {
		return sessionError(err)
	}
	defer s.Close()

	report, err := s.runner.Status(ctx, opts.Limit)
	if err != nil {
		return handleRunError(s.formatter, "status failed", err)
	}
	return s.formatter.Success(formatStatus(report), report)
}

func formatStatus(report *project.StatusReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Archive: %s\n", report.Archive)
	if report.Decision.Run {
		fmt.Fprintf(&b, "Export due: yes (%s)\n", report.Decision.Reason)
	} else {
		fmt.Fprintf(&b, "Export due: no (%s)\n", report.Decision.Reason)
	}

	if len(report.Runs) == 0 {
		b.WriteString("No runs recorded")
		return b.String()
	}
	b.WriteString("Recent runs:")
	for _, r := range report.Runs {
		fmt.Fprintf(&b, "\n  %s  %-6s  %-9s  slots=%d files=%d warnings=%d",
			r.StartedAt.Local().Format(time.DateTime), r.Kind, r.Status, r.Slots, r.Files, r.Warnings)
		if r.Message != "" {
			fmt.Fprintf(&b, "  %s", r.Message)
		}
	}
	return b.String()
}
