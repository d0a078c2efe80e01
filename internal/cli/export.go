package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptsync/internal/project"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Force bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <project-root>",
		Short: "Unpack the script archive into plain text files",
		Long: `Unpack the project's script archive into one file per script plus a
fixed-width manifest in the scripts directory.

The export is skipped when the archive has not changed since the last
successful export and the manifest still exists. Pass --force to export
anyway.

Example:
  scriptsync export ./MyGame
  scriptsync export ./MyGame --force --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "export even if the archive is unchanged")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command, root string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, cmd, root, sessionNeeds{hostCheck: true, store: true})
	if err != nil {
		return sessionError(err)
	}
	defer s.Close()

	report, err := s.runner.Export(ctx, opts.Force)
	if err != nil {
		return handleRunError(s.formatter, "export failed", err)
	}
	return outputExport(s.formatter, report)
}

func outputExport(formatter *OutputFormatter, report *project.ExportReport) error {
	if report.Skipped {
		if formatter.Format == "json" {
			return formatter.Success("", report)
		}
		return formatter.Notice("No scripts need to be exported", "pass --force to export anyway")
	}
	formatter.VerboseLog("run %s (%s)", report.RunID, report.Reason)
	return formatter.Success(
		fmt.Sprintf("Exported %d scripts from %d slots in %s", report.Files, report.Slots, report.Elapsed),
		report)
}
