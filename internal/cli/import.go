package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptsync/internal/project"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <project-root>",
		Short: "Rebuild the script archive from plain text files",
		Long: `Rebuild the project's script archive from the manifest and script files
in the scripts directory, keeping slot order, ids, names and empty slots.

A script file the manifest names but that is missing is imported as an
empty script and reported as a warning.

Example:
  scriptsync import ./MyGame`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runImport(opts *RootOptions, cmd *cobra.Command, root string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd, root, sessionNeeds{hostCheck: true, store: true})
	if err != nil {
		return sessionError(err)
	}
	defer s.Close()

	report, err := s.runner.Import(ctx)
	if err != nil {
		return handleRunError(s.formatter, "import failed", err)
	}
	return outputImport(s.formatter, report)
}

func outputImport(formatter *OutputFormatter, report *project.ImportReport) error {
	for _, w := range report.Warnings {
		formatter.Warn("%s is missing; slot %d imported as an empty script", w.Filename, w.Index)
	}
	formatter.VerboseLog("run %s", report.RunID)

	msg := fmt.Sprintf("Imported %d scripts into %d slots in %s", report.Files, report.Slots, report.Elapsed)
	if n := len(report.Missing); n > 0 {
		msg += fmt.Sprintf(" (%d missing)", n)
	}
	return formatter.Success(msg, report)
}
