package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptsync/internal/config"
	"github.com/roach88/scriptsync/internal/hostcheck"
	"github.com/roach88/scriptsync/internal/project"
	"github.com/roach88/scriptsync/internal/store"
)

// session is the per-invocation state shared by the project commands.
type session struct {
	formatter *OutputFormatter
	logger    *slog.Logger
	config    config.Config
	paths     config.Paths
	store     *store.Store // nil unless requested
	runner    *project.Runner
}

// sessionNeeds selects the optional parts of a session.
type sessionNeeds struct {
	hostCheck bool
	store     bool
}

// errHostRunning stops a command after the host diagnostic was printed.
var errHostRunning = errors.New("host editor is running")

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession loads the project's config, configures logging, checks for
// a running editor and opens the state store. It returns errHostRunning
// after reporting when the editor is running; other errors are already
// reported ExitErrors.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, root string, needs sessionNeeds) (*session, error) {
	formatter := newFormatter(opts, cmd)

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfgPath, optional := opts.ConfigPath, false
	if cfgPath == "" {
		cfgPath, optional = filepath.Join(root, config.FileName), true
	}
	cfg, err := config.Load(cfgPath, optional)
	if err != nil {
		return nil, reportConfigFailure(formatter, err)
	}
	paths, err := cfg.Resolve(root)
	if err != nil {
		return nil, reportFailure(formatter, "failed to resolve project root", err)
	}
	logger.Debug("project resolved", "root", paths.Root, "archive", paths.Archive, "scripts", paths.ScriptsDir)

	if needs.hostCheck && !opts.SkipHostCheck {
		checker := hostcheck.New(cfg.HostProcesses)
		if opts.HostLister != nil {
			checker.List = opts.HostLister
		}
		name, running, err := checker.Running(ctx)
		if err != nil {
			// An unreadable process list should not block the user.
			logger.Warn("could not check for a running editor", "error", err)
		} else if running {
			_ = formatter.Notice(
				fmt.Sprintf("%s is running; close it before syncing scripts", name),
				"pass --skip-host-check to run anyway")
			return nil, errHostRunning
		}
	}

	s := &session{formatter: formatter, logger: logger, config: cfg, paths: paths}
	if needs.store {
		if err := os.MkdirAll(filepath.Dir(paths.StateFile), 0o755); err != nil {
			return nil, stateFailure(formatter, err)
		}
		var storeOpts []store.Option
		if opts.RunIDs != nil {
			storeOpts = append(storeOpts, store.WithIDGenerator(opts.RunIDs))
		}
		st, err := store.Open(paths.StateFile, storeOpts...)
		if err != nil {
			return nil, stateFailure(formatter, err)
		}
		s.store = st
	}

	// A nil *store.Store must not become a non-nil RunLog interface.
	var runs project.RunLog
	if s.store != nil {
		runs = s.store
	}
	s.runner = project.New(cfg, paths, runs, opts.Clock, logger)
	return s, nil
}

// Close releases the state store.
func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close state store", "path", s.paths.StateFile, "error", err)
	}
}

func reportConfigFailure(formatter *OutputFormatter, err error) error {
	hint := "fix " + config.FileName + " or pass --config"
	var vErr *config.ValidationError
	if errors.As(err, &vErr) {
		hint = "fix the values reported above in " + config.FileName
	}
	_ = formatter.Error(ErrCodeConfig, err.Error(), hint, nil)
	exitErr := WrapExitError(ExitCommandError, "failed to load config", err)
	exitErr.Reported = true
	return exitErr
}

func stateFailure(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeState, "failed to open state store: "+err.Error(), "delete the state file to start a fresh run history", nil)
	exitErr := WrapExitError(ExitCommandError, "failed to open state store", err)
	exitErr.Reported = true
	return exitErr
}

// handleRunError turns a runner error into command output. A missing input
// is a notice with exit code 0; anything else is a reported failure.
func handleRunError(formatter *OutputFormatter, message string, err error) error {
	var missing *project.InputMissingError
	if errors.As(err, &missing) {
		return formatter.Notice(missing.Error(), missing.Hint)
	}
	return reportFailure(formatter, message, err)
}

// sessionError converts openSession's error into the command's result.
func sessionError(err error) error {
	if errors.Is(err, errHostRunning) {
		return nil
	}
	return err
}
