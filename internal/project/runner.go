package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/scriptsync/internal/clock"
	"github.com/roach88/scriptsync/internal/config"
	"github.com/roach88/scriptsync/internal/manifest"
	"github.com/roach88/scriptsync/internal/store"
	"github.com/roach88/scriptsync/internal/transcode"
)

// RunLog records run history. *store.Store implements it.
type RunLog interface {
	BeginRun(ctx context.Context, kind store.RunKind, startedAt time.Time) (string, error)
	FinishRun(ctx context.Context, id string, out store.Outcome) error
	LastSuccess(ctx context.Context, kind store.RunKind) (store.Run, bool, error)
	RecentRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// Runner executes commands for one project.
type Runner struct {
	Config config.Config
	Paths  config.Paths
	Runs   RunLog
	Clock  clock.Clock
	Logger *slog.Logger
}

// New creates a Runner. A nil clock or logger falls back to the system
// clock and slog.Default().
func New(cfg config.Config, paths config.Paths, runs RunLog, clk clock.Clock, logger *slog.Logger) *Runner {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Config: cfg, Paths: paths, Runs: runs, Clock: clk, Logger: logger}
}

func (r *Runner) options() transcode.Options {
	return transcode.Options{
		Layout:       r.Config.Layout(),
		Extension:    r.Config.Extension,
		ManifestName: filepath.ToSlash(r.Config.ManifestFile),
	}
}

// finish records the outcome of a run. A store failure is logged but does
// not mask the run's own error. The outcome is recorded even when ctx was
// canceled, so an interrupted run ends up failed rather than running.
func (r *Runner) finish(ctx context.Context, id string, out store.Outcome, runErr error) {
	ctx = context.WithoutCancel(ctx)
	out.FinishedAt = r.Clock.Now()
	if runErr != nil {
		out.Status = store.StatusFailed
		out.Message = runErr.Error()
	}
	if err := r.Runs.FinishRun(ctx, id, out); err != nil {
		r.Logger.Error("failed to record run outcome", "run", id, "error", err)
	}
}

// gateInput gathers the staleness gate's inputs from disk and history.
func (r *Runner) gateInput(ctx context.Context, force bool) (transcode.GateInput, error) {
	info, err := os.Stat(r.Paths.Archive)
	if err != nil {
		return transcode.GateInput{}, err
	}
	manifestExists, err := exists(r.Paths.Manifest)
	if err != nil {
		return transcode.GateInput{}, err
	}
	last, ok, err := r.Runs.LastSuccess(ctx, store.KindExport)
	if err != nil {
		return transcode.GateInput{}, err
	}
	return transcode.GateInput{
		ArchiveModTime: info.ModTime(),
		LastRun:        last.StartedAt,
		HasLastRun:     ok,
		ManifestExists: manifestExists,
		Force:          force,
	}, nil
}

// checkArchive returns an InputMissingError when the archive directory or
// file is absent.
func (r *Runner) checkArchive() error {
	ok, err := isDir(r.Paths.ArchiveDir)
	if err != nil {
		return err
	}
	if !ok {
		return &InputMissingError{
			What: "archive directory",
			Path: r.Paths.ArchiveDir,
			Hint: "check that archive_dir in " + config.FileName + " points at the project's data directory",
		}
	}
	ok, err = exists(r.Paths.Archive)
	if err != nil {
		return err
	}
	if !ok {
		return &InputMissingError{
			What: "archive",
			Path: r.Paths.Archive,
			Hint: "check archive_file in " + config.FileName + "; has the project been saved yet?",
		}
	}
	return nil
}

// ExportReport summarizes an export.
type ExportReport struct {
	RunID    string           `json:"run_id,omitempty"`
	Skipped  bool             `json:"skipped"`
	Reason   transcode.Reason `json:"reason"`
	Slots    int              `json:"slots"`
	Files    int              `json:"files"`
	Manifest string           `json:"manifest"`
	Elapsed  time.Duration    `json:"elapsed_ns"`
}

// Export writes the manifest and one file per script into the scripts
// directory, unless the staleness gate finds nothing changed since the last
// successful export.
func (r *Runner) Export(ctx context.Context, force bool) (*ExportReport, error) {
	if err := r.checkArchive(); err != nil {
		return nil, err
	}

	in, err := r.gateInput(ctx, force)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	decision := transcode.Gate{}.Decide(in)
	report := &ExportReport{Reason: decision.Reason, Manifest: r.Paths.Manifest}
	if !decision.Run {
		r.Logger.Info("no scripts need to be exported", "archive", r.Paths.Archive, "reason", decision.Reason)
		report.Skipped = true
		return report, nil
	}
	r.Logger.Debug("export needed", "reason", decision.Reason)

	start := r.Clock.Now()
	id, err := r.Runs.BeginRun(ctx, store.KindExport, start)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	report.RunID = id

	out, err := r.export(ctx, report)
	r.finish(ctx, id, out, err)
	if err != nil {
		return nil, err
	}
	report.Elapsed = r.Clock.Now().Sub(start)
	r.Logger.Info("export finished", "slots", report.Slots, "files", report.Files, "elapsed", report.Elapsed)
	return report, nil
}

func (r *Runner) export(ctx context.Context, report *ExportReport) (store.Outcome, error) {
	out := store.Outcome{Status: store.StatusSucceeded}

	data, err := os.ReadFile(r.Paths.Archive)
	if err != nil {
		return out, fmt.Errorf("export: %w", err)
	}
	out.ArchiveDigest = digest(data)

	res, err := transcode.Export(data, r.options())
	if err != nil {
		return out, err
	}
	out.Slots = len(res.Records)
	report.Slots = out.Slots

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if err := os.MkdirAll(r.Paths.ScriptsDir, 0o755); err != nil {
		return out, fmt.Errorf("export: %w", err)
	}
	if err := writeFileAtomic(r.Paths.Manifest, res.Manifest); err != nil {
		return out, fmt.Errorf("export: write manifest: %w", err)
	}

	for i, f := range res.Files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := writeFileAtomic(filepath.Join(r.Paths.ScriptsDir, f.Name), f.Content); err != nil {
			return out, fmt.Errorf("export: write %s: %w", f.Name, err)
		}
		out.Files++
		r.Logger.Debug("exported script", "file", f.Name, "progress", progress(i+1, len(res.Files)))
	}
	report.Files = out.Files
	return out, nil
}

// ImportReport summarizes an import.
type ImportReport struct {
	RunID    string              `json:"run_id"`
	Slots    int                 `json:"slots"`
	Files    int                 `json:"files"`
	Missing  []string            `json:"missing,omitempty"`
	Archive  string              `json:"archive"`
	Elapsed  time.Duration       `json:"elapsed_ns"`
	Warnings []transcode.Warning `json:"-"`
}

// Import rebuilds the archive from the manifest and script files. Missing
// script files are reported as warnings and imported as empty scripts.
func (r *Runner) Import(ctx context.Context) (*ImportReport, error) {
	ok, err := isDir(r.Paths.ScriptsDir)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if !ok {
		return nil, &InputMissingError{What: "scripts directory", Path: r.Paths.ScriptsDir, Hint: "nothing to import"}
	}
	ok, err = exists(r.Paths.Manifest)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if !ok {
		return nil, &InputMissingError{What: "manifest", Path: r.Paths.Manifest, Hint: "nothing to import; run export first"}
	}
	ok, err = isDir(r.Paths.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("import: archive directory %s does not exist; check archive_dir in %s", r.Paths.ArchiveDir, config.FileName)
	}

	start := r.Clock.Now()
	id, err := r.Runs.BeginRun(ctx, store.KindImport, start)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	report := &ImportReport{RunID: id, Archive: r.Paths.Archive}

	out, err := r.importScripts(ctx, report)
	r.finish(ctx, id, out, err)
	if err != nil {
		return nil, err
	}
	report.Elapsed = r.Clock.Now().Sub(start)
	r.Logger.Info("import finished", "slots", report.Slots, "files", report.Files, "missing", len(report.Missing), "elapsed", report.Elapsed)
	return report, nil
}

func (r *Runner) importScripts(ctx context.Context, report *ImportReport) (store.Outcome, error) {
	out := store.Outcome{Status: store.StatusSucceeded}

	text, err := os.ReadFile(r.Paths.Manifest)
	if err != nil {
		return out, fmt.Errorf("import: %w", err)
	}

	dir := transcode.DirLookup{FS: os.DirFS(r.Paths.ScriptsDir)}
	lookup := transcode.LookupFunc(func(name string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return dir.Lookup(name)
	})
	res, err := transcode.Import(text, lookup, r.options())
	if err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	for _, w := range res.Warnings {
		r.Logger.Warn("script file missing; importing it as empty",
			"file", filepath.Join(r.Paths.ScriptsDir, w.Filename),
			"slot", w.Index,
			"hint", "if you use version control, check whether this script was committed")
		report.Missing = append(report.Missing, w.Filename)
	}
	report.Warnings = res.Warnings

	if err := writeFileAtomic(r.Paths.Archive, res.Archive); err != nil {
		return out, fmt.Errorf("import: write archive: %w", err)
	}

	out.Slots, out.Files, out.Warnings = res.Slots, res.Files, len(res.Warnings)
	out.ArchiveDigest = digest(res.Archive)
	report.Slots, report.Files = res.Slots, res.Files
	return out, nil
}

// Stale lists script files in the scripts directory that the manifest no
// longer names. The manifest itself is never listed.
func (r *Runner) Stale() ([]string, error) {
	text, err := os.ReadFile(r.Paths.Manifest)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &InputMissingError{What: "manifest", Path: r.Paths.Manifest, Hint: "have you exported your scripts yet?"}
	}
	if err != nil {
		return nil, err
	}
	records, err := manifest.Decode(text, r.Config.Layout())
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.Paths.ScriptsDir)
	if err != nil {
		return nil, err
	}
	var manifestName string
	if filepath.Dir(r.Paths.Manifest) == r.Paths.ScriptsDir {
		manifestName = filepath.Base(r.Paths.Manifest)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.EqualFold(e.Name(), manifestName) {
			names = append(names, e.Name())
		}
	}
	return manifest.Stale(records, names, r.Config.Extension), nil
}

// StatusReport describes whether an export is due and recent history.
type StatusReport struct {
	Archive  string             `json:"archive"`
	Decision transcode.Decision `json:"decision"`
	Runs     []store.Run        `json:"runs"`
}

// Status evaluates the staleness gate without exporting and lists up to
// limit recent runs.
func (r *Runner) Status(ctx context.Context, limit int) (*StatusReport, error) {
	if err := r.checkArchive(); err != nil {
		return nil, err
	}
	in, err := r.gateInput(ctx, false)
	if err != nil {
		return nil, err
	}
	runs, err := r.Runs.RecentRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		Archive:  r.Paths.Archive,
		Decision: transcode.Gate{}.Decide(in),
		Runs:     runs,
	}, nil
}

func progress(n, total int) string {
	return fmt.Sprintf("%03d/%03d", n, total)
}
