package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/roach88/scriptsync/internal/archive"
	"github.com/roach88/scriptsync/internal/config"
	"github.com/roach88/scriptsync/internal/entry"
	"github.com/roach88/scriptsync/internal/manifest"
	"github.com/roach88/scriptsync/internal/store"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeFilesystem = "E002" // Read or write failure
	ErrCodeCanceled   = "E003" // Interrupted

	// Configuration errors (E1xx)
	ErrCodeConfig = "E101" // Config file unreadable or rejected by schema
	ErrCodeState  = "E102" // State store could not be opened

	// Data errors (E2xx)
	ErrCodeCorruptArchive    = "E201" // Archive is not a readable script archive
	ErrCodeCorruptPayload    = "E202" // A script's compressed payload is invalid
	ErrCodeMalformedManifest = "E203" // Manifest line cannot be parsed
	ErrCodeColumnOverflow    = "E204" // Value wider than its manifest column
)

// failure is the user-facing description of a fatal error.
type failure struct {
	code     string
	exitCode int
	hint     string
}

// classify maps a run error to its code, exit code and hint.
func classify(err error) failure {
	var cfgErr *config.ValidationError
	switch {
	case errors.As(err, &cfgErr):
		return failure{ErrCodeConfig, ExitCommandError, "fix the values reported above in " + config.FileName}
	case errors.Is(err, store.ErrRunNotFound):
		return failure{ErrCodeState, ExitCommandError, "the state store was modified during the run; try again"}
	case errors.Is(err, archive.ErrCorruptArchive):
		return failure{ErrCodeCorruptArchive, ExitFailure, "the archive is damaged or not a script archive; restore it from a backup or version control"}
	case errors.Is(err, entry.ErrCorruptPayload):
		return failure{ErrCodeCorruptPayload, ExitFailure, "one script in the archive is damaged; the export stopped at that slot"}
	case errors.Is(err, manifest.ErrColumnOverflow):
		return failure{ErrCodeColumnOverflow, ExitFailure, "raise id_width or name_width in " + config.FileName}
	case errors.Is(err, manifest.ErrMalformedManifest):
		return failure{ErrCodeMalformedManifest, ExitFailure, "fix the manifest line reported above or export again"}
	case errors.Is(err, context.Canceled):
		return failure{ErrCodeCanceled, ExitFailure, ""}
	case isPathError(err):
		return failure{ErrCodeFilesystem, ExitFailure, "check permissions and free space"}
	default:
		return failure{ErrCodeGeneric, ExitFailure, ""}
	}
}

func isPathError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

// reportFailure prints err through the formatter and returns an ExitError
// marked as reported.
func reportFailure(formatter *OutputFormatter, message string, err error) error {
	f := classify(err)
	_ = formatter.Error(f.code, message+": "+err.Error(), f.hint, nil)
	exitErr := WrapExitError(f.exitCode, message, err)
	exitErr.Reported = true
	return exitErr
}
