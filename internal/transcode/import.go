package transcode

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/scriptsync/internal/archive"
	"github.com/roach88/scriptsync/internal/entry"
	"github.com/roach88/scriptsync/internal/manifest"
)

// ErrMissingSourceFile marks a manifest record whose script file is absent.
// It is recoverable: the slot is imported with empty content.
var ErrMissingSourceFile = errors.New("missing source file")

// FileLookup returns the content of a script file by manifest filename.
// A missing file is reported with an error matching fs.ErrNotExist or
// ErrMissingSourceFile; any other error aborts the import.
type FileLookup interface {
	Lookup(name string) ([]byte, error)
}

// LookupFunc adapts a function to FileLookup.
type LookupFunc func(name string) ([]byte, error)

// Lookup calls f(name).
func (f LookupFunc) Lookup(name string) ([]byte, error) {
	return f(name)
}

// DirLookup serves script files from a filesystem, typically
// os.DirFS(scriptsDir).
type DirLookup struct {
	FS fs.FS
}

// Lookup reads name from the filesystem.
func (l DirLookup) Lookup(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("lookup %q: %w", name, fs.ErrInvalid)
	}
	return fs.ReadFile(l.FS, name)
}

// Warning is a recoverable per-slot problem reported by Import.
type Warning struct {
	Index    int
	Filename string
	Err      error
}

func (w Warning) Error() string {
	return (&SlotError{Index: w.Index, Filename: w.Filename, Err: w.Err}).Error()
}

func (w Warning) Unwrap() error {
	return w.Err
}

// ImportResult is the output of Import.
type ImportResult struct {
	Archive  []byte
	Slots    int
	Files    int
	Warnings []Warning
}

// Import rebuilds an archive from manifest text and script files. The
// manifest's line order becomes the slot order. Records marked EMPTY become
// empty slots without any file access. A missing script file degrades its
// slot to empty compressed content and adds a Warning.
func Import(manifestText []byte, files FileLookup, opts Options) (*ImportResult, error) {
	records, err := manifest.Decode(manifestText, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	result := &ImportResult{Slots: len(records)}
	a := &archive.Archive{Slots: make([]archive.Slot, 0, len(records))}
	for i, rec := range records {
		if rec.IsEmpty() {
			a.Append(rec.ID, rec.Name, archive.Empty())
			continue
		}

		content, err := files.Lookup(rec.Filename)
		switch {
		case err == nil:
			result.Files++
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrMissingSourceFile):
			result.Warnings = append(result.Warnings, Warning{Index: i, Filename: rec.Filename, Err: fmt.Errorf("%w: %w", ErrMissingSourceFile, err)})
			content = nil
		default:
			return nil, fmt.Errorf("import: %w", &SlotError{Index: i, Filename: rec.Filename, Err: err})
		}

		compressed, err := entry.Compress(content)
		if err != nil {
			return nil, fmt.Errorf("import: %w", &SlotError{Index: i, Filename: rec.Filename, Err: err})
		}
		a.Append(rec.ID, rec.Name, archive.Present(compressed))
	}

	data, err := archive.Encode(a)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	result.Archive = data
	return result, nil
}
