package transcode

import (
	"fmt"

	"github.com/roach88/scriptsync/internal/archive"
	"github.com/roach88/scriptsync/internal/entry"
	"github.com/roach88/scriptsync/internal/manifest"
	"github.com/roach88/scriptsync/internal/naming"
)

// Options configures both pipelines.
type Options struct {
	Layout    manifest.Layout
	Extension string

	// ManifestName is the manifest's filename relative to the scripts
	// directory. Export never derives a script filename equal to it.
	ManifestName string
}

// DefaultOptions returns the default manifest layout and script extension.
func DefaultOptions() Options {
	return Options{Layout: manifest.DefaultLayout(), Extension: naming.DefaultExtension}
}

// File is one exported script.
type File struct {
	Index   int
	Name    string
	Content []byte
}

// ExportResult is the output of Export.
type ExportResult struct {
	Manifest []byte
	Records  []manifest.Record
	Files    []File
}

// SlotError attaches a slot position to a pipeline failure.
type SlotError struct {
	Index    int
	Filename string
	Err      error
}

func (e *SlotError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("slot %d (%s): %v", e.Index, e.Filename, e.Err)
	}
	return fmt.Sprintf("slot %d: %v", e.Index, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// Export decodes an archive and produces its manifest and script files.
// Slots whose filename is the EMPTY marker produce no file. Files are
// returned in slot order with exactly the inflated bytes of each slot.
func Export(data []byte, opts Options) (*ExportResult, error) {
	a, err := archive.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	deriver := naming.NewDeriver(naming.Options{
		Extension: opts.Extension,
		Reserved:  []string{opts.ManifestName},
	})
	records := make([]manifest.Record, a.Len())
	for i, slot := range a.Slots {
		records[i] = manifest.Record{
			ID:       slot.ID,
			Name:     slot.Name,
			Filename: deriver.Derive(slot.Index, slot.Name, slot.Payload.IsEmpty()),
		}
	}

	text, err := manifest.Encode(records, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	files := make([]File, 0, deriver.Assigned())
	for i, slot := range a.Slots {
		if records[i].IsEmpty() {
			continue
		}
		content, err := entry.Decompress(slot.Payload.Bytes())
		if err != nil {
			return nil, fmt.Errorf("export: %w", &SlotError{Index: slot.Index, Filename: records[i].Filename, Err: err})
		}
		files = append(files, File{Index: slot.Index, Name: records[i].Filename, Content: content})
	}

	return &ExportResult{Manifest: text, Records: records, Files: files}, nil
}
