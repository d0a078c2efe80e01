// Package manifest reads and writes the export digest: a fixed-width text
// file with one line per archive slot, in slot order.
//
// Each line holds three columns:
//
//	<id, padded to IDWidth><name, padded to NameWidth><filename>
//
// The first two columns are space padded to fixed byte widths so tooling
// can recover the filename column by slicing at a known offset. Line order
// is the only carrier of a slot's index.
package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/scriptsync/internal/naming"
)

// Default column widths, in bytes. The name column holds 32 characters
// of a three-byte UTF-8 script (CJK names are common in the editor).
const (
	DefaultIDWidth   = 12
	DefaultNameWidth = 96
)

var (
	// ErrMalformedManifest is returned when a manifest line cannot be parsed.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrColumnOverflow is returned by Encode when a value does not fit its
	// fixed column. Values are never truncated.
	ErrColumnOverflow = errors.New("manifest column overflow")
)

// Layout holds the fixed column widths.
type Layout struct {
	IDWidth   int
	NameWidth int
}

// DefaultLayout returns the layout used when no configuration overrides it.
func DefaultLayout() Layout {
	return Layout{IDWidth: DefaultIDWidth, NameWidth: DefaultNameWidth}
}

// FilenameOffset is the byte offset at which the filename column starts.
func (l Layout) FilenameOffset() int {
	return l.IDWidth + l.NameWidth
}

// Record describes one archive slot.
type Record struct {
	ID       int64
	Name     string
	Filename string
}

// IsEmpty reports whether the record marks a slot without a script.
func (r Record) IsEmpty() bool {
	return naming.IsEmptyMarker(r.Filename)
}

// LineError carries the position of a manifest parse or encode failure.
type LineError struct {
	Line   int // 1-based
	Reason string
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%v: line %d: %s", e.Err, e.Line, e.Reason)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Encode renders records as manifest text. A trailing newline follows every
// record, so an empty record list encodes to no bytes.
func Encode(records []Record, layout Layout) ([]byte, error) {
	var buf bytes.Buffer
	for i, rec := range records {
		id := strconv.FormatInt(rec.ID, 10)
		if len(id) > layout.IDWidth {
			return nil, &LineError{Line: i + 1, Reason: fmt.Sprintf("id %s wider than %d bytes", id, layout.IDWidth), Err: ErrColumnOverflow}
		}
		if strings.ContainsAny(rec.Name, "\r\n") {
			return nil, &LineError{Line: i + 1, Reason: fmt.Sprintf("name %q contains a line break", rec.Name), Err: ErrMalformedManifest}
		}
		if len(rec.Name) > layout.NameWidth {
			return nil, &LineError{Line: i + 1, Reason: fmt.Sprintf("name %q wider than %d bytes; raise name_width", rec.Name, layout.NameWidth), Err: ErrColumnOverflow}
		}
		if rec.Filename == "" || strings.ContainsAny(rec.Filename, "\r\n") {
			return nil, &LineError{Line: i + 1, Reason: fmt.Sprintf("invalid filename %q", rec.Filename), Err: ErrMalformedManifest}
		}

		buf.WriteString(pad(id, layout.IDWidth))
		buf.WriteString(pad(rec.Name, layout.NameWidth))
		buf.WriteString(rec.Filename)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Decode parses manifest text into records, preserving line order.
func Decode(data []byte, layout Layout) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	line := 0
	for scanner.Scan() {
		line++
		rec, err := decodeLine(scanner.Text(), layout)
		if err != nil {
			return nil, &LineError{Line: line, Reason: err.Error(), Err: ErrMalformedManifest}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	return records, nil
}

func decodeLine(text string, layout Layout) (Record, error) {
	text = strings.TrimRight(text, "\r")
	offset := layout.FilenameOffset()
	if len(text) < offset {
		return Record{}, fmt.Errorf("line is %d bytes, shorter than the %d-byte fixed columns", len(text), offset)
	}

	idCol := strings.TrimSpace(text[:layout.IDWidth])
	id, err := strconv.ParseInt(idCol, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("id column %q is not an integer", idCol)
	}

	filename := strings.TrimRightFunc(text[offset:], isTrailingSpace)
	if filename == "" {
		return Record{}, errors.New("filename column is empty")
	}

	return Record{
		ID:       id,
		Name:     strings.TrimRightFunc(text[layout.IDWidth:offset], isTrailingSpace),
		Filename: filename,
	}, nil
}

func isTrailingSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r'
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
