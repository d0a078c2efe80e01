// Package naming derives on-disk filenames for script slots.
//
// A Deriver is stateful for one export run: it remembers every filename it
// has handed out and disambiguates collisions deterministically, so the
// same archive always produces the same filenames. It is not safe for
// concurrent use.
package naming

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// EmptyMarker is the manifest filename of a slot that carries no script.
const EmptyMarker = "EMPTY"

// DefaultExtension is the extension appended to derived filenames.
const DefaultExtension = ".rb"

// IsEmptyMarker reports whether filename is the EMPTY marker. The
// comparison is case-insensitive, matching how manifests are read.
func IsEmptyMarker(filename string) bool {
	return strings.EqualFold(filename, EmptyMarker)
}

// Options configures a Deriver.
type Options struct {
	// Extension is appended to every derived name. Defaults to ".rb".
	Extension string

	// Reserved names are never handed out, such as the manifest that
	// shares the scripts directory. Compared case-insensitively.
	Reserved []string
}

// Deriver hands out unique filenames for one run.
type Deriver struct {
	ext      string
	seen     map[string]struct{}
	assigned int
}

// NewDeriver creates a Deriver whose only taken names are opts.Reserved.
func NewDeriver(opts Options) *Deriver {
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	d := &Deriver{ext: ext, seen: make(map[string]struct{}, len(opts.Reserved))}
	for _, name := range opts.Reserved {
		if name != "" {
			d.seen[strings.ToLower(name)] = struct{}{}
		}
	}
	return d
}

// Derive returns the filename for the slot at index. Empty slots get the
// EMPTY marker and are not recorded. Otherwise the sanitized display name
// plus extension is returned, suffixed with the index (and then a counter)
// when that name was already assigned in this run.
func (d *Deriver) Derive(index int, displayName string, empty bool) string {
	if empty {
		return EmptyMarker
	}

	stem := Sanitize(displayName)
	if stem == "" {
		stem = fmt.Sprintf("Script_%03d", index)
	}

	candidate := stem + d.ext
	if d.claim(candidate) {
		return candidate
	}

	candidate = fmt.Sprintf("%s_%d%s", stem, index, d.ext)
	for n := 2; !d.claim(candidate); n++ {
		candidate = fmt.Sprintf("%s_%d_%d%s", stem, index, n, d.ext)
	}
	return candidate
}

// Assigned returns the number of filenames handed out so far.
func (d *Deriver) Assigned() int {
	return d.assigned
}

// claim records name if it is free. Keys are lower-cased so two names that
// differ only by case never land on the same file of a case-folding
// filesystem.
func (d *Deriver) claim(name string) bool {
	key := strings.ToLower(name)
	if _, taken := d.seen[key]; taken {
		return false
	}
	d.seen[key] = struct{}{}
	d.assigned++
	return true
}

// reserved holds device names Windows refuses as file stems.
var reserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Sanitize turns a display name into a filesystem-safe stem. The result is
// NFC-normalized, has illegal and control characters replaced with '_',
// whitespace runs collapsed to one space, and no leading or trailing
// spaces or trailing dots. It may be empty.
func Sanitize(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	lastSpace := false
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r':
			b.WriteRune('_')
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	stem := strings.TrimRight(strings.TrimSpace(b.String()), ". ")
	if reserved[strings.ToUpper(stem)] {
		stem = "_" + stem
	}
	return stem
}
