package manifest

import (
	"sort"
	"strings"
)

// Filenames returns the filename column of every record that names a file,
// in slot order.
func Filenames(records []Record) []string {
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if !rec.IsEmpty() {
			names = append(names, rec.Filename)
		}
	}
	return names
}

// Stale returns the entries of a scripts directory that carry the script
// extension but are not named by any record. Such files were exported once
// and later removed from the archive; importing will ignore them.
// The result is sorted.
func Stale(records []Record, entries []string, ext string) []string {
	known := make(map[string]bool, len(records))
	for _, name := range Filenames(records) {
		known[name] = true
	}

	var stale []string
	for _, entry := range entries {
		if !strings.EqualFold(extOf(entry), ext) {
			continue
		}
		if !known[entry] {
			stale = append(stale, entry)
		}
	}
	sort.Strings(stale)
	return stale
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}
