//go:build !windows

package hostcheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// listProcesses reads /proc/<pid>/comm. Editors run under Wine show up with
// their Windows image name. Without /proc (macOS, BSD) it reports nothing.
func listProcesses(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, nil
	}

	var names []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || !isPID(entry.Name()) {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm"))
		if err != nil {
			continue // process exited
		}
		names = append(names, strings.TrimSpace(string(comm)))
	}
	return names, nil
}

func isPID(name string) bool {
	for _, c := range name {
		if c < '0' || c > '9' {
			return false
		}
	}
	return name != ""
}
