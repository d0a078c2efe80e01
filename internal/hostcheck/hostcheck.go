// Package hostcheck detects whether the host editor is running. Exporting
// or importing while the editor has the archive open would race with its
// own saves, so both commands refuse to run in that case.
package hostcheck

import (
	"context"
	"path/filepath"
	"strings"
)

// Lister returns the executable names of running processes.
type Lister func(ctx context.Context) ([]string, error)

// Checker matches running processes against the configured host names.
type Checker struct {
	Names []string
	List  Lister
}

// New returns a Checker that scans the system process list.
func New(names []string) *Checker {
	return &Checker{Names: names, List: listProcesses}
}

// Running returns the first configured host name found among running
// processes. Names compare case-insensitively and ignore directories.
func (c *Checker) Running(ctx context.Context) (string, bool, error) {
	if len(c.Names) == 0 {
		return "", false, nil
	}
	procs, err := c.List(ctx)
	if err != nil {
		return "", false, err
	}

	running := make(map[string]bool, len(procs))
	for _, p := range procs {
		running[strings.ToLower(filepath.Base(p))] = true
	}
	for _, name := range c.Names {
		if running[strings.ToLower(name)] || running[strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))] {
			return name, true, nil
		}
	}
	return "", false, nil
}
