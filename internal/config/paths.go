package config

import "path/filepath"

// Paths holds the absolute locations a run works with.
type Paths struct {
	Root       string
	ArchiveDir string
	Archive    string
	ScriptsDir string
	Manifest   string
	StateFile  string
}

// Resolve anchors the config's relative paths at root.
func (c Config) Resolve(root string) (Paths, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, err
	}

	archiveDir := join(abs, c.ArchiveDir)
	scriptsDir := join(abs, c.ScriptsDir)
	return Paths{
		Root:       abs,
		ArchiveDir: archiveDir,
		Archive:    filepath.Join(archiveDir, c.ArchiveFile),
		ScriptsDir: scriptsDir,
		Manifest:   filepath.Join(scriptsDir, c.ManifestFile),
		StateFile:  join(abs, c.StateFile),
	}, nil
}

func join(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
