package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
archive_dir: GameData
archive_file: Scripts.rxdata
extension: .txt
name_width: 64
host_processes: [RPGXP.exe, Game.exe]
`))
	require.NoError(t, err)

	assert.Equal(t, "GameData", cfg.ArchiveDir)
	assert.Equal(t, "Scripts.rxdata", cfg.ArchiveFile)
	assert.Equal(t, ".txt", cfg.Extension)
	assert.Equal(t, 64, cfg.NameWidth)
	assert.Equal(t, []string{"RPGXP.exe", "Game.exe"}, cfg.HostProcesses)

	// Untouched keys keep their defaults.
	assert.Equal(t, "Scripts", cfg.ScriptsDir)
	assert.Equal(t, 12, cfg.IDWidth)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("column_3_width: 10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column_3_width")
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := map[string]string{
		"empty scripts dir":  "scripts_dir: \"\"\n",
		"bad extension":      "extension: rb files\n",
		"narrow id column":   "id_width: 2\n",
		"wide name column":   "name_width: 4096\n",
		"unsupported format": "archive_file: Scripts.zip\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	_, err = Load(path, false)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("scripts_dir: src/scripts\n"), 0o644))
	cfg, err = Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "src/scripts", cfg.ScriptsDir)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	cfg := Defaults()
	cfg.StateFile = filepath.Join(root, "elsewhere", "state.db")

	paths, err := cfg.Resolve(root)
	require.NoError(t, err)

	assert.Equal(t, root, paths.Root)
	assert.Equal(t, filepath.Join(root, "Data", "Scripts.rvdata"), paths.Archive)
	assert.Equal(t, filepath.Join(root, "Scripts"), paths.ScriptsDir)
	assert.Equal(t, filepath.Join(root, "Scripts", "export_digest.txt"), paths.Manifest)
	assert.Equal(t, cfg.StateFile, paths.StateFile)
}

func TestLayout(t *testing.T) {
	cfg := Defaults()
	cfg.NameWidth = 30
	assert.Equal(t, 42, cfg.Layout().FilenameOffset())
}
