// Package config loads per-project settings from scriptsync.yaml and
// resolves them into absolute paths.
//
// Every setting has a default, so a project without a config file works
// out of the box. Loaded values are checked against an embedded CUE schema
// before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scriptsync/internal/manifest"
	"github.com/roach88/scriptsync/internal/naming"
)

// FileName is the config file looked up in the project root.
const FileName = "scriptsync.yaml"

// Config holds project settings. Paths are relative to the project root
// unless absolute.
type Config struct {
	ArchiveDir    string   `yaml:"archive_dir" json:"archive_dir"`
	ArchiveFile   string   `yaml:"archive_file" json:"archive_file"`
	ScriptsDir    string   `yaml:"scripts_dir" json:"scripts_dir"`
	ManifestFile  string   `yaml:"manifest_file" json:"manifest_file"`
	Extension     string   `yaml:"extension" json:"extension"`
	IDWidth       int      `yaml:"id_width" json:"id_width"`
	NameWidth     int      `yaml:"name_width" json:"name_width"`
	StateFile     string   `yaml:"state_file" json:"state_file"`
	HostProcesses []string `yaml:"host_processes" json:"host_processes"`
}

// Defaults returns the settings used for anything the config file omits.
func Defaults() Config {
	return Config{
		ArchiveDir:    "Data",
		ArchiveFile:   "Scripts.rvdata",
		ScriptsDir:    "Scripts",
		ManifestFile:  "export_digest.txt",
		Extension:     naming.DefaultExtension,
		IDWidth:       manifest.DefaultIDWidth,
		NameWidth:     manifest.DefaultNameWidth,
		StateFile:     ".scriptsync/state.db",
		HostProcesses: []string{"RPGVX.exe"},
	}
}

// Layout returns the manifest column layout.
func (c Config) Layout() manifest.Layout {
	return manifest.Layout{IDWidth: c.IDWidth, NameWidth: c.NameWidth}
}

// Load reads a config file on top of Defaults and validates the result.
// When optional is true a missing file yields the defaults.
func Load(path string, optional bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
