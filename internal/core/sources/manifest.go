// Package sources loads the source manifest that describes every input table.
//
// The built-in manifest is embedded; an operator may point DATA_MANIFEST at
// a replacement file with the same structure.
package sources

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/hivdash/internal/core"
)

//go:embed sources.yaml
var builtin []byte

// Manifest is the parsed manifest document.
type Manifest struct {
	Version int                     `yaml:"version"`
	Sources []core.SourceDefinition `yaml:"sources"`
}

// Default returns a registry built from the embedded manifest.
func Default() (*core.Registry, error) {
	return Parse(builtin)
}

// Load reads a manifest file. An empty path returns the embedded manifest.
func Load(path string) (*core.Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest and registers every definition. Unknown fields
// are rejected so that typos in column mappings fail loudly.
func Parse(data []byte) (*core.Registry, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	if m.Version != 1 {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}

	reg := core.NewRegistry()
	for _, def := range m.Sources {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	if err := reg.Require(core.RequiredSources...); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return reg, nil
}
