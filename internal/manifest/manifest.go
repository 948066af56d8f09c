// Package manifest discovers and parses import-map manifests located near a
// module, so projects can declare resolution mappings without passing a
// table on every invocation. Explicit caller-supplied mappings always win
// over discovered ones.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"remod/internal/resolution"
)

const (
	// ImportMapJSON is the JSON import-map manifest filename.
	ImportMapJSON = "importmap.json"
	// ImportMapTOML is the TOML import-map manifest filename.
	ImportMapTOML = "remod.toml"
)

// File is a parsed import-map manifest.
type File struct {
	// Path is where the manifest was found.
	Path string

	// Mappings holds the imports and scopes declared by the manifest.
	Mappings resolution.Mappings
}

// tomlMap mirrors the remod.toml import-map schema.
type tomlMap struct {
	Imports map[string]string            `toml:"imports,omitempty"`
	Scopes  map[string]map[string]string `toml:"scopes,omitempty"`
}

// Discover walks up from startDir looking for an import-map manifest.
// JSON is preferred when both forms exist in one directory. Returns nil
// when no manifest exists anywhere up the tree.
func Discover(startDir string) (*File, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range []string{ImportMapJSON, ImportMapTOML} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return Load(candidate)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Load parses a manifest file by extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import map %s: %w", path, err)
	}

	var mappings resolution.Mappings
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &mappings); err != nil {
			return nil, fmt.Errorf("failed to parse import map %s: %w", path, err)
		}
	case ".toml":
		var tm tomlMap
		if err := toml.Unmarshal(data, &tm); err != nil {
			return nil, fmt.Errorf("failed to parse import map %s: %w", path, err)
		}
		mappings = resolution.Mappings{Imports: tm.Imports, Scopes: tm.Scopes}
	default:
		return nil, fmt.Errorf("unsupported import map format: %s", path)
	}

	return &File{Path: path, Mappings: mappings}, nil
}
