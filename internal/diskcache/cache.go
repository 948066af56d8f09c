// Package diskcache persists transformed modules under content-addressed
// paths. Because the path is fully determined by the cache key, concurrent
// writers racing on the same key write identical bytes and the race is
// harmless.
package diskcache

import (
	"fmt"
	"os"
	"path/filepath"
)

// Ext is the extension cached modules are stored under, chosen so module
// loaders treat the output as plain ES modules.
const Ext = ".mjs"

// Cache is a content-addressed store rooted at a single directory. The
// directory may be shared across processes.
type Cache struct {
	root string
}

// New creates a cache rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// LocationFor returns the path a key maps to. It is valid before the entry
// is written: the engine hands this location to cyclic dependents ahead of
// the actual write.
func (c *Cache) LocationFor(key string) string {
	shard := key
	if len(shard) > 2 {
		shard = key[:2]
	}
	return filepath.Join(c.root, shard, key+Ext)
}

// Write persists text under the key's location, creating parent directories
// as needed. Re-writing an existing entry is a no-op: content addressing
// guarantees the bytes already there are the bytes being written.
func (c *Cache) Write(key, text string) (string, error) {
	location := c.LocationFor(key)

	if _, err := os.Stat(location); err == nil {
		return location, nil
	}

	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Write-then-rename so readers never observe a partial entry.
	tmp, err := os.CreateTemp(filepath.Dir(location), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close cache entry: %w", err)
	}

	if err := os.Rename(tmpName, location); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to publish cache entry: %w", err)
	}

	return location, nil
}

// Has reports whether an entry exists for the key.
func (c *Cache) Has(key string) bool {
	_, err := os.Stat(c.LocationFor(key))
	return err == nil
}

// Remove deletes the entry for a key if present.
func (c *Cache) Remove(key string) error {
	err := os.Remove(c.LocationFor(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
