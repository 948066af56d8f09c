package engine

import (
	"path/filepath"

	"remod/internal/manifest"
	"remod/internal/paths"
	"remod/internal/resolution"
	"remod/internal/specifier"
)

// BuildTable assembles the resolution table for one request: mappings
// discovered from a project manifest near the entry module, overridden by
// the caller-supplied mappings. The table is immutable once built and is
// discarded after the request, except insofar as its identity participates
// in cache keys.
func (e *Engine) BuildTable(entry string, caller resolution.Mappings) (*resolution.Table, error) {
	var layers []resolution.Mappings

	switch {
	case e.cfg.Transform.ImportMap != "":
		f, err := manifest.Load(e.cfg.Transform.ImportMap)
		if err != nil {
			return nil, err
		}
		layers = append(layers, f.Mappings)

	case e.cfg.Transform.DiscoverManifest && specifier.IsLocal(entry):
		dir := filepath.Dir(paths.ToFilePath(specifier.TrimFileScheme(entry)))
		f, err := manifest.Discover(dir)
		if err != nil {
			return nil, err
		}
		if f != nil {
			e.logger.Debug("Discovered import map", map[string]interface{}{
				"path": f.Path,
			})
			layers = append(layers, f.Mappings)
		}
	}

	// Caller-supplied mappings win on conflicting keys.
	layers = append(layers, caller)
	return resolution.Build(layers...), nil
}
