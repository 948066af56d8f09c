package paths

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Normalize converts a path to forward slashes and cleans it.
func Normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// IsRemote reports whether a location is an http or https URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// ResolveRelative resolves a relative specifier against the location of the
// referencing module. The referrer may be a file path or an http(s) URL;
// the result stays in the referrer's namespace.
func ResolveRelative(referrer, specifier string) string {
	if IsRemote(referrer) {
		base, err := url.Parse(referrer)
		if err != nil {
			return specifier
		}
		ref, err := url.Parse(specifier)
		if err != nil {
			return specifier
		}
		return base.ResolveReference(ref).String()
	}
	dir := path.Dir(filepath.ToSlash(referrer))
	return path.Clean(path.Join(dir, specifier))
}

// Dir returns the directory of a local or remote location with forward
// slashes.
func Dir(location string) string {
	if IsRemote(location) {
		u, err := url.Parse(location)
		if err != nil {
			return location
		}
		u.Path = path.Dir(u.Path)
		u.RawQuery = ""
		u.Fragment = ""
		return u.String()
	}
	return path.Dir(filepath.ToSlash(location))
}

// ToFilePath converts a normalized forward-slash path back to the OS form.
func ToFilePath(p string) string {
	return filepath.FromSlash(p)
}

// WithinRoot reports whether p is lexically inside root after cleaning.
// Used to guard prune/delete operations on the cache directory.
func WithinRoot(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
