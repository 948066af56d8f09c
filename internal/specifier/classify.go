// Package specifier categorizes module specifiers so the engine knows how
// to read them and whether they participate in the recursive walk.
package specifier

import "strings"

// Kind categorizes a module specifier.
type Kind string

const (
	// LocalRelative is a specifier starting with "./" or "../" (or a bare ".").
	LocalRelative Kind = "local-relative"
	// LocalAbsolute is an absolute file path or file:// URL.
	LocalAbsolute Kind = "local-absolute"
	// RemoteHTTP is an http:// or https:// URL.
	RemoteHTTP Kind = "remote-http"
	// Registry is a bare or registry-scheme specifier (npm:, jsr:, package names).
	Registry Kind = "registry"
)

// Classify categorizes a specifier. It is total: any string not matching a
// recognized scheme is local if it begins with '.' or '/', registry otherwise.
func Classify(spec string) Kind {
	switch {
	case strings.HasPrefix(spec, "./"), strings.HasPrefix(spec, "../"), spec == ".", spec == "..":
		return LocalRelative
	case strings.HasPrefix(spec, "/"), strings.HasPrefix(spec, "file://"):
		return LocalAbsolute
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return RemoteHTTP
	case hasWindowsDrive(spec):
		return LocalAbsolute
	default:
		return Registry
	}
}

// IsLocal reports whether the specifier names a module on the local
// filesystem.
func IsLocal(spec string) bool {
	k := Classify(spec)
	return k == LocalRelative || k == LocalAbsolute
}

// hasWindowsDrive reports whether the specifier starts with a drive letter,
// e.g. "C:/src/mod.ts". A single letter before ':' cannot be a URL scheme.
func hasWindowsDrive(spec string) bool {
	if len(spec) < 3 || spec[1] != ':' {
		return false
	}
	c := spec[0]
	if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
		return false
	}
	return spec[2] == '/' || spec[2] == '\\'
}

// TrimFileScheme strips a file:// prefix, returning a plain path.
func TrimFileScheme(spec string) string {
	return strings.TrimPrefix(spec, "file://")
}
