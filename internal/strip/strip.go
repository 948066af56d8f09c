// Package strip converts annotated TypeScript-style source to plain,
// directly-executable JavaScript. It is purely textual: it has no knowledge
// of the module graph and never touches the filesystem.
package strip

import (
	"context"
	"fmt"
)

// Mode selects how much work the stripper performs.
type Mode string

const (
	// ModeStrip erases type-only syntax in place, leaving runtime code
	// untouched.
	ModeStrip Mode = "strip"
	// ModeFullCompile additionally lowers constructs with runtime
	// semantics, such as enums.
	ModeFullCompile Mode = "full-compile"
	// ModePassthrough returns the source unchanged.
	ModePassthrough Mode = "passthrough"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrip, ModeFullCompile, ModePassthrough:
		return Mode(s), nil
	case "":
		return ModeStrip, nil
	default:
		return "", fmt.Errorf("unknown transform mode %q (want strip, full-compile or passthrough)", s)
	}
}

// Options carries per-request compiler settings.
type Options struct {
	// JSX parses the source with the TSX grammar.
	JSX bool
}

// Stripper converts annotated source text to plain source text.
type Stripper interface {
	Strip(ctx context.Context, text string, mode Mode, opts Options) (string, error)
}

// Passthrough is a Stripper that never modifies the text, regardless of
// mode. Used for already-plain sources and in tests.
type Passthrough struct{}

// Strip returns text unchanged.
func (Passthrough) Strip(_ context.Context, text string, _ Mode, _ Options) (string, error) {
	return text, nil
}

// NeedsStripping reports whether a location's extension carries type
// annotations at all. Plain .js/.mjs/.cjs sources skip the parser.
func NeedsStripping(location string) bool {
	for _, ext := range []string{".ts", ".mts", ".cts", ".tsx"} {
		if hasSuffixFold(location, ext) {
			return true
		}
	}
	return false
}

// IsJSX reports whether the location should be parsed with the TSX grammar.
func IsJSX(location string) bool {
	return hasSuffixFold(location, ".tsx") || hasSuffixFold(location, ".jsx")
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := 0; i < len(suffix); i++ {
		c := tail[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != suffix[i] {
			return false
		}
	}
	return true
}
