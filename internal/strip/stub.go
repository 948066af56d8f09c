//go:build !cgo

package strip

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when annotation stripping is unavailable due to
// missing CGO (tree-sitter).
var ErrNoCGO = errors.New("annotation stripping requires CGO (tree-sitter)")

// TypeScript is a stub for non-CGO builds. Passthrough mode still works;
// strip and full-compile report ErrNoCGO.
type TypeScript struct{}

// NewTypeScript creates the stub stripper.
func NewTypeScript() *TypeScript {
	return &TypeScript{}
}

// Available reports whether the tree-sitter stripper can run in this build.
func Available() bool {
	return false
}

// Strip implements Stripper.
func (*TypeScript) Strip(_ context.Context, text string, mode Mode, _ Options) (string, error) {
	if mode == ModePassthrough {
		return text, nil
	}
	return "", ErrNoCGO
}
