// Package extract reports the import/export dependency edges of a module,
// each with the exact byte span of its specifier so the engine can rewrite
// specifiers by substring replacement.
package extract

import "context"

// Role distinguishes runtime imports from type-only imports.
type Role string

const (
	// RoleValue is a runtime import/export.
	RoleValue Role = "value"
	// RoleType is a type-only import/export, erased by stripping and never
	// recursed into.
	RoleType Role = "type-only"
)

// Span is the byte range of a specifier inside the module text, excluding
// quotes, plus its position for diagnostics.
type Span struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Line   int `json:"line"`   // 1-based
	Column int `json:"column"` // 1-based, in bytes
}

// Edge is one import/export dependency of a module.
type Edge struct {
	Specifier string `json:"specifier"`
	Span      Span   `json:"span"`
	Role      Role   `json:"role"`
	Dynamic   bool   `json:"dynamic,omitempty"`
}

// Result is everything a transformation pass needs from one module's text.
type Result struct {
	Edges []Edge

	// SelfRefs are spans of import.meta.url occurrences. The engine
	// rewrites them to the module's original location so transformed code
	// observes its logical identity, not its cache path.
	SelfRefs []Span
}

// Extractor reports the dependency edges present in module text.
type Extractor interface {
	Extract(ctx context.Context, location, text string) (*Result, error)
}

// position converts a byte offset to 1-based line/column.
func position(text string, offset int) (line, column int) {
	line, column = 1, 1
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
