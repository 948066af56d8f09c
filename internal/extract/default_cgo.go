//go:build cgo

package extract

// Default returns the extractor for this build: AST-based when tree-sitter
// is available.
func Default() Extractor {
	return NewTreeSitter()
}
