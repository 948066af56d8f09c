//go:build !cgo

package extract

// Default returns the extractor for this build: the regex scanner when
// tree-sitter is unavailable.
func Default() Extractor {
	return NewScanner()
}
