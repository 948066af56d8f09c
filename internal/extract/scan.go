package extract

import (
	"context"
	"regexp"
	"sort"
)

// Specifier-bearing statement forms. Submatch 1 is the specifier; its
// submatch indexes give the exact span for in-place rewriting.
var (
	reImportFrom  = regexp.MustCompile(`import\s+[^'"();]*?from\s*['"]([^'"]+)['"]`)
	reImportBare  = regexp.MustCompile(`import\s*['"]([^'"]+)['"]`)
	reExportFrom  = regexp.MustCompile(`export\s+[^'"();]*?from\s*['"]([^'"]+)['"]`)
	reImportCall  = regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	reTypePrefix  = regexp.MustCompile(`^(import|export)\s+type\s`)
	reImportMeta  = regexp.MustCompile(`import\s*\.\s*meta\s*\.\s*url`)
	reModuleToken = regexp.MustCompile(`\b(import|export)\b`)
)

// Scanner is a regex-based Extractor. It is less precise than the
// tree-sitter extractor (it does not understand comments or string
// contents) but has no cgo requirement and reports the same spans for
// well-formed modules.
type Scanner struct{}

// NewScanner creates a regex-based extractor.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Extract implements Extractor.
func (s *Scanner) Extract(_ context.Context, _ string, text string) (*Result, error) {
	var edges []Edge
	seen := make(map[int]bool)

	collect := func(re *regexp.Regexp, dynamic bool) {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			if seen[start] {
				continue
			}
			seen[start] = true

			role := RoleValue
			if reTypePrefix.MatchString(text[m[0]:m[1]]) {
				role = RoleType
			}

			line, col := position(text, start)
			edges = append(edges, Edge{
				Specifier: text[start:end],
				Span:      Span{Start: start, End: end, Line: line, Column: col},
				Role:      role,
				Dynamic:   dynamic,
			})
		}
	}

	collect(reImportFrom, false)
	collect(reExportFrom, false)
	collect(reImportCall, true)
	collect(reImportBare, false)

	sort.Slice(edges, func(i, j int) bool { return edges[i].Span.Start < edges[j].Span.Start })

	var selfRefs []Span
	for _, m := range reImportMeta.FindAllStringIndex(text, -1) {
		line, col := position(text, m[0])
		selfRefs = append(selfRefs, Span{Start: m[0], End: m[1], Line: line, Column: col})
	}

	return &Result{Edges: edges, SelfRefs: selfRefs}, nil
}

// HasModuleSyntax is the fast-path check: a module with no import/export
// tokens and no import.meta reference needs no dependency processing at
// all. False positives only cost an extraction pass.
func HasModuleSyntax(text string) bool {
	return reModuleToken.MatchString(text) || reImportMeta.MatchString(text)
}
