//go:build cgo

package extract

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"remod/internal/strip"
)

// TreeSitter is the AST-based Extractor. Unlike the regex Scanner it is
// immune to import-like text inside comments and strings.
type TreeSitter struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewTreeSitter creates an AST-based extractor.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{parser: sitter.NewParser()}
}

// Extract implements Extractor.
func (t *TreeSitter) Extract(ctx context.Context, location, text string) (*Result, error) {
	source := []byte(text)
	lang := typescript.GetLanguage()
	if strip.IsJSX(location) {
		lang = tsx.GetLanguage()
	}

	t.mu.Lock()
	t.parser.SetLanguage(lang)
	tree, err := t.parser.ParseCtx(ctx, nil, source)
	t.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	result := &Result{}

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Type() {
		case "import_statement", "export_statement":
			if src := node.ChildByFieldName("source"); src != nil {
				result.Edges = append(result.Edges, edgeFromString(src, text, roleOf(node), false))
			}

		case "call_expression":
			// Dynamic import(): the callee is the bare `import` token.
			fn := node.ChildByFieldName("function")
			args := node.ChildByFieldName("arguments")
			if fn != nil && fn.Type() == "import" && args != nil && args.NamedChildCount() > 0 {
				if arg := args.NamedChild(0); arg.Type() == "string" {
					result.Edges = append(result.Edges, edgeFromString(arg, text, RoleValue, true))
				}
			}
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())

	// import.meta.url spans are simpler to locate textually; the token
	// sequence cannot appear in any other construct outside comments.
	for _, m := range reImportMeta.FindAllStringIndex(text, -1) {
		line, col := position(text, m[0])
		result.SelfRefs = append(result.SelfRefs, Span{Start: m[0], End: m[1], Line: line, Column: col})
	}

	return result, nil
}

// edgeFromString builds an Edge from a string literal node, excluding the
// quotes from the span.
func edgeFromString(node *sitter.Node, text string, role Role, dynamic bool) Edge {
	start := int(node.StartByte()) + 1
	end := int(node.EndByte()) - 1
	line, col := position(text, start)
	return Edge{
		Specifier: text[start:end],
		Span:      Span{Start: start, End: end, Line: line, Column: col},
		Role:      role,
		Dynamic:   dynamic,
	}
}

// roleOf reports whether an import/export statement is type-only.
func roleOf(node *sitter.Node) Role {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "type":
			return RoleType
		case "import_clause", "export_clause", "string":
			return RoleValue
		}
	}
	return RoleValue
}
