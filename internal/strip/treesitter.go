//go:build cgo

package strip

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScript is a tree-sitter backed Stripper. It erases type-only syntax
// in place and, in full-compile mode, lowers enum declarations to plain
// JavaScript.
type TypeScript struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewTypeScript creates a tree-sitter stripper. The underlying parser is
// not safe for concurrent use, so Strip serializes on an internal mutex;
// the engine's fan-out still overlaps I/O freely.
func NewTypeScript() *TypeScript {
	return &TypeScript{parser: sitter.NewParser()}
}

// Available reports whether the tree-sitter stripper can run in this build.
func Available() bool {
	return true
}

// edit is a byte-range replacement applied to the source.
type edit struct {
	start, end uint32
	text       string
	blank      bool // replace with whitespace of equal length instead of text
}

// Strip implements Stripper.
func (t *TypeScript) Strip(ctx context.Context, text string, mode Mode, opts Options) (string, error) {
	if mode == ModePassthrough {
		return text, nil
	}

	source := []byte(text)
	lang := typescript.GetLanguage()
	if opts.JSX {
		lang = tsx.GetLanguage()
	}

	t.mu.Lock()
	t.parser.SetLanguage(lang)
	tree, err := t.parser.ParseCtx(ctx, nil, source)
	t.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return "", fmt.Errorf("source contains syntax errors")
	}

	var edits []edit
	var walkErr error

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil || walkErr != nil {
			return
		}

		switch node.Type() {
		case "type_annotation", "type_arguments", "type_parameters",
			"type_alias_declaration", "interface_declaration",
			"ambient_declaration", "implements_clause":
			edits = append(edits, edit{start: node.StartByte(), end: node.EndByte(), blank: true})
			return

		case "import_statement", "export_statement":
			if isTypeOnlyClause(node) {
				edits = append(edits, edit{start: node.StartByte(), end: node.EndByte(), blank: true})
				return
			}

		case "as_expression", "satisfies_expression", "non_null_expression":
			// Keep the operand, erase the type suffix.
			if operand := node.NamedChild(0); operand != nil {
				edits = append(edits, edit{start: operand.EndByte(), end: node.EndByte(), blank: true})
				walk(operand)
				return
			}

		case "enum_declaration":
			if mode != ModeFullCompile {
				walkErr = fmt.Errorf("enum declarations require full-compile mode (line %d)", node.StartPoint().Row+1)
				return
			}
			lowered, err := lowerEnum(node, source)
			if err != nil {
				walkErr = err
				return
			}
			edits = append(edits, edit{start: node.StartByte(), end: node.EndByte(), text: lowered})
			return

		case "internal_module":
			walkErr = fmt.Errorf("namespace declarations are not supported (line %d)", node.StartPoint().Row+1)
			return
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)

	if walkErr != nil {
		return "", walkErr
	}

	return applyEdits(source, edits), nil
}

// isTypeOnlyClause reports whether an import/export statement is type-only
// (`import type ...` / `export type {...}`).
func isTypeOnlyClause(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "type":
			return true
		case "import_clause", "export_clause", "string":
			return false
		}
	}
	return false
}

// lowerEnum rewrites `enum E { A, B = 3, C = "x" }` into the IIFE form tsc
// emits, preserving reverse mappings for numeric members.
func lowerEnum(node *sitter.Node, source []byte) (string, error) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", fmt.Errorf("enum declaration without a name (line %d)", node.StartPoint().Row+1)
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])

	body := node.ChildByFieldName("body")
	if body == nil {
		return "", fmt.Errorf("enum %s has no body", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "var %s; (function (%s) { ", name, name)

	auto := 0
	autoValid := true
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "enum_assignment" && member.Type() != "property_identifier" {
			continue
		}

		var memberName, initializer string
		if member.Type() == "property_identifier" {
			memberName = string(source[member.StartByte():member.EndByte()])
		} else {
			n := member.NamedChild(0)
			memberName = string(source[n.StartByte():n.EndByte()])
			if v := member.ChildByFieldName("value"); v != nil {
				initializer = string(source[v.StartByte():v.EndByte()])
			}
		}

		if initializer == "" {
			if !autoValid {
				return "", fmt.Errorf("enum %s: member %s needs an initializer", name, memberName)
			}
			initializer = fmt.Sprintf("%d", auto)
			auto++
		} else if strings.HasPrefix(initializer, `"`) || strings.HasPrefix(initializer, "'") {
			// String members have no reverse mapping and stop auto-increment.
			fmt.Fprintf(&b, "%s[%q] = %s; ", name, memberName, initializer)
			autoValid = false
			continue
		} else {
			auto, autoValid = nextAuto(initializer)
		}

		fmt.Fprintf(&b, "%s[%s[%q] = %s] = %q; ", name, name, memberName, initializer, memberName)
	}

	fmt.Fprintf(&b, "})(%s || (%s = {}));", name, name)
	return b.String(), nil
}

// nextAuto continues auto-increment after an explicit numeric initializer.
func nextAuto(initializer string) (int, bool) {
	n := 0
	for _, c := range initializer {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n + 1, true
}

// applyEdits rewrites the source back to front so earlier offsets stay
// valid. Ranges nested inside an already-applied range are dropped. Blank
// edits preserve newlines so line numbers keep matching the input.
func applyEdits(source []byte, edits []edit) string {
	if len(edits) == 0 {
		return string(source)
	}

	sort.Slice(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end > edits[j].end
	})

	// Drop edits contained in a preceding one.
	kept := edits[:1]
	for _, e := range edits[1:] {
		if e.end <= kept[len(kept)-1].end {
			continue
		}
		kept = append(kept, e)
	}

	var b strings.Builder
	b.Grow(len(source))
	pos := uint32(0)
	for _, e := range kept {
		b.Write(source[pos:e.start])
		if e.blank {
			for _, c := range source[e.start:e.end] {
				if c == '\n' {
					b.WriteByte('\n')
				} else {
					b.WriteByte(' ')
				}
			}
		} else {
			b.WriteString(e.text)
		}
		pos = e.end
	}
	b.Write(source[pos:])
	return b.String()
}
