package extract

import (
	"context"
	"strings"
	"testing"
)

func findEdge(t *testing.T, edges []Edge, spec string) Edge {
	t.Helper()
	for _, e := range edges {
		if e.Specifier == spec {
			return e
		}
	}
	t.Fatalf("no edge for specifier %q in %+v", spec, edges)
	return Edge{}
}

func TestScanner_StaticImports(t *testing.T) {
	src := `import { a } from "./a.ts";
import b from './b.ts';
import * as c from "c";
export { d } from "./d.ts";
import "./side-effect.ts";
`
	res, err := NewScanner().Extract(context.Background(), "/m.ts", src)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(res.Edges) != 5 {
		t.Fatalf("got %d edges, want 5: %+v", len(res.Edges), res.Edges)
	}

	for _, spec := range []string{"./a.ts", "./b.ts", "c", "./d.ts", "./side-effect.ts"} {
		e := findEdge(t, res.Edges, spec)
		if got := src[e.Span.Start:e.Span.End]; got != spec {
			t.Errorf("span for %q covers %q", spec, got)
		}
		if e.Role != RoleValue {
			t.Errorf("edge %q role = %v, want value", spec, e.Role)
		}
	}
}

func TestScanner_SpansExcludeQuotes(t *testing.T) {
	src := `import { x } from "./dep.ts";`
	res, _ := NewScanner().Extract(context.Background(), "/m.ts", src)

	e := findEdge(t, res.Edges, "./dep.ts")
	if src[e.Span.Start-1] != '"' || src[e.Span.End] != '"' {
		t.Errorf("span [%d,%d) should sit strictly inside the quotes", e.Span.Start, e.Span.End)
	}
	if e.Span.Line != 1 || e.Span.Column != 20 {
		t.Errorf("position = %d:%d, want 1:20", e.Span.Line, e.Span.Column)
	}
}

func TestScanner_DynamicImport(t *testing.T) {
	src := `const mod = await import("./lazy.ts");`
	res, _ := NewScanner().Extract(context.Background(), "/m.ts", src)

	e := findEdge(t, res.Edges, "./lazy.ts")
	if !e.Dynamic {
		t.Error("dynamic import not flagged")
	}
}

func TestScanner_TypeOnlyRole(t *testing.T) {
	src := `import type { T } from "./types.ts";
export type { U } from "./more.ts";
import { v } from "./values.ts";
`
	res, _ := NewScanner().Extract(context.Background(), "/m.ts", src)

	if e := findEdge(t, res.Edges, "./types.ts"); e.Role != RoleType {
		t.Errorf("import type role = %v", e.Role)
	}
	if e := findEdge(t, res.Edges, "./more.ts"); e.Role != RoleType {
		t.Errorf("export type role = %v", e.Role)
	}
	if e := findEdge(t, res.Edges, "./values.ts"); e.Role != RoleValue {
		t.Errorf("value import role = %v", e.Role)
	}
}

func TestScanner_ImportMetaURL(t *testing.T) {
	src := `const here = import.meta.url;
const also = import . meta . url;
`
	res, _ := NewScanner().Extract(context.Background(), "/m.ts", src)

	if len(res.SelfRefs) != 2 {
		t.Fatalf("got %d self refs, want 2", len(res.SelfRefs))
	}
	for _, s := range res.SelfRefs {
		if !strings.HasPrefix(src[s.Start:s.End], "import") {
			t.Errorf("self ref span covers %q", src[s.Start:s.End])
		}
	}
}

func TestScanner_EdgesSortedByOffset(t *testing.T) {
	src := `export { z } from "./z.ts";
import "./a.ts";
const x = import("./dyn.ts");
`
	res, _ := NewScanner().Extract(context.Background(), "/m.ts", src)

	for i := 1; i < len(res.Edges); i++ {
		if res.Edges[i-1].Span.Start >= res.Edges[i].Span.Start {
			t.Fatalf("edges not sorted: %+v", res.Edges)
		}
	}
}

func TestHasModuleSyntax(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`import "./a.ts";`, true},
		{`export const x = 1;`, true},
		{`console.log(import.meta.url);`, true},
		{`const x = 1; console.log(x);`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := HasModuleSyntax(tt.src); got != tt.want {
			t.Errorf("HasModuleSyntax(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}
