package cachekey

import "testing"

func TestDerive_Deterministic(t *testing.T) {
	a := Derive("export const x = 1;\n", "imports\ta\tb\n")
	b := Derive("export const x = 1;\n", "imports\ta\tb\n")
	if a != b {
		t.Errorf("identical inputs produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestDerive_SensitiveToText(t *testing.T) {
	table := "imports\ta\tb\n"
	if Derive("export const x = 1;", table) == Derive("export const x = 2;", table) {
		t.Error("different text must produce different keys")
	}
}

func TestDerive_SensitiveToTable(t *testing.T) {
	text := "export const x = 1;"
	if Derive(text, "imports\ta\tb\n") == Derive(text, "imports\ta\tc\n") {
		t.Error("different tables must produce different keys")
	}
}

func TestDerive_FramingPreventsBoundaryShifts(t *testing.T) {
	// Without length framing these two pairs would hash the same bytes.
	if Derive("ab", "c") == Derive("a", "bc") {
		t.Error("boundary shift collided")
	}
	if Derive("", "abc") == Derive("abc", "") {
		t.Error("empty-side shift collided")
	}
}
