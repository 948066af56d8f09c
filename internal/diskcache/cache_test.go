package diskcache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocationFor_Sharding(t *testing.T) {
	c := New("/cache")
	loc := c.LocationFor("abcdef0123")

	want := filepath.Join("/cache", "ab", "abcdef0123"+Ext)
	if loc != want {
		t.Errorf("LocationFor() = %q, want %q", loc, want)
	}
}

func TestLocationFor_StableBeforeWrite(t *testing.T) {
	c := New(t.TempDir())
	key := "deadbeefcafe"

	before := c.LocationFor(key)
	loc, err := c.Write(key, "export {};\n")
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if loc != before {
		t.Errorf("location changed across write: %q then %q", before, loc)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	c := New(t.TempDir())
	text := "// remod header\nexport const a = 1;\n"

	loc, err := c.Write("0011aabbcc", text)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("reading cache entry: %v", err)
	}
	if string(data) != text {
		t.Errorf("cached text = %q, want %q", data, text)
	}
	if !c.Has("0011aabbcc") {
		t.Error("Has() = false after write")
	}
}

func TestWrite_ExistingEntryIsNoOp(t *testing.T) {
	c := New(t.TempDir())
	key := "ffee00112233"

	loc, err := c.Write(key, "first\n")
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	// Second write with different text must not clobber: same key means
	// same content in normal operation, so existing bytes win.
	if _, err := c.Write(key, "second\n"); err != nil {
		t.Fatalf("rewrite error: %v", err)
	}

	data, _ := os.ReadFile(loc)
	if string(data) != "first\n" {
		t.Errorf("rewrite clobbered entry: %q", data)
	}
}

func TestWrite_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if _, err := c.Write("a1b2c3d4", "x\n"); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(path), ".tmp-") {
			t.Errorf("temp file left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking cache dir: %v", err)
	}
}

func TestRemove(t *testing.T) {
	c := New(t.TempDir())
	key := "1234567890ab"

	if _, err := c.Write(key, "x\n"); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := c.Remove(key); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if c.Has(key) {
		t.Error("entry still present after Remove")
	}
	// Removing a missing key is not an error.
	if err := c.Remove(key); err != nil {
		t.Errorf("Remove() on missing key: %v", err)
	}
}
