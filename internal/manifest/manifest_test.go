package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ImportMapJSON)
	writeFile(t, path, `{
		"imports": {"@lib/": "./real/"},
		"scopes": {"/vendor/": {"@lib/": "./vendored/"}}
	}`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := f.Mappings.Imports["@lib/"]; got != "./real/" {
		t.Errorf("imports[@lib/] = %q", got)
	}
	if got := f.Mappings.Scopes["/vendor/"]["@lib/"]; got != "./vendored/" {
		t.Errorf("scoped mapping = %q", got)
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ImportMapTOML)
	writeFile(t, path, `
[imports]
"@lib/" = "./real/"

[scopes."/vendor/"]
"@lib/" = "./vendored/"
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := f.Mappings.Imports["@lib/"]; got != "./real/" {
		t.Errorf("imports[@lib/] = %q", got)
	}
	if got := f.Mappings.Scopes["/vendor/"]["@lib/"]; got != "./vendored/" {
		t.Errorf("scoped mapping = %q", got)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	writeFile(t, path, "imports: {}")

	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ImportMapJSON), `{"imports": {"a": "b"}}`)
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	f, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if f == nil {
		t.Fatal("Discover() found nothing")
	}
	if f.Path != filepath.Join(root, ImportMapJSON) {
		t.Errorf("found %s, want manifest at root", f.Path)
	}
}

func TestDiscover_JSONPreferredOverTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ImportMapJSON), `{"imports": {"a": "json"}}`)
	writeFile(t, filepath.Join(dir, ImportMapTOML), "[imports]\na = \"toml\"\n")

	f, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if got := f.Mappings.Imports["a"]; got != "json" {
		t.Errorf("imports[a] = %q, want json to win", got)
	}
}

func TestDiscover_NearestWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ImportMapJSON), `{"imports": {"a": "outer"}}`)
	inner := filepath.Join(root, "pkg")
	writeFile(t, filepath.Join(inner, ImportMapJSON), `{"imports": {"a": "inner"}}`)

	f, err := Discover(inner)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if got := f.Mappings.Imports["a"]; got != "inner" {
		t.Errorf("imports[a] = %q, want inner manifest", got)
	}
}

func TestDiscover_NoManifest(t *testing.T) {
	f, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if f != nil {
		t.Errorf("Discover() = %+v, want nil", f)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ImportMapJSON)
	writeFile(t, path, `{"imports": `)

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
