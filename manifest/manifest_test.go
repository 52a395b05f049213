package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/minilang/compiler"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
entry = "src/app.ml"

[compiler]
dialect = "extended"
pop-branch-condition = true

[vm]
trace = true

[cache]
enabled = false
path = "build/chunks.db"

[log]
verbosity = 2
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "src", "app.ml") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if !m.VM.Trace {
		t.Error("vm trace = false, want true")
	}
	if m.CacheEnabled() {
		t.Error("cache enabled = true, want false")
	}
	if m.CachePath() != filepath.Join(m.Dir, "build", "chunks.db") {
		t.Errorf("cache path = %q", m.CachePath())
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", m.Log.Verbosity)
	}

	opts, err := m.CompilerOptions()
	if err != nil {
		t.Fatalf("CompilerOptions: %v", err)
	}
	if opts.Dialect != compiler.DialectExtended || !opts.PopBranchCondition {
		t.Errorf("compiler options = %+v", opts)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Entry != "main.ml" {
		t.Errorf("entry = %q, want main.ml", m.Project.Entry)
	}
	if !m.CacheEnabled() {
		t.Error("cache should be enabled by default")
	}
	if m.CachePath() != filepath.Join(m.Dir, ".minilang", "cache.db") {
		t.Errorf("cache path = %q", m.CachePath())
	}
	opts, err := m.CompilerOptions()
	if err != nil {
		t.Fatalf("CompilerOptions: %v", err)
	}
	if opts != (compiler.Options{}) {
		t.Errorf("compiler options = %+v, want zero value", opts)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", "[project\nname = 1", "parse error"},
		{"unknown dialect", "[compiler]\ndialect = \"klingon\"", `unknown dialect "klingon"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to contain %q", err, tc.want)
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of a directory without minilang.toml should fail")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"found\"\n")
	deep := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(deep)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found" {
		t.Errorf("name = %q, want found", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no minilang.toml exists")
	}
}

func TestDefault(t *testing.T) {
	m := Default("/work")
	if m.EntryPath() != filepath.Join("/work", "main.ml") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if !m.CacheEnabled() {
		t.Error("cache should be enabled by default")
	}
	if m.CachePath() != filepath.Join("/work", ".minilang", "cache.db") {
		t.Errorf("cache path = %q", m.CachePath())
	}
}
