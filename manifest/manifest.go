// Package manifest handles minilang.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/minilang/compiler"
)

// FileName is the name of the project configuration file.
const FileName = "minilang.toml"

// Manifest represents a minilang.toml project configuration.
type Manifest struct {
	Project  Project        `toml:"project"`
	Compiler CompilerConfig `toml:"compiler"`
	VM       VMConfig       `toml:"vm"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`

	// Dir is the directory containing the minilang.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// CompilerConfig selects the dialect and code generation options.
type CompilerConfig struct {
	Dialect            string `toml:"dialect"`
	PopBranchCondition bool   `toml:"pop-branch-condition"`
}

// VMConfig configures execution.
type VMConfig struct {
	Trace bool `toml:"trace"`
}

// CacheConfig configures the compiled-chunk cache.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no minilang.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a minilang.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if _, err := m.CompilerOptions(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.applyDefaults()

	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Project.Entry == "" {
		m.Project.Entry = "main.ml"
	}
	if m.Cache.Enabled == nil {
		on := true
		m.Cache.Enabled = &on
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".minilang", "cache.db")
	}
}

// FindAndLoad walks up from startDir to find a minilang.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CompilerOptions converts the [compiler] section to compiler.Options.
func (m *Manifest) CompilerOptions() (compiler.Options, error) {
	dialect, err := compiler.ParseDialect(m.Compiler.Dialect)
	if err != nil {
		return compiler.Options{}, fmt.Errorf("[compiler] %w", err)
	}
	return compiler.Options{
		Dialect:            dialect,
		PopBranchCondition: m.Compiler.PopBranchCondition,
	}, nil
}

// CacheEnabled reports whether the chunk cache should be used.
func (m *Manifest) CacheEnabled() bool {
	return m.Cache.Enabled == nil || *m.Cache.Enabled
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// EntryPath returns the absolute path of the entry source file.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Project.Entry)
}
