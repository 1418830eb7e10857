// Package project reads the ilforge.toml manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ilforge/internal/trace"
)

// ManifestName is the file Find looks for.
const ManifestName = "ilforge.toml"

// Backend names accepted in [module].backend.
const (
	BackendTextual = "textual"
	BackendDynamic = "dynamic"
)

// Manifest is a decoded ilforge.toml and where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest tables.
type Config struct {
	Module ModuleConfig `toml:"module"`
	Build  BuildConfig  `toml:"build"`
	Trace  TraceConfig  `toml:"trace"`
}

// ModuleConfig is [module].
type ModuleConfig struct {
	Name    string `toml:"name"`
	Backend string `toml:"backend"`
	Runtime string `toml:"runtime"`
}

// BuildConfig is [build]. Inputs are relative to the manifest directory.
type BuildConfig struct {
	OutDir string   `toml:"out_dir"`
	Jobs   int      `toml:"jobs"`
	Inputs []string `toml:"inputs"`
}

// TraceConfig is [trace].
type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
}

// Defaults returns the configuration used when no manifest exists.
func Defaults() Config {
	return Config{
		Module: ModuleConfig{Name: "Program", Backend: BackendTextual, Runtime: "mscorlib"},
		Build:  BuildConfig{OutDir: "out"},
		Trace:  TraceConfig{Level: "off", Output: "-", Mode: "stream", Format: "auto"},
	}
}

// Find walks up from startDir to the nearest ilforge.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		_, statErr := os.Stat(candidate)
		switch {
		case statErr == nil:
			return candidate, true, nil
		case !errors.Is(statErr, os.ErrNotExist):
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, statErr)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load finds and decodes the manifest above startDir. ok is false when
// there is none.
func Load(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := Decode(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// Decode reads one manifest file over Defaults and validates it.
func Decode(path string) (Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	c.Module.Name = strings.TrimSpace(c.Module.Name)
	if c.Module.Name == "" {
		return errors.New("[module].name must not be empty")
	}
	switch strings.ToLower(c.Module.Backend) {
	case BackendTextual, BackendDynamic:
		c.Module.Backend = strings.ToLower(c.Module.Backend)
	default:
		return fmt.Errorf("[module].backend %q is not textual or dynamic", c.Module.Backend)
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("[build].jobs must be >= 0, got %d", c.Build.Jobs)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace].format: %w", err)
	}
	return nil
}

// InputPaths resolves [build].inputs against the manifest directory.
func (m *Manifest) InputPaths() []string {
	out := make([]string, 0, len(m.Config.Build.Inputs))
	for _, in := range m.Config.Build.Inputs {
		p := filepath.FromSlash(in)
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Root, p)
		}
		out = append(out, p)
	}
	return out
}

// OutDir resolves [build].out_dir against the manifest directory.
func (m *Manifest) OutDir() string {
	dir := filepath.FromSlash(m.Config.Build.OutDir)
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, dir)
}
