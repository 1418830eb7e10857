package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ilforge/internal/buildpipeline"
	"ilforge/internal/project"
)

const noManifestMessage = "no input given and no " + project.ManifestName + " found"

// settings are the manifest values with command-line overrides applied.
type settings struct {
	name     string
	backend  buildpipeline.Backend
	runtime  string
	outDir   string
	jobs     int
	inputs   []string
	baseDir  string
	manifest *project.Manifest
}

// resolveSettings loads the nearest manifest and applies the flags the
// user set. Positional arguments replace the manifest inputs.
func resolveSettings(cmd *cobra.Command, args []string) (*settings, error) {
	cfg := project.Defaults()
	s := &settings{}
	m, ok, err := project.Load(".")
	if err != nil {
		return nil, err
	}
	if ok {
		s.manifest = m
		cfg = m.Config
		s.baseDir = m.Root
		s.outDir = m.OutDir()
		s.inputs = m.InputPaths()
	} else {
		s.outDir = cfg.Build.OutDir
		if cwd, err := os.Getwd(); err == nil {
			s.baseDir = cwd
		}
	}
	s.runtime = cfg.Module.Runtime
	s.jobs = cfg.Build.Jobs
	backend, valid := buildpipeline.ParseBackend(cfg.Module.Backend)
	if !valid {
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Module.Backend)
	}
	s.backend = backend

	if len(args) > 0 {
		s.inputs = args
	}
	if len(s.inputs) == 0 {
		return nil, errors.New(noManifestMessage)
	}
	// The manifest name only makes sense for a single module.
	if ok && len(s.inputs) == 1 {
		s.name = cfg.Module.Name
	}

	flags := cmd.Flags()
	if flags.Lookup("name") != nil && flags.Changed("name") {
		if s.name, err = flags.GetString("name"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("runtime") != nil && flags.Changed("runtime") {
		if s.runtime, err = flags.GetString("runtime"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("out-dir") != nil && flags.Changed("out-dir") {
		if s.outDir, err = flags.GetString("out-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		if s.jobs, err = flags.GetInt("jobs"); err != nil {
			return nil, err
		}
		if s.jobs < 0 {
			return nil, fmt.Errorf("--jobs must not be negative, got %d", s.jobs)
		}
	}
	return s, nil
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return path
	}
	return filepath.ToSlash(rel)
}
