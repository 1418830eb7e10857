package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilforge/internal/prof"
)

// profiling is the profiler session of the command being executed.
var profiling *prof.Session

func setupProfiling(cmd *cobra.Command) error {
	var opts prof.Options
	for flag, dst := range map[string]*string{
		"cpu-profile":   &opts.CPU,
		"mem-profile":   &opts.Heap,
		"runtime-trace": &opts.Trace,
	} {
		v, err := cmd.Flags().GetString(flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		*dst = v
	}
	s, err := prof.Start(opts)
	if err != nil {
		return err
	}
	if s.Active() {
		profiling = s
	}
	return nil
}

func stopProfiling(cmd *cobra.Command) {
	s := profiling
	profiling = nil
	if err := s.Stop(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
	}
}
