package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilforge/internal/buildpipeline"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] [input...]",
		Short: "Write an ILAsm listing for each input",
		Long: "Build compiles syntax trees (.ilt or .json) with the textual backend and writes\n" +
			"<out-dir>/<module>.il for each of them. Without inputs the manifest's\n" +
			"[build].inputs are used.",
		RunE: buildExecution,
	}
	cmd.Flags().String("name", "", "module name (single input only)")
	cmd.Flags().String("runtime", "", "external runtime assembly")
	cmd.Flags().StringP("out-dir", "o", "", "output directory")
	cmd.Flags().IntP("jobs", "j", 0, "parallel compilations (0 = one per CPU)")
	cmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	return cmd
}

func buildExecution(cmd *cobra.Command, args []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}

	req := &buildpipeline.BuildRequest{
		Inputs:  s.inputs,
		OutDir:  s.outDir,
		Name:    s.name,
		Runtime: s.runtime,
		Jobs:    s.jobs,
		BaseDir: s.baseDir,
		Timings: timings,
	}
	var results []buildpipeline.UnitResult
	if shouldUseTUI(mode) {
		results, err = runBuildWithUI(cmd.Context(), "ilforge build", buildpipeline.DisplayNames(s.inputs, s.baseDir), req)
	} else {
		results, err = buildpipeline.Build(cmd.Context(), req)
	}

	out := cmd.OutOrStdout()
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if _, werr := fmt.Fprintf(out, "built %s\n", formatPathForOutput(s.baseDir, res.Output)); werr != nil {
			return werr
		}
		if timings {
			printUnitTimings(out, res)
		}
	}
	return err
}
