package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilforge/internal/buildpipeline"
	"ilforge/internal/observ"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] [input]",
		Short: "Compile an input with the dynamic backend and execute Main",
		Long: "Run builds live types for a syntax tree and invokes its entry point.\n" +
			"The exit status is the int returned by Main, or 0 for a void Main.",
		Args: cobra.MaximumNArgs(1),
		RunE: runExecution,
	}
	cmd.Flags().String("name", "", "module name")
	return cmd
}

func runExecution(cmd *cobra.Command, args []string) error {
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	if len(s.inputs) != 1 {
		return fmt.Errorf("run takes one input, the manifest lists %d", len(s.inputs))
	}

	var timer *observ.Timer
	if timings {
		timer = observ.NewTimer()
	}
	code, err := buildpipeline.Run(cmd.Context(), &buildpipeline.RunRequest{
		Input:  s.inputs[0],
		Name:   s.name,
		Stdout: cmd.OutOrStdout(),
		Stdin:  cmd.InOrStdin(),
		Timer:  timer,
	})
	if timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}
