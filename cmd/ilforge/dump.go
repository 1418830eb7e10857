package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ilforge/internal/buildpipeline"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [flags] [input]",
		Short: "Print the generated code of an input",
		Long: "Dump compiles one input and prints the result: the ILAsm listing for the\n" +
			"textual backend, or the disassembled bodies for the dynamic backend.",
		Args: cobra.MaximumNArgs(1),
		RunE: dumpExecution,
	}
	cmd.Flags().String("backend", "", "backend to compile with (textual|dynamic)")
	cmd.Flags().String("name", "", "module name")
	cmd.Flags().String("runtime", "", "external runtime assembly")
	return cmd
}

func dumpExecution(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	if len(s.inputs) != 1 {
		return fmt.Errorf("dump takes one input, the manifest lists %d", len(s.inputs))
	}
	if cmd.Flags().Changed("backend") {
		value, _ := cmd.Flags().GetString("backend")
		backend, ok := buildpipeline.ParseBackend(strings.ToLower(value))
		if !ok {
			return fmt.Errorf("unsupported backend: %s (supported: textual, dynamic)", value)
		}
		s.backend = backend
	}

	input := s.inputs[0]
	var lines []string
	switch s.backend {
	case buildpipeline.BackendDynamic:
		lines, err = buildpipeline.Dump(cmd.Context(), &buildpipeline.RunRequest{Input: input, Name: s.name})
	default:
		lines, err = dumpListing(cmd, input, s)
	}
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func dumpListing(cmd *cobra.Command, input string, s *settings) ([]string, error) {
	prog, err := buildpipeline.LoadProgram(input)
	if err != nil {
		return nil, err
	}
	name := s.name
	if name == "" {
		name = buildpipeline.ModuleName(input)
	}
	res, err := buildpipeline.Compile(cmd.Context(), &buildpipeline.CompileRequest{
		Program: prog,
		Backend: buildpipeline.BackendTextual,
		Name:    name,
		Runtime: s.runtime,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	return res.Textual.Lines(), nil
}
