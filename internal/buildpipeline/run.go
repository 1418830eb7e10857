package buildpipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"ilforge/internal/observ"
)

// RunRequest describes executing one input on the dynamic backend.
type RunRequest struct {
	Input string
	// Name overrides the module name derived from Input.
	Name     string
	Stdout   io.Writer
	Stdin    io.Reader
	Progress ProgressSink
	Timer    *observ.Timer
}

// Run compiles the input with the dynamic backend and invokes its entry
// point. The exit code is the int result of Main, or 0 for a void Main.
func Run(ctx context.Context, req *RunRequest) (int, error) {
	res, err := compileDynamic(ctx, req)
	if err != nil {
		return 0, err
	}
	emit(req.Progress, req.Input, StageRun, StatusWorking, nil, 0)
	start := time.Now()
	code, err := res.Dynamic.Run(ctx)
	if err != nil {
		emit(req.Progress, req.Input, StageRun, StatusError, err, time.Since(start))
		return 0, fmt.Errorf("%s: %w", req.Input, err)
	}
	emit(req.Progress, req.Input, StageRun, StatusDone, nil, time.Since(start))
	return code, nil
}

// Dump compiles the input with the dynamic backend and returns the
// disassembly of every generated body.
func Dump(ctx context.Context, req *RunRequest) ([]string, error) {
	res, err := compileDynamic(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Dynamic.Disassemble(), nil
}

func compileDynamic(ctx context.Context, req *RunRequest) (*CompileResult, error) {
	if req == nil || req.Input == "" {
		return nil, fmt.Errorf("no input to run")
	}
	emit(req.Progress, req.Input, StageLoad, StatusWorking, nil, 0)
	prog, err := LoadProgram(req.Input)
	if err != nil {
		emit(req.Progress, req.Input, StageLoad, StatusError, err, 0)
		return nil, err
	}
	name := req.Name
	if name == "" {
		name = ModuleName(req.Input)
	}
	emit(req.Progress, req.Input, StageCompile, StatusWorking, nil, 0)
	res, err := Compile(ctx, &CompileRequest{
		Program: prog,
		Backend: BackendDynamic,
		Name:    name,
		Stdout:  req.Stdout,
		Stdin:   req.Stdin,
		Timer:   req.Timer,
	})
	if err != nil {
		emit(req.Progress, req.Input, StageCompile, StatusError, err, 0)
		return nil, fmt.Errorf("%s: %w", req.Input, err)
	}
	return res, nil
}
