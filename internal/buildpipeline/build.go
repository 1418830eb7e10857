package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ilforge/internal/ast"
	"ilforge/internal/observ"
	"ilforge/internal/trace"
)

// ListingExt is the extension of files written by Build.
const ListingExt = ".il"

// BuildRequest describes a textual build of one or more inputs.
type BuildRequest struct {
	Inputs []string
	OutDir string
	// Name overrides the module name; it is only valid with a single input.
	Name    string
	Runtime string
	// Jobs limits concurrent compilations; zero means one per CPU.
	Jobs int
	// BaseDir shortens the file names reported to Progress.
	BaseDir  string
	Progress ProgressSink
	// Timings attaches a phase timer to every unit.
	Timings bool
}

// UnitResult is the outcome of building one input.
type UnitResult struct {
	Input   string
	Display string
	Output  string
	Module  string
	Types   int
	Timings Timings
	Timer   *observ.Timer
	Err     error
}

// Build compiles every input with the textual backend and writes one
// listing per input. Inputs are independent and compile concurrently, each
// with its own symbol store. A failing input does not stop the others; the
// returned error joins every unit failure.
func Build(ctx context.Context, req *BuildRequest) ([]UnitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil || len(req.Inputs) == 0 {
		return nil, errors.New("no inputs to build")
	}
	if req.Name != "" && len(req.Inputs) > 1 {
		return nil, fmt.Errorf("module name %q given for %d inputs", req.Name, len(req.Inputs))
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = "."
	}

	results := make([]UnitResult, len(req.Inputs))
	display := DisplayNames(req.Inputs, req.BaseDir)
	owners := make(map[string]string, len(req.Inputs))
	for i, input := range req.Inputs {
		name := req.Name
		if name == "" {
			name = ModuleName(input)
		}
		out := filepath.Join(outDir, name+ListingExt)
		if prev, dup := owners[out]; dup {
			return nil, fmt.Errorf("inputs %s and %s both write %s", prev, input, out)
		}
		owners[out] = input
		results[i] = UnitResult{Input: input, Display: display[i], Output: out, Module: name}
		if req.Timings {
			results[i].Timer = observ.NewTimer()
		}
		emit(req.Progress, display[i], StageLoad, StatusQueued, nil, 0)
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range results {
		unit := &results[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				unit.Err = err
				return err
			}
			unit.Err = buildUnit(gctx, req, unit)
			if unit.Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	var errs []error
	for i := range results {
		if results[i].Err != nil {
			errs = append(errs, results[i].Err)
		}
	}
	return results, errors.Join(errs...)
}

func buildUnit(ctx context.Context, req *BuildRequest, unit *UnitResult) error {
	span, ctx := trace.Start(ctx, trace.ScopeDriver, "build")
	span.WithExtra("input", unit.Display)
	defer span.End(unit.Module)

	stage := func(s Stage, fn func() error) error {
		emit(req.Progress, unit.Display, s, StatusWorking, nil, 0)
		start := time.Now()
		err := fn()
		elapsed := time.Since(start)
		unit.Timings.Set(s, elapsed)
		if err != nil {
			emit(req.Progress, unit.Display, s, StatusError, err, elapsed)
			return err
		}
		return nil
	}

	var prog *ast.Program
	if err := stage(StageLoad, func() (err error) {
		prog, err = LoadProgram(unit.Input)
		return err
	}); err != nil {
		return err
	}
	var res *CompileResult
	if err := stage(StageCompile, func() (err error) {
		res, err = Compile(ctx, &CompileRequest{
			Program: prog,
			Backend: BackendTextual,
			Name:    unit.Module,
			Runtime: req.Runtime,
			Timer:   unit.Timer,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", unit.Display, err)
		}
		return nil
	}); err != nil {
		return err
	}
	unit.Types = len(res.Codegen.Types)

	if err := stage(StageEmit, func() error {
		if err := os.WriteFile(unit.Output, []byte(res.Textual.String()), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", unit.Output, err)
		}
		return nil
	}); err != nil {
		return err
	}
	emit(req.Progress, unit.Display, StageEmit, StatusDone, nil, unit.Timings.Sum())
	return nil
}

// DisplayNames shortens inputs relative to baseDir when they live below it.
func DisplayNames(inputs []string, baseDir string) []string {
	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	out := make([]string, len(inputs))
	for i, input := range inputs {
		out[i] = filepath.ToSlash(input)
		if base == "" {
			continue
		}
		abs, err := filepath.Abs(input)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}
