package buildpipeline

import (
	"context"
	"fmt"
	"io"

	"ilforge/internal/ast"
	"ilforge/internal/backend/dynamic"
	"ilforge/internal/backend/textual"
	"ilforge/internal/codegen"
	"ilforge/internal/observ"
	"ilforge/internal/typesys"
)

// CompileRequest configures one compilation of an already decoded tree.
type CompileRequest struct {
	Program *ast.Program
	Backend Backend
	// Name is the module name; empty selects the backend default.
	Name string
	// Runtime names the external runtime assembly of a textual listing.
	Runtime string
	// Stdout and Stdin are wired into a dynamic module's console.
	Stdout io.Writer
	Stdin  io.Reader
	Timer  *observ.Timer
}

// CompileResult carries the module that was built. Exactly one of Textual
// and Dynamic is set.
type CompileResult struct {
	Backend Backend
	Textual *textual.Module
	Dynamic *dynamic.Module
	Codegen *codegen.Result
}

// Compile builds a fresh module for req.Backend and runs the driver over it.
// Every call gets its own symbol store, so calls may run concurrently.
func Compile(ctx context.Context, req *CompileRequest) (*CompileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, fmt.Errorf("missing compile request")
	}
	res := &CompileResult{Backend: req.Backend}
	var mod typesys.ModuleBuilder
	switch req.Backend {
	case BackendTextual, "":
		res.Backend = BackendTextual
		res.Textual = textual.New(textual.Options{Name: req.Name, Runtime: req.Runtime})
		mod = res.Textual
	case BackendDynamic:
		res.Dynamic = dynamic.New(dynamic.Options{Name: req.Name, Stdout: req.Stdout, Stdin: req.Stdin})
		mod = res.Dynamic
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: textual, dynamic)", req.Backend)
	}
	out, err := codegen.Generate(ctx, req.Program, codegen.Options{Module: mod, Timer: req.Timer})
	if err != nil {
		return nil, err
	}
	res.Codegen = out
	return res, nil
}
