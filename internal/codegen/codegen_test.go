package codegen_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"ilforge/internal/ast"
	"ilforge/internal/backend/textual"
	"ilforge/internal/codegen"
	"ilforge/internal/diag"
	"ilforge/internal/observ"
	"ilforge/internal/testkit"
	"ilforge/internal/trace"
)

func id(name string) *ast.Ident       { return &ast.Ident{Name: name} }
func num(v int32) *ast.IntLit         { return &ast.IntLit{Value: v} }
func str(s string) *ast.StringLit     { return &ast.StringLit{Value: s} }
func ret(x ast.Expr) *ast.Return      { return &ast.Return{Value: x} }
func do(x ast.Expr) *ast.ExprStmt     { return &ast.ExprStmt{X: x} }
func set(dst, v ast.Expr) *ast.Assign { return &ast.Assign{Target: dst, Value: v} }

func call(name string, args ...ast.Expr) *ast.Call {
	return &ast.Call{Name: name, Args: args}
}

func callOn(target ast.Expr, name string, args ...ast.Expr) *ast.Call {
	return &ast.Call{Target: target, Name: name, Args: args}
}

func bin(op ast.BinaryOp, l, r ast.Expr) *ast.Binary {
	return &ast.Binary{Op: op, Left: l, Right: r}
}

func local(name, typ string, init ast.Expr) *ast.LocalDecl {
	return &ast.LocalDecl{Name: name, Type: typ, Init: init}
}

func writeLine(x ast.Expr) ast.Stmt {
	return do(callOn(id("Console"), "WriteLine", x))
}

func static(name, ret string, params []ast.Param, body ...ast.Stmt) *ast.MethodDecl {
	return &ast.MethodDecl{Name: name, Static: true, Return: ret, Params: params, Body: body}
}

func method(name, ret string, params []ast.Param, body ...ast.Stmt) *ast.MethodDecl {
	return &ast.MethodDecl{Name: name, Return: ret, Params: params, Body: body}
}

func params(pairs ...string) []ast.Param {
	var out []ast.Param
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, ast.Param{Name: pairs[i], Type: pairs[i+1]})
	}
	return out
}

func mainMethod(body ...ast.Stmt) *ast.MethodDecl {
	return static("Main", "", nil, body...)
}

func program(methods ...*ast.MethodDecl) *ast.Program {
	return &ast.Program{Classes: []*ast.ClassDecl{{Name: "Program", Methods: methods}}}
}

func fnDelegate() *ast.DelegateDecl {
	return &ast.DelegateDecl{Name: "Fn", Return: "int", Params: params("x", "int")}
}

func codeOf(err error) diag.Code {
	c, _ := diag.CodeOf(err)
	return c
}

func compileTextual(t *testing.T, prog *ast.Program) ([]string, error) {
	t.Helper()
	mod := textual.New(textual.Options{Name: "Hello"})
	if _, err := codegen.Generate(context.Background(), prog, codegen.Options{Module: mod}); err != nil {
		return nil, err
	}
	lines := mod.Lines()
	if err := testkit.CheckListingInvariants(lines); err != nil {
		t.Fatalf("malformed listing: %v\n%s", err, strings.Join(lines, "\n"))
	}
	return lines, nil
}

func mustTextual(t *testing.T, prog *ast.Program) []string {
	t.Helper()
	lines, err := compileTextual(t, prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return lines
}

// body returns the trimmed instruction lines of the method whose header
// contains sig.
func body(t *testing.T, lines []string, sig string) []string {
	t.Helper()
	start := -1
	for i, l := range lines {
		if strings.HasPrefix(l, "    .method ") && strings.Contains(l, sig) {
			start = i
			break
		}
	}
	if start < 0 {
		t.Fatalf("no method %q in listing:\n%s", sig, strings.Join(lines, "\n"))
	}
	var out []string
	for _, l := range lines[start+2:] {
		if l == "    }" {
			break
		}
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, ".") {
			continue
		}
		out = append(out, l)
	}
	return out
}

func TestHelloListing(t *testing.T) {
	got := mustTextual(t, program(mainMethod(writeLine(str("hi")))))
	want := []string{
		".assembly extern mscorlib {}",
		".assembly Hello {}",
		".module Hello.exe",
		".class public auto ansi beforefieldinit Program",
		"{",
		"    .method public hidebysig specialname rtspecialname instance void .ctor() cil managed",
		"    {",
		"        .maxstack 1",
		"        ldarg.0",
		"        call instance void [mscorlib]System.Object::.ctor()",
		"        ret",
		"    }",
		"    .method public hidebysig static void Main() cil managed",
		"    {",
		"        .entrypoint",
		"        .maxstack 1",
		`        ldstr "hi"`,
		"        call void [mscorlib]System.Console::WriteLine(string)",
		"        ret",
		"    }",
		"}",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("listing mismatch\n got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestLocalsUseShortForms(t *testing.T) {
	var stmts []ast.Stmt
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		stmts = append(stmts, local(name, "", num(int32(i))))
	}
	stmts = append(stmts, writeLine(id("f")))
	lines := mustTextual(t, program(mainMethod(stmts...)))

	var stores []string
	for _, l := range body(t, lines, "Main()") {
		if strings.HasPrefix(l, "stloc") {
			stores = append(stores, l)
		}
	}
	want := []string{"stloc.0", "stloc.1", "stloc.2", "stloc.3", "stloc 4", "stloc 5"}
	if !slices.Equal(stores, want) {
		t.Fatalf("stores = %v, want %v", stores, want)
	}
	listing := strings.Join(lines, "\n")
	if !strings.Contains(listing, ".locals init (int32 V_0, int32 V_1, int32 V_2, int32 V_3, int32 V_4, int32 V_5)") {
		t.Errorf("locals directive missing:\n%s", listing)
	}
	if !strings.Contains(listing, "ldloc 5") {
		t.Errorf("slot 5 should load with the indexed form:\n%s", listing)
	}
}

func TestStaticCallAndArguments(t *testing.T) {
	prog := program(
		static("Twice", "int", params("x", "int"), ret(bin(ast.OpMul, id("x"), num(2)))),
		mainMethod(writeLine(call("Twice", num(21)))),
	)
	lines := mustTextual(t, prog)
	if got, want := body(t, lines, "Twice("), []string{"ldarg.0", "ldc.i4.2", "mul", "ret"}; !slices.Equal(got, want) {
		t.Errorf("Twice body = %v, want %v", got, want)
	}
	if got, want := body(t, lines, "Main()"), []string{
		"ldc.i4.s 21",
		"call int32 Program::Twice(int32)",
		"call void [mscorlib]System.Console::WriteLine(int32)",
		"ret",
	}; !slices.Equal(got, want) {
		t.Errorf("Main body = %v, want %v", got, want)
	}
}

func TestComparisonsNegate(t *testing.T) {
	cases := []struct {
		op   ast.BinaryOp
		want []string
	}{
		{ast.OpEq, []string{"ceq"}},
		{ast.OpLt, []string{"clt"}},
		{ast.OpGt, []string{"cgt"}},
		{ast.OpNe, []string{"ceq", "ldc.i4.0", "ceq"}},
		{ast.OpLe, []string{"cgt", "ldc.i4.0", "ceq"}},
		{ast.OpGe, []string{"clt", "ldc.i4.0", "ceq"}},
	}
	for _, tc := range cases {
		t.Run(tc.op.String(), func(t *testing.T) {
			prog := program(static("Cmp", "bool", params("a", "int", "b", "int"),
				ret(bin(tc.op, id("a"), id("b")))))
			got := body(t, mustTextual(t, prog), "Cmp(")
			want := append([]string{"ldarg.0", "ldarg.1"}, tc.want...)
			want = append(want, "ret")
			if !slices.Equal(got, want) {
				t.Errorf("body = %v, want %v", got, want)
			}
		})
	}
}

func TestDelegateThunk(t *testing.T) {
	prog := program(
		static("Twice", "int", params("x", "int"), ret(bin(ast.OpMul, id("x"), num(2)))),
		mainMethod(
			local("f", "Fn", id("Twice")),
			writeLine(call("f", num(21))),
		),
	)
	prog.Delegates = []*ast.DelegateDecl{fnDelegate()}
	lines := mustTextual(t, prog)
	listing := strings.Join(lines, "\n")
	for _, want := range []string{
		"       extends [mscorlib]System.MulticastDelegate",
		"instance void .ctor(object 'object', native int 'method') runtime managed",
		"instance int32 Invoke(int32 x) runtime managed",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing lacks %q:\n%s", want, listing)
		}
	}
	got := body(t, lines, "Main()")
	want := []string{
		"ldnull",
		"ldftn int32 Program::Twice(int32)",
		"newobj instance void Fn::.ctor(object, native int)",
		"stloc.0",
		"ldloc.0",
		"ldc.i4.s 21",
		"callvirt instance int32 Fn::Invoke(int32)",
		"call void [mscorlib]System.Console::WriteLine(int32)",
		"ret",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Main body = %v, want %v", got, want)
	}
}

func TestFieldInitializersRunFirst(t *testing.T) {
	prog := &ast.Program{Classes: []*ast.ClassDecl{{
		Name:   "Point",
		Fields: []*ast.FieldDecl{{Name: "x", Type: "int", Init: num(3)}, {Name: "y", Type: "int"}},
		Ctors: []*ast.CtorDecl{{
			Params: params("y0", "int"),
			Body:   []ast.Stmt{set(id("y"), id("y0"))},
		}},
	}}}
	got := body(t, mustTextual(t, prog), ".ctor(int32 y0)")
	want := []string{
		"ldarg.0",
		"call instance void [mscorlib]System.Object::.ctor()",
		"ldarg.0",
		"ldc.i4.3",
		"stfld int32 Point::x",
		"ldarg.0",
		"ldarg.1",
		"stfld int32 Point::y",
		"ret",
	}
	if !slices.Equal(got, want) {
		t.Errorf("ctor body = %v, want %v", got, want)
	}
}

func TestValueReceiverTakesAddress(t *testing.T) {
	prog := program(
		static("Show", "string", nil,
			local("x", "", num(42)),
			ret(callOn(id("x"), "ToString")),
		),
		static("ShowSum", "string", nil,
			ret(callOn(bin(ast.OpAdd, num(3), num(4)), "ToString")),
		),
	)
	lines := mustTextual(t, prog)
	if got, want := body(t, lines, "Show()"), []string{
		"ldc.i4.s 42",
		"stloc.0",
		"ldloca 0",
		"call instance string [mscorlib]System.Int32::ToString()",
		"ret",
	}; !slices.Equal(got, want) {
		t.Errorf("Show body = %v, want %v", got, want)
	}
	if got, want := body(t, lines, "ShowSum()"), []string{
		"ldc.i4.3",
		"ldc.i4.4",
		"add",
		"stloc.0",
		"ldloca 0",
		"call instance string [mscorlib]System.Int32::ToString()",
		"ret",
	}; !slices.Equal(got, want) {
		t.Errorf("ShowSum body = %v, want %v", got, want)
	}
}

func TestTextualRejectsBranches(t *testing.T) {
	prog := program(mainMethod(&ast.While{Cond: &ast.BoolLit{Value: false}}))
	_, err := compileTextual(t, prog)
	if !errors.Is(err, diag.ErrBackend) {
		t.Fatalf("while on the textual backend: %v", err)
	}
	if !strings.Contains(err.Error(), "Program::Main") {
		t.Errorf("error should name the member: %v", err)
	}
}

func TestNoModule(t *testing.T) {
	if _, err := codegen.Generate(context.Background(), program(), codegen.Options{}); err == nil {
		t.Fatal("expected an error without a module builder")
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mod := textual.New(textual.Options{})
	_, err := codegen.Generate(ctx, program(mainMethod()), codegen.Options{Module: mod})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPassesAreTracedAndTimed(t *testing.T) {
	ring := trace.NewRingTracer(512, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	timer := observ.NewTimer()
	mod := textual.New(textual.Options{})
	res, err := codegen.Generate(ctx, program(mainMethod()), codegen.Options{Module: mod, Timer: timer})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res.EntryPoint == nil || res.EntryPoint.Name() != "Main" {
		t.Errorf("entry point = %v", res.EntryPoint)
	}
	if len(res.Types) != 1 || res.Types[0].Name() != "Program" {
		t.Errorf("types = %v", res.Types)
	}

	wantPasses := []string{"builtins", "declare", "thunks", "generate", "finalize"}
	var passes []string
	implicitRet := false
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanBegin && ev.Scope == trace.ScopePhase {
			passes = append(passes, ev.Name)
		}
		if ev.Kind == trace.KindPoint && ev.Name == "implicit-ret" && ev.Detail == "Main" {
			implicitRet = true
		}
	}
	if !slices.Equal(passes, wantPasses) {
		t.Errorf("traced passes = %v, want %v", passes, wantPasses)
	}
	if !implicitRet {
		t.Error("implicit return of Main was not traced")
	}

	var timed []string
	for _, p := range timer.Report().Phases {
		timed = append(timed, p.Name)
	}
	if !slices.Equal(timed, wantPasses) {
		t.Errorf("timed passes = %v, want %v", timed, wantPasses)
	}
}
