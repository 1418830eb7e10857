package codegen_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"ilforge/internal/ast"
	"ilforge/internal/backend/dynamic"
	"ilforge/internal/codegen"
	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

type build struct {
	mod *dynamic.Module
	out *bytes.Buffer
}

func compileDynamic(t *testing.T, prog *ast.Program, stdin string) (*build, error) {
	t.Helper()
	out := &bytes.Buffer{}
	mod := dynamic.New(dynamic.Options{Name: "Test", Stdout: out, Stdin: strings.NewReader(stdin)})
	if _, err := codegen.Generate(context.Background(), prog, codegen.Options{Module: mod}); err != nil {
		return nil, err
	}
	return &build{mod: mod, out: out}, nil
}

func mustDynamic(t *testing.T, prog *ast.Program) *build {
	t.Helper()
	b, err := compileDynamic(t, prog, "")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return b
}

func (b *build) run(t *testing.T) string {
	t.Helper()
	if _, err := b.mod.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return b.out.String()
}

func (b *build) method(t *testing.T, typeName, name string) *dynamic.Method {
	t.Helper()
	tt, ok := b.mod.Type(typeName)
	if !ok {
		t.Fatalf("type %s missing", typeName)
	}
	for _, mi := range tt.Methods(typesys.BindAll) {
		if mi.Name() == name {
			return mi.(*dynamic.Method)
		}
	}
	t.Fatalf("method %s::%s missing", typeName, name)
	return nil
}

func (b *build) invoke(t *testing.T, name string, args ...dynamic.Value) dynamic.Value {
	t.Helper()
	v, err := b.method(t, "Program", name).Invoke(context.Background(), args...)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func sumProgram() *ast.Program {
	return program(static("Sum", "int", params("n", "int"),
		local("total", "", num(0)),
		local("i", "", num(1)),
		&ast.While{
			Cond: bin(ast.OpLe, id("i"), id("n")),
			Body: []ast.Stmt{
				set(id("total"), bin(ast.OpAdd, id("total"), id("i"))),
				set(id("i"), bin(ast.OpAdd, id("i"), num(1))),
			},
		},
		ret(id("total")),
	))
}

func TestWhileLoop(t *testing.T) {
	b := mustDynamic(t, sumProgram())
	for n, want := range map[int32]int32{0: 0, 1: 1, 10: 55} {
		if got := b.invoke(t, "Sum", dynamic.Int(n)); got.I != want {
			t.Errorf("Sum(%d) = %d, want %d", n, got.I, want)
		}
	}

	code := b.method(t, "Program", "Sum").Body().Code
	if code[4].Op != typesys.OpBr || code[4].Int != 13 {
		t.Errorf("loop should open with a jump to the test at IL_0013, got %s", dynamic.FormatInstr(code[4]))
	}
	var test []string
	for _, in := range code[13:19] {
		test = append(test, dynamic.FormatInstr(in))
	}
	want := []string{"ldloc.1", "ldarg.0", "cgt", "ldc.i4.0", "ceq", "brtrue IL_0005"}
	if strings.Join(test, "; ") != strings.Join(want, "; ") {
		t.Errorf("loop test = %v, want %v", test, want)
	}
}

func TestComparisonsExecute(t *testing.T) {
	ops := map[ast.BinaryOp]func(a, b int32) bool{
		ast.OpEq: func(a, b int32) bool { return a == b },
		ast.OpNe: func(a, b int32) bool { return a != b },
		ast.OpLt: func(a, b int32) bool { return a < b },
		ast.OpGt: func(a, b int32) bool { return a > b },
		ast.OpLe: func(a, b int32) bool { return a <= b },
		ast.OpGe: func(a, b int32) bool { return a >= b },
	}
	for op, eval := range ops {
		b := mustDynamic(t, program(static("Cmp", "bool", params("a", "int", "b", "int"),
			ret(bin(op, id("a"), id("b"))))))
		for _, pair := range [][2]int32{{3, 5}, {5, 5}, {5, 3}, {-1, 0}} {
			got := b.invoke(t, "Cmp", dynamic.Int(pair[0]), dynamic.Int(pair[1]))
			if want := eval(pair[0], pair[1]); got.Kind != dynamic.KindInt || (got.I != 0) != want {
				t.Errorf("%d %s %d = %+v, want %v", pair[0], op, pair[1], got, want)
			}
		}
	}
}

func TestIfElse(t *testing.T) {
	b := mustDynamic(t, program(static("Max", "int", params("a", "int", "b", "int"),
		local("r", "", id("b")),
		&ast.If{
			Cond: bin(ast.OpGe, id("a"), id("b")),
			Then: []ast.Stmt{set(id("r"), id("a"))},
		},
		ret(id("r")),
	)))
	for _, tc := range []struct{ a, b, want int32 }{{3, 9, 9}, {9, 3, 9}, {5, 5, 5}, {-4, -7, -4}} {
		if got := b.invoke(t, "Max", dynamic.Int(tc.a), dynamic.Int(tc.b)); got.I != tc.want {
			t.Errorf("Max(%d, %d) = %d, want %d", tc.a, tc.b, got.I, tc.want)
		}
	}
}

func TestHelloRuns(t *testing.T) {
	b := mustDynamic(t, program(mainMethod(
		writeLine(str("hi")),
		writeLine(bin(ast.OpAdd, bin(ast.OpAdd, str("a"), &ast.Member{Target: id("string"), Name: "Empty"}), str("b"))),
		writeLine(&ast.Member{Target: str("four"), Name: "Length"}),
	)))
	if got, want := b.run(t), "hi\nab\n4\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestEntryPointExitCode(t *testing.T) {
	prog := program(static("Main", "int", nil,
		local("s", "", callOn(id("Console"), "ReadLine")),
		ret(bin(ast.OpAdd, callOn(id("int"), "Parse", id("s")), num(1))),
	))
	b, err := compileDynamic(t, prog, "41\n")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	code, err := b.mod.Run(context.Background())
	if err != nil || code != 42 {
		t.Fatalf("Run = %d, %v; want 42", code, err)
	}
}

func TestOverloadsResolveExactly(t *testing.T) {
	b := mustDynamic(t, program(
		static("F", "int", params("x", "int"), ret(num(1))),
		static("F", "int", params("s", "string"), ret(num(2))),
		static("F", "int", params("o", "object"), ret(num(3))),
		mainMethod(
			writeLine(call("F", num(5))),
			writeLine(call("F", str("x"))),
			writeLine(call("F", &ast.New{Type: "object"})),
			writeLine(call("F", &ast.NullLit{})),
		),
	))
	if got, want := b.run(t), "1\n2\n3\n2\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestMixedStaticAndInstanceOverloads(t *testing.T) {
	prog := &ast.Program{Classes: []*ast.ClassDecl{
		{
			Name:   "Calc",
			Fields: []*ast.FieldDecl{{Name: "offset", Type: "int", Init: num(10)}},
			Methods: []*ast.MethodDecl{
				method("Add", "int", params("k", "int"), ret(bin(ast.OpAdd, id("offset"), id("k")))),
				static("Add", "int", params("s", "string"), ret(callOn(id("s"), "get_Length"))),
				method("Run", "int", nil, ret(call("Add", num(5)))),
				method("RunText", "int", nil, ret(call("Add", str("abc")))),
			},
		},
		{
			Name: "Program",
			Methods: []*ast.MethodDecl{mainMethod(
				local("c", "", &ast.New{Type: "Calc"}),
				writeLine(callOn(id("c"), "Run")),
				writeLine(callOn(id("c"), "RunText")),
			)},
		},
	}}
	if got, want := mustDynamic(t, prog).run(t), "15\n3\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestDelegates(t *testing.T) {
	prog := &ast.Program{
		Delegates: []*ast.DelegateDecl{fnDelegate()},
		Classes: []*ast.ClassDecl{
			{
				Name:   "Counter",
				Fields: []*ast.FieldDecl{{Name: "n", Type: "int"}},
				Methods: []*ast.MethodDecl{
					method("Add", "int", params("k", "int"),
						set(id("n"), bin(ast.OpAdd, id("n"), id("k"))),
						ret(id("n")),
					),
				},
			},
			{
				Name: "Program",
				Methods: []*ast.MethodDecl{
					static("Twice", "int", params("x", "int"), ret(bin(ast.OpMul, id("x"), num(2)))),
					static("Apply", "int", params("f", "Fn", "v", "int"), ret(call("f", id("v")))),
					mainMethod(
						local("f", "Fn", id("Twice")),
						writeLine(call("f", num(21))),
						local("c", "", &ast.New{Type: "Counter"}),
						local("g", "Fn", &ast.MethodRef{Target: id("c"), Name: "Add"}),
						local("first", "", call("g", num(5))),
						writeLine(call("Apply", id("g"), num(3))),
						writeLine(callOn(id("c"), "Add", num(0))),
						writeLine(call("Apply", &ast.MethodRef{Target: id("Program"), Name: "Twice"}, num(8))),
					),
				},
			},
		},
	}
	if got, want := mustDynamic(t, prog).run(t), "42\n8\n8\n16\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestMemberMethodGroups(t *testing.T) {
	prog := &ast.Program{
		Delegates: []*ast.DelegateDecl{fnDelegate()},
		Classes: []*ast.ClassDecl{
			{
				Name:   "Counter",
				Fields: []*ast.FieldDecl{{Name: "n", Type: "int"}},
				Methods: []*ast.MethodDecl{
					method("Add", "int", params("k", "int"),
						set(id("n"), bin(ast.OpAdd, id("n"), id("k"))),
						ret(id("n")),
					),
				},
			},
			{
				Name: "Program",
				Methods: []*ast.MethodDecl{
					static("Twice", "int", params("x", "int"), ret(bin(ast.OpMul, id("x"), num(2)))),
					static("Apply", "int", params("f", "Fn", "v", "int"), ret(call("f", id("v")))),
					mainMethod(
						local("c", "", &ast.New{Type: "Counter"}),
						local("g", "Fn", &ast.Member{Target: id("c"), Name: "Add"}),
						local("h", "Fn", &ast.Member{Target: id("Program"), Name: "Twice"}),
						writeLine(call("g", num(4))),
						writeLine(call("h", num(5))),
						writeLine(call("Apply", &ast.Member{Target: id("c"), Name: "Add"}, num(1))),
					),
				},
			},
		},
	}
	want := "4\n10\n5\n"
	if got := mustDynamic(t, prog).run(t); got != want {
		t.Errorf("dynamic stdout = %q, want %q", got, want)
	}
	lines := mustTextual(t, prog)
	if !slices.ContainsFunc(lines, func(s string) bool { return strings.Contains(s, "ldvirtftn") }) {
		t.Errorf("textual output binds no instance method:\n%s", strings.Join(lines, "\n"))
	}
}

func TestArrayElementTypeShared(t *testing.T) {
	b := mustDynamic(t, program(static("Roundtrip", "int", nil,
		local("arr", "int[]", &ast.NewArray{Elem: "int", Size: num(3)}),
		set(&ast.Index{Array: id("arr"), Index: num(1)}, num(7)),
		ret(bin(ast.OpAdd, &ast.Index{Array: id("arr"), Index: num(1)}, &ast.Member{Target: id("arr"), Name: "Length"})),
	)))
	if got := b.invoke(t, "Roundtrip"); got.I != 10 {
		t.Fatalf("Roundtrip = %d, want 10", got.I)
	}

	var store, load typesys.Type
	for _, in := range b.method(t, "Program", "Roundtrip").Body().Code {
		switch in.Op {
		case typesys.OpStelem:
			store = in.Type
		case typesys.OpLdelem:
			load = in.Type
		}
	}
	if store == nil || load == nil || store != load {
		t.Errorf("stelem and ldelem should share one element type: %v vs %v", store, load)
	}
}

func TestConstructorsAndFields(t *testing.T) {
	prog := &ast.Program{Classes: []*ast.ClassDecl{
		{
			Name: "Point",
			Fields: []*ast.FieldDecl{
				{Name: "x", Type: "int", Init: num(3)},
				{Name: "y", Type: "int"},
				{Name: "count", Type: "int", Static: true},
			},
			Ctors: []*ast.CtorDecl{
				{Body: []ast.Stmt{&ast.BaseCtorCall{}, set(id("y"), num(1))}},
				{Params: params("y0", "int"), Body: []ast.Stmt{
					set(id("y"), id("y0")),
					set(&ast.Member{Target: id("Point"), Name: "count"}, bin(ast.OpAdd, id("count"), num(1))),
				}},
			},
			Methods: []*ast.MethodDecl{
				method("Sum", "int", nil, ret(bin(ast.OpAdd, id("x"), &ast.Member{Target: &ast.This{}, Name: "y"}))),
			},
		},
		{
			Name: "Program",
			Methods: []*ast.MethodDecl{mainMethod(
				local("p", "", &ast.New{Type: "Point", Args: []ast.Expr{num(4)}}),
				local("q", "Point", &ast.New{Type: "Point"}),
				writeLine(callOn(id("p"), "Sum")),
				writeLine(callOn(id("q"), "Sum")),
				set(&ast.Member{Target: id("p"), Name: "x"}, num(10)),
				writeLine(&ast.Member{Target: id("p"), Name: "x"}),
				writeLine(&ast.Member{Target: id("Point"), Name: "count"}),
			)},
		},
	}}
	b := mustDynamic(t, prog)
	if got, want := b.run(t), "7\n4\n10\n1\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}

	tt, _ := b.mod.Type("Point")
	for _, c := range tt.Constructors(typesys.BindAll) {
		base := 0
		for _, in := range c.(*dynamic.Constructor).Body().Code {
			if in.Op == typesys.OpCall && in.Ctor != nil {
				base++
			}
		}
		if base != 1 {
			t.Errorf("constructor %s calls the base constructor %d times", typesys.Signature(typesys.CtorName, c.ParameterTypes()), base)
		}
	}
}

func TestValueReceivers(t *testing.T) {
	b := mustDynamic(t, program(
		static("Show", "string", nil, local("x", "", num(42)), ret(callOn(id("x"), "ToString"))),
		static("ShowSum", "string", nil, ret(callOn(bin(ast.OpAdd, num(3), num(4)), "ToString"))),
		static("Flag", "string", params("b", "bool"), ret(callOn(id("b"), "ToString"))),
	))
	if got := b.invoke(t, "Show"); got.S != "42" {
		t.Errorf("Show = %+v", got)
	}
	if got := b.invoke(t, "ShowSum"); got.S != "7" {
		t.Errorf("ShowSum = %+v", got)
	}
	if got := b.invoke(t, "Flag", dynamic.Bool(true)); got.S != "True" {
		t.Errorf("Flag = %+v", got)
	}
}

func TestStrayValueRejected(t *testing.T) {
	prog := program(
		static("One", "int", nil, ret(num(1))),
		mainMethod(do(call("One"))),
	)
	_, err := compileDynamic(t, prog, "")
	if codeOf(err) != diag.ShapeStrayValue {
		t.Fatalf("err = %v, want %s", err, diag.ShapeStrayValue)
	}
}

func TestImplicitReturn(t *testing.T) {
	ok := program(mainMethod(writeLine(num(1))), static("Noop", "", nil))
	if _, err := compileDynamic(t, ok, ""); err != nil {
		t.Fatalf("void bodies get an implicit return: %v", err)
	}

	branchy := program(static("Pick", "int", params("a", "bool"),
		&ast.If{Cond: id("a"), Then: []ast.Stmt{ret(num(1))}, Else: []ast.Stmt{ret(num(2))}},
	))
	if _, err := compileDynamic(t, branchy, ""); codeOf(err) != diag.ShapeMissingReturn {
		t.Fatalf("only the last statement counts: %v", err)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		prog *ast.Program
		code diag.Code
	}{
		{
			name: "missing return",
			prog: program(static("F", "int", nil, local("a", "", num(1)))),
			code: diag.ShapeMissingReturn,
		},
		{
			name: "no overload",
			prog: program(
				static("F", "int", params("x", "int"), ret(id("x"))),
				mainMethod(writeLine(call("F", &ast.BoolLit{Value: true}))),
			),
			code: diag.LookupNoOverload,
		},
		{
			name: "delegate signature",
			prog: &ast.Program{
				Delegates: []*ast.DelegateDecl{fnDelegate()},
				Classes: []*ast.ClassDecl{{Name: "Program", Methods: []*ast.MethodDecl{
					static("Text", "string", params("x", "int"), ret(str("x"))),
					mainMethod(local("f", "Fn", id("Text"))),
				}}},
			},
			code: diag.ShapeDelegateSignature,
		},
		{
			name: "duplicate local",
			prog: program(mainMethod(local("a", "", num(1)), local("a", "", num(2)))),
			code: diag.ShapeDuplicateLocal,
		},
		{
			name: "two entry points",
			prog: &ast.Program{Classes: []*ast.ClassDecl{
				{Name: "A", Methods: []*ast.MethodDecl{mainMethod()}},
				{Name: "B", Methods: []*ast.MethodDecl{mainMethod()}},
			}},
			code: diag.ShapeMultipleEntries,
		},
		{
			name: "entry point with parameters",
			prog: program(static("Main", "", params("args", "int"))),
			code: diag.ShapeInvalidEntryPoint,
		},
		{
			name: "static field initializer",
			prog: &ast.Program{Classes: []*ast.ClassDecl{{
				Name:   "Program",
				Fields: []*ast.FieldDecl{{Name: "n", Type: "int", Static: true, Init: num(1)}},
			}}},
			code: diag.ShapeStaticFieldInit,
		},
		{
			name: "duplicate type",
			prog: &ast.Program{Classes: []*ast.ClassDecl{{Name: "A"}, {Name: "A"}}},
			code: diag.ShapeDuplicateType,
		},
		{
			name: "unknown type",
			prog: program(mainMethod(local("a", "Missing", nil))),
			code: diag.LookupMissingType,
		},
		{
			name: "non-bool condition",
			prog: program(mainMethod(&ast.While{Cond: num(1)})),
			code: diag.TypeNotBool,
		},
		{
			name: "initializer mismatch",
			prog: program(mainMethod(local("a", "int", str("s")))),
			code: diag.TypeMismatch,
		},
		{
			name: "void initializer",
			prog: program(mainMethod(local("a", "", callOn(id("Console"), "WriteLine", str("x"))))),
			code: diag.TypeVoidValue,
		},
		{
			name: "this in static method",
			prog: program(mainMethod(writeLine(&ast.This{}))),
			code: diag.ShapeStaticContext,
		},
		{
			name: "unknown name",
			prog: program(mainMethod(writeLine(id("nope")))),
			code: diag.LookupMissingName,
		},
		{
			name: "assign to call",
			prog: program(
				static("One", "int", nil, ret(num(1))),
				mainMethod(set(call("One"), num(2))),
			),
			code: diag.ShapeNotAssignable,
		},
		{
			name: "infer from null",
			prog: program(mainMethod(local("a", "", &ast.NullLit{}))),
			code: diag.TypeCannotInfer,
		},
		{
			name: "null to a value parameter",
			prog: program(
				static("F", "int", params("x", "int"), ret(id("x"))),
				mainMethod(writeLine(call("F", &ast.NullLit{}))),
			),
			code: diag.LookupNoOverload,
		},
		{
			name: "arithmetic on strings",
			prog: program(mainMethod(writeLine(bin(ast.OpMul, str("a"), str("b"))))),
			code: diag.TypeNotInteger,
		},
		{
			name: "index a non-array",
			prog: program(mainMethod(writeLine(&ast.Index{Array: num(1), Index: num(0)}))),
			code: diag.TypeNotArray,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compileDynamic(t, tc.prog, "")
			if err == nil {
				t.Fatalf("expected %s", tc.code)
			}
			if got := codeOf(err); got != tc.code {
				t.Fatalf("code = %s, want %s (%v)", got, tc.code, err)
			}
			if !errors.Is(err, &diag.Error{Code: tc.code}) {
				t.Errorf("errors.Is should match the code through wrapping: %v", err)
			}
		})
	}
}
