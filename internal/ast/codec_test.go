package ast

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func sampleProgram() *Program {
	return &Program{
		Delegates: []*DelegateDecl{{Name: "IntFn", Return: "int", Params: []Param{{Name: "x", Type: "int"}}}},
		Classes: []*ClassDecl{{
			Name:   "Counter",
			Fields: []*FieldDecl{{Name: "count", Type: "int", Init: &IntLit{Value: 3}}},
			Ctors:  []*CtorDecl{{Body: []Stmt{&BaseCtorCall{}}}},
			Methods: []*MethodDecl{{
				Name:   "Main",
				Static: true,
				Return: "void",
				Body: []Stmt{
					&LocalDecl{Name: "arr", Init: &NewArray{Elem: "int", Size: &IntLit{Value: 4}}},
					&Assign{Target: &Index{Array: &Ident{Name: "arr"}, Index: &IntLit{Value: 0}}, Value: &Unary{Op: UnaryNeg, Operand: &IntLit{Value: 7}}},
					&LocalDecl{Name: "f", Type: "IntFn", Init: &MethodRef{Name: "Twice"}},
					&While{
						Cond: &Binary{Op: OpLe, Left: &Ident{Name: "i"}, Right: &IntLit{Value: 10}},
						Body: []Stmt{&ExprStmt{X: &Call{Target: &Ident{Name: "Console"}, Name: "WriteLine", Args: []Expr{&StringLit{Value: "hi"}}}}},
					},
					&If{
						Cond: &BoolLit{Value: true},
						Then: []Stmt{&Assign{Target: &Member{Target: &New{Type: "Counter"}, Name: "count"}, Value: &NullLit{}}},
						Else: []Stmt{&ExprStmt{X: &Call{Target: &This{}, Name: "Tick"}}},
					},
					&Return{},
				},
			}},
		}},
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	want := sampleProgram()
	var buf bytes.Buffer
	if err := EncodeMsgpack(&buf, want); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMsgpack(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := sampleProgram()
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, want); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"k": "methodref"`) {
		t.Fatalf("expected methodref node in JSON:\n%s", buf.String())
	}
	got, err := DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatal("JSON round trip mismatch")
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	src := `{"schema":1,"classes":[{"name":"A","methods":[{"name":"M","ret":"void","body":[{"k":"goto"}]}]}]}`
	_, err := DecodeJSON(strings.NewReader(src))
	if err == nil || !strings.Contains(err.Error(), `unknown statement kind "goto"`) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestDecodeRejectsSchema(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"schema":99}`))
	if err == nil || !strings.Contains(err.Error(), "schema 99") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestBinaryOpSpelling(t *testing.T) {
	for op := OpAdd; op <= OpGe; op++ {
		back, ok := ParseBinaryOp(op.String())
		if !ok || back != op {
			t.Fatalf("%v does not round trip", op)
		}
	}
	if !OpNe.IsComparison() || OpAdd.IsComparison() {
		t.Fatal("comparison classification is wrong")
	}
}
