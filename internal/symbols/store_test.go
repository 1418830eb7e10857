package symbols

import (
	"testing"

	"ilforge/internal/backend/textual"
	"ilforge/internal/diag"
	"ilforge/internal/hostlib"
	"ilforge/internal/typesys"
)

func codeOf(err error) diag.Code {
	c, _ := diag.CodeOf(err)
	return c
}

func hostStore(t *testing.T) (*Store, *textual.Module) {
	t.Helper()
	mod := textual.New(textual.Options{})
	s := NewStore()
	if err := s.RegisterBuiltins(mod.HostTypes()); err != nil {
		t.Fatalf("builtins: %v", err)
	}
	for alias, target := range hostlib.Aliases() {
		if err := s.RegisterAlias(alias, target); err != nil {
			t.Fatalf("alias %s: %v", alias, err)
		}
	}
	return s, mod
}

func TestAliasesAndArrays(t *testing.T) {
	s, _ := hostStore(t)
	byAlias, err := s.Lookup("int")
	if err != nil {
		t.Fatalf("lookup int: %v", err)
	}
	if byName := s.Builtin(typesys.Int32Name); byAlias != byName {
		t.Fatalf("alias resolved to %v, want %v", byAlias, byName)
	}

	arr, err := s.Lookup("int[]")
	if err != nil {
		t.Fatalf("lookup int[]: %v", err)
	}
	if !arr.IsArray() || arr.ElementType() != byAlias {
		t.Fatalf("int[] = %v, element %v", arr, arr.ElementType())
	}
	again, _ := s.Lookup("int[]")
	if again != arr {
		t.Error("array types should be cached per name")
	}
	if _, err := s.Lookup("Missing[]"); codeOf(err) != diag.LookupMissingType {
		t.Errorf("Missing[]: %v", err)
	}
	if err := s.RegisterAlias("num", "System.Nope"); codeOf(err) != diag.LookupMissingType {
		t.Errorf("alias to unknown type: %v", err)
	}
}

func TestPhases(t *testing.T) {
	s, mod := hostStore(t)
	tb, err := mod.DefineType("Widget", typesys.TypePublic, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterUserType(tb); codeOf(err) != diag.ShapeStoreFrozen {
		t.Fatalf("user type before declarations: %v", err)
	}
	if err := s.BeginDeclarations(); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseDeclare {
		t.Fatalf("phase = %s", s.Phase())
	}
	if err := s.RegisterAlias("w", "Widget"); codeOf(err) != diag.ShapeStoreFrozen {
		t.Fatalf("alias after builtins: %v", err)
	}
	if err := s.RegisterUserType(tb); err != nil {
		t.Fatal(err)
	}
	if !s.IsUserType(tb) || s.IsUserType(s.Builtin(typesys.StringName)) {
		t.Error("IsUserType should only hold for declared types")
	}
	if err := s.Freeze(); err != nil {
		t.Fatal(err)
	}
	mb, err := tb.DefineMethod("Late", typesys.MethodPublic, s.Builtin(typesys.VoidName), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterMethod(mb); codeOf(err) != diag.ShapeStoreFrozen {
		t.Fatalf("method after freeze: %v", err)
	}
}

func TestDuplicates(t *testing.T) {
	s, mod := hostStore(t)
	if err := s.BeginDeclarations(); err != nil {
		t.Fatal(err)
	}
	shadow, err := mod.DefineType("string", typesys.TypePublic, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterUserType(shadow); codeOf(err) != diag.ShapeDuplicateType {
		t.Fatalf("type named like an alias: %v", err)
	}

	tb, _ := mod.DefineType("Widget", typesys.TypePublic, nil)
	if err := s.RegisterUserType(tb); err != nil {
		t.Fatal(err)
	}
	i32, str := s.Builtin(typesys.Int32Name), s.Builtin(typesys.StringName)
	a, _ := tb.DefineMethod("F", typesys.MethodPublic, i32, []typesys.Type{i32})
	b, _ := tb.DefineMethod("F", typesys.MethodPublic, str, []typesys.Type{i32})
	c, _ := tb.DefineMethod("F", typesys.MethodPublic|typesys.MethodStatic, i32, []typesys.Type{i32})
	if err := s.RegisterMethod(a); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterMethod(b); codeOf(err) != diag.ShapeDuplicateMember {
		t.Fatalf("overload differing only in return type: %v", err)
	}
	if err := s.RegisterMethod(c); err != nil {
		t.Fatalf("static and instance overloads may coexist: %v", err)
	}

	f1, _ := tb.DefineField("n", i32, typesys.FieldPublic)
	f2, _ := tb.DefineField("n", str, typesys.FieldPublic)
	if err := s.RegisterField(f1); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterField(f2); codeOf(err) != diag.ShapeDuplicateMember {
		t.Fatalf("duplicate field: %v", err)
	}
}

func TestFindMethodIsExact(t *testing.T) {
	s, _ := hostStore(t)
	str := s.Builtin(typesys.StringName)
	i32 := s.Builtin(typesys.Int32Name)
	obj := s.Builtin(typesys.ObjectName)

	m, err := s.FindMethod(str, "Concat", []typesys.Type{str, str}, true)
	if err != nil || m.Name() != "Concat" {
		t.Fatalf("Concat(string, string): %v, %v", m, err)
	}
	if _, err := s.FindMethod(str, "Concat", []typesys.Type{str, str}, false); codeOf(err) != diag.LookupNoOverload {
		t.Errorf("static-ness must match: %v", err)
	}
	if _, err := s.FindMethod(str, "Concat", []typesys.Type{str, obj}, true); codeOf(err) != diag.LookupNoOverload {
		t.Errorf("no widening to object: %v", err)
	}
	if _, err := s.FindMethod(str, "Frobnicate", nil, false); codeOf(err) != diag.LookupMissingMethod {
		t.Errorf("unknown method: %v", err)
	}

	console, err := s.Lookup("Console")
	if err != nil {
		t.Fatal(err)
	}
	w, err := s.FindMethod(console, "WriteLine", []typesys.Type{i32}, true)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Params(w); len(got) != 1 || got[0] != i32 {
		t.Errorf("params = %v", got)
	}
	if _, err := s.FindConstructor(obj, nil); err != nil {
		t.Errorf("object constructor: %v", err)
	}
	if _, err := s.FindConstructor(obj, []typesys.Type{i32}); codeOf(err) != diag.LookupNoOverload {
		t.Errorf("object(int): %v", err)
	}
	if _, err := s.Field(str, "Empty"); err != nil {
		t.Errorf("String.Empty: %v", err)
	}
	if _, err := s.Field(str, "Nope"); codeOf(err) != diag.LookupMissingField {
		t.Errorf("missing field: %v", err)
	}
}

func TestNamesAreNormalized(t *testing.T) {
	s, mod := hostStore(t)
	if err := s.BeginDeclarations(); err != nil {
		t.Fatal(err)
	}
	tb, _ := mod.DefineType("Caf\u00e9", typesys.TypePublic, nil)
	if err := s.RegisterUserType(tb); err != nil {
		t.Fatal(err)
	}
	got, err := s.Lookup("Cafe\u0301")
	if err != nil || got != tb {
		t.Fatalf("decomposed spelling: %v, %v", got, err)
	}
	if !s.HasType("Cafe\u0301") {
		t.Error("HasType should normalize too")
	}
}

func TestDelegates(t *testing.T) {
	s, mod := hostStore(t)
	if err := s.BeginDeclarations(); err != nil {
		t.Fatal(err)
	}
	mcd := s.Builtin(typesys.MulticastDelegateName)
	tb, _ := mod.DefineType("Fn", typesys.TypePublic|typesys.TypeSealed, mcd)
	if err := s.RegisterUserType(tb); err != nil {
		t.Fatal(err)
	}
	d := &Delegate{Type: tb, Return: s.Builtin(typesys.Int32Name)}
	if err := s.RegisterDelegate(d); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterDelegate(d); codeOf(err) != diag.ShapeDuplicateType {
		t.Fatalf("second descriptor: %v", err)
	}
	if got, ok := s.Delegate(tb); !ok || got != d {
		t.Fatalf("Delegate(Fn) = %v, %v", got, ok)
	}
	if _, ok := s.Delegate(nil); ok {
		t.Error("nil type is not a delegate")
	}
	if _, ok := s.Delegate(s.Builtin(typesys.StringName)); ok {
		t.Error("string is not a delegate")
	}
}
