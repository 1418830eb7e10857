package codegen

import (
	"context"

	"ilforge/internal/ast"
	"ilforge/internal/diag"
	"ilforge/internal/symbols"
	"ilforge/internal/trace"
	"ilforge/internal/typesys"
)

type localVar struct {
	slot typesys.LocalSlot
	typ  typesys.Type
}

type paramVar struct {
	index int
	typ   typesys.Type
}

// lowerer is the per-member generation context. It is discarded once the
// member's body is emitted.
type lowerer struct {
	ctx        context.Context
	d          *driver
	store      *symbols.Store
	prims      *prims
	m          *member
	owner      typesys.Type
	il         typesys.ILGenerator
	locals     map[string]localVar
	params     map[string]paramVar
	localCount int
}

func newLowerer(ctx context.Context, d *driver, m *member) *lowerer {
	l := &lowerer{
		ctx:    ctx,
		d:      d,
		store:  d.store,
		prims:  &d.prims,
		m:      m,
		owner:  m.owner.tb,
		il:     m.il,
		locals: make(map[string]localVar),
		params: make(map[string]paramVar, len(m.params)),
	}
	first := 1
	if m.static {
		first = 0
	}
	for i, p := range m.params {
		l.params[p.Name] = paramVar{index: first + i, typ: m.types[i]}
	}
	return l
}

// value is what an expression left on the stack: its static type (nil for
// the null literal) and whether the stack holds its address instead.
type value struct {
	typ  typesys.Type
	addr bool
}

// constructor emits the base constructor call, the instance field
// initializers in declaration order, then the user statements. A leading
// explicit base call stands in for the synthesized one.
func (l *lowerer) constructor() error {
	if l.il == nil {
		return diag.Errorf(diag.BackendUnsupportedOp, "constructor has no instruction sink")
	}
	body := l.m.body
	if len(body) > 0 {
		if _, ok := body[0].(*ast.BaseCtorCall); ok {
			body = body[1:]
		}
	}
	if err := l.baseCall(); err != nil {
		return err
	}
	for _, fi := range l.m.owner.fieldInits {
		if err := l.il.EmitArg(typesys.OpLdarg, 0); err != nil {
			return err
		}
		t, err := l.rvalue(fi.init, fi.field.FieldType())
		if err != nil {
			return err
		}
		if err := l.expect(fi.field.FieldType(), t, "initializer of "+fi.field.Name()); err != nil {
			return err
		}
		if err := l.il.EmitField(typesys.OpStfld, fi.field); err != nil {
			return err
		}
	}
	return l.body(body)
}

func (l *lowerer) baseCall() error {
	base, err := l.store.FindConstructor(l.prims.object, nil)
	if err != nil {
		return err
	}
	if err := l.il.EmitArg(typesys.OpLdarg, 0); err != nil {
		return err
	}
	return l.il.EmitConstructor(typesys.OpCall, base)
}

// body lowers the statements and appends the implicit return. Only the
// textually last statement is inspected: a non-void body must end in a
// return statement.
func (l *lowerer) body(stmts []ast.Stmt) error {
	if l.il == nil {
		return diag.Errorf(diag.BackendUnsupportedOp, "%s has no instruction sink", l.m.name)
	}
	if err := l.block(stmts); err != nil {
		return err
	}
	if n := len(stmts); n > 0 {
		if _, ok := stmts[n-1].(*ast.Return); ok {
			return nil
		}
	}
	if !typesys.IsVoid(l.m.ret) {
		return diag.Errorf(diag.ShapeMissingReturn, "%s returns %s but does not end with a return statement",
			l.m.name, l.m.ret.Name())
	}
	trace.Point(l.ctx, trace.ScopeMember, "implicit-ret", l.m.name)
	return l.il.Emit(typesys.OpRet)
}

func (l *lowerer) block(stmts []ast.Stmt) error {
	for _, st := range stmts {
		if err := l.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) declared(name string) bool {
	if _, ok := l.locals[name]; ok {
		return true
	}
	_, ok := l.params[name]
	return ok
}

func (l *lowerer) declareLocal(name string, t typesys.Type) (typesys.LocalSlot, error) {
	slot, err := l.il.DeclareLocal(t)
	if err != nil {
		return nil, err
	}
	if name != "" {
		l.locals[name] = localVar{slot: slot, typ: t}
	}
	l.localCount++
	return slot, nil
}

// spillAddr replaces the value on top of the stack with the address of a
// fresh temporary holding it.
func (l *lowerer) spillAddr(t typesys.Type) error {
	tmp, err := l.declareLocal("", t)
	if err != nil {
		return err
	}
	if err := l.il.EmitLocal(typesys.OpStloc, tmp); err != nil {
		return err
	}
	return l.il.EmitLocal(typesys.OpLdloca, tmp)
}

// assignable reports whether a value of type src may be stored in a
// location of type dst: identical types, or null into a reference type.
func assignable(dst, src typesys.Type) bool {
	if src == nil {
		return dst != nil && !dst.IsValueType()
	}
	return typesys.Equal(dst, src)
}

func (l *lowerer) expect(dst, src typesys.Type, what string) error {
	if typesys.IsVoid(src) {
		return diag.Errorf(diag.TypeVoidValue, "%s: void has no value", what)
	}
	if !assignable(dst, src) {
		return diag.Errorf(diag.TypeMismatch, "%s: cannot use %s as %s", what, typesys.TypeName(src), typesys.TypeName(dst))
	}
	return nil
}

// lineage returns t and its base chain, ending at System.Object.
func (l *lowerer) lineage(t typesys.Type) []typesys.Type {
	var out []typesys.Type
	sawObject := false
	for cur := t; cur != nil; cur = cur.BaseType() {
		out = append(out, cur)
		if cur.Name() == typesys.ObjectName {
			sawObject = true
		}
	}
	if !sawObject {
		out = append(out, l.prims.object)
	}
	return out
}

func (l *lowerer) fieldOf(t typesys.Type, name string) (typesys.FieldInfo, error) {
	var first error
	for _, cur := range l.lineage(t) {
		f, err := l.store.Field(cur, name)
		if err == nil {
			return f, nil
		}
		if first == nil {
			first = err
		}
	}
	return nil, first
}
