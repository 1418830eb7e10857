package codegen

import (
	"ilforge/internal/ast"
	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

type storeKind uint8

const (
	storeLocal storeKind = iota + 1
	storeArg
	storeField
	storeStaticField
	storeElement
)

// storeAction is the store an lvalue still owes once the right-hand side
// has been emitted and checked.
type storeAction struct {
	kind  storeKind
	local typesys.LocalSlot
	arg   int
	field typesys.FieldInfo
	elem  typesys.Type
}

// place emits whatever an assignment target needs before the value (the
// object of a field, the array and index of an element) and returns the
// pending store with the target's type.
func (l *lowerer) place(e ast.Expr) (storeAction, typesys.Type, error) {
	switch e := e.(type) {
	case *ast.Ident:
		if v, ok := l.locals[e.Name]; ok {
			return storeAction{kind: storeLocal, local: v.slot}, v.typ, nil
		}
		if p, ok := l.params[e.Name]; ok {
			return storeAction{kind: storeArg, arg: p.index}, p.typ, nil
		}
		f, err := l.fieldOf(l.owner, e.Name)
		if err != nil {
			return storeAction{}, nil, diag.Errorf(diag.LookupMissingName, "%q is not a local, parameter or field of %s", e.Name, l.owner.Name())
		}
		if f.IsStatic() {
			return storeAction{kind: storeStaticField, field: f}, f.FieldType(), nil
		}
		if err := l.requireInstance("field " + e.Name); err != nil {
			return storeAction{}, nil, err
		}
		if err := l.il.EmitArg(typesys.OpLdarg, 0); err != nil {
			return storeAction{}, nil, err
		}
		return storeAction{kind: storeField, field: f}, f.FieldType(), nil

	case *ast.Member:
		if t, ok := l.typeTarget(e.Target); ok {
			f, err := l.fieldOf(t, e.Name)
			if err != nil {
				return storeAction{}, nil, err
			}
			if !f.IsStatic() {
				return storeAction{}, nil, diag.Errorf(diag.ShapeStaticContext, "instance field %s::%s needs an object", t.Name(), e.Name)
			}
			return storeAction{kind: storeStaticField, field: f}, f.FieldType(), nil
		}
		recv, err := l.receiver(e.Target, false, e.Name)
		if err != nil {
			return storeAction{}, nil, err
		}
		f, err := l.fieldOf(recv.typ, e.Name)
		if err != nil {
			if recv.typ.IsArray() && e.Name == "Length" {
				return storeAction{}, nil, diag.Errorf(diag.ShapeNotAssignable, "array length is read-only")
			}
			return storeAction{}, nil, err
		}
		if f.IsStatic() {
			return storeAction{}, nil, diag.Errorf(diag.ShapeStaticContext, "static field %s::%s assigned through an instance", recv.typ.Name(), e.Name)
		}
		return storeAction{kind: storeField, field: f}, f.FieldType(), nil

	case *ast.Index:
		elem, err := l.element(e)
		if err != nil {
			return storeAction{}, nil, err
		}
		return storeAction{kind: storeElement, elem: elem}, elem, nil

	case nil:
		return storeAction{}, nil, diag.Errorf(diag.ShapeNotAssignable, "missing assignment target")
	}
	return storeAction{}, nil, diag.Errorf(diag.ShapeNotAssignable, "%s expression is not assignable", e.Kind())
}

func (l *lowerer) emitStore(a storeAction) error {
	switch a.kind {
	case storeLocal:
		return l.il.EmitLocal(typesys.OpStloc, a.local)
	case storeArg:
		return l.il.EmitArg(typesys.OpStarg, a.arg)
	case storeField:
		return l.il.EmitField(typesys.OpStfld, a.field)
	case storeStaticField:
		return l.il.EmitField(typesys.OpStsfld, a.field)
	case storeElement:
		return l.il.EmitType(typesys.OpStelem, a.elem)
	}
	return diag.Errorf(diag.ShapeNotAssignable, "no pending store")
}
