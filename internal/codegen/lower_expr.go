package codegen

import (
	"ilforge/internal/ast"
	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

// rvalue lowers e for its value. hint is the type the context expects; it
// is only used to pick the delegate type of a method reference.
func (l *lowerer) rvalue(e ast.Expr, hint typesys.Type) (typesys.Type, error) {
	v, err := l.lower(e, hint, false)
	return v.typ, err
}

// lower dispatches on the node kind. willBeCalled asks for the address of a
// value-type variable, field or element so a method call on it observes
// the real storage.
func (l *lowerer) lower(e ast.Expr, hint typesys.Type, willBeCalled bool) (value, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return value{typ: l.prims.int32}, l.il.EmitInt(typesys.OpLdcI4, e.Value)
	case *ast.BoolLit:
		var bit int32
		if e.Value {
			bit = 1
		}
		return value{typ: l.prims.boolean}, l.il.EmitInt(typesys.OpLdcI4, bit)
	case *ast.StringLit:
		return value{typ: l.prims.str}, l.il.EmitString(typesys.OpLdstr, e.Value)
	case *ast.NullLit:
		return value{}, l.il.Emit(typesys.OpLdnull)
	case *ast.This:
		if err := l.requireInstance("this"); err != nil {
			return value{}, err
		}
		return value{typ: l.owner}, l.il.EmitArg(typesys.OpLdarg, 0)
	case *ast.Ident:
		return l.ident(e, hint, willBeCalled)
	case *ast.Member:
		return l.member(e, hint, willBeCalled)
	case *ast.Index:
		return l.index(e, willBeCalled)
	case *ast.Binary:
		return l.binary(e)
	case *ast.Unary:
		return l.unary(e)
	case *ast.Call:
		return l.call(e)
	case *ast.New:
		return l.newObject(e)
	case *ast.NewArray:
		return l.newArray(e)
	case *ast.MethodRef:
		return l.methodRef(e, hint)
	case nil:
		return value{}, diag.Errorf(diag.ShapeUnsupportedNode, "missing expression")
	default:
		return value{}, diag.Errorf(diag.ShapeUnsupportedNode, "unsupported expression %s", e.Kind())
	}
}

func (l *lowerer) requireInstance(what string) error {
	if l.m.static {
		return diag.Errorf(diag.ShapeStaticContext, "%s used in static method %s", what, l.m.name)
	}
	return nil
}

// ident resolves a bare name: local, then parameter, then field, then a
// method of the enclosing type taken as a delegate.
func (l *lowerer) ident(e *ast.Ident, hint typesys.Type, willBeCalled bool) (value, error) {
	if v, ok := l.locals[e.Name]; ok {
		if willBeCalled && v.typ.IsValueType() {
			return value{typ: v.typ, addr: true}, l.il.EmitLocal(typesys.OpLdloca, v.slot)
		}
		return value{typ: v.typ}, l.il.EmitLocal(typesys.OpLdloc, v.slot)
	}
	if p, ok := l.params[e.Name]; ok {
		if willBeCalled && p.typ.IsValueType() {
			return value{typ: p.typ, addr: true}, l.il.EmitArg(typesys.OpLdarga, p.index)
		}
		return value{typ: p.typ}, l.il.EmitArg(typesys.OpLdarg, p.index)
	}
	if f, err := l.fieldOf(l.owner, e.Name); err == nil {
		if !f.IsStatic() {
			if err := l.requireInstance("field " + e.Name); err != nil {
				return value{}, err
			}
			if err := l.il.EmitArg(typesys.OpLdarg, 0); err != nil {
				return value{}, err
			}
		}
		return l.loadField(f, willBeCalled)
	}
	if len(l.store.Methods(l.owner, e.Name)) > 0 {
		return l.methodRef(&ast.MethodRef{Name: e.Name}, hint)
	}
	return value{}, diag.Errorf(diag.LookupMissingName, "%q is not a local, parameter, field or method of %s", e.Name, l.owner.Name())
}

// loadField emits the load; an instance field expects its object on the
// stack already.
func (l *lowerer) loadField(f typesys.FieldInfo, willBeCalled bool) (value, error) {
	t := f.FieldType()
	addr := willBeCalled && t.IsValueType()
	var op typesys.OpCode
	switch {
	case f.IsStatic() && addr:
		op = typesys.OpLdsflda
	case f.IsStatic():
		op = typesys.OpLdsfld
	case addr:
		op = typesys.OpLdflda
	default:
		op = typesys.OpLdfld
	}
	return value{typ: t, addr: addr}, l.il.EmitField(op, f)
}

// typeTarget reports whether e names a type, for static member access.
func (l *lowerer) typeTarget(e ast.Expr) (typesys.Type, bool) {
	id, ok := e.(*ast.Ident)
	if !ok || !l.store.HasType(id.Name) {
		return nil, false
	}
	t, err := l.store.Lookup(id.Name)
	if err != nil {
		return nil, false
	}
	return t, true
}

// receiver lowers the object of a member access or call.
func (l *lowerer) receiver(e ast.Expr, willBeCalled bool, member string) (value, error) {
	v, err := l.lower(e, nil, willBeCalled)
	if err != nil {
		return value{}, err
	}
	if v.typ == nil {
		return value{}, diag.Errorf(diag.TypeCannotInfer, "member %s accessed on null", member)
	}
	if typesys.IsVoid(v.typ) {
		return value{}, diag.Errorf(diag.TypeVoidValue, "member %s accessed on a void result", member)
	}
	return v, nil
}

// member lowers Target.Name as a static field, an instance field, the
// length of an array, or a get_Name property getter. Under a delegate
// hint a name with no field falls back to the method group.
func (l *lowerer) member(e *ast.Member, hint typesys.Type, willBeCalled bool) (value, error) {
	dlg, bindable := l.store.Delegate(hint)
	if t, ok := l.typeTarget(e.Target); ok {
		f, err := l.fieldOf(t, e.Name)
		if err != nil {
			if bindable && l.hasMethods(t, e.Name) {
				return l.methodRef(&ast.MethodRef{Target: e.Target, Name: e.Name}, hint)
			}
			return value{}, err
		}
		if !f.IsStatic() {
			return value{}, diag.Errorf(diag.ShapeStaticContext, "instance field %s::%s needs an object", t.Name(), e.Name)
		}
		return l.loadField(f, willBeCalled)
	}

	// A bound delegate boxes the receiver, so it must be a value.
	recv, err := l.receiver(e.Target, !bindable, e.Name)
	if err != nil {
		return value{}, err
	}
	t := recv.typ
	if t.IsArray() && e.Name == "Length" {
		return value{typ: l.prims.int32}, l.il.Emit(typesys.OpLdlen)
	}
	if f, err := l.fieldOf(t, e.Name); err == nil {
		if f.IsStatic() {
			return value{}, diag.Errorf(diag.ShapeStaticContext, "static field %s::%s accessed through an instance", t.Name(), e.Name)
		}
		return l.loadField(f, willBeCalled)
	}
	if bindable && l.hasMethods(t, e.Name) {
		return l.boundDelegate(t, e.Name, hint, dlg)
	}
	getter, err := l.findMethod(t, "get_"+e.Name, nil, false)
	if err != nil {
		return value{}, diag.Errorf(diag.LookupMissingField, "%s has no field or property %s", t.Name(), e.Name)
	}
	return l.invoke(recv, getter)
}

// index lowers Array[Index]. The element type comes from the array type
// itself, so loads and stores share one type object.
func (l *lowerer) index(e *ast.Index, willBeCalled bool) (value, error) {
	elem, err := l.element(e)
	if err != nil {
		return value{}, err
	}
	if willBeCalled && elem.IsValueType() {
		return value{typ: elem, addr: true}, l.il.EmitType(typesys.OpLdelema, elem)
	}
	return value{typ: elem}, l.il.EmitType(typesys.OpLdelem, elem)
}

// element pushes the array and the index and returns the element type.
func (l *lowerer) element(e *ast.Index) (typesys.Type, error) {
	arr, err := l.rvalue(e.Array, nil)
	if err != nil {
		return nil, err
	}
	if arr == nil || !arr.IsArray() {
		return nil, diag.Errorf(diag.TypeNotArray, "cannot index %s", typesys.TypeName(arr))
	}
	idx, err := l.rvalue(e.Index, l.prims.int32)
	if err != nil {
		return nil, err
	}
	if !typesys.Equal(idx, l.prims.int32) {
		return nil, diag.Errorf(diag.TypeNotInteger, "array index is %s", typesys.TypeName(idx))
	}
	return arr.ElementType(), nil
}

func (l *lowerer) binary(e *ast.Binary) (value, error) {
	lt, err := l.rvalue(e.Left, nil)
	if err != nil {
		return value{}, err
	}
	rt, err := l.rvalue(e.Right, lt)
	if err != nil {
		return value{}, err
	}
	if typesys.IsVoid(lt) || typesys.IsVoid(rt) {
		return value{}, diag.Errorf(diag.TypeVoidValue, "operand of %s has no value", e.Op)
	}
	if e.Op.IsComparison() {
		return l.compare(e.Op, lt, rt)
	}
	if !typesys.Equal(lt, rt) {
		return value{}, diag.Errorf(diag.TypeMismatch, "operands of %s are %s and %s", e.Op, typesys.TypeName(lt), typesys.TypeName(rt))
	}

	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpRem:
		if e.Op == ast.OpAdd && typesys.Equal(lt, l.prims.str) {
			concat, err := l.store.FindMethod(l.prims.str, "Concat", []typesys.Type{lt, rt}, true)
			if err != nil {
				return value{}, err
			}
			return value{typ: l.prims.str}, l.il.EmitMethod(typesys.OpCall, concat)
		}
		if !typesys.Equal(lt, l.prims.int32) {
			return value{}, diag.Errorf(diag.TypeNotInteger, "%s needs int operands, got %s", e.Op, typesys.TypeName(lt))
		}
		return value{typ: lt}, l.il.Emit(arithOps[e.Op])
	case ast.OpAnd, ast.OpOr:
		if !typesys.Equal(lt, l.prims.int32) && !typesys.Equal(lt, l.prims.boolean) {
			return value{}, diag.Errorf(diag.TypeInvalidOperands, "%s needs int or bool operands, got %s", e.Op, typesys.TypeName(lt))
		}
		return value{typ: lt}, l.il.Emit(arithOps[e.Op])
	}
	return value{}, diag.Errorf(diag.ShapeBadOperator, "unsupported binary operator %s", e.Op)
}

var arithOps = map[ast.BinaryOp]typesys.OpCode{
	ast.OpAdd: typesys.OpAdd,
	ast.OpSub: typesys.OpSub,
	ast.OpMul: typesys.OpMul,
	ast.OpDiv: typesys.OpDiv,
	ast.OpRem: typesys.OpRem,
	ast.OpAnd: typesys.OpAnd,
	ast.OpOr:  typesys.OpOr,
}

// compare emits the comparison. !=, <= and >= have no instruction of their
// own and are lowered as ceq, cgt and clt followed by a compare with false.
func (l *lowerer) compare(op ast.BinaryOp, lt, rt typesys.Type) (value, error) {
	switch op {
	case ast.OpEq, ast.OpNe:
		if !typesys.Equal(lt, rt) && !(lt == nil && assignable(rt, nil)) && !(rt == nil && assignable(lt, nil)) {
			return value{}, diag.Errorf(diag.TypeMismatch, "cannot compare %s with %s", typesys.TypeName(lt), typesys.TypeName(rt))
		}
	default:
		if !typesys.Equal(lt, l.prims.int32) || !typesys.Equal(rt, l.prims.int32) {
			return value{}, diag.Errorf(diag.TypeNotInteger, "%s needs int operands, got %s and %s", op, typesys.TypeName(lt), typesys.TypeName(rt))
		}
	}

	res := value{typ: l.prims.boolean}
	switch op {
	case ast.OpEq:
		return res, l.il.Emit(typesys.OpCeq)
	case ast.OpLt:
		return res, l.il.Emit(typesys.OpClt)
	case ast.OpGt:
		return res, l.il.Emit(typesys.OpCgt)
	case ast.OpNe:
		return res, l.negated(typesys.OpCeq)
	case ast.OpLe:
		return res, l.negated(typesys.OpCgt)
	case ast.OpGe:
		return res, l.negated(typesys.OpClt)
	}
	return value{}, diag.Errorf(diag.ShapeBadOperator, "unsupported comparison %s", op)
}

// negated emits op and then flips its boolean result.
func (l *lowerer) negated(op typesys.OpCode) error {
	if err := l.il.Emit(op); err != nil {
		return err
	}
	return l.not()
}

func (l *lowerer) not() error {
	if err := l.il.EmitInt(typesys.OpLdcI4, 0); err != nil {
		return err
	}
	return l.il.Emit(typesys.OpCeq)
}

func (l *lowerer) unary(e *ast.Unary) (value, error) {
	t, err := l.rvalue(e.Operand, nil)
	if err != nil {
		return value{}, err
	}
	switch {
	case e.Op == ast.UnaryNeg && typesys.Equal(t, l.prims.int32):
		return value{typ: t}, l.il.Emit(typesys.OpNeg)
	case e.Op == ast.UnaryNot && typesys.Equal(t, l.prims.boolean):
		return value{typ: t}, l.not()
	case e.Op == ast.UnaryNot && typesys.Equal(t, l.prims.int32):
		return value{typ: t}, l.il.Emit(typesys.OpNot)
	}
	return value{}, diag.Errorf(diag.TypeInvalidOperands, "operator %s does not apply to %s", e.Op, typesys.TypeName(t))
}

// newObject lowers new T(args). A delegate type takes exactly one method
// reference.
func (l *lowerer) newObject(e *ast.New) (value, error) {
	t, err := l.store.Lookup(e.Type)
	if err != nil {
		return value{}, err
	}
	if _, ok := l.store.Delegate(t); ok {
		if len(e.Args) == 1 {
			switch arg := e.Args[0].(type) {
			case *ast.MethodRef:
				return l.methodRef(arg, t)
			case *ast.Ident:
				return l.methodRef(&ast.MethodRef{Name: arg.Name}, t)
			case *ast.Member:
				return l.methodRef(&ast.MethodRef{Target: arg.Target, Name: arg.Name}, t)
			}
		}
		return value{}, diag.Errorf(diag.ShapeDelegateSignature, "delegate %s must be created from one method reference", t.Name())
	}
	if t.IsValueType() {
		return value{}, diag.Errorf(diag.ShapeUnsupportedNode, "cannot construct value type %s", t.Name())
	}

	var cands []typesys.MethodBase
	for _, c := range t.Constructors(typesys.BindPublic | typesys.BindInstance) {
		cands = append(cands, c)
	}
	argTypes, err := l.args(e.Args, l.hints(cands, len(e.Args)))
	if err != nil {
		return value{}, err
	}
	ctor, err := l.store.FindConstructor(t, argTypes)
	if err != nil {
		return value{}, err
	}
	return value{typ: t}, l.il.EmitConstructor(typesys.OpNewobj, ctor)
}

// newArray lowers newarr Elem(Size). The array type is looked up through
// the store so every use of T[] shares one object.
func (l *lowerer) newArray(e *ast.NewArray) (value, error) {
	arr, err := l.store.Lookup(typesys.ArrayName(e.Elem))
	if err != nil {
		return value{}, err
	}
	size, err := l.rvalue(e.Size, l.prims.int32)
	if err != nil {
		return value{}, err
	}
	if !typesys.Equal(size, l.prims.int32) {
		return value{}, diag.Errorf(diag.TypeNotInteger, "array size is %s", typesys.TypeName(size))
	}
	return value{typ: arr}, l.il.EmitType(typesys.OpNewarr, arr.ElementType())
}
