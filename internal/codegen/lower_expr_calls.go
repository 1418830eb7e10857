package codegen

import (
	"errors"
	"slices"

	"ilforge/internal/ast"
	"ilforge/internal/diag"
	"ilforge/internal/symbols"
	"ilforge/internal/typesys"
)

var errNoOverload = &diag.Error{Code: diag.LookupNoOverload}

// call resolves the target as a type name (static call), the enclosing
// type (no target), or an expression whose type receives an instance call.
func (l *lowerer) call(e *ast.Call) (value, error) {
	if e.Target == nil {
		return l.callOwn(e)
	}
	if t, ok := l.typeTarget(e.Target); ok {
		argTypes, err := l.args(e.Args, l.hints(l.candidates(t, e.Name, true), len(e.Args)))
		if err != nil {
			return value{}, err
		}
		m, err := l.findMethod(t, e.Name, argTypes, true)
		if err != nil {
			return value{}, err
		}
		return l.result(m), l.il.EmitMethod(typesys.OpCall, m)
	}
	recv, err := l.receiver(e.Target, true, e.Name)
	if err != nil {
		return value{}, err
	}
	return l.callInstance(recv, e.Name, e.Args)
}

// callInstance emits the arguments and the call on a receiver already on
// the stack. Value types are called through their address with call;
// reference types use callvirt.
func (l *lowerer) callInstance(recv value, name string, args []ast.Expr) (value, error) {
	t := recv.typ
	if t.IsValueType() && !recv.addr {
		if err := l.spillAddr(t); err != nil {
			return value{}, err
		}
	}
	argTypes, err := l.args(args, l.hints(l.candidates(t, name, false), len(args)))
	if err != nil {
		return value{}, err
	}
	m, err := l.findMethod(t, name, argTypes, false)
	if err != nil {
		return value{}, err
	}
	return l.result(m), l.il.EmitMethod(callOp(t), m)
}

// invoke calls a parameterless instance method on recv.
func (l *lowerer) invoke(recv value, m typesys.MethodInfo) (value, error) {
	if recv.typ.IsValueType() && !recv.addr {
		if err := l.spillAddr(recv.typ); err != nil {
			return value{}, err
		}
	}
	return l.result(m), l.il.EmitMethod(callOp(recv.typ), m)
}

func callOp(t typesys.Type) typesys.OpCode {
	if t.IsValueType() {
		return typesys.OpCall
	}
	return typesys.OpCallvirt
}

func (l *lowerer) result(m typesys.MethodInfo) value {
	return value{typ: m.ReturnType()}
}

// callOwn lowers Name(args) on the enclosing type. A delegate-typed
// variable of that name is invoked instead. When static and instance
// overloads of the same arity coexist, the arguments are spilled to
// temporaries so the receiver can still go first.
func (l *lowerer) callOwn(e *ast.Call) (value, error) {
	if l.isDelegateVar(e.Name) {
		recv, err := l.lower(&ast.Ident{Name: e.Name}, nil, false)
		if err != nil {
			return value{}, err
		}
		return l.callInstance(recv, typesys.InvokeName, e.Args)
	}

	all := l.store.Methods(l.owner, e.Name)
	if len(all) == 0 {
		return value{}, diag.Errorf(diag.LookupMissingMethod, "method %s::%s not found", l.owner.Name(), e.Name)
	}
	var statics, instances []typesys.MethodBase
	for _, m := range all {
		if len(l.store.Params(m)) != len(e.Args) {
			continue
		}
		if m.IsStatic() {
			statics = append(statics, m)
		} else {
			instances = append(instances, m)
		}
	}

	switch {
	case l.m.static && len(statics) == 0 && len(instances) > 0:
		return value{}, diag.Errorf(diag.ShapeStaticContext, "instance method %s called from static method %s", e.Name, l.m.name)
	case l.m.static || len(instances) == 0:
		argTypes, err := l.args(e.Args, l.hints(statics, len(e.Args)))
		if err != nil {
			return value{}, err
		}
		m, err := l.findMethod(l.owner, e.Name, argTypes, true)
		if err != nil {
			return value{}, err
		}
		return l.result(m), l.il.EmitMethod(typesys.OpCall, m)
	case len(statics) == 0:
		if err := l.il.EmitArg(typesys.OpLdarg, 0); err != nil {
			return value{}, err
		}
		return l.callInstance(value{typ: l.owner}, e.Name, e.Args)
	}
	return l.callMixed(e)
}

func (l *lowerer) callMixed(e *ast.Call) (value, error) {
	argTypes, err := l.args(e.Args, nil)
	if err != nil {
		return value{}, err
	}
	temps := make([]typesys.LocalSlot, len(argTypes))
	for i := len(argTypes) - 1; i >= 0; i-- {
		if argTypes[i] == nil {
			return value{}, diag.Errorf(diag.TypeCannotInfer, "null argument %d to overloaded %s", i+1, e.Name)
		}
		tmp, err := l.declareLocal("", argTypes[i])
		if err != nil {
			return value{}, err
		}
		if err := l.il.EmitLocal(typesys.OpStloc, tmp); err != nil {
			return value{}, err
		}
		temps[i] = tmp
	}

	var target typesys.MethodInfo
	for _, m := range l.store.Methods(l.owner, e.Name) {
		if typesys.SameParams(l.store.Params(m), argTypes) {
			target = m
			break
		}
	}
	if target == nil {
		return value{}, diag.Errorf(diag.LookupNoOverload, "no overload %s::%s", l.owner.Name(), typesys.Signature(e.Name, argTypes))
	}
	op := typesys.OpCall
	if !target.IsStatic() {
		op = callOp(l.owner)
		if err := l.il.EmitArg(typesys.OpLdarg, 0); err != nil {
			return value{}, err
		}
	}
	for _, tmp := range temps {
		if err := l.il.EmitLocal(typesys.OpLdloc, tmp); err != nil {
			return value{}, err
		}
	}
	return l.result(target), l.il.EmitMethod(op, target)
}

func (l *lowerer) isDelegateVar(name string) bool {
	if v, ok := l.locals[name]; ok {
		return typesys.IsDelegate(v.typ)
	}
	if p, ok := l.params[name]; ok {
		return typesys.IsDelegate(p.typ)
	}
	if f, err := l.fieldOf(l.owner, name); err == nil {
		return typesys.IsDelegate(f.FieldType())
	}
	return false
}

// args lowers call arguments left to right and returns their types.
func (l *lowerer) args(exprs []ast.Expr, hints []typesys.Type) ([]typesys.Type, error) {
	types := make([]typesys.Type, len(exprs))
	for i, a := range exprs {
		var hint typesys.Type
		if i < len(hints) {
			hint = hints[i]
		}
		t, err := l.rvalue(a, hint)
		if err != nil {
			return nil, err
		}
		if typesys.IsVoid(t) {
			return nil, diag.Errorf(diag.TypeVoidValue, "argument %d has no value", i+1)
		}
		types[i] = t
	}
	return types, nil
}

// hints returns, per argument position, the parameter type every
// candidate of that arity agrees on.
func (l *lowerer) hints(cands []typesys.MethodBase, arity int) []typesys.Type {
	out := make([]typesys.Type, arity)
	for i := range out {
		var agreed typesys.Type
		for _, c := range cands {
			params := l.store.Params(c)
			if len(params) != arity {
				continue
			}
			if agreed == nil {
				agreed = params[i]
			} else if !typesys.Equal(agreed, params[i]) {
				agreed = nil
				break
			}
		}
		out[i] = agreed
	}
	return out
}

func (l *lowerer) candidates(t typesys.Type, name string, static bool) []typesys.MethodBase {
	var out []typesys.MethodBase
	for _, cur := range l.lineage(t) {
		for _, m := range l.store.Methods(cur, name) {
			if m.IsStatic() == static {
				out = append(out, m)
			}
		}
	}
	return out
}

// findMethod resolves an overload on t or its bases by exact positional
// parameter types. A null argument matches any reference parameter; the
// first such overload in declaration order wins.
func (l *lowerer) findMethod(t typesys.Type, name string, args []typesys.Type, static bool) (typesys.MethodInfo, error) {
	var missing error
	for _, cur := range l.lineage(t) {
		m, err := l.store.FindMethod(cur, name, args, static)
		if err == nil {
			return m, nil
		}
		if m := l.matchNull(cur, name, args, static); m != nil {
			return m, nil
		}
		if missing == nil || (!errors.Is(missing, errNoOverload) && errors.Is(err, errNoOverload)) {
			missing = err
		}
	}
	return nil, missing
}

func (l *lowerer) matchNull(t typesys.Type, name string, args []typesys.Type, static bool) typesys.MethodInfo {
	if !slices.Contains(args, nil) {
		return nil
	}
	for _, m := range l.store.Methods(t, name) {
		params := l.store.Params(m)
		if m.IsStatic() != static || len(params) != len(args) {
			continue
		}
		ok := true
		for i := range params {
			if !assignable(params[i], args[i]) {
				ok = false
				break
			}
		}
		if ok {
			return m
		}
	}
	return nil
}

// methodRef materialises a delegate from a method group. The method must
// match the delegate's Invoke exactly. Static targets pass a null object;
// instance targets push the receiver (boxed if a value type) and take the
// function pointer with ldvirtftn.
func (l *lowerer) methodRef(e *ast.MethodRef, hint typesys.Type) (value, error) {
	dt := hint
	if e.Delegate != "" {
		t, err := l.store.Lookup(e.Delegate)
		if err != nil {
			return value{}, err
		}
		dt = t
	}
	if dt == nil {
		return value{}, diag.Errorf(diag.TypeCannotInfer, "cannot infer the delegate type of method reference %s", e.Name)
	}
	dlg, ok := l.store.Delegate(dt)
	if !ok {
		return value{}, diag.Errorf(diag.TypeNotDelegate, "%s is not a delegate type", dt.Name())
	}

	var (
		m      typesys.MethodInfo
		err    error
		static = true
	)
	switch {
	case e.Target == nil:
		var only *bool
		if l.m.static {
			only = &static
		}
		m, err = l.delegateTarget(l.owner, e.Name, only, dlg.Params, dlg.Return, dt)
		if err != nil {
			return value{}, err
		}
		if !m.IsStatic() {
			if err := l.il.EmitArg(typesys.OpLdarg, 0); err != nil {
				return value{}, err
			}
			if err := l.boundFunction(l.owner, m); err != nil {
				return value{}, err
			}
			break
		}
		if err := l.staticFunction(m); err != nil {
			return value{}, err
		}
	default:
		if t, ok := l.typeTarget(e.Target); ok {
			m, err = l.delegateTarget(t, e.Name, &static, dlg.Params, dlg.Return, dt)
			if err != nil {
				return value{}, err
			}
			if err := l.staticFunction(m); err != nil {
				return value{}, err
			}
			break
		}
		recv, err := l.receiver(e.Target, false, e.Name)
		if err != nil {
			return value{}, err
		}
		return l.boundDelegate(recv.typ, e.Name, dt, dlg)
	}
	return value{typ: dt}, l.il.EmitConstructor(typesys.OpNewobj, dlg.Ctor)
}

// boundDelegate finishes a delegate over an instance method of the
// receiver already on the stack.
func (l *lowerer) boundDelegate(recvType typesys.Type, name string, dt typesys.Type, dlg *symbols.Delegate) (value, error) {
	instance := false
	m, err := l.delegateTarget(recvType, name, &instance, dlg.Params, dlg.Return, dt)
	if err != nil {
		return value{}, err
	}
	if err := l.boundFunction(recvType, m); err != nil {
		return value{}, err
	}
	return value{typ: dt}, l.il.EmitConstructor(typesys.OpNewobj, dlg.Ctor)
}

// hasMethods reports whether t or a base declares a method named name.
func (l *lowerer) hasMethods(t typesys.Type, name string) bool {
	for _, cur := range l.lineage(t) {
		if len(l.store.Methods(cur, name)) > 0 {
			return true
		}
	}
	return false
}

func (l *lowerer) staticFunction(m typesys.MethodInfo) error {
	if err := l.il.Emit(typesys.OpLdnull); err != nil {
		return err
	}
	return l.il.EmitMethod(typesys.OpLdftn, m)
}

// boundFunction expects the receiver on the stack and leaves the
// (object, native int) pair the delegate constructor takes.
func (l *lowerer) boundFunction(recvType typesys.Type, m typesys.MethodInfo) error {
	if recvType.IsValueType() {
		if err := l.il.EmitType(typesys.OpBox, recvType); err != nil {
			return err
		}
	}
	if err := l.il.Emit(typesys.OpDup); err != nil {
		return err
	}
	return l.il.EmitMethod(typesys.OpLdvirtftn, m)
}

// delegateTarget picks the first method of t named name, with the given
// static-ness when static is non-nil, whose signature equals the delegate's.
func (l *lowerer) delegateTarget(t typesys.Type, name string, static *bool, params []typesys.Type, ret, dt typesys.Type) (typesys.MethodInfo, error) {
	found := false
	for _, cur := range l.lineage(t) {
		for _, m := range l.store.Methods(cur, name) {
			if static != nil && m.IsStatic() != *static {
				continue
			}
			found = true
			if typesys.SameParams(l.store.Params(m), params) && typesys.Equal(m.ReturnType(), ret) {
				return m, nil
			}
		}
	}
	if !found {
		return nil, diag.Errorf(diag.LookupMissingMethod, "method %s::%s not found", t.Name(), name)
	}
	return nil, diag.Errorf(diag.ShapeDelegateSignature, "no %s::%s matches delegate %s %s",
		t.Name(), name, dt.Name(), typesys.Signature(typesys.InvokeName, params)+" : "+typesys.TypeName(ret))
}
