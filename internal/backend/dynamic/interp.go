package dynamic

import (
	"context"
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"

	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

// ctxCheckInterval is how many instructions run between cancellation checks.
const ctxCheckInterval = 4096

type machine struct {
	mod   *Module
	ctx   context.Context
	depth int
	steps uint64
}

type frame struct {
	fn     *methodBase
	args   []Value
	locals []Value
	stack  []Value
	pc     int
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) popN(n int) []Value {
	out := make([]Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out
}

func (f *frame) fail(code diag.Code, format string, args ...any) error {
	return diag.Errorf(code, "%s::%s IL_%04d: %s", f.fn.owner.name, f.fn.name, f.pc, fmt.Sprintf(format, args...))
}

func (vm *machine) call(mb *methodBase, args []Value) (Value, error) {
	if vm.depth >= vm.mod.maxDepth {
		return Value{}, diag.Errorf(diag.RuntimeCallDepth, "call depth exceeds %d at %s::%s", vm.mod.maxDepth, mb.owner.name, mb.name)
	}
	vm.depth++
	defer func() { vm.depth-- }()

	switch {
	case mb.native != nil:
		return mb.native(vm, args)
	case mb.impl == typesys.ImplRuntime:
		return vm.callRuntime(mb, args)
	case mb.body == nil:
		if !mb.owner.created {
			return Value{}, diag.Errorf(diag.BackendNotFinalized, "%s::%s: type is not finalized", mb.owner.name, mb.name)
		}
		return Value{}, diag.Errorf(diag.RuntimeNative, "%s::%s has no implementation", mb.owner.name, mb.name)
	}
	return vm.exec(mb, args)
}

// callRuntime implements the runtime-supplied delegate members.
func (vm *machine) callRuntime(mb *methodBase, args []Value) (Value, error) {
	self := args[0].deref()
	if self.Kind != KindObject {
		return Value{}, diag.Errorf(diag.RuntimeNullReference, "%s::%s on null delegate", mb.owner.name, mb.name)
	}
	switch mb.name {
	case typesys.CtorName:
		self.Obj.Target = args[1]
		self.Obj.Method = args[2].Fn
		return Value{}, nil
	case typesys.InvokeName:
		del := self.Obj
		if del.Method == nil {
			return Value{}, diag.Errorf(diag.RuntimeNullReference, "delegate %s has no target method", del.Type.name)
		}
		if del.Method.IsStatic() {
			return vm.call(&del.Method.methodBase, args[1:])
		}
		if del.Target.IsNull() {
			return Value{}, diag.Errorf(diag.RuntimeNullReference, "delegate %s has a null receiver", del.Type.name)
		}
		full := append([]Value{del.Target}, args[1:]...)
		return vm.call(&del.Method.methodBase, full)
	}
	return Value{}, diag.Errorf(diag.RuntimeNative, "%s::%s is not a runtime member", mb.owner.name, mb.name)
}

// construct allocates an instance and runs ctor on it.
func (vm *machine) construct(ctor *Constructor, args []Value) (Value, error) {
	t := ctor.owner
	obj := vm.mod.alloc(t)
	self := Value{Kind: KindObject, Obj: obj}
	if _, err := vm.call(&ctor.methodBase, append([]Value{self}, args...)); err != nil {
		return Value{}, err
	}
	return self, nil
}

// virtualTarget finds the override of m on the runtime type of recv.
func (vm *machine) virtualTarget(recv Value, m *Method) *Method {
	if !m.IsVirtual() {
		return m
	}
	rt := vm.runtimeType(recv)
	for cur := rt; cur != nil; {
		for _, cand := range cur.methods {
			if cand.name == m.name && cand.IsVirtual() && typesys.SameParams(cand.params, m.params) {
				return cand
			}
		}
		next, _ := cur.runtimeBase().(*Type)
		cur = next
	}
	return m
}

func (vm *machine) runtimeType(v Value) *Type {
	v = v.deref()
	switch v.Kind {
	case KindString:
		return vm.mod.byName[typesys.StringName]
	case KindInt:
		return vm.mod.byName[typesys.Int32Name]
	case KindFunc:
		return vm.mod.byName[typesys.IntPtrName]
	case KindArray:
		at, _ := v.Arr.Elem.MakeArrayType().(*Type)
		return at
	case KindObject:
		return v.Obj.Type
	}
	return vm.mod.object
}

func (vm *machine) exec(mb *methodBase, args []Value) (Value, error) {
	body := mb.body
	f := &frame{
		fn:     mb,
		args:   args,
		locals: make([]Value, len(body.Locals)),
		stack:  make([]Value, 0, body.MaxStack),
	}
	for i, t := range body.Locals {
		f.locals[i] = zeroValue(t)
	}
	for {
		if f.pc < 0 || f.pc >= len(body.Code) {
			return Value{}, f.fail(diag.RuntimeBadOperand, "control left the body")
		}
		vm.steps++
		if vm.ctx != nil && vm.steps%ctxCheckInterval == 0 {
			if err := vm.ctx.Err(); err != nil {
				return Value{}, fmt.Errorf("%s::%s: %w", mb.owner.name, mb.name, err)
			}
		}
		in := &body.Code[f.pc]
		next := f.pc + 1
		ret, done, err := vm.step(f, in, &next)
		if err != nil {
			return Value{}, err
		}
		if done {
			return ret, nil
		}
		f.pc = next
	}
}

func (vm *machine) step(f *frame, in *Instr, next *int) (Value, bool, error) {
	op := in.Op
	if v, ok := typesys.ShortIntValue(op); ok {
		f.push(Int(v))
		return Value{}, false, nil
	}
	if i, ok := typesys.ShortArgIndex(op); ok {
		f.push(f.args[i])
		return Value{}, false, nil
	}
	if i, ok := typesys.ShortLocalIndex(op); ok {
		if op >= typesys.OpStloc0 && op <= typesys.OpStloc3 {
			f.locals[i] = f.pop()
		} else {
			f.push(f.locals[i])
		}
		return Value{}, false, nil
	}

	switch op {
	case typesys.OpNop:
	case typesys.OpLdnull:
		f.push(Null())
	case typesys.OpLdcI4S, typesys.OpLdcI4:
		f.push(Int(in.Int))
	case typesys.OpLdstr:
		f.push(String(in.Str))

	case typesys.OpLdargS, typesys.OpLdarg:
		f.push(f.args[in.Int])
	case typesys.OpLdargaS, typesys.OpLdarga:
		f.push(Value{Kind: KindAddr, Ref: &f.args[in.Int]})
	case typesys.OpStargS, typesys.OpStarg:
		f.args[in.Int] = f.pop()
	case typesys.OpLdloc:
		f.push(f.locals[in.Int])
	case typesys.OpLdloca:
		f.push(Value{Kind: KindAddr, Ref: &f.locals[in.Int]})
	case typesys.OpStloc:
		f.locals[in.Int] = f.pop()

	case typesys.OpDup:
		v := f.pop()
		f.push(v)
		f.push(v)
	case typesys.OpPop:
		f.pop()
	case typesys.OpRet:
		if len(f.stack) > 0 {
			return f.pop(), true, nil
		}
		return Value{}, true, nil

	case typesys.OpBr:
		*next = int(in.Int)
	case typesys.OpBrtrue:
		if f.pop().truthy() {
			*next = int(in.Int)
		}
	case typesys.OpBrfalse:
		if !f.pop().truthy() {
			*next = int(in.Int)
		}

	case typesys.OpAdd, typesys.OpSub, typesys.OpMul, typesys.OpDiv, typesys.OpRem,
		typesys.OpAnd, typesys.OpOr, typesys.OpXor, typesys.OpCgt, typesys.OpClt:
		b, a := f.pop().deref(), f.pop().deref()
		if a.Kind != KindInt || b.Kind != KindInt {
			return Value{}, false, f.fail(diag.RuntimeBadOperand, "%s on %s and %s", op, a.Kind, b.Kind)
		}
		v, err := arith(op, a.I, b.I)
		if err != nil {
			code := diag.RuntimeDivideByZero
			if errors.Is(err, errOverflow) {
				code = diag.RuntimeOverflow
			}
			return Value{}, false, f.fail(code, "%v", err)
		}
		f.push(Int(v))
	case typesys.OpCeq:
		b, a := f.pop(), f.pop()
		f.push(Bool(sameValue(a, b)))
	case typesys.OpNeg, typesys.OpNot:
		a := f.pop().deref()
		if a.Kind != KindInt {
			return Value{}, false, f.fail(diag.RuntimeBadOperand, "%s on %s", op, a.Kind)
		}
		if op == typesys.OpNeg {
			f.push(Int(-a.I))
		} else {
			f.push(Int(^a.I))
		}
	case typesys.OpConvI4:
		a := f.pop().deref()
		switch a.Kind {
		case KindInt:
			f.push(a)
		case KindFunc:
			f.push(Int(vm.mod.token(a.Fn)))
		default:
			return Value{}, false, f.fail(diag.RuntimeBadOperand, "conv.i4 on %s", a.Kind)
		}

	case typesys.OpCall, typesys.OpCallvirt:
		return Value{}, false, vm.invoke(f, in)
	case typesys.OpNewobj:
		return Value{}, false, vm.newobj(f, in.Ctor)
	case typesys.OpLdftn:
		f.push(Value{Kind: KindFunc, Fn: in.Method})
	case typesys.OpLdvirtftn:
		recv := f.pop()
		if recv.deref().IsNull() {
			return Value{}, false, f.fail(diag.RuntimeNullReference, "ldvirtftn %s on null", in.Method.name)
		}
		f.push(Value{Kind: KindFunc, Fn: vm.virtualTarget(recv, in.Method)})

	case typesys.OpLdfld, typesys.OpLdflda, typesys.OpStfld:
		return Value{}, false, vm.instanceField(f, in)
	case typesys.OpLdsfld:
		f.push(in.Field.static)
	case typesys.OpLdsflda:
		f.push(Value{Kind: KindAddr, Ref: &in.Field.static})
	case typesys.OpStsfld:
		in.Field.static = f.pop()

	case typesys.OpNewarr:
		n := f.pop().deref()
		if n.Kind != KindInt {
			return Value{}, false, f.fail(diag.RuntimeBadOperand, "newarr size is %s", n.Kind)
		}
		if n.I < 0 {
			return Value{}, false, f.fail(diag.RuntimeIndexRange, "negative array size %d", n.I)
		}
		arr := &Array{Elem: in.Type, Elems: make([]Value, n.I)}
		for i := range arr.Elems {
			arr.Elems[i] = zeroValue(in.Type)
		}
		f.push(Value{Kind: KindArray, Arr: arr})
	case typesys.OpLdlen:
		a := f.pop().deref()
		if a.Kind != KindArray {
			return Value{}, false, f.fail(diag.RuntimeNullReference, "ldlen on %s", a.Kind)
		}
		n, err := safecast.Conv[int32](len(a.Arr.Elems))
		if err != nil {
			return Value{}, false, f.fail(diag.RuntimeIndexRange, "array length: %v", err)
		}
		f.push(Int(n))
	case typesys.OpLdelem, typesys.OpLdelema, typesys.OpStelem:
		return Value{}, false, vm.element(f, op)
	case typesys.OpBox:
		v := f.pop()
		if t, ok := in.Type.(*Type); ok && t.valueType {
			boxed := v.deref()
			obj := vm.mod.alloc(t)
			obj.Boxed = &boxed
			v = Value{Kind: KindObject, Obj: obj}
		}
		f.push(v)

	default:
		return Value{}, false, f.fail(diag.BackendUnsupportedOp, "opcode %s not executable", op)
	}
	return Value{}, false, nil
}

var errOverflow = errors.New("arithmetic overflow")

func arith(op typesys.OpCode, a, b int32) (int32, error) {
	switch op {
	case typesys.OpAdd:
		return a + b, nil
	case typesys.OpSub:
		return a - b, nil
	case typesys.OpMul:
		return a * b, nil
	case typesys.OpDiv, typesys.OpRem:
		if b == 0 {
			return 0, fmt.Errorf("%s by zero", op)
		}
		if a == math.MinInt32 && b == -1 {
			return 0, fmt.Errorf("%s %d by -1: %w", op, a, errOverflow)
		}
		if op == typesys.OpDiv {
			return a / b, nil
		}
		return a % b, nil
	case typesys.OpAnd:
		return a & b, nil
	case typesys.OpOr:
		return a | b, nil
	case typesys.OpXor:
		return a ^ b, nil
	case typesys.OpCgt:
		if a > b {
			return 1, nil
		}
		return 0, nil
	case typesys.OpClt:
		if a < b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%s is not arithmetic", op)
}

func (vm *machine) invoke(f *frame, in *Instr) error {
	if in.Ctor != nil {
		args := f.popN(in.Ctor.argCount())
		if args[0].deref().IsNull() {
			return f.fail(diag.RuntimeNullReference, "call %s::.ctor on null", in.Ctor.owner.name)
		}
		_, err := vm.call(&in.Ctor.methodBase, args)
		return err
	}
	m := in.Method
	args := f.popN(m.argCount())
	target := m
	if !m.IsStatic() {
		recv := args[0].deref()
		if recv.IsNull() {
			return f.fail(diag.RuntimeNullReference, "%s %s::%s on null", in.Op, m.owner.name, m.name)
		}
		if in.Op == typesys.OpCallvirt {
			target = vm.virtualTarget(args[0], m)
		}
	}
	res, err := vm.call(&target.methodBase, args)
	if err != nil {
		return err
	}
	if !typesys.IsVoid(m.ret) {
		f.push(res)
	}
	return nil
}

func (vm *machine) newobj(f *frame, ctor *Constructor) error {
	args := f.popN(len(ctor.params))
	if typesys.IsDelegate(ctor.owner) && ctor.impl == typesys.ImplRuntime {
		if len(args) != 2 || args[1].Kind != KindFunc {
			return f.fail(diag.RuntimeBadOperand, "delegate %s needs (object, native int)", ctor.owner.name)
		}
		obj := vm.mod.alloc(ctor.owner)
		obj.Target = args[0]
		obj.Method = args[1].Fn
		f.push(Value{Kind: KindObject, Obj: obj})
		return nil
	}
	v, err := vm.construct(ctor, args)
	if err != nil {
		return err
	}
	f.push(v)
	return nil
}

func (vm *machine) instanceField(f *frame, in *Instr) error {
	var val Value
	if in.Op == typesys.OpStfld {
		val = f.pop()
	}
	recv := f.pop().deref()
	if recv.Kind != KindObject {
		return f.fail(diag.RuntimeNullReference, "%s %s on %s", in.Op, in.Field.name, recv.Kind)
	}
	obj := recv.Obj
	slot := in.Field.slot
	if slot < 0 || slot >= len(obj.Fields) {
		return f.fail(diag.RuntimeBadOperand, "%s has no field %s::%s", obj.Type.name, in.Field.owner.name, in.Field.name)
	}
	switch in.Op {
	case typesys.OpLdfld:
		f.push(obj.Fields[slot])
	case typesys.OpLdflda:
		f.push(Value{Kind: KindAddr, Ref: &obj.Fields[slot]})
	default:
		obj.Fields[slot] = val
	}
	return nil
}

func (vm *machine) element(f *frame, op typesys.OpCode) error {
	var val Value
	if op == typesys.OpStelem {
		val = f.pop()
	}
	idx := f.pop().deref()
	arr := f.pop().deref()
	if arr.Kind != KindArray {
		return f.fail(diag.RuntimeNullReference, "%s on %s", op, arr.Kind)
	}
	if idx.Kind != KindInt {
		return f.fail(diag.RuntimeBadOperand, "%s index is %s", op, idx.Kind)
	}
	if idx.I < 0 || int(idx.I) >= len(arr.Arr.Elems) {
		return f.fail(diag.RuntimeIndexRange, "index %d outside [0, %d)", idx.I, len(arr.Arr.Elems))
	}
	switch op {
	case typesys.OpLdelem:
		f.push(arr.Arr.Elems[idx.I])
	case typesys.OpLdelema:
		f.push(Value{Kind: KindAddr, Ref: &arr.Arr.Elems[idx.I]})
	default:
		arr.Arr.Elems[idx.I] = val
	}
	return nil
}
