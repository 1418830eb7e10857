package dynamic

import (
	"fmt"

	"fortio.org/safecast"

	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

// Instr is one encoded instruction. Int holds constants, local and
// argument indices, and resolved branch targets.
type Instr struct {
	Op     typesys.OpCode
	Int    int32
	Str    string
	Type   typesys.Type
	Field  *Field
	Method *Method
	Ctor   *Constructor
}

// Body is a verified method body.
type Body struct {
	Code     []Instr
	Locals   []typesys.Type
	MaxStack int
}

// Local is a local slot of one method body.
type Local struct {
	gen   *ILGen
	index int
	typ   typesys.Type
}

func (l *Local) Index() int              { return l.index }
func (l *Local) LocalType() typesys.Type { return l.typ }

// Label is a branch target of one method body.
type Label struct {
	gen *ILGen
	id  int
}

func (l *Label) ID() int { return l.id }

// ILGen records instructions for one method body. Branch operands hold
// label ids until finish rewrites them to instruction indices.
type ILGen struct {
	mod    *Module
	owner  *methodBase
	ret    typesys.Type
	code   []Instr
	locals []*Local
	marks  []int
}

var _ typesys.ILGenerator = (*ILGen)(nil)

func newILGen(mod *Module, owner *methodBase, ret typesys.Type) *ILGen {
	return &ILGen{mod: mod, owner: owner, ret: ret}
}

func (g *ILGen) check(op typesys.OpCode, kind typesys.OperandKind) error {
	if g.owner.owner.created {
		return g.owner.owner.sealedErr("instructions")
	}
	if !op.AcceptsOperand(kind) {
		return diag.Errorf(diag.BackendUnsupportedOp, "%s does not take a %s operand", op, kind)
	}
	return nil
}

func (g *ILGen) add(in Instr) error {
	g.code = append(g.code, in)
	return nil
}

func (g *ILGen) Emit(op typesys.OpCode) error {
	if err := g.check(op, typesys.OperandNone); err != nil {
		return err
	}
	return g.add(Instr{Op: op})
}

func (g *ILGen) EmitInt(op typesys.OpCode, v int32) error {
	if op != typesys.OpLdcI4 && op != typesys.OpLdcI4S {
		return diag.Errorf(diag.BackendUnsupportedOp, "%s does not take an integer operand", op)
	}
	if err := g.check(op, typesys.OperandInt32); err != nil {
		return err
	}
	enc := typesys.EncodeInt(v)
	return g.add(Instr{Op: enc.Op, Int: enc.Operand})
}

func (g *ILGen) EmitString(op typesys.OpCode, s string) error {
	if err := g.check(op, typesys.OperandString); err != nil {
		return err
	}
	return g.add(Instr{Op: op, Str: s})
}

func (g *ILGen) EmitType(op typesys.OpCode, t typesys.Type) error {
	if err := g.check(op, typesys.OperandType); err != nil {
		return err
	}
	if _, ok := t.(*Type); !ok {
		return g.foreign("type " + typesys.TypeName(t))
	}
	return g.add(Instr{Op: op, Type: t})
}

func (g *ILGen) EmitField(op typesys.OpCode, f typesys.FieldInfo) error {
	if err := g.check(op, typesys.OperandField); err != nil {
		return err
	}
	field, ok := f.(*Field)
	if !ok || field.owner.mod != g.mod {
		return g.foreign("field " + f.Name())
	}
	static := op == typesys.OpLdsfld || op == typesys.OpLdsflda || op == typesys.OpStsfld
	if static != field.IsStatic() {
		return diag.Errorf(diag.BackendUnsupportedOp, "%s cannot access field %s::%s", op, field.owner.name, field.name)
	}
	return g.add(Instr{Op: op, Field: field})
}

func (g *ILGen) EmitMethod(op typesys.OpCode, m typesys.MethodInfo) error {
	if err := g.check(op, typesys.OperandMethod); err != nil {
		return err
	}
	meth, ok := m.(*Method)
	if !ok || meth.owner.mod != g.mod {
		return g.foreign("method " + m.Name())
	}
	if op == typesys.OpLdvirtftn && meth.IsStatic() {
		return diag.Errorf(diag.BackendUnsupportedOp, "ldvirtftn needs an instance method, got static %s", meth.name)
	}
	return g.add(Instr{Op: op, Method: meth})
}

func (g *ILGen) EmitConstructor(op typesys.OpCode, c typesys.ConstructorInfo) error {
	if err := g.check(op, typesys.OperandCtor); err != nil {
		return err
	}
	ctor, ok := c.(*Constructor)
	if !ok || ctor.owner.mod != g.mod {
		return g.foreign("constructor of " + typesys.TypeName(c.DeclaringType()))
	}
	return g.add(Instr{Op: op, Ctor: ctor})
}

func (g *ILGen) EmitLocal(op typesys.OpCode, l typesys.LocalSlot) error {
	if err := g.check(op, op.Operand()); err != nil {
		return err
	}
	local, ok := l.(*Local)
	if !ok || local.gen != g {
		return g.foreign("local slot")
	}
	enc, err := typesys.EncodeLocal(op, local.index)
	if err != nil {
		return err
	}
	return g.add(Instr{Op: enc.Op, Int: enc.Operand})
}

func (g *ILGen) EmitArg(op typesys.OpCode, index int) error {
	if err := g.check(op, op.Operand()); err != nil {
		return err
	}
	if index < 0 || index >= g.owner.argCount() {
		return diag.Errorf(diag.BackendOperandRange, "argument %d out of range for %s", index, g.owner.name)
	}
	enc, err := typesys.EncodeArg(op, index)
	if err != nil {
		return err
	}
	return g.add(Instr{Op: enc.Op, Int: enc.Operand})
}

func (g *ILGen) EmitLabel(op typesys.OpCode, l typesys.Label) error {
	if err := g.check(op, typesys.OperandLabel); err != nil {
		return err
	}
	label, ok := l.(*Label)
	if !ok || label.gen != g {
		return g.foreign("label")
	}
	id, err := safecast.Conv[int32](label.id)
	if err != nil {
		return diag.Errorf(diag.BackendOperandRange, "label %d out of range", label.id)
	}
	return g.add(Instr{Op: op, Int: id})
}

func (g *ILGen) DeclareLocal(t typesys.Type) (typesys.LocalSlot, error) {
	if g.owner.owner.created {
		return nil, g.owner.owner.sealedErr("local")
	}
	if t == nil {
		return nil, diag.Errorf(diag.TypeCannotInfer, "local of unknown type")
	}
	l := &Local{gen: g, index: len(g.locals), typ: t}
	g.locals = append(g.locals, l)
	return l, nil
}

func (g *ILGen) DefineLabel() (typesys.Label, error) {
	if g.owner.owner.created {
		return nil, g.owner.owner.sealedErr("label")
	}
	l := &Label{gen: g, id: len(g.marks)}
	g.marks = append(g.marks, -1)
	return l, nil
}

func (g *ILGen) MarkLabel(l typesys.Label) error {
	label, ok := l.(*Label)
	if !ok || label.gen != g {
		return g.foreign("label")
	}
	if g.marks[label.id] >= 0 {
		return diag.Errorf(diag.BackendUnsupportedOp, "label %d marked twice", label.id)
	}
	g.marks[label.id] = len(g.code)
	return nil
}

func (g *ILGen) foreign(what string) error {
	return diag.Errorf(diag.BackendForeignObject, "%s does not belong to module %s", what, g.mod.name)
}

// finish resolves branch targets and verifies the stack discipline: every
// reachable instruction sees one consistent depth, nothing underflows,
// ret leaves exactly the return value and control never runs off the end.
func (g *ILGen) finish() (*Body, error) {
	code := make([]Instr, len(g.code))
	copy(code, g.code)
	for i := range code {
		if !code[i].Op.IsBranch() {
			continue
		}
		target := g.marks[code[i].Int]
		if target < 0 {
			return nil, diag.Errorf(diag.BackendUnmarkedLabel, "label %d used by IL_%04d was never marked", code[i].Int, i)
		}
		if target >= len(code) {
			return nil, diag.Errorf(diag.BackendStackImbalance, "label %d marks the end of the body", code[i].Int)
		}
		code[i].Int = int32(target)
	}
	if len(code) == 0 {
		return nil, diag.Errorf(diag.BackendStackImbalance, "method body is empty")
	}

	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}
	maxStack := 0
	work := []int{0}
	depth[0] = 0
	for len(work) > 0 {
		pc := work[len(work)-1]
		work = work[:len(work)-1]
		in := code[pc]
		pop, push := typesys.StackEffect(in.Op, g.effectOperand(in))
		cur := depth[pc]
		if cur < pop {
			return nil, diag.Errorf(diag.BackendStackImbalance, "IL_%04d %s needs %d stack values, have %d", pc, in.Op, pop, cur)
		}
		cur += push - pop
		maxStack = max(maxStack, cur)
		if in.Op == typesys.OpRet {
			if cur != 0 {
				return nil, diag.Errorf(diag.BackendStackImbalance, "IL_%04d ret leaves %d values on the stack", pc, cur)
			}
			continue
		}
		var next []int
		if in.Op.IsBranch() {
			next = append(next, int(in.Int))
		}
		if !typesys.Terminates(in.Op) {
			if pc+1 >= len(code) {
				return nil, diag.Errorf(diag.BackendStackImbalance, "control falls off the end after IL_%04d", pc)
			}
			next = append(next, pc+1)
		}
		for _, n := range next {
			switch depth[n] {
			case -1:
				depth[n] = cur
				work = append(work, n)
			case cur:
			default:
				return nil, diag.Errorf(diag.BackendStackImbalance, "IL_%04d reached with stack depth %d and %d", n, depth[n], cur)
			}
		}
	}

	locals := make([]typesys.Type, len(g.locals))
	for i, l := range g.locals {
		locals[i] = l.typ
	}
	return &Body{Code: code, Locals: locals, MaxStack: maxStack}, nil
}

func (g *ILGen) effectOperand(in Instr) any {
	switch {
	case in.Op == typesys.OpRet:
		return g.ret
	case in.Method != nil:
		return in.Method
	case in.Ctor != nil:
		return in.Ctor
	}
	return nil
}

func wrapMember(mb *methodBase, err error) error {
	return fmt.Errorf("%s::%s: %w", mb.owner.name, mb.name, err)
}
