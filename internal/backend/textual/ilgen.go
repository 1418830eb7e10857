package textual

import (
	"strconv"

	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

// Local is a local slot of one textual method body.
type Local struct {
	gen   *ILGen
	index int
	typ   typesys.Type
}

func (l *Local) Index() int              { return l.index }
func (l *Local) LocalType() typesys.Type { return l.typ }

// ILGen buffers instruction lines for one method body and tracks the
// evaluation stack depth for .maxstack.
type ILGen struct {
	mod    *Module
	owner  *methodBase
	ret    typesys.Type
	locals []*Local
	body   []string
	depth  int
	max    int
}

var _ typesys.ILGenerator = (*ILGen)(nil)

func newILGen(mod *Module, owner *methodBase, ret typesys.Type) *ILGen {
	return &ILGen{mod: mod, owner: owner, ret: ret}
}

func (g *ILGen) sealed() error {
	if g.owner.owner.created {
		return g.owner.owner.sealedErr("instructions")
	}
	return nil
}

func (g *ILGen) check(op typesys.OpCode, kind typesys.OperandKind) error {
	if err := g.sealed(); err != nil {
		return err
	}
	if !op.AcceptsOperand(kind) {
		return diag.Errorf(diag.BackendUnsupportedOp, "%s does not take a %s operand", op, kind)
	}
	return nil
}

// account applies the stack effect of op. ret resets the depth since
// nothing after it is reachable without a label.
func (g *ILGen) account(op typesys.OpCode, operand any) error {
	if op == typesys.OpRet {
		operand = g.ret
	}
	pop, push := typesys.StackEffect(op, operand)
	if g.depth < pop {
		return diag.Errorf(diag.BackendStackImbalance, "%s needs %d stack values, have %d", op, pop, g.depth)
	}
	g.depth += push - pop
	if g.depth > g.max {
		g.max = g.depth
	}
	if op == typesys.OpRet {
		if g.depth != 0 {
			return diag.Errorf(diag.BackendStackImbalance, "ret leaves %d values on the stack", g.depth)
		}
	}
	return nil
}

func (g *ILGen) line(op typesys.OpCode, operand string, effect any) error {
	if err := g.account(op, effect); err != nil {
		return err
	}
	if operand == "" {
		g.body = append(g.body, op.String())
	} else {
		g.body = append(g.body, op.String()+" "+operand)
	}
	return nil
}

func (g *ILGen) finish() error {
	if len(g.body) == 0 {
		return diag.Errorf(diag.BackendStackImbalance, "method body is empty")
	}
	if g.depth != 0 {
		return diag.Errorf(diag.BackendStackImbalance, "body ends with %d values on the stack", g.depth)
	}
	return nil
}

func (g *ILGen) Emit(op typesys.OpCode) error {
	if op.IsBranch() {
		return g.EmitLabel(op, nil)
	}
	if err := g.check(op, typesys.OperandNone); err != nil {
		return err
	}
	return g.line(op, "", nil)
}

func (g *ILGen) EmitInt(op typesys.OpCode, v int32) error {
	if op != typesys.OpLdcI4 && op != typesys.OpLdcI4S {
		return diag.Errorf(diag.BackendUnsupportedOp, "%s does not take an integer operand", op)
	}
	if err := g.sealed(); err != nil {
		return err
	}
	enc := typesys.EncodeInt(v)
	if !enc.HasOperand {
		return g.line(enc.Op, "", nil)
	}
	return g.line(enc.Op, strconv.FormatInt(int64(enc.Operand), 10), nil)
}

func (g *ILGen) EmitString(op typesys.OpCode, s string) error {
	if err := g.check(op, typesys.OperandString); err != nil {
		return err
	}
	return g.line(op, quoteString(s), nil)
}

func (g *ILGen) EmitType(op typesys.OpCode, t typesys.Type) error {
	if err := g.check(op, typesys.OperandType); err != nil {
		return err
	}
	return g.line(op, g.mod.typeSpec(t), t)
}

func (g *ILGen) EmitField(op typesys.OpCode, f typesys.FieldInfo) error {
	if err := g.check(op, typesys.OperandField); err != nil {
		return err
	}
	return g.line(op, g.mod.fieldRef(f), f)
}

func (g *ILGen) EmitMethod(op typesys.OpCode, m typesys.MethodInfo) error {
	if err := g.check(op, typesys.OperandMethod); err != nil {
		return err
	}
	return g.line(op, g.mod.methodRef(m), m)
}

func (g *ILGen) EmitConstructor(op typesys.OpCode, c typesys.ConstructorInfo) error {
	if err := g.check(op, typesys.OperandCtor); err != nil {
		return err
	}
	return g.line(op, g.mod.ctorRef(c), c)
}

func (g *ILGen) EmitLocal(op typesys.OpCode, l typesys.LocalSlot) error {
	if err := g.sealed(); err != nil {
		return err
	}
	local, ok := l.(*Local)
	if !ok || local.gen != g {
		return diag.Errorf(diag.BackendForeignObject, "local slot does not belong to %s", g.owner.name)
	}
	enc, err := typesys.EncodeLocal(op, local.index)
	if err != nil {
		return err
	}
	if !enc.HasOperand {
		return g.line(enc.Op, "", nil)
	}
	return g.line(enc.Op, strconv.Itoa(int(enc.Operand)), nil)
}

func (g *ILGen) EmitArg(op typesys.OpCode, index int) error {
	if err := g.sealed(); err != nil {
		return err
	}
	count := len(g.owner.params)
	if !g.owner.IsStatic() {
		count++
	}
	if index < 0 || index >= count {
		return diag.Errorf(diag.BackendOperandRange, "argument %d out of range for %s", index, g.owner.name)
	}
	enc, err := typesys.EncodeArg(op, index)
	if err != nil {
		return err
	}
	if !enc.HasOperand {
		return g.line(enc.Op, "", nil)
	}
	return g.line(enc.Op, strconv.Itoa(int(enc.Operand)), nil)
}

// EmitLabel always fails: the listing has no branch support.
func (g *ILGen) EmitLabel(op typesys.OpCode, _ typesys.Label) error {
	return diag.Errorf(diag.BackendUnsupportedOp, "textual backend cannot emit %s", op)
}

func (g *ILGen) DeclareLocal(t typesys.Type) (typesys.LocalSlot, error) {
	if err := g.sealed(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, diag.Errorf(diag.TypeCannotInfer, "local of unknown type")
	}
	l := &Local{gen: g, index: len(g.locals), typ: t}
	g.locals = append(g.locals, l)
	return l, nil
}

func (g *ILGen) DefineLabel() (typesys.Label, error) {
	return nil, diag.Errorf(diag.BackendUnsupportedOp, "textual backend does not support labels")
}

func (g *ILGen) MarkLabel(typesys.Label) error {
	return diag.Errorf(diag.BackendUnsupportedOp, "textual backend does not support labels")
}
