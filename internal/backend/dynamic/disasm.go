package dynamic

import (
	"fmt"
	"strconv"
	"strings"

	"ilforge/internal/typesys"
)

// Disassemble lists the verified bodies of every finalized user type.
func (m *Module) Disassemble() []string {
	var out []string
	for _, t := range m.user {
		if !t.created {
			continue
		}
		header := ".class " + t.name
		if t.base != nil {
			header += " : " + t.base.Name()
		}
		out = append(out, header)
		for _, f := range t.fields {
			out = append(out, fmt.Sprintf("  .field %s %s %s", f.attrs, typesys.TypeName(f.typ), f.name))
		}
		for _, c := range t.ctors {
			out = append(out, disassembleMember(&c.methodBase, m.void)...)
		}
		for _, meth := range t.methods {
			out = append(out, disassembleMember(&meth.methodBase, meth.ret)...)
		}
	}
	return out
}

func disassembleMember(mb *methodBase, ret typesys.Type) []string {
	sig := fmt.Sprintf("  .method %s %s %s", mb.attrs, typesys.TypeName(ret), typesys.Signature(mb.name, mb.params))
	if mb.impl == typesys.ImplRuntime || mb.body == nil {
		return []string{sig + " " + mb.impl.String()}
	}
	out := []string{sig}
	if len(mb.body.Locals) > 0 {
		names := make([]string, len(mb.body.Locals))
		for i, l := range mb.body.Locals {
			names[i] = typesys.TypeName(l)
		}
		out = append(out, "    .locals ("+strings.Join(names, ", ")+")")
	}
	out = append(out, "    .maxstack "+strconv.Itoa(mb.body.MaxStack))
	for pc, in := range mb.body.Code {
		out = append(out, fmt.Sprintf("    IL_%04d: %s", pc, FormatInstr(in)))
	}
	return out
}

// FormatInstr renders one instruction with its operand.
func FormatInstr(in Instr) string {
	op := in.Op.String()
	kind := in.Op.Operand()
	if in.Ctor != nil {
		kind = typesys.OperandCtor
	}
	switch kind {
	case typesys.OperandNone:
		return op
	case typesys.OperandInt8, typesys.OperandInt32, typesys.OperandLocal, typesys.OperandArg:
		return op + " " + strconv.Itoa(int(in.Int))
	case typesys.OperandString:
		return op + " " + strconv.Quote(in.Str)
	case typesys.OperandType:
		return op + " " + typesys.TypeName(in.Type)
	case typesys.OperandField:
		return fmt.Sprintf("%s %s::%s", op, in.Field.owner.name, in.Field.name)
	case typesys.OperandMethod:
		return fmt.Sprintf("%s %s::%s", op, in.Method.owner.name, typesys.Signature(in.Method.name, in.Method.params))
	case typesys.OperandCtor:
		return fmt.Sprintf("%s %s::%s", op, in.Ctor.owner.name, typesys.Signature(typesys.CtorName, in.Ctor.params))
	case typesys.OperandLabel:
		return fmt.Sprintf("%s IL_%04d", op, in.Int)
	}
	return op
}
