package typesys

import "fmt"

// OpCode is one instruction of the stack machine.
type OpCode uint8

const (
	OpNop OpCode = iota
	OpLdnull
	OpLdcI4M1
	OpLdcI40
	OpLdcI41
	OpLdcI42
	OpLdcI43
	OpLdcI44
	OpLdcI45
	OpLdcI46
	OpLdcI47
	OpLdcI48
	OpLdcI4S
	OpLdcI4
	OpLdstr

	OpLdarg0
	OpLdarg1
	OpLdarg2
	OpLdarg3
	OpLdargS
	OpLdarg
	OpLdargaS
	OpLdarga
	OpStargS
	OpStarg

	OpLdloc0
	OpLdloc1
	OpLdloc2
	OpLdloc3
	OpLdloc
	OpLdloca
	OpStloc0
	OpStloc1
	OpStloc2
	OpStloc3
	OpStloc

	OpDup
	OpPop
	OpRet

	OpBr
	OpBrtrue
	OpBrfalse

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpNeg
	OpNot
	OpCeq
	OpCgt
	OpClt

	OpCall
	OpCallvirt
	OpNewobj
	OpLdftn
	OpLdvirtftn

	OpLdfld
	OpLdflda
	OpStfld
	OpLdsfld
	OpLdsflda
	OpStsfld

	OpNewarr
	OpLdlen
	OpLdelem
	OpLdelema
	OpStelem
	OpBox
	OpConvI4

	opCount
)

// OperandKind is the operand an opcode takes.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandInt8
	OperandInt32
	OperandString
	OperandType
	OperandField
	OperandMethod
	OperandCtor
	OperandLocal
	OperandArg
	OperandLabel
)

func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandInt8:
		return "int8"
	case OperandInt32:
		return "int32"
	case OperandString:
		return "string"
	case OperandType:
		return "type"
	case OperandField:
		return "field"
	case OperandMethod:
		return "method"
	case OperandCtor:
		return "ctor"
	case OperandLocal:
		return "local"
	case OperandArg:
		return "arg"
	case OperandLabel:
		return "label"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// varStack marks a pop/push count that depends on the operand.
const varStack = -1

type opInfo struct {
	name    string
	operand OperandKind
	pop     int8
	push    int8
}

var opTable = [opCount]opInfo{
	OpNop:     {"nop", OperandNone, 0, 0},
	OpLdnull:  {"ldnull", OperandNone, 0, 1},
	OpLdcI4M1: {"ldc.i4.m1", OperandNone, 0, 1},
	OpLdcI40:  {"ldc.i4.0", OperandNone, 0, 1},
	OpLdcI41:  {"ldc.i4.1", OperandNone, 0, 1},
	OpLdcI42:  {"ldc.i4.2", OperandNone, 0, 1},
	OpLdcI43:  {"ldc.i4.3", OperandNone, 0, 1},
	OpLdcI44:  {"ldc.i4.4", OperandNone, 0, 1},
	OpLdcI45:  {"ldc.i4.5", OperandNone, 0, 1},
	OpLdcI46:  {"ldc.i4.6", OperandNone, 0, 1},
	OpLdcI47:  {"ldc.i4.7", OperandNone, 0, 1},
	OpLdcI48:  {"ldc.i4.8", OperandNone, 0, 1},
	OpLdcI4S:  {"ldc.i4.s", OperandInt8, 0, 1},
	OpLdcI4:   {"ldc.i4", OperandInt32, 0, 1},
	OpLdstr:   {"ldstr", OperandString, 0, 1},

	OpLdarg0:  {"ldarg.0", OperandNone, 0, 1},
	OpLdarg1:  {"ldarg.1", OperandNone, 0, 1},
	OpLdarg2:  {"ldarg.2", OperandNone, 0, 1},
	OpLdarg3:  {"ldarg.3", OperandNone, 0, 1},
	OpLdargS:  {"ldarg.s", OperandArg, 0, 1},
	OpLdarg:   {"ldarg", OperandArg, 0, 1},
	OpLdargaS: {"ldarga.s", OperandArg, 0, 1},
	OpLdarga:  {"ldarga", OperandArg, 0, 1},
	OpStargS:  {"starg.s", OperandArg, 1, 0},
	OpStarg:   {"starg", OperandArg, 1, 0},

	OpLdloc0: {"ldloc.0", OperandNone, 0, 1},
	OpLdloc1: {"ldloc.1", OperandNone, 0, 1},
	OpLdloc2: {"ldloc.2", OperandNone, 0, 1},
	OpLdloc3: {"ldloc.3", OperandNone, 0, 1},
	OpLdloc:  {"ldloc", OperandLocal, 0, 1},
	OpLdloca: {"ldloca", OperandLocal, 0, 1},
	OpStloc0: {"stloc.0", OperandNone, 1, 0},
	OpStloc1: {"stloc.1", OperandNone, 1, 0},
	OpStloc2: {"stloc.2", OperandNone, 1, 0},
	OpStloc3: {"stloc.3", OperandNone, 1, 0},
	OpStloc:  {"stloc", OperandLocal, 1, 0},

	OpDup: {"dup", OperandNone, 1, 2},
	OpPop: {"pop", OperandNone, 1, 0},
	OpRet: {"ret", OperandNone, varStack, 0},

	OpBr:      {"br", OperandLabel, 0, 0},
	OpBrtrue:  {"brtrue", OperandLabel, 1, 0},
	OpBrfalse: {"brfalse", OperandLabel, 1, 0},

	OpAdd: {"add", OperandNone, 2, 1},
	OpSub: {"sub", OperandNone, 2, 1},
	OpMul: {"mul", OperandNone, 2, 1},
	OpDiv: {"div", OperandNone, 2, 1},
	OpRem: {"rem", OperandNone, 2, 1},
	OpAnd: {"and", OperandNone, 2, 1},
	OpOr:  {"or", OperandNone, 2, 1},
	OpXor: {"xor", OperandNone, 2, 1},
	OpNeg: {"neg", OperandNone, 1, 1},
	OpNot: {"not", OperandNone, 1, 1},
	OpCeq: {"ceq", OperandNone, 2, 1},
	OpCgt: {"cgt", OperandNone, 2, 1},
	OpClt: {"clt", OperandNone, 2, 1},

	OpCall:      {"call", OperandMethod, varStack, varStack},
	OpCallvirt:  {"callvirt", OperandMethod, varStack, varStack},
	OpNewobj:    {"newobj", OperandCtor, varStack, 1},
	OpLdftn:     {"ldftn", OperandMethod, 0, 1},
	OpLdvirtftn: {"ldvirtftn", OperandMethod, 1, 1},

	OpLdfld:   {"ldfld", OperandField, 1, 1},
	OpLdflda:  {"ldflda", OperandField, 1, 1},
	OpStfld:   {"stfld", OperandField, 2, 0},
	OpLdsfld:  {"ldsfld", OperandField, 0, 1},
	OpLdsflda: {"ldsflda", OperandField, 0, 1},
	OpStsfld:  {"stsfld", OperandField, 1, 0},

	OpNewarr:  {"newarr", OperandType, 1, 1},
	OpLdlen:   {"ldlen", OperandNone, 1, 1},
	OpLdelem:  {"ldelem", OperandType, 2, 1},
	OpLdelema: {"ldelema", OperandType, 2, 1},
	OpStelem:  {"stelem", OperandType, 3, 0},
	OpBox:     {"box", OperandType, 1, 1},
	OpConvI4:  {"conv.i4", OperandNone, 1, 1},
}

// Valid reports whether op is a known opcode.
func (op OpCode) Valid() bool { return op < opCount }

// String returns the assembler spelling of the opcode.
func (op OpCode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("OpCode(%d)", op)
	}
	return opTable[op].name
}

// Operand returns the operand kind the opcode takes.
func (op OpCode) Operand() OperandKind {
	if !op.Valid() {
		return OperandNone
	}
	return opTable[op].operand
}

// IsBranch reports whether op transfers control to a label.
func (op OpCode) IsBranch() bool {
	return op == OpBr || op == OpBrtrue || op == OpBrfalse
}

// IsConditional reports whether a branch may fall through.
func (op OpCode) IsConditional() bool {
	return op == OpBrtrue || op == OpBrfalse
}

// AcceptsOperand reports whether op may be emitted with an operand of kind k.
// Generic local/argument/constant opcodes accept the kind their encoder takes.
func (op OpCode) AcceptsOperand(k OperandKind) bool {
	if !op.Valid() {
		return false
	}
	if k == OperandInt32 && op == OpLdcI4S {
		return true
	}
	// call also chains to a base constructor on an existing instance.
	if k == OperandCtor && op == OpCall {
		return true
	}
	return opTable[op].operand == k
}
