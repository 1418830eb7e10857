package typesys

import (
	"fortio.org/safecast"

	"ilforge/internal/diag"
)

// Encoded is an instruction after short-form selection.
type Encoded struct {
	Op         OpCode
	Operand    int32
	HasOperand bool
}

var (
	ldlocShort = [4]OpCode{OpLdloc0, OpLdloc1, OpLdloc2, OpLdloc3}
	stlocShort = [4]OpCode{OpStloc0, OpStloc1, OpStloc2, OpStloc3}
	ldargShort = [4]OpCode{OpLdarg0, OpLdarg1, OpLdarg2, OpLdarg3}
	ldcShort   = [9]OpCode{OpLdcI40, OpLdcI41, OpLdcI42, OpLdcI43, OpLdcI44, OpLdcI45, OpLdcI46, OpLdcI47, OpLdcI48}
)

// EncodeLocal narrows a generic local opcode (OpLdloc, OpStloc, OpLdloca).
//
// Slots 0-3 use the dedicated short opcodes for loads and stores; every
// other slot uses the general indexed form. Both backends go through this
// function so their output agrees.
func EncodeLocal(op OpCode, index int) (Encoded, error) {
	idx, err := safecast.Conv[uint16](index)
	if err != nil || idx == 0xFFFF {
		return Encoded{}, diag.Errorf(diag.BackendOperandRange, "local index %d out of range", index)
	}
	switch op {
	case OpLdloc:
		if idx < 4 {
			return Encoded{Op: ldlocShort[idx]}, nil
		}
	case OpStloc:
		if idx < 4 {
			return Encoded{Op: stlocShort[idx]}, nil
		}
	case OpLdloca:
	default:
		return Encoded{}, diag.Errorf(diag.BackendUnsupportedOp, "%s does not take a local operand", op)
	}
	return Encoded{Op: op, Operand: int32(idx), HasOperand: true}, nil
}

// EncodeArg narrows a generic argument opcode (OpLdarg, OpStarg, OpLdarga).
// Indices 0-3 load with ldarg.N, indices up to 255 use the .s forms.
func EncodeArg(op OpCode, index int) (Encoded, error) {
	idx, err := safecast.Conv[uint16](index)
	if err != nil || idx == 0xFFFF {
		return Encoded{}, diag.Errorf(diag.BackendOperandRange, "argument index %d out of range", index)
	}
	_, shortErr := safecast.Conv[uint8](index)
	short := shortErr == nil
	switch op {
	case OpLdarg:
		if idx < 4 {
			return Encoded{Op: ldargShort[idx]}, nil
		}
		if short {
			op = OpLdargS
		}
	case OpStarg:
		if short {
			op = OpStargS
		}
	case OpLdarga:
		if short {
			op = OpLdargaS
		}
	default:
		return Encoded{}, diag.Errorf(diag.BackendUnsupportedOp, "%s does not take an argument operand", op)
	}
	return Encoded{Op: op, Operand: int32(idx), HasOperand: true}, nil
}

// EncodeInt picks the shortest ldc.i4 form for v.
func EncodeInt(v int32) Encoded {
	switch {
	case v == -1:
		return Encoded{Op: OpLdcI4M1}
	case v >= 0 && v <= 8:
		return Encoded{Op: ldcShort[v]}
	}
	if b, err := safecast.Conv[int8](v); err == nil {
		return Encoded{Op: OpLdcI4S, Operand: int32(b), HasOperand: true}
	}
	return Encoded{Op: OpLdcI4, Operand: v, HasOperand: true}
}

// ShortLocalIndex returns the slot addressed by ldloc.N/stloc.N.
func ShortLocalIndex(op OpCode) (int, bool) {
	switch op {
	case OpLdloc0, OpStloc0:
		return 0, true
	case OpLdloc1, OpStloc1:
		return 1, true
	case OpLdloc2, OpStloc2:
		return 2, true
	case OpLdloc3, OpStloc3:
		return 3, true
	}
	return 0, false
}

// ShortArgIndex returns the argument addressed by ldarg.N.
func ShortArgIndex(op OpCode) (int, bool) {
	switch op {
	case OpLdarg0:
		return 0, true
	case OpLdarg1:
		return 1, true
	case OpLdarg2:
		return 2, true
	case OpLdarg3:
		return 3, true
	}
	return 0, false
}

// ShortIntValue returns the constant pushed by ldc.i4.m1 .. ldc.i4.8.
func ShortIntValue(op OpCode) (int32, bool) {
	if op == OpLdcI4M1 {
		return -1, true
	}
	if op >= OpLdcI40 && op <= OpLdcI48 {
		return int32(op - OpLdcI40), true
	}
	return 0, false
}
