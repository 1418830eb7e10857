package typesys

import (
	"errors"
	"testing"

	"ilforge/internal/diag"
)

func TestEncodeLocalShortForms(t *testing.T) {
	cases := []struct {
		op    OpCode
		index int
		want  OpCode
		arg   bool
	}{
		{OpLdloc, 0, OpLdloc0, false},
		{OpLdloc, 3, OpLdloc3, false},
		{OpLdloc, 4, OpLdloc, true},
		{OpLdloc, 300, OpLdloc, true},
		{OpStloc, 2, OpStloc2, false},
		{OpStloc, 4, OpStloc, true},
		{OpLdloca, 0, OpLdloca, true},
	}
	for _, tc := range cases {
		enc, err := EncodeLocal(tc.op, tc.index)
		if err != nil {
			t.Fatalf("%s %d: %v", tc.op, tc.index, err)
		}
		if enc.Op != tc.want || enc.HasOperand != tc.arg {
			t.Fatalf("%s %d: got %s (operand %v)", tc.op, tc.index, enc.Op, enc.HasOperand)
		}
		if tc.arg && int(enc.Operand) != tc.index {
			t.Fatalf("%s %d: operand %d", tc.op, tc.index, enc.Operand)
		}
	}
}

func TestEncodeLocalRejects(t *testing.T) {
	if _, err := EncodeLocal(OpLdloc, 70000); !errors.Is(err, diag.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if _, err := EncodeLocal(OpLdarg, 1); !errors.Is(err, diag.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestEncodeArg(t *testing.T) {
	cases := []struct {
		op    OpCode
		index int
		want  OpCode
	}{
		{OpLdarg, 0, OpLdarg0},
		{OpLdarg, 3, OpLdarg3},
		{OpLdarg, 4, OpLdargS},
		{OpLdarg, 256, OpLdarg},
		{OpStarg, 1, OpStargS},
		{OpLdarga, 1, OpLdargaS},
		{OpLdarga, 1000, OpLdarga},
	}
	for _, tc := range cases {
		enc, err := EncodeArg(tc.op, tc.index)
		if err != nil {
			t.Fatalf("%s %d: %v", tc.op, tc.index, err)
		}
		if enc.Op != tc.want {
			t.Fatalf("%s %d: got %s", tc.op, tc.index, enc.Op)
		}
	}
}

func TestEncodeInt(t *testing.T) {
	cases := []struct {
		v    int32
		want OpCode
	}{
		{-1, OpLdcI4M1},
		{0, OpLdcI40},
		{8, OpLdcI48},
		{9, OpLdcI4S},
		{-128, OpLdcI4S},
		{127, OpLdcI4S},
		{128, OpLdcI4},
		{-129, OpLdcI4},
	}
	for _, tc := range cases {
		enc := EncodeInt(tc.v)
		if enc.Op != tc.want {
			t.Fatalf("%d: got %s, want %s", tc.v, enc.Op, tc.want)
		}
		if v, ok := ShortIntValue(enc.Op); ok && v != tc.v {
			t.Fatalf("%d: short form pushes %d", tc.v, v)
		}
		if enc.HasOperand && enc.Operand != tc.v {
			t.Fatalf("%d: operand %d", tc.v, enc.Operand)
		}
	}
}

func TestOpcodeSpelling(t *testing.T) {
	if OpLdvirtftn.String() != "ldvirtftn" || OpLdcI4M1.String() != "ldc.i4.m1" {
		t.Fatal("unexpected spelling")
	}
	if !OpLdcI4S.AcceptsOperand(OperandInt32) || OpLdfld.AcceptsOperand(OperandMethod) {
		t.Fatal("operand acceptance mismatch")
	}
	if _, ok := ShortLocalIndex(OpStloc3); !ok {
		t.Fatal("stloc.3 should be a short local form")
	}
}

func TestSplitArrayName(t *testing.T) {
	elem, ok := SplitArrayName("System.Int32[][]")
	if !ok || elem != "System.Int32[]" {
		t.Fatalf("got %q %v", elem, ok)
	}
	if _, ok := SplitArrayName("[]"); ok {
		t.Fatal("bare suffix is not an array name")
	}
}
