package dynamic

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

// nativeFunc implements a host member. Instance members get the receiver
// in args[0], possibly as a managed pointer or a boxed value.
type nativeFunc func(vm *machine, args []Value) (Value, error)

var hostStatics = map[string]Value{
	"System.String::Empty": String(""),
}

var natives = map[string]nativeFunc{
	"System.Object::.ctor()":               objectCtor,
	"System.Object::ToString()":            objectToString,
	"System.Object::Equals(System.Object)": objectEquals,
	"System.Object::GetHashCode()":         objectHash,

	"System.Int32::ToString()":              objectToString,
	"System.Int32::CompareTo(System.Int32)": int32CompareTo,
	"System.Int32::Parse(System.String)":    int32Parse,
	"System.Boolean::ToString()":            boolToString,
	"System.IntPtr::ToInt32()":              intPtrToInt32,

	"System.String::get_Length()":                         stringLength,
	"System.String::Substring(System.Int32,System.Int32)": stringSubstring,
	"System.String::ToUpper()":                            stringToUpper,
	"System.String::Contains(System.String)":              stringContains,
	"System.String::ToString()":                           objectToString,
	"System.String::Concat(System.String,System.String)":  stringConcat,
	"System.String::Equals(System.String,System.String)":  stringEquals,

	"System.Console::WriteLine()":               consoleWrite("", true),
	"System.Console::WriteLine(System.String)":  consoleWrite(typesys.StringName, true),
	"System.Console::WriteLine(System.Int32)":   consoleWrite(typesys.Int32Name, true),
	"System.Console::WriteLine(System.Boolean)": consoleWrite(typesys.BooleanName, true),
	"System.Console::WriteLine(System.Object)":  consoleWrite(typesys.ObjectName, true),
	"System.Console::Write(System.String)":      consoleWrite(typesys.StringName, false),
	"System.Console::Write(System.Int32)":       consoleWrite(typesys.Int32Name, false),
	"System.Console::ReadLine()":                consoleReadLine,

	"System.Math::Max(System.Int32,System.Int32)": mathMax,
	"System.Math::Min(System.Int32,System.Int32)": mathMin,
	"System.Math::Abs(System.Int32)":              mathAbs,

	"System.Text.StringBuilder::.ctor()":               builderNew,
	"System.Text.StringBuilder::.ctor(System.String)":  builderNew,
	"System.Text.StringBuilder::Append(System.String)": builderAppend,
	"System.Text.StringBuilder::Append(System.Int32)":  builderAppend,
	"System.Text.StringBuilder::get_Length()":          builderLength,
	"System.Text.StringBuilder::ToString()":            objectToString,
}

// self unwraps a receiver: managed pointers are followed and boxed values
// are opened.
func self(v Value) Value {
	v = v.deref()
	if v.Kind == KindObject && v.Obj.Boxed != nil {
		return *v.Obj.Boxed
	}
	return v
}

func objectCtor(*machine, []Value) (Value, error) { return Value{}, nil }

func objectToString(_ *machine, args []Value) (Value, error) {
	return String(display(args[0], nil)), nil
}

func boolToString(vm *machine, args []Value) (Value, error) {
	return String(display(self(args[0]), vm.mod.byName[typesys.BooleanName])), nil
}

func objectEquals(_ *machine, args []Value) (Value, error) {
	a, b := args[0].deref(), args[1].deref()
	if a.Kind == KindObject && b.Kind == KindObject && a.Obj.Boxed != nil && b.Obj.Boxed != nil {
		return Bool(a.Obj.Type == b.Obj.Type && sameValue(*a.Obj.Boxed, *b.Obj.Boxed)), nil
	}
	return Bool(sameValue(a, b)), nil
}

func objectHash(_ *machine, args []Value) (Value, error) {
	v := self(args[0])
	switch v.Kind {
	case KindInt:
		return Int(v.I), nil
	case KindString:
		h := fnv.New32a()
		_, _ = io.WriteString(h, v.S)
		return Int(int32(h.Sum32())), nil
	case KindObject:
		return Int(v.Obj.id), nil
	}
	return Int(0), nil
}

func int32CompareTo(_ *machine, args []Value) (Value, error) {
	a, b := self(args[0]).I, args[1].I
	switch {
	case a < b:
		return Int(-1), nil
	case a > b:
		return Int(1), nil
	}
	return Int(0), nil
}

func int32Parse(_ *machine, args []Value) (Value, error) {
	if args[0].IsNull() {
		return Value{}, diag.Errorf(diag.RuntimeNullReference, "Int32.Parse(null)")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(args[0].S), 10, 32)
	if err != nil {
		return Value{}, diag.Wrap(diag.RuntimeNative, err, "Int32.Parse(%q)", args[0].S)
	}
	return Int(int32(n)), nil
}

func intPtrToInt32(vm *machine, args []Value) (Value, error) {
	return Int(vm.mod.token(self(args[0]).Fn)), nil
}

func stringArg(v Value) (string, error) {
	v = v.deref()
	if v.Kind != KindString {
		return "", diag.Errorf(diag.RuntimeNullReference, "string receiver is %s", v.Kind)
	}
	return v.S, nil
}

func stringLength(_ *machine, args []Value) (Value, error) {
	s, err := stringArg(args[0])
	if err != nil {
		return Value{}, err
	}
	n, err := safecast.Conv[int32](len([]rune(s)))
	if err != nil {
		return Value{}, diag.Wrap(diag.RuntimeIndexRange, err, "string length")
	}
	return Int(n), nil
}

func stringSubstring(_ *machine, args []Value) (Value, error) {
	s, err := stringArg(args[0])
	if err != nil {
		return Value{}, err
	}
	r := []rune(s)
	start, n := int(args[1].I), int(args[2].I)
	if start < 0 || n < 0 || start+n > len(r) {
		return Value{}, diag.Errorf(diag.RuntimeIndexRange, "Substring(%d, %d) on string of length %d", start, n, len(r))
	}
	return String(string(r[start : start+n])), nil
}

func stringToUpper(_ *machine, args []Value) (Value, error) {
	s, err := stringArg(args[0])
	if err != nil {
		return Value{}, err
	}
	return String(strings.ToUpper(s)), nil
}

func stringContains(_ *machine, args []Value) (Value, error) {
	s, err := stringArg(args[0])
	if err != nil {
		return Value{}, err
	}
	sub, err := stringArg(args[1])
	if err != nil {
		return Value{}, err
	}
	return Bool(strings.Contains(s, sub)), nil
}

func stringConcat(_ *machine, args []Value) (Value, error) {
	return String(display(args[0], nil) + display(args[1], nil)), nil
}

func stringEquals(_ *machine, args []Value) (Value, error) {
	return Bool(sameValue(args[0], args[1])), nil
}

func consoleWrite(param string, newline bool) nativeFunc {
	return func(vm *machine, args []Value) (Value, error) {
		var text string
		if param != "" {
			var typ typesys.Type
			if t, ok := vm.mod.byName[param]; ok && param != typesys.ObjectName {
				typ = t
			}
			text = display(args[0], typ)
		}
		if newline {
			text += "\n"
		}
		if _, err := io.WriteString(vm.mod.stdout, text); err != nil {
			return Value{}, diag.Wrap(diag.RuntimeNative, err, "console write")
		}
		return Value{}, nil
	}
}

func consoleReadLine(vm *machine, _ []Value) (Value, error) {
	line, err := vm.mod.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Value{}, diag.Wrap(diag.RuntimeNative, err, "console read")
	}
	if line == "" && err != nil {
		return Null(), nil
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return String(line), nil
}

func mathMax(_ *machine, args []Value) (Value, error) {
	return Int(max(args[0].I, args[1].I)), nil
}

func mathMin(_ *machine, args []Value) (Value, error) {
	return Int(min(args[0].I, args[1].I)), nil
}

func mathAbs(_ *machine, args []Value) (Value, error) {
	v := args[0].I
	if v == math.MinInt32 {
		return Value{}, diag.Errorf(diag.RuntimeNative, "Math.Abs overflow for %d", v)
	}
	if v < 0 {
		v = -v
	}
	return Int(v), nil
}

func builderState(v Value) (*strings.Builder, error) {
	v = v.deref()
	if v.Kind != KindObject {
		return nil, diag.Errorf(diag.RuntimeNullReference, "StringBuilder receiver is %s", v.Kind)
	}
	sb, ok := v.Obj.Native.(*strings.Builder)
	if !ok {
		return nil, diag.Errorf(diag.RuntimeBadOperand, "%s is not a StringBuilder", v.Obj.Type.name)
	}
	return sb, nil
}

func builderNew(_ *machine, args []Value) (Value, error) {
	obj := args[0].deref().Obj
	sb := &strings.Builder{}
	if len(args) > 1 {
		sb.WriteString(display(args[1], nil))
	}
	obj.Native = sb
	return Value{}, nil
}

func builderAppend(_ *machine, args []Value) (Value, error) {
	sb, err := builderState(args[0])
	if err != nil {
		return Value{}, err
	}
	sb.WriteString(display(args[1], nil))
	return args[0].deref(), nil
}

func builderLength(_ *machine, args []Value) (Value, error) {
	sb, err := builderState(args[0])
	if err != nil {
		return Value{}, err
	}
	n, err := safecast.Conv[int32](len([]rune(sb.String())))
	if err != nil {
		return Value{}, fmt.Errorf("StringBuilder length: %w", err)
	}
	return Int(n), nil
}
