package dynamic

import (
	"strconv"
	"strings"

	"ilforge/internal/typesys"
)

// Kind identifies the runtime representation of a Value.
type Kind uint8

const (
	// KindNull is the null reference and the zero Value.
	KindNull Kind = iota
	// KindInt holds int32 and bool (0 or 1).
	KindInt
	// KindString is a non-null string.
	KindString
	// KindObject is a class instance, boxed value or delegate.
	KindObject
	// KindArray is a single-dimension array.
	KindArray
	// KindFunc is a native int holding a method pointer from ldftn.
	KindFunc
	// KindAddr is a managed pointer to a storage location.
	KindAddr
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindFunc:
		return "func"
	case KindAddr:
		return "addr"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one evaluation-stack or storage value.
type Value struct {
	Kind Kind
	I    int32
	S    string
	Obj  *Object
	Arr  *Array
	Fn   *Method
	Ref  *Value
}

// Object is a heap instance. Boxed is set for boxed value types, Target
// and Method for delegates, Native for host state such as the buffer of a
// StringBuilder.
type Object struct {
	Type   *Type
	Fields []Value
	Boxed  *Value
	Target Value
	Method *Method
	Native any
	id     int32
}

// Array is a heap array.
type Array struct {
	Elem  typesys.Type
	Elems []Value
}

// Int returns an int32 value.
func Int(v int32) Value { return Value{Kind: KindInt, I: v} }

// Bool returns the int32 encoding of a boolean.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Null returns the null reference.
func Null() Value { return Value{} }

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindInt:
		return v.I != 0
	case KindFunc:
		return v.Fn != nil
	default:
		return true
	}
}

// deref follows a managed pointer, once.
func (v Value) deref() Value {
	if v.Kind == KindAddr && v.Ref != nil {
		return *v.Ref
	}
	return v
}

func zeroValue(t typesys.Type) Value {
	if t == nil {
		return Value{}
	}
	switch t.Name() {
	case typesys.Int32Name, typesys.BooleanName:
		return Int(0)
	case typesys.IntPtrName:
		return Value{Kind: KindFunc}
	}
	return Value{}
}

func sameValue(a, b Value) bool {
	a, b = a.deref(), b.deref()
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindInt:
		return a.I == b.I
	case KindString:
		return a.S == b.S
	case KindObject:
		return a.Obj == b.Obj
	case KindArray:
		return a.Arr == b.Arr
	case KindFunc:
		return a.Fn == b.Fn
	case KindAddr:
		return a.Ref == b.Ref
	}
	return false
}

// display renders v the way Console.WriteLine(object) and ToString do.
func display(v Value, typ typesys.Type) string {
	v = v.deref()
	switch v.Kind {
	case KindNull:
		return ""
	case KindInt:
		if typ != nil && typ.Name() == typesys.BooleanName {
			if v.I != 0 {
				return "True"
			}
			return "False"
		}
		return strconv.FormatInt(int64(v.I), 10)
	case KindString:
		return v.S
	case KindArray:
		return typesys.ArrayName(v.Arr.Elem.Name())
	case KindFunc:
		if v.Fn == nil {
			return "0"
		}
		return v.Fn.owner.name + "::" + v.Fn.name
	case KindObject:
		o := v.Obj
		switch {
		case o.Boxed != nil:
			return display(*o.Boxed, o.Type)
		case o.Native != nil:
			if sb, ok := o.Native.(*strings.Builder); ok {
				return sb.String()
			}
		}
		return o.Type.name
	}
	return ""
}
