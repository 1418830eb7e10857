package typesys

import "strings"

// Well-known host type names.
const (
	ObjectName            = "System.Object"
	VoidName              = "System.Void"
	Int32Name             = "System.Int32"
	BooleanName           = "System.Boolean"
	StringName            = "System.String"
	IntPtrName            = "System.IntPtr"
	DelegateName          = "System.Delegate"
	MulticastDelegateName = "System.MulticastDelegate"

	CtorName   = ".ctor"
	InvokeName = "Invoke"

	// ArraySuffix marks a derived single-dimension array type name.
	ArraySuffix = "[]"
)

// Equal compares types by reference, falling back to the qualified name.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	return a.Name() == b.Name()
}

// SameParams reports positional, exact equality of two parameter lists.
func SameParams(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IsVoid reports whether t is the void marker.
func IsVoid(t Type) bool {
	return t != nil && t.Name() == VoidName
}

// IsDelegate reports whether t derives from System.MulticastDelegate.
func IsDelegate(t Type) bool {
	if t == nil {
		return false
	}
	base := t.BaseType()
	return base != nil && base.Name() == MulticastDelegateName
}

// TypeName renders a possibly nil type for messages.
func TypeName(t Type) string {
	if t == nil {
		return "<none>"
	}
	return t.Name()
}

// Signature renders "name(T1, T2)" for messages and cache keys.
func Signature(name string, params []Type) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(TypeName(p))
	}
	sb.WriteByte(')')
	return sb.String()
}

// ArrayName returns the name of the array type derived from elem.
func ArrayName(elem string) string {
	return elem + ArraySuffix
}

// SplitArrayName returns the element name if name denotes an array type.
func SplitArrayName(name string) (string, bool) {
	if !strings.HasSuffix(name, ArraySuffix) || len(name) == len(ArraySuffix) {
		return "", false
	}
	return strings.TrimSuffix(name, ArraySuffix), true
}

// FindInvoke returns the single Invoke member of a delegate type.
func FindInvoke(t Type) MethodInfo {
	if t == nil {
		return nil
	}
	var found MethodInfo
	for _, m := range t.Methods(BindPublic | BindInstance) {
		if m.Name() == InvokeName {
			if found != nil {
				return nil
			}
			found = m
		}
	}
	return found
}
