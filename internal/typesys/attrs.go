package typesys

import "strings"

// BindingFlags selects members by visibility and instance/static-ness.
type BindingFlags uint8

const (
	BindPublic BindingFlags = 1 << iota
	BindInstance
	BindStatic

	BindAll = BindPublic | BindInstance | BindStatic
)

// Matches reports whether a public member with the given static-ness is
// selected.
func (b BindingFlags) Matches(static bool) bool {
	if b&BindPublic == 0 {
		return false
	}
	if static {
		return b&BindStatic != 0
	}
	return b&BindInstance != 0
}

// TypeAttributes describe a defined type.
type TypeAttributes uint16

const (
	TypePublic TypeAttributes = 1 << iota
	TypeSealed
	TypeAbstract
	TypeBeforeFieldInit
)

func (a TypeAttributes) String() string {
	parts := []string{}
	if a&TypePublic != 0 {
		parts = append(parts, "public")
	} else {
		parts = append(parts, "private")
	}
	parts = append(parts, "auto", "ansi")
	if a&TypeAbstract != 0 {
		parts = append(parts, "abstract")
	}
	if a&TypeSealed != 0 {
		parts = append(parts, "sealed")
	}
	if a&TypeBeforeFieldInit != 0 {
		parts = append(parts, "beforefieldinit")
	}
	return strings.Join(parts, " ")
}

// MethodAttributes describe a defined method or constructor.
type MethodAttributes uint16

const (
	MethodPublic MethodAttributes = 1 << iota
	MethodStatic
	MethodVirtual
	MethodHideBySig
	MethodNewSlot
	MethodSpecialName
	MethodRTSpecialName
)

func (a MethodAttributes) String() string {
	parts := []string{}
	if a&MethodPublic != 0 {
		parts = append(parts, "public")
	} else {
		parts = append(parts, "private")
	}
	if a&MethodHideBySig != 0 {
		parts = append(parts, "hidebysig")
	}
	if a&MethodNewSlot != 0 {
		parts = append(parts, "newslot")
	}
	if a&MethodSpecialName != 0 {
		parts = append(parts, "specialname")
	}
	if a&MethodRTSpecialName != 0 {
		parts = append(parts, "rtspecialname")
	}
	if a&MethodVirtual != 0 {
		parts = append(parts, "virtual")
	}
	if a&MethodStatic != 0 {
		parts = append(parts, "static")
	}
	return strings.Join(parts, " ")
}

// MethodImplAttributes say who supplies a method body.
type MethodImplAttributes uint8

const (
	// ImplIL bodies are emitted through an ILGenerator.
	ImplIL MethodImplAttributes = iota
	// ImplRuntime bodies are supplied by the runtime (delegate members).
	ImplRuntime
)

func (a MethodImplAttributes) String() string {
	if a == ImplRuntime {
		return "runtime managed"
	}
	return "cil managed"
}

// FieldAttributes describe a defined field.
type FieldAttributes uint8

const (
	FieldPublic FieldAttributes = 1 << iota
	FieldStatic
)

func (a FieldAttributes) String() string {
	parts := []string{}
	if a&FieldPublic != 0 {
		parts = append(parts, "public")
	} else {
		parts = append(parts, "private")
	}
	if a&FieldStatic != 0 {
		parts = append(parts, "static")
	}
	return strings.Join(parts, " ")
}
