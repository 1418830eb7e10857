// Package hostlib describes the host-provided types every backend exposes.
//
// The catalog is data only. Each backend materialises its own Type objects
// from it; the dynamic backend additionally binds native implementations by
// Key.
package hostlib

import "strings"

// RuntimeModule is the external runtime assembly hosting these types.
const RuntimeModule = "mscorlib"

// TypeDesc describes one host type.
type TypeDesc struct {
	Name      string
	ValueType bool
	Base      string
	Fields    []FieldDesc
	Ctors     []CtorDesc
	Methods   []MethodDesc
}

// FieldDesc describes a host field.
type FieldDesc struct {
	Name   string
	Type   string
	Static bool
}

// CtorDesc describes a host constructor.
type CtorDesc struct {
	Params []string
}

// MethodDesc describes a host method.
type MethodDesc struct {
	Name    string
	Static  bool
	Virtual bool
	Return  string
	Params  []string
}

const (
	tObject  = "System.Object"
	tVoid    = "System.Void"
	tInt32   = "System.Int32"
	tBool    = "System.Boolean"
	tString  = "System.String"
	tIntPtr  = "System.IntPtr"
	tBuilder = "System.Text.StringBuilder"
)

func p(names ...string) []string { return names }

// Catalog returns the host types in registration order.
func Catalog() []TypeDesc {
	return []TypeDesc{
		{
			Name:  tObject,
			Ctors: []CtorDesc{{}},
			Methods: []MethodDesc{
				{Name: "ToString", Virtual: true, Return: tString},
				{Name: "Equals", Virtual: true, Return: tBool, Params: p(tObject)},
				{Name: "GetHashCode", Virtual: true, Return: tInt32},
			},
		},
		{Name: tVoid, ValueType: true, Base: tObject},
		{
			Name:      tInt32,
			ValueType: true,
			Base:      tObject,
			Methods: []MethodDesc{
				{Name: "ToString", Virtual: true, Return: tString},
				{Name: "CompareTo", Return: tInt32, Params: p(tInt32)},
				{Name: "Parse", Static: true, Return: tInt32, Params: p(tString)},
			},
		},
		{
			Name:      tBool,
			ValueType: true,
			Base:      tObject,
			Methods: []MethodDesc{
				{Name: "ToString", Virtual: true, Return: tString},
			},
		},
		{
			Name:      tIntPtr,
			ValueType: true,
			Base:      tObject,
			Methods: []MethodDesc{
				{Name: "ToInt32", Return: tInt32},
			},
		},
		{
			Name: tString,
			Base: tObject,
			Fields: []FieldDesc{
				{Name: "Empty", Type: tString, Static: true},
			},
			Methods: []MethodDesc{
				{Name: "get_Length", Return: tInt32},
				{Name: "Substring", Return: tString, Params: p(tInt32, tInt32)},
				{Name: "ToUpper", Return: tString},
				{Name: "Contains", Return: tBool, Params: p(tString)},
				{Name: "ToString", Virtual: true, Return: tString},
				{Name: "Concat", Static: true, Return: tString, Params: p(tString, tString)},
				{Name: "Equals", Static: true, Return: tBool, Params: p(tString, tString)},
			},
		},
		{Name: "System.Delegate", Base: tObject},
		{Name: "System.MulticastDelegate", Base: "System.Delegate"},
		{
			Name: "System.Console",
			Base: tObject,
			Methods: []MethodDesc{
				{Name: "WriteLine", Static: true, Return: tVoid},
				{Name: "WriteLine", Static: true, Return: tVoid, Params: p(tString)},
				{Name: "WriteLine", Static: true, Return: tVoid, Params: p(tInt32)},
				{Name: "WriteLine", Static: true, Return: tVoid, Params: p(tBool)},
				{Name: "WriteLine", Static: true, Return: tVoid, Params: p(tObject)},
				{Name: "Write", Static: true, Return: tVoid, Params: p(tString)},
				{Name: "Write", Static: true, Return: tVoid, Params: p(tInt32)},
				{Name: "ReadLine", Static: true, Return: tString},
			},
		},
		{
			Name: "System.Math",
			Base: tObject,
			Methods: []MethodDesc{
				{Name: "Max", Static: true, Return: tInt32, Params: p(tInt32, tInt32)},
				{Name: "Min", Static: true, Return: tInt32, Params: p(tInt32, tInt32)},
				{Name: "Abs", Static: true, Return: tInt32, Params: p(tInt32)},
			},
		},
		{
			Name:  tBuilder,
			Base:  tObject,
			Ctors: []CtorDesc{{}, {Params: p(tString)}},
			Methods: []MethodDesc{
				{Name: "Append", Return: tBuilder, Params: p(tString)},
				{Name: "Append", Return: tBuilder, Params: p(tInt32)},
				{Name: "get_Length", Return: tInt32},
				{Name: "ToString", Virtual: true, Return: tString},
			},
		},
	}
}

// Aliases maps source spellings to host type names.
func Aliases() map[string]string {
	return map[string]string{
		"object":        tObject,
		"void":          tVoid,
		"int":           tInt32,
		"bool":          tBool,
		"string":        tString,
		"nint":          tIntPtr,
		"Console":       "System.Console",
		"Math":          "System.Math",
		"StringBuilder": tBuilder,
	}
}

// Key identifies a host member for native binding: "Type::Name(P1,P2)".
func Key(typeName, member string, params []string) string {
	var sb strings.Builder
	sb.WriteString(typeName)
	sb.WriteString("::")
	sb.WriteString(member)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(params, ","))
	sb.WriteByte(')')
	return sb.String()
}
