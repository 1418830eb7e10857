package typesys

// Type is a fully-qualified type known to a backend.
//
// Identity is the fully-qualified name. Array types are derived from their
// element type with MakeArrayType, which must be memoized so repeated calls
// return the same object.
type Type interface {
	// Name returns the fully-qualified name, e.g. "System.Int32" or "Point[]".
	Name() string
	// Module names the module that owns the type ("mscorlib" for host types).
	Module() string
	IsValueType() bool
	IsArray() bool
	// ElementType returns the element type of an array type, nil otherwise.
	ElementType() Type
	// BaseType returns the declared base type or nil.
	BaseType() Type
	MakeArrayType() Type

	Fields(sel BindingFlags) []FieldInfo
	Methods(sel BindingFlags) []MethodInfo
	Constructors(sel BindingFlags) []ConstructorInfo

	// IsAssignableFrom reports whether a value of type other can be stored
	// in a location of this type. It never fails.
	IsAssignableFrom(other Type) bool
}

// MemberInfo is the common part of every member.
type MemberInfo interface {
	Name() string
	DeclaringType() Type
}

// FieldInfo describes a field.
type FieldInfo interface {
	MemberInfo
	FieldType() Type
	IsStatic() bool
}

// MethodBase is shared by methods and constructors.
type MethodBase interface {
	MemberInfo
	// ParameterTypes is positional and exact.
	ParameterTypes() []Type
	IsStatic() bool
}

// MethodInfo describes a method.
type MethodInfo interface {
	MethodBase
	// ReturnType is never nil; void methods return the System.Void type.
	ReturnType() Type
	IsVirtual() bool
}

// ConstructorInfo describes an instance constructor. Name is ".ctor".
type ConstructorInfo interface {
	MethodBase
	// IsConstructor is always true; it keeps methods from satisfying
	// this interface.
	IsConstructor() bool
}

// TypeBuilder is a Type that still accepts members until CreateType.
type TypeBuilder interface {
	Type
	DefineField(name string, typ Type, attrs FieldAttributes) (FieldBuilder, error)
	DefineMethod(name string, attrs MethodAttributes, ret Type, params []Type) (MethodBuilder, error)
	DefineConstructor(attrs MethodAttributes, params []Type) (ConstructorBuilder, error)
	// CreateType seals the type; any Define* call afterwards fails.
	CreateType() error
	IsCreated() bool
}

// FieldBuilder is a field of a TypeBuilder.
type FieldBuilder interface {
	FieldInfo
}

// MethodBuilder is a method of a TypeBuilder.
type MethodBuilder interface {
	MethodInfo
	// DefineParameter names the parameter at 1-based position.
	DefineParameter(position int, name string) error
	SetImplementationFlags(flags MethodImplAttributes) error
	ILGenerator() ILGenerator
}

// ConstructorBuilder is a constructor of a TypeBuilder.
type ConstructorBuilder interface {
	ConstructorInfo
	DefineParameter(position int, name string) error
	SetImplementationFlags(flags MethodImplAttributes) error
	ILGenerator() ILGenerator
}

// LocalSlot is a local variable declared on an ILGenerator.
type LocalSlot interface {
	Index() int
	LocalType() Type
}

// Label is a branch target defined on an ILGenerator.
type Label interface {
	ID() int
}

// ILGenerator is an instruction sink for one method body.
//
// Every Emit* call checks that the opcode accepts that operand kind. Generic
// local, argument and integer-constant opcodes (OpLdloc, OpStloc, OpLdarg,
// OpStarg, OpLdcI4, ...) are narrowed by the sink with EncodeLocal, EncodeArg
// and EncodeInt.
type ILGenerator interface {
	Emit(op OpCode) error
	EmitInt(op OpCode, v int32) error
	EmitString(op OpCode, s string) error
	EmitType(op OpCode, t Type) error
	EmitField(op OpCode, f FieldInfo) error
	EmitMethod(op OpCode, m MethodInfo) error
	EmitConstructor(op OpCode, c ConstructorInfo) error
	EmitLocal(op OpCode, l LocalSlot) error
	EmitArg(op OpCode, index int) error
	EmitLabel(op OpCode, l Label) error

	DeclareLocal(t Type) (LocalSlot, error)
	DefineLabel() (Label, error)
	MarkLabel(l Label) error
}

// ModuleBuilder creates user types for one output module.
type ModuleBuilder interface {
	Name() string
	// HostTypes returns the runtime's built-in types.
	HostTypes() []Type
	// Aliases maps source-level spellings ("int") to host type names.
	Aliases() map[string]string
	DefineType(name string, attrs TypeAttributes, base Type) (TypeBuilder, error)
	SetEntryPoint(m MethodInfo) error
}
