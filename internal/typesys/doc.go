// Package typesys is the backend-independent type system used by the code
// generator.
//
// It is a closed set of capability interfaces: "a type" (Type), "a member"
// (FieldInfo, MethodInfo, ConstructorInfo), their mutable builder variants,
// and "an instruction sink" (ILGenerator with LocalSlot and Label). A
// ModuleBuilder hands out TypeBuilders and the host-provided types of its
// runtime.
//
// A builder IS-A type: the TypeBuilder returned by DefineType is the same
// object that later appears as a parameter or field type, so clients never
// need to swap a placeholder for a finished type.
//
// Besides the interfaces the package owns the parts of the contract both
// backends must agree on: the opcode table, the short-form encoding rule for
// locals, arguments and integer constants (EncodeLocal, EncodeArg,
// EncodeInt), and the per-opcode stack effect.
package typesys
