// Package codegen lowers a syntax tree into any typesys.ModuleBuilder.
//
// A compilation runs five passes in order:
//
//	builtins  import the backend's host types and source aliases
//	declare   define every delegate and class with all its members
//	thunks    record delegate descriptors, then freeze the symbol store
//	generate  emit constructor and method bodies
//	finalize  seal every type (delegates first)
//
// Bodies are generated only after every member placeholder exists, so a body
// may refer to any type or member regardless of declaration order. The first
// error aborts the compilation; no partially built module is returned.
package codegen
