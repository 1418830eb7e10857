// Package diag defines the error taxonomy shared by every code generation stage.
//
// # Purpose
//
// The code generator treats every inconsistency as terminal: there is no
// recovery and no partial output. diag gives those failures a stable,
// comparable identity so callers and tests can tell them apart without
// matching on message text.
//
// # Data model
//
// Code is a compact numeric identifier grouped by thousands:
//
//   - 1xxx: lookup failures (missing type, member, local, overload).
//   - 2xxx: type mismatches (unequal operands, wrong primitive).
//   - 3xxx: shape failures (unsupported node, stray stack value, duplicate
//     entry point, delegate signature mismatch, non-assignable lvalue).
//   - 4xxx: backend capability failures (e.g. branching on the textual
//     backend, operands that cannot be encoded).
//   - 5xxx: runtime failures raised while the dynamic backend executes code.
//
// Error wraps a Code with a message and an optional cause. Use errors.Is with
// the category sentinels (ErrLookup, ErrTypeMismatch, ErrShape, ErrBackend,
// ErrRuntime) or with a concrete &Error{Code: ...} to test for a failure class.
//
// Package diag performs no IO and no formatting beyond Error().
package diag
