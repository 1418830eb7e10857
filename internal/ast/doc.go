// Package ast is the syntax tree consumed by the code generator.
//
// The tree is produced by the front end (tokenizer, parser, type checker),
// which is not part of this module. A Program holds ordered class and
// delegate declarations; classes hold ordered fields, constructors and
// methods. Expressions and statements form two closed node sets: each node
// type implements Expr or Stmt through an unexported marker method, so the
// lowering in internal/codegen can switch over them exhaustively.
//
// Nodes are treated as immutable once built. Type references are plain
// names ("int", "System.String", "Point", "int[]") resolved later by the
// symbol store.
//
// The package also carries the interchange codec (msgpack for .ilt files,
// JSON for hand-written fixtures) the CLI uses to read front-end output.
package ast
