package ast

import "fmt"

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprInt
	ExprString
	ExprBool
	ExprNull
	ExprThis
	ExprIdent
	ExprMember
	ExprIndex
	ExprBinary
	ExprUnary
	ExprCall
	ExprNew
	ExprNewArray
	ExprMethodRef
)

func (k ExprKind) String() string {
	switch k {
	case ExprInt:
		return "int"
	case ExprString:
		return "string"
	case ExprBool:
		return "bool"
	case ExprNull:
		return "null"
	case ExprThis:
		return "this"
	case ExprIdent:
		return "ident"
	case ExprMember:
		return "member"
	case ExprIndex:
		return "index"
	case ExprBinary:
		return "binary"
	case ExprUnary:
		return "unary"
	case ExprCall:
		return "call"
	case ExprNew:
		return "new"
	case ExprNewArray:
		return "newarr"
	case ExprMethodRef:
		return "methodref"
	default:
		return fmt.Sprintf("ExprKind(%d)", k)
	}
}

// Expr is any expression node.
type Expr interface {
	Kind() ExprKind
	exprNode()
}

type (
	// IntLit is a 32-bit integer constant.
	IntLit struct{ Value int32 }
	// StringLit is a string constant.
	StringLit struct{ Value string }
	// BoolLit is a boolean constant.
	BoolLit struct{ Value bool }
	// NullLit is the null constant; it has no type of its own.
	NullLit struct{}
	// This is the receiver of an instance member.
	This struct{}

	// Ident names a local, parameter, field, type, or method group.
	Ident struct{ Name string }

	// Member is Target.Name used as a field access (or array Length).
	Member struct {
		Target Expr
		Name   string
	}

	// Index is Array[Index].
	Index struct {
		Array Expr
		Index Expr
	}

	// Binary is Left Op Right.
	Binary struct {
		Op    BinaryOp
		Left  Expr
		Right Expr
	}

	// Unary is Op Operand.
	Unary struct {
		Op      UnaryOp
		Operand Expr
	}

	// Call is Target.Name(Args...). Target is nil for calls on the
	// enclosing type.
	Call struct {
		Target Expr
		Name   string
		Args   []Expr
	}

	// New is new Type(Args...).
	New struct {
		Type string
		Args []Expr
	}

	// NewArray is newarr Elem(Size).
	NewArray struct {
		Elem string
		Size Expr
	}

	// MethodRef takes Target.Name as a delegate value. Target is nil for a
	// bare method name; Delegate names the delegate type when the context
	// does not supply one.
	MethodRef struct {
		Target   Expr
		Name     string
		Delegate string
	}
)

func (*IntLit) Kind() ExprKind    { return ExprInt }
func (*StringLit) Kind() ExprKind { return ExprString }
func (*BoolLit) Kind() ExprKind   { return ExprBool }
func (*NullLit) Kind() ExprKind   { return ExprNull }
func (*This) Kind() ExprKind      { return ExprThis }
func (*Ident) Kind() ExprKind     { return ExprIdent }
func (*Member) Kind() ExprKind    { return ExprMember }
func (*Index) Kind() ExprKind     { return ExprIndex }
func (*Binary) Kind() ExprKind    { return ExprBinary }
func (*Unary) Kind() ExprKind     { return ExprUnary }
func (*Call) Kind() ExprKind      { return ExprCall }
func (*New) Kind() ExprKind       { return ExprNew }
func (*NewArray) Kind() ExprKind  { return ExprNewArray }
func (*MethodRef) Kind() ExprKind { return ExprMethodRef }

func (*IntLit) exprNode()    {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*NullLit) exprNode()   {}
func (*This) exprNode()      {}
func (*Ident) exprNode()     {}
func (*Member) exprNode()    {}
func (*Index) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Unary) exprNode()     {}
func (*Call) exprNode()      {}
func (*New) exprNode()       {}
func (*NewArray) exprNode()  {}
func (*MethodRef) exprNode() {}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	OpInvalid BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

var binaryOpNames = [...]string{
	OpInvalid: "?",
	OpAdd:     "+",
	OpSub:     "-",
	OpMul:     "*",
	OpDiv:     "/",
	OpRem:     "%",
	OpAnd:     "&",
	OpOr:      "|",
	OpEq:      "==",
	OpNe:      "!=",
	OpLt:      "<",
	OpGt:      ">",
	OpLe:      "<=",
	OpGe:      ">=",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// IsComparison reports whether op yields a boolean.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// ParseBinaryOp maps a spelling back to its operator.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, name := range binaryOpNames {
		if i > 0 && name == s {
			return BinaryOp(i), true
		}
	}
	return OpInvalid, false
}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnaryInvalid UnaryOp = iota
	UnaryNeg
	UnaryNot
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNeg:
		return "-"
	case UnaryNot:
		return "!"
	default:
		return "?"
	}
}

// ParseUnaryOp maps a spelling back to its operator.
func ParseUnaryOp(s string) (UnaryOp, bool) {
	switch s {
	case "-":
		return UnaryNeg, true
	case "!":
		return UnaryNot, true
	}
	return UnaryInvalid, false
}
