package ast

import "fmt"

type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtReturn
	StmtLocal
	StmtAssign
	StmtExpr
	StmtBaseCtor
	StmtWhile
	StmtIf
)

func (k StmtKind) String() string {
	switch k {
	case StmtReturn:
		return "return"
	case StmtLocal:
		return "local"
	case StmtAssign:
		return "assign"
	case StmtExpr:
		return "expr"
	case StmtBaseCtor:
		return "basector"
	case StmtWhile:
		return "while"
	case StmtIf:
		return "if"
	default:
		return fmt.Sprintf("StmtKind(%d)", k)
	}
}

// Stmt is any statement node.
type Stmt interface {
	Kind() StmtKind
	stmtNode()
}

type (
	// Return leaves the method; Value is nil in void methods.
	Return struct{ Value Expr }

	// LocalDecl declares a local. Type may be empty when Init is present.
	LocalDecl struct {
		Name string
		Type string
		Init Expr
	}

	// Assign stores Value into Target.
	Assign struct {
		Target Expr
		Value  Expr
	}

	// ExprStmt evaluates X for its side effects; X must produce no value.
	ExprStmt struct{ X Expr }

	// BaseCtorCall invokes the parameterless base constructor.
	BaseCtorCall struct{}

	// While loops while Cond holds.
	While struct {
		Cond Expr
		Body []Stmt
	}

	// If runs Then when Cond holds, Else otherwise.
	If struct {
		Cond Expr
		Then []Stmt
		Else []Stmt
	}
)

func (*Return) Kind() StmtKind       { return StmtReturn }
func (*LocalDecl) Kind() StmtKind    { return StmtLocal }
func (*Assign) Kind() StmtKind       { return StmtAssign }
func (*ExprStmt) Kind() StmtKind     { return StmtExpr }
func (*BaseCtorCall) Kind() StmtKind { return StmtBaseCtor }
func (*While) Kind() StmtKind        { return StmtWhile }
func (*If) Kind() StmtKind           { return StmtIf }

func (*Return) stmtNode()       {}
func (*LocalDecl) stmtNode()    {}
func (*Assign) stmtNode()       {}
func (*ExprStmt) stmtNode()     {}
func (*BaseCtorCall) stmtNode() {}
func (*While) stmtNode()        {}
func (*If) stmtNode()           {}
