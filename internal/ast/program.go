package ast

// Program is the root of a syntax tree.
type Program struct {
	Classes   []*ClassDecl
	Delegates []*DelegateDecl
}

// ClassDecl declares a reference type.
type ClassDecl struct {
	Name    string
	Fields  []*FieldDecl
	Ctors   []*CtorDecl
	Methods []*MethodDecl
}

// FieldDecl declares a field. Init is nil when there is no initializer.
type FieldDecl struct {
	Name   string
	Type   string
	Static bool
	Init   Expr
}

// Param is a named, typed parameter.
type Param struct {
	Name string
	Type string
}

// MethodDecl declares a method.
type MethodDecl struct {
	Name   string
	Static bool
	Return string
	Params []Param
	Body   []Stmt
}

// CtorDecl declares an instance constructor.
type CtorDecl struct {
	Params []Param
	Body   []Stmt
}

// DelegateDecl declares a delegate type with one Invoke signature.
type DelegateDecl struct {
	Name   string
	Return string
	Params []Param
}

// FindClass returns the class called name, or nil.
func (p *Program) FindClass(name string) *ClassDecl {
	if p == nil {
		return nil
	}
	for _, c := range p.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}
