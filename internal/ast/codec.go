package ast

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Current interchange schema; bump when the wire layout changes.
const wireSchemaVersion uint16 = 1

type wireProgram struct {
	Schema    uint16         `msgpack:"schema" json:"schema"`
	Classes   []wireClass    `msgpack:"classes,omitempty" json:"classes,omitempty"`
	Delegates []wireDelegate `msgpack:"delegates,omitempty" json:"delegates,omitempty"`
}

type wireClass struct {
	Name    string       `msgpack:"name" json:"name"`
	Fields  []wireField  `msgpack:"fields,omitempty" json:"fields,omitempty"`
	Ctors   []wireMethod `msgpack:"ctors,omitempty" json:"ctors,omitempty"`
	Methods []wireMethod `msgpack:"methods,omitempty" json:"methods,omitempty"`
}

type wireField struct {
	Name   string    `msgpack:"name" json:"name"`
	Type   string    `msgpack:"type" json:"type"`
	Static bool      `msgpack:"static,omitempty" json:"static,omitempty"`
	Init   *wireNode `msgpack:"init,omitempty" json:"init,omitempty"`
}

type wireParam struct {
	Name string `msgpack:"name" json:"name"`
	Type string `msgpack:"type" json:"type"`
}

type wireMethod struct {
	Name   string      `msgpack:"name,omitempty" json:"name,omitempty"`
	Static bool        `msgpack:"static,omitempty" json:"static,omitempty"`
	Return string      `msgpack:"ret,omitempty" json:"ret,omitempty"`
	Params []wireParam `msgpack:"params,omitempty" json:"params,omitempty"`
	Body   []*wireNode `msgpack:"body,omitempty" json:"body,omitempty"`
}

type wireDelegate struct {
	Name   string      `msgpack:"name" json:"name"`
	Return string      `msgpack:"ret" json:"ret"`
	Params []wireParam `msgpack:"params,omitempty" json:"params,omitempty"`
}

// wireNode is the flat envelope for every expression and statement.
// Which fields are meaningful depends on Kind.
type wireNode struct {
	Kind   string      `msgpack:"k" json:"k"`
	Name   string      `msgpack:"n,omitempty" json:"n,omitempty"`
	Type   string      `msgpack:"t,omitempty" json:"t,omitempty"`
	Int    int32       `msgpack:"i,omitempty" json:"i,omitempty"`
	Str    string      `msgpack:"s,omitempty" json:"s,omitempty"`
	Bool   bool        `msgpack:"b,omitempty" json:"b,omitempty"`
	Op     string      `msgpack:"o,omitempty" json:"o,omitempty"`
	Target *wireNode   `msgpack:"x,omitempty" json:"x,omitempty"`
	Left   *wireNode   `msgpack:"l,omitempty" json:"l,omitempty"`
	Right  *wireNode   `msgpack:"r,omitempty" json:"r,omitempty"`
	Args   []*wireNode `msgpack:"a,omitempty" json:"a,omitempty"`
	Body   []*wireNode `msgpack:"body,omitempty" json:"body,omitempty"`
	Else   []*wireNode `msgpack:"else,omitempty" json:"else,omitempty"`
}

// EncodeMsgpack writes p in the binary interchange format.
func EncodeMsgpack(w io.Writer, p *Program) error {
	wp, err := toWire(p)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(wp)
}

// DecodeMsgpack reads a program written by EncodeMsgpack.
func DecodeMsgpack(r io.Reader) (*Program, error) {
	var wp wireProgram
	if err := msgpack.NewDecoder(r).Decode(&wp); err != nil {
		return nil, fmt.Errorf("decode syntax tree: %w", err)
	}
	return fromWire(&wp)
}

// EncodeJSON writes p as indented JSON.
func EncodeJSON(w io.Writer, p *Program) error {
	wp, err := toWire(p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wp)
}

// DecodeJSON reads a program written by EncodeJSON.
func DecodeJSON(r io.Reader) (*Program, error) {
	var wp wireProgram
	if err := json.NewDecoder(r).Decode(&wp); err != nil {
		return nil, fmt.Errorf("decode syntax tree: %w", err)
	}
	return fromWire(&wp)
}

func toWire(p *Program) (*wireProgram, error) {
	wp := &wireProgram{Schema: wireSchemaVersion}
	if p == nil {
		return wp, nil
	}
	for _, d := range p.Delegates {
		wp.Delegates = append(wp.Delegates, wireDelegate{Name: d.Name, Return: d.Return, Params: paramsToWire(d.Params)})
	}
	for _, c := range p.Classes {
		wc := wireClass{Name: c.Name}
		for _, f := range c.Fields {
			init, err := exprToWire(f.Init)
			if err != nil {
				return nil, err
			}
			wc.Fields = append(wc.Fields, wireField{Name: f.Name, Type: f.Type, Static: f.Static, Init: init})
		}
		for _, ctor := range c.Ctors {
			body, err := stmtsToWire(ctor.Body)
			if err != nil {
				return nil, err
			}
			wc.Ctors = append(wc.Ctors, wireMethod{Params: paramsToWire(ctor.Params), Body: body})
		}
		for _, m := range c.Methods {
			body, err := stmtsToWire(m.Body)
			if err != nil {
				return nil, err
			}
			wc.Methods = append(wc.Methods, wireMethod{
				Name: m.Name, Static: m.Static, Return: m.Return,
				Params: paramsToWire(m.Params), Body: body,
			})
		}
		wp.Classes = append(wp.Classes, wc)
	}
	return wp, nil
}

func fromWire(wp *wireProgram) (*Program, error) {
	if wp.Schema != wireSchemaVersion {
		return nil, fmt.Errorf("unsupported syntax tree schema %d (want %d)", wp.Schema, wireSchemaVersion)
	}
	p := &Program{}
	for _, d := range wp.Delegates {
		p.Delegates = append(p.Delegates, &DelegateDecl{Name: d.Name, Return: d.Return, Params: paramsFromWire(d.Params)})
	}
	for _, wc := range wp.Classes {
		c := &ClassDecl{Name: wc.Name}
		for _, f := range wc.Fields {
			init, err := exprFromWire(f.Init)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", wc.Name, f.Name, err)
			}
			c.Fields = append(c.Fields, &FieldDecl{Name: f.Name, Type: f.Type, Static: f.Static, Init: init})
		}
		for _, wm := range wc.Ctors {
			body, err := stmtsFromWire(wm.Body)
			if err != nil {
				return nil, fmt.Errorf("%s..ctor: %w", wc.Name, err)
			}
			c.Ctors = append(c.Ctors, &CtorDecl{Params: paramsFromWire(wm.Params), Body: body})
		}
		for _, wm := range wc.Methods {
			body, err := stmtsFromWire(wm.Body)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", wc.Name, wm.Name, err)
			}
			c.Methods = append(c.Methods, &MethodDecl{
				Name: wm.Name, Static: wm.Static, Return: wm.Return,
				Params: paramsFromWire(wm.Params), Body: body,
			})
		}
		p.Classes = append(p.Classes, c)
	}
	return p, nil
}

func paramsToWire(ps []Param) []wireParam {
	if len(ps) == 0 {
		return nil
	}
	out := make([]wireParam, len(ps))
	for i, prm := range ps {
		out[i] = wireParam(prm)
	}
	return out
}

func paramsFromWire(ps []wireParam) []Param {
	if len(ps) == 0 {
		return nil
	}
	out := make([]Param, len(ps))
	for i, prm := range ps {
		out[i] = Param(prm)
	}
	return out
}

func exprsToWire(es []Expr) ([]*wireNode, error) {
	if len(es) == 0 {
		return nil, nil
	}
	out := make([]*wireNode, 0, len(es))
	for _, e := range es {
		n, err := exprToWire(e)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func exprToWire(e Expr) (*wireNode, error) {
	if e == nil {
		return nil, nil
	}
	n := &wireNode{Kind: e.Kind().String()}
	var err error
	switch e := e.(type) {
	case *IntLit:
		n.Int = e.Value
	case *StringLit:
		n.Str = e.Value
	case *BoolLit:
		n.Bool = e.Value
	case *NullLit, *This:
	case *Ident:
		n.Name = e.Name
	case *Member:
		n.Name = e.Name
		n.Target, err = exprToWire(e.Target)
	case *Index:
		if n.Left, err = exprToWire(e.Array); err == nil {
			n.Right, err = exprToWire(e.Index)
		}
	case *Binary:
		n.Op = e.Op.String()
		if n.Left, err = exprToWire(e.Left); err == nil {
			n.Right, err = exprToWire(e.Right)
		}
	case *Unary:
		n.Op = e.Op.String()
		n.Left, err = exprToWire(e.Operand)
	case *Call:
		n.Name = e.Name
		if n.Target, err = exprToWire(e.Target); err == nil {
			n.Args, err = exprsToWire(e.Args)
		}
	case *New:
		n.Type = e.Type
		n.Args, err = exprsToWire(e.Args)
	case *NewArray:
		n.Type = e.Elem
		n.Left, err = exprToWire(e.Size)
	case *MethodRef:
		n.Name = e.Name
		n.Type = e.Delegate
		n.Target, err = exprToWire(e.Target)
	default:
		return nil, fmt.Errorf("unsupported expression node %T", e)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func exprsFromWire(ns []*wireNode) ([]Expr, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	out := make([]Expr, 0, len(ns))
	for _, n := range ns {
		e, err := exprFromWire(n)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, fmt.Errorf("missing expression")
		}
		out = append(out, e)
	}
	return out, nil
}

func exprFromWire(n *wireNode) (Expr, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case ExprInt.String():
		return &IntLit{Value: n.Int}, nil
	case ExprString.String():
		return &StringLit{Value: n.Str}, nil
	case ExprBool.String():
		return &BoolLit{Value: n.Bool}, nil
	case ExprNull.String():
		return &NullLit{}, nil
	case ExprThis.String():
		return &This{}, nil
	case ExprIdent.String():
		return &Ident{Name: n.Name}, nil
	case ExprMember.String():
		target, err := exprFromWire(n.Target)
		if err != nil {
			return nil, err
		}
		return &Member{Target: target, Name: n.Name}, nil
	case ExprIndex.String():
		arr, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		idx, err := exprFromWire(n.Right)
		if err != nil {
			return nil, err
		}
		return &Index{Array: arr, Index: idx}, nil
	case ExprBinary.String():
		op, ok := ParseBinaryOp(n.Op)
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", n.Op)
		}
		left, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := exprFromWire(n.Right)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, Left: left, Right: right}, nil
	case ExprUnary.String():
		op, ok := ParseUnaryOp(n.Op)
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", n.Op)
		}
		operand, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	case ExprCall.String():
		target, err := exprFromWire(n.Target)
		if err != nil {
			return nil, err
		}
		args, err := exprsFromWire(n.Args)
		if err != nil {
			return nil, err
		}
		return &Call{Target: target, Name: n.Name, Args: args}, nil
	case ExprNew.String():
		args, err := exprsFromWire(n.Args)
		if err != nil {
			return nil, err
		}
		return &New{Type: n.Type, Args: args}, nil
	case ExprNewArray.String():
		size, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		return &NewArray{Elem: n.Type, Size: size}, nil
	case ExprMethodRef.String():
		target, err := exprFromWire(n.Target)
		if err != nil {
			return nil, err
		}
		return &MethodRef{Target: target, Name: n.Name, Delegate: n.Type}, nil
	}
	return nil, fmt.Errorf("unknown expression kind %q", n.Kind)
}

func stmtsToWire(ss []Stmt) ([]*wireNode, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]*wireNode, 0, len(ss))
	for _, s := range ss {
		n, err := stmtToWire(s)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func stmtToWire(s Stmt) (*wireNode, error) {
	if s == nil {
		return nil, fmt.Errorf("nil statement")
	}
	n := &wireNode{Kind: s.Kind().String()}
	var err error
	switch s := s.(type) {
	case *Return:
		n.Left, err = exprToWire(s.Value)
	case *LocalDecl:
		n.Name = s.Name
		n.Type = s.Type
		n.Left, err = exprToWire(s.Init)
	case *Assign:
		if n.Left, err = exprToWire(s.Target); err == nil {
			n.Right, err = exprToWire(s.Value)
		}
	case *ExprStmt:
		n.Left, err = exprToWire(s.X)
	case *BaseCtorCall:
	case *While:
		if n.Left, err = exprToWire(s.Cond); err == nil {
			n.Body, err = stmtsToWire(s.Body)
		}
	case *If:
		if n.Left, err = exprToWire(s.Cond); err == nil {
			if n.Body, err = stmtsToWire(s.Then); err == nil {
				n.Else, err = stmtsToWire(s.Else)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported statement node %T", s)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func stmtsFromWire(ns []*wireNode) ([]Stmt, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	out := make([]Stmt, 0, len(ns))
	for _, n := range ns {
		s, err := stmtFromWire(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func stmtFromWire(n *wireNode) (Stmt, error) {
	if n == nil {
		return nil, fmt.Errorf("missing statement")
	}
	switch n.Kind {
	case StmtReturn.String():
		value, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		return &Return{Value: value}, nil
	case StmtLocal.String():
		init, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		return &LocalDecl{Name: n.Name, Type: n.Type, Init: init}, nil
	case StmtAssign.String():
		target, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		value, err := exprFromWire(n.Right)
		if err != nil {
			return nil, err
		}
		return &Assign{Target: target, Value: value}, nil
	case StmtExpr.String():
		x, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{X: x}, nil
	case StmtBaseCtor.String():
		return &BaseCtorCall{}, nil
	case StmtWhile.String():
		cond, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		body, err := stmtsFromWire(n.Body)
		if err != nil {
			return nil, err
		}
		return &While{Cond: cond, Body: body}, nil
	case StmtIf.String():
		cond, err := exprFromWire(n.Left)
		if err != nil {
			return nil, err
		}
		then, err := stmtsFromWire(n.Body)
		if err != nil {
			return nil, err
		}
		els, err := stmtsFromWire(n.Else)
		if err != nil {
			return nil, err
		}
		return &If{Cond: cond, Then: then, Else: els}, nil
	}
	return nil, fmt.Errorf("unknown statement kind %q", n.Kind)
}
