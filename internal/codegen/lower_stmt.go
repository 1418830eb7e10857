package codegen

import (
	"ilforge/internal/ast"
	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

func (l *lowerer) stmt(st ast.Stmt) error {
	switch st := st.(type) {
	case *ast.Return:
		return l.returnStmt(st)
	case *ast.LocalDecl:
		return l.localDecl(st)
	case *ast.Assign:
		return l.assign(st)
	case *ast.ExprStmt:
		v, err := l.lower(st.X, nil, false)
		if err != nil {
			return err
		}
		if !typesys.IsVoid(v.typ) {
			return diag.Errorf(diag.ShapeStrayValue, "expression statement leaves a %s value on the stack", typesys.TypeName(v.typ))
		}
		return nil
	case *ast.BaseCtorCall:
		if !l.m.ctor {
			return diag.Errorf(diag.ShapeUnsupportedNode, "base constructor call outside a constructor")
		}
		return l.baseCall()
	case *ast.While:
		return l.while(st)
	case *ast.If:
		return l.ifStmt(st)
	case nil:
		return diag.Errorf(diag.ShapeUnsupportedNode, "missing statement")
	default:
		return diag.Errorf(diag.ShapeUnsupportedNode, "unsupported statement %s", st.Kind())
	}
}

func (l *lowerer) returnStmt(st *ast.Return) error {
	ret := l.m.ret
	if st.Value == nil {
		if !typesys.IsVoid(ret) {
			return diag.Errorf(diag.TypeMismatch, "return without a value in %s returning %s", l.m.name, ret.Name())
		}
		return l.il.Emit(typesys.OpRet)
	}
	if typesys.IsVoid(ret) {
		return diag.Errorf(diag.TypeMismatch, "void %s returns a value", l.m.name)
	}
	t, err := l.rvalue(st.Value, ret)
	if err != nil {
		return err
	}
	if err := l.expect(ret, t, "return value"); err != nil {
		return err
	}
	return l.il.Emit(typesys.OpRet)
}

// localDecl checks the initializer against a declared type or infers the
// type from it. The slot is allocated after the initializer so it cannot
// refer to itself.
func (l *lowerer) localDecl(st *ast.LocalDecl) error {
	if l.declared(st.Name) {
		return diag.Errorf(diag.ShapeDuplicateLocal, "%q is already declared in %s", st.Name, l.m.name)
	}
	var typ typesys.Type
	if st.Type != "" {
		t, err := l.store.Lookup(st.Type)
		if err != nil {
			return err
		}
		if typesys.IsVoid(t) {
			return diag.Errorf(diag.TypeVoidValue, "local %q cannot be void", st.Name)
		}
		typ = t
	}
	if st.Init == nil {
		if typ == nil {
			return diag.Errorf(diag.TypeCannotInfer, "local %q has neither a type nor an initializer", st.Name)
		}
		_, err := l.declareLocal(st.Name, typ)
		return err
	}

	t, err := l.rvalue(st.Init, typ)
	if err != nil {
		return err
	}
	if typ == nil {
		switch {
		case t == nil:
			return diag.Errorf(diag.TypeCannotInfer, "cannot infer the type of %q from null", st.Name)
		case typesys.IsVoid(t):
			return diag.Errorf(diag.TypeVoidValue, "initializer of %q has no value", st.Name)
		}
		typ = t
	} else if err := l.expect(typ, t, "initializer of "+st.Name); err != nil {
		return err
	}
	slot, err := l.declareLocal(st.Name, typ)
	if err != nil {
		return err
	}
	return l.il.EmitLocal(typesys.OpStloc, slot)
}

func (l *lowerer) assign(st *ast.Assign) error {
	act, lt, err := l.place(st.Target)
	if err != nil {
		return err
	}
	rt, err := l.rvalue(st.Value, lt)
	if err != nil {
		return err
	}
	if err := l.expect(lt, rt, "assignment"); err != nil {
		return err
	}
	return l.emitStore(act)
}

func (l *lowerer) condition(e ast.Expr) error {
	t, err := l.rvalue(e, l.prims.boolean)
	if err != nil {
		return err
	}
	if !typesys.Equal(t, l.prims.boolean) {
		return diag.Errorf(diag.TypeNotBool, "condition is %s", typesys.TypeName(t))
	}
	return nil
}

// while emits: br test; body: ...; test: cond; brtrue body. The first jump
// goes to the test, so the body may run zero times.
func (l *lowerer) while(st *ast.While) error {
	body, err := l.il.DefineLabel()
	if err != nil {
		return err
	}
	test, err := l.il.DefineLabel()
	if err != nil {
		return err
	}
	if err := l.il.EmitLabel(typesys.OpBr, test); err != nil {
		return err
	}
	if err := l.il.MarkLabel(body); err != nil {
		return err
	}
	if err := l.block(st.Body); err != nil {
		return err
	}
	if err := l.il.MarkLabel(test); err != nil {
		return err
	}
	if err := l.condition(st.Cond); err != nil {
		return err
	}
	return l.il.EmitLabel(typesys.OpBrtrue, body)
}

// ifStmt emits: cond; brfalse else; then...; br end; else: ...; end:.
func (l *lowerer) ifStmt(st *ast.If) error {
	elseLabel, err := l.il.DefineLabel()
	if err != nil {
		return err
	}
	end, err := l.il.DefineLabel()
	if err != nil {
		return err
	}
	if err := l.condition(st.Cond); err != nil {
		return err
	}
	if err := l.il.EmitLabel(typesys.OpBrfalse, elseLabel); err != nil {
		return err
	}
	if err := l.block(st.Then); err != nil {
		return err
	}
	if err := l.il.EmitLabel(typesys.OpBr, end); err != nil {
		return err
	}
	if err := l.il.MarkLabel(elseLabel); err != nil {
		return err
	}
	if err := l.block(st.Else); err != nil {
		return err
	}
	return l.il.MarkLabel(end)
}
