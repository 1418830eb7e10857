package codegen

import (
	"ilforge/internal/ast"
	"ilforge/internal/diag"
	"ilforge/internal/symbols"
	"ilforge/internal/trace"
	"ilforge/internal/typesys"
)

const (
	classAttrs    = typesys.TypePublic | typesys.TypeBeforeFieldInit
	delegateAttrs = typesys.TypePublic | typesys.TypeSealed
	methodAttrs   = typesys.MethodPublic | typesys.MethodHideBySig
	invokeAttrs   = typesys.MethodPublic | typesys.MethodHideBySig | typesys.MethodNewSlot | typesys.MethodVirtual

	entryPointName = "Main"
)

// declare defines every type first and their members second, so member
// signatures may name any declared type.
func (d *driver) declare() error {
	if err := d.store.BeginDeclarations(); err != nil {
		return err
	}
	for _, dd := range d.prog.Delegates {
		if err := d.defineType(&typeDecl{name: dd.Name, delegate: dd}, delegateAttrs, d.prims.mcd); err != nil {
			return err
		}
	}
	for _, cd := range d.prog.Classes {
		if err := d.defineType(&typeDecl{name: cd.Name, class: cd}, classAttrs, nil); err != nil {
			return err
		}
	}
	for _, td := range d.types {
		span := trace.Begin(trace.FromContext(d.ctx), trace.ScopeType, td.name, trace.CurrentSpan(d.ctx))
		var err error
		if td.delegate != nil {
			err = d.declareDelegate(td)
		} else {
			err = d.declareClass(td)
		}
		if err != nil {
			span.End("failed")
			return err
		}
		span.End("")
	}
	return d.findEntryPoint()
}

func (d *driver) defineType(td *typeDecl, attrs typesys.TypeAttributes, base typesys.Type) error {
	if td.name == "" {
		return diag.Errorf(diag.ShapeUnsupportedNode, "type declaration without a name")
	}
	if d.store.HasType(td.name) {
		return diag.Errorf(diag.ShapeDuplicateType, "type %q is already defined", td.name)
	}
	tb, err := d.mod.DefineType(td.name, attrs, base)
	if err != nil {
		return err
	}
	if err := d.store.RegisterUserType(tb); err != nil {
		return err
	}
	td.tb = tb
	d.types = append(d.types, td)
	return nil
}

// resolveReturn treats an empty return type as void.
func (d *driver) resolveReturn(name string) (typesys.Type, error) {
	if name == "" {
		return d.prims.void, nil
	}
	return d.store.Lookup(name)
}

func (d *driver) resolveParams(params []ast.Param) ([]typesys.Type, error) {
	types := make([]typesys.Type, len(params))
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if seen[p.Name] {
			return nil, diag.Errorf(diag.ShapeDuplicateLocal, "parameter %q is declared twice", p.Name)
		}
		seen[p.Name] = true
		t, err := d.store.Lookup(p.Type)
		if err != nil {
			return nil, err
		}
		if typesys.IsVoid(t) {
			return nil, diag.Errorf(diag.TypeVoidValue, "parameter %q cannot be void", p.Name)
		}
		types[i] = t
	}
	return types, nil
}

type parameterNamer interface {
	DefineParameter(position int, name string) error
}

func nameParams(b parameterNamer, params []ast.Param) error {
	for i, p := range params {
		if err := b.DefineParameter(i+1, p.Name); err != nil {
			return err
		}
	}
	return nil
}

// declareDelegate defines the runtime-implemented (object, native int)
// constructor and the Invoke method of a delegate type.
func (d *driver) declareDelegate(td *typeDecl) error {
	dd := td.delegate
	ret, err := d.resolveReturn(dd.Return)
	if err != nil {
		return err
	}
	params, err := d.resolveParams(dd.Params)
	if err != nil {
		return err
	}

	ctor, err := td.tb.DefineConstructor(methodAttrs, []typesys.Type{d.prims.object, d.prims.nint})
	if err != nil {
		return err
	}
	if err := nameParams(ctor, []ast.Param{{Name: "object"}, {Name: "method"}}); err != nil {
		return err
	}
	if err := ctor.SetImplementationFlags(typesys.ImplRuntime); err != nil {
		return err
	}
	invoke, err := td.tb.DefineMethod(typesys.InvokeName, invokeAttrs, ret, params)
	if err != nil {
		return err
	}
	if err := nameParams(invoke, dd.Params); err != nil {
		return err
	}
	if err := invoke.SetImplementationFlags(typesys.ImplRuntime); err != nil {
		return err
	}
	if err := d.store.RegisterConstructor(ctor); err != nil {
		return err
	}
	if err := d.store.RegisterMethod(invoke); err != nil {
		return err
	}
	td.thunk = &symbols.Delegate{
		Type:   td.tb,
		Return: ret,
		Params: params,
		Ctor:   ctor,
		Invoke: invoke,
	}
	return nil
}

func (d *driver) declareClass(td *typeDecl) error {
	cd := td.class
	for _, fd := range cd.Fields {
		if err := d.declareField(td, fd); err != nil {
			return err
		}
	}

	ctors := cd.Ctors
	if len(ctors) == 0 {
		ctors = []*ast.CtorDecl{{}}
	}
	for _, c := range ctors {
		params, err := d.resolveParams(c.Params)
		if err != nil {
			return err
		}
		cb, err := td.tb.DefineConstructor(methodAttrs, params)
		if err != nil {
			return err
		}
		if err := nameParams(cb, c.Params); err != nil {
			return err
		}
		if err := d.store.RegisterConstructor(cb); err != nil {
			return err
		}
		td.members = append(td.members, &member{
			owner:  td,
			name:   typesys.CtorName,
			ctor:   true,
			ret:    d.prims.void,
			params: c.Params,
			types:  params,
			body:   c.Body,
			info:   cb,
			il:     cb.ILGenerator(),
		})
	}

	for _, md := range cd.Methods {
		ret, err := d.resolveReturn(md.Return)
		if err != nil {
			return err
		}
		params, err := d.resolveParams(md.Params)
		if err != nil {
			return err
		}
		attrs := methodAttrs
		if md.Static {
			attrs |= typesys.MethodStatic
		}
		mb, err := td.tb.DefineMethod(md.Name, attrs, ret, params)
		if err != nil {
			return err
		}
		if err := nameParams(mb, md.Params); err != nil {
			return err
		}
		if err := d.store.RegisterMethod(mb); err != nil {
			return err
		}
		td.members = append(td.members, &member{
			owner:  td,
			name:   md.Name,
			static: md.Static,
			ret:    ret,
			params: md.Params,
			types:  params,
			body:   md.Body,
			info:   mb,
			il:     mb.ILGenerator(),
		})
	}
	return nil
}

func (d *driver) declareField(td *typeDecl, fd *ast.FieldDecl) error {
	t, err := d.store.Lookup(fd.Type)
	if err != nil {
		return err
	}
	if typesys.IsVoid(t) {
		return diag.Errorf(diag.TypeVoidValue, "field %s::%s cannot be void", td.name, fd.Name)
	}
	attrs := typesys.FieldPublic
	if fd.Static {
		if fd.Init != nil {
			return diag.Errorf(diag.ShapeStaticFieldInit, "static field %s::%s has an initializer", td.name, fd.Name)
		}
		attrs |= typesys.FieldStatic
	}
	fb, err := td.tb.DefineField(fd.Name, t, attrs)
	if err != nil {
		return err
	}
	if err := d.store.RegisterField(fb); err != nil {
		return err
	}
	if fd.Init != nil {
		td.fieldInits = append(td.fieldInits, fieldInit{field: fb, init: fd.Init})
	}
	return nil
}

// findEntryPoint picks the static Main method. It must take no parameters
// and return void or int; a second candidate is an error.
func (d *driver) findEntryPoint() error {
	for _, td := range d.types {
		for _, m := range td.members {
			if m.ctor || !m.static || m.name != entryPointName {
				continue
			}
			if len(m.types) != 0 || !(typesys.IsVoid(m.ret) || typesys.Equal(m.ret, d.prims.int32)) {
				return diag.Errorf(diag.ShapeInvalidEntryPoint, "%s::%s must take no parameters and return void or int",
					td.name, typesys.Signature(m.name, m.types))
			}
			mi, ok := m.info.(typesys.MethodInfo)
			if !ok {
				continue
			}
			if d.entry != nil {
				return diag.Errorf(diag.ShapeMultipleEntries, "entry point %s::%s conflicts with %s::%s",
					td.name, m.name, d.entry.DeclaringType().Name(), d.entry.Name())
			}
			if err := d.mod.SetEntryPoint(mi); err != nil {
				return err
			}
			d.entry = mi
		}
	}
	return nil
}
