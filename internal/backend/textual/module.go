// Package textual implements the type-system abstraction by writing an
// ILAsm listing. Nothing here executes code; finalizing a type appends its
// class declaration to the module's line buffer.
//
// Labels and branches are not supported: DefineLabel fails, so methods
// compiled through this backend are straight-line code.
package textual

import (
	"maps"
	"strings"

	"ilforge/internal/diag"
	"ilforge/internal/hostlib"
	"ilforge/internal/typesys"
)

// Options configure a textual module.
type Options struct {
	// Name is the assembly and module name. Defaults to "Program".
	Name string
	// Runtime names the external assembly hosting the built-in types.
	Runtime string
}

// DefaultName is the module name used when Options.Name is empty.
const DefaultName = "Program"

// Module is a textual ModuleBuilder.
type Module struct {
	name    string
	runtime string

	host   []*Type
	byName map[string]*Type
	user   []*Type
	void   *Type

	entry *Method
	lines []string
}

var _ typesys.ModuleBuilder = (*Module)(nil)

// New creates a module with the host catalog loaded and the header written.
func New(opts Options) *Module {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Runtime == "" {
		opts.Runtime = hostlib.RuntimeModule
	}
	m := &Module{
		name:    opts.Name,
		runtime: opts.Runtime,
		byName:  make(map[string]*Type),
	}
	m.loadHost(hostlib.Catalog())
	m.lines = append(m.lines,
		".assembly extern "+m.runtime+" {}",
		".assembly "+m.name+" {}",
		".module "+m.name+".exe",
	)
	return m
}

func (m *Module) loadHost(catalog []hostlib.TypeDesc) {
	for _, d := range catalog {
		t := &Type{mod: m, name: d.Name, module: m.runtime, valueType: d.ValueType, created: true}
		m.host = append(m.host, t)
		m.byName[d.Name] = t
	}
	m.void = m.byName[typesys.VoidName]
	for i, d := range catalog {
		t := m.host[i]
		if d.Base != "" {
			t.base = m.byName[d.Base]
		}
		for _, f := range d.Fields {
			attrs := typesys.FieldPublic
			if f.Static {
				attrs |= typesys.FieldStatic
			}
			t.fields = append(t.fields, &Field{owner: t, name: f.Name, typ: m.hostRef(f.Type), attrs: attrs})
		}
		for _, c := range d.Ctors {
			attrs := typesys.MethodPublic | typesys.MethodSpecialName | typesys.MethodRTSpecialName
			t.ctors = append(t.ctors, &Constructor{methodBase: newMethodBase(t, typesys.CtorName, attrs, m.hostRefs(c.Params))})
		}
		for _, md := range d.Methods {
			attrs := typesys.MethodPublic | typesys.MethodHideBySig
			if md.Static {
				attrs |= typesys.MethodStatic
			}
			if md.Virtual {
				attrs |= typesys.MethodVirtual
			}
			t.methods = append(t.methods, &Method{
				methodBase: newMethodBase(t, md.Name, attrs, m.hostRefs(md.Params)),
				ret:        m.hostRef(md.Return),
			})
		}
	}
}

func (m *Module) hostRef(name string) typesys.Type {
	if elem, ok := typesys.SplitArrayName(name); ok {
		return m.hostRef(elem).MakeArrayType()
	}
	return m.byName[name]
}

func (m *Module) hostRefs(names []string) []typesys.Type {
	out := make([]typesys.Type, len(names))
	for i, n := range names {
		out[i] = m.hostRef(n)
	}
	return out
}

func (m *Module) Name() string { return m.name }

func (m *Module) HostTypes() []typesys.Type {
	out := make([]typesys.Type, len(m.host))
	for i, t := range m.host {
		out[i] = t
	}
	return out
}

func (m *Module) Aliases() map[string]string {
	return maps.Clone(hostlib.Aliases())
}

// DefineType declares a user type. Only a nil or multicast-delegate base is
// accepted when the type is written, but the check happens at CreateType so
// the error names the finished type.
func (m *Module) DefineType(name string, attrs typesys.TypeAttributes, base typesys.Type) (typesys.TypeBuilder, error) {
	if _, dup := m.byName[name]; dup {
		return nil, diag.Errorf(diag.ShapeDuplicateType, "type %s already defined", name)
	}
	t := &Type{mod: m, name: name, module: m.name, attrs: attrs, base: base}
	m.byName[name] = t
	m.user = append(m.user, t)
	return t, nil
}

func (m *Module) SetEntryPoint(mi typesys.MethodInfo) error {
	meth, ok := mi.(*Method)
	if !ok || meth.owner.mod != m {
		return diag.Errorf(diag.BackendForeignObject, "entry point %s does not belong to module %s", mi.Name(), m.name)
	}
	if meth.owner.created {
		return meth.owner.sealedErr("entry point")
	}
	if m.entry != nil && m.entry != meth {
		return diag.Errorf(diag.ShapeMultipleEntries, "entry point already set to %s::%s", m.entry.owner.name, m.entry.name)
	}
	m.entry = meth
	return nil
}

// Lines returns the listing written so far: header first, then every
// finalized type in CreateType order.
func (m *Module) Lines() []string {
	return append([]string(nil), m.lines...)
}

// String joins Lines with newlines and a trailing newline.
func (m *Module) String() string {
	return strings.Join(m.lines, "\n") + "\n"
}
