// Package dynamic implements the type-system abstraction with live runtime
// types. Finalized types are immediately invocable through an in-process
// interpreter for the emitted instruction stream.
package dynamic

import (
	"bufio"
	"context"
	"io"
	"maps"
	"os"

	"ilforge/internal/diag"
	"ilforge/internal/hostlib"
	"ilforge/internal/typesys"
)

// DefaultMaxCallDepth bounds interpreted call nesting.
const DefaultMaxCallDepth = 4096

// Options configure a dynamic module.
type Options struct {
	Name         string
	Stdout       io.Writer
	Stdin        io.Reader
	MaxCallDepth int
}

// Module is a dynamic ModuleBuilder and the runtime that executes it.
type Module struct {
	name string

	host   []*Type
	byName map[string]*Type
	user   []*Type
	object *Type
	void   *Type

	entry    *Method
	stdout   io.Writer
	stdin    *bufio.Reader
	maxDepth int
	nextID   int32
	tokens   map[*Method]int32
}

var _ typesys.ModuleBuilder = (*Module)(nil)

// New creates a module with the host catalog loaded and natives bound.
func New(opts Options) *Module {
	if opts.Name == "" {
		opts.Name = "Program"
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	m := &Module{
		name:     opts.Name,
		byName:   make(map[string]*Type),
		stdout:   opts.Stdout,
		stdin:    bufio.NewReader(opts.Stdin),
		maxDepth: opts.MaxCallDepth,
		tokens:   make(map[*Method]int32),
	}
	m.loadHost(hostlib.Catalog())
	return m
}

func (m *Module) loadHost(catalog []hostlib.TypeDesc) {
	for _, d := range catalog {
		t := &Type{mod: m, name: d.Name, module: hostlib.RuntimeModule, valueType: d.ValueType, created: true}
		m.host = append(m.host, t)
		m.byName[d.Name] = t
	}
	m.object = m.byName[typesys.ObjectName]
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
			field := &Field{owner: t, name: f.Name, typ: m.hostRef(f.Type), attrs: attrs, slot: -1}
			if init, ok := hostStatics[d.Name+"::"+f.Name]; ok {
				field.static = init
			}
			t.fields = append(t.fields, field)
		}
		for _, c := range d.Ctors {
			attrs := typesys.MethodPublic | typesys.MethodSpecialName | typesys.MethodRTSpecialName
			ctor := &Constructor{methodBase: newMethodBase(t, typesys.CtorName, attrs, m.hostRefs(c.Params))}
			ctor.native = natives[hostlib.Key(d.Name, typesys.CtorName, c.Params)]
			t.ctors = append(t.ctors, ctor)
		}
		for _, md := range d.Methods {
			attrs := typesys.MethodPublic | typesys.MethodHideBySig
			if md.Static {
				attrs |= typesys.MethodStatic
			}
			if md.Virtual {
				attrs |= typesys.MethodVirtual
			}
			meth := &Method{
				methodBase: newMethodBase(t, md.Name, attrs, m.hostRefs(md.Params)),
				ret:        m.hostRef(md.Return),
			}
			meth.native = natives[hostlib.Key(d.Name, md.Name, md.Params)]
			t.methods = append(t.methods, meth)
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

func (m *Module) DefineType(name string, attrs typesys.TypeAttributes, base typesys.Type) (typesys.TypeBuilder, error) {
	if _, dup := m.byName[name]; dup {
		return nil, diag.Errorf(diag.ShapeDuplicateType, "type %s already defined", name)
	}
	if base != nil {
		if _, ok := base.(*Type); !ok {
			return nil, diag.Errorf(diag.BackendForeignObject, "base type %s does not belong to module %s", base.Name(), m.name)
		}
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
	if m.entry != nil && m.entry != meth {
		return diag.Errorf(diag.ShapeMultipleEntries, "entry point already set to %s::%s", m.entry.owner.name, m.entry.name)
	}
	m.entry = meth
	return nil
}

// EntryPoint returns the entry method, or nil if none was declared.
func (m *Module) EntryPoint() *Method { return m.entry }

// Type returns a host or user type by name.
func (m *Module) Type(name string) (*Type, bool) {
	t, ok := m.byName[name]
	return t, ok
}

// Run invokes the entry point and returns its int result, or 0 for a void
// entry point.
func (m *Module) Run(ctx context.Context) (int, error) {
	if m.entry == nil {
		return 0, diag.Errorf(diag.LookupNoEntryPoint, "module %s has no entry point", m.name)
	}
	res, err := m.entry.Invoke(ctx)
	if err != nil {
		return 0, err
	}
	if res.Kind == KindInt {
		return int(res.I), nil
	}
	return 0, nil
}

// Invoke runs the method. Instance methods take the receiver as args[0].
func (m *Method) Invoke(ctx context.Context, args ...Value) (Value, error) {
	if !m.owner.created {
		return Value{}, diag.Errorf(diag.BackendNotFinalized, "%s::%s: type is not finalized", m.owner.name, m.name)
	}
	if len(args) != m.argCount() {
		return Value{}, diag.Errorf(diag.RuntimeBadOperand, "%s::%s takes %d arguments, got %d", m.owner.name, m.name, m.argCount(), len(args))
	}
	vm := &machine{mod: m.owner.mod, ctx: ctx}
	return vm.call(&m.methodBase, append([]Value(nil), args...))
}

// New allocates an instance of a finalized user type and runs the
// constructor matching args.
func (m *Module) New(ctx context.Context, t *Type, args ...Value) (Value, error) {
	if !t.created {
		return Value{}, diag.Errorf(diag.BackendNotFinalized, "%s: type is not finalized", t.name)
	}
	for _, c := range t.ctors {
		if len(c.params) == len(args) {
			vm := &machine{mod: m, ctx: ctx}
			return vm.construct(c, args)
		}
	}
	return Value{}, diag.Errorf(diag.LookupMissingCtor, "%s has no constructor taking %d arguments", t.name, len(args))
}

func (m *Module) alloc(t *Type) *Object {
	m.nextID++
	obj := &Object{Type: t, Fields: make([]Value, t.slots), id: m.nextID}
	for _, f := range t.fields {
		if !f.IsStatic() {
			obj.Fields[f.slot] = zeroValue(f.typ)
		}
	}
	return obj
}

func (m *Module) token(fn *Method) int32 {
	if fn == nil {
		return 0
	}
	if tok, ok := m.tokens[fn]; ok {
		return tok
	}
	tok := int32(len(m.tokens) + 1)
	m.tokens[fn] = tok
	return tok
}
