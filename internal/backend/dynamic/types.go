package dynamic

import (
	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

// Type is a runtime type. A user TypeBuilder is the same object as the
// Type handed out to clients; CreateType only flips it to invocable.
type Type struct {
	mod       *Module
	name      string
	module    string
	valueType bool
	base      typesys.Type
	elem      *Type
	array     *Type
	attrs     typesys.TypeAttributes
	fields    []*Field
	ctors     []*Constructor
	methods   []*Method
	slots     int
	created   bool
}

var _ typesys.TypeBuilder = (*Type)(nil)

func (t *Type) Name() string           { return t.name }
func (t *Type) Module() string         { return t.module }
func (t *Type) IsValueType() bool      { return t.valueType }
func (t *Type) IsArray() bool          { return t.elem != nil }
func (t *Type) BaseType() typesys.Type { return t.base }
func (t *Type) IsCreated() bool        { return t.created }

func (t *Type) ElementType() typesys.Type {
	if t.elem == nil {
		return nil
	}
	return t.elem
}

func (t *Type) MakeArrayType() typesys.Type {
	if t.array == nil {
		t.array = &Type{
			mod:     t.mod,
			name:    typesys.ArrayName(t.name),
			module:  t.module,
			base:    t.mod.object,
			elem:    t,
			created: true,
		}
	}
	return t.array
}

func (t *Type) Fields(sel typesys.BindingFlags) []typesys.FieldInfo {
	var out []typesys.FieldInfo
	for _, f := range t.fields {
		if sel.Matches(f.IsStatic()) {
			out = append(out, f)
		}
	}
	return out
}

func (t *Type) Methods(sel typesys.BindingFlags) []typesys.MethodInfo {
	var out []typesys.MethodInfo
	for _, m := range t.methods {
		if sel.Matches(m.IsStatic()) {
			out = append(out, m)
		}
	}
	return out
}

func (t *Type) Constructors(sel typesys.BindingFlags) []typesys.ConstructorInfo {
	if !sel.Matches(false) {
		return nil
	}
	out := make([]typesys.ConstructorInfo, 0, len(t.ctors))
	for _, c := range t.ctors {
		out = append(out, c)
	}
	return out
}

// runtimeBase is the base used for dispatch: a nil base means System.Object.
func (t *Type) runtimeBase() typesys.Type {
	if t.base == nil && t.name != typesys.ObjectName {
		return t.mod.object
	}
	return t.base
}

func (t *Type) IsAssignableFrom(other typesys.Type) bool {
	if other == nil {
		return !t.valueType
	}
	if t.name == typesys.ObjectName {
		return true
	}
	for cur := other; cur != nil; {
		if typesys.Equal(t, cur) {
			return true
		}
		if rt, ok := cur.(*Type); ok {
			cur = rt.runtimeBase()
			continue
		}
		cur = cur.BaseType()
	}
	return false
}

func (t *Type) sealedErr(what string) error {
	return diag.Errorf(diag.ShapeTypeSealed, "cannot define %s on finalized type %s", what, t.name)
}

func (t *Type) DefineField(name string, typ typesys.Type, attrs typesys.FieldAttributes) (typesys.FieldBuilder, error) {
	if t.created {
		return nil, t.sealedErr("field " + name)
	}
	f := &Field{owner: t, name: name, typ: typ, attrs: attrs, slot: -1}
	if f.IsStatic() {
		f.static = zeroValue(typ)
	} else {
		f.slot = t.slots
		t.slots++
	}
	t.fields = append(t.fields, f)
	return f, nil
}

func (t *Type) DefineMethod(name string, attrs typesys.MethodAttributes, ret typesys.Type, params []typesys.Type) (typesys.MethodBuilder, error) {
	if t.created {
		return nil, t.sealedErr("method " + name)
	}
	m := &Method{methodBase: newMethodBase(t, name, attrs, params), ret: ret}
	m.il = newILGen(t.mod, &m.methodBase, ret)
	t.methods = append(t.methods, m)
	return m, nil
}

func (t *Type) DefineConstructor(attrs typesys.MethodAttributes, params []typesys.Type) (typesys.ConstructorBuilder, error) {
	if t.created {
		return nil, t.sealedErr("constructor")
	}
	attrs |= typesys.MethodSpecialName | typesys.MethodRTSpecialName
	c := &Constructor{methodBase: newMethodBase(t, typesys.CtorName, attrs, params)}
	c.il = newILGen(t.mod, &c.methodBase, t.mod.void)
	t.ctors = append(t.ctors, c)
	return c, nil
}

// CreateType resolves labels and verifies every IL body, then makes the
// type's members invocable.
func (t *Type) CreateType() error {
	if t.created {
		return t.sealedErr("type body")
	}
	if t.base != nil && !typesys.Equal(t.base, t.mod.object) && t.base.Name() != typesys.MulticastDelegateName {
		return diag.Errorf(diag.BackendUnsupportedBase, "type %s: base type %s is not supported", t.name, t.base.Name())
	}
	bodies := make([]*methodBase, 0, len(t.ctors)+len(t.methods))
	for _, c := range t.ctors {
		bodies = append(bodies, &c.methodBase)
	}
	for _, m := range t.methods {
		bodies = append(bodies, &m.methodBase)
	}
	for _, mb := range bodies {
		if mb.impl == typesys.ImplRuntime {
			continue
		}
		body, err := mb.il.finish()
		if err != nil {
			return wrapMember(mb, err)
		}
		mb.body = body
	}
	t.created = true
	return nil
}

// Field is a field of a runtime type. Static fields own their storage.
type Field struct {
	owner  *Type
	name   string
	typ    typesys.Type
	attrs  typesys.FieldAttributes
	slot   int
	static Value
}

func (f *Field) Name() string                { return f.name }
func (f *Field) DeclaringType() typesys.Type { return f.owner }
func (f *Field) FieldType() typesys.Type     { return f.typ }
func (f *Field) IsStatic() bool              { return f.attrs&typesys.FieldStatic != 0 }

type methodBase struct {
	owner      *Type
	name       string
	attrs      typesys.MethodAttributes
	impl       typesys.MethodImplAttributes
	params     []typesys.Type
	paramNames []string
	il         *ILGen
	body       *Body
	native     nativeFunc
}

func newMethodBase(owner *Type, name string, attrs typesys.MethodAttributes, params []typesys.Type) methodBase {
	return methodBase{
		owner:      owner,
		name:       name,
		attrs:      attrs,
		params:     append([]typesys.Type(nil), params...),
		paramNames: make([]string, len(params)),
	}
}

func (m *methodBase) Name() string                   { return m.name }
func (m *methodBase) DeclaringType() typesys.Type    { return m.owner }
func (m *methodBase) ParameterTypes() []typesys.Type { return m.params }
func (m *methodBase) IsStatic() bool                 { return m.attrs&typesys.MethodStatic != 0 }

func (m *methodBase) DefineParameter(position int, name string) error {
	if position < 1 || position > len(m.params) {
		return diag.Errorf(diag.BackendOperandRange, "parameter position %d out of range for %s", position, m.name)
	}
	m.paramNames[position-1] = name
	return nil
}

func (m *methodBase) SetImplementationFlags(flags typesys.MethodImplAttributes) error {
	if m.owner.created {
		return m.owner.sealedErr("implementation flags")
	}
	m.impl = flags
	return nil
}

func (m *methodBase) ILGenerator() typesys.ILGenerator {
	if m.il == nil {
		return nil
	}
	return m.il
}

func (m *methodBase) argCount() int {
	if m.IsStatic() {
		return len(m.params)
	}
	return len(m.params) + 1
}

// Method is a method of a runtime type.
type Method struct {
	methodBase
	ret typesys.Type
}

var _ typesys.MethodBuilder = (*Method)(nil)

func (m *Method) ReturnType() typesys.Type { return m.ret }
func (m *Method) IsVirtual() bool          { return m.attrs&typesys.MethodVirtual != 0 }

// Body returns the verified instruction stream, nil before CreateType.
func (m *Method) Body() *Body { return m.body }

// Constructor is an instance constructor of a runtime type.
type Constructor struct {
	methodBase
}

var _ typesys.ConstructorBuilder = (*Constructor)(nil)

func (*Constructor) IsConstructor() bool { return true }

// Body returns the verified instruction stream, nil before CreateType.
func (c *Constructor) Body() *Body { return c.body }
