package textual

import (
	"fmt"
	"strconv"
	"strings"

	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

var primitiveKeywords = map[string]string{
	typesys.ObjectName:  "object",
	typesys.VoidName:    "void",
	typesys.Int32Name:   "int32",
	typesys.StringName:  "string",
	typesys.IntPtrName:  "native int",
	typesys.BooleanName: "bool",
}

// ilasm keywords that cannot appear bare as parameter names.
var reservedNames = map[string]bool{
	"object": true, "method": true, "string": true, "int32": true,
	"bool": true, "void": true, "native": true, "class": true,
	"valuetype": true, "instance": true, "static": true, "value": true,
}

// qualified renders "[module]Name" for types outside this module.
func (m *Module) qualified(t typesys.Type) string {
	if t.Module() == "" || t.Module() == m.name {
		return t.Name()
	}
	return "[" + t.Module() + "]" + t.Name()
}

// typeRef renders a type in signature position.
func (m *Module) typeRef(t typesys.Type) string {
	if t == nil {
		return "object"
	}
	if kw, ok := primitiveKeywords[t.Name()]; ok {
		return kw
	}
	if t.IsArray() {
		return m.typeRef(t.ElementType()) + typesys.ArraySuffix
	}
	if t.IsValueType() {
		return "valuetype " + m.qualified(t)
	}
	return "class " + m.qualified(t)
}

// typeSpec renders a type used as an instruction operand.
func (m *Module) typeSpec(t typesys.Type) string {
	if kw, ok := primitiveKeywords[t.Name()]; ok {
		return kw
	}
	if t.IsArray() {
		return m.typeRef(t)
	}
	return m.qualified(t)
}

// ownerRef renders the declaring type in a member reference. Member owners
// are always spelled by name, even for primitives.
func (m *Module) ownerRef(t typesys.Type) string {
	if t.IsArray() {
		return m.typeRef(t)
	}
	return m.qualified(t)
}

func (m *Module) paramList(params []typesys.Type, names []string) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = m.typeRef(p)
		if i < len(names) && names[i] != "" {
			parts[i] += " " + paramName(names[i])
		}
	}
	return strings.Join(parts, ", ")
}

func paramName(name string) string {
	if reservedNames[name] {
		return "'" + name + "'"
	}
	return name
}

func (m *Module) methodRef(mi typesys.MethodInfo) string {
	var sb strings.Builder
	if !mi.IsStatic() {
		sb.WriteString("instance ")
	}
	fmt.Fprintf(&sb, "%s %s::%s(%s)", m.typeRef(mi.ReturnType()), m.ownerRef(mi.DeclaringType()), mi.Name(), m.paramList(mi.ParameterTypes(), nil))
	return sb.String()
}

func (m *Module) ctorRef(c typesys.ConstructorInfo) string {
	return fmt.Sprintf("instance void %s::%s(%s)", m.ownerRef(c.DeclaringType()), typesys.CtorName, m.paramList(c.ParameterTypes(), nil))
}

func (m *Module) fieldRef(f typesys.FieldInfo) string {
	return fmt.Sprintf("%s %s::%s", m.typeRef(f.FieldType()), m.ownerRef(f.DeclaringType()), f.Name())
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(`\` + strconv.FormatInt(int64(r), 8))
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// WriteType appends the class declaration of t: header, fields,
// constructors, then methods.
func (m *Module) WriteType(t *Type) error {
	if t.mod != m {
		return diag.Errorf(diag.BackendForeignObject, "type %s does not belong to module %s", t.name, m.name)
	}
	if t.base != nil && t.base.Name() != typesys.MulticastDelegateName {
		return diag.Errorf(diag.BackendUnsupportedBase, "type %s: base type %s is not supported", t.name, t.base.Name())
	}
	out := []string{".class " + t.attrs.String() + " " + t.name}
	if t.base != nil {
		out = append(out, "       extends "+m.qualified(t.base))
	}
	out = append(out, "{")
	for _, f := range t.fields {
		out = append(out, fmt.Sprintf("    .field %s %s %s", f.attrs, m.typeRef(f.typ), f.name))
	}
	for _, c := range t.ctors {
		body, err := m.methodLines(&c.methodBase, m.void)
		if err != nil {
			return err
		}
		out = append(out, body...)
	}
	for _, meth := range t.methods {
		body, err := m.methodLines(&meth.methodBase, meth.ret)
		if err != nil {
			return err
		}
		out = append(out, body...)
	}
	out = append(out, "}")
	m.lines = append(m.lines, out...)
	return nil
}

func (m *Module) methodLines(mb *methodBase, ret typesys.Type) ([]string, error) {
	var sig strings.Builder
	fmt.Fprintf(&sig, "    .method %s ", mb.attrs)
	if !mb.IsStatic() {
		sig.WriteString("instance ")
	}
	fmt.Fprintf(&sig, "%s %s(%s) %s", m.typeRef(ret), mb.name, m.paramList(mb.params, mb.paramNames), mb.impl)
	out := []string{sig.String(), "    {"}
	if mb.impl == typesys.ImplRuntime {
		return append(out, "    }"), nil
	}
	il := mb.il
	if err := il.finish(); err != nil {
		return nil, fmt.Errorf("%s::%s: %w", mb.owner.name, mb.name, err)
	}
	if m.entry != nil && &m.entry.methodBase == mb {
		out = append(out, "        .entrypoint")
	}
	out = append(out, "        .maxstack "+strconv.Itoa(il.max))
	if len(il.locals) > 0 {
		decl := make([]string, len(il.locals))
		for i, l := range il.locals {
			decl[i] = fmt.Sprintf("%s V_%d", m.typeRef(l.typ), l.index)
		}
		out = append(out, "        .locals init ("+strings.Join(decl, ", ")+")")
	}
	for _, line := range il.body {
		out = append(out, "        "+line)
	}
	return append(out, "    }"), nil
}
