package symbols

import (
	"golang.org/x/text/unicode/norm"

	"ilforge/internal/diag"
	"ilforge/internal/typesys"
)

// Phase tracks which writes the store still accepts.
type Phase uint8

const (
	// PhaseBuiltins accepts host types and aliases.
	PhaseBuiltins Phase = iota
	// PhaseDeclare accepts user types, members and delegate descriptors.
	PhaseDeclare
	// PhaseGenerate is read-only.
	PhaseGenerate
)

func (p Phase) String() string {
	switch p {
	case PhaseBuiltins:
		return "builtins"
	case PhaseDeclare:
		return "declare"
	case PhaseGenerate:
		return "generate"
	default:
		return "unknown"
	}
}

// Delegate describes a delegate type: its Invoke signature and the
// (object, native int) constructor used to build instances.
type Delegate struct {
	Type   typesys.Type
	Return typesys.Type
	Params []typesys.Type
	Ctor   typesys.ConstructorInfo
	Invoke typesys.MethodInfo
}

// Store is the per-compilation symbol table: name -> type, type -> members,
// member -> parameter types. Its lifetime is one compilation.
type Store struct {
	phase     Phase
	types     map[string]typesys.Type
	aliases   map[string]string
	user      map[string]bool
	userOrder []typesys.Type
	fields    map[string][]typesys.FieldInfo
	methods   map[string][]typesys.MethodInfo
	ctors     map[string][]typesys.ConstructorInfo
	params    map[typesys.MethodBase][]typesys.Type
	delegates map[string]*Delegate
}

// NewStore creates an empty store in PhaseBuiltins.
func NewStore() *Store {
	return &Store{
		types:     make(map[string]typesys.Type, 64),
		aliases:   make(map[string]string, 8),
		user:      make(map[string]bool),
		fields:    make(map[string][]typesys.FieldInfo),
		methods:   make(map[string][]typesys.MethodInfo),
		ctors:     make(map[string][]typesys.ConstructorInfo),
		params:    make(map[typesys.MethodBase][]typesys.Type),
		delegates: make(map[string]*Delegate),
	}
}

func key(name string) string {
	return norm.NFC.String(name)
}

// Phase returns the current phase.
func (s *Store) Phase() Phase { return s.phase }

func (s *Store) requirePhase(p Phase, what string) error {
	if s.phase != p {
		return diag.Errorf(diag.ShapeStoreFrozen, "%s is not allowed in phase %s", what, s.phase)
	}
	return nil
}

// RegisterBuiltins imports host types and snapshots their public instance
// and static members.
func (s *Store) RegisterBuiltins(hostTypes []typesys.Type) error {
	if err := s.requirePhase(PhaseBuiltins, "builtin registration"); err != nil {
		return err
	}
	for _, t := range hostTypes {
		if t == nil {
			continue
		}
		k := key(t.Name())
		s.types[k] = t
		s.fields[k] = append([]typesys.FieldInfo(nil), t.Fields(typesys.BindAll)...)
		methods := t.Methods(typesys.BindAll)
		s.methods[k] = append([]typesys.MethodInfo(nil), methods...)
		for _, m := range methods {
			s.params[m] = append([]typesys.Type(nil), m.ParameterTypes()...)
		}
		ctors := t.Constructors(typesys.BindPublic | typesys.BindInstance)
		s.ctors[k] = append([]typesys.ConstructorInfo(nil), ctors...)
		for _, c := range ctors {
			s.params[c] = append([]typesys.Type(nil), c.ParameterTypes()...)
		}
	}
	return nil
}

// RegisterAlias adds a source spelling for an already known type.
func (s *Store) RegisterAlias(alias, target string) error {
	if err := s.requirePhase(PhaseBuiltins, "alias registration"); err != nil {
		return err
	}
	if _, ok := s.types[key(target)]; !ok {
		return diag.Errorf(diag.LookupMissingType, "alias %q targets unknown type %q", alias, target)
	}
	s.aliases[key(alias)] = key(target)
	return nil
}

// BeginDeclarations closes builtin import and opens user declarations.
func (s *Store) BeginDeclarations() error {
	if err := s.requirePhase(PhaseBuiltins, "starting declarations"); err != nil {
		return err
	}
	s.phase = PhaseDeclare
	return nil
}

// Freeze makes the store read-only for body generation.
func (s *Store) Freeze() error {
	if err := s.requirePhase(PhaseDeclare, "freezing"); err != nil {
		return err
	}
	s.phase = PhaseGenerate
	return nil
}

func (s *Store) hasName(name string) bool {
	k := key(name)
	if _, ok := s.types[k]; ok {
		return true
	}
	_, ok := s.aliases[k]
	return ok
}

// RegisterUserType adds a declared type placeholder.
func (s *Store) RegisterUserType(t typesys.Type) error {
	if err := s.requirePhase(PhaseDeclare, "type registration"); err != nil {
		return err
	}
	if s.hasName(t.Name()) {
		return diag.Errorf(diag.ShapeDuplicateType, "type %q is already defined", t.Name())
	}
	k := key(t.Name())
	s.types[k] = t
	s.user[k] = true
	s.userOrder = append(s.userOrder, t)
	return nil
}

// RegisterField adds a field to a user type.
func (s *Store) RegisterField(f typesys.FieldInfo) error {
	if err := s.requirePhase(PhaseDeclare, "field registration"); err != nil {
		return err
	}
	k := key(f.DeclaringType().Name())
	for _, existing := range s.fields[k] {
		if existing.Name() == f.Name() {
			return diag.Errorf(diag.ShapeDuplicateMember, "field %s::%s is already defined", f.DeclaringType().Name(), f.Name())
		}
	}
	s.fields[k] = append(s.fields[k], f)
	return nil
}

// RegisterMethod adds a method to a user type. Overloads must differ in
// parameter types or static-ness.
func (s *Store) RegisterMethod(m typesys.MethodInfo) error {
	if err := s.requirePhase(PhaseDeclare, "method registration"); err != nil {
		return err
	}
	k := key(m.DeclaringType().Name())
	for _, existing := range s.methods[k] {
		if existing.Name() == m.Name() && existing.IsStatic() == m.IsStatic() &&
			typesys.SameParams(existing.ParameterTypes(), m.ParameterTypes()) {
			return diag.Errorf(diag.ShapeDuplicateMember, "method %s::%s is already defined",
				m.DeclaringType().Name(), typesys.Signature(m.Name(), m.ParameterTypes()))
		}
	}
	s.methods[k] = append(s.methods[k], m)
	s.params[m] = append([]typesys.Type(nil), m.ParameterTypes()...)
	return nil
}

// RegisterConstructor adds a constructor to a user type.
func (s *Store) RegisterConstructor(c typesys.ConstructorInfo) error {
	if err := s.requirePhase(PhaseDeclare, "constructor registration"); err != nil {
		return err
	}
	k := key(c.DeclaringType().Name())
	for _, existing := range s.ctors[k] {
		if typesys.SameParams(existing.ParameterTypes(), c.ParameterTypes()) {
			return diag.Errorf(diag.ShapeDuplicateMember, "constructor %s::%s is already defined",
				c.DeclaringType().Name(), typesys.Signature(typesys.CtorName, c.ParameterTypes()))
		}
	}
	s.ctors[k] = append(s.ctors[k], c)
	s.params[c] = append([]typesys.Type(nil), c.ParameterTypes()...)
	return nil
}

// RegisterDelegate records the descriptor of a declared delegate type.
func (s *Store) RegisterDelegate(d *Delegate) error {
	if err := s.requirePhase(PhaseDeclare, "delegate registration"); err != nil {
		return err
	}
	k := key(d.Type.Name())
	if _, ok := s.delegates[k]; ok {
		return diag.Errorf(diag.ShapeDuplicateType, "delegate %q is already described", d.Type.Name())
	}
	s.delegates[k] = d
	return nil
}

// Lookup resolves a type name or alias. Array names are materialised from
// their element type on first use and cached.
func (s *Store) Lookup(name string) (typesys.Type, error) {
	k := key(name)
	if target, ok := s.aliases[k]; ok {
		k = target
	}
	if t, ok := s.types[k]; ok {
		return t, nil
	}
	if elemName, ok := typesys.SplitArrayName(name); ok {
		elem, err := s.Lookup(elemName)
		if err != nil {
			return nil, err
		}
		arr := elem.MakeArrayType()
		s.types[k] = arr
		return arr, nil
	}
	return nil, diag.Errorf(diag.LookupMissingType, "type %q not found", name)
}

// HasType reports whether name resolves without materialising anything.
func (s *Store) HasType(name string) bool {
	return s.hasName(name)
}

// Builtin returns a well-known host type, or nil if it was never imported.
func (s *Store) Builtin(name string) typesys.Type {
	return s.types[key(name)]
}

// IsUserType reports whether t was declared by the compiled program.
func (s *Store) IsUserType(t typesys.Type) bool {
	return t != nil && s.user[key(t.Name())]
}

// UserTypes returns declared types in registration order.
func (s *Store) UserTypes() []typesys.Type {
	return s.userOrder
}

// Fields returns the registered fields of t.
func (s *Store) Fields(t typesys.Type) []typesys.FieldInfo {
	return s.fields[key(t.Name())]
}

// Field finds a field by name.
func (s *Store) Field(t typesys.Type, name string) (typesys.FieldInfo, error) {
	for _, f := range s.fields[key(t.Name())] {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, diag.Errorf(diag.LookupMissingField, "field %s::%s not found", t.Name(), name)
}

// Methods returns the registered methods of t called name.
func (s *Store) Methods(t typesys.Type, name string) []typesys.MethodInfo {
	var out []typesys.MethodInfo
	for _, m := range s.methods[key(t.Name())] {
		if m.Name() == name {
			out = append(out, m)
		}
	}
	return out
}

// FindMethod resolves an overload by exact positional parameter types and
// static-ness. The first match in declaration order wins.
func (s *Store) FindMethod(t typesys.Type, name string, args []typesys.Type, static bool) (typesys.MethodInfo, error) {
	candidates := s.Methods(t, name)
	if len(candidates) == 0 {
		return nil, diag.Errorf(diag.LookupMissingMethod, "method %s::%s not found", t.Name(), name)
	}
	for _, m := range candidates {
		if m.IsStatic() == static && typesys.SameParams(s.Params(m), args) {
			return m, nil
		}
	}
	kind := "instance"
	if static {
		kind = "static"
	}
	return nil, diag.Errorf(diag.LookupNoOverload, "no %s overload %s::%s", kind, t.Name(), typesys.Signature(name, args))
}

// FindConstructor resolves a constructor overload by exact parameter types.
func (s *Store) FindConstructor(t typesys.Type, args []typesys.Type) (typesys.ConstructorInfo, error) {
	candidates := s.ctors[key(t.Name())]
	if len(candidates) == 0 {
		return nil, diag.Errorf(diag.LookupMissingCtor, "type %s has no constructors", t.Name())
	}
	for _, c := range candidates {
		if typesys.SameParams(s.Params(c), args) {
			return c, nil
		}
	}
	return nil, diag.Errorf(diag.LookupNoOverload, "no constructor %s::%s", t.Name(), typesys.Signature(typesys.CtorName, args))
}

// Params returns the snapshot parameter list of a registered member.
func (s *Store) Params(m typesys.MethodBase) []typesys.Type {
	if ps, ok := s.params[m]; ok {
		return ps
	}
	return m.ParameterTypes()
}

// Delegate returns the descriptor of a declared delegate type.
func (s *Store) Delegate(t typesys.Type) (*Delegate, bool) {
	if t == nil {
		return nil, false
	}
	d, ok := s.delegates[key(t.Name())]
	return d, ok
}
