package codegen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"ilforge/internal/ast"
	"ilforge/internal/diag"
	"ilforge/internal/observ"
	"ilforge/internal/symbols"
	"ilforge/internal/trace"
	"ilforge/internal/typesys"
)

// Options configures one compilation.
type Options struct {
	// Module receives the generated types.
	Module typesys.ModuleBuilder
	// Timer, when set, records one entry per pass.
	Timer *observ.Timer
}

// Result describes a finished compilation.
type Result struct {
	Store      *symbols.Store
	Types      []typesys.TypeBuilder
	EntryPoint typesys.MethodInfo
}

// Generate compiles prog into opts.Module.
func Generate(ctx context.Context, prog *ast.Program, opts Options) (*Result, error) {
	if opts.Module == nil {
		return nil, errors.New("codegen: no module builder")
	}
	if prog == nil {
		prog = &ast.Program{}
	}
	span, ctx := trace.Start(ctx, trace.ScopeDriver, "codegen "+opts.Module.Name())
	d := &driver{
		ctx:   ctx,
		prog:  prog,
		mod:   opts.Module,
		timer: opts.Timer,
		store: symbols.NewStore(),
	}
	if err := d.run(); err != nil {
		span.End("failed")
		return nil, err
	}
	span.WithExtra("types", strconv.Itoa(len(d.types))).End("ok")

	res := &Result{Store: d.store, EntryPoint: d.entry}
	for _, td := range d.types {
		res.Types = append(res.Types, td.tb)
	}
	return res, nil
}

type driver struct {
	ctx   context.Context
	prog  *ast.Program
	mod   typesys.ModuleBuilder
	timer *observ.Timer
	store *symbols.Store
	prims prims
	types []*typeDecl
	entry typesys.MethodInfo
}

// prims holds the host types the lowering refers to by role.
type prims struct {
	object  typesys.Type
	void    typesys.Type
	int32   typesys.Type
	boolean typesys.Type
	str     typesys.Type
	nint    typesys.Type
	mcd     typesys.Type
}

// typeDecl is one declared class or delegate and its generated members.
type typeDecl struct {
	name       string
	tb         typesys.TypeBuilder
	class      *ast.ClassDecl
	delegate   *ast.DelegateDecl
	thunk      *symbols.Delegate
	members    []*member
	fieldInits []fieldInit
}

// member is a method or constructor awaiting its body.
type member struct {
	owner  *typeDecl
	name   string
	ctor   bool
	static bool
	ret    typesys.Type
	params []ast.Param
	types  []typesys.Type
	body   []ast.Stmt
	info   typesys.MethodBase
	il     typesys.ILGenerator
}

type fieldInit struct {
	field typesys.FieldInfo
	init  ast.Expr
}

func (d *driver) run() error {
	passes := []struct {
		name string
		fn   func() error
	}{
		{"builtins", d.registerBuiltins},
		{"declare", d.declare},
		{"thunks", d.thunks},
		{"generate", d.generate},
		{"finalize", d.finalize},
	}
	for _, p := range passes {
		if err := d.ctx.Err(); err != nil {
			return err
		}
		if err := d.phase(p.name, p.fn); err != nil {
			return err
		}
	}
	return nil
}

func (d *driver) phase(name string, fn func() error) error {
	span, ctx := trace.Start(d.ctx, trace.ScopePhase, name)
	idx := -1
	if d.timer != nil {
		idx = d.timer.Begin(name)
	}
	outer := d.ctx
	d.ctx = ctx
	err := fn()
	d.ctx = outer

	note := ""
	if err != nil {
		note = "failed"
	}
	if d.timer != nil {
		d.timer.End(idx, note)
	}
	span.End(note)
	return err
}

func (d *driver) registerBuiltins() error {
	if err := d.store.RegisterBuiltins(d.mod.HostTypes()); err != nil {
		return err
	}
	aliases := d.mod.Aliases()
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	slices.Sort(names)
	for _, alias := range names {
		if err := d.store.RegisterAlias(alias, aliases[alias]); err != nil {
			return err
		}
	}

	roles := []struct {
		dst  *typesys.Type
		name string
	}{
		{&d.prims.object, typesys.ObjectName},
		{&d.prims.void, typesys.VoidName},
		{&d.prims.int32, typesys.Int32Name},
		{&d.prims.boolean, typesys.BooleanName},
		{&d.prims.str, typesys.StringName},
		{&d.prims.nint, typesys.IntPtrName},
		{&d.prims.mcd, typesys.MulticastDelegateName},
	}
	for _, r := range roles {
		t := d.store.Builtin(r.name)
		if t == nil {
			return diag.Errorf(diag.LookupMissingType, "backend %s does not provide %s", d.mod.Name(), r.name)
		}
		*r.dst = t
	}
	return nil
}

func (d *driver) thunks() error {
	for _, td := range d.types {
		if td.thunk == nil {
			continue
		}
		if err := d.store.RegisterDelegate(td.thunk); err != nil {
			return err
		}
		trace.Point(d.ctx, trace.ScopeType, "delegate", td.name+" "+typesys.Signature(typesys.InvokeName, td.thunk.Params))
	}
	return d.store.Freeze()
}

func (d *driver) generate() error {
	for _, td := range d.types {
		if len(td.members) == 0 {
			continue
		}
		span, ctx := trace.Start(d.ctx, trace.ScopeType, td.name)
		for _, m := range td.members {
			if err := ctx.Err(); err != nil {
				span.End("canceled")
				return err
			}
			if err := d.generateMember(ctx, m); err != nil {
				span.End("failed")
				return fmt.Errorf("%s::%s: %w", td.name, m.name, err)
			}
		}
		span.WithExtra("members", strconv.Itoa(len(td.members))).End("")
	}
	return nil
}

func (d *driver) generateMember(ctx context.Context, m *member) error {
	span, ctx := trace.Start(ctx, trace.ScopeMember, m.name)
	l := newLowerer(ctx, d, m)
	var err error
	if m.ctor {
		err = l.constructor()
	} else {
		err = l.body(m.body)
	}
	if err != nil {
		span.End("failed")
		return err
	}
	span.WithExtra("locals", strconv.Itoa(l.localCount)).End("")
	return nil
}

func (d *driver) finalize() error {
	for _, td := range d.types {
		if err := td.tb.CreateType(); err != nil {
			return fmt.Errorf("finalize %s: %w", td.name, err)
		}
	}
	return nil
}
