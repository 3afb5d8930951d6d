package decl

import (
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/internal/arena"
	"github.com/wippyai/typecore/types"
)

// Names of the implicit root module and universal top class
const (
	RootModule  = "ecstasy"
	ObjectClass = "Object"
)

// Builder populates a Repository during the single-threaded build phase.
// Construction problems (duplicates, mutation after freeze) are collected and
// returned by Err instead of interrupting the fluent calls.
type Builder struct {
	repo *Repository
	errs []*errors.Error
}

// NewBuilder creates a builder whose repository already holds the root module
// with the Object class
func NewBuilder() *Builder {
	b := &Builder{repo: newRepository()}
	obj := b.Module(RootModule).Class(ObjectClass)
	b.repo.object = obj.ID()
	return b
}

// Repository returns the repository under construction
func (b *Builder) Repository() *Repository {
	return b.repo
}

// Object returns the type of the universal top class
func (b *Builder) Object() types.Node {
	return types.NewTerminal(types.ClassRef{Decl: b.repo.object})
}

// Err returns the collected construction errors, or nil
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return &errors.ListError{Errors: append([]*errors.Error(nil), b.errs...)}
}

func (b *Builder) fail(err *errors.Error) {
	b.errs = append(b.errs, err)
}

func (b *Builder) writable(what string) bool {
	if b.repo.Frozen() {
		b.fail(errors.Frozen(what))
		return false
	}
	return true
}

// Module opens the top-level module name, creating it on first use
func (b *Builder) Module(name string) *DeclBuilder {
	if id, ok := b.repo.roots.Lookup(name); ok {
		return &DeclBuilder{b: b, id: types.DeclID(id)}
	}
	d := b.alloc(types.NoDecl, name, FormatModule)
	if d == nil {
		return &DeclBuilder{b: b, id: types.NoDecl}
	}
	_ = b.repo.roots.Define(name, arena.ID(d.ID))
	return &DeclBuilder{b: b, id: d.ID}
}

// Open returns a builder for an existing declaration
func (b *Builder) Open(id types.DeclID) *DeclBuilder {
	return &DeclBuilder{b: b, id: id}
}

func (b *Builder) alloc(parent types.DeclID, name string, format Format) *Declaration {
	if !b.writable("declare " + name) {
		return nil
	}
	id := types.DeclID(b.repo.decls.Len())
	d := newDeclaration(id, parent, name, format)
	b.repo.decls.Alloc(d)
	return d
}

// DeclBuilder adds members and nested declarations to one declaration
type DeclBuilder struct {
	b  *Builder
	id types.DeclID
}

// ID returns the declaration id
func (d *DeclBuilder) ID() types.DeclID {
	return d.id
}

// Declaration returns the declaration being built
func (d *DeclBuilder) Declaration() *Declaration {
	decl, err := d.b.repo.Declaration(d.id)
	if err != nil {
		return nil
	}
	return decl
}

func (d *DeclBuilder) edit(what string) *Declaration {
	if !d.b.writable(what) {
		return nil
	}
	return d.Declaration()
}

func (d *DeclBuilder) nest(name string, format Format) *DeclBuilder {
	parent := d.edit("declare " + name)
	if parent == nil {
		return &DeclBuilder{b: d.b, id: types.NoDecl}
	}
	if id, ok := parent.Child(name); ok {
		existing, _ := d.b.repo.Declaration(id)
		if existing.Format != format {
			d.b.fail(errors.New(errors.PhaseBuild, errors.KindDuplicate).
				Decl(parent.Name).
				Detail("%s %q already declared as %s", format, name, existing.Format).
				Build())
		}
		return &DeclBuilder{b: d.b, id: id}
	}
	child := d.b.alloc(d.id, name, format)
	_ = parent.children.Define(name, arena.ID(child.ID))
	return &DeclBuilder{b: d.b, id: child.ID}
}

// Package opens a nested package
func (d *DeclBuilder) Package(name string) *DeclBuilder { return d.nest(name, FormatPackage) }

// Class opens a nested class
func (d *DeclBuilder) Class(name string) *DeclBuilder { return d.nest(name, FormatClass) }

// Interface opens a nested interface
func (d *DeclBuilder) Interface(name string) *DeclBuilder { return d.nest(name, FormatInterface) }

// Mixin opens a nested mixin
func (d *DeclBuilder) Mixin(name string) *DeclBuilder { return d.nest(name, FormatMixin) }

// Const opens a nested const class
func (d *DeclBuilder) Const(name string) *DeclBuilder { return d.nest(name, FormatConst) }

// Enum opens a nested enum
func (d *DeclBuilder) Enum(name string) *DeclBuilder { return d.nest(name, FormatEnum) }

// Service opens a nested service
func (d *DeclBuilder) Service(name string) *DeclBuilder { return d.nest(name, FormatService) }

// Declare opens a nested declaration of any format
func (d *DeclBuilder) Declare(name string, format Format) *DeclBuilder {
	if format == FormatModule {
		d.b.fail(errors.InvalidInput(errors.PhaseBuild, "module "+name+" cannot be nested"))
		return &DeclBuilder{b: d.b, id: types.NoDecl}
	}
	return d.nest(name, format)
}

// Formal appends a formal type parameter. A nil constraint means Object.
func (d *DeclBuilder) Formal(name string, constraint types.Node) *DeclBuilder {
	decl := d.edit("add formal " + name)
	if decl == nil {
		return d
	}
	if decl.FormalIndex(name) >= 0 {
		d.b.fail(errors.Duplicate(errors.PhaseBuild, "formal", decl.Name+"."+name))
		return d
	}
	if constraint == nil {
		constraint = d.b.Object()
	}
	decl.Formals = append(decl.Formals, Formal{Name: name, Constraint: constraint})
	return d
}

func (d *DeclBuilder) contribute(c Contribution) *DeclBuilder {
	decl := d.edit(c.Kind.String())
	if decl == nil {
		return d
	}
	if c.Type == nil {
		d.b.fail(errors.InvalidInput(errors.PhaseBuild, decl.Name+": "+c.Kind.String()+" without a type"))
		return d
	}
	decl.Contributions = append(decl.Contributions, c)
	return d
}

// Extends adds a superclass contribution
func (d *DeclBuilder) Extends(t types.Node) *DeclBuilder {
	return d.contribute(Contribution{Kind: Extends, Type: t})
}

// Incorporates adds a mixin contribution, optionally conditional on formal constraints
func (d *DeclBuilder) Incorporates(t types.Node, constraints ...Formal) *DeclBuilder {
	return d.contribute(Contribution{Kind: Incorporates, Type: t, Constraints: constraints})
}

// Implements adds an interface contribution
func (d *DeclBuilder) Implements(t types.Node) *DeclBuilder {
	return d.contribute(Contribution{Kind: Implements, Type: t})
}

// Delegates adds an interface contribution implemented by the named property
func (d *DeclBuilder) Delegates(t types.Node, property string) *DeclBuilder {
	return d.contribute(Contribution{Kind: Delegates, Type: t, Delegate: property})
}

// Into declares the type a mixin applies to
func (d *DeclBuilder) Into(t types.Node) *DeclBuilder {
	return d.contribute(Contribution{Kind: Into, Type: t})
}

// Contribute adds a contribution of any kind
func (d *DeclBuilder) Contribute(c Contribution) *DeclBuilder {
	return d.contribute(c)
}

// NextMethod returns the index the next added method will get;
// register refs and pending names inside that method use it.
func (d *DeclBuilder) NextMethod() int {
	decl := d.Declaration()
	if decl == nil {
		return 0
	}
	return len(decl.Methods)
}

// Method appends a method. A zero Access is public.
func (d *DeclBuilder) Method(m Method) *DeclBuilder {
	decl := d.edit("add method " + m.Name)
	if decl == nil {
		return d
	}
	for i, tp := range m.TypeParams {
		if tp.Constraint == nil {
			m.TypeParams[i].Constraint = d.b.Object()
		}
	}
	decl.Methods = append(decl.Methods, m)
	return d
}

// Property appends a property
func (d *DeclBuilder) Property(p Property) *DeclBuilder {
	decl := d.edit("add property " + p.Name)
	if decl == nil {
		return d
	}
	for _, existing := range decl.Properties {
		if existing.Name == p.Name {
			d.b.fail(errors.Duplicate(errors.PhaseBuild, "property", decl.Name+"."+p.Name))
			return d
		}
	}
	decl.Properties = append(decl.Properties, p)
	return d
}

// Typedef declares a named alias in this declaration's scope
func (d *DeclBuilder) Typedef(name string, t types.Node) types.TypedefID {
	decl := d.edit("add typedef " + name)
	if decl == nil {
		return types.TypedefID(arena.None)
	}
	if id, ok := decl.TypedefNamed(name); ok {
		d.b.fail(errors.Duplicate(errors.PhaseBuild, "typedef", decl.Name+"."+name))
		return id
	}
	id := types.TypedefID(d.b.repo.typedefs.Len())
	d.b.repo.typedefs.Alloc(&Typedef{ID: id, Name: name, Scope: d.id, Type: t})
	_ = decl.typedefs.Define(name, arena.ID(id))
	return id
}

// Type returns the type naming this declaration, parameterized by args
func (d *DeclBuilder) Type(args ...types.Node) types.Node {
	var ref types.Ref = types.ClassRef{Decl: d.id}
	if decl := d.Declaration(); decl != nil {
		switch decl.Format {
		case FormatModule:
			ref = types.ModuleRef{Decl: d.id}
		case FormatPackage:
			ref = types.PackageRef{Decl: d.id}
		}
	}
	return types.NewParameterized(types.NewTerminal(ref), args...)
}

// Param returns the type of this declaration's formal type parameter
func (d *DeclBuilder) Param(name string) types.Node {
	return types.NewTerminal(types.PropertyRef{Name: name, Decl: d.id})
}

// Register returns the type of a method's local type parameter
func (d *DeclBuilder) Register(method, index int, name string) types.Node {
	return types.NewTerminal(types.RegisterRef{Name: name, Decl: d.id, Method: method, Index: index})
}

// Pending returns an unresolved name written at class scope
func (d *DeclBuilder) Pending(name string) types.Node {
	return d.PendingIn(types.ClassScope, name)
}

// PendingIn returns an unresolved name written inside a method
func (d *DeclBuilder) PendingIn(method int, name string) types.Node {
	return types.NewTerminal(types.PendingRef{Name: name, Scope: types.Scope{Decl: d.id, Method: method}})
}

// This returns the auto-narrowing this type
func (d *DeclBuilder) This() types.Node {
	return types.NewTerminal(types.ThisClassRef{Decl: d.id})
}

// Parent returns the auto-narrowing type depth nesting levels up
func (d *DeclBuilder) Parent(depth int) types.Node {
	return types.NewTerminal(types.ParentClassRef{Decl: d.id, Depth: depth})
}

// Child returns the auto-narrowing child type name
func (d *DeclBuilder) Child(name string) types.Node {
	return types.NewTerminal(types.ChildClassRef{Decl: d.id, Name: name})
}
