package witimport

import (
	"fmt"
	"strconv"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
)

// Options configures how WIT types are declared
type Options struct {
	// Module holds the primitive and built-in generic declarations.
	Module string
	// Package, when set, holds imported definitions inside Module.
	Package string
	// RecordsAsInterfaces declares records as interfaces so that a record with
	// more fields is structurally assignable to one with fewer.
	RecordsAsInterfaces bool
}

// DefaultOptions returns default importer configuration
func DefaultOptions() Options {
	return Options{Module: "wit"}
}

// Func is an interface function to import as a method
type Func struct {
	Name    string
	Params  []Param
	Results []wit.Type
}

// Param is a named function parameter
type Param struct {
	Type wit.Type
	Name string
}

// Importer declares WIT types in a decl.Builder.
//
// Primitives become const classes; list, option, result and tuples become
// generic classes with read-only accessors, so they are covariant in their
// element types. Records become classes (or interfaces) with read-only
// properties, variants and enums become an enum extended by one const class
// per case, flags become a const class with a bool property per flag.
// An own handle is assignable to a borrow handle.
//
// Importer is not safe for concurrent use.
type Importer struct {
	module   *decl.DeclBuilder
	scope    *decl.DeclBuilder
	opts     Options
	builtins map[string]*decl.DeclBuilder
	tuples   map[int]*decl.DeclBuilder
	defined  map[*wit.TypeDef]types.Node
	anon     int
}

// New creates an importer writing into b
func New(b *decl.Builder, opts Options) *Importer {
	if opts.Module == "" {
		opts.Module = DefaultOptions().Module
	}
	module := b.Module(opts.Module)
	scope := module
	if opts.Package != "" {
		scope = module.Package(opts.Package)
	}
	return &Importer{
		module:   module,
		scope:    scope,
		opts:     opts,
		builtins: make(map[string]*decl.DeclBuilder),
		tuples:   make(map[int]*decl.DeclBuilder),
		defined:  make(map[*wit.TypeDef]types.Node),
	}
}

// NewWithDefaults creates an importer with default options
func NewWithDefaults(b *decl.Builder) *Importer {
	return New(b, DefaultOptions())
}

// Scope returns the declaration imported definitions are placed in
func (im *Importer) Scope() types.DeclID {
	return im.scope.ID()
}

// Define declares t under name and returns the type naming it. Records,
// variants, enums and flags become declarations; any other type becomes a typedef.
func (im *Importer) Define(name string, t wit.Type) (types.Node, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "definition without a name")
	}
	td, ok := t.(*wit.TypeDef)
	if !ok {
		n, err := im.Type(t)
		if err != nil {
			return nil, err
		}
		id := im.scope.Typedef(name, n)
		return types.NewTerminal(types.TypedefRef{Typedef: id}), nil
	}
	if n, ok := im.defined[td]; ok {
		return n, nil
	}

	var n types.Node
	var err error
	switch kind := td.Kind.(type) {
	case *wit.Record:
		n, err = im.record(name, kind)
	case *wit.Variant:
		n, err = im.variant(name, kind)
	case *wit.Enum:
		n = im.enum(name, kind)
	case *wit.Flags:
		n = im.flags(name, kind)
	default:
		var target types.Node
		if target, err = im.kind(td); err == nil {
			id := im.scope.Typedef(name, target)
			n = types.NewTerminal(types.TypedefRef{Typedef: id})
		}
	}
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}
	im.defined[td] = n
	Logger().Debug("defined", zap.String("name", name), zap.String("kind", fmt.Sprintf("%T", td.Kind)))
	return n, nil
}

// Type converts a WIT type into a type node. Named type definitions seen for
// the first time are defined under their own name; anonymous records,
// variants, enums and flags get a generated one.
func (im *Importer) Type(t wit.Type) (types.Node, error) {
	switch v := t.(type) {
	case nil:
		return im.builtin("unit").Type(), nil
	case wit.Bool:
		return im.builtin("bool").Type(), nil
	case wit.S8:
		return im.builtin("s8").Type(), nil
	case wit.U8:
		return im.builtin("u8").Type(), nil
	case wit.S16:
		return im.builtin("s16").Type(), nil
	case wit.U16:
		return im.builtin("u16").Type(), nil
	case wit.S32:
		return im.builtin("s32").Type(), nil
	case wit.U32:
		return im.builtin("u32").Type(), nil
	case wit.S64:
		return im.builtin("s64").Type(), nil
	case wit.U64:
		return im.builtin("u64").Type(), nil
	case wit.F32:
		return im.builtin("f32").Type(), nil
	case wit.F64:
		return im.builtin("f64").Type(), nil
	case wit.Char:
		return im.builtin("char").Type(), nil
	case wit.String:
		return im.builtin("string").Type(), nil
	case *wit.TypeDef:
		if n, ok := im.defined[v]; ok {
			return n, nil
		}
		if v.Name != nil {
			return im.Define(*v.Name, v)
		}
		switch v.Kind.(type) {
		case *wit.Record, *wit.Variant, *wit.Enum, *wit.Flags:
			im.anon++
			return im.Define("anon-"+strconv.Itoa(im.anon), v)
		}
		return im.kind(v)
	default:
		return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("WIT type %T", t))
	}
}

// kind converts the structural type definitions
func (im *Importer) kind(td *wit.TypeDef) (types.Node, error) {
	switch kind := td.Kind.(type) {
	case *wit.List:
		elem, err := im.Type(kind.Type)
		if err != nil {
			return nil, fmt.Errorf("list element: %w", err)
		}
		return im.generic("list", "get", "T").Type(elem), nil
	case *wit.Option:
		elem, err := im.Type(kind.Type)
		if err != nil {
			return nil, fmt.Errorf("option: %w", err)
		}
		return im.generic("option", "get", "T").Type(elem), nil
	case *wit.Result:
		ok, err := im.Type(kind.OK)
		if err != nil {
			return nil, fmt.Errorf("result ok: %w", err)
		}
		failed, err := im.Type(kind.Err)
		if err != nil {
			return nil, fmt.Errorf("result err: %w", err)
		}
		return im.result().Type(ok, failed), nil
	case *wit.Tuple:
		elems := make([]types.Node, len(kind.Types))
		for i, e := range kind.Types {
			n, err := im.Type(e)
			if err != nil {
				return nil, fmt.Errorf("tuple element %d: %w", i, err)
			}
			elems[i] = n
		}
		return im.tuple(len(elems)).Type(elems...), nil
	case *wit.Own:
		return im.handles()[0].Type(), nil
	case *wit.Borrow:
		return im.handles()[1].Type(), nil
	case wit.Type:
		return im.Type(kind)
	default:
		return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("WIT type definition %T", td.Kind))
	}
}

// Interface declares a WIT interface with one method per function
func (im *Importer) Interface(name string, funcs []Func) (types.Node, error) {
	iface := im.scope.Interface(name)
	for _, f := range funcs {
		m := decl.Method{Name: f.Name}
		for _, p := range f.Params {
			n, err := im.Type(p.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s param %s: %w", name, f.Name, p.Name, err)
			}
			m.Params = append(m.Params, decl.Param{Name: p.Name, Type: n})
		}
		for i, r := range f.Results {
			n, err := im.Type(r)
			if err != nil {
				return nil, fmt.Errorf("%s.%s result %d: %w", name, f.Name, i, err)
			}
			m.Returns = append(m.Returns, n)
		}
		iface.Method(m)
	}
	return iface.Type(), nil
}

func (im *Importer) record(name string, r *wit.Record) (types.Node, error) {
	format := decl.FormatConst
	if im.opts.RecordsAsInterfaces {
		format = decl.FormatInterface
	}
	d := im.scope.Declare(name, format)
	for _, f := range r.Fields {
		n, err := im.Type(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		d.Property(decl.Property{Name: f.Name, Type: n, ReadOnly: true})
	}
	return d.Type(), nil
}

func (im *Importer) variant(name string, v *wit.Variant) (types.Node, error) {
	sum := im.scope.Enum(name)
	for _, c := range v.Cases {
		kase := sum.Const(c.Name).Extends(sum.Type())
		if c.Type == nil {
			continue
		}
		n, err := im.Type(c.Type)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		kase.Property(decl.Property{Name: "value", Type: n, ReadOnly: true})
	}
	return sum.Type(), nil
}

func (im *Importer) enum(name string, e *wit.Enum) types.Node {
	sum := im.scope.Enum(name)
	for _, c := range e.Cases {
		sum.Const(c.Name).Extends(sum.Type())
	}
	return sum.Type()
}

func (im *Importer) flags(name string, f *wit.Flags) types.Node {
	d := im.scope.Const(name)
	b := im.builtin("bool").Type()
	for _, flag := range f.Flags {
		d.Property(decl.Property{Name: flag.Name, Type: b, ReadOnly: true})
	}
	return d.Type()
}

// builtin returns a primitive const class, declared on first use
func (im *Importer) builtin(name string) *decl.DeclBuilder {
	if d, ok := im.builtins[name]; ok {
		return d
	}
	d := im.module.Const(name)
	im.builtins[name] = d
	return d
}

// generic returns a class with read-only accessor for each formal
func (im *Importer) generic(name, accessor string, formals ...string) *decl.DeclBuilder {
	if d, ok := im.builtins[name]; ok {
		return d
	}
	d := im.module.Const(name)
	for _, f := range formals {
		d.Formal(f, nil)
	}
	for _, f := range formals {
		d.Method(decl.Method{Name: accessor, Returns: []types.Node{d.Param(f)}})
	}
	im.builtins[name] = d
	return d
}

func (im *Importer) result() *decl.DeclBuilder {
	if d, ok := im.builtins["result"]; ok {
		return d
	}
	d := im.module.Const("result").Formal("O", nil).Formal("E", nil)
	d.Property(decl.Property{Name: "ok", Type: d.Param("O"), ReadOnly: true})
	d.Property(decl.Property{Name: "err", Type: d.Param("E"), ReadOnly: true})
	im.builtins["result"] = d
	return d
}

func (im *Importer) tuple(arity int) *decl.DeclBuilder {
	if d, ok := im.tuples[arity]; ok {
		return d
	}
	d := im.module.Const("tuple" + strconv.Itoa(arity))
	for i := 0; i < arity; i++ {
		d.Formal("T"+strconv.Itoa(i), nil)
	}
	for i := 0; i < arity; i++ {
		d.Property(decl.Property{
			Name:     strconv.Itoa(i),
			Type:     d.Param("T" + strconv.Itoa(i)),
			ReadOnly: true,
		})
	}
	im.tuples[arity] = d
	return d
}

// handles returns the own and borrow handle classes
func (im *Importer) handles() [2]*decl.DeclBuilder {
	borrow, ok := im.builtins["borrow"]
	if !ok {
		borrow = im.module.Class("borrow")
		im.builtins["borrow"] = borrow
	}
	own, ok := im.builtins["own"]
	if !ok {
		own = im.module.Class("own").Extends(borrow.Type())
		im.builtins["own"] = own
	}
	return [2]*decl.DeclBuilder{own, borrow}
}
