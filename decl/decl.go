package decl

import (
	"fmt"
	"strings"

	"github.com/wippyai/typecore/internal/arena"
	"github.com/wippyai/typecore/types"
)

// Format is the kind of a declaration
type Format uint8

const (
	FormatClass Format = iota
	FormatInterface
	FormatMixin
	FormatConst
	FormatEnum
	FormatService
	FormatModule
	FormatPackage
)

var formatNames = [...]string{
	FormatClass:     "class",
	FormatInterface: "interface",
	FormatMixin:     "mixin",
	FormatConst:     "const",
	FormatEnum:      "enum",
	FormatService:   "service",
	FormatModule:    "module",
	FormatPackage:   "package",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// ParseFormat converts a keyword into a Format
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if name == s {
			return Format(i), nil
		}
	}
	return FormatClass, fmt.Errorf("unknown declaration format %q", s)
}

// IsImmutable reports whether instances of the format are always immutable
func (f Format) IsImmutable() bool {
	switch f {
	case FormatConst, FormatEnum, FormatModule, FormatPackage:
		return true
	default:
		return false
	}
}

// IsClassLike reports whether the format names a type that can be instantiated or
// composed, as opposed to interfaces
func (f Format) IsClassLike() bool {
	return f != FormatInterface
}

// Composition is the kind of a composition step
type Composition uint8

const (
	Equal Composition = iota
	Extends
	Incorporates
	Implements
	Delegates
	Into
	Annotation
	MaybeStructural
)

var compositionNames = [...]string{
	Equal:           "equal",
	Extends:         "extends",
	Incorporates:    "incorporates",
	Implements:      "implements",
	Delegates:       "delegates",
	Into:            "into",
	Annotation:      "annotation",
	MaybeStructural: "maybe-structural",
}

func (c Composition) String() string {
	if int(c) < len(compositionNames) {
		return compositionNames[c]
	}
	return fmt.Sprintf("composition(%d)", uint8(c))
}

// ParseComposition converts a keyword into a Composition
func ParseComposition(s string) (Composition, error) {
	for i, name := range compositionNames {
		if name == s {
			return Composition(i), nil
		}
	}
	return Equal, fmt.Errorf("unknown composition %q", s)
}

// Rank orders composition kinds for chain building:
// extends < incorporates < implements < delegates < into
func (c Composition) Rank() int {
	switch c {
	case Extends:
		return 1
	case Incorporates, Annotation:
		return 2
	case Implements:
		return 3
	case Delegates:
		return 4
	case Into:
		return 5
	default:
		return 0
	}
}

// Contribution is one declared composition step of a declaration
type Contribution struct {
	Type types.Node
	// Delegate names the property that holds the delegatee
	Delegate string
	// Constraints restrict a conditional incorporation to formals satisfying them
	Constraints []Formal
	Kind        Composition
}

// Formal is a named type parameter with its constraint (upper bound)
type Formal struct {
	Constraint types.Node
	Name       string
}

// Param is a method parameter
type Param struct {
	Type types.Node
	Name string
}

// Method is a method declared on a class
type Method struct {
	Name       string
	TypeParams []Formal
	Params     []Param
	Returns    []types.Node
	Access     types.Access
}

// Property is a property declared on a class
type Property struct {
	Type     types.Node
	Name     string
	Access   types.Access
	ReadOnly bool
}

// SignatureKind distinguishes methods from properties
type SignatureKind uint8

const (
	SigMethod SignatureKind = iota
	SigProperty
)

// Signature is the uniform view of a member used for structural matching
// and variance analysis
type Signature struct {
	Name       string
	Params     []types.Node
	Returns    []types.Node
	Owner      types.DeclID
	Method     int // index into the owner's methods, or -1 for properties
	TypeParams int
	Kind       SignatureKind
	Access     types.Access
	ReadOnly   bool
}

// Format renders the signature for diagnostics
func (s Signature) Format(names types.Namer) string {
	var b strings.Builder
	if s.Kind == SigProperty {
		b.WriteString(types.Format(s.Returns[0], names))
		b.WriteByte(' ')
		b.WriteString(s.Name)
		if s.ReadOnly {
			b.WriteString(".get")
		}
		return b.String()
	}

	switch len(s.Returns) {
	case 0:
		b.WriteString("void")
	case 1:
		b.WriteString(types.Format(s.Returns[0], names))
	default:
		b.WriteByte('(')
		for i, r := range s.Returns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(types.Format(r, names))
		}
		b.WriteByte(')')
	}
	b.WriteByte(' ')
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(types.Format(p, names))
	}
	b.WriteByte(')')
	return b.String()
}

// Typedef is a named type alias
type Typedef struct {
	Type  types.Node
	Name  string
	ID    types.TypedefID
	Scope types.DeclID
}

// Declaration is a class, interface, mixin, const, enum, service, module or package
type Declaration struct {
	children      *arena.Index
	typedefs      *arena.Index
	Name          string
	Contributions []Contribution
	Formals       []Formal
	Methods       []Method
	Properties    []Property
	ID            types.DeclID
	Parent        types.DeclID
	Format        Format
}

func newDeclaration(id, parent types.DeclID, name string, format Format) *Declaration {
	return &Declaration{
		ID:       id,
		Parent:   parent,
		Name:     name,
		Format:   format,
		children: arena.NewIndex(),
		typedefs: arena.NewIndex(),
	}
}

// clone copies the declaration so a linked copy can replace it
func (d *Declaration) clone() *Declaration {
	c := *d
	c.Contributions = append([]Contribution(nil), d.Contributions...)
	c.Formals = append([]Formal(nil), d.Formals...)
	c.Methods = make([]Method, len(d.Methods))
	for i, m := range d.Methods {
		m.TypeParams = append([]Formal(nil), m.TypeParams...)
		m.Params = append([]Param(nil), m.Params...)
		m.Returns = append([]types.Node(nil), m.Returns...)
		c.Methods[i] = m
	}
	c.Properties = append([]Property(nil), d.Properties...)
	return &c
}

// CompositionSteps returns the declared contributions in declaration order
func (d *Declaration) CompositionSteps() []Contribution {
	result := make([]Contribution, len(d.Contributions))
	copy(result, d.Contributions)
	return result
}

// FindContribution returns the first contribution of the given kind
func (d *Declaration) FindContribution(kind Composition) (Contribution, bool) {
	for _, c := range d.Contributions {
		if c.Kind == kind {
			return c, true
		}
	}
	return Contribution{}, false
}

// FormalParameters returns the formal type parameters in positional order
func (d *Declaration) FormalParameters() []Formal {
	result := make([]Formal, len(d.Formals))
	copy(result, d.Formals)
	return result
}

// FormalNames returns the formal parameter names in positional order
func (d *Declaration) FormalNames() []string {
	names := make([]string, len(d.Formals))
	for i, f := range d.Formals {
		names[i] = f.Name
	}
	return names
}

// FormalIndex returns the position of the named formal, or -1
func (d *Declaration) FormalIndex(name string) int {
	for i, f := range d.Formals {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Child returns the nested declaration with the given name
func (d *Declaration) Child(name string) (types.DeclID, bool) {
	id, ok := d.children.Lookup(name)
	return types.DeclID(id), ok
}

// ChildNames returns nested declaration names in declaration order
func (d *Declaration) ChildNames() []string {
	return d.children.Names()
}

// TypedefNamed returns the typedef declared in this declaration's scope
func (d *Declaration) TypedefNamed(name string) (types.TypedefID, bool) {
	id, ok := d.typedefs.Lookup(name)
	return types.TypedefID(id), ok
}

// Surface returns the members visible at the given access level, properties first,
// each group in declaration order. Inherited members are not included.
func (d *Declaration) Surface(access types.Access) []Signature {
	var sigs []Signature
	for _, p := range d.Properties {
		if !access.Permits(p.Access) {
			continue
		}
		sigs = append(sigs, Signature{
			Kind:     SigProperty,
			Name:     p.Name,
			Access:   p.Access,
			Returns:  []types.Node{p.Type},
			ReadOnly: p.ReadOnly,
			Owner:    d.ID,
			Method:   -1,
		})
	}
	for i, m := range d.Methods {
		if !access.Permits(m.Access) {
			continue
		}
		params := make([]types.Node, len(m.Params))
		for j, p := range m.Params {
			params[j] = p.Type
		}
		sigs = append(sigs, Signature{
			Kind:       SigMethod,
			Name:       m.Name,
			Access:     m.Access,
			TypeParams: len(m.TypeParams),
			Params:     params,
			Returns:    append([]types.Node(nil), m.Returns...),
			Owner:      d.ID,
			Method:     i,
		})
	}
	return sigs
}
