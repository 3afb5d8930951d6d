package types

import (
	"hash/fnv"
	"strings"
)

// NodeKind identifies the variant of a type node
type NodeKind uint8

const (
	KindTerminal NodeKind = iota
	KindParameterized
	KindUnion
	KindIntersection
	KindAccess
	KindImmutable
	KindAnnotated
)

func (k NodeKind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindParameterized:
		return "parameterized"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindAccess:
		return "access"
	case KindImmutable:
		return "immutable"
	case KindAnnotated:
		return "annotated"
	default:
		return "unknown"
	}
}

// Node is an immutable type expression.
// The set of implementations is closed; nodes are built only through the
// New* constructors so that every node carries its canonical key.
type Node interface {
	Kind() NodeKind
	// Key is the canonical structural identity of the node.
	Key() string
	isNode()
}

// Terminal is a type that names something directly
type Terminal struct {
	ref Ref
	key string
}

// Parameterized is a base type with type arguments
type Parameterized struct {
	base Node
	key  string
	args []Node
}

// Union is satisfied by a value of either member type
type Union struct {
	left, right Node
	key         string
}

// Intersection is satisfied only by a value of both member types
type Intersection struct {
	left, right Node
	key         string
}

// AccessType is a type viewed at a specific access level
type AccessType struct {
	inner  Node
	key    string
	access Access
}

// Immutable requires the value to be immutable
type Immutable struct {
	inner Node
	key   string
}

// Annotated is a type with a mixin applied as a wrapper
type Annotated struct {
	annotation Node
	inner      Node
	key        string
}

// NewTerminal creates a terminal type for ref
func NewTerminal(ref Ref) *Terminal {
	return &Terminal{ref: ref, key: "T(" + ref.Key() + ")"}
}

// NewParameterized creates base<args...>. With no args the base is returned as is.
func NewParameterized(base Node, args ...Node) Node {
	if len(args) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base.Key())
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Key())
	}
	b.WriteByte('>')
	owned := make([]Node, len(args))
	copy(owned, args)
	return &Parameterized{base: base, args: owned, key: b.String()}
}

// NewUnion creates left | right
func NewUnion(left, right Node) *Union {
	return &Union{left: left, right: right, key: "(" + left.Key() + "|" + right.Key() + ")"}
}

// NewIntersection creates left + right
func NewIntersection(left, right Node) *Intersection {
	return &Intersection{left: left, right: right, key: "(" + left.Key() + "&" + right.Key() + ")"}
}

// NewAccess creates a view of inner at access level a
func NewAccess(a Access, inner Node) *AccessType {
	return &AccessType{access: a, inner: inner, key: a.String() + ":" + inner.Key()}
}

// NewImmutable creates immutable inner
func NewImmutable(inner Node) *Immutable {
	return &Immutable{inner: inner, key: "imm:" + inner.Key()}
}

// NewAnnotated creates @annotation inner
func NewAnnotated(annotation, inner Node) *Annotated {
	return &Annotated{annotation: annotation, inner: inner, key: "@" + annotation.Key() + " " + inner.Key()}
}

// Ref returns the defining reference
func (t *Terminal) Ref() Ref { return t.ref }

// Base returns the parameterized base type
func (p *Parameterized) Base() Node { return p.base }

// Args returns the type arguments. The slice must not be modified.
func (p *Parameterized) Args() []Node { return p.args }

// Left returns the first member
func (u *Union) Left() Node { return u.left }

// Right returns the second member
func (u *Union) Right() Node { return u.right }

// Left returns the first member
func (i *Intersection) Left() Node { return i.left }

// Right returns the second member
func (i *Intersection) Right() Node { return i.right }

// Access returns the access level
func (a *AccessType) Access() Access { return a.access }

// Inner returns the wrapped type
func (a *AccessType) Inner() Node { return a.inner }

// Inner returns the wrapped type
func (m *Immutable) Inner() Node { return m.inner }

// Annotation returns the mixin applied to the inner type
func (a *Annotated) Annotation() Node { return a.annotation }

// Inner returns the annotated type
func (a *Annotated) Inner() Node { return a.inner }

func (*Terminal) Kind() NodeKind      { return KindTerminal }
func (*Parameterized) Kind() NodeKind { return KindParameterized }
func (*Union) Kind() NodeKind         { return KindUnion }
func (*Intersection) Kind() NodeKind  { return KindIntersection }
func (*AccessType) Kind() NodeKind    { return KindAccess }
func (*Immutable) Kind() NodeKind     { return KindImmutable }
func (*Annotated) Kind() NodeKind     { return KindAnnotated }

func (t *Terminal) Key() string      { return t.key }
func (p *Parameterized) Key() string { return p.key }
func (u *Union) Key() string         { return u.key }
func (i *Intersection) Key() string  { return i.key }
func (a *AccessType) Key() string    { return a.key }
func (m *Immutable) Key() string     { return m.key }
func (a *Annotated) Key() string     { return a.key }

func (*Terminal) isNode()      {}
func (*Parameterized) isNode() {}
func (*Union) isNode()         {}
func (*Intersection) isNode()  {}
func (*AccessType) isNode()    {}
func (*Immutable) isNode()     {}
func (*Annotated) isNode()     {}

// Equal reports structural equality
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b || a.Key() == b.Key()
}

// Hash returns a hash consistent with Equal
func Hash(n Node) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(n.Key()))
	return h.Sum64()
}

// Split returns the terminal at the root of n together with its type arguments,
// looking through access, immutable and annotation wrappers.
// It reports false for unions, intersections and nil.
func Split(n Node) (*Terminal, []Node, bool) {
	switch t := n.(type) {
	case *Terminal:
		return t, nil, true
	case *Parameterized:
		term, _, ok := Split(t.base)
		return term, t.args, ok
	case *AccessType:
		return Split(t.inner)
	case *Immutable:
		return Split(t.inner)
	case *Annotated:
		return Split(t.inner)
	default:
		return nil, nil, false
	}
}

// RefOf returns the defining reference of a single-terminal node
func RefOf(n Node) (Ref, bool) {
	t, _, ok := Split(n)
	if !ok {
		return nil, false
	}
	return t.ref, true
}

// Unwrap strips access and immutable qualifiers
func Unwrap(n Node) Node {
	for {
		switch t := n.(type) {
		case *AccessType:
			n = t.inner
		case *Immutable:
			n = t.inner
		default:
			return n
		}
	}
}

// AccessOf returns the outermost access qualifier, or AccessPublic when none is given
func AccessOf(n Node) Access {
	for {
		switch t := n.(type) {
		case *AccessType:
			return t.access
		case *Immutable:
			n = t.inner
		case *Annotated:
			n = t.inner
		default:
			return AccessPublic
		}
	}
}

// IsImmutable reports whether n carries an immutable qualifier
func IsImmutable(n Node) bool {
	for {
		switch t := n.(type) {
		case *Immutable:
			return true
		case *AccessType:
			n = t.inner
		case *Annotated:
			n = t.inner
		default:
			return false
		}
	}
}
