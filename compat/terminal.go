package compat

import (
	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
)

// IsClassType reports whether n names exactly one class, interface or mixin
// (possibly parameterized or qualified). Formals, modules and packages do not count.
func (c *Checker) IsClassType(n types.Node) bool {
	term, _, ok := types.Split(n)
	if !ok {
		return false
	}
	switch term.Ref().(type) {
	case types.ClassRef, types.ThisClassRef, types.ParentClassRef, types.ChildClassRef:
		_, ok := c.declarationLevel(term.Ref())
		return ok
	default:
		return false
	}
}

// SingleUnderlyingClass returns the one class a type stands for, looking
// through qualifiers and formal constraints
func (c *Checker) SingleUnderlyingClass(n types.Node) (types.DeclID, bool) {
	n = c.prepare(n, errors.PhaseQuery)
	seen := make(map[string]bool)
	for !seen[n.Key()] {
		seen[n.Key()] = true
		switch t := n.(type) {
		case *types.Union:
			return types.NoDecl, false
		case *types.Intersection:
			l, lok := c.SingleUnderlyingClass(t.Left())
			r, rok := c.SingleUnderlyingClass(t.Right())
			if lok && rok && l == r {
				return l, true
			}
			return types.NoDecl, false
		}
		term, _, ok := types.Split(n)
		if !ok {
			return types.NoDecl, false
		}
		if constraint, ok := c.constraintOf(term.Ref()); ok {
			n = constraint
			continue
		}
		return c.declarationLevel(term.Ref())
	}
	return types.NoDecl, false
}

// IsSingleUnderlyingClass reports whether SingleUnderlyingClass succeeds
func (c *Checker) IsSingleUnderlyingClass(n types.Node) bool {
	_, ok := c.SingleUnderlyingClass(n)
	return ok
}

// ExplicitClassFormat returns the format of the class a type names
func (c *Checker) ExplicitClassFormat(n types.Node) (decl.Format, bool) {
	id, ok := c.SingleUnderlyingClass(n)
	if !ok {
		return decl.FormatClass, false
	}
	return c.mustDecl(id).Format, true
}

// ExplicitClassInto returns the type a mixin applies to: its own into-type, or
// that of the mixin it extends, or Object
func (c *Checker) ExplicitClassInto(n types.Node) types.Node {
	n = c.prepare(n, errors.PhaseQuery)
	seen := make(map[types.DeclID]bool)
	for {
		term, args, ok := types.Split(n)
		if !ok {
			return c.objectType()
		}
		id, ok := c.declarationLevel(term.Ref())
		if !ok || seen[id] {
			return c.objectType()
		}
		seen[id] = true
		d := c.mustDecl(id)
		if into, ok := d.FindContribution(decl.Into); ok {
			return substituteArgs(into.Type, d, args)
		}
		ext, ok := d.FindContribution(decl.Extends)
		if !ok {
			return c.objectType()
		}
		n = substituteArgs(ext.Type, d, args)
	}
}

// ExtendsClass reports whether the class named by n is super or extends it,
// following extends steps only
func (c *Checker) ExtendsClass(n types.Node, super types.DeclID) bool {
	id, ok := c.SingleUnderlyingClass(n)
	if !ok {
		return false
	}
	seen := make(map[types.DeclID]bool)
	for id != types.NoDecl && !seen[id] {
		if id == super {
			return true
		}
		seen[id] = true
		id = c.superclass(c.mustDecl(id))
	}
	return super == c.repo.Object()
}

// IsConstant reports whether values of the type are always immutable by format
func (c *Checker) IsConstant(n types.Node) bool {
	format, ok := c.ExplicitClassFormat(n)
	return ok && format.IsImmutable()
}

// MaxParamsCount returns the number of formal type parameters of the class a type names
func (c *Checker) MaxParamsCount(n types.Node) int {
	id, ok := c.SingleUnderlyingClass(n)
	if !ok {
		return 0
	}
	return len(c.mustDecl(id).Formals)
}

// ContainsUnresolved reports whether n still holds pending references
func ContainsUnresolved(n types.Node) bool {
	return !types.IsResolved(n)
}

// GenericResolver supplies actual types for formal type parameters
type GenericResolver interface {
	ResolveGenericType(formal types.Ref) (types.Node, bool)
}

// ResolveGenerics replaces every formal the resolver knows by its actual type
func ResolveGenerics(n types.Node, r GenericResolver) types.Node {
	return types.Rewrite(n, func(t *types.Terminal) (types.Node, bool) {
		if !t.Ref().Kind().IsFormal() {
			return nil, false
		}
		return r.ResolveGenericType(t.Ref())
	})
}

// Bindings maps the formals of a parameterized class type to its arguments,
// defaulting missing ones to their constraints
type Bindings struct {
	args  map[string]types.Node
	owner types.DeclID
}

// Bindings returns the formal bindings carried by a class type
func (c *Checker) Bindings(n types.Node) Bindings {
	n = c.normalize(c.prepare(n, errors.PhaseQuery))
	b := Bindings{args: make(map[string]types.Node), owner: types.NoDecl}
	term, args, ok := types.Split(n)
	if !ok {
		return b
	}
	id, ok := c.declarationLevel(term.Ref())
	if !ok {
		return b
	}
	b.owner = id
	for i, f := range c.mustDecl(id).Formals {
		if i < len(args) {
			b.args[f.Name] = args[i]
		}
	}
	return b
}

// ResolveGenericType implements GenericResolver
func (b Bindings) ResolveGenericType(formal types.Ref) (types.Node, bool) {
	p, ok := formal.(types.PropertyRef)
	if !ok || p.Decl != b.owner {
		return nil, false
	}
	n, ok := b.args[p.Name]
	return n, ok
}
