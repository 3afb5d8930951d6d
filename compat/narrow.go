package compat

import (
	"fmt"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
)

// ResolveAutoNarrowing rewrites every auto-narrowing reference in n relative to
// the context class ctx:
//   - this becomes ctx, parameterized by ctx's own formals
//   - this:parent at depth d becomes the class d nesting levels above ctx
//   - this:child(name) becomes the child class name of ctx, or of a class ctx extends
//
// A reference that cannot be narrowed yields an IllegalNarrowing error, which is
// also reported to the listener.
func (c *Checker) ResolveAutoNarrowing(n types.Node, ctx types.DeclID) (out types.Node, err error) {
	defer Recover(&err)
	if _, derr := c.repo.Declaration(ctx); derr != nil {
		return nil, derr
	}
	n = c.prepare(n, errors.PhaseNarrow)

	return types.RewriteErr(n, func(t *types.Terminal) (types.Node, bool, error) {
		switch ref := t.Ref().(type) {
		case types.ThisClassRef:
			if ref.Decl != ctx && !c.inherits(ctx, ref.Decl) {
				return nil, false, c.illegalNarrowing(ctx, ref, fmt.Sprintf(
					"%s is not %s or a subclass of it", c.repo.QualifiedName(ctx), c.repo.QualifiedName(ref.Decl)))
			}
			return c.classType(ctx), true, nil

		case types.ParentClassRef:
			ancestors := c.repo.Ancestors(ctx)
			if ref.Depth < 1 || ref.Depth > len(ancestors) {
				return nil, false, c.illegalNarrowing(ctx, ref, fmt.Sprintf(
					"no enclosing class %d levels above %s", ref.Depth, c.repo.QualifiedName(ctx)))
			}
			return c.classType(ancestors[ref.Depth-1]), true, nil

		case types.ChildClassRef:
			child, ok := c.virtualChild(ctx, ref.Name)
			if !ok {
				return nil, false, c.illegalNarrowing(ctx, ref, fmt.Sprintf(
					"%s has no child class %q", c.repo.QualifiedName(ctx), ref.Name))
			}
			return c.classType(child), true, nil
		}
		return nil, false, nil
	})
}

func (c *Checker) illegalNarrowing(ctx types.DeclID, ref types.Ref, detail string) error {
	err := errors.IllegalNarrowing(c.repo.QualifiedName(ctx), detail)
	err.Type = types.FormatRef(ref, c.repo)
	c.listener.Report(errors.SeverityError, "narrow:"+ref.Key()+"@"+c.repo.QualifiedName(ctx), err)
	return err
}

// InferAutoNarrowing is the inverse of ResolveAutoNarrowing for the context class
// itself: a reference to ctx (raw, or parameterized by its own formals) becomes this.
func (c *Checker) InferAutoNarrowing(n types.Node, ctx types.DeclID) types.Node {
	self := c.classType(ctx)
	this := types.NewTerminal(types.ThisClassRef{Decl: ctx})

	var infer func(types.Node) types.Node
	infer = func(n types.Node) types.Node {
		switch t := n.(type) {
		case *types.Union:
			return types.NewUnion(infer(t.Left()), infer(t.Right()))
		case *types.Intersection:
			return types.NewIntersection(infer(t.Left()), infer(t.Right()))
		case *types.AccessType:
			return types.NewAccess(t.Access(), infer(t.Inner()))
		case *types.Immutable:
			return types.NewImmutable(infer(t.Inner()))
		case *types.Annotated:
			return types.NewAnnotated(t.Annotation(), infer(t.Inner()))
		case *types.Terminal:
			if ref, ok := t.Ref().(types.ClassRef); ok && ref.Decl == ctx {
				return this
			}
		case *types.Parameterized:
			if types.Equal(t, self) {
				return this
			}
			args := make([]types.Node, len(t.Args()))
			for i, a := range t.Args() {
				args[i] = infer(a)
			}
			return types.NewParameterized(t.Base(), args...)
		}
		return n
	}
	return infer(n)
}

// DeclarationLevelClass returns the declaration a reference stands for. Auto-narrowing
// references resolve against the class they were written in.
func (c *Checker) DeclarationLevelClass(ref types.Ref) (types.DeclID, bool) {
	return c.declarationLevel(ref)
}

func (c *Checker) declarationLevel(ref types.Ref) (types.DeclID, bool) {
	switch r := ref.(type) {
	case types.ModuleRef, types.PackageRef, types.ClassRef:
		return types.DeclOf(r)
	case types.ThisClassRef:
		return r.Decl, true
	case types.ParentClassRef:
		ancestors := c.repo.Ancestors(r.Decl)
		if r.Depth < 1 || r.Depth > len(ancestors) {
			return types.NoDecl, false
		}
		return ancestors[r.Depth-1], true
	case types.ChildClassRef:
		return c.virtualChild(r.Decl, r.Name)
	case types.PendingRef:
		c.invariant(errors.PhaseQuery, "pending reference %q reached the checker", r.Name)
	}
	return types.NoDecl, false
}

// virtualChild finds a child class of id or of a class id extends
func (c *Checker) virtualChild(id types.DeclID, name string) (types.DeclID, bool) {
	seen := make(map[types.DeclID]bool)
	for id != types.NoDecl && !seen[id] {
		seen[id] = true
		d := c.mustDecl(id)
		if child, ok := d.Child(name); ok {
			return child, true
		}
		id = c.superclass(d)
	}
	return types.NoDecl, false
}

// superclass returns the declaration named by the Extends contribution
func (c *Checker) superclass(d *decl.Declaration) types.DeclID {
	ext, ok := d.FindContribution(decl.Extends)
	if !ok {
		return types.NoDecl
	}
	ref, ok := types.RefOf(ext.Type)
	if !ok {
		return types.NoDecl
	}
	id, ok := types.DeclOf(ref)
	if !ok {
		return types.NoDecl
	}
	return id
}

// inherits reports whether sub reaches super through its contributions
func (c *Checker) inherits(sub, super types.DeclID) bool {
	seen := make(map[types.DeclID]bool)
	var walk func(types.DeclID) bool
	walk = func(id types.DeclID) bool {
		if id == super {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		for _, contrib := range c.mustDecl(id).Contributions {
			ref, ok := types.RefOf(contrib.Type)
			if !ok {
				continue
			}
			if next, ok := types.DeclOf(ref); ok && walk(next) {
				return true
			}
		}
		return false
	}
	return walk(sub)
}
