package compat

import (
	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
)

// usageMode selects the direction a formal type flows in
type usageMode uint8

const (
	production usageMode = iota
	consumption
)

func (m usageMode) flip() usageMode {
	if m == production {
		return consumption
	}
	return production
}

type varianceKey struct {
	formal string
	decl   types.DeclID
	access types.Access
	mode   usageMode
}

// Variance summarises how a formal type parameter is used
type Variance uint8

const (
	Bivariant Variance = iota
	Covariant
	Contravariant
	Invariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	case Invariant:
		return "invariant"
	default:
		return "bivariant"
	}
}

// CheckProduction reports whether the declaration produces values of its formal
// type parameter through the members visible at access: a method returning it,
// a property exposing it, or a parameter accepting a consumer of it. Actual args
// bind the other formals when contributions are inspected.
func (c *Checker) CheckProduction(id types.DeclID, formal string, access types.Access, args []types.Node) types.Usage {
	return c.checkUsage(id, formal, access, args, production)
}

// CheckConsumption reports whether the declaration consumes values of its formal
// type parameter through the members visible at access: a method or writable
// property accepting it, or a member producing a consumer of it.
func (c *Checker) CheckConsumption(id types.DeclID, formal string, access types.Access, args []types.Node) types.Usage {
	return c.checkUsage(id, formal, access, args, consumption)
}

// Variance summarises production and consumption of a formal
func (c *Checker) Variance(id types.DeclID, formal string, access types.Access) Variance {
	produces := c.CheckProduction(id, formal, access, nil).Yes()
	consumes := c.CheckConsumption(id, formal, access, nil).Yes()
	switch {
	case produces && consumes:
		return Invariant
	case produces:
		return Covariant
	case consumes:
		return Contravariant
	default:
		return Bivariant
	}
}

// TypeProduces reports whether a value of type n produces the named formal
func (c *Checker) TypeProduces(n types.Node, formal types.PropertyRef, access types.Access) types.Usage {
	n = c.prepare(n, errors.PhaseVariance)
	return c.newQuery(true).typeUsage(n, formal, access, production)
}

// TypeConsumes reports whether a value of type n consumes the named formal
func (c *Checker) TypeConsumes(n types.Node, formal types.PropertyRef, access types.Access) types.Usage {
	n = c.prepare(n, errors.PhaseVariance)
	return c.newQuery(true).typeUsage(n, formal, access, consumption)
}

func (c *Checker) checkUsage(id types.DeclID, formal string, access types.Access, args []types.Node, mode usageMode) types.Usage {
	d := c.mustDecl(id)
	if d.FormalIndex(formal) < 0 {
		c.invariant(errors.PhaseVariance, "%s has no formal type parameter %q", d.Name, formal)
	}
	return c.newQuery(true).declUsage(id, formal, access, args, mode)
}

// declUsage scans the visible surface and contributions of a declaration.
// A re-entrant question for the same formal answers No.
func (q *query) declUsage(id types.DeclID, formal string, access types.Access, args []types.Node, mode usageMode) types.Usage {
	key := varianceKey{decl: id, formal: formal, access: access, mode: mode}
	cacheable := len(args) == 0
	if cacheable {
		if v, ok := q.c.variance.Load(key); ok {
			return v.(types.Usage)
		}
	}
	if _, onStack := q.vstack[key]; onStack {
		q.cuts++
		return types.UsageNo
	}
	q.vstack[key] = struct{}{}
	defer delete(q.vstack, key)

	cuts := q.cuts
	result := q.scanDecl(id, formal, access, args, mode)
	if cacheable && q.cuts == cuts {
		q.c.variance.Store(key, result)
	}
	return result
}

func (q *query) scanDecl(id types.DeclID, formal string, access types.Access, args []types.Node, mode usageMode) types.Usage {
	d := q.c.mustDecl(id)
	target := types.PropertyRef{Name: formal, Decl: id}
	bind := bindOthers(d, formal, args)

	for _, sig := range d.Surface(access) {
		if sig.Kind == decl.SigProperty {
			t := bind(sig.Returns[0])
			if q.typeUsage(t, target, access, mode).Yes() {
				return types.UsageYes
			}
			if !sig.ReadOnly && q.typeUsage(t, target, access, mode.flip()).Yes() {
				return types.UsageYes
			}
			continue
		}
		for _, r := range sig.Returns {
			if q.typeUsage(bind(r), target, access, mode).Yes() {
				return types.UsageYes
			}
		}
		for _, p := range sig.Params {
			if q.typeUsage(bind(p), target, access, mode.flip()).Yes() {
				return types.UsageYes
			}
		}
	}

	for _, contrib := range d.Contributions {
		if contrib.Kind == decl.Into {
			continue
		}
		if q.typeUsage(bind(contrib.Type), target, access, mode).Yes() {
			return types.UsageYes
		}
	}
	return types.UsageNo
}

// bindOthers substitutes actual args for every formal except the one analysed
func bindOthers(d *decl.Declaration, formal string, args []types.Node) func(types.Node) types.Node {
	if len(args) == 0 {
		return func(n types.Node) types.Node { return n }
	}
	bound := make([]types.Node, len(d.Formals))
	for i, f := range d.Formals {
		if f.Name != formal && i < len(args) {
			bound[i] = args[i]
		}
	}
	names := d.FormalNames()
	return func(n types.Node) types.Node {
		return types.Substitute(n, d.ID, names, bound)
	}
}

// typeUsage decides whether a type produces or consumes the target formal.
//
// A bare formal produces itself. For a parameterized class, argument i produces
// the target if the argument produces it and the class produces its formal i,
// or the argument consumes it and the class consumes formal i; consumption is
// the mirror image. A method type parameter flows like its constraint, and
// this, parent and child like their class parameterized by its own formals.
// Modules and packages never produce or consume.
func (q *query) typeUsage(n types.Node, target types.PropertyRef, access types.Access, mode usageMode) types.Usage {
	switch t := n.(type) {
	case nil:
		return types.UsageNo
	case *types.Union:
		return q.typeUsage(t.Left(), target, access, mode).Or(q.typeUsage(t.Right(), target, access, mode))
	case *types.Intersection:
		return q.typeUsage(t.Left(), target, access, mode).Or(q.typeUsage(t.Right(), target, access, mode))
	case *types.AccessType:
		return q.typeUsage(t.Inner(), target, access, mode)
	case *types.Immutable:
		return q.typeUsage(t.Inner(), target, access, mode)
	case *types.Annotated:
		return q.typeUsage(t.Annotation(), target, access, mode).Or(q.typeUsage(t.Inner(), target, access, mode))
	}

	term, _, ok := types.Split(n)
	if !ok {
		return types.UsageNo
	}
	switch ref := term.Ref().(type) {
	case types.ModuleRef, types.PackageRef:
		return types.UsageNo
	case types.PropertyRef:
		return types.UsageOf(mode == production && ref == target)
	case types.PendingRef:
		q.c.invariant(errors.PhaseVariance, "pending reference %q in variance analysis", ref.Name)
	case types.TypedefRef:
		return q.typeUsage(q.c.prepare(n, errors.PhaseVariance), target, access, mode)
	case types.ClassRef:
		return q.classUsage(ref.Decl, q.c.normalize(n), target, access, mode)
	case types.RegisterRef:
		// a method type parameter flows like its constraint
		if _, seen := q.bounds[ref]; seen {
			return types.UsageNo
		}
		constraint, ok := q.c.constraintOf(ref)
		if !ok {
			return types.UsageNo
		}
		q.bounds[ref] = struct{}{}
		defer delete(q.bounds, ref)
		return q.typeUsage(constraint, target, access, mode)
	case types.ThisClassRef, types.ParentClassRef, types.ChildClassRef:
		id, ok := q.c.declarationLevel(ref)
		if !ok {
			return types.UsageNo
		}
		return q.classUsage(id, q.c.classType(id), target, access, mode)
	}
	return types.UsageNo
}

func (q *query) classUsage(id types.DeclID, n types.Node, target types.PropertyRef, access types.Access, mode usageMode) types.Usage {
	_, args, _ := types.Split(n)
	if len(args) == 0 {
		return types.UsageNo
	}
	d := q.c.mustDecl(id)
	for i, f := range d.Formals {
		if i >= len(args) {
			break
		}
		argSame := q.typeUsage(args[i], target, access, mode).Yes()
		argFlip := q.typeUsage(args[i], target, access, mode.flip()).Yes()
		if !argSame && !argFlip {
			continue
		}
		if argSame && q.declUsage(id, f.Name, access, nil, production).Yes() {
			return types.UsageYes
		}
		if argFlip && q.declUsage(id, f.Name, access, nil, consumption).Yes() {
			return types.UsageYes
		}
	}
	return types.UsageNo
}
