package compat

import (
	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
)

type structKey struct {
	iface, candidate types.NodeID
	access           types.Access
}

type structResult struct {
	missing []decl.Signature
	ok      bool
}

// MatchStructurally reports whether candidate provides every member of the
// interface visible at access, and returns the interface members it lacks.
//
// Interface members include inherited ones; candidate members include those
// contributed by superclasses, mixins and delegates. Methods match by name,
// type-parameter count and arity with covariant returns and contravariant
// parameters. Read-only properties match covariantly, writable ones invariantly.
func (c *Checker) MatchStructurally(iface, candidate types.Node, access types.Access) (bool, []decl.Signature) {
	iface = c.prepare(iface, errors.PhaseQuery)
	candidate = c.prepare(candidate, errors.PhaseQuery)
	return c.newQuery(true).matchStructurally(iface, candidate, access)
}

func (q *query) matchStructurally(iface, candidate types.Node, access types.Access) (bool, []decl.Signature) {
	key := structKey{iface: q.c.id(iface), candidate: q.c.id(candidate), access: access}
	if v, ok := q.c.structural.Load(key); ok {
		r := v.(structResult)
		return r.ok, r.missing
	}
	if _, onStack := q.structs[key]; onStack {
		// recursive structural questions assume success
		return true, nil
	}
	q.structs[key] = struct{}{}
	defer delete(q.structs, key)

	cuts := q.cuts
	ok, missing := q.matchSurface(iface, candidate, access)
	if q.cuts == cuts && len(q.structs) == 1 {
		q.c.structural.Store(key, structResult{ok: ok, missing: missing})
	}
	return ok, missing
}

func (q *query) matchSurface(iface, candidate types.Node, access types.Access) (bool, []decl.Signature) {
	iterm, iargs, ok := types.Split(iface)
	if !ok {
		return false, nil
	}
	iid, ok := q.c.declarationLevel(iterm.Ref())
	if !ok {
		return false, nil
	}
	cand := q.candidateClass(candidate)
	if cand == nil {
		return false, q.c.memberSurface(iid, iargs, access, false)
	}

	required := q.c.memberSurface(iid, iargs, access, false)
	provided := q.c.memberSurface(cand.decl, cand.args, access, true)

	var missing []decl.Signature
	for _, want := range required {
		want = narrowThis(want, cand.node)
		found := false
		for _, have := range provided {
			if have.Name != want.Name || have.Kind != want.Kind {
				continue
			}
			if q.signatureMatches(want, narrowThis(have, cand.node)) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return len(missing) == 0, missing
}

type candidateClass struct {
	node types.Node
	args []types.Node
	decl types.DeclID
}

// candidateClass finds the class whose members a candidate type offers;
// formal types offer the members of their constraint
func (q *query) candidateClass(n types.Node) *candidateClass {
	for i := 0; i < 16; i++ {
		term, args, ok := types.Split(n)
		if !ok {
			return nil
		}
		ref := term.Ref()
		if ref.Kind().IsFormal() {
			constraint, ok := q.c.constraintOf(ref)
			if !ok {
				return nil
			}
			n = constraint
			continue
		}
		id, ok := q.c.declarationLevel(ref)
		if !ok {
			return nil
		}
		if ref.Kind().IsAutoNarrowing() && len(args) == 0 {
			n = q.c.classType(id)
			_, args, _ = types.Split(n)
		}
		return &candidateClass{node: types.Unwrap(n), args: args, decl: id}
	}
	return nil
}

// memberSurface collects the members of a declaration and of everything it is
// composed of, with actual type arguments substituted. Members of a more
// derived declaration come first.
func (c *Checker) memberSurface(id types.DeclID, args []types.Node, access types.Access, all bool) []decl.Signature {
	var sigs []decl.Signature
	seen := make(map[types.DeclID]bool)

	var visit func(id types.DeclID, args []types.Node)
	visit = func(id types.DeclID, args []types.Node) {
		if seen[id] {
			return
		}
		seen[id] = true
		d := c.mustDecl(id)

		for _, s := range d.Surface(access) {
			sigs = append(sigs, substituteSignature(s, d, args))
		}
		for _, contrib := range c.orderedContributions(d) {
			switch contrib.Kind {
			case decl.Into:
				continue
			case decl.Extends, decl.Implements:
			default:
				if !all {
					continue
				}
			}
			ct := substituteArgs(contrib.Type, d, args)
			term, cargs, ok := types.Split(ct)
			if !ok {
				continue
			}
			if cid, ok := types.DeclOf(term.Ref()); ok {
				visit(cid, cargs)
			}
		}
	}
	visit(id, args)
	return sigs
}

func substituteSignature(s decl.Signature, d *decl.Declaration, args []types.Node) decl.Signature {
	if len(args) == 0 {
		return s
	}
	out := s
	out.Params = make([]types.Node, len(s.Params))
	for i, p := range s.Params {
		out.Params[i] = substituteArgs(p, d, args)
	}
	out.Returns = make([]types.Node, len(s.Returns))
	for i, r := range s.Returns {
		out.Returns[i] = substituteArgs(r, d, args)
	}
	return out
}

// narrowThis replaces this types in a signature by the candidate type
func narrowThis(s decl.Signature, candidate types.Node) decl.Signature {
	replace := func(n types.Node) types.Node {
		return types.Rewrite(n, func(t *types.Terminal) (types.Node, bool) {
			if _, ok := t.Ref().(types.ThisClassRef); ok {
				return candidate, true
			}
			return nil, false
		})
	}
	out := s
	out.Params = make([]types.Node, len(s.Params))
	for i, p := range s.Params {
		out.Params[i] = replace(p)
	}
	out.Returns = make([]types.Node, len(s.Returns))
	for i, r := range s.Returns {
		out.Returns[i] = replace(r)
	}
	return out
}

// signatureMatches reports whether have can stand in for want
func (q *query) signatureMatches(want, have decl.Signature) bool {
	if want.Kind == decl.SigProperty {
		if !want.ReadOnly {
			return !have.ReadOnly && types.Equal(want.Returns[0], have.Returns[0])
		}
		return q.assignable(have.Returns[0], want.Returns[0])
	}

	if want.TypeParams != have.TypeParams ||
		len(want.Params) != len(have.Params) ||
		len(want.Returns) != len(have.Returns) {
		return false
	}
	want = alignRegisters(want, have)
	for i := range want.Returns {
		if !q.assignable(have.Returns[i], want.Returns[i]) {
			return false
		}
	}
	for i := range want.Params {
		if !q.assignable(want.Params[i], have.Params[i]) {
			return false
		}
	}
	return true
}

// alignRegisters renames the method type parameters of want to those of have
// so generic methods compare position by position
func alignRegisters(want, have decl.Signature) decl.Signature {
	if want.TypeParams == 0 {
		return want
	}
	rename := func(n types.Node) types.Node {
		return types.Rewrite(n, func(t *types.Terminal) (types.Node, bool) {
			r, ok := t.Ref().(types.RegisterRef)
			if !ok || r.Decl != want.Owner || r.Method != want.Method {
				return nil, false
			}
			return types.NewTerminal(types.RegisterRef{
				Name:   r.Name,
				Decl:   have.Owner,
				Method: have.Method,
				Index:  r.Index,
			}), true
		})
	}
	out := want
	out.Params = make([]types.Node, len(want.Params))
	for i, p := range want.Params {
		out.Params[i] = rename(p)
	}
	out.Returns = make([]types.Node, len(want.Returns))
	for i, r := range want.Returns {
		out.Returns[i] = rename(r)
	}
	return out
}

// ContainsSubstitutableMethod reports whether the type offers a method that can
// stand in for sig at the given access
func (c *Checker) ContainsSubstitutableMethod(n types.Node, sig decl.Signature, access types.Access) bool {
	n = c.prepare(n, errors.PhaseQuery)
	q := c.newQuery(true)
	cand := q.candidateClass(n)
	if cand == nil {
		return false
	}
	want := narrowThis(sig, cand.node)
	for _, have := range c.memberSurface(cand.decl, cand.args, access, true) {
		if have.Name == sig.Name && have.Kind == sig.Kind && q.signatureMatches(want, narrowThis(have, cand.node)) {
			return true
		}
	}
	return false
}
