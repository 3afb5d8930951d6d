package compat

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"go.uber.org/zap"
)

// Step is one hop of a composition chain
type Step struct {
	Type types.Node
	Kind decl.Composition
}

// Chain explains why a right type is assignable to a left type.
//
// Steps are read right-to-left: the last step is the first hop out of the right
// type and the first step reaches the left type. A chain holding a single Equal
// step means the types are identical.
type Chain struct {
	Steps []Step
}

// Len returns the number of steps
func (c Chain) Len() int {
	return len(c.Steps)
}

// IsEqual reports whether the chain is the identity chain
func (c Chain) IsEqual() bool {
	return len(c.Steps) == 1 && c.Steps[0].Kind == decl.Equal
}

// IsStructural reports whether the chain relies on duck typing
func (c Chain) IsStructural() bool {
	for _, s := range c.Steps {
		if s.Kind == decl.MaybeStructural {
			return true
		}
	}
	return false
}

// Format renders the hops in the order they are taken from the right type
func (c Chain) Format(names types.Namer) string {
	var b strings.Builder
	for i := len(c.Steps) - 1; i >= 0; i-- {
		s := c.Steps[i]
		b.WriteString(s.Kind.String())
		b.WriteByte(' ')
		b.WriteString(types.Format(s.Type, names))
		if i > 0 {
			b.WriteString(" -> ")
		}
	}
	return b.String()
}

func (c Chain) extend(s Step) Chain {
	steps := make([]Step, len(c.Steps), len(c.Steps)+1)
	copy(steps, c.Steps)
	return Chain{Steps: append(steps, s)}
}

type chainKey struct {
	left, right types.NodeID
	resolve     bool
}

func (k chainKey) String() string {
	s := strconv.FormatUint(uint64(k.left), 10) + ":" + strconv.FormatUint(uint64(k.right), 10)
	if k.resolve {
		s += ":r"
	}
	return s
}

// CollectChains returns every composition chain by which a right value is
// assignable to left. An empty result means no nominal path exists. When the
// left type is an interface with no nominal path, a chain holding a single
// MaybeStructural step is returned; MatchStructurally decides it.
//
// CollectChains panics with an internal invariant error if either type still
// contains pending references; see Recover.
func (c *Checker) CollectChains(left, right types.Node) []Chain {
	return c.cachedChains(left, right, false)
}

// IsAssignableTo reports whether a value of type right can be assigned to left.
// Structural chains are decided by matching the interface surface.
func (c *Checker) IsAssignableTo(right, left types.Node) bool {
	return len(c.cachedChains(left, right, true)) > 0
}

// Assignable is IsAssignableTo with invariant violations returned as errors
func (c *Checker) Assignable(right, left types.Node) (ok bool, err error) {
	defer Recover(&err)
	return c.IsAssignableTo(right, left), nil
}

// Chains is CollectChains with invariant violations returned as errors
func (c *Checker) Chains(left, right types.Node) (chains []Chain, err error) {
	defer Recover(&err)
	return c.CollectChains(left, right), nil
}

func (c *Checker) cachedChains(left, right types.Node, resolve bool) []Chain {
	left = c.prepare(left, errors.PhaseCompose)
	right = c.prepare(right, errors.PhaseCompose)
	key := chainKey{left: c.id(left), right: c.id(right), resolve: resolve}
	if v, ok := c.chains.Load(key); ok {
		return v.([]Chain)
	}

	v, err, _ := c.flight.Do("chains:"+key.String(), func() (any, error) {
		if v, ok := c.chains.Load(key); ok {
			return v, nil
		}
		var result []Chain
		var perr error
		func() {
			defer Recover(&perr)
			result = c.newQuery(resolve).collect(left, right, types.AccessPublic)
		}()
		if perr != nil {
			return nil, perr
		}
		Logger().Debug("chains computed",
			zap.String("left", c.Format(left)),
			zap.String("right", c.Format(right)),
			zap.Bool("resolve", resolve),
			zap.Int("chains", len(result)))
		c.chains.Store(key, result)
		return result, nil
	})
	if err != nil {
		panic(err)
	}
	return v.([]Chain)
}

// query holds the per-call state of one top-level question
type query struct {
	c       *Checker
	stack   map[pairKey]struct{}
	done    map[pairKey][]Chain
	walked  map[walkKey][]Chain
	structs map[structKey]struct{}
	vstack  map[varianceKey]struct{}
	bounds  map[types.RegisterRef]struct{} // registers being resolved to their constraint
	walk    []types.DeclID // declarations on the current composition walk
	cuts    int            // re-entries cut short; results computed under a cut are not memoized
	resolve bool
}

type pairKey struct {
	left, right types.NodeID
	resolve     bool
}

type walkKey struct {
	left, right types.NodeID
	into        bool
}

func (c *Checker) newQuery(resolve bool) *query {
	return &query{
		c:       c,
		resolve: resolve,
		stack:   make(map[pairKey]struct{}),
		done:    make(map[pairKey][]Chain),
		walked:  make(map[walkKey][]Chain),
		structs: make(map[structKey]struct{}),
		vstack:  make(map[varianceKey]struct{}),
		bounds:  make(map[types.RegisterRef]struct{}),
	}
}

// assignable runs a nested assignability question with its own composition walk
func (q *query) assignable(right, left types.Node) bool {
	saved, walk := q.resolve, q.walk
	q.resolve, q.walk = true, nil
	defer func() { q.resolve, q.walk = saved, walk }()
	return len(q.collect(left, right, types.AccessPublic)) > 0
}

func equalChain(left types.Node) []Chain {
	return []Chain{{Steps: []Step{{Kind: decl.Equal, Type: left}}}}
}

func both(a, b []Chain) []Chain {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	return append(append([]Chain(nil), a...), b...)
}

func either(a, b []Chain) []Chain {
	return append(append([]Chain(nil), a...), b...)
}

// collect is the guarded entry for a (left, right) pair
func (q *query) collect(left, right types.Node, access types.Access) []Chain {
	if types.Equal(left, right) {
		return equalChain(left)
	}

	pair := pairKey{left: q.c.id(left), right: q.c.id(right), resolve: q.resolve}
	if access != types.AccessPublic {
		// the access level changes structural answers; keep such pairs apart
		pair.left = q.c.id(types.NewAccess(access, left))
	}
	if chains, ok := q.done[pair]; ok {
		return chains
	}
	if _, onStack := q.stack[pair]; onStack {
		q.cuts++
		return nil
	}

	cuts := q.cuts
	q.stack[pair] = struct{}{}
	chains := q.collectPair(left, right, access)
	delete(q.stack, pair)
	if q.cuts == cuts {
		q.done[pair] = chains
	}
	return chains
}

func (q *query) collectPair(left, right types.Node, access types.Access) []Chain {
	if u, ok := right.(*types.Union); ok {
		return both(q.collect(left, u.Left(), access), q.collect(left, u.Right(), access))
	}
	switch l := left.(type) {
	case *types.Union:
		return either(q.collect(l.Left(), right, access), q.collect(l.Right(), right, access))
	case *types.Intersection:
		return both(q.collect(l.Left(), right, access), q.collect(l.Right(), right, access))
	}
	if i, ok := right.(*types.Intersection); ok {
		return either(q.collect(left, i.Left(), access), q.collect(left, i.Right(), access))
	}

	switch l := left.(type) {
	case *types.Immutable:
		if !q.isImmutable(right) {
			return nil
		}
		return q.collect(l.Inner(), right, access)
	case *types.AccessType:
		if types.AccessOf(right) < l.Access() {
			return nil
		}
		return q.collect(l.Inner(), stripAccess(right), l.Access())
	case *types.Annotated:
		return both(q.collect(l.Inner(), right, access), q.collect(l.Annotation(), right, access))
	}

	switch r := right.(type) {
	case *types.Immutable:
		return q.collect(left, r.Inner(), access)
	case *types.AccessType:
		return q.collect(left, r.Inner(), access)
	case *types.Annotated:
		var chains []Chain
		for _, ch := range q.collect(left, r.Annotation(), access) {
			if ch.IsEqual() {
				ch = Chain{}
			}
			chains = append(chains, ch.extend(Step{Kind: decl.Annotation, Type: r.Annotation()}))
		}
		return either(chains, q.collect(left, r.Inner(), access))
	}

	return q.collectSimple(left, right, access)
}

func stripAccess(n types.Node) types.Node {
	if a, ok := n.(*types.AccessType); ok {
		return a.Inner()
	}
	return n
}

func (q *query) isImmutable(n types.Node) bool {
	if types.IsImmutable(n) {
		return true
	}
	switch t := n.(type) {
	case *types.Union:
		return q.isImmutable(t.Left()) && q.isImmutable(t.Right())
	case *types.Intersection:
		return q.isImmutable(t.Left()) || q.isImmutable(t.Right())
	}
	term, _, ok := types.Split(n)
	if !ok {
		return false
	}
	if id, ok := q.c.declarationLevel(term.Ref()); ok {
		return q.c.mustDecl(id).Format.IsImmutable()
	}
	if constraint, ok := q.c.constraintOf(term.Ref()); ok {
		return q.isImmutable(constraint)
	}
	return false
}

// collectSimple handles a left and right that are both class-like terminals,
// possibly parameterized
func (q *query) collectSimple(left, right types.Node, access types.Access) []Chain {
	lterm, largs, ok := types.Split(left)
	if !ok {
		return nil
	}
	rterm, rargs, ok := types.Split(right)
	if !ok {
		return nil
	}

	lref := lterm.Ref()
	var ldecl types.DeclID
	if !lref.Kind().IsFormal() {
		if ldecl, ok = q.c.declarationLevel(lref); !ok {
			return nil
		}
		if ldecl == q.c.repo.Object() {
			return []Chain{{Steps: []Step{{Kind: decl.Extends, Type: left}}}}
		}
	}

	// a formal on the right stands for its constraint, which may itself be
	// the formal on the left
	rref := rterm.Ref()
	if rref.Kind().IsFormal() {
		constraint, ok := q.c.constraintOf(rref)
		if !ok {
			return nil
		}
		return q.collect(left, constraint, access)
	}
	if lref.Kind().IsFormal() {
		return nil
	}
	rdecl, ok := q.c.declarationLevel(rref)
	if !ok {
		return nil
	}
	if rref.Kind().IsAutoNarrowing() && len(rargs) == 0 {
		right = q.c.classType(rdecl)
		_, rargs, _ = types.Split(right)
	}

	paths := q.walkDecl(ldecl, largs, rdecl, rargs, true)
	if len(paths) > 0 {
		for i, p := range paths {
			if p.Len() == 0 {
				paths[i] = equalChain(left)[0]
			}
		}
		return paths
	}

	if q.c.mustDecl(ldecl).Format == decl.FormatInterface {
		return q.maybeStructural(left, right, access)
	}
	return nil
}

func (q *query) maybeStructural(iface, candidate types.Node, access types.Access) []Chain {
	chain := []Chain{{Steps: []Step{{Kind: decl.MaybeStructural, Type: iface}}}}
	if !q.resolve {
		return chain
	}
	if !q.c.options.Structural {
		return nil
	}
	if ok, _ := q.matchStructurally(iface, candidate, access); ok {
		return chain
	}
	return nil
}

// walkDecl follows the contributions of rdecl until ldecl is reached. A path of
// length zero means rdecl is ldecl with compatible arguments. Into is only
// followed out of the type the walk starts from: a class incorporating a mixin
// does not become its into-type.
func (q *query) walkDecl(ldecl types.DeclID, largs []types.Node, rdecl types.DeclID, rargs []types.Node, into bool) []Chain {
	if rdecl == ldecl {
		if q.argsCompatible(ldecl, largs, rargs) {
			return []Chain{{}}
		}
		return nil
	}

	rnode := types.NewParameterized(types.NewTerminal(types.ClassRef{Decl: rdecl}), rargs...)
	lnode := types.NewParameterized(types.NewTerminal(types.ClassRef{Decl: ldecl}), largs...)
	pair := walkKey{left: q.c.id(lnode), right: q.c.id(rnode), into: into}
	if chains, ok := q.walked[pair]; ok {
		return chains
	}
	for _, id := range q.walk {
		if id == rdecl {
			q.cuts++
			q.reportCycle(rdecl)
			return nil
		}
	}
	cuts := q.cuts
	q.walk = append(q.walk, rdecl)

	rd := q.c.mustDecl(rdecl)
	var chains []Chain
	for _, contrib := range q.c.orderedContributions(rd) {
		if contrib.Kind == decl.Into && !into {
			continue
		}
		if !q.contributionApplies(rd, contrib, rargs) {
			continue
		}
		ct := substituteArgs(contrib.Type, rd, rargs)
		cterm, cargs, ok := types.Split(ct)
		if !ok {
			continue
		}
		cdecl, ok := types.DeclOf(cterm.Ref())
		if !ok {
			continue
		}
		for _, sub := range q.walkDecl(ldecl, largs, cdecl, cargs, false) {
			chains = append(chains, sub.extend(Step{Kind: contrib.Kind, Type: ct}))
		}
	}

	q.walk = q.walk[:len(q.walk)-1]
	if q.cuts == cuts {
		q.walked[pair] = chains
	}
	return chains
}

func substituteArgs(n types.Node, d *decl.Declaration, args []types.Node) types.Node {
	if len(args) == 0 {
		return n
	}
	return types.Substitute(n, d.ID, d.FormalNames(), args)
}

// orderedContributions returns contributions sorted by composition rank,
// keeping declaration order within a rank
func (c *Checker) orderedContributions(d *decl.Declaration) []decl.Contribution {
	steps := d.CompositionSteps()
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Kind.Rank() < steps[j].Kind.Rank()
	})
	return steps
}

// contributionApplies checks the constraints of a conditional incorporation
func (q *query) contributionApplies(d *decl.Declaration, c decl.Contribution, args []types.Node) bool {
	for _, f := range c.Constraints {
		i := d.FormalIndex(f.Name)
		if i < 0 {
			return false
		}
		var actual types.Node
		if i < len(args) {
			actual = args[i]
		} else {
			actual = d.Formals[i].Constraint
		}
		if !q.assignable(actual, substituteArgs(f.Constraint, d, args)) {
			return false
		}
	}
	return true
}

// argsCompatible compares the arguments of two parameterizations of the same class
func (q *query) argsCompatible(id types.DeclID, largs, rargs []types.Node) bool {
	if len(largs) == 0 {
		return true
	}
	d := q.c.mustDecl(id)
	for i, f := range d.Formals {
		la := argAt(largs, i, f)
		ra := argAt(rargs, i, f)
		if types.Equal(la, ra) {
			continue
		}
		if q.assignable(ra, la) {
			if q.c.options.Variance == VariancePermissive ||
				!q.declUsage(id, f.Name, types.AccessPublic, nil, consumption).Yes() {
				continue
			}
		}
		if q.assignable(la, ra) && !q.declUsage(id, f.Name, types.AccessPublic, nil, production).Yes() {
			continue
		}
		return false
	}
	return true
}

func argAt(args []types.Node, i int, f decl.Formal) types.Node {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return f.Constraint
}

func (q *query) reportCycle(rdecl types.DeclID) {
	start := 0
	for i, id := range q.walk {
		if id == rdecl {
			start = i
			break
		}
	}
	cycle := q.walk[start:]
	path := make([]string, 0, len(cycle)+1)
	ids := make([]string, len(cycle))
	for i, id := range cycle {
		path = append(path, q.c.repo.QualifiedName(id))
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	path = append(path, q.c.repo.QualifiedName(rdecl))
	sort.Strings(ids)

	err := errors.New(errors.PhaseCompose, errors.KindCyclicComposition).
		Path(path...).
		Decl(q.c.repo.QualifiedName(rdecl)).
		Detail("composition refers back to itself").
		Build()
	if q.c.listener.Report(errors.SeverityError, "compose-cycle:"+strings.Join(ids, ","), err) {
		Logger().Debug("composition cycle", zap.Strings("path", path))
	}
}
