package link

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"go.uber.org/zap"
)

// Resolver turns pending references into concrete ones and expands typedefs.
//
// Resolution is memoized per pending reference: the first successful result is
// stored and every later call, from any goroutine, observes that same result.
// Resolver is thread-safe.
type Resolver struct {
	repo     *decl.Repository
	names    NameResolver
	listener *errors.Listener
	resolved sync.Map // pending key -> types.Ref
	expanded sync.Map // types.TypedefID -> types.Node
}

// NewResolver creates a resolver. Failures are reported to listener when it is non-nil.
func NewResolver(repo *decl.Repository, names NameResolver, listener *errors.Listener) *Resolver {
	if names == nil {
		names = NewScopeResolver(repo)
	}
	return &Resolver{repo: repo, names: names, listener: listener}
}

// Resolve returns the concrete reference for ref. Non-pending refs are returned as is.
func (r *Resolver) Resolve(ref types.Ref) (types.Ref, error) {
	p, ok := ref.(types.PendingRef)
	if !ok {
		return ref, nil
	}
	key := p.Key()
	if v, ok := r.resolved.Load(key); ok {
		return v.(types.Ref), nil
	}

	concrete, ok := r.names.ResolveName(p)
	if !ok || concrete == nil || concrete.Kind() == types.RefPending {
		err := errors.UnresolvedReference(p.Name, r.scopeName(p.Scope))
		r.listener.Report(errors.SeverityError, "unresolved:"+key, err)
		return ref, err
	}

	actual, _ := r.resolved.LoadOrStore(key, concrete)
	return actual.(types.Ref), nil
}

// ResolveNode resolves every pending terminal in n. Terminals that cannot be
// resolved stay pending; the returned error lists all of them.
func (r *Resolver) ResolveNode(n types.Node) (types.Node, error) {
	var failed []*errors.Error
	out := types.Rewrite(n, func(t *types.Terminal) (types.Node, bool) {
		if t.Ref().Kind() != types.RefPending {
			return nil, false
		}
		concrete, err := r.Resolve(t.Ref())
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				failed = append(failed, e)
			}
			return nil, false
		}
		return types.NewTerminal(concrete), true
	})
	if len(failed) > 0 {
		return out, &errors.ListError{Errors: failed}
	}
	return out, nil
}

// Expand replaces typedef references in n by their targets, recursively.
// A typedef that refers to itself is reported once as a composition cycle.
func (r *Resolver) Expand(n types.Node) (types.Node, error) {
	return r.expand(n, nil)
}

func (r *Resolver) expand(n types.Node, stack []types.TypedefID) (types.Node, error) {
	return types.RewriteErr(n, func(t *types.Terminal) (types.Node, bool, error) {
		ref, ok := t.Ref().(types.TypedefRef)
		if !ok {
			return nil, false, nil
		}
		if v, ok := r.expanded.Load(ref.Typedef); ok {
			return v.(types.Node), true, nil
		}
		for i, id := range stack {
			if id == ref.Typedef {
				return nil, false, r.reportCycle(stack[i:])
			}
		}

		td, err := r.repo.Typedef(ref.Typedef)
		if err != nil {
			return nil, false, err
		}
		next := make([]types.TypedefID, len(stack), len(stack)+1)
		copy(next, stack)
		out, err := r.expand(td.Type, append(next, ref.Typedef))
		if err != nil {
			return nil, false, err
		}
		actual, _ := r.expanded.LoadOrStore(ref.Typedef, out)
		return actual.(types.Node), true, nil
	})
}

func (r *Resolver) reportCycle(cycle []types.TypedefID) error {
	path := make([]string, 0, len(cycle)+1)
	ids := make([]string, len(cycle))
	for i, id := range cycle {
		path = append(path, r.repo.TypedefName(id))
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	path = append(path, path[0])
	sort.Strings(ids)

	err := errors.CyclicComposition(errors.PhaseResolve, path)
	err.Detail = "typedef expands to itself"
	if r.listener.Report(errors.SeverityError, "typedef-cycle:"+strings.Join(ids, ","), err) {
		Logger().Debug("typedef cycle", zap.Strings("path", path))
	}
	return err
}

func (r *Resolver) scopeName(s types.Scope) string {
	if s.Decl == types.NoDecl {
		return ""
	}
	name := r.repo.QualifiedName(s.Decl)
	if s.Method >= 0 {
		if d, err := r.repo.Declaration(s.Decl); err == nil && s.Method < len(d.Methods) {
			name += "." + d.Methods[s.Method].Name
		}
	}
	return name
}
