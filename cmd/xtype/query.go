package main

import (
	"fmt"
	"strings"

	"github.com/wippyai/typecore"
	"github.com/wippyai/typecore/compat"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/manifest"
	"github.com/wippyai/typecore/types"
)

// answer is the outcome of one query
type answer struct {
	// OK is set for assignable and chains queries
	OK       *bool
	Value    string
	Chains   []string
	Variance []formalVariance
}

type formalVariance struct {
	Formal   string
	Variance compat.Variance
	Produces bool
	Consumes bool
}

// runner answers manifest queries against a program
type runner struct {
	p      *typecore.Program
	scope  string
	access types.Access
}

func (r *runner) run(q manifest.Query) (ans answer, err error) {
	defer compat.Recover(&err)

	scope := q.Scope
	if scope == "" {
		scope = r.scope
	}
	c := r.p.Checker()

	switch q.Kind {
	case manifest.QueryAssignable, manifest.QueryChains:
		from, err := r.p.Type(*q.From, scope)
		if err != nil {
			return ans, fmt.Errorf("from: %w", err)
		}
		to, err := r.p.Type(*q.To, scope)
		if err != nil {
			return ans, fmt.Errorf("to: %w", err)
		}
		chains, err := c.Chains(to, from)
		if err != nil {
			return ans, err
		}
		ok, err := c.Assignable(from, to)
		if err != nil {
			return ans, err
		}
		ans.OK = &ok
		ans.Value = yesNo(ok)
		for _, ch := range chains {
			ans.Chains = append(ans.Chains, ch.Format(r.p.Repository()))
		}
		return ans, nil

	case manifest.QueryVariance:
		id, ok := r.p.Repository().Find(q.Class)
		if !ok {
			return ans, errors.NotFound(errors.PhaseVariance, "class", q.Class)
		}
		d, err := r.p.Repository().Declaration(id)
		if err != nil {
			return ans, err
		}
		access := r.access
		if q.Access != "" {
			if access, err = types.ParseAccess(q.Access); err != nil {
				return ans, err
			}
		}
		formals := []string{q.Formal}
		if q.Formal == "*" {
			formals = formals[:0]
			for _, f := range d.Formals {
				formals = append(formals, f.Name)
			}
		}
		var names []string
		for _, f := range formals {
			if d.FormalIndex(f) < 0 {
				return ans, errors.NotFound(errors.PhaseVariance, "formal type parameter", d.Name+"."+f)
			}
			v := formalVariance{
				Formal:   f,
				Variance: c.Variance(id, f, access),
				Produces: c.CheckProduction(id, f, access, nil).Yes(),
				Consumes: c.CheckConsumption(id, f, access, nil).Yes(),
			}
			ans.Variance = append(ans.Variance, v)
			names = append(names, f+": "+v.Variance.String())
		}
		ans.Value = strings.Join(names, ", ")
		return ans, nil

	case manifest.QueryNarrow:
		ctx, ok := r.p.Repository().Find(q.Context)
		if !ok {
			return ans, errors.NotFound(errors.PhaseNarrow, "context class", q.Context)
		}
		// auto-narrowing names are written inside the context class
		n, err := r.p.Type(*q.Type, r.p.Repository().QualifiedName(ctx))
		if err != nil {
			return ans, err
		}
		out, err := c.ResolveAutoNarrowing(n, ctx)
		if err != nil {
			return ans, err
		}
		ans.Value = r.p.Format(out)
		return ans, nil
	}
	return ans, errors.InvalidInput(errors.PhaseQuery, fmt.Sprintf("unknown query kind %q", q.Kind))
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
