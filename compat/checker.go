package compat

import (
	"fmt"
	"sync"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/link"
	"github.com/wippyai/typecore/types"
	"golang.org/x/sync/singleflight"
)

// VarianceMode selects how parameterized types with differing arguments are compared
type VarianceMode uint8

const (
	// VarianceStrict allows a covariant argument only when the formal is never
	// consumed, and a contravariant one only when it is never produced.
	VarianceStrict VarianceMode = iota
	// VariancePermissive always allows covariant arguments.
	VariancePermissive
)

func (m VarianceMode) String() string {
	if m == VariancePermissive {
		return "permissive"
	}
	return "strict"
}

// ParseVarianceMode converts a keyword into a VarianceMode
func ParseVarianceMode(s string) (VarianceMode, error) {
	switch s {
	case "", "strict":
		return VarianceStrict, nil
	case "permissive":
		return VariancePermissive, nil
	default:
		return VarianceStrict, fmt.Errorf("unknown variance mode %q", s)
	}
}

// Options configures checker behavior.
type Options struct {
	// Listener receives query-time diagnostics such as composition cycles.
	Listener *errors.Listener
	// Pool interns type nodes; a private pool is created when nil.
	Pool *types.Pool
	// Variance selects argument comparison rules.
	Variance VarianceMode
	// Structural enables duck-typed interface satisfaction.
	Structural bool
}

// DefaultOptions returns default checker configuration.
func DefaultOptions() Options {
	return Options{
		Variance:   VarianceStrict,
		Structural: true,
	}
}

// Checker answers assignability, variance and narrowing queries over a frozen
// repository. Results are cached; Checker is safe for concurrent use.
type Checker struct {
	repo     *decl.Repository
	pool     *types.Pool
	listener *errors.Listener
	options  Options

	flight     singleflight.Group
	chains     sync.Map // chainKey -> []Chain
	structural sync.Map // structKey -> structResult
	variance   sync.Map // varianceKey -> types.Usage
}

// New creates a checker over a frozen repository.
func New(repo *decl.Repository, opts Options) (*Checker, error) {
	if repo == nil {
		return nil, errors.InvalidInput(errors.PhaseQuery, "nil repository")
	}
	if !repo.Frozen() {
		return nil, errors.New(errors.PhaseQuery, errors.KindInvalidInput).
			Detail("repository must be linked and frozen before querying").
			Build()
	}
	if opts.Pool == nil {
		opts.Pool = types.NewPool()
	}
	if opts.Listener == nil {
		opts.Listener = errors.NewListener()
	}
	return &Checker{
		repo:     repo,
		pool:     opts.Pool,
		listener: opts.Listener,
		options:  opts,
	}, nil
}

// NewWithDefaults creates a checker with default options.
func NewWithDefaults(repo *decl.Repository) (*Checker, error) {
	return New(repo, DefaultOptions())
}

// Repository returns the repository the checker reads
func (c *Checker) Repository() *decl.Repository {
	return c.repo
}

// Listener returns the diagnostic listener
func (c *Checker) Listener() *errors.Listener {
	return c.listener
}

// Options returns the configuration
func (c *Checker) Options() Options {
	return c.options
}

// Format renders n using the repository's names
func (c *Checker) Format(n types.Node) string {
	return types.Format(n, c.repo)
}

// Recover turns a panic raised by a query on an internal invariant violation,
// such as a pending reference reaching the checker, into an error.
//
//	func check(c *compat.Checker, l, r types.Node) (ok bool, err error) {
//		defer compat.Recover(&err)
//		return c.IsAssignableTo(r, l), nil
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*errors.Error); ok && e.Kind == errors.KindInternalInvariant {
		*errp = e
		return
	}
	panic(r)
}

func (c *Checker) invariant(phase errors.Phase, format string, args ...any) {
	panic(errors.InternalInvariant(phase, fmt.Sprintf(format, args...), nil))
}

// mustDecl returns a declaration or panics; ids come from linked nodes
func (c *Checker) mustDecl(id types.DeclID) *decl.Declaration {
	d, err := c.repo.Declaration(id)
	if err != nil {
		panic(errors.InternalInvariant(errors.PhaseQuery, err.Error(), id))
	}
	return d
}

// prepare expands typedefs and rejects pending references
func (c *Checker) prepare(n types.Node, phase errors.Phase) types.Node {
	if n == nil {
		c.invariant(phase, "nil type")
	}
	return types.Rewrite(n, func(t *types.Terminal) (types.Node, bool) {
		switch ref := t.Ref().(type) {
		case types.PendingRef:
			c.invariant(phase, "pending reference %q reached the checker", ref.Name)
		case types.TypedefRef:
			td, err := c.repo.Typedef(ref.Typedef)
			if err != nil {
				c.invariant(phase, "%v", err)
			}
			return c.prepare(td.Type, phase), true
		}
		return nil, false
	})
}

func (c *Checker) id(n types.Node) types.NodeID {
	_, id := c.pool.Intern(n)
	return id
}

// classType returns the type of a declaration parameterized by its own formals
func (c *Checker) classType(id types.DeclID) types.Node {
	d := c.mustDecl(id)
	base := types.NewTerminal(link.DeclRef(c.repo, id))
	if len(d.Formals) == 0 {
		return base
	}
	args := make([]types.Node, len(d.Formals))
	for i, f := range d.Formals {
		args[i] = types.NewTerminal(types.PropertyRef{Name: f.Name, Decl: id})
	}
	return types.NewParameterized(base, args...)
}

func (c *Checker) objectType() types.Node {
	return types.NewTerminal(types.ClassRef{Decl: c.repo.Object()})
}

// constraintOf returns the upper bound of a formal type parameter
func (c *Checker) constraintOf(ref types.Ref) (types.Node, bool) {
	switch r := ref.(type) {
	case types.PropertyRef:
		d := c.mustDecl(r.Decl)
		if i := d.FormalIndex(r.Name); i >= 0 {
			return d.Formals[i].Constraint, true
		}
	case types.RegisterRef:
		d := c.mustDecl(r.Decl)
		if r.Method >= 0 && r.Method < len(d.Methods) {
			tps := d.Methods[r.Method].TypeParams
			if r.Index >= 0 && r.Index < len(tps) {
				return tps[r.Index].Constraint, true
			}
		}
	}
	return nil, false
}

// Normalize fills missing trailing type arguments of a class type with the
// constraints of the corresponding formals
func (c *Checker) Normalize(n types.Node) types.Node {
	n = c.prepare(n, errors.PhaseQuery)
	return c.normalize(n)
}

func (c *Checker) normalize(n types.Node) types.Node {
	term, args, ok := types.Split(n)
	if !ok {
		return n
	}
	id, ok := types.DeclOf(term.Ref())
	if !ok {
		return n
	}
	d := c.mustDecl(id)
	if len(args) >= len(d.Formals) {
		return n
	}
	full := make([]types.Node, len(d.Formals))
	copy(full, args)
	for i := len(args); i < len(d.Formals); i++ {
		full[i] = d.Formals[i].Constraint
	}
	return types.NewParameterized(term, full...)
}
