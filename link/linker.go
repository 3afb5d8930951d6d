package link

import (
	"context"
	"fmt"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures linker behavior.
type Options struct {
	// Listener receives link diagnostics. A fresh listener is used when nil.
	Listener *errors.Listener
	// Names overrides the scope-based name resolver.
	Names NameResolver
	// Workers bounds the number of declarations rewritten concurrently.
	Workers int
	// CheckContributions validates that incorporated and into types have a fitting format.
	CheckContributions bool
}

// DefaultOptions returns default linker configuration.
func DefaultOptions() Options {
	return Options{
		Workers:            4,
		CheckContributions: true,
	}
}

// Linker resolves every pending reference of a builder's repository and
// freezes it. A Linker may be reused; each Link call is independent.
type Linker struct {
	options Options
}

// New creates a linker with the given options.
func New(opts Options) *Linker {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Linker{options: opts}
}

// NewWithDefaults creates a linker with default options.
func NewWithDefaults() *Linker {
	return New(DefaultOptions())
}

// Options returns the configuration.
func (l *Linker) Options() Options {
	return l.options
}

// Link rewrites all type nodes of the builder's declarations, replacing pending
// references with concrete ones and expanding typedefs.
//
// The whole pass always completes so that every unresolved name is reported.
// If any error-level diagnostic was collected Link returns the aggregated
// diagnostics and leaves the repository unfrozen; otherwise the repository is
// frozen and returned.
func (l *Linker) Link(ctx context.Context, b *decl.Builder) (*decl.Repository, error) {
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	repo := b.Repository()
	if repo.Frozen() {
		return nil, errors.Frozen("link")
	}

	listener := l.options.Listener
	if listener == nil {
		listener = errors.NewListener()
	}
	p := &pass{
		repo:     repo,
		listener: listener,
		resolver: NewResolver(repo, l.options.Names, listener),
		check:    l.options.CheckContributions,
	}

	if err := p.linkTypedefs(); err != nil {
		return nil, err
	}
	if err := p.linkDeclarations(ctx, l.options.Workers); err != nil {
		return nil, err
	}

	if err := listener.Err(); err != nil {
		Logger().Debug("link failed",
			zap.Int("declarations", repo.Len()),
			zap.Int("diagnostics", len(listener.Diagnostics())))
		return nil, err
	}

	repo.Freeze()
	Logger().Debug("linked",
		zap.Int("declarations", repo.Len()),
		zap.Int("typedefs", repo.TypedefCount()))
	return repo, nil
}

type pass struct {
	repo     *decl.Repository
	listener *errors.Listener
	resolver *Resolver
	check    bool
}

// linkTypedefs resolves typedef targets first so that declaration nodes can be expanded
func (p *pass) linkTypedefs() error {
	var tds []*decl.Typedef
	p.repo.EachTypedef(func(td *decl.Typedef) bool {
		tds = append(tds, td)
		return true
	})

	for _, td := range tds {
		resolved, _ := p.resolver.ResolveNode(td.Type)
		if resolved == td.Type {
			continue
		}
		next := *td
		next.Type = resolved
		if err := p.repo.ReplaceTypedef(&next); err != nil {
			return err
		}
	}

	for _, td := range tds {
		current, err := p.repo.Typedef(td.ID)
		if err != nil {
			return err
		}
		expanded, err := p.resolver.Expand(current.Type)
		if err != nil || expanded == current.Type {
			continue
		}
		next := *current
		next.Type = expanded
		if err := p.repo.ReplaceTypedef(&next); err != nil {
			return err
		}
	}
	return nil
}

// linkDeclarations rewrites declarations concurrently into private copies and
// installs them once every copy is ready
func (p *pass) linkDeclarations(ctx context.Context, workers int) error {
	ids := p.repo.All()
	linked := make([]*decl.Declaration, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := p.repo.Edit(id)
			if err != nil {
				return err
			}
			p.linkDeclaration(d)
			linked[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, d := range linked {
		if err := p.repo.Replace(d); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) linkDeclaration(d *decl.Declaration) {
	owner := p.repo.QualifiedName(d.ID)

	for i := range d.Formals {
		d.Formals[i].Constraint = p.node(d.Formals[i].Constraint, owner)
	}
	for i := range d.Contributions {
		c := &d.Contributions[i]
		c.Type = p.node(c.Type, owner)
		if len(c.Constraints) > 0 {
			constraints := make([]decl.Formal, len(c.Constraints))
			for j, f := range c.Constraints {
				constraints[j] = decl.Formal{Name: f.Name, Constraint: p.node(f.Constraint, owner)}
			}
			c.Constraints = constraints
		}
		if p.check {
			p.checkContribution(d, *c, owner)
		}
	}
	for i := range d.Methods {
		m := &d.Methods[i]
		where := owner + "." + m.Name
		for j := range m.TypeParams {
			m.TypeParams[j].Constraint = p.node(m.TypeParams[j].Constraint, where)
		}
		for j := range m.Params {
			m.Params[j].Type = p.node(m.Params[j].Type, where)
		}
		for j := range m.Returns {
			m.Returns[j] = p.node(m.Returns[j], where)
		}
	}
	for i := range d.Properties {
		d.Properties[i].Type = p.node(d.Properties[i].Type, owner+"."+d.Properties[i].Name)
	}
}

// node resolves, expands and validates a single type node
func (p *pass) node(n types.Node, where string) types.Node {
	if n == nil {
		return nil
	}
	n, _ = p.resolver.ResolveNode(n)
	if expanded, err := p.resolver.Expand(n); err == nil {
		n = expanded
	}
	p.checkArity(n, where)
	return n
}

func (p *pass) checkArity(n types.Node, where string) {
	types.Walk(n, func(x types.Node) bool {
		param, ok := x.(*types.Parameterized)
		if !ok {
			return true
		}
		ref, ok := types.RefOf(param.Base())
		if !ok {
			return true
		}
		id, ok := types.DeclOf(ref)
		if !ok {
			if ref.Kind().IsFormal() {
				p.report("arity:"+where+":"+param.Key(), errors.New(errors.PhaseLink, errors.KindArityMismatch).
					Decl(where).
					Type(types.Format(param, p.repo)).
					Detail("formal type parameter %s cannot take type arguments", types.FormatRef(ref, p.repo)).
					Build())
			}
			return true
		}
		d, err := p.repo.Declaration(id)
		if err != nil {
			return true
		}
		if len(param.Args()) > len(d.Formals) {
			p.report("arity:"+where+":"+param.Key(),
				errors.ArityMismatch(where, types.Format(param, p.repo), len(d.Formals), len(param.Args())))
		}
		return true
	})
}

func (p *pass) checkContribution(d *decl.Declaration, c decl.Contribution, owner string) {
	ref, ok := types.RefOf(c.Type)
	if !ok {
		return
	}
	id, ok := types.DeclOf(ref)
	if !ok {
		return
	}
	target, err := p.repo.Declaration(id)
	if err != nil {
		return
	}

	var detail string
	switch c.Kind {
	case decl.Incorporates:
		if target.Format != decl.FormatMixin {
			detail = fmt.Sprintf("incorporates %s %s, which is not a mixin", target.Format, target.Name)
		}
	case decl.Into:
		if d.Format != decl.FormatMixin {
			detail = fmt.Sprintf("%s declares an into-type but is not a mixin", d.Format)
		}
	case decl.Implements, decl.Delegates:
		if target.Format != decl.FormatInterface {
			detail = fmt.Sprintf("%s %s %s, which is not an interface", c.Kind, target.Format, target.Name)
		}
	case decl.Extends:
		if d.Format != decl.FormatInterface && target.Format == decl.FormatInterface {
			detail = fmt.Sprintf("%s cannot extend interface %s", d.Format, target.Name)
		}
	}
	if detail != "" {
		p.report("contribution:"+owner+":"+c.Kind.String()+":"+c.Type.Key(),
			errors.New(errors.PhaseLink, errors.KindInvalidInput).Decl(owner).Detail("%s", detail).Build())
	}
}

func (p *pass) report(key string, err *errors.Error) {
	p.listener.Report(errors.SeverityError, key, err)
}
