package typecore

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/wippyai/typecore/compat"
	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/link"
	"github.com/wippyai/typecore/manifest"
	"github.com/wippyai/typecore/types"
	"github.com/wippyai/typecore/witimport"
	"go.bytecodealliance.org/wit"
)

// Options configures linking and checking
type Options struct {
	Link  link.Options
	Check compat.Options
}

// DefaultOptions returns default configuration
func DefaultOptions() Options {
	return Options{
		Link:  link.DefaultOptions(),
		Check: compat.DefaultOptions(),
	}
}

// Program is a linked, frozen set of declarations with a checker over it.
// It is safe for concurrent use.
type Program struct {
	repo     *decl.Repository
	checker  *compat.Checker
	resolver *link.Resolver
}

// FromBuilder links the builder's declarations and prepares a checker
func FromBuilder(ctx context.Context, b *decl.Builder, opts Options) (*Program, error) {
	repo, err := link.New(opts.Link).Link(ctx, b)
	if err != nil {
		return nil, err
	}
	checker, err := compat.New(repo, opts.Check)
	if err != nil {
		return nil, err
	}
	return &Program{
		repo:     repo,
		checker:  checker,
		resolver: link.NewResolver(repo, opts.Link.Names, nil),
	}, nil
}

// FromManifest builds and links the manifest's declarations
func FromManifest(ctx context.Context, m *manifest.Manifest, opts Options) (*Program, error) {
	b := decl.NewBuilder()
	if err := m.Build(b); err != nil {
		return nil, err
	}
	return FromBuilder(ctx, b, opts)
}

// FromWIT declares WIT type definitions by name next to the manifest's
// declarations and links both, so manifest members may name WIT types by
// their path under the importer's module. A nil manifest imports WIT alone.
func FromWIT(ctx context.Context, m *manifest.Manifest, defs map[string]wit.Type, wopts witimport.Options, opts Options) (*Program, error) {
	b := decl.NewBuilder()
	if m != nil {
		if err := m.Build(b); err != nil {
			return nil, err
		}
	}
	im := witimport.New(b, wopts)
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		if _, err := im.Define(name, defs[name]); err != nil {
			return nil, fmt.Errorf("import WIT: %w", err)
		}
	}
	return FromBuilder(ctx, b, opts)
}

// Load reads a manifest file and links it
func Load(ctx context.Context, path string, opts Options) (*Program, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return FromManifest(ctx, m, opts)
}

// Repository returns the frozen repository
func (p *Program) Repository() *decl.Repository {
	return p.repo
}

// Checker returns the compatibility checker
func (p *Program) Checker() *compat.Checker {
	return p.checker
}

// Lookup finds a declaration by dotted path
func (p *Program) Lookup(path string) (types.DeclID, bool) {
	return p.repo.Lookup(path)
}

// Format renders n with declaration names
func (p *Program) Format(n types.Node) string {
	return types.Format(n, p.repo)
}

// Scope returns the lexical scope names written "inside" the declaration at
// path resolve in. An empty path is the top level, where only module names
// and root module declarations are visible without qualification.
func (p *Program) Scope(path string) (types.Scope, error) {
	if path == "" {
		return types.Scope{Decl: types.NoDecl, Method: types.ClassScope}, nil
	}
	id, ok := p.repo.Lookup(path)
	if !ok {
		return types.Scope{}, errors.NotFound(errors.PhaseResolve, "scope", path)
	}
	return types.Scope{Decl: id, Method: types.ClassScope}, nil
}

// Type resolves a manifest type expression in the scope at path
func (p *Program) Type(t manifest.Type, path string) (types.Node, error) {
	scope, err := p.Scope(path)
	if err != nil {
		return nil, err
	}
	n, err := t.Node(scope)
	if err != nil {
		return nil, err
	}
	n, err = p.resolver.ResolveNode(n)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", types.Format(n, p.repo), err)
	}
	return n, nil
}

// ParseType parses a YAML type expression and resolves it in the scope at path
func (p *Program) ParseType(src, path string) (types.Node, error) {
	t, err := manifest.ParseType(src)
	if err != nil {
		return nil, err
	}
	return p.Type(t, path)
}

// Class returns the type of the declaration at path, unparameterized
func (p *Program) Class(path string) (types.Node, error) {
	id, ok := p.repo.Lookup(path)
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "declaration", path)
	}
	return types.NewTerminal(link.DeclRef(p.repo, id)), nil
}
