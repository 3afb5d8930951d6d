package link

import (
	"strings"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/types"
)

// NameResolver maps a pending name to a concrete reference
type NameResolver interface {
	ResolveName(p types.PendingRef) (types.Ref, bool)
}

// ScopeResolver resolves names against the lexical scope they were written in.
//
// Lookup order for the first segment of a name:
//  1. type parameters of the enclosing method
//  2. for the enclosing declaration and then each of its parents:
//     formal type parameters, nested declarations, typedefs, the declaration itself
//  3. top-level modules
//  4. declarations of the root module (implicitly imported)
//
// Remaining segments of a dotted name select nested declarations.
type ScopeResolver struct {
	repo *decl.Repository
}

// NewScopeResolver creates a resolver over the repository's nesting structure
func NewScopeResolver(repo *decl.Repository) *ScopeResolver {
	return &ScopeResolver{repo: repo}
}

// ResolveName implements NameResolver
func (s *ScopeResolver) ResolveName(p types.PendingRef) (types.Ref, bool) {
	segments := strings.Split(p.Name, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, false
		}
	}

	ref, ok := s.resolveFirst(segments[0], p.Scope)
	if !ok {
		return nil, false
	}
	for _, seg := range segments[1:] {
		id, isDecl := types.DeclOf(ref)
		if !isDecl {
			return nil, false
		}
		child, found := s.repo.Children(id, seg)
		if !found {
			return nil, false
		}
		ref = s.declRef(child)
	}
	return ref, true
}

func (s *ScopeResolver) resolveFirst(name string, scope types.Scope) (types.Ref, bool) {
	if scope.Decl != types.NoDecl {
		if d, err := s.repo.Declaration(scope.Decl); err == nil {
			if scope.Method >= 0 && scope.Method < len(d.Methods) {
				for i, tp := range d.Methods[scope.Method].TypeParams {
					if tp.Name == name {
						return types.RegisterRef{Name: name, Decl: d.ID, Method: scope.Method, Index: i}, true
					}
				}
			}
		}

		for id := scope.Decl; id != types.NoDecl; {
			d, err := s.repo.Declaration(id)
			if err != nil {
				break
			}
			if ref, ok := s.resolveIn(d, name); ok {
				return ref, true
			}
			id = d.Parent
		}
	}

	if id, ok := s.repo.Root(name); ok {
		return types.ModuleRef{Decl: id}, true
	}
	if root, ok := s.repo.Root(decl.RootModule); ok {
		if id, ok := s.repo.Children(root, name); ok {
			return s.declRef(id), true
		}
	}
	return nil, false
}

func (s *ScopeResolver) resolveIn(d *decl.Declaration, name string) (types.Ref, bool) {
	if d.FormalIndex(name) >= 0 {
		return types.PropertyRef{Name: name, Decl: d.ID}, true
	}
	if id, ok := d.Child(name); ok {
		return s.declRef(id), true
	}
	if id, ok := d.TypedefNamed(name); ok {
		return types.TypedefRef{Typedef: id}, true
	}
	if d.Name == name {
		return s.declRef(d.ID), true
	}
	return nil, false
}

func (s *ScopeResolver) declRef(id types.DeclID) types.Ref {
	return DeclRef(s.repo, id)
}

// DeclRef returns the identity reference for a declaration according to its format
func DeclRef(repo *decl.Repository, id types.DeclID) types.Ref {
	d, err := repo.Declaration(id)
	if err == nil {
		switch d.Format {
		case decl.FormatModule:
			return types.ModuleRef{Decl: id}
		case decl.FormatPackage:
			return types.PackageRef{Decl: id}
		}
	}
	return types.ClassRef{Decl: id}
}
