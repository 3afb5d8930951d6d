package decl

import (
	"strings"
	"sync/atomic"

	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/internal/arena"
	"github.com/wippyai/typecore/types"
)

// Repository owns every declaration and typedef of a program.
//
// Thread-safety: the repository is populated by a Builder and rewritten by the
// linker during a single-threaded build phase. After Freeze it is read-only and
// safe for concurrent use.
type Repository struct {
	decls    *arena.Arena[*Declaration]
	typedefs *arena.Arena[*Typedef]
	roots    *arena.Index
	frozen   atomic.Bool
	object   types.DeclID
}

func newRepository() *Repository {
	return &Repository{
		decls:    arena.New[*Declaration](),
		typedefs: arena.New[*Typedef](),
		roots:    arena.NewIndex(),
		object:   types.NoDecl,
	}
}

// Declaration returns the declaration stored under id
func (r *Repository) Declaration(id types.DeclID) (*Declaration, error) {
	d, err := r.decls.Get(arena.ID(id))
	if err != nil {
		return nil, errors.NotFound(errors.PhaseQuery, "declaration", id2s(id))
	}
	return d, nil
}

// Typedef returns the typedef stored under id
func (r *Repository) Typedef(id types.TypedefID) (*Typedef, error) {
	td, err := r.typedefs.Get(arena.ID(id))
	if err != nil {
		return nil, errors.NotFound(errors.PhaseQuery, "typedef", id2s(types.DeclID(id)))
	}
	return td, nil
}

// Object returns the universal top class every type is assignable to
func (r *Repository) Object() types.DeclID {
	return r.object
}

// Len returns the number of declarations
func (r *Repository) Len() int {
	return r.decls.Len()
}

// TypedefCount returns the number of typedefs
func (r *Repository) TypedefCount() int {
	return r.typedefs.Len()
}

// Each calls fn for every declaration in creation order until fn returns false
func (r *Repository) Each(fn func(*Declaration) bool) {
	r.decls.Each(func(_ arena.ID, d *Declaration) bool {
		return fn(d)
	})
}

// EachTypedef calls fn for every typedef in creation order until fn returns false
func (r *Repository) EachTypedef(fn func(*Typedef) bool) {
	r.typedefs.Each(func(_ arena.ID, td *Typedef) bool {
		return fn(td)
	})
}

// Roots returns the top-level modules in definition order
func (r *Repository) Roots() []types.DeclID {
	names := r.roots.Names()
	result := make([]types.DeclID, 0, len(names))
	for _, n := range names {
		id, _ := r.roots.Lookup(n)
		result = append(result, types.DeclID(id))
	}
	return result
}

// Root returns the top-level module with the given name
func (r *Repository) Root(name string) (types.DeclID, bool) {
	id, ok := r.roots.Lookup(name)
	return types.DeclID(id), ok
}

// Lookup resolves a dotted path such as "app.shapes.Circle" starting at a root module
func (r *Repository) Lookup(path string) (types.DeclID, bool) {
	segments := strings.Split(path, ".")
	id, ok := r.Root(segments[0])
	if !ok {
		return types.NoDecl, false
	}
	for _, seg := range segments[1:] {
		d, err := r.Declaration(id)
		if err != nil {
			return types.NoDecl, false
		}
		if id, ok = d.Child(seg); !ok {
			return types.NoDecl, false
		}
	}
	return id, true
}

// Find resolves a dotted path, or failing that a simple name that is unique
// across the repository
func (r *Repository) Find(name string) (types.DeclID, bool) {
	if id, ok := r.Lookup(name); ok {
		return id, true
	}
	found := types.NoDecl
	count := 0
	r.Each(func(d *Declaration) bool {
		if d.Name == name {
			found = d.ID
			count++
		}
		return count < 2
	})
	return found, count == 1
}

// QualifiedName returns the dotted path of a declaration
func (r *Repository) QualifiedName(id types.DeclID) string {
	var parts []string
	for id != types.NoDecl {
		d, err := r.Declaration(id)
		if err != nil {
			break
		}
		parts = append(parts, d.Name)
		id = d.Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// DeclName returns the simple name of a declaration
func (r *Repository) DeclName(id types.DeclID) string {
	d, err := r.Declaration(id)
	if err != nil {
		return ""
	}
	return d.Name
}

// TypedefName returns the name of a typedef
func (r *Repository) TypedefName(id types.TypedefID) string {
	td, err := r.Typedef(id)
	if err != nil {
		return ""
	}
	return td.Name
}

// Frozen reports whether the repository is read-only
func (r *Repository) Frozen() bool {
	return r.frozen.Load()
}

// Freeze makes the repository read-only
func (r *Repository) Freeze() {
	r.frozen.Store(true)
}

// Replace swaps in a rewritten copy of a declaration. Only valid before Freeze.
func (r *Repository) Replace(d *Declaration) error {
	if r.Frozen() {
		return errors.Frozen("replace declaration " + d.Name)
	}
	return r.decls.Set(arena.ID(d.ID), d)
}

// ReplaceTypedef swaps in a rewritten copy of a typedef. Only valid before Freeze.
func (r *Repository) ReplaceTypedef(td *Typedef) error {
	if r.Frozen() {
		return errors.Frozen("replace typedef " + td.Name)
	}
	return r.typedefs.Set(arena.ID(td.ID), td)
}

// Edit returns a private copy of a declaration for rewriting; pass it to Replace.
func (r *Repository) Edit(id types.DeclID) (*Declaration, error) {
	d, err := r.Declaration(id)
	if err != nil {
		return nil, err
	}
	return d.clone(), nil
}

// Ancestors returns the nesting chain of id, innermost first, excluding id itself
func (r *Repository) Ancestors(id types.DeclID) []types.DeclID {
	var result []types.DeclID
	d, err := r.Declaration(id)
	for err == nil && d.Parent != types.NoDecl {
		result = append(result, d.Parent)
		d, err = r.Declaration(d.Parent)
	}
	return result
}

func id2s(id types.DeclID) string {
	return types.FormatRef(types.ClassRef{Decl: id}, nil)
}

// All returns every declaration id in creation order
func (r *Repository) All() []types.DeclID {
	result := make([]types.DeclID, 0, r.Len())
	r.Each(func(d *Declaration) bool {
		result = append(result, d.ID)
		return true
	})
	return result
}

// Children returns the nested declaration of id with the given name
func (r *Repository) Children(id types.DeclID, name string) (types.DeclID, bool) {
	d, err := r.Declaration(id)
	if err != nil {
		return types.NoDecl, false
	}
	return d.Child(name)
}
