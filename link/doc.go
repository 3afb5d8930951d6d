// Package link resolves the pending names written while building declarations.
//
// A ScopeResolver maps a name to a concrete reference by walking the lexical
// scope it was written in. The Resolver memoizes those results and expands
// typedefs; it is safe for concurrent use and resolves each pending reference
// exactly once.
//
// Linker drives a full pass over a decl.Builder:
//
//	repo, err := link.NewWithDefaults().Link(ctx, builder)
//
// Every unresolved name, type-argument count mismatch and typedef cycle is
// collected before Link fails, so a single run reports all problems.
package link
