// Package types implements the type node model.
//
// A type expression is an immutable tree of Node values:
//
//	Terminal       names something directly through a Ref
//	Parameterized  base<args...>
//	Union          left | right
//	Intersection   left + right
//	AccessType     a view of a type at public/protected/private/struct access
//	Immutable      immutable inner
//	Annotated      @mixin inner
//
// A Ref is the defining reference of a terminal: a module, package or class
// declaration, a typedef, a class formal (PropertyRef), a method formal
// (RegisterRef), an auto-narrowing pseudo class (this, parent, child), or a
// PendingRef that the linker has not resolved yet.
//
// Both sums are closed: the marker methods are unexported and every consumer
// dispatches with a type switch.
//
// # Identity
//
// Every node carries a canonical key computed at construction. Structurally
// equal nodes have equal keys, so Equal and Hash are stable across builds; a
// Pool interns nodes by key and hands out dense NodeIDs used by the checker's
// visited sets.
//
// # Resolution
//
// Nodes never change after construction. Resolving a pending name produces a
// new node (see Rewrite); the link phase owns the substitution.
package types
