// Package compat answers type-compatibility questions over a linked repository.
//
// A Checker combines four analyses:
//
//   - composition chains: CollectChains and IsAssignableTo walk extends,
//     incorporates, implements, delegates and into steps from the right type
//     to the left type, comparing type arguments by variance
//   - structural matching: MatchStructurally decides whether a class satisfies
//     an interface it does not declare
//   - variance: CheckProduction and CheckConsumption say how a class uses its
//     formal type parameters at a given access level
//   - auto-narrowing: ResolveAutoNarrowing rewrites this, this:parent and
//     this:child(name) relative to a context class
//
// Queries never mutate declarations. Results are cached per checker and a
// Checker may be shared between goroutines.
//
// A pending reference reaching a query is an internal invariant violation and
// panics; use Recover, or the error-returning variants such as Assignable, at
// unit boundaries.
package compat
