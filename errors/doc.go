// Package errors provides structured error types for the typecore toolchain.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: composition path, declaration and type names,
// and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCompose, errors.KindCyclicComposition).
//		Path("M", "Target", "M").
//		Decl("M").
//		Detail("mixin incorporates itself through its into-type").
//		Build()
//
// Or use convenience constructors for the diagnostic taxonomy:
//
//	err := errors.UnresolvedReference("Strng", "app.Main")
//	err := errors.IllegalNarrowing("app.Main", "no parent at depth 2")
//
// Build-time problems are collected by a Listener rather than returned one by one;
// a linking pass completes its diagnostics and then fails with Listener.Err.
// Internal invariant violations are raised as panics and turned back into errors
// at a unit boundary with Recover.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
