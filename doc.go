// Package typecore answers type compatibility questions for a class-based
// language with generics, mixins and auto-narrowing types.
//
// # Architecture Overview
//
//	typecore/            Program facade: build, link, query
//	├── types/           Immutable type nodes, references and the interning pool
//	├── decl/            Declarations, the repository and its builder
//	├── link/            Pending name resolution, typedef expansion, freezing
//	├── compat/          Assignability chains, variance, narrowing, structural typing
//	├── manifest/        YAML declarations and batch query files
//	├── witimport/       WIT (component model) types as declarations
//	├── config/          koanf-based configuration for the CLI
//	├── errors/          Structured error types and the diagnostic listener
//	└── cmd/xtype/       Command-line interface
//
// # Quick Start
//
//	prog, err := typecore.Load(ctx, "prog.yaml", typecore.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	from, _ := prog.ParseType("Derived", "app")
//	to, _ := prog.ParseType("{class: Box, args: [Base]}", "app")
//	ok, err := prog.Checker().Assignable(from, to)
//
// # Phases
//
// Declarations are added to a decl.Builder with names left pending. Linking
// resolves every name against its lexical scope and freezes the repository;
// from then on the Checker may be used from any number of goroutines.
//
// # Error Handling
//
// Errors are *errors.Error values carrying a phase and kind. Link collects
// every problem before failing and returns them together as *errors.ListError.
package typecore
