// Package decl holds the declaration repository: classes, interfaces, mixins,
// consts, enums, services, modules and packages together with their formal type
// parameters, composition contributions and member signatures.
//
// Declarations are created with a Builder during the build phase:
//
//	b := decl.NewBuilder()
//	app := b.Module("app")
//	box := app.Class("Box").Formal("T", nil)
//	box.Method(decl.Method{Name: "get", Returns: []types.Node{box.Param("T")}})
//
// Types written during building may contain pending names; the link package
// resolves them and freezes the repository. A frozen Repository is read-only
// and safe for concurrent readers.
//
// Every declaration implicitly extends the Object class of the root module
// "ecstasy", which NewBuilder registers.
package decl
