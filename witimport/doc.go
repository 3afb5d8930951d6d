// Package witimport declares WebAssembly Interface Types (WIT) as classes so
// that compatibility queries can be asked about component interfaces.
//
//	b := decl.NewBuilder()
//	im := witimport.NewWithDefaults(b)
//	bytes, _ := im.Type(&wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}})
//	repo, _ := link.NewWithDefaults().Link(ctx, b)
//
// Built-in types live in the "wit" module; see Options for placement of
// imported definitions.
package witimport
