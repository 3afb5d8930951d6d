// Package manifest reads declarations and batch queries from YAML.
//
// A manifest lists modules; each declaration carries its formals, contributions,
// members and nested declarations. Type expressions are structured YAML nodes,
// not source syntax:
//
//	modules:
//	  - name: app
//	    members:
//	      - name: Box
//	        formals: [{name: T}]
//	        methods:
//	          - name: get
//	            returns: [T]
//	      - name: Shelf
//	        extends: {class: Box, args: [String]}
//
// Manifest.Build feeds a decl.Builder; the names stay pending until linked.
package manifest
