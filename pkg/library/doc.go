// Package library stores compiled templates keyed by their metadata and
// resolves retrieval requests by intersecting metadata constraints.
//
// This package offers:
//   - Registration with duplicate control (Add, TryAdd, AddRange, TryAddRange)
//   - Retrieval along three axes: single vs all results, strict vs
//     with-fallback, exact-or-fail vs best-effort ("closest")
//   - A language fallback scheme honoring the sub-/super-language hierarchy
//   - Imports from strings, readers, byte buffers, files and fs.FS trees
//   - A parser registry keyed by source-language code
//   - A process-wide shared library used as the @render fallback
//
// Basic usage:
//
//	lib := library.New()
//	templates, err := lib.ImportString("@template greeting { Hello, @name! }")
//
//	tmpl, err := lib.RetrieveNamed("greeting")
//
// Retrieval intersects constraints in order, so callers pass the most
// general constraint (usually the identifier) first:
//
//	tmpl, err := lib.Retrieve(
//	    metadata.Identifier("greeting"),
//	    metadata.NewLanguage("en"),
//	    metadata.TargetModel("gpt-4"),
//	)
//
// With-fallback forms substitute missing metadata values through the
// per-type fallback scheme; for languages that means an available related
// or major world language stands in for an absent one:
//
//	tmpl, err := lib.RetrieveNamedWithFallback("greeting", metadata.NewLanguage("fr"))
//
// All structural mutation and retrieval runs under a single library-wide
// mutex, so a library may be shared freely across goroutines.
//
// Importing template source requires a registered parser; importing the
// default .llt language needs a blank import of pkg/parser:
//
//	import _ "github.com/killallgit/llt/pkg/parser"
package library
