// Package normalize rewrites dialect quirks out of SQL text before parsing.
//
// # Passes
//
// A Pipeline runs an ordered list of Pass values over the raw text:
//
//  1. Truncate: cut the text at the first case-insensitive occurrence of a
//     marker such as "lateral flatten".
//  2. Reserved words: replace whole-word "date" and "timestamp" with sentinel
//     identifiers so they can be used as column or table names.
//  3. Directives: drop Redshift "encode xyz" column directives.
//  4. Templates: replace the reserved Looker variable ${my_view.SQL_TABLE_NAME}
//     with a lower-case sentinel table name, then unwrap any remaining
//     ${inner} placeholder to inner.
//
// Each sentinel introduced by a pass is recorded in a TokenMap so callers can
// restore the original spelling in extracted names:
//
//	res := normalize.NewPipeline(normalize.DefaultOptions()).Run(sql)
//	// ... parse res.SQL ...
//	name = res.Tokens.Reverse(name)
//
// Normalization never fails; passes that do not match leave the text as is.
package normalize
