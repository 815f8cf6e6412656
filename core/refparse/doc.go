// Package refparse turns free-form scripture references into bounded,
// structured lookups.
//
// A query such as "Jn 3:16-18, 20; Mt5.3-12" flows through a fixed sequence
// of pure stages:
//
//   - Tokenize: split the query into letter-prefixed candidates
//   - TrimCandidate: drop trailing noise after the last digit
//   - SplitBoundary: separate the book code from the numeric suffix
//   - Registry.Lookup: resolve the book code and its bound
//   - Normalize: strip whitespace and disallowed punctuation, warn on
//     suspicious formatting
//   - SplitStructure: split the suffix into records and fields
//   - EnforceShape: carry the active chapter onto bare verse numbers
//   - Expand: expand dash ranges into concrete groups
//   - ValidateBounds: drop groups that fall outside the book's bound
//
// Each stage reports an explicit Outcome. A candidate that is skipped or
// fails never affects its neighbours, and Parse itself never returns an
// error: the Result lists what survived, what was skipped and why, and any
// non-fatal diagnostics.
//
// # Bound
//
// A registry entry has a single Bound. It is applied as the ceiling of every
// numeric component of an emitted group, chapter and verse alike. The
// registry does not carry per-chapter verse counts, so a verse range such as
// "Jn 3:18-99" is clamped to the book's bound (21), not to the length of
// chapter 3.
//
// # Example
//
//	reg := refparse.DefaultRegistry()
//	res := refparse.Parse("Jn 3:16,18,20", reg, refparse.Options{})
//	for _, ref := range res.References {
//	    fmt.Println(ref) // Jn 3:16, Jn 3:18, Jn 3:20
//	}
package refparse
