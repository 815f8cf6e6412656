package refparse

import (
	"iter"
	"regexp"
	"strings"
)

// Candidate is a letter-prefixed substring of the query that may hold a
// reference.
type Candidate struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"` // byte offset in the query
}

var (
	// One or more letters followed by any run of non-letters.
	candidatePattern = regexp.MustCompile(`[a-zA-Z]+[^a-zA-Z]*`)

	// Letters, ignored non-digits, then everything from the first digit.
	boundaryPattern = regexp.MustCompile(`(?s)^([a-zA-Z]+)[^0-9]*([0-9].*)$`)
)

// Tokenize splits a query into candidates, left to right and non-overlapping.
// The sequence is lazy and can be ranged over any number of times.
func Tokenize(query string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		offset := 0
		for offset < len(query) {
			loc := candidatePattern.FindStringIndex(query[offset:])
			if loc == nil {
				return
			}
			start, end := offset+loc[0], offset+loc[1]
			if !yield(Candidate{Text: query[start:end], Offset: start}) {
				return
			}
			offset = end
		}
	}
}

// TrimCandidate cuts the text after its last digit. A candidate without
// digits is skipped.
func TrimCandidate(text string) Outcome[string] {
	i := strings.LastIndexFunc(text, isDigit)
	if i < 0 {
		return skip[string](ReasonNoDigits)
	}
	return ok(text[:i+1])
}

// Split is a candidate separated at its letter/digit boundary.
type Split struct {
	Letters string // candidate book code, as written
	Suffix  string // from the first digit to the end
}

// SplitBoundary separates the leading letters from the numeric suffix. The
// characters between them are discarded.
func SplitBoundary(trimmed string) Outcome[Split] {
	m := boundaryPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return skip[Split](ReasonNoBoundary)
	}
	return ok(Split{Letters: m[1], Suffix: m[2]})
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
