// Package scripture defines the typed form of a resolved scripture locator
// and its canonical text renderings.
package scripture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref is a resolved locator inside one book.
//
// A Ref with VerseStart == 0 addresses a single bare number (a whole chapter
// when handed to a content provider). Otherwise it addresses the verses
// VerseStart..VerseEnd of Chapter; a single verse has VerseStart == VerseEnd.
type Ref struct {
	// Book is the registry book code (e.g., "Jn", "Mt").
	Book string `json:"book"`

	// Chapter is the leading number of the locator.
	Chapter int `json:"chapter"`

	// VerseStart is the first verse, 0 for bare-number locators.
	VerseStart int `json:"verse_start,omitempty"`

	// VerseEnd is the last verse, inclusive.
	VerseEnd int `json:"verse_end,omitempty"`
}

// canonicalGrammar accepts the display form produced by Ref.String.
// Examples: "Jn 3", "Jn 3:16", "Jn 3:16-18", "Mt5:3-12"
//
//nolint:govet // participle grammar tags are not standard struct tags
type canonicalGrammar struct {
	Book    string     `parser:"@Ident"`
	Chapter int        `parser:"@Int"`
	Verses  *verseSpan `parser:"( \":\" @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type verseSpan struct {
	Start int  `parser:"@Int"`
	End   *int `parser:"( \"-\" @Int )?"`
}

var canonicalLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var canonicalParser = participle.MustBuild[canonicalGrammar](
	participle.Lexer(canonicalLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses the canonical display form of a reference.
// Supported formats:
//   - "Jn 3" (bare number)
//   - "Jn 3:16" (single verse)
//   - "Jn 3:16-18" (verse range)
//
// The book code is returned as written; resolving it against a registry is
// the caller's job.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("empty reference string")
	}

	parsed, err := canonicalParser.ParseString("", s)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid reference format: %q: %w", s, err)
	}

	ref := Ref{
		Book:    parsed.Book,
		Chapter: parsed.Chapter,
	}
	if parsed.Verses != nil {
		ref.VerseStart = parsed.Verses.Start
		ref.VerseEnd = parsed.Verses.Start
		if parsed.Verses.End != nil {
			ref.VerseEnd = *parsed.Verses.End
		}
	}

	return ref, nil
}

// IsChapter reports whether the reference is a bare number with no verse part.
func (r Ref) IsChapter() bool {
	return r.VerseStart == 0
}

// IsRange returns true if this reference spans more than one verse.
func (r Ref) IsRange() bool {
	return r.VerseStart > 0 && r.VerseEnd > r.VerseStart
}

// String renders the canonical display form, e.g. "Jn 3:16-18".
func (r Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(r.Chapter))

	if r.VerseStart > 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(r.VerseStart))
		if r.IsRange() {
			sb.WriteString("-")
			sb.WriteString(strconv.Itoa(r.VerseEnd))
		}
	}

	return sb.String()
}

// OSIS renders the reference as an OSIS ID using the given OSIS book name,
// e.g. "John.3.16-18". An empty name falls back to the book code.
func (r Ref) OSIS(bookName string) string {
	if bookName == "" {
		bookName = r.Book
	}

	var sb strings.Builder
	sb.WriteString(bookName)
	sb.WriteString(".")
	sb.WriteString(strconv.Itoa(r.Chapter))

	if r.VerseStart > 0 {
		sb.WriteString(".")
		sb.WriteString(strconv.Itoa(r.VerseStart))
		if r.IsRange() {
			sb.WriteString("-")
			sb.WriteString(strconv.Itoa(r.VerseEnd))
		}
	}

	return sb.String()
}

// Contains returns true if this reference covers the other reference.
func (r Ref) Contains(other Ref) bool {
	if r.Book != other.Book || r.Chapter != other.Chapter {
		return false
	}

	// Bare chapter covers every verse in it
	if r.IsChapter() {
		return true
	}
	if other.IsChapter() {
		return false
	}

	end := other.VerseEnd
	if end < other.VerseStart {
		end = other.VerseStart
	}
	return other.VerseStart >= r.VerseStart && end <= r.VerseEnd
}
