package refparse

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/versefinder/core/errors"
)

// Book is one registry entry.
type Book struct {
	// Code is the canonical book code (e.g., "Jn").
	Code string `json:"code" yaml:"code"`

	// Bound is the maximum valid numeric component for this book.
	Bound int `json:"bound" yaml:"bound"`

	// OSIS is the OSIS book name used by providers keyed by OSIS IDs (optional).
	OSIS string `json:"osis,omitempty" yaml:"osis,omitempty"`

	// Name is a display name (optional).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Registry maps canonical book codes to their entries. A Registry is
// immutable once built and safe for concurrent use.
type Registry struct {
	books map[string]Book
	codes []string
}

// NewRegistry builds a registry. Codes are canonicalized; duplicate codes
// and non-positive bounds are rejected.
func NewRegistry(books ...Book) (*Registry, error) {
	if len(books) == 0 {
		return nil, errors.NewValidation("books", "registry must contain at least one book")
	}

	r := &Registry{books: make(map[string]Book, len(books))}
	for _, b := range books {
		if !isLetters(b.Code) {
			return nil, errors.NewValidation("books.code", fmt.Sprintf("%q must be letters only", b.Code))
		}
		b.Code = CanonicalCode(b.Code)
		if b.Bound <= 0 {
			return nil, errors.NewValidation("books."+b.Code+".bound", "must be positive")
		}
		if _, dup := r.books[b.Code]; dup {
			return nil, errors.NewValidation("books."+b.Code, "duplicate book code")
		}
		r.books[b.Code] = b
		r.codes = append(r.codes, b.Code)
	}
	sort.Strings(r.codes)

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
// Intended for package-level defaults and tests.
func MustRegistry(books ...Book) *Registry {
	r, err := NewRegistry(books...)
	if err != nil {
		panic(fmt.Sprintf("refparse: invalid registry: %v", err))
	}
	return r
}

// DefaultBooks returns the built-in registry entries.
func DefaultBooks() []Book {
	return []Book{
		{Code: "Ddd", Bound: 50},
		{Code: "Jn", Bound: 21, OSIS: "John", Name: "John"},
		{Code: "Mc", Bound: 16, OSIS: "Mark", Name: "Mark"},
		{Code: "Mt", Bound: 28, OSIS: "Matt", Name: "Matthew"},
	}
}

// DefaultRegistry returns a new registry holding DefaultBooks.
func DefaultRegistry() *Registry {
	return MustRegistry(DefaultBooks()...)
}

// CanonicalCode upper-cases the first letter and lower-cases the rest.
func CanonicalCode(s string) string {
	// A Caser is stateful and must not be shared between goroutines.
	return cases.Title(language.Und).String(s)
}

// Lookup canonicalizes a letters prefix and resolves it.
func (r *Registry) Lookup(letters string) (Book, bool) {
	b, found := r.books[CanonicalCode(letters)]
	return b, found
}

// Resolve is Lookup expressed as a stage outcome.
func (r *Registry) Resolve(letters string) Outcome[Book] {
	b, found := r.Lookup(letters)
	if !found {
		return skip[Book](ReasonUnknownBook)
	}
	return ok(b)
}

// Books returns all entries sorted by code.
func (r *Registry) Books() []Book {
	out := make([]Book, 0, len(r.codes))
	for _, code := range r.codes {
		out = append(out, r.books[code])
	}
	return out
}

// Len returns the number of books.
func (r *Registry) Len() int {
	return len(r.codes)
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
