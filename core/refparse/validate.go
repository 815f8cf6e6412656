package refparse

import (
	"github.com/FocuswithJustin/versefinder/core/scripture"
)

// Reference is a validated (book, group) pair. Group has one field (a bare
// number) or three (chapter, first verse, last verse), all integers within
// the book's bound.
type Reference struct {
	Book  string     `json:"book"`
	OSIS  string     `json:"osis,omitempty"`
	Group FieldGroup `json:"group"`

	ref scripture.Ref
}

// Ref returns the typed form of the reference.
func (r Reference) Ref() scripture.Ref {
	return r.ref
}

// String renders the canonical display form, e.g. "Jn 3:16-18".
func (r Reference) String() string {
	return r.ref.String()
}

// ValidateBounds keeps the groups whose numeric components all lie in
// [1, book.Bound], in order. Groups that are not fully numeric are dropped.
func ValidateBounds(book Book, groups []FieldGroup) []Reference {
	var out []Reference

	for _, g := range groups {
		nums, valid := groupNumbers(g, book.Bound)
		if !valid {
			continue
		}

		ref := scripture.Ref{Book: book.Code, Chapter: nums[0]}
		if len(nums) == 3 {
			ref.VerseStart, ref.VerseEnd = nums[1], nums[2]
		}
		out = append(out, Reference{Book: book.Code, OSIS: book.OSIS, Group: g, ref: ref})
	}

	return out
}

func groupNumbers(g FieldGroup, bound int) ([]int, bool) {
	if len(g) != 1 && len(g) != 3 {
		return nil, false
	}
	nums := make([]int, len(g))
	for i, field := range g {
		n, err := parseNumber(field)
		if err != nil || n < 1 || n > bound {
			return nil, false
		}
		nums[i] = n
	}
	return nums, true
}
