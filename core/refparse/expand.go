package refparse

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/versefinder/core/errors"
)

// Expand turns shaped groups into concrete groups, clamping every range to
// bound. Rules by shape:
//
//	"a-b"        one group per n in [min, min(max, bound)]
//	"a"          unchanged
//	"c", "v"     (c, v, v)
//	"c", "a-b"   (c, min, min(max, bound))
//	"a-b", "v"   (k) for k in [lo, hi), then (hi, 1, v)
//	"a-b", "c-d" fatal for the candidate
//
// A one-field range with a non-numeric side passes through unchanged. Any
// other group that fails to parse is dropped.
//
// The cross-chapter form emits bare chapters for [lo, hi) and a trailing
// triple for hi, while the single-field form enumerates [lo, hi]. The
// asymmetry is kept as-is; it is not known whether it is intended.
func Expand(groups []FieldGroup, bound int) Outcome[[]FieldGroup] {
	var out []FieldGroup

	for _, g := range groups {
		switch len(g) {
		case 1:
			out = append(out, expandSingle(g[0], bound)...)
		case 2:
			expanded, err := expandPair(g, bound)
			if err != nil {
				return fatal[[]FieldGroup](err)
			}
			out = append(out, expanded...)
		default:
			return fatal[[]FieldGroup](errors.NewFormat("expand", g.String(), "group must have 1 or 2 fields"))
		}
	}

	return ok(out)
}

func expandSingle(field string, bound int) []FieldGroup {
	lo, hi, isRange, numeric := parseRange(field)
	if !isRange || !numeric {
		return []FieldGroup{{field}}
	}

	hi = min(hi, bound)
	out := make([]FieldGroup, 0, max(hi-lo+1, 0))
	for n := lo; n <= hi; n++ {
		out = append(out, FieldGroup{itoa(n)})
	}
	return out
}

func expandPair(g FieldGroup, bound int) ([]FieldGroup, error) {
	first, second := g[0], g[1]
	firstIsRange := hasDash(first)
	secondIsRange := hasDash(second)

	switch {
	case firstIsRange && secondIsRange:
		return nil, errors.NewFormat("expand", g.String(), "chapter and verse cannot both be ranges")

	case !firstIsRange && !secondIsRange:
		chapter, err1 := parseNumber(first)
		verse, err2 := parseNumber(second)
		if err1 != nil || err2 != nil {
			return nil, nil
		}
		return []FieldGroup{{itoa(chapter), itoa(verse), itoa(verse)}}, nil

	case secondIsRange:
		chapter, err := parseNumber(first)
		lo, hi, _, numeric := parseRange(second)
		if err != nil || !numeric {
			return nil, nil
		}
		return []FieldGroup{{itoa(chapter), itoa(lo), itoa(min(hi, bound))}}, nil

	default:
		lo, hi, _, numeric := parseRange(first)
		verse, err := parseNumber(second)
		if err != nil || !numeric {
			return nil, nil
		}
		hi = min(hi, bound)
		if lo > hi {
			return nil, nil
		}
		var out []FieldGroup
		for k := lo; k < hi; k++ {
			out = append(out, FieldGroup{itoa(k)})
		}
		return append(out, FieldGroup{itoa(hi), "1", itoa(verse)}), nil
	}
}

// parseRange splits a field on its first dash (hyphen, en dash or em dash).
// lo and hi are ordered. numeric is false if either side is not a number.
func parseRange(field string) (lo, hi int, isRange, numeric bool) {
	i := strings.IndexFunc(field, isDash)
	if i < 0 {
		return 0, 0, false, false
	}
	_, width := utf8.DecodeRuneInString(field[i:])
	start, err1 := parseNumber(field[:i])
	end, err2 := parseNumber(field[i+width:])
	if err1 != nil || err2 != nil {
		return 0, 0, true, false
	}
	return min(start, end), max(start, end), true, true
}

// parseNumber accepts only a run of ASCII digits. A run too large for an
// int saturates to math.MaxInt; callers clamp to the bound.
func parseNumber(s string) (int, error) {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return !isDigit(r) }) >= 0 {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, nil
	}
	return n, err
}

func hasDash(s string) bool {
	return strings.IndexFunc(s, isDash) >= 0
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
