package refparse

import (
	"fmt"
	"strings"
	"unicode"
)

// Separators allowed to survive punctuation filtering:
// hyphen, en dash, em dash, period, comma, colon, semicolon.
const allowedSeparators = "-–—.,:;"

// Normalized is a cleaned numeric suffix with the warnings raised while
// cleaning it.
type Normalized struct {
	Text        string
	Diagnostics []Diagnostic
}

// Normalize cleans a numeric suffix:
//
//  1. remove all whitespace
//  2. remove every character that is not a letter, digit, underscore or
//     allowed separator
//  3. warn when removing whitespace changed the number of digit groups
//  4. warn on clusters of mixed adjacent separators
//  5. collapse runs of dashes to a single "-" (with a warning)
//
// Normalize is idempotent on its own output text.
func Normalize(suffix string) Normalized {
	var diags []Diagnostic

	before := countDigitGroups(suffix)
	text := removeWhitespace(suffix)
	if after := countDigitGroups(text); after != before {
		diags = append(diags, Diagnostic{
			Kind:      DiagDigitGroupMismatch,
			Candidate: suffix,
			Message:   fmt.Sprintf("found %d digit groups before removing whitespace and %d after; check for stray spaces inside numbers", before, after),
		})
	}
	text = filterPunctuation(text)

	text, clusterDiags := inspectClusters(text)
	diags = append(diags, clusterDiags...)

	return Normalized{Text: text, Diagnostics: diags}
}

func removeWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func filterPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordChar(r) || unicode.IsSpace(r) || isSeparator(r) {
			return r
		}
		return -1
	}, s)
}

// inspectClusters scans runs of adjacent separators. A run whose members
// differ is reported as mixed and left untouched. Runs made only of dashes
// are collapsed to a single "-".
func inspectClusters(s string) (string, []Diagnostic) {
	var (
		diags []Diagnostic
		sb    strings.Builder
	)
	runes := []rune(s)
	offset := 0 // byte offset of runes[i] in s

	for i := 0; i < len(runes); {
		if !isSeparator(runes[i]) {
			sb.WriteRune(runes[i])
			offset += len(string(runes[i]))
			i++
			continue
		}

		j := i + 1
		for j < len(runes) && isSeparator(runes[j]) {
			j++
		}
		cluster := string(runes[i:j])

		switch {
		case j-i == 1:
			sb.WriteString(cluster)
		case isMixed(runes[i:j]):
			diags = append(diags, Diagnostic{
				Kind:      DiagMixedPunctuation,
				Candidate: s,
				Cluster:   cluster,
				Offset:    offset,
				Message:   fmt.Sprintf("mixed punctuation %q at offset %d", cluster, offset),
			})
			sb.WriteString(collapseDashes(cluster))
		default:
			if isDash(runes[i]) {
				diags = append(diags, Diagnostic{
					Kind:      DiagRepeatedPunctuation,
					Candidate: s,
					Cluster:   cluster,
					Offset:    offset,
					Message:   fmt.Sprintf("repeated dash %q at offset %d collapsed", cluster, offset),
				})
			}
			sb.WriteString(collapseDashes(cluster))
		}

		offset += len(cluster)
		i = j
	}

	return sb.String(), diags
}

// collapseDashes replaces each run of two or more dashes with "-".
// A lone dash keeps its original form.
func collapseDashes(cluster string) string {
	var (
		sb    strings.Builder
		first rune
		run   int
	)
	flush := func() {
		switch {
		case run == 1:
			sb.WriteRune(first)
		case run > 1:
			sb.WriteRune('-')
		}
		run = 0
	}

	for _, r := range cluster {
		if isDash(r) {
			if run == 0 {
				first = r
			}
			run++
			continue
		}
		flush()
		sb.WriteRune(r)
	}
	flush()

	return sb.String()
}

func isMixed(cluster []rune) bool {
	for _, r := range cluster[1:] {
		if r != cluster[0] {
			return true
		}
	}
	return false
}

func countDigitGroups(s string) int {
	n := 0
	inGroup := false
	for _, r := range s {
		switch {
		case isDigit(r) && !inGroup:
			n++
			inGroup = true
		case !isDigit(r):
			inGroup = false
		}
	}
	return n
}

// isWordChar matches the ASCII word class [A-Za-z0-9_].
func isWordChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || isDigit(r) || r == '_'
}

func isSeparator(r rune) bool {
	return strings.ContainsRune(allowedSeparators, r)
}

func isDash(r rune) bool {
	return r == '-' || r == '–' || r == '—'
}
