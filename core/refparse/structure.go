package refparse

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/versefinder/core/errors"
)

// FieldGroup is one comma/colon-delimited unit of a reference.
//
// Before expansion a group holds one field (a bare number or range) or two
// (chapter and verse). After expansion it holds one field (a bare number) or
// three (chapter, first verse, last verse).
type FieldGroup []string

// String joins the fields with ":".
func (g FieldGroup) String() string {
	return strings.Join(g, ":")
}

// structureLexer splits a cleaned suffix into record separators (";" or ","),
// field separators (":") and text.
var structureLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "RecordSep", Pattern: `[;,]+`},
	{Name: "FieldSep", Pattern: `:+`},
	{Name: "Text", Pattern: `[^;,:]+`},
})

// dottedStructureLexer also treats "." as a field separator.
var dottedStructureLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "RecordSep", Pattern: `[;,]+`},
	{Name: "FieldSep", Pattern: `[:.]+`},
	{Name: "Text", Pattern: `[^;,:.]+`},
})

// SplitStructure splits a cleaned suffix into records on runs of ";" or ","
// and each record into fields on runs of ":". Fields are trimmed; records
// that are empty after trimming are dropped. With dotSeparator, "." also
// separates fields.
func SplitStructure(cleaned string, dotSeparator bool) Outcome[[]FieldGroup] {
	def := structureLexer
	if dotSeparator {
		def = dottedStructureLexer
	}
	symbols := def.Symbols()

	lex, err := def.LexString("", cleaned)
	if err != nil {
		return fatal[[]FieldGroup](errors.NewFormat("structure", cleaned, err.Error()))
	}

	var (
		groups []FieldGroup
		fields FieldGroup
		text   strings.Builder
	)
	endField := func() {
		fields = append(fields, strings.TrimSpace(text.String()))
		text.Reset()
	}
	endRecord := func() {
		endField()
		if len(fields) > 1 || fields[0] != "" {
			groups = append(groups, fields)
		}
		fields = nil
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			return fatal[[]FieldGroup](errors.NewFormat("structure", cleaned, err.Error()))
		}
		if tok.EOF() {
			break
		}
		switch tok.Type {
		case symbols["RecordSep"]:
			endRecord()
		case symbols["FieldSep"]:
			endField()
		default:
			text.WriteString(tok.Value)
		}
	}
	endRecord()

	return ok(groups)
}
