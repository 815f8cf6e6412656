package refparse

// DiagnosticKind names a class of non-fatal formatting anomaly.
type DiagnosticKind string

const (
	// DiagDigitGroupMismatch: cleanup changed the number of digit groups,
	// e.g. "3:1 6" where a stray space splits one number.
	DiagDigitGroupMismatch DiagnosticKind = "digit-group-mismatch"
	// DiagMixedPunctuation: adjacent separators that differ, e.g. ":-" or "-–".
	DiagMixedPunctuation DiagnosticKind = "mixed-punctuation"
	// DiagRepeatedPunctuation: a run of dashes collapsed to one, e.g. "--".
	DiagRepeatedPunctuation DiagnosticKind = "repeated-punctuation"
)

// Diagnostic is a non-fatal warning. Diagnostics never change results.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	Book      string         `json:"book,omitempty"`
	Candidate string         `json:"candidate"`
	Cluster   string         `json:"cluster,omitempty"`
	Offset    int            `json:"offset"`
	Message   string         `json:"message"`
}

// DiagnosticSink receives diagnostics as they are produced.
type DiagnosticSink interface {
	Warn(d Diagnostic)
}

// DiagnosticSinkFunc adapts a function to DiagnosticSink.
type DiagnosticSinkFunc func(d Diagnostic)

// Warn calls f(d).
func (f DiagnosticSinkFunc) Warn(d Diagnostic) {
	f(d)
}
