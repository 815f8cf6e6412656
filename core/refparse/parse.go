package refparse

// Options tunes a parse.
type Options struct {
	// DotSeparator makes "." separate fields like ":" ("Mt5.3-12").
	DotSeparator bool

	// Sink receives diagnostics as they are produced (optional). Diagnostics
	// are also collected on the Result.
	Sink DiagnosticSink
}

// CandidateReport records what happened to one candidate.
type CandidateReport struct {
	Candidate  Candidate `json:"candidate"`
	Book       string    `json:"book,omitempty"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	References int       `json:"references"`
	Err        error     `json:"-"`
}

// Result is the outcome of parsing one query.
type Result struct {
	Query       string            `json:"query"`
	References  []Reference       `json:"references"`
	Candidates  []CandidateReport `json:"candidates"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// Empty reports whether no candidate produced a reference. Callers should
// present this as "no valid references found".
func (r *Result) Empty() bool {
	return len(r.References) == 0
}

// Fatal returns the reports of candidates aborted by a format error.
func (r *Result) Fatal() []CandidateReport {
	var out []CandidateReport
	for _, c := range r.Candidates {
		if c.Status == StatusFatal {
			out = append(out, c)
		}
	}
	return out
}

// Parse runs the full pipeline over a query. It has no side effects other
// than calling opts.Sink and is safe to call concurrently with a shared
// registry.
func Parse(query string, reg *Registry, opts Options) *Result {
	res := &Result{Query: query, References: []Reference{}}

	for cand := range Tokenize(query) {
		report, refs, diags := parseCandidate(cand, reg, opts)
		for _, d := range diags {
			if opts.Sink != nil {
				opts.Sink.Warn(d)
			}
		}
		res.Diagnostics = append(res.Diagnostics, diags...)
		res.References = append(res.References, refs...)
		res.Candidates = append(res.Candidates, report)
	}

	return res
}

func parseCandidate(cand Candidate, reg *Registry, opts Options) (CandidateReport, []Reference, []Diagnostic) {
	report := CandidateReport{Candidate: cand}
	stop := func(status Status, reason string, err error) (CandidateReport, []Reference, []Diagnostic) {
		report.Status, report.Reason, report.Err = status, reason, err
		return report, nil, nil
	}

	trimmed := TrimCandidate(cand.Text)
	if !trimmed.OK() {
		return stop(trimmed.Status, trimmed.Reason, trimmed.Err)
	}

	split := SplitBoundary(trimmed.Value)
	if !split.OK() {
		return stop(split.Status, split.Reason, split.Err)
	}

	book := reg.Resolve(split.Value.Letters)
	if !book.OK() {
		return stop(book.Status, book.Reason, book.Err)
	}
	report.Book = book.Value.Code

	norm := Normalize(split.Value.Suffix)
	diags := norm.Diagnostics
	for i := range diags {
		diags[i].Book = book.Value.Code
	}
	fail := func(status Status, reason string, err error) (CandidateReport, []Reference, []Diagnostic) {
		report.Status, report.Reason, report.Err = status, reason, err
		return report, nil, diags
	}

	groups := SplitStructure(norm.Text, opts.DotSeparator)
	if !groups.OK() {
		return fail(groups.Status, groups.Reason, groups.Err)
	}

	shaped := EnforceShape(groups.Value)
	if !shaped.OK() {
		return fail(shaped.Status, shaped.Reason, shaped.Err)
	}

	expanded := Expand(shaped.Value, book.Value.Bound)
	if !expanded.OK() {
		return fail(expanded.Status, expanded.Reason, expanded.Err)
	}

	refs := ValidateBounds(book.Value, expanded.Value)
	report.Status = StatusOK
	report.References = len(refs)

	return report, refs, diags
}
