package logging

import (
	"context"

	"github.com/FocuswithJustin/versefinder/core/refparse"
)

// DiagnosticSink returns a refparse.DiagnosticSink that logs each parser
// warning at WARN level, tagged with the request ID from ctx if any.
func DiagnosticSink(ctx context.Context) refparse.DiagnosticSink {
	return refparse.DiagnosticSinkFunc(func(d refparse.Diagnostic) {
		ParseWarning(ctx, d)
	})
}

// ParseWarning logs one parser diagnostic.
func ParseWarning(ctx context.Context, d refparse.Diagnostic) {
	args := []any{
		"kind", string(d.Kind),
		"book", d.Book,
		"candidate", d.Candidate,
	}
	if d.Cluster != "" {
		args = append(args, "cluster", d.Cluster, "offset", d.Offset)
	}
	LoggerFromContext(ctx).Warn(d.Message, args...)
}
