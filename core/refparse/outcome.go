package refparse

import "fmt"

// Status classifies the result of a pipeline stage for one candidate.
type Status int

const (
	// StatusOK means the stage produced a value.
	StatusOK Status = iota
	// StatusSkip means the candidate is not a reference. Expected for free text.
	StatusSkip
	// StatusFatal means the candidate looked like a reference but is malformed.
	// Only that candidate is aborted.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkip:
		return "skip"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ok":
		*s = StatusOK
	case "skip":
		*s = StatusSkip
	case "fatal":
		*s = StatusFatal
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Skip reasons.
const (
	ReasonNoDigits    = "no reference digits found"
	ReasonNoBoundary  = "no letter/digit boundary"
	ReasonUnknownBook = "unknown book code"
)

// Outcome is the explicit result of one stage: a value, a skip with a
// reason, or a fatal error for the current candidate.
type Outcome[T any] struct {
	Value  T
	Status Status
	Reason string
	Err    error
}

// OK reports whether the stage produced a value.
func (o Outcome[T]) OK() bool {
	return o.Status == StatusOK
}

func ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusOK}
}

func skip[T any](reason string) Outcome[T] {
	return Outcome[T]{Status: StatusSkip, Reason: reason}
}

func fatal[T any](err error) Outcome[T] {
	return Outcome[T]{Status: StatusFatal, Reason: err.Error(), Err: err}
}
