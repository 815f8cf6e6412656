package refparse

import (
	"fmt"

	"github.com/FocuswithJustin/versefinder/core/errors"
)

// shapeState is the accumulator of the shape fold: the groups emitted so far
// and the chapter carried from the most recent two-field group.
type shapeState struct {
	out       []FieldGroup
	chapter   string
	hasActive bool
}

// EnforceShape applies the sticky chapter rule. A two-field group sets the
// active chapter; a later one-field group gets the active chapter prepended.
// One-field groups before any two-field group pass through unchanged. Any
// other group length aborts the candidate.
func EnforceShape(groups []FieldGroup) Outcome[[]FieldGroup] {
	state := shapeState{out: make([]FieldGroup, 0, len(groups))}

	for _, g := range groups {
		next, err := state.step(g)
		if err != nil {
			return fatal[[]FieldGroup](err)
		}
		state = next
	}

	return ok(state.out)
}

func (s shapeState) step(g FieldGroup) (shapeState, error) {
	switch len(g) {
	case 2:
		s.chapter, s.hasActive = g[0], true
		s.out = append(s.out, g)
	case 1:
		if s.hasActive {
			s.out = append(s.out, FieldGroup{s.chapter, g[0]})
		} else {
			s.out = append(s.out, g)
		}
	default:
		return s, errors.NewFormat("shape", g.String(), fmt.Sprintf("group has %d fields, want 1 or 2", len(g)))
	}
	return s, nil
}
