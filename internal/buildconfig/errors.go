package buildconfig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every error returned for a configuration that
// violates the schema. Use errors.Is to detect it and errors.As to get the
// individual field problems from *ValidationError.
var ErrValidation = errors.New("invalid build configuration")

// FieldError describes a single problem with one configuration field.
type FieldError struct {
	Field   string
	Line    int
	Message string
}

func (e FieldError) String() string {
	field := e.Field
	if field == "" {
		field = "<root>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", field, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", field, e.Message)
}

// ValidationError aggregates every field problem found in one pass.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// problems collects field errors while walking an input.
type problems []FieldError

func (p *problems) add(field string, line int, format string, args ...any) {
	*p = append(*p, FieldError{Field: field, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	out := make([]FieldError, len(p))
	copy(out, p)
	return &ValidationError{Problems: out}
}
