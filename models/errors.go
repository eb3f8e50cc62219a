package models

import (
	"errors"
	"fmt"
)

// ErrMalformedInput marks raw export data that cannot be projected or parsed.
// It is fatal for the run.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError locates a malformed value inside a raw export.
// Row is the 1-based data row (header excluded); 0 means the header itself.
type MalformedInputError struct {
	Source string
	File   string
	Row    int
	Field  string
	Value  string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, ErrMalformedInput)
	if e.File != "" {
		msg += fmt.Sprintf(" in %s", e.File)
	}
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" value %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// Is reports ErrMalformedInput as a match so callers need not use errors.As.
func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }
