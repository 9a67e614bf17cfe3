package knowledge

import (
	"errors"
	"fmt"
)

// Sentinel errors for load failures.
var (
	// ErrMalformed is returned when the source cannot be decoded.
	ErrMalformed = errors.New("knowledge: malformed source")

	// ErrMissingData is returned when the top-level "data" field is absent.
	ErrMissingData = errors.New(`knowledge: missing top-level "data" field`)

	// ErrEmptyQuestion is returned when an entry has no question text.
	ErrEmptyQuestion = errors.New("knowledge: entry has empty question")
)

// LoadError describes why a knowledge source could not be loaded.
type LoadError struct {
	// Source is the file path, empty when parsing from a reader.
	Source string

	// Index is the 1-based entry position for per-entry failures, 0 otherwise.
	Index int

	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	src := e.Source
	if src == "" {
		src = "<reader>"
	}
	if e.Index > 0 {
		return fmt.Sprintf("load %s: entry %d: %v", src, e.Index, e.Err)
	}
	return fmt.Sprintf("load %s: %v", src, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
