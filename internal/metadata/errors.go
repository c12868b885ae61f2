package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the blob ends before a declared field.
	ErrTruncated = errors.New("metadata truncated")

	// ErrInvalidUTF8 is returned when a string field is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("metadata field is not valid UTF-8")
)

// DecodeError reports which field failed to decode and where.
type DecodeError struct {
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
