package table

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHeaders indicates a header count of zero or less.
	ErrNoHeaders = errors.New("header count must be positive")
	// ErrShortBuffer indicates a buffer that cannot hold the requested headers.
	ErrShortBuffer = errors.New("buffer shorter than header count")
	// ErrRaggedBody indicates a body whose length is not a multiple of the header count.
	ErrRaggedBody = errors.New("body length not divisible by header count")
	// ErrUnknownHeader indicates a lookup by a header name the table does not have.
	ErrUnknownHeader = errors.New("unknown header")
)

// ShapeError describes a flat buffer that does not form a rectangular table.
type ShapeError struct {
	Len     int
	Headers int
	Err     error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("malformed table buffer (len=%d, headers=%d): %v", e.Len, e.Headers, e.Err)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// HeaderError reports a header name missing from a table.
type HeaderError struct {
	Name string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownHeader, e.Name)
}

func (e *HeaderError) Unwrap() error {
	return ErrUnknownHeader
}
