package vcf

import (
	"errors"
	"fmt"
)

// UnknownTagError reports a lookup of a tag that the header never declared.
type UnknownTagError struct {
	Namespace Namespace
	Tag       string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("%s tag %q not declared in header", e.Namespace, e.Tag)
}

// IsUnknownTag returns true if the error is an unknown tag lookup.
// Uses errors.As to handle wrapped errors.
func IsUnknownTag(err error) bool {
	var te *UnknownTagError
	return errors.As(err, &te)
}

// UnknownSampleError reports a lookup of a sample name absent from the header.
type UnknownSampleError struct {
	Sample string
}

func (e *UnknownSampleError) Error() string {
	return fmt.Sprintf("sample %q not found in header", e.Sample)
}

// IsUnknownSample returns true if the error is an unknown sample lookup.
func IsUnknownSample(err error) bool {
	var se *UnknownSampleError
	return errors.As(err, &se)
}

// ParseError reports a malformed header line or record field, with the
// 1-based line number when known.
type ParseError struct {
	Line    int
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
