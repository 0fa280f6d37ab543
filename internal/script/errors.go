package script

import (
	"errors"
	"fmt"
)

// TypeMismatchError reports a guest value that cannot be coerced to a tag's
// declared type.
type TypeMismatchError struct {
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot coerce %s to %s", e.Got, e.Want)
}

// IsTypeMismatch returns true if the error is a failed coercion.
// Uses errors.As to handle wrapped errors.
func IsTypeMismatch(err error) bool {
	var te *TypeMismatchError
	return errors.As(err, &te)
}

// ExprError reports a guest script that failed to compile or raised at
// runtime. Source carries the offending expression text for diagnosis.
type ExprError struct {
	Source string
	Err    error
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Source, e.Err)
}

func (e *ExprError) Unwrap() error { return e.Err }

// IsExprError returns true if the error came from guest script evaluation.
func IsExprError(err error) bool {
	var ee *ExprError
	return errors.As(err, &ee)
}
