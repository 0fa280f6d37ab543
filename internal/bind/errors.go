package bind

import (
	"errors"
	"fmt"
)

// FieldNotFoundError reports a guest script referencing a field name the
// binding does not register. Unknown names fail loudly to catch typos early.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("variant has no field %q", e.Field)
}

// IsFieldNotFound returns true if the error is an unknown field reference.
// Uses errors.As to handle wrapped errors.
func IsFieldNotFound(err error) bool {
	var fe *FieldNotFoundError
	return errors.As(err, &fe)
}

// ErrBindingReleased is returned when guest code uses a variant handle after
// its evaluation call returned.
var ErrBindingReleased = errors.New("variant used outside its evaluation scope")
