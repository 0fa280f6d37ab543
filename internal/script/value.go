package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over the guest value model. Only Null, Bool,
// Int, Float, Str, List, and Map implement it. Engines translate their native
// values into this model at the invocation boundary so the pipeline never
// touches engine-specific types.
type Value interface {
	value() // sealed
}

// Null is the guest nil/undefined value, also used for declared-but-absent
// tag values.
type Null struct{}

func (Null) value() {}

// Bool is a guest boolean.
type Bool bool

func (Bool) value() {}

// Int is a guest integer. Always int64.
type Int int64

func (Int) value() {}

// Float is a guest floating-point number.
type Float float64

func (Float) value() {}

// Str is a guest string.
type Str string

func (Str) value() {}

// List is an ordered sequence of guest values.
type List []Value

func (List) value() {}

// Map is a string-keyed collection of guest values.
type Map map[string]Value

func (Map) value() {}

// Truthy applies guest truthiness: nil and false are false, everything else
// (including 0 and "") is true, matching Lua semantics.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(t)
	default:
		return true
	}
}

// AsInt coerces a value to an integer. Floats must be integral.
func AsInt(v Value) (int64, error) {
	switch t := v.(type) {
	case Int:
		return int64(t), nil
	case Float:
		n := int64(t)
		if Float(n) != t {
			return 0, &TypeMismatchError{Want: "Integer", Got: describe(v)}
		}
		return n, nil
	}
	return 0, &TypeMismatchError{Want: "Integer", Got: describe(v)}
}

// AsFloat coerces a value to a float; integers widen.
func AsFloat(v Value) (float64, error) {
	switch t := v.(type) {
	case Float:
		return float64(t), nil
	case Int:
		return float64(t), nil
	}
	return 0, &TypeMismatchError{Want: "Float", Got: describe(v)}
}

// AsString coerces a value to a string; numbers render with their natural
// text form.
func AsString(v Value) (string, error) {
	switch t := v.(type) {
	case Str:
		return string(t), nil
	case Int:
		return strconv.FormatInt(int64(t), 10), nil
	case Float:
		return strconv.FormatFloat(float64(t), 'g', -1, 64), nil
	}
	return "", &TypeMismatchError{Want: "String", Got: describe(v)}
}

// AsBool coerces a value to a boolean. Only booleans qualify; use Truthy for
// filter semantics.
func AsBool(v Value) (bool, error) {
	if b, ok := v.(Bool); ok {
		return bool(b), nil
	}
	return false, &TypeMismatchError{Want: "Flag", Got: describe(v)}
}

// AsList returns the value as a list; a scalar becomes a one-element list and
// Null becomes an empty one.
func AsList(v Value) List {
	switch t := v.(type) {
	case List:
		return t
	case nil, Null:
		return nil
	default:
		return List{v}
	}
}

func describe(v Value) string {
	switch t := v.(type) {
	case nil, Null:
		return "nil"
	case Bool:
		return fmt.Sprintf("boolean %v", bool(t))
	case Int:
		return fmt.Sprintf("integer %d", int64(t))
	case Float:
		return fmt.Sprintf("float %v", float64(t))
	case Str:
		return fmt.Sprintf("string %q", string(t))
	case List:
		return fmt.Sprintf("list of %d", len(t))
	case Map:
		return fmt.Sprintf("map of %d", len(t))
	}
	return "unknown"
}

// Render formats a value for text output the way templates expect: scalars
// use their natural form, lists join with commas, nil renders ".".
func Render(v Value) string {
	switch t := v.(type) {
	case nil, Null:
		return "."
	case Bool:
		return strconv.FormatBool(bool(t))
	case Int:
		return strconv.FormatInt(int64(t), 10)
	case Float:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case Str:
		return string(t)
	case List:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Render(e)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", v)
}
