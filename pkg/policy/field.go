package policy

import "time"

// FieldName is an attribute key, unique within an entity type.
type FieldName string

// FieldType is the declared value type of a field. TypeAny skips type checks.
type FieldType uint8

const (
	TypeAny FieldType = iota
	TypeString
	TypeStringList
	TypeTime
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeStringList:
		return "list"
	case TypeTime:
		return "timestamp"
	default:
		return "any"
	}
}

// accepts reports whether the value satisfies the declared type.
// A []any of strings is accepted for TypeStringList since JSON decoding
// produces that shape.
func (t FieldType) accepts(v any) bool {
	switch t {
	case TypeAny:
		return true
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeStringList:
		switch vv := v.(type) {
		case []string:
			return true
		case []any:
			for _, e := range vv {
				if _, ok := e.(string); !ok {
					return false
				}
			}
			return true
		}
		return false
	case TypeTime:
		switch v.(type) {
		case time.Time, string:
			return true
		}
		return false
	}
	return false
}

// ValidatorFunc checks a proposed value against the record's current state.
// Validators are pure: they may read the record but must not perform I/O.
type ValidatorFunc func(rec *Record, value any) error

// ComputeFunc derives a field value from the record's current state. It may
// ignore any proposed value entirely (derived or hashed fields).
type ComputeFunc func(rec *Record) (any, error)

// ComputeStrategy is the variant governing when a field's computer runs:
// always, only when the field holds no value, or never (the zero value).
type ComputeStrategy struct {
	fn        ComputeFunc
	whenEmpty bool
}

// ComputeAlways returns a strategy whose computer runs on every pipeline
// pass, overriding any proposed value.
func ComputeAlways(fn ComputeFunc) ComputeStrategy {
	return ComputeStrategy{fn: fn}
}

// ComputeWhenEmpty returns a strategy whose computer runs only when the
// field has no proposed and no existing value.
func ComputeWhenEmpty(fn ComputeFunc) ComputeStrategy {
	return ComputeStrategy{fn: fn, whenEmpty: true}
}

// IsZero reports whether no computer is declared.
func (c ComputeStrategy) IsZero() bool { return c.fn == nil }

// Descriptor is the static rule set for one governed attribute.
type Descriptor struct {
	Name     FieldName
	Type     FieldType
	Required bool

	Validator ValidatorFunc
	Compute   ComputeStrategy

	// ComputeOverridesType trusts the computer's output to satisfy the
	// declared type even when the raw input was a different type.
	ComputeOverridesType bool

	// ValidateBeforeCompute makes the validator observe the raw proposed
	// value before the computer transforms it. When false the computer
	// runs first and the validator sees its result.
	ValidateBeforeCompute bool
}
