package validator

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField     = errors.New("field required")
	ErrEmptyValue       = errors.New("value must not be empty")
	ErrInvalidType      = errors.New("wrong value type")
	ErrInvalidEnum      = errors.New("value not permitted")
	ErrInvalidDecimal   = errors.New("invalid numeric value")
	ErrInvalidTimestamp = errors.New("invalid timestamp format")
	ErrNegative         = errors.New("value must not be negative")
)

// ValidationError rejects a payload because of one named field
type ValidationError struct {
	Field string // internal name, e.g. qty_type
	Alias string // external name, e.g. qtyType
	Value any    // raw value received, nil when the field was missing
	Err   error  // one of the Err* sentinels above
}

func (e *ValidationError) Error() string {
	name := e.Field
	if e.Alias != "" && e.Alias != e.Field {
		name = fmt.Sprintf("%s (%s)", e.Field, e.Alias)
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: %v", name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", name, e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newError(field string, value any, err error) *ValidationError {
	return &ValidationError{
		Field: field,
		Alias: Alias(field),
		Value: value,
		Err:   err,
	}
}
