package bank

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the resource named in the request path does not exist.
var ErrNotFound = errors.New("not found")

// Error codes shared by ValidationError and InvalidOperationError.
const (
	CodeRequired        = "required"
	CodeInvalid         = "invalid"
	CodeDoesNotExist    = "does_not_exist"
	CodeUnique          = "unique"
	CodeWeightSum       = "weight_sum"
	CodeMinValue        = "min_value"
	CodeMaxValue        = "max_value"
	CodeMaxLength       = "max_length"
	CodeExceedsOrder    = "exceeds_order"
	CodeDuplicate       = "duplicate"
	CodeNotAllowed      = "not_allowed"
	CodeAlreadyComplete = "already_complete"
	CodeCancelled       = "cancelled"
	CodeSingleShipment  = "single_shipment"
	CodeReadOnly        = "read_only"
)

// ValidationError is an input that violates a schema or domain rule.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, code, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidOperationError is a request that is well-formed but not allowed in
// the current state, such as completing an order twice.
type InvalidOperationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func notAllowed(field, code, format string, args ...any) *InvalidOperationError {
	return &InvalidOperationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}
