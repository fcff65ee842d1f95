package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeSerialization = "SERIALIZATION_ERROR"
	ErrCodeExpression    = "EXPRESSION_ERROR"
	ErrCodeOperandFailed = "OPERAND_FAILED"
	ErrCodeStore         = "STORE_ERROR"
)

// MappingError is the structured error type for all rowmap operations.
// It covers the configuration/programming error channel only; data-dependent
// evaluation failures travel inside a failed TransformationResult instead.
type MappingError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Field   string         `json:"field,omitempty"`
	Cause   error          `json:"-"`
}

func (e *MappingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] field %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *MappingError) Unwrap() error {
	return e.Cause
}

// NewError creates a new MappingError.
func NewError(code, message string) *MappingError {
	return &MappingError{Code: code, Message: message}
}

// NewErrorf creates a new MappingError with a formatted message.
func NewErrorf(code, format string, args ...any) *MappingError {
	return &MappingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField attaches the target field name to the error.
func (e *MappingError) WithField(field string) *MappingError {
	e.Field = field
	return e
}

// WithCause attaches an underlying cause.
func (e *MappingError) WithCause(err error) *MappingError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *MappingError) WithDetails(details map[string]any) *MappingError {
	e.Details = details
	return e
}
