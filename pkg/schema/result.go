package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// ValueType is the semantic type tag carried alongside a value through the
// transformation pipeline.
type ValueType string

const (
	TypeString     ValueType = "string"
	TypeNumber     ValueType = "number"
	TypeDate       ValueType = "date"
	TypeBoolean    ValueType = "boolean"
	TypeCollection ValueType = "collection"
	TypeEmpty      ValueType = "empty"
)

// DetectType infers the semantic type of a raw row value.
func DetectType(v any) ValueType {
	switch v.(type) {
	case nil:
		return TypeEmpty
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return TypeNumber
	case time.Time:
		return TypeDate
	case []any, []string:
		return TypeCollection
	default:
		return TypeString
	}
}

// TransformationResult is the unit of data flowing through a field's
// transformation chain. It is a value type: every step derives a new result
// and the original value/type set at pipeline entry are never overwritten.
type TransformationResult struct {
	original     any
	originalType ValueType
	current      any
	currentType  ValueType
	errMessage   string
}

// Success creates a result at pipeline entry, or after a host-built step.
func Success(original any, originalType ValueType, current any, currentType ValueType) TransformationResult {
	return TransformationResult{
		original:     original,
		originalType: originalType,
		current:      current,
		currentType:  currentType,
	}
}

// Failure creates a failed result carrying the untouched input and the type
// the step was trying to produce.
func Failure(original any, targetType ValueType, errMessage string) TransformationResult {
	if errMessage == "" {
		errMessage = "transformation failed"
	}
	return TransformationResult{
		original:     original,
		originalType: DetectType(original),
		currentType:  targetType,
		errMessage:   errMessage,
	}
}

// NewResult creates the entry result for a raw row value: original and
// current both hold the input.
func NewResult(value any) TransformationResult {
	t := DetectType(value)
	return Success(value, t, value, t)
}

// Next derives a successful result with a new current value, preserving the
// original value and type. Deriving from a failed result returns the failed
// result unchanged.
func (r TransformationResult) Next(current any, currentType ValueType) TransformationResult {
	if r.Failed() {
		return r
	}
	return TransformationResult{
		original:     r.original,
		originalType: r.originalType,
		current:      current,
		currentType:  currentType,
	}
}

// Fail derives a failed result, preserving the original value and type. A
// result that already failed keeps its first error message.
func (r TransformationResult) Fail(errMessage string) TransformationResult {
	if r.Failed() {
		return r
	}
	if errMessage == "" {
		errMessage = "transformation failed"
	}
	return TransformationResult{
		original:     r.original,
		originalType: r.originalType,
		currentType:  r.currentType,
		errMessage:   errMessage,
	}
}

// OriginalValue returns the untouched pipeline input.
func (r TransformationResult) OriginalValue() any { return r.original }

// OriginalType returns the semantic type of the pipeline input.
func (r TransformationResult) OriginalType() ValueType { return r.originalType }

// CurrentValue returns the value after the most recently applied step.
func (r TransformationResult) CurrentValue() any { return r.current }

// CurrentType returns the semantic type after the most recently applied step.
func (r TransformationResult) CurrentType() ValueType { return r.currentType }

// Failed reports whether a step has failed; failed results pass through all
// further steps unchanged.
func (r TransformationResult) Failed() bool { return r.errMessage != "" }

// ErrorMessage returns the failure message, or "" when the result is live.
func (r TransformationResult) ErrorMessage() string { return r.errMessage }

// IsCollection reports whether the current value is a collection.
func (r TransformationResult) IsCollection() bool {
	return r.currentType == TypeCollection
}

// IsEmpty reports whether the current value is explicitly absent.
func (r TransformationResult) IsEmpty() bool {
	return r.currentType == TypeEmpty || r.current == nil
}

// String renders the current value as the scalar text written into an output
// cell. Collections render as a JSON array of their stringified elements.
func (r TransformationResult) String() string {
	return Stringify(r.current)
}

// Strings returns the current value as positional elements: collections
// yield their elements, scalars yield a single element, empty yields none.
func (r TransformationResult) Strings() []string {
	switch v := r.current.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			out[i] = Stringify(e)
		}
		return out
	default:
		return []string{Stringify(v)}
	}
}

// Stringify renders any pipeline value as cell text. Collections become a
// JSON array; numbers keep their shortest round-trip form.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case []string, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		s, err := cast.ToStringE(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return s
	}
}
