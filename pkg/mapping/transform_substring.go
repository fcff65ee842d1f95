package mapping

import (
	"context"
	"encoding/json"

	"github.com/rowmap/rowmap/pkg/schema"
)

// TypeIDs of the built-in value transformations.
const (
	TypeIDSubstring   = "substring"
	TypeIDRegexMatch  = "regexMatch"
	TypeIDInterpolate = "interpolate"
	TypeIDMap         = "map"
	TypeIDCalculate   = "calculate"
	TypeIDConditional = "conditional"
	TypeIDCombine     = "combineFields"
	TypeIDJQQuery     = "jqQuery"
)

// SubstringTransformation slices the current string value. A negative start
// offsets from the string end; a negative max length means "take up to
// (length − |maxLength|) characters from the adjusted start"; a zero or
// omitted max length is unbounded. Bounds are clamped into the string, so
// out-of-range configuration never fails — only collection input does.
type SubstringTransformation struct {
	StartIndex int `json:"startIndex"`
	MaxLength  int `json:"maxLength,omitempty"`
}

// NewSubstringTransformation creates a substring step. maxLength 0 takes the
// whole remainder.
func NewSubstringTransformation(startIndex, maxLength int) *SubstringTransformation {
	return &SubstringTransformation{StartIndex: startIndex, MaxLength: maxLength}
}

func (t *SubstringTransformation) TypeID() string { return TypeIDSubstring }

func (t *SubstringTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Substring",
		ShortName:   "Substr",
		Description: "Takes a slice of the current value, clamping bounds into the string.",
	}
}

func (t *SubstringTransformation) Apply(_ context.Context, _ schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	if in.IsCollection() {
		return in.Fail(MsgInvalidInputCollection), nil
	}

	runes := []rune(in.String())
	n := len(runes)

	start := t.StartIndex
	if start < 0 {
		start = n + start
	}
	start = clamp(start, 0, n)

	end := n
	switch {
	case t.MaxLength > 0:
		end = clamp(start+t.MaxLength, start, n)
	case t.MaxLength < 0:
		take := n + t.MaxLength // MaxLength is negative
		if take < 0 {
			take = 0
		}
		end = clamp(start+take, start, n)
	}

	return in.Next(string(runes[start:end]), schema.TypeString), nil
}

func (t *SubstringTransformation) Clone() Transformation {
	cp := *t
	return &cp
}

func (t *SubstringTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *SubstringTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *SubstringTransformation) MarshalJSON() ([]byte, error) {
	type alias SubstringTransformation
	return marshalEnvelope(t.TypeID(), (*alias)(t))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// detailString serializes a transformation's configuration as the detail
// string stored by hosts. It equals the transformation's wire form.
func detailString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", schema.NewError(schema.ErrCodeSerialization, "encode transformation detail").WithCause(err)
	}
	return string(b), nil
}

// detailParse restores a transformation's configuration from its detail
// string.
func detailParse(detail string, v any) error {
	if err := json.Unmarshal([]byte(detail), v); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "decode transformation detail").WithCause(err)
	}
	return nil
}
