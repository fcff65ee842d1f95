package mapping

import (
	"context"

	"github.com/rowmap/rowmap/pkg/schema"
)

// ConstantValueRule ignores the row and always produces its configured
// literal.
type ConstantValueRule struct {
	FieldlessRule
	Value string `json:"value"`
}

// NewConstantValueRule creates a constant rule producing the given literal.
func NewConstantValueRule(value string) *ConstantValueRule {
	return &ConstantValueRule{Value: value}
}

func (r *ConstantValueRule) TypeID() string { return TypeIDConstantValue }

func (r *ConstantValueRule) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Constant Value",
		ShortName:   "Constant",
		Description: "Writes a fixed literal into the target field, regardless of the row.",
	}
}

func (r *ConstantValueRule) ApplyRow(ctx context.Context, _ schema.Row) (schema.TransformationResult, error) {
	in, err := r.EntryResult(r.TypeID())
	if err != nil {
		return schema.TransformationResult{}, err
	}
	return r.ApplyValue(ctx, in)
}

func (r *ConstantValueRule) ApplyValue(_ context.Context, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	return in.Next(r.Value, schema.TypeString), nil
}

func (r *ConstantValueRule) Clone() Rule {
	return &ConstantValueRule{
		FieldlessRule: FieldlessRule{BaseRule: r.cloneBase()},
		Value:         r.Value,
	}
}

func (r *ConstantValueRule) MarshalJSON() ([]byte, error) {
	type alias ConstantValueRule
	return marshalEnvelope(r.TypeID(), (*alias)(r))
}

// StaticValueRule holds an arbitrary host-supplied value and produces it
// unchanged. Unlike the constant rule it is not limited to string literals;
// hosts set the value programmatically.
type StaticValueRule struct {
	FieldlessRule
	Value any `json:"value"`
}

// NewStaticValueRule creates a static rule producing the given value.
func NewStaticValueRule(value any) *StaticValueRule {
	return &StaticValueRule{Value: value}
}

func (r *StaticValueRule) TypeID() string { return TypeIDStaticValue }

func (r *StaticValueRule) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Static Value",
		ShortName:   "Static",
		Description: "Produces a host-supplied value of any type.",
	}
}

func (r *StaticValueRule) ApplyRow(ctx context.Context, _ schema.Row) (schema.TransformationResult, error) {
	in, err := r.EntryResult(r.TypeID())
	if err != nil {
		return schema.TransformationResult{}, err
	}
	return r.ApplyValue(ctx, in)
}

func (r *StaticValueRule) ApplyValue(_ context.Context, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	return in.Next(r.Value, schema.DetectType(r.Value)), nil
}

func (r *StaticValueRule) Clone() Rule {
	return &StaticValueRule{
		FieldlessRule: FieldlessRule{BaseRule: r.cloneBase()},
		Value:         r.Value,
	}
}

func (r *StaticValueRule) MarshalJSON() ([]byte, error) {
	type alias StaticValueRule
	return marshalEnvelope(r.TypeID(), (*alias)(r))
}
