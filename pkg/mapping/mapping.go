// Package mapping implements the rule/transformation evaluation engine that
// maps rows of an imported table onto the fields of a target record. A field
// is produced by a mapping rule, which may fan out to one or more source
// fields, each with an ordered chain of value transformations. Conditional
// transformations consult comparison operations whose operands are themselves
// mapping rules. All three axes are open: hosts register custom variants in
// the type registries and the JSON (de)serialization resolves them by their
// typeId discriminator.
package mapping

import (
	"context"
	"encoding/json"

	"github.com/rowmap/rowmap/pkg/schema"
)

// Stable data-failure messages. These travel inside failed results and are
// part of the contract: callers may match on them, so they never vary with
// the underlying cause.
const (
	MsgInvalidInputCollection = "invalid input: value is a collection, expected a scalar"
	MsgInvalidFormat          = "invalid format: formula or input is not numeric"
)

// MaxSourceFieldsUnbounded marks rules that accept any number of source
// field transformations.
const MaxSourceFieldsUnbounded = -1

// TypeInfo is the presentation triple every rule, transformation and
// comparison carries. None of it participates in evaluation.
type TypeInfo struct {
	DisplayName string
	ShortName   string
	Description string
}

// Rule produces an output field's value(s) from a source row. Rules are
// long-lived configuration objects, re-applied per row with no evaluation
// state between rows. Implementations must keep ApplyRow consistent with
// ApplyValue: the row overload resolves the configured source field(s) and
// then reduces to the value overload.
type Rule interface {
	TypeID() string
	Info() TypeInfo

	// MaxSourceFields bounds how many field transformations the rule
	// accepts; MaxSourceFieldsUnbounded means no bound. Violations are
	// configuration errors, not evaluation failures.
	MaxSourceFields() int
	SourceFields() []*FieldTransformation

	ApplyRow(ctx context.Context, row schema.Row) (schema.TransformationResult, error)
	ApplyValue(ctx context.Context, in schema.TransformationResult) (schema.TransformationResult, error)

	// Clone deep-copies the rule including nested rules and operands;
	// the copy never aliases the original's configuration.
	Clone() Rule
}

// Transformation is a single chainable step mapping one result to another.
// A failed input passes through untouched. The row gives transformations
// that reach back into the source record (conditional, combineFields) their
// evaluation context; pure value transformations ignore it.
type Transformation interface {
	TypeID() string
	Info() TypeInfo

	Apply(ctx context.Context, row schema.Row, in schema.TransformationResult) (schema.TransformationResult, error)
	Clone() Transformation

	// ToDetail/FromDetail round-trip the transformation's configuration as
	// a detail string. They are invoked only at serialization boundaries.
	ToDetail() (string, error)
	FromDetail(detail string) error
}

// Comparison is a boolean predicate over mapping-rule operands evaluated
// against the same row. It never defaults: an operand failure surfaces as an
// error rather than a guessed boolean.
type Comparison interface {
	TypeID() string
	Info() TypeInfo

	Evaluate(ctx context.Context, row schema.Row) (bool, error)
	Clone() Comparison
}

// Skipper marks rules whose target field must be omitted from the output
// row. The ignore rule implements it; custom rules may too.
type Skipper interface {
	SkipOutput() bool
}

// FieldTransformation pairs a source field reference with its ordered value
// transformation chain.
type FieldTransformation struct {
	Field           string
	Transformations []Transformation
}

// NewFieldTransformation creates a field transformation over the named
// source field.
func NewFieldTransformation(field string, transformations ...Transformation) *FieldTransformation {
	return &FieldTransformation{Field: field, Transformations: transformations}
}

// Apply resolves the source field from the row and runs the transformation
// chain. A missing field enters the chain as an empty value.
func (ft *FieldTransformation) Apply(ctx context.Context, row schema.Row) (schema.TransformationResult, error) {
	value, _ := row.Value(ft.Field)
	return applyChain(ctx, ft.Transformations, row, schema.NewResult(value))
}

// Clone deep-copies the field transformation and its chain.
func (ft *FieldTransformation) Clone() *FieldTransformation {
	chain := make([]Transformation, len(ft.Transformations))
	for i, t := range ft.Transformations {
		chain[i] = t.Clone()
	}
	return &FieldTransformation{Field: ft.Field, Transformations: chain}
}

// MarshalJSON serializes the field transformation with each chain step under
// its typeId envelope.
func (ft *FieldTransformation) MarshalJSON() ([]byte, error) {
	steps := make([]json.RawMessage, len(ft.Transformations))
	for i, t := range ft.Transformations {
		raw, err := MarshalTransformation(t)
		if err != nil {
			return nil, err
		}
		steps[i] = raw
	}
	return json.Marshal(struct {
		Field           string            `json:"field"`
		Transformations []json.RawMessage `json:"transformations,omitempty"`
	}{Field: ft.Field, Transformations: steps})
}

// UnmarshalJSON resolves each chain step through the transformation registry.
func (ft *FieldTransformation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Field           string            `json:"field"`
		Transformations []json.RawMessage `json:"transformations"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "invalid field transformation").WithCause(err)
	}
	ft.Field = wire.Field
	if len(wire.Transformations) == 0 {
		ft.Transformations = nil
		return nil
	}
	ft.Transformations = make([]Transformation, len(wire.Transformations))
	for i, raw := range wire.Transformations {
		t, err := UnmarshalTransformation(raw)
		if err != nil {
			return err
		}
		ft.Transformations[i] = t
	}
	return nil
}

// applyChain runs a value through an ordered transformation chain. A failed
// result short-circuits inside each step, not here, so every step keeps the
// pass-through contract in one place.
func applyChain(ctx context.Context, chain []Transformation, row schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	current := in
	for _, t := range chain {
		next, err := t.Apply(ctx, row, current)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}
