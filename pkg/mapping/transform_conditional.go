package mapping

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rowmap/rowmap/pkg/schema"
)

// ConditionalTransformation evaluates a comparison over the row and
// delegates to one of two mapping rules. When the comparison itself cannot
// be decided because an operand's data failed, the cell fails instead of
// guessing a branch; a misconfigured comparison still errors immediately.
type ConditionalTransformation struct {
	Condition Comparison
	TrueRule  Rule
	FalseRule Rule
}

// NewConditionalTransformation creates a conditional step.
func NewConditionalTransformation(condition Comparison, trueRule, falseRule Rule) *ConditionalTransformation {
	return &ConditionalTransformation{Condition: condition, TrueRule: trueRule, FalseRule: falseRule}
}

func (t *ConditionalTransformation) TypeID() string { return TypeIDConditional }

func (t *ConditionalTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Conditional",
		ShortName:   "If",
		Description: "Chooses between two rules based on a comparison over the row.",
	}
}

func (t *ConditionalTransformation) Apply(ctx context.Context, row schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	if t.Condition == nil || t.TrueRule == nil || t.FalseRule == nil {
		return in, schema.NewError(schema.ErrCodeConfiguration,
			"conditional transformation requires a condition and both branch rules")
	}

	ok, err := t.Condition.Evaluate(ctx, row)
	if err != nil {
		var mapErr *schema.MappingError
		if errors.As(err, &mapErr) && mapErr.Code == schema.ErrCodeOperandFailed {
			return in.Fail(mapErr.Message), nil
		}
		return in, err
	}

	branch := t.FalseRule
	if ok {
		branch = t.TrueRule
	}

	out, err := branch.ApplyRow(ctx, row)
	if err != nil {
		return in, err
	}
	if out.Failed() {
		return in.Fail(out.ErrorMessage()), nil
	}
	return in.Next(out.CurrentValue(), out.CurrentType()), nil
}

func (t *ConditionalTransformation) Clone() Transformation {
	cp := &ConditionalTransformation{}
	if t.Condition != nil {
		cp.Condition = t.Condition.Clone()
	}
	if t.TrueRule != nil {
		cp.TrueRule = t.TrueRule.Clone()
	}
	if t.FalseRule != nil {
		cp.FalseRule = t.FalseRule.Clone()
	}
	return cp
}

func (t *ConditionalTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *ConditionalTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *ConditionalTransformation) MarshalJSON() ([]byte, error) {
	var condition, trueRule, falseRule json.RawMessage
	var err error

	if t.Condition != nil {
		if condition, err = MarshalComparison(t.Condition); err != nil {
			return nil, err
		}
	}
	if t.TrueRule != nil {
		if trueRule, err = MarshalRule(t.TrueRule); err != nil {
			return nil, err
		}
	}
	if t.FalseRule != nil {
		if falseRule, err = MarshalRule(t.FalseRule); err != nil {
			return nil, err
		}
	}

	return marshalEnvelope(t.TypeID(), struct {
		Condition json.RawMessage `json:"condition,omitempty"`
		TrueRule  json.RawMessage `json:"trueRule,omitempty"`
		FalseRule json.RawMessage `json:"falseRule,omitempty"`
	}{Condition: condition, TrueRule: trueRule, FalseRule: falseRule})
}

func (t *ConditionalTransformation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Condition json.RawMessage `json:"condition"`
		TrueRule  json.RawMessage `json:"trueRule"`
		FalseRule json.RawMessage `json:"falseRule"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "invalid conditional transformation").WithCause(err)
	}

	if len(wire.Condition) > 0 {
		c, err := UnmarshalComparison(wire.Condition)
		if err != nil {
			return err
		}
		t.Condition = c
	}
	if len(wire.TrueRule) > 0 {
		r, err := UnmarshalRule(wire.TrueRule)
		if err != nil {
			return err
		}
		t.TrueRule = r
	}
	if len(wire.FalseRule) > 0 {
		r, err := UnmarshalRule(wire.FalseRule)
		if err != nil {
			return err
		}
		t.FalseRule = r
	}
	return nil
}
