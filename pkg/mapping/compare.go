package mapping

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/rowmap/rowmap/pkg/schema"
)

// TypeIDs of the built-in comparison operations.
const (
	TypeIDEquals             = "equals"
	TypeIDNotEqual           = "notEqual"
	TypeIDGreaterThan        = "greaterThan"
	TypeIDGreaterThanOrEqual = "greaterThanOrEqual"
	TypeIDLessThan           = "lessThan"
	TypeIDLessThanOrEqual    = "lessThanOrEqual"
	TypeIDBetween            = "between"
	TypeIDNotBetween         = "notBetween"
	TypeIDContains           = "contains"
	TypeIDNotContains        = "notContains"
	TypeIDStartsWith         = "startsWith"
	TypeIDEndsWith           = "endsWith"
	TypeIDIsNull             = "isNull"
	TypeIDIsNotNull          = "isNotNull"
	TypeIDIsTrue             = "isTrue"
	TypeIDIsFalse            = "isFalse"
	TypeIDIn                 = "in"
	TypeIDNotIn              = "notIn"
	TypeIDRegexComparison    = "regexMatch"
	TypeIDCelExpression      = "celExpression"
)

// evalOperand evaluates an operand rule against the row and renders its
// scalar. A missing operand is a configuration error; a failed operand
// result aborts the comparison with an OPERAND_FAILED error so callers never
// receive a defaulted boolean.
func evalOperand(ctx context.Context, name string, op Rule, row schema.Row) (string, error) {
	if op == nil {
		return "", schema.NewErrorf(schema.ErrCodeConfiguration, "comparison is missing its %s operand", name)
	}
	res, err := op.ApplyRow(ctx, row)
	if err != nil {
		return "", err
	}
	if res.Failed() {
		return "", schema.NewErrorf(schema.ErrCodeOperandFailed,
			"%s operand failed: %s", name, res.ErrorMessage())
	}
	return res.String(), nil
}

// compareTyped compares two scalars with typed precedence: when both parse
// as numbers they compare numerically; else when both parse as timestamps
// they compare chronologically; else ordinal string comparison.
func compareTyped(a, b string) int {
	if na, okA := parseNumber(a); okA {
		if nb, okB := parseNumber(b); okB {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}

	if ta, okA := parseDate(a); okA {
		if tb, okB := parseDate(b); okB {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(a, b)
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return n, err == nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	parsed, err := cast.StringToDate(s)
	return parsed, err == nil
}

// isTruthy reports whether a scalar counts as true: a parseable boolean
// true, or a non-zero number. Everything else, including empty, is false.
// The isFalse operator is defined as the negation of this predicate.
func isTruthy(s string) bool {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, ok := parseNumber(s); ok {
		return n != 0
	}
	return false
}

// marshalOperands serializes named operand rules for a comparison envelope.
func marshalOperands(ops map[string]Rule) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(ops))
	for name, op := range ops {
		if op == nil {
			continue
		}
		raw, err := MarshalRule(op)
		if err != nil {
			return nil, err
		}
		out[name] = raw
	}
	return out, nil
}

// unmarshalOperand deserializes one optional operand rule.
func unmarshalOperand(raw json.RawMessage) (Rule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return UnmarshalRule(raw)
}

func cloneRule(r Rule) Rule {
	if r == nil {
		return nil
	}
	return r.Clone()
}

// RelationalComparison covers the value-comparing binary operators: equals,
// notEqual, greaterThan, greaterThanOrEqual, lessThan, lessThanOrEqual. The
// kind doubles as the typeId; each kind registers its own factory.
type RelationalComparison struct {
	Kind  string
	Left  Rule
	Right Rule
}

// NewRelationalComparison creates a relational comparison of the given kind.
func NewRelationalComparison(kind string, left, right Rule) *RelationalComparison {
	return &RelationalComparison{Kind: kind, Left: left, Right: right}
}

func (c *RelationalComparison) TypeID() string { return c.Kind }

func (c *RelationalComparison) Info() TypeInfo {
	return comparisonInfo(c.Kind)
}

func (c *RelationalComparison) Evaluate(ctx context.Context, row schema.Row) (bool, error) {
	left, err := evalOperand(ctx, "left", c.Left, row)
	if err != nil {
		return false, err
	}
	right, err := evalOperand(ctx, "right", c.Right, row)
	if err != nil {
		return false, err
	}

	cmp := compareTyped(left, right)
	switch c.Kind {
	case TypeIDEquals:
		return cmp == 0, nil
	case TypeIDNotEqual:
		return cmp != 0, nil
	case TypeIDGreaterThan:
		return cmp > 0, nil
	case TypeIDGreaterThanOrEqual:
		return cmp >= 0, nil
	case TypeIDLessThan:
		return cmp < 0, nil
	case TypeIDLessThanOrEqual:
		return cmp <= 0, nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeConfiguration, "unknown relational comparison %q", c.Kind)
	}
}

func (c *RelationalComparison) Clone() Comparison {
	return &RelationalComparison{Kind: c.Kind, Left: cloneRule(c.Left), Right: cloneRule(c.Right)}
}

func (c *RelationalComparison) MarshalJSON() ([]byte, error) {
	ops, err := marshalOperands(map[string]Rule{"leftOperand": c.Left, "rightOperand": c.Right})
	if err != nil {
		return nil, err
	}
	return marshalEnvelope(c.Kind, ops)
}

func (c *RelationalComparison) UnmarshalJSON(data []byte) error {
	var wire struct {
		envelope
		Left  json.RawMessage `json:"leftOperand"`
		Right json.RawMessage `json:"rightOperand"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "invalid comparison payload").WithCause(err)
	}
	if id := wire.typeID(); id != "" {
		c.Kind = id
	}
	var err error
	if c.Left, err = unmarshalOperand(wire.Left); err != nil {
		return err
	}
	if c.Right, err = unmarshalOperand(wire.Right); err != nil {
		return err
	}
	return nil
}

// RangeComparison covers between and notBetween. Both bounds are inclusive.
type RangeComparison struct {
	Kind      string
	Value     Rule
	LowLimit  Rule
	HighLimit Rule
}

// NewRangeComparison creates a range comparison of the given kind.
func NewRangeComparison(kind string, value, low, high Rule) *RangeComparison {
	return &RangeComparison{Kind: kind, Value: value, LowLimit: low, HighLimit: high}
}

func (c *RangeComparison) TypeID() string { return c.Kind }

func (c *RangeComparison) Info() TypeInfo {
	return comparisonInfo(c.Kind)
}

func (c *RangeComparison) Evaluate(ctx context.Context, row schema.Row) (bool, error) {
	value, err := evalOperand(ctx, "value", c.Value, row)
	if err != nil {
		return false, err
	}
	low, err := evalOperand(ctx, "low limit", c.LowLimit, row)
	if err != nil {
		return false, err
	}
	high, err := evalOperand(ctx, "high limit", c.HighLimit, row)
	if err != nil {
		return false, err
	}

	inside := compareTyped(value, low) >= 0 && compareTyped(value, high) <= 0
	switch c.Kind {
	case TypeIDBetween:
		return inside, nil
	case TypeIDNotBetween:
		return !inside, nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeConfiguration, "unknown range comparison %q", c.Kind)
	}
}

func (c *RangeComparison) Clone() Comparison {
	return &RangeComparison{
		Kind:      c.Kind,
		Value:     cloneRule(c.Value),
		LowLimit:  cloneRule(c.LowLimit),
		HighLimit: cloneRule(c.HighLimit),
	}
}

func (c *RangeComparison) MarshalJSON() ([]byte, error) {
	ops, err := marshalOperands(map[string]Rule{
		"leftOperand": c.Value,
		"lowLimit":    c.LowLimit,
		"highLimit":   c.HighLimit,
	})
	if err != nil {
		return nil, err
	}
	return marshalEnvelope(c.Kind, ops)
}

func (c *RangeComparison) UnmarshalJSON(data []byte) error {
	var wire struct {
		envelope
		Value json.RawMessage `json:"leftOperand"`
		Low   json.RawMessage `json:"lowLimit"`
		High  json.RawMessage `json:"highLimit"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "invalid comparison payload").WithCause(err)
	}
	if id := wire.typeID(); id != "" {
		c.Kind = id
	}
	var err error
	if c.Value, err = unmarshalOperand(wire.Value); err != nil {
		return err
	}
	if c.LowLimit, err = unmarshalOperand(wire.Low); err != nil {
		return err
	}
	if c.HighLimit, err = unmarshalOperand(wire.High); err != nil {
		return err
	}
	return nil
}
