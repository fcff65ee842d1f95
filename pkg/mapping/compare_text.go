package mapping

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rowmap/rowmap/pkg/schema"
)

// TextComparison covers the ordinal string predicates: contains,
// notContains, startsWith, endsWith.
type TextComparison struct {
	Kind  string
	Left  Rule
	Right Rule
}

// NewTextComparison creates a text comparison of the given kind.
func NewTextComparison(kind string, left, right Rule) *TextComparison {
	return &TextComparison{Kind: kind, Left: left, Right: right}
}

func (c *TextComparison) TypeID() string { return c.Kind }

func (c *TextComparison) Info() TypeInfo {
	return comparisonInfo(c.Kind)
}

func (c *TextComparison) Evaluate(ctx context.Context, row schema.Row) (bool, error) {
	left, err := evalOperand(ctx, "left", c.Left, row)
	if err != nil {
		return false, err
	}
	right, err := evalOperand(ctx, "right", c.Right, row)
	if err != nil {
		return false, err
	}

	switch c.Kind {
	case TypeIDContains:
		return strings.Contains(left, right), nil
	case TypeIDNotContains:
		return !strings.Contains(left, right), nil
	case TypeIDStartsWith:
		return strings.HasPrefix(left, right), nil
	case TypeIDEndsWith:
		return strings.HasSuffix(left, right), nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeConfiguration, "unknown text comparison %q", c.Kind)
	}
}

func (c *TextComparison) Clone() Comparison {
	return &TextComparison{Kind: c.Kind, Left: cloneRule(c.Left), Right: cloneRule(c.Right)}
}

func (c *TextComparison) MarshalJSON() ([]byte, error) {
	ops, err := marshalOperands(map[string]Rule{"leftOperand": c.Left, "rightOperand": c.Right})
	if err != nil {
		return nil, err
	}
	return marshalEnvelope(c.Kind, ops)
}

func (c *TextComparison) UnmarshalJSON(data []byte) error {
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

// UnaryComparison covers the single-operand predicates: isNull, isNotNull,
// isTrue, isFalse. A value is null when it is explicitly absent or renders
// as the empty string; isFalse is the negation of isTrue, not an independent
// check.
type UnaryComparison struct {
	Kind string
	Left Rule
}

// NewUnaryComparison creates a unary comparison of the given kind.
func NewUnaryComparison(kind string, left Rule) *UnaryComparison {
	return &UnaryComparison{Kind: kind, Left: left}
}

func (c *UnaryComparison) TypeID() string { return c.Kind }

func (c *UnaryComparison) Info() TypeInfo {
	return comparisonInfo(c.Kind)
}

func (c *UnaryComparison) Evaluate(ctx context.Context, row schema.Row) (bool, error) {
	if c.Left == nil {
		return false, schema.NewError(schema.ErrCodeConfiguration, "comparison is missing its left operand")
	}
	res, err := c.Left.ApplyRow(ctx, row)
	if err != nil {
		return false, err
	}
	if res.Failed() {
		return false, schema.NewErrorf(schema.ErrCodeOperandFailed,
			"left operand failed: %s", res.ErrorMessage())
	}

	switch c.Kind {
	case TypeIDIsNull:
		return res.IsEmpty() || res.String() == "", nil
	case TypeIDIsNotNull:
		return !(res.IsEmpty() || res.String() == ""), nil
	case TypeIDIsTrue:
		return isTruthy(res.String()), nil
	case TypeIDIsFalse:
		return !isTruthy(res.String()), nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeConfiguration, "unknown unary comparison %q", c.Kind)
	}
}

func (c *UnaryComparison) Clone() Comparison {
	return &UnaryComparison{Kind: c.Kind, Left: cloneRule(c.Left)}
}

func (c *UnaryComparison) MarshalJSON() ([]byte, error) {
	ops, err := marshalOperands(map[string]Rule{"leftOperand": c.Left})
	if err != nil {
		return nil, err
	}
	return marshalEnvelope(c.Kind, ops)
}

func (c *UnaryComparison) UnmarshalJSON(data []byte) error {
	var wire struct {
		envelope
		Left json.RawMessage `json:"leftOperand"`
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
	return nil
}

// SetComparison covers in and notIn. The right operand evaluates to the
// member set (a collection, or a scalar treated as a one-element set);
// membership uses the same typed comparison as equals, and notIn is its
// negation.
type SetComparison struct {
	Kind  string
	Left  Rule
	Right Rule
}

// NewSetComparison creates a set-membership comparison of the given kind.
func NewSetComparison(kind string, left, right Rule) *SetComparison {
	return &SetComparison{Kind: kind, Left: left, Right: right}
}

func (c *SetComparison) TypeID() string { return c.Kind }

func (c *SetComparison) Info() TypeInfo {
	return comparisonInfo(c.Kind)
}

func (c *SetComparison) Evaluate(ctx context.Context, row schema.Row) (bool, error) {
	left, err := evalOperand(ctx, "left", c.Left, row)
	if err != nil {
		return false, err
	}

	if c.Right == nil {
		return false, schema.NewError(schema.ErrCodeConfiguration, "comparison is missing its right operand")
	}
	res, err := c.Right.ApplyRow(ctx, row)
	if err != nil {
		return false, err
	}
	if res.Failed() {
		return false, schema.NewErrorf(schema.ErrCodeOperandFailed,
			"right operand failed: %s", res.ErrorMessage())
	}

	member := false
	for _, candidate := range res.Strings() {
		if compareTyped(left, candidate) == 0 {
			member = true
			break
		}
	}

	switch c.Kind {
	case TypeIDIn:
		return member, nil
	case TypeIDNotIn:
		return !member, nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeConfiguration, "unknown set comparison %q", c.Kind)
	}
}

func (c *SetComparison) Clone() Comparison {
	return &SetComparison{Kind: c.Kind, Left: cloneRule(c.Left), Right: cloneRule(c.Right)}
}

func (c *SetComparison) MarshalJSON() ([]byte, error) {
	ops, err := marshalOperands(map[string]Rule{"leftOperand": c.Left, "rightOperand": c.Right})
	if err != nil {
		return nil, err
	}
	return marshalEnvelope(c.Kind, ops)
}

func (c *SetComparison) UnmarshalJSON(data []byte) error {
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

// RegexComparison tests the left operand against a regular expression
// pattern. An unresolvable pattern is a configuration error.
type RegexComparison struct {
	Left    Rule
	Pattern string
}

// NewRegexComparison creates a regex predicate.
func NewRegexComparison(left Rule, pattern string) *RegexComparison {
	return &RegexComparison{Left: left, Pattern: pattern}
}

func (c *RegexComparison) TypeID() string { return TypeIDRegexComparison }

func (c *RegexComparison) Info() TypeInfo {
	return comparisonInfo(TypeIDRegexComparison)
}

func (c *RegexComparison) Evaluate(ctx context.Context, row schema.Row) (bool, error) {
	left, err := evalOperand(ctx, "left", c.Left, row)
	if err != nil {
		return false, err
	}
	re, err := regexCompile(c.Pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(left), nil
}

func (c *RegexComparison) Clone() Comparison {
	return &RegexComparison{Left: cloneRule(c.Left), Pattern: c.Pattern}
}

func (c *RegexComparison) MarshalJSON() ([]byte, error) {
	ops, err := marshalOperands(map[string]Rule{"leftOperand": c.Left})
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any, len(ops)+1)
	for k, v := range ops {
		payload[k] = v
	}
	payload["pattern"] = c.Pattern
	return marshalEnvelope(c.TypeID(), payload)
}

func (c *RegexComparison) UnmarshalJSON(data []byte) error {
	var wire struct {
		Left    json.RawMessage `json:"leftOperand"`
		Pattern string          `json:"pattern"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "invalid comparison payload").WithCause(err)
	}
	c.Pattern = wire.Pattern
	var err error
	if c.Left, err = unmarshalOperand(wire.Left); err != nil {
		return err
	}
	return nil
}

// comparisonInfo maps a comparison kind to its presentation triple.
func comparisonInfo(kind string) TypeInfo {
	if info, ok := comparisonInfos[kind]; ok {
		return info
	}
	return TypeInfo{DisplayName: kind, ShortName: kind}
}

var comparisonInfos = map[string]TypeInfo{
	TypeIDEquals:             {DisplayName: "Equals", ShortName: "==", Description: "True when both operands compare equal."},
	TypeIDNotEqual:           {DisplayName: "Not Equal", ShortName: "!=", Description: "True when the operands differ."},
	TypeIDGreaterThan:        {DisplayName: "Greater Than", ShortName: ">", Description: "True when the left operand is greater."},
	TypeIDGreaterThanOrEqual: {DisplayName: "Greater Or Equal", ShortName: ">=", Description: "True when the left operand is greater or equal."},
	TypeIDLessThan:           {DisplayName: "Less Than", ShortName: "<", Description: "True when the left operand is smaller."},
	TypeIDLessThanOrEqual:    {DisplayName: "Less Or Equal", ShortName: "<=", Description: "True when the left operand is smaller or equal."},
	TypeIDBetween:            {DisplayName: "Between", ShortName: "[..]", Description: "True when the value lies inside the inclusive bounds."},
	TypeIDNotBetween:         {DisplayName: "Not Between", ShortName: "![..]", Description: "True when the value lies outside the inclusive bounds."},
	TypeIDContains:           {DisplayName: "Contains", ShortName: "has", Description: "True when the left operand contains the right."},
	TypeIDNotContains:        {DisplayName: "Not Contains", ShortName: "!has", Description: "True when the left operand does not contain the right."},
	TypeIDStartsWith:         {DisplayName: "Starts With", ShortName: "pre", Description: "True when the left operand starts with the right."},
	TypeIDEndsWith:           {DisplayName: "Ends With", ShortName: "suf", Description: "True when the left operand ends with the right."},
	TypeIDIsNull:             {DisplayName: "Is Null", ShortName: "null", Description: "True when the operand is absent or empty."},
	TypeIDIsNotNull:          {DisplayName: "Is Not Null", ShortName: "!null", Description: "True when the operand has a value."},
	TypeIDIsTrue:             {DisplayName: "Is True", ShortName: "true", Description: "True when the operand parses as true or a non-zero number."},
	TypeIDIsFalse:            {DisplayName: "Is False", ShortName: "false", Description: "The negation of Is True."},
	TypeIDIn:                 {DisplayName: "In", ShortName: "in", Description: "True when the value is a member of the right operand's set."},
	TypeIDNotIn:              {DisplayName: "Not In", ShortName: "!in", Description: "True when the value is not a member of the right operand's set."},
	TypeIDRegexComparison:    {DisplayName: "Regex Match", ShortName: "~", Description: "True when the operand matches the pattern."},
	TypeIDCelExpression:      {DisplayName: "CEL Expression", ShortName: "cel", Description: "True when the CEL expression over the row evaluates true."},
}
