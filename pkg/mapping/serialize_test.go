package mapping

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowmap/rowmap/pkg/schema"
)

// --- Rule round-trips ---

func TestRuleRoundTrip(t *testing.T) {
	rules := []Rule{
		NewCopyRule(NewFieldTransformation("name", NewSubstringTransformation(0, 5))),
		NewConstantValueRule("fixed"),
		NewIgnoreRule(),
		NewCombineFieldsRule("${0}-${1}",
			NewFieldTransformation("a"),
			NewFieldTransformation("b", NewInterpolateTransformation("[${0}]")),
		),
	}

	for _, original := range rules {
		t.Run(original.TypeID(), func(t *testing.T) {
			data, err := MarshalRule(original)
			require.NoError(t, err)

			restored, err := UnmarshalRule(data)
			require.NoError(t, err)
			require.IsType(t, original, restored)
			assert.Equal(t, original, restored)
		})
	}
}

func TestRuleRoundTrip_WritesCamelCaseTypeID(t *testing.T) {
	data, err := MarshalRule(NewConstantValueRule("x"))
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.JSONEq(t, `"constantValue"`, string(wire["typeId"]))
	assert.NotContains(t, wire, "TypeId")
}

func TestUnmarshalRule_PascalCaseTypeID(t *testing.T) {
	restored, err := UnmarshalRule([]byte(`{"TypeId":"constantValue","value":"x"}`))
	require.NoError(t, err)
	require.IsType(t, &ConstantValueRule{}, restored)
	assert.Equal(t, "x", restored.(*ConstantValueRule).Value)
}

func TestUnmarshalRule_UnknownTypeID(t *testing.T) {
	_, err := UnmarshalRule([]byte(`{"typeId":"doesNotExist"}`))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, err))
}

func TestUnmarshalRule_MissingTypeID(t *testing.T) {
	_, err := UnmarshalRule([]byte(`{"value":"x"}`))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeSerialization, errCode(t, err))
}

// --- Transformation round-trips ---

func TestTransformationRoundTrip(t *testing.T) {
	steps := []Transformation{
		NewSubstringTransformation(2, 5),
		NewRegexMatchTransformation(`\d+`),
		NewInterpolateTransformation("${0}/${1}"),
		NewMapTransformation("status", MapEntry{From: "a", To: "b"}, MapEntry{FieldName: "status", From: "c", To: "d"}),
		NewCalculateTransformation("${0}*1.19", 2),
		NewJQQueryTransformation(".items[]"),
		NewCombineFieldsTransformation("${0}+${1}",
			NewFieldTransformation("x"),
			NewFieldTransformation("y"),
		),
	}

	for _, original := range steps {
		t.Run(original.TypeID(), func(t *testing.T) {
			data, err := MarshalTransformation(original)
			require.NoError(t, err)

			restored, err := UnmarshalTransformation(data)
			require.NoError(t, err)
			require.IsType(t, original, restored)
			assert.Equal(t, original, restored)
		})
	}
}

func TestConditionalRoundTrip_Nested(t *testing.T) {
	inner := NewConditionalTransformation(
		NewUnaryComparison(TypeIDIsNotNull, NewCopyRule(NewFieldTransformation("b"))),
		NewConstantValueRule("inner-yes"),
		NewConstantValueRule("inner-no"),
	)
	original := NewConditionalTransformation(
		NewRelationalComparison(TypeIDGreaterThan,
			NewCopyRule(NewFieldTransformation("amount")),
			NewConstantValueRule("100"),
		),
		NewCopyRule(NewFieldTransformation("a", inner)),
		NewIgnoreRule(),
	)

	data, err := MarshalTransformation(original)
	require.NoError(t, err)

	restored, err := UnmarshalTransformation(data)
	require.NoError(t, err)
	require.IsType(t, &ConditionalTransformation{}, restored)
	assert.Equal(t, original, restored)

	// The restored tree must evaluate, not just compare equal.
	out, err := restored.Apply(context.Background(),
		schema.Row{"amount": "150", "a": "seed", "b": "set"}, schema.NewResult("in"))
	require.NoError(t, err)
	assert.Equal(t, "inner-yes", out.String())
}

// --- Comparison round-trips ---

func TestComparisonRoundTrip(t *testing.T) {
	comparisons := []Comparison{
		NewRelationalComparison(TypeIDEquals, constant("a"), constant("b")),
		NewRelationalComparison(TypeIDLessThanOrEqual, field("x"), constant("10")),
		NewRangeComparison(TypeIDBetween, field("v"), constant("1"), constant("9")),
		NewRangeComparison(TypeIDNotBetween, field("v"), constant("1"), constant("9")),
		NewTextComparison(TypeIDStartsWith, field("name"), constant("Mr")),
		NewUnaryComparison(TypeIDIsNull, field("opt")),
		NewSetComparison(TypeIDIn, field("code"), NewConstantValueRule("a")),
		NewRegexComparison(field("sku"), `^\d+$`),
		NewCelComparison(`row["x"] == "1"`),
	}

	for _, original := range comparisons {
		t.Run(original.TypeID(), func(t *testing.T) {
			data, err := MarshalComparison(original)
			require.NoError(t, err)

			restored, err := UnmarshalComparison(data)
			require.NoError(t, err)
			require.IsType(t, original, restored)
			assert.Equal(t, original, restored)
		})
	}
}

// --- Documents ---

func TestParseDocument(t *testing.T) {
	doc := []byte(`{
		"name": "orders",
		"fields": [
			{
				"targetField": "id",
				"rule": {"typeId": "copy", "sourceFields": [{"field": "order_id"}]}
			},
			{
				"targetField": "total",
				"rule": {
					"typeId": "copy",
					"sourceFields": [{
						"field": "amount",
						"transformations": [{"typeId": "calculate", "formula": "${0}*1.19", "decimalPlaces": 2}]
					}]
				}
			},
			{
				"targetField": "internal",
				"rule": {"typeId": "ignore"}
			}
		]
	}`)

	set, err := ParseDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "orders", set.Name)
	require.Len(t, set.Fields, 3)
	assert.Equal(t, []string{"id", "total"}, set.Columns())

	row := schema.Row{"order_id": "A-1", "amount": "100"}
	results, err := set.ApplyRow(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "A-1", results["id"].String())
	assert.Equal(t, "119.00", results["total"].String())
}

func TestParseDocument_UnknownRuleType(t *testing.T) {
	doc := []byte(`{"fields": [{"targetField": "x", "rule": {"typeId": "mystery"}}]}`)
	_, err := ParseDocument(doc)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, err))
}

func TestDocumentRoundTrip(t *testing.T) {
	original := &MappingSet{
		Name: "round-trip",
		Fields: []FieldMapping{
			{TargetField: "a", Rule: NewCopyRule(NewFieldTransformation("src"))},
			{TargetField: "b", Rule: NewCombineFieldsRule("${0} ${1}",
				NewFieldTransformation("x"),
				NewFieldTransformation("y"),
			)},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	restored, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

// --- Host-registered custom variants ---

// prefixRule is the kind of single-field rule a host would add: it reads one
// source and prefixes it.
type prefixRule struct {
	FieldAccessRule
	Prefix string `json:"prefix"`
}

func (r *prefixRule) TypeID() string { return "test.prefix" }
func (r *prefixRule) Info() TypeInfo { return TypeInfo{DisplayName: "Prefix"} }

func (r *prefixRule) ApplyRow(ctx context.Context, row schema.Row) (schema.TransformationResult, error) {
	in, err := r.ResolveSource(ctx, r.TypeID(), row)
	if err != nil {
		return schema.TransformationResult{}, err
	}
	return r.ApplyValue(ctx, in)
}

func (r *prefixRule) ApplyValue(_ context.Context, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	return in.Next(r.Prefix+in.String(), schema.TypeString), nil
}

func (r *prefixRule) Clone() Rule {
	return &prefixRule{FieldAccessRule: FieldAccessRule{BaseRule: r.cloneBase()}, Prefix: r.Prefix}
}

func (r *prefixRule) MarshalJSON() ([]byte, error) {
	type alias prefixRule
	return marshalEnvelope(r.TypeID(), (*alias)(r))
}

func TestCustomRule_RegisterAndRoundTrip(t *testing.T) {
	require.NoError(t, Rules.Register("test.prefix", func() Rule { return &prefixRule{} }))

	original := &prefixRule{Prefix: ">> "}
	original.SetSourceFields(NewFieldTransformation("name"))

	data, err := MarshalRule(original)
	require.NoError(t, err)

	restored, err := UnmarshalRule(data)
	require.NoError(t, err)
	require.IsType(t, &prefixRule{}, restored)
	assert.Equal(t, original, restored)

	res, err := restored.ApplyRow(context.Background(), schema.Row{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, ">> Ada", res.String())
}
