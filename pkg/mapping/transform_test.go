package mapping

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowmap/rowmap/pkg/schema"
)

func apply(t *testing.T, tr Transformation, in schema.TransformationResult) schema.TransformationResult {
	t.Helper()
	out, err := tr.Apply(context.Background(), schema.Row{}, in)
	require.NoError(t, err)
	return out
}

// --- Substring ---

func TestSubstring(t *testing.T) {
	cases := []struct {
		name     string
		start    int
		maxLen   int
		input    string
		expected string
	}{
		{"middle slice", 2, 3, "abcdefgh", "cde"},
		{"zero maxLength is unbounded", 2, 0, "abcdefgh", "cdefgh"},
		{"start beyond end", 99, 5, "abc", ""},
		{"length beyond end clamps", 1, 99, "abc", "bc"},
		{"negative start from end", -3, 0, "abcdefgh", "fgh"},
		{"negative maxLength trims tail", 0, -2, "abcdefgh", "abcdef"},
		{"negative maxLength shorter than start", 5, -6, "abcdefgh", "fg"},
		{"negative maxLength exceeding length", 0, -99, "abc", ""},
		{"negative start past begin clamps", -99, 2, "abc", "ab"},
		{"empty input", 0, 5, "", ""},
		{"multibyte runes", 1, 2, "héllo", "él"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewSubstringTransformation(tc.start, tc.maxLen)
			out := apply(t, tr, schema.NewResult(tc.input))
			assert.False(t, out.Failed())
			assert.Equal(t, tc.expected, out.String())
		})
	}
}

func TestSubstring_Collection_Fails(t *testing.T) {
	tr := NewSubstringTransformation(0, 2)
	out := apply(t, tr, schema.NewResult([]string{"a", "b"}))
	assert.True(t, out.Failed())
	assert.Equal(t, MsgInvalidInputCollection, out.ErrorMessage())
}

func TestSubstring_PreservesOriginal(t *testing.T) {
	tr := NewSubstringTransformation(0, 2)
	out := apply(t, tr, schema.NewResult("abcdef"))
	assert.Equal(t, "ab", out.String())
	assert.Equal(t, "abcdef", out.OriginalValue())
}

// --- Regex match ---

func TestRegexMatch_SingleMatch(t *testing.T) {
	tr := NewRegexMatchTransformation(`\d+`)
	out := apply(t, tr, schema.NewResult("order 12345 shipped"))
	assert.Equal(t, "12345", out.String())
	assert.Equal(t, schema.TypeString, out.CurrentType())
}

func TestRegexMatch_MultipleMatches_Collection(t *testing.T) {
	tr := NewRegexMatchTransformation(`\d+`)
	out := apply(t, tr, schema.NewResult("280-190533-1"))
	assert.True(t, out.IsCollection())
	assert.Equal(t, []string{"280", "190533", "1"}, out.Strings())
}

func TestRegexMatch_NoMatch_EmptyString(t *testing.T) {
	tr := NewRegexMatchTransformation(`\d+`)
	out := apply(t, tr, schema.NewResult("no digits here"))
	assert.False(t, out.Failed())
	assert.Equal(t, "", out.String())
}

func TestRegexCompile_CacheReuse(t *testing.T) {
	first, err := regexCompile(`cache-\d+`)
	require.NoError(t, err)
	second, err := regexCompile(`cache-\d+`)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegexMatch_InvalidPattern_ConfigError(t *testing.T) {
	tr := NewRegexMatchTransformation(`([`)
	_, err := tr.Apply(context.Background(), schema.Row{}, schema.NewResult("x"))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfiguration, errCode(t, err))
}

// --- Interpolate ---

func TestInterpolate_Scalar(t *testing.T) {
	tr := NewInterpolateTransformation("id=${0}")
	out := apply(t, tr, schema.NewResult("42"))
	assert.Equal(t, "id=42", out.String())
}

func TestInterpolate_CollectionFillsPositionally(t *testing.T) {
	tr := NewInterpolateTransformation("${0}/${1}/${2}")
	in := schema.NewResult("raw").Next([]string{"2024", "06", "15"}, schema.TypeCollection)
	out := apply(t, tr, in)
	assert.Equal(t, "2024/06/15", out.String())
}

func TestInterpolate_MissingPlaceholder_StaysLiteral(t *testing.T) {
	tr := NewInterpolateTransformation("${0} and ${3}")
	out := apply(t, tr, schema.NewResult("x"))
	assert.Equal(t, "x and ${3}", out.String())
}

// --- Map ---

func TestMap_KnownValue(t *testing.T) {
	tr := NewMapTransformation("", MapEntry{From: "280-190533-1", To: "32"})
	out := apply(t, tr, schema.NewResult("280-190533-1"))
	assert.Equal(t, "32", out.String())
}

func TestMap_UnknownValue_PassesThrough(t *testing.T) {
	tr := NewMapTransformation("", MapEntry{From: "a", To: "b"})
	out := apply(t, tr, schema.NewResult("not listed"))
	assert.False(t, out.Failed())
	assert.Equal(t, "not listed", out.String())
}

func TestMap_FieldNameFilter(t *testing.T) {
	tr := NewMapTransformation("status",
		MapEntry{FieldName: "other", From: "x", To: "wrong"},
		MapEntry{FieldName: "status", From: "x", To: "right"},
	)
	out := apply(t, tr, schema.NewResult("x"))
	assert.Equal(t, "right", out.String())
}

func TestMap_Collection_Fails(t *testing.T) {
	tr := NewMapTransformation("")
	out := apply(t, tr, schema.NewResult([]string{"a"}))
	assert.True(t, out.Failed())
	assert.Equal(t, MsgInvalidInputCollection, out.ErrorMessage())
}

// --- Calculate ---

func TestCalculate_NoRounding_KeepsShortestForm(t *testing.T) {
	tr := NewCalculateTransformation("${0}", NoRounding)
	out := apply(t, tr, schema.NewResult("5493.39"))
	assert.Equal(t, "5493.39", out.String())
	assert.Equal(t, schema.TypeNumber, out.CurrentType())
}

func TestCalculate_Arithmetic(t *testing.T) {
	tr := NewCalculateTransformation("${0}+1.01", 2)
	out := apply(t, tr, schema.NewResult("32"))
	assert.Equal(t, "33.01", out.String())
}

func TestCalculate_RoundsToPlaces(t *testing.T) {
	tr := NewCalculateTransformation("${0}+1.01", 0)
	out := apply(t, tr, schema.NewResult("5493.39"))
	assert.Equal(t, "5494", out.String())
}

func TestCalculate_MissingPlaceholder_DefaultsZero(t *testing.T) {
	tr := NewCalculateTransformation("${0}+${1}", NoRounding)
	out := apply(t, tr, schema.NewResult("5"))
	assert.Equal(t, "5", out.String())
}

func TestCalculate_StableMessage_ForBothCauses(t *testing.T) {
	t.Run("malformed formula", func(t *testing.T) {
		tr := NewCalculateTransformation("((${0}", NoRounding)
		out := apply(t, tr, schema.NewResult("5"))
		assert.True(t, out.Failed())
		assert.Equal(t, MsgInvalidFormat, out.ErrorMessage())
	})
	t.Run("non-numeric input", func(t *testing.T) {
		tr := NewCalculateTransformation("${0}+1", NoRounding)
		out := apply(t, tr, schema.NewResult("not a number"))
		assert.True(t, out.Failed())
		assert.Equal(t, MsgInvalidFormat, out.ErrorMessage())
	})
}

// --- Chains ---

func TestChain_MapThenCalculate(t *testing.T) {
	ft := NewFieldTransformation("code",
		NewMapTransformation("", MapEntry{From: "280-190533-1", To: "32"}),
		NewCalculateTransformation("${0}+1.01", 2),
	)
	row := schema.Row{"code": "280-190533-1"}

	res, err := ft.Apply(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "33.01", res.String())
	assert.Equal(t, "280-190533-1", res.OriginalValue())
}

func TestChain_FailedStep_PassesThroughRest(t *testing.T) {
	ft := NewFieldTransformation("tags",
		NewSubstringTransformation(0, 2), // collection input fails here
		NewCalculateTransformation("${0}+1", NoRounding),
		NewInterpolateTransformation("<${0}>"),
	)
	row := schema.Row{"tags": []string{"a", "b"}}

	res, err := ft.Apply(context.Background(), row)
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, MsgInvalidInputCollection, res.ErrorMessage())
}

func TestFailedInput_Idempotent(t *testing.T) {
	failed := schema.NewResult("x").Fail("first error")
	steps := []Transformation{
		NewSubstringTransformation(0, 1),
		NewRegexMatchTransformation(`.`),
		NewInterpolateTransformation("${0}"),
		NewMapTransformation(""),
		NewCalculateTransformation("${0}", NoRounding),
		NewJQQueryTransformation("."),
	}
	for _, step := range steps {
		out := apply(t, step, failed)
		assert.True(t, out.Failed(), "step %s", step.TypeID())
		assert.Equal(t, "first error", out.ErrorMessage(), "step %s", step.TypeID())
	}
}

// --- Conditional ---

func TestConditional_TrueBranch(t *testing.T) {
	cond := NewRelationalComparison(TypeIDEquals,
		NewCopyRule(NewFieldTransformation("status")),
		NewConstantValueRule("active"),
	)
	tr := NewConditionalTransformation(cond,
		NewConstantValueRule("yes"),
		NewConstantValueRule("no"),
	)

	out, err := tr.Apply(context.Background(), schema.Row{"status": "active"}, schema.NewResult("seed"))
	require.NoError(t, err)
	assert.Equal(t, "yes", out.String())
	assert.Equal(t, "seed", out.OriginalValue())
}

func TestConditional_FalseBranch(t *testing.T) {
	cond := NewRelationalComparison(TypeIDEquals,
		NewCopyRule(NewFieldTransformation("status")),
		NewConstantValueRule("active"),
	)
	tr := NewConditionalTransformation(cond,
		NewConstantValueRule("yes"),
		NewConstantValueRule("no"),
	)

	out, err := tr.Apply(context.Background(), schema.Row{"status": "closed"}, schema.NewResult("seed"))
	require.NoError(t, err)
	assert.Equal(t, "no", out.String())
}

func TestConditional_OperandFailure_FailsCell(t *testing.T) {
	// The left operand copies a collection field, which fails as data.
	cond := NewRelationalComparison(TypeIDEquals,
		NewCopyRule(NewFieldTransformation("tags")),
		NewConstantValueRule("x"),
	)
	tr := NewConditionalTransformation(cond,
		NewConstantValueRule("yes"),
		NewConstantValueRule("no"),
	)

	out, err := tr.Apply(context.Background(), schema.Row{"tags": []string{"a"}}, schema.NewResult("seed"))
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Contains(t, out.ErrorMessage(), MsgInvalidInputCollection)
}

func TestConditional_ConfigError_Propagates(t *testing.T) {
	// A comparison with a missing operand is misconfiguration, not data.
	cond := NewRelationalComparison(TypeIDEquals, nil, NewConstantValueRule("x"))
	tr := NewConditionalTransformation(cond,
		NewConstantValueRule("yes"),
		NewConstantValueRule("no"),
	)

	_, err := tr.Apply(context.Background(), schema.Row{}, schema.NewResult("seed"))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfiguration, errCode(t, err))
}

func TestConditional_MissingParts_ConfigError(t *testing.T) {
	tr := NewConditionalTransformation(nil, nil, nil)
	_, err := tr.Apply(context.Background(), schema.Row{}, schema.NewResult("x"))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfiguration, errCode(t, err))
}

func TestConditional_FailedBranch_FailsCell(t *testing.T) {
	cond := NewUnaryComparison(TypeIDIsNotNull, NewCopyRule(NewFieldTransformation("tags")))
	tr := NewConditionalTransformation(cond,
		NewCopyRule(NewFieldTransformation("coll")), // produces a collection failure
		NewConstantValueRule("no"),
	)
	row := schema.Row{"tags": "present", "coll": []string{"a", "b"}}

	out, err := tr.Apply(context.Background(), row, schema.NewResult("seed"))
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Equal(t, MsgInvalidInputCollection, out.ErrorMessage())
}

// --- Combine fields step ---

func TestCombineFieldsTransformation(t *testing.T) {
	tr := NewCombineFieldsTransformation("${0}.${1}",
		NewFieldTransformation("major"),
		NewFieldTransformation("minor"),
	)
	row := schema.Row{"major": "1", "minor": "7"}

	out, err := tr.Apply(context.Background(), row, schema.NewResult("seed"))
	require.NoError(t, err)
	assert.Equal(t, "1.7", out.String())
	assert.Equal(t, "seed", out.OriginalValue())
}

func TestCombineFieldsTransformation_FailedSource(t *testing.T) {
	tr := NewCombineFieldsTransformation("${0}",
		NewFieldTransformation("tags", NewSubstringTransformation(0, 1)),
	)
	row := schema.Row{"tags": []any{"a"}}

	out, err := tr.Apply(context.Background(), row, schema.NewResult("seed"))
	require.NoError(t, err)
	assert.True(t, out.Failed())
}

// --- JQ query ---

func TestJQQuery_Identity(t *testing.T) {
	tr := NewJQQueryTransformation(".")
	out := apply(t, tr, schema.NewResult("hello"))
	assert.Equal(t, "hello", out.String())
}

func TestJQQuery_FanOut_Collection(t *testing.T) {
	tr := NewJQQueryTransformation(".[]")
	in := schema.NewResult([]string{"a", "b", "c"})
	out := apply(t, tr, in)
	assert.True(t, out.IsCollection())
	assert.Equal(t, []string{"a", "b", "c"}, out.Strings())
}

func TestJQQuery_NoOutput_Empty(t *testing.T) {
	tr := NewJQQueryTransformation("empty")
	out := apply(t, tr, schema.NewResult("x"))
	assert.False(t, out.Failed())
	assert.True(t, out.IsEmpty())
}

func TestJQQuery_RuntimeError_FailsCell(t *testing.T) {
	tr := NewJQQueryTransformation(". + 1")
	out := apply(t, tr, schema.NewResult("not a number"))
	assert.True(t, out.Failed())
}

func TestJQQuery_InvalidQuery_ConfigError(t *testing.T) {
	tr := NewJQQueryTransformation("][")
	_, err := tr.Apply(context.Background(), schema.Row{}, schema.NewResult("x"))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfiguration, errCode(t, err))
}

// --- Clone and details ---

func TestTransformationClone_NoAliasing(t *testing.T) {
	original := NewMapTransformation("f", MapEntry{From: "a", To: "b"})
	clone := original.Clone().(*MapTransformation)
	clone.Entries[0].To = "changed"
	assert.Equal(t, "b", original.Entries[0].To)
}

func TestDetailRoundTrip(t *testing.T) {
	original := NewSubstringTransformation(3, 7)
	detail, err := original.ToDetail()
	require.NoError(t, err)

	restored := &SubstringTransformation{}
	require.NoError(t, restored.FromDetail(detail))
	assert.Equal(t, original, restored)
}

func TestDetailRoundTrip_AllPureTransformations(t *testing.T) {
	steps := []Transformation{
		NewRegexMatchTransformation(`\d+`),
		NewInterpolateTransformation("${0}!"),
		NewMapTransformation("f", MapEntry{From: "a", To: "b"}),
		NewCalculateTransformation("${0}*2", 3),
		NewJQQueryTransformation(".x"),
	}
	for _, step := range steps {
		t.Run(fmt.Sprintf("%T", step), func(t *testing.T) {
			detail, err := step.ToDetail()
			require.NoError(t, err)

			factory, err := Transformations.Resolve(step.TypeID())
			require.NoError(t, err)
			restored := factory()
			require.NoError(t, restored.FromDetail(detail))
			assert.Equal(t, step, restored)
		})
	}
}
