package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Construction ---

func TestNewResult(t *testing.T) {
	r := NewResult("hello")
	assert.Equal(t, "hello", r.OriginalValue())
	assert.Equal(t, TypeString, r.OriginalType())
	assert.Equal(t, "hello", r.CurrentValue())
	assert.False(t, r.Failed())
}

func TestSuccess(t *testing.T) {
	r := Success("raw", TypeString, 42.0, TypeNumber)
	assert.Equal(t, "raw", r.OriginalValue())
	assert.Equal(t, 42.0, r.CurrentValue())
	assert.Equal(t, TypeNumber, r.CurrentType())
	assert.False(t, r.Failed())
}

func TestFailure(t *testing.T) {
	r := Failure("raw", TypeNumber, "boom")
	assert.True(t, r.Failed())
	assert.Equal(t, "boom", r.ErrorMessage())
	assert.Equal(t, "raw", r.OriginalValue())
	assert.Equal(t, TypeNumber, r.CurrentType())
}

func TestFailure_EmptyMessageGetsDefault(t *testing.T) {
	r := Failure("raw", TypeString, "")
	assert.True(t, r.Failed())
	assert.NotEmpty(t, r.ErrorMessage())
}

// --- Derivation ---

func TestNext_PreservesOriginal(t *testing.T) {
	r := NewResult("input").Next("step1", TypeString).Next(7.0, TypeNumber)
	assert.Equal(t, "input", r.OriginalValue())
	assert.Equal(t, TypeString, r.OriginalType())
	assert.Equal(t, 7.0, r.CurrentValue())
	assert.Equal(t, TypeNumber, r.CurrentType())
}

func TestFail_PreservesOriginal(t *testing.T) {
	r := NewResult("input").Next("step1", TypeString).Fail("broken")
	assert.True(t, r.Failed())
	assert.Equal(t, "input", r.OriginalValue())
}

// --- Failure pass-through invariant ---

func TestFailedResult_InertUnderFurtherSteps(t *testing.T) {
	failed := NewResult("x").Fail("first error")

	after := failed.Next("should not apply", TypeString)
	assert.True(t, after.Failed())
	assert.Equal(t, "first error", after.ErrorMessage())
	assert.Nil(t, after.CurrentValue())

	again := after.Fail("second error")
	assert.Equal(t, "first error", again.ErrorMessage())
}

// --- Rendering ---

func TestString_Scalar(t *testing.T) {
	assert.Equal(t, "5493.39", NewResult("5493.39").String())
	assert.Equal(t, "7", Success(nil, TypeEmpty, 7, TypeNumber).String())
	assert.Equal(t, "7.5", Success(nil, TypeEmpty, 7.5, TypeNumber).String())
	assert.Equal(t, "", NewResult(nil).String())
}

func TestString_Collection(t *testing.T) {
	r := NewResult("x").Next([]string{"a", "b"}, TypeCollection)
	assert.Equal(t, `["a","b"]`, r.String())
}

func TestStrings(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		assert.Equal(t, []string{"a"}, NewResult("a").Strings())
	})
	t.Run("collection", func(t *testing.T) {
		r := NewResult("x").Next([]string{"a", "b"}, TypeCollection)
		assert.Equal(t, []string{"a", "b"}, r.Strings())
	})
	t.Run("any collection", func(t *testing.T) {
		r := NewResult("x").Next([]any{"a", 2.0}, TypeCollection)
		assert.Equal(t, []string{"a", "2"}, r.Strings())
	})
	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, NewResult(nil).Strings())
	})
}

// --- Type detection ---

func TestDetectType(t *testing.T) {
	require.Equal(t, TypeEmpty, DetectType(nil))
	require.Equal(t, TypeBoolean, DetectType(true))
	require.Equal(t, TypeNumber, DetectType(3))
	require.Equal(t, TypeNumber, DetectType(3.14))
	require.Equal(t, TypeDate, DetectType(time.Now()))
	require.Equal(t, TypeCollection, DetectType([]string{"a"}))
	require.Equal(t, TypeCollection, DetectType([]any{"a"}))
	require.Equal(t, TypeString, DetectType("a"))
}
