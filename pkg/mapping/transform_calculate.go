package mapping

import (
	"context"
	"math"
	"strconv"

	"github.com/rowmap/rowmap/internal/formula"
	"github.com/rowmap/rowmap/pkg/schema"
)

// Rounding bounds for the calculate transformation. NoRounding keeps the
// shortest round-trip rendering of the computed value.
const (
	NoRounding       = -1
	maxDecimalPlaces = 15
)

// calcEvaluator is shared across all calculate transformations so compiled
// formulas are cached process-wide.
var calcEvaluator = formula.NewEvaluator()

// CalculateTransformation substitutes the current value(s) into an
// arithmetic formula and evaluates it. Placeholders without a corresponding
// element become "0" before evaluation. A malformed formula and non-numeric
// input fail identically with the stable MsgInvalidFormat message; callers
// cannot distinguish the two causes.
type CalculateTransformation struct {
	Formula       string `json:"formula"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

// NewCalculateTransformation creates a calculation step. decimalPlaces is
// clamped into [NoRounding, 15].
func NewCalculateTransformation(formulaText string, decimalPlaces int) *CalculateTransformation {
	return &CalculateTransformation{Formula: formulaText, DecimalPlaces: decimalPlaces}
}

func (t *CalculateTransformation) TypeID() string { return TypeIDCalculate }

func (t *CalculateTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Calculate",
		ShortName:   "Calc",
		Description: "Evaluates an arithmetic formula over the current value(s).",
	}
}

func (t *CalculateTransformation) Apply(_ context.Context, _ schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}

	text := formula.SubstituteOrDefault(t.Formula, in.Strings(), "0")
	n, err := calcEvaluator.Evaluate(text)
	if err != nil {
		return in.Fail(MsgInvalidFormat), nil
	}

	places := clamp(t.DecimalPlaces, NoRounding, maxDecimalPlaces)
	if places == NoRounding {
		return in.Next(strconv.FormatFloat(n, 'f', -1, 64), schema.TypeNumber), nil
	}

	shift := math.Pow(10, float64(places))
	rounded := math.Round(n*shift) / shift
	return in.Next(strconv.FormatFloat(rounded, 'f', places, 64), schema.TypeNumber), nil
}

func (t *CalculateTransformation) Clone() Transformation {
	cp := *t
	return &cp
}

func (t *CalculateTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *CalculateTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *CalculateTransformation) MarshalJSON() ([]byte, error) {
	type alias CalculateTransformation
	return marshalEnvelope(t.TypeID(), (*alias)(t))
}
