package mapping

import (
	"context"

	"github.com/rowmap/rowmap/internal/formula"
	"github.com/rowmap/rowmap/pkg/schema"
)

// InterpolateTransformation substitutes the current value into a positional
// format string. A collection (for instance the output of a prior regex
// match) fills the placeholders positionally; a scalar fills ${0}.
// Placeholders without a corresponding element stay literal.
type InterpolateTransformation struct {
	Format string `json:"format"`
}

// NewInterpolateTransformation creates an interpolation step.
func NewInterpolateTransformation(format string) *InterpolateTransformation {
	return &InterpolateTransformation{Format: format}
}

func (t *InterpolateTransformation) TypeID() string { return TypeIDInterpolate }

func (t *InterpolateTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Interpolate",
		ShortName:   "Interp",
		Description: "Substitutes the current value(s) into a positional format string.",
	}
}

func (t *InterpolateTransformation) Apply(_ context.Context, _ schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	out := formula.Substitute(t.Format, in.Strings())
	return in.Next(out, schema.TypeString), nil
}

func (t *InterpolateTransformation) Clone() Transformation {
	cp := *t
	return &cp
}

func (t *InterpolateTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *InterpolateTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *InterpolateTransformation) MarshalJSON() ([]byte, error) {
	type alias InterpolateTransformation
	return marshalEnvelope(t.TypeID(), (*alias)(t))
}
