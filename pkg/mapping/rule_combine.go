package mapping

import (
	"context"

	"github.com/rowmap/rowmap/internal/formula"
	"github.com/rowmap/rowmap/pkg/schema"
)

// CombineFieldsRule evaluates N source fields and substitutes them into a
// positional format string ("${0}-${1}"). Placeholders that reference a
// missing operand stay literal: a partially configured format remains
// visibly unfinished instead of failing.
type CombineFieldsRule struct {
	BaseRule
	Format string `json:"format"`
}

// NewCombineFieldsRule creates a combine rule over the given sources.
func NewCombineFieldsRule(format string, sources ...*FieldTransformation) *CombineFieldsRule {
	r := &CombineFieldsRule{Format: format}
	r.SetSourceFields(sources...)
	return r
}

func (r *CombineFieldsRule) TypeID() string { return TypeIDCombineRule }

func (r *CombineFieldsRule) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Combine Fields",
		ShortName:   "Combine",
		Description: "Substitutes multiple source fields into a positional format string.",
	}
}

func (r *CombineFieldsRule) MaxSourceFields() int { return MaxSourceFieldsUnbounded }

func (r *CombineFieldsRule) ApplyRow(ctx context.Context, row schema.Row) (schema.TransformationResult, error) {
	sources, err := r.resolveSources(ctx, r.TypeID(), r.MaxSourceFields(), row)
	if err != nil {
		return schema.TransformationResult{}, err
	}

	values := make([]string, len(sources))
	for i, res := range sources {
		if res.Failed() {
			return res, nil
		}
		values[i] = res.String()
	}

	entry := schema.NewResult(nil).Next(values, schema.TypeCollection)
	return r.ApplyValue(ctx, entry)
}

// ApplyValue substitutes the elements of the incoming value (a collection
// for multi-source combines, a scalar otherwise) into the format string.
func (r *CombineFieldsRule) ApplyValue(_ context.Context, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	out := formula.Substitute(r.Format, in.Strings())
	return in.Next(out, schema.TypeString), nil
}

func (r *CombineFieldsRule) Clone() Rule {
	return &CombineFieldsRule{BaseRule: r.cloneBase(), Format: r.Format}
}

func (r *CombineFieldsRule) MarshalJSON() ([]byte, error) {
	type alias CombineFieldsRule
	return marshalEnvelope(r.TypeID(), (*alias)(r))
}
