package mapping

import (
	"context"
	"encoding/json"

	"github.com/rowmap/rowmap/internal/formula"
	"github.com/rowmap/rowmap/pkg/schema"
)

// CombineFieldsTransformation substitutes N configured source fields into a
// positional format string, as a chain step. Unlike the interpolate
// transformation it draws its operands from the row, not from the ambient
// current value; the incoming result only contributes the preserved original.
type CombineFieldsTransformation struct {
	Sources []*FieldTransformation
	Format  string
}

// NewCombineFieldsTransformation creates a combine step over the given
// sources.
func NewCombineFieldsTransformation(format string, sources ...*FieldTransformation) *CombineFieldsTransformation {
	return &CombineFieldsTransformation{Format: format, Sources: sources}
}

func (t *CombineFieldsTransformation) TypeID() string { return TypeIDCombine }

func (t *CombineFieldsTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Combine Fields",
		ShortName:   "Combine",
		Description: "Substitutes multiple source fields into a positional format string.",
	}
}

func (t *CombineFieldsTransformation) Apply(ctx context.Context, row schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}

	values := make([]string, len(t.Sources))
	for i, ft := range t.Sources {
		res, err := ft.Apply(ctx, row)
		if err != nil {
			return in, err
		}
		if res.Failed() {
			return in.Fail(res.ErrorMessage()), nil
		}
		values[i] = res.String()
	}

	out := formula.Substitute(t.Format, values)
	return in.Next(out, schema.TypeString), nil
}

func (t *CombineFieldsTransformation) Clone() Transformation {
	sources := make([]*FieldTransformation, len(t.Sources))
	for i, ft := range t.Sources {
		sources[i] = ft.Clone()
	}
	return &CombineFieldsTransformation{Sources: sources, Format: t.Format}
}

func (t *CombineFieldsTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *CombineFieldsTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *CombineFieldsTransformation) MarshalJSON() ([]byte, error) {
	return marshalEnvelope(t.TypeID(), struct {
		Sources []*FieldTransformation `json:"sourceFields,omitempty"`
		Format  string                 `json:"format"`
	}{Sources: t.Sources, Format: t.Format})
}

func (t *CombineFieldsTransformation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Sources []*FieldTransformation `json:"sourceFields"`
		Format  string                 `json:"format"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "invalid combine transformation").WithCause(err)
	}
	t.Sources = wire.Sources
	t.Format = wire.Format
	return nil
}
